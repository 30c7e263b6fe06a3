package cli

import (
	"fmt"

	"github.com/ikkim/cart-recovery-backend/internal/app/repository"
	"github.com/ikkim/cart-recovery-backend/internal/app/service"
	"github.com/ikkim/cart-recovery-backend/internal/storage"
	"github.com/spf13/cobra"
)

type cleanupResult struct {
	Days    int   `json:"days"`
	Deleted int64 `json:"deleted"`
}

func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	var days int
	var archive bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete abandoned carts older than --days",
		Long: `Delete abandoned carts whose last capture is older than --days.
Completed carts are never removed. With --archive the expiring carts are
uploaded as an XLSX workbook to the configured bucket first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, closeEnv, err := rootOpts.load(true)
			if err != nil {
				return err
			}
			defer closeEnv()

			if !cmd.Flags().Changed("days") {
				days = env.Config.Retention.Days
			}
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}

			var opts []service.RetentionOption
			if archive {
				if !env.Config.Retention.ArchiveEnabled() {
					return fmt.Errorf("--archive needs RETENTION_ARCHIVE_BUCKET")
				}
				s3 := env.Config.S3
				store := storage.NewS3Storage(s3.Region, env.Config.Retention.ArchiveBucket, s3.AccessKeyID, s3.SecretAccessKey)
				opts = append(opts, service.WithArchiver(service.NewWorkbookArchiver(store, env.Config.Retention.ArchivePrefix)))
			}

			retention := service.NewRetentionService(repository.NewAbandonedCartRepository(env.DB), opts...)
			deleted := retention.Cleanup(cmd.Context(), days)

			return emit(cmd, rootOpts,
				fmt.Sprintf("Deleted %d abandoned carts older than %d days", deleted, days),
				cleanupResult{Days: days, Deleted: deleted})
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "maximum age in days (default RETENTION_DAYS)")
	cmd.Flags().BoolVar(&archive, "archive", false, "archive expiring carts to S3 before deleting")
	return cmd
}
