package cli

import (
	"fmt"
	"time"

	"github.com/ikkim/cart-recovery-backend/internal/storage"
	"github.com/spf13/cobra"
)

type archiveURLResult struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewArchiveURLCommand(rootOpts *RootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "archive-url <key>",
		Short: "Print a temporary download link for an archived workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, closeEnv, err := rootOpts.load(false)
			if err != nil {
				return err
			}
			defer closeEnv()

			if !env.Config.Retention.ArchiveEnabled() {
				return fmt.Errorf("RETENTION_ARCHIVE_BUCKET is not configured")
			}
			s3 := env.Config.S3
			store := storage.NewS3Storage(s3.Region, env.Config.Retention.ArchiveBucket, s3.AccessKeyID, s3.SecretAccessKey)

			url, err := store.PresignDownload(cmd.Context(), args[0], ttl)
			if err != nil {
				return err
			}
			return emit(cmd, rootOpts, url, archiveURLResult{
				Key:       args[0],
				URL:       url,
				ExpiresAt: time.Now().UTC().Add(ttl),
			})
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 15*time.Minute, "link lifetime")
	return cmd
}
