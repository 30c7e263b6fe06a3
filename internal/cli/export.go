package cli

import (
	"fmt"
	"os"

	"github.com/ikkim/cart-recovery-backend/internal/app/repository"
	"github.com/ikkim/cart-recovery-backend/internal/app/service"
	"github.com/spf13/cobra"
)

type exportResult struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var out, search, orderBy, order string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write abandoned carts to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}

			env, closeEnv, err := rootOpts.load(true)
			if err != nil {
				return err
			}
			defer closeEnv()

			admin := service.NewAdminCartService(repository.NewAbandonedCartRepository(env.DB))
			body, err := admin.Export(cmd.Context(), repository.ListFilter{
				Search:  search,
				OrderBy: orderBy,
				Order:   order,
			})
			if err != nil {
				return fmt.Errorf("export abandoned carts: %w", err)
			}
			if err := os.WriteFile(out, body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			return emit(cmd, rootOpts,
				fmt.Sprintf("Wrote %s (%d bytes)", out, len(body)),
				exportResult{Path: out, Bytes: len(body)})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output .xlsx path")
	cmd.Flags().StringVar(&search, "search", "", "only carts whose customer data or contents match")
	cmd.Flags().StringVar(&orderBy, "orderby", "checkout_time", "sort column (checkout_time|status)")
	cmd.Flags().StringVar(&order, "order", "desc", "sort direction (asc|desc)")
	return cmd
}
