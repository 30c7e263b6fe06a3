package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/internal/app/repository"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
)

type seedResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// NewSeedProductsCommand imports catalog products from the first sheet of an
// XLSX file with a header row followed by name and price columns.
func NewSeedProductsCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	var batchSize int

	cmd := &cobra.Command{
		Use:   "seed-products <xlsx-file>",
		Short: "Import catalog products from an XLSX sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			products, skipped, err := readProductsFromXLSX(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Products to import: %d (skipped %d rows)\n", len(products), skipped)

			if !yes {
				fmt.Fprint(cmd.ErrOrStderr(), "Do you want to proceed with the import? (yes/no): ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				answer = strings.TrimSpace(strings.ToLower(answer))
				if answer != "yes" && answer != "y" {
					return emit(cmd, rootOpts, "Import cancelled.", seedResult{Skipped: skipped})
				}
			}

			env, closeEnv, err := rootOpts.load(true)
			if err != nil {
				return err
			}
			defer closeEnv()

			if err := repository.NewProductRepository(env.DB).BulkCreate(cmd.Context(), products, batchSize); err != nil {
				return fmt.Errorf("bulk create products: %w", err)
			}

			return emit(cmd, rootOpts,
				fmt.Sprintf("Imported %d products", len(products)),
				seedResult{Imported: len(products), Skipped: skipped})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().IntVar(&batchSize, "batch-size", 500, "insert batch size")
	return cmd
}

func readProductsFromXLSX(path string) ([]model.Product, int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, 0, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no data found in XLSX file")
	}

	var products []model.Product
	skipped := 0

	// First row is the header
	for _, row := range rows[1:] {
		if len(row) < 2 {
			skipped++
			continue
		}
		name := strings.TrimSpace(row[0])
		price, err := decimal.NewFromString(strings.TrimSpace(row[1]))
		if name == "" || err != nil || price.IsNegative() {
			skipped++
			continue
		}
		products = append(products, model.Product{
			Name:  name,
			Price: price.Round(2),
		})
	}

	return products, skipped, nil
}
