package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/voicelog/product-identity/app/catalog"
	"github.com/voicelog/product-identity/app/textkey"
	"github.com/voicelog/product-identity/models"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Shared product catalog commands",
}

var catalogAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a product to the shared catalog",
	Long: `Add a product. Products are keyed by normalized brand and name, so
adding the same product twice returns the existing row.

Examples:
  voicelog catalog add "Magtein Magnesium L-Threonate" --brand NOW --type supplement --serving 3 --unit capsules`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		brand, _ := cmd.Flags().GetString("brand")
		productType, _ := cmd.Flags().GetString("type")
		serving, _ := cmd.Flags().GetFloat64("serving")
		unit, _ := cmd.Flags().GetString("unit")

		name := strings.TrimSpace(args[0])
		key := textkey.ProductKey(brand, name)
		if key == "" {
			return fmt.Errorf("product name is required")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		repo := models.NewCatalogRepository(db)

		product := &models.CatalogProduct{
			ProductName:     name,
			Brand:           strings.TrimSpace(brand),
			ProductType:     productType,
			ProductKey:      key,
			ServingQuantity: serving,
			ServingUnit:     unit,
		}
		err = repo.CreateProduct(cmd.Context(), product)
		switch {
		case err == nil:
			return printJSON(cmd, product)
		case errors.Is(err, models.ErrDuplicateProduct):
			existing, err := repo.GetProductByKey(cmd.Context(), key)
			if err != nil {
				return err
			}
			return printJSON(cmd, existing)
		default:
			return fmt.Errorf("failed to add product: %w", err)
		}
	},
}

var catalogMatchCmd = &cobra.Command{
	Use:   "match",
	Short: "Resolve a product mention against the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		var q catalog.Query
		q.Barcode, _ = cmd.Flags().GetString("barcode")
		q.ProductName, _ = cmd.Flags().GetString("name")
		q.Brand, _ = cmd.Flags().GetString("brand")

		db, err := openDB()
		if err != nil {
			return err
		}
		match := catalog.NewMatcher(models.NewCatalogRepository(db), cfg).FindCatalogMatch(cmd.Context(), q)
		if match == nil {
			return fmt.Errorf("no catalog match")
		}
		return printJSON(cmd, match)
	},
}

func init() {
	catalogAddCmd.Flags().String("brand", "", "Brand")
	catalogAddCmd.Flags().String("type", models.ProductTypeFood, "Product type (food, supplement, medication)")
	catalogAddCmd.Flags().Float64("serving", 1, "Serving quantity")
	catalogAddCmd.Flags().String("unit", "serving", "Serving unit")

	catalogMatchCmd.Flags().String("barcode", "", "Scanned barcode")
	catalogMatchCmd.Flags().String("name", "", "Detected product name")
	catalogMatchCmd.Flags().String("brand", "", "Detected brand")

	catalogCmd.AddCommand(catalogAddCmd)
	catalogCmd.AddCommand(catalogMatchCmd)
	rootCmd.AddCommand(catalogCmd)
}
