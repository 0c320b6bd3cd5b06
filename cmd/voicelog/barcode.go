package main

import (
	"github.com/spf13/cobra"
	"github.com/voicelog/product-identity/app/barcode"
	"github.com/voicelog/product-identity/models"
)

var barcodeCmd = &cobra.Command{
	Use:   "barcode",
	Short: "Barcode validation and conflict checks",
}

var barcodeValidateCmd = &cobra.Command{
	Use:   "validate <code>",
	Short: "Classify a scanned code as a retail barcode",
	Long: `Classify a scanned code. Warehouse labels (FNSKU, LPN) and codes
that are not 8, 12 or 13 digits are rejected with a reason.

Examples:
  voicelog barcode validate 012345678905
  voicelog barcode validate X00ABC123`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, barcode.Validate(args[0]))
	},
}

var barcodeConflictCmd = &cobra.Command{
	Use:   "conflict <code>",
	Short: "Compare a detected product with the product bound to a barcode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		brand, _ := cmd.Flags().GetString("brand")

		db, err := openDB()
		if err != nil {
			return err
		}
		detector := barcode.NewConflictDetector(models.NewCatalogRepository(db), cfg.Barcode)
		return printJSON(cmd, detector.Check(cmd.Context(), args[0], name, brand))
	},
}

func init() {
	barcodeConflictCmd.Flags().String("name", "", "Detected product name")
	barcodeConflictCmd.Flags().String("brand", "", "Detected brand")

	barcodeCmd.AddCommand(barcodeValidateCmd)
	barcodeCmd.AddCommand(barcodeConflictCmd)
	rootCmd.AddCommand(barcodeCmd)
}
