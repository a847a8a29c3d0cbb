package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"backoffice.GO/service/audit"
	"backoffice.GO/service/stockimport"
)

var (
	stockImportFile   string
	stockImportMode   string
	stockImportBatch  int
	stockImportReason string
)

var stockImportCmd = &cobra.Command{
	Use:   "stock:import",
	Short: "Import stock counts (set) or receipts (add) from CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(stockImportFile)
		if err != nil {
			return fmt.Errorf("failed to open CSV: %w", err)
		}
		defer f.Close()

		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.deps.StockImport.ImportCSV(cmd.Context(), f, stockimport.Options{
			Mode:      stockimport.Mode(stockImportMode),
			BatchSize: stockImportBatch,
			Reason:    stockImportReason,
		}, audit.System())
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, w := range res.Warnings {
			fmt.Fprintf(out, "  [warn] %s\n", w)
		}
		fmt.Fprintf(out, `
=== Stock Import Report ===
CSV rows:    %d
Imported:    %d
Skipped:     %d
Movements:   %d
Mode:        %s
Total time:  %s
===========================
`, res.TotalRows, res.Imported, res.Skipped, res.Movements, stockImportMode,
			res.TotalTime.Round(time.Millisecond))
		return nil
	},
}

func init() {
	stockImportCmd.Flags().StringVarP(&stockImportFile, "file", "f", "", "CSV file path (required)")
	_ = stockImportCmd.MarkFlagRequired("file")
	stockImportCmd.Flags().StringVar(&stockImportMode, "mode", string(stockimport.ModeSet), "set: qty is a physical count; add: qty is received")
	stockImportCmd.Flags().IntVar(&stockImportBatch, "batch-size", 200, "Rows per atomic batch")
	stockImportCmd.Flags().StringVar(&stockImportReason, "reason", "", "Movement reason (default \"stock import\")")
	rootCmd.AddCommand(stockImportCmd)
}
