package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"backoffice.GO/service/audit"
	reportService "backoffice.GO/service/report"
)

var (
	reportKind       string
	reportDefinition uint
	reportParams     map[string]string
	reportCSV        string
)

var reportRunCmd = &cobra.Command{
	Use:   "report:run",
	Short: "Run a report by kind or saved definition and store the run",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportKind == "" && reportDefinition == 0 {
			return fmt.Errorf("--kind or --definition is required")
		}
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		req := reportService.RunRequest{Kind: reportKind, Params: map[string]interface{}{}}
		if reportDefinition != 0 {
			req.DefinitionID = &reportDefinition
		}
		for k, v := range reportParams {
			req.Params[k] = v
		}
		run, result, err := a.deps.Reports.Run(cmd.Context(), req, audit.System())
		if err != nil {
			if run != nil {
				return fmt.Errorf("report run %s failed: %w", run.RunToken, err)
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report %s: %d rows (run %s)\n", run.Kind, run.RowsCount, run.RunToken)
		if reportCSV == "" {
			return nil
		}
		f, err := os.Create(reportCSV)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := reportService.WriteCSV(f, result); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "CSV written to %s\n", reportCSV)
		return nil
	},
}

var reportsSeedCmd = &cobra.Command{
	Use:   "reports:seed",
	Short: "Create the stock report definitions that are missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		n, err := a.deps.Reports.SeedDefinitions(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report definitions created: %d\n", n)
		return nil
	},
}

func init() {
	reportRunCmd.Flags().StringVarP(&reportKind, "kind", "k", "", "Report kind (inventory, movements, sales, top_products, reservations, audit, categories, daily, monthly)")
	reportRunCmd.Flags().UintVar(&reportDefinition, "definition", 0, "Saved report definition id")
	reportRunCmd.Flags().StringToStringVarP(&reportParams, "param", "p", nil, "Report parameter key=value (repeatable)")
	reportRunCmd.Flags().StringVar(&reportCSV, "csv", "", "Also write the full result to this CSV file")
	rootCmd.AddCommand(reportRunCmd, reportsSeedCmd)
}
