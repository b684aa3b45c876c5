package main

import (
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/trialbalance"
	"github.com/Veraticus/the-books-must-balance/internal/workbook"
	"github.com/spf13/cobra"
)

func normalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize <file>",
		Short: "Flatten a trial balance export into one header row",
		Long: `Normalize a trial balance export: drop the report title block, merge
the period and Debit/Credit header rows into "<period> Debit" and
"<period> Credit" columns, and stop at the TOTAL row.

The ledger is written as csv to stdout unless --out is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runNormalize,
	}

	cmd.Flags().String("sheet", "", "worksheet to read from an xlsx input (default: first sheet)")
	cmd.Flags().String("sentinel", "", "account text that ends the data rows")
	cmd.Flags().Int("metadata-rows", 0, "report title rows above the header (default: detect)")
	cmd.Flags().StringP("out", "o", "", "output file (xlsx or csv)")

	return cmd
}

func runNormalize(cmd *cobra.Command, args []string) error {
	settings, err := reshapeSettings(cmd)
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")

	input := args[0]
	raw, err := workbook.ReadFile(input, settings.Sheet)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Could not read %s: %v", input, err), err)
	}

	ledger, err := trialbalance.Normalize(raw, settings.Options)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("%s: %v", input, err), err)
	}

	sheet := workbook.LedgerSheet(ledger)
	if out == "" {
		return workbook.WriteCSV(cmd.OutOrStdout(), sheet)
	}

	if err := workbook.WriteFile(out, sheet); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Wrote %d accounts over %d periods to %s", len(ledger.Rows), len(ledger.Periods), out)))
	return nil
}
