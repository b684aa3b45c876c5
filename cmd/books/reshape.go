package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/Veraticus/the-books-must-balance/internal/trialbalance"
	"github.com/Veraticus/the-books-must-balance/internal/workbook"
	"github.com/spf13/cobra"
)

func reshapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reshape <files...>",
		Short: "Reshape trial balance exports into month-over-month schedules",
		Long: `Reshape one or more trial balance exports (xlsx or csv).

Each export must have a report title block, a period header row, a
Debit/Credit header row, one row per account and a closing TOTAL row.
Accounts down to and including the boundary account report ending
balances; accounts below it report the activity of each period.`,
		Example: `  books reshape trial-balance.xlsx --boundary "Retained Earnings"
  books reshape q1.xlsx q2.xlsx --out schedules/ --detail
  books reshape tb.csv --out schedule.csv --save --sheets`,
		Args: cobra.MinimumNArgs(1),
		RunE: runReshape,
	}

	addReshapeFlags(cmd)
	cmd.Flags().StringP("out", "o", "", "output file, or directory for several inputs")
	cmd.Flags().Bool("detail", false, "also write the activity table as a second sheet")
	cmd.Flags().Bool("sheets", false, "export the schedule to Google Sheets")
	cmd.Flags().Bool("save", false, "record the run in the history database")
	cmd.Flags().Bool("quiet", false, "do not print the schedule")

	return cmd
}

type reshapeFlags struct {
	out    string
	detail bool
	sheets bool
	save   bool
	quiet  bool
}

func runReshape(cmd *cobra.Command, args []string) error {
	settings, err := reshapeSettings(cmd)
	if err != nil {
		return err
	}

	var flags reshapeFlags
	flags.out, _ = cmd.Flags().GetString("out")
	flags.detail, _ = cmd.Flags().GetBool("detail")
	flags.sheets, _ = cmd.Flags().GetBool("sheets")
	flags.save, _ = cmd.Flags().GetBool("save")
	flags.quiet, _ = cmd.Flags().GetBool("quiet")

	// Fail on a bad --out before any file is processed.
	for _, input := range args {
		if _, err := outputPath(input, flags.out, len(args)); err != nil {
			return err
		}
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), "Reshape")
	defer handler.Stop()

	var store service.Storage
	if flags.save {
		store, err = initStorage(ctx)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer func() { _ = store.Close() }()
	}

	var progress *cli.Progress
	if len(args) > 1 {
		progress = cli.NewProgress(cmd.ErrOrStderr(), len(args), "Reshaping")
	}

	out := cmd.OutOrStdout()
	for _, input := range args {
		if err := ctx.Err(); err != nil {
			return err
		}
		if progress != nil {
			progress.Describe(input)
		}

		if err := reshapeOne(ctx, out, input, len(args), settings, flags, store); err != nil {
			return err
		}

		if progress != nil {
			progress.Step()
		}
	}
	if progress != nil {
		progress.Finish()
	}

	return nil
}

// addReshapeFlags registers the flags that override the reshape.* config keys.
func addReshapeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("boundary", "b", "", "last balance sheet account (default from reshape.boundary_account)")
	cmd.Flags().String("sheet", "", "worksheet to read from xlsx inputs (default: first sheet)")
	cmd.Flags().String("sentinel", "", "account text that ends the data rows")
	cmd.Flags().Int("metadata-rows", 0, "report title rows above the header (default: detect)")
}

// reshapeSettings loads the reshape.* keys and applies any flags that were set.
func reshapeSettings(cmd *cobra.Command) (*config.Reshape, error) {
	settings, err := config.LoadReshapeOptions()
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("boundary"); strings.TrimSpace(v) != "" {
		settings.BoundaryAccount = strings.TrimSpace(v)
	}
	if cmd.Flags().Changed("sheet") {
		settings.Sheet, _ = cmd.Flags().GetString("sheet")
	}
	if v, _ := cmd.Flags().GetString("sentinel"); v != "" {
		settings.Options.Sentinel = v
	}
	if cmd.Flags().Changed("metadata-rows") {
		rows, _ := cmd.Flags().GetInt("metadata-rows")
		if rows < 0 {
			return nil, fmt.Errorf("--metadata-rows cannot be negative: %d", rows)
		}
		settings.Options.MetadataRows = rows
	}
	return settings, nil
}

func reshapeOne(ctx context.Context, out io.Writer, input string, inputs int, settings *config.Reshape, flags reshapeFlags, store service.Storage) error {
	common.LogDebug("Reshaping file", common.Fields{"file": input, "boundary": settings.BoundaryAccount})

	raw, err := workbook.ReadFile(input, settings.Sheet)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Could not read %s: %v", input, err), err)
	}

	result, err := trialbalance.Process(raw, settings.BoundaryAccount, settings.Options)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("%s: %v", input, err), err)
	}
	schedule := result.Schedule

	if !flags.quiet {
		fmt.Fprintln(out, cli.FormatTitle(input))
		fmt.Fprintln(out, scheduleTable(schedule).Render())
	}
	printWarnings(out, schedule.Warnings)

	path, err := outputPath(input, flags.out, inputs)
	if err != nil {
		return err
	}
	if path != "" {
		tables := []workbook.Sheet{workbook.ScheduleSheet(schedule)}
		if flags.detail {
			if format, _ := workbook.FormatOf(path); format == workbook.FormatCSV {
				fmt.Fprintln(out, cli.FormatWarning("csv output holds one sheet; --detail ignored"))
			} else {
				tables = append(tables, workbook.ActivitySheet(result.Activity))
			}
		}
		if err := workbook.WriteFile(path, tables...); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintln(out, cli.FormatSuccess("Wrote "+path))
	}

	if flags.sheets {
		writer, err := newScheduleWriter(ctx)
		if err != nil {
			return err
		}
		if err := writer.Write(ctx, schedule); err != nil {
			common.LogError(err, "Google Sheets export failed", common.Fields{"file": input})
			return fmt.Errorf("failed to export to google sheets: %w", err)
		}
		fmt.Fprintln(out, cli.FormatSuccess("Exported to Google Sheets"))
	}

	if store != nil {
		run := &model.Run{SourceFile: input}
		if err := store.SaveRun(ctx, run, schedule); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		common.LogInfo("Saved run", common.Fields{"id": run.ID, "file": input})
		fmt.Fprintln(out, cli.FormatInfo("Saved run "+run.ID))
	}

	return nil
}
