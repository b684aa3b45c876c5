package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/workbook"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse reshape runs saved with --save",
	}

	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyShowCmd())
	cmd.AddCommand(historyDeleteCmd())

	return cmd
}

func historyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No saved runs"))
				return nil
			}

			t := cli.NewTable("ID", "Created", "Source", "Boundary", "Periods", "Rows", "Warnings")
			for _, run := range runs {
				t.Append(
					run.ID,
					run.CreatedAt.Local().Format("2006-01-02 15:04"),
					run.SourceFile,
					run.BoundaryAccount,
					strconv.Itoa(run.PeriodCount),
					strconv.Itoa(run.RowCount),
					strconv.Itoa(run.WarningCount),
				)
			}
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "maximum number of runs to list")

	return cmd
}

func historyShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]
			out, _ := cmd.Flags().GetString("out")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(ctx, id)
			if err != nil {
				return runLookupError(id, err)
			}
			schedule, err := store.GetSchedule(ctx, id)
			if err != nil {
				return runLookupError(id, err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, cli.FormatTitle(fmt.Sprintf("%s (%s)", run.SourceFile, run.CreatedAt.Local().Format("2006-01-02 15:04"))))
			fmt.Fprintln(w, scheduleTable(schedule).Render())
			printWarnings(w, schedule.Warnings)

			if out != "" {
				if err := workbook.WriteFile(out, workbook.ScheduleSheet(schedule)); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
				fmt.Fprintln(w, cli.FormatSuccess("Wrote "+out))
			}
			return nil
		},
	}

	cmd.Flags().StringP("out", "o", "", "also write the schedule to this file")

	return cmd
}

func historyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]
			yes, _ := cmd.Flags().GetBool("yes")

			if !yes {
				reader := cli.NewNonBlockingReader(cmd.InOrStdin())
				ok, err := cli.Confirm(ctx, reader, cmd.OutOrStdout(), fmt.Sprintf("Delete run %s?", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Canceled"))
					return nil
				}
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteRun(ctx, id); err != nil {
				return runLookupError(id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted run "+id))
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func runLookupError(id string, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.NewUserError(fmt.Sprintf("No saved run with id %s", id), err)
	}
	return err
}
