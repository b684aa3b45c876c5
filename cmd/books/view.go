package main

import (
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/trialbalance"
	"github.com/Veraticus/the-books-must-balance/internal/tui"
	"github.com/Veraticus/the-books-must-balance/internal/tui/themes"
	"github.com/Veraticus/the-books-must-balance/internal/workbook"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func viewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [file]",
		Short: "Browse a schedule in an interactive table",
		Long: `Reshape a trial balance export and browse the result.

Press tab to switch between the schedule and the full activity table,
? for help and q to quit. With --run a saved schedule is shown instead;
saved runs keep no activity table.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runView,
	}

	addReshapeFlags(cmd)
	cmd.Flags().String("run", "", "show a run saved in the history database")
	cmd.Flags().String("theme", "", "color theme (default, catppuccin)")

	return cmd
}

func runView(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	runID, _ := cmd.Flags().GetString("run")

	theme := viper.GetString("tui.theme")
	if v, _ := cmd.Flags().GetString("theme"); v != "" {
		theme = v
	}

	var (
		schedule *model.Schedule
		activity *model.ActivityTable
	)

	switch {
	case runID != "" && len(args) > 0:
		return fmt.Errorf("give either a file or --run, not both")
	case runID != "":
		store, err := initStorage(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		schedule, err = store.GetSchedule(ctx, runID)
		if err != nil {
			return runLookupError(runID, err)
		}
	case len(args) == 1:
		settings, err := reshapeSettings(cmd)
		if err != nil {
			return err
		}

		raw, err := workbook.ReadFile(args[0], settings.Sheet)
		if err != nil {
			return common.NewUserError(fmt.Sprintf("Could not read %s: %v", args[0], err), err)
		}
		result, err := trialbalance.Process(raw, settings.BoundaryAccount, settings.Options)
		if err != nil {
			return common.NewUserError(fmt.Sprintf("%s: %v", args[0], err), err)
		}
		schedule, activity = result.Schedule, result.Activity
	default:
		return fmt.Errorf("a file or --run is required")
	}

	return tui.Run(ctx, schedule, activity, themes.ByName(theme))
}
