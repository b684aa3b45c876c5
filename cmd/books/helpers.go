package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/Veraticus/the-books-must-balance/internal/sheets"
	"github.com/Veraticus/the-books-must-balance/internal/storage"
)

// initStorage opens the history database and brings its schema up to date.
func initStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newScheduleWriter is replaced in tests.
var newScheduleWriter = func(ctx context.Context) (sheets.ScheduleWriter, error) {
	cfg, err := config.LoadSheetsConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: google sheets: %v", common.ErrMissingConfig, err)
	}
	writer, err := sheets.NewWriter(ctx, *cfg, nil)
	if err != nil {
		return nil, err
	}
	return writer, nil
}

// outputPath decides where the schedule for input is written. An out that is
// an existing directory, or ends in a separator, receives
// "<input base>-schedule.xlsx". Several inputs require a directory.
func outputPath(input, out string, inputs int) (string, error) {
	if out == "" {
		return "", nil
	}

	isDir := strings.HasSuffix(out, string(os.PathSeparator)) || strings.HasSuffix(out, "/")
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		isDir = true
	}

	if !isDir {
		if inputs > 1 {
			return "", fmt.Errorf("--out must be a directory when reshaping %d files", inputs)
		}
		return out, nil
	}

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(out, base+"-schedule.xlsx"), nil
}

// scheduleTable renders a schedule with the boundary row highlighted.
func scheduleTable(s *model.Schedule) *cli.Table {
	t := cli.NewTable(s.Columns()...)
	for _, row := range s.Rows {
		cells := make([]string, 0, 1+len(row.Values))
		cells = append(cells, row.Account)
		for _, v := range row.Values {
			cells = append(cells, cli.FormatAmount(v))
		}
		t.Append(cells...)
	}
	if s.BoundaryIndex >= 0 && s.BoundaryIndex < len(s.Rows) {
		t.Highlight = s.BoundaryIndex
	}
	return t
}

func printWarnings(w io.Writer, warnings []model.Warning) {
	for _, warning := range warnings {
		fmt.Fprintln(w, cli.FormatWarning(warning.Message))
	}
}
