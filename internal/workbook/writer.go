package workbook

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet is a rectangular table ready to be written.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// amountFormat is the built-in "#,##0.00" number format.
const amountFormat = 4

// ScheduleSheet converts a schedule to a sheet named "Schedule".
func ScheduleSheet(s *model.Schedule) Sheet {
	sheet := Sheet{Name: "Schedule", Header: s.Columns(), Rows: make([][]any, 0, len(s.Rows))}
	for _, row := range s.Rows {
		sheet.Rows = append(sheet.Rows, decimalRow(row.Account, row.Values))
	}
	return sheet
}

// ActivitySheet converts an activity table to a sheet named "Activity".
func ActivitySheet(a *model.ActivityTable) Sheet {
	sheet := Sheet{Name: "Activity", Header: a.Columns(), Rows: make([][]any, 0, len(a.Rows))}
	for _, row := range a.Rows {
		sheet.Rows = append(sheet.Rows, decimalRow(row.Account, row.Values()))
	}
	return sheet
}

// LedgerSheet converts a normalized ledger to a sheet named "Ledger".
func LedgerSheet(l *model.LedgerTable) Sheet {
	sheet := Sheet{Name: "Ledger", Header: l.Columns(), Rows: make([][]any, 0, len(l.Rows))}
	for _, row := range l.Rows {
		values := make([]decimal.Decimal, 0, 2*len(row.Entries))
		for _, e := range row.Entries {
			values = append(values, e.Debit, e.Credit)
		}
		sheet.Rows = append(sheet.Rows, decimalRow(row.Account, values))
	}
	return sheet
}

func decimalRow(account string, values []decimal.Decimal) []any {
	row := make([]any, 0, 1+len(values))
	row = append(row, account)
	for _, v := range values {
		row = append(row, v.InexactFloat64())
	}
	return row
}

// WriteFile writes sheets to path in the format implied by its extension.
// A csv file holds only the first sheet.
func WriteFile(path string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}

	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write beside the target and rename, so a failed write leaves no partial file.
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if format == FormatCSV {
		err = WriteCSV(f, sheets[0])
	} else {
		err = WriteXLSX(f, sheets...)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	if err := os.Chmod(tmp, 0644); err != nil { // #nosec G302
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move output into place at %s: %w", path, err)
	}
	return nil
}

// WriteXLSX writes each sheet as a worksheet: a bold header row followed by the
// data rows, numbers as numeric cells.
func WriteXLSX(w io.Writer, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: amountFormat})
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}

	defaultSheet := f.GetSheetName(0)
	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				return fmt.Errorf("failed to name sheet %q: %w", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", sheet.Name, err)
		}

		if err := writeSheet(f, sheet, headerStyle, amountStyle); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet Sheet, headerStyle, amountStyle int) error {
	header := make([]any, len(sheet.Header))
	for i, h := range sheet.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", sheet.Name, err)
	}

	for r, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", r+2, sheet.Name, err)
		}
	}

	if len(sheet.Header) == 0 {
		return nil
	}
	lastCol, err := excelize.ColumnNumberToName(len(sheet.Header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet.Name, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header of %q: %w", sheet.Name, err)
	}
	if len(sheet.Rows) > 0 && len(sheet.Header) > 1 {
		end := fmt.Sprintf("%s%d", lastCol, len(sheet.Rows)+1)
		if err := f.SetCellStyle(sheet.Name, "B2", end, amountStyle); err != nil {
			return fmt.Errorf("failed to style amounts of %q: %w", sheet.Name, err)
		}
	}
	return f.SetColWidth(sheet.Name, "A", "A", 36)
}

// WriteCSV writes one sheet as csv. Floats are written in their shortest form.
func WriteCSV(w io.Writer, sheet Sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sheet.Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range sheet.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return decimal.NewFromFloat(value).String()
	case decimal.Decimal:
		return value.String()
	default:
		return fmt.Sprint(value)
	}
}
