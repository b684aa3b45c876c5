// Package workbook reads spreadsheet exports into raw tables and writes result
// tables back out as xlsx or csv.
package workbook

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/xuri/excelize/v2"
)

// Format identifies a supported file type.
type Format string

// Supported formats.
const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ErrSheetNotFound is returned when a named sheet does not exist in the workbook.
var ErrSheetNotFound = errors.New("sheet not found")

// FormatOf returns the format implied by a file name's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, filepath.Base(path))
	}
}

// ReadFile reads the file at path. sheet selects a worksheet in an xlsx file;
// empty means the first sheet.
func ReadFile(path, sheet string) (*model.RawTable, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return Read(f, format, sheet)
}

// Read parses r as the given format.
func Read(r io.Reader, format Format, sheet string) (*model.RawTable, error) {
	switch format {
	case FormatXLSX:
		return ReadXLSX(r, sheet)
	case FormatCSV:
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, format)
	}
}

// ReadXLSX reads one worksheet. Cells come back as their stored values, so
// amounts are unrounded and free of number formatting. Cells with a date format,
// such as a period header stored as a date, keep their displayed text.
func ReadXLSX(r io.Reader, sheet string) (*model.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("%w: workbook has no worksheets", ErrSheetNotFound)
		}
	} else if idx, idxErr := f.GetSheetIndex(sheet); idxErr != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	shown, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	dates := dateStyles{file: f, known: map[int]bool{}}
	for r, row := range rows {
		for c, value := range row {
			if r >= len(shown) || c >= len(shown[r]) || shown[r][c] == value {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if dates.has(sheet, cell) {
				row[c] = shown[r][c]
			} else {
				row[c] = storedNumber(value)
			}
		}
	}

	return &model.RawTable{Rows: rows}, nil
}

// storedNumber trims a stored float to the 15 significant digits a spreadsheet
// displays, writing it without an exponent. Other text is returned unchanged.
func storedNumber(raw string) string {
	digits := 0
	for _, ch := range raw {
		if ch >= '0' && ch <= '9' {
			digits++
		}
	}
	if digits <= 15 && !strings.ContainsAny(raw, "eE") {
		return raw
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	v, err = strconv.ParseFloat(strconv.FormatFloat(v, 'g', 15, 64), 64)
	if err != nil {
		return raw
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// dateStyles caches which cell style ids carry a date or time number format.
type dateStyles struct {
	file  *excelize.File
	known map[int]bool
}

func (d dateStyles) has(sheet, cell string) bool {
	id, err := d.file.GetCellStyle(sheet, cell)
	if err != nil || id == 0 {
		return false
	}
	if isDate, ok := d.known[id]; ok {
		return isDate
	}

	isDate := false
	if style, err := d.file.GetStyle(id); err == nil {
		isDate = isDateFormat(style.NumFmt, style.CustomNumFmt)
	}
	d.known[id] = isDate
	return isDate
}

// isDateFormat reports whether a number format renders a date or time. Built-in
// ids follow ECMA-376 18.8.30; custom codes are checked for date tokens outside
// quoted and bracketed sections.
func isDateFormat(numFmt int, custom *string) bool {
	if custom == nil || *custom == "" {
		return (numFmt >= 14 && numFmt <= 22) || (numFmt >= 27 && numFmt <= 36) ||
			(numFmt >= 45 && numFmt <= 47) || (numFmt >= 50 && numFmt <= 58)
	}

	code := strings.ToLower(*custom)
	quoted, bracket := false, false
	for i := 0; i < len(code); i++ {
		switch ch := code[i]; {
		case ch == '"':
			quoted = !quoted
		case quoted:
		case ch == '[':
			bracket = true
		case ch == ']':
			bracket = false
		case bracket:
		case ch == '\\' || ch == '_' || ch == '*':
			i++
		case strings.IndexByte("ymdhs", ch) >= 0:
			return true
		}
	}
	return false
}

// ReadCSV reads a comma separated file. Rows may have differing lengths.
func ReadCSV(r io.Reader) (*model.RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	// Strip a UTF-8 byte order mark left by spreadsheet exports.
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}

	return &model.RawTable{Rows: rows}, nil
}
