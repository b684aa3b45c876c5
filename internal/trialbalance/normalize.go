// Package trialbalance reshapes a multi-month trial balance export into a
// month-over-month schedule of ending balances and period activity.
package trialbalance

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
)

// Options controls how the raw header block is located.
type Options struct {
	// Sentinel is the account text that ends the data rows. Defaults to TOTAL.
	Sentinel string
	// MetadataRows, when positive, is the number of report title lines above the
	// two header rows. Zero locates the header by its Debit/Credit labels.
	MetadataRows int
}

func (o Options) sentinel() string {
	if o.Sentinel == "" {
		return model.DefaultSentinel
	}
	return o.Sentinel
}

type headerKind int

const (
	headerNone headerKind = iota
	// headerField is the lower row of a two-row header: bare Debit/Credit labels.
	headerField
	// headerNormalized is a single row of "<period> Debit|Credit" labels.
	headerNormalized
)

// classifyHeaderRow inspects the non-blank cells right of the account column.
func classifyHeaderRow(raw *model.RawTable, row int) headerKind {
	fields, normalized, cells := 0, 0, 0
	for c := 1; c < len(raw.Rows[row]); c++ {
		cell := raw.Cell(row, c)
		if cell == "" {
			continue
		}
		cells++
		if _, ok := canonicalField(cell); ok {
			fields++
		} else if _, _, ok := SplitColumn(cell); ok {
			normalized++
		}
	}

	switch {
	case cells == 0:
		return headerNone
	case fields == cells:
		return headerField
	case normalized == cells:
		return headerNormalized
	default:
		return headerNone
	}
}

// headerWidth is one past the last non-blank cell of the header row.
func headerWidth(raw *model.RawTable, row int) int {
	width := len(raw.Rows[row])
	for width > 1 && raw.Cell(row, width-1) == "" {
		width--
	}
	return width
}

// locateHeader returns the row holding the field labels and whether a group row sits above it.
func locateHeader(raw *model.RawTable, opts Options) (int, bool, error) {
	if opts.MetadataRows > 0 {
		fieldRow := opts.MetadataRows + 1
		if fieldRow >= len(raw.Rows) {
			return 0, false, headerError("fewer than 2 header rows after %d metadata rows", opts.MetadataRows)
		}
		if classifyHeaderRow(raw, fieldRow) != headerField {
			return 0, false, headerError("row %d does not hold Debit/Credit labels", fieldRow+1)
		}
		return fieldRow, true, nil
	}

	for r := range raw.Rows {
		switch classifyHeaderRow(raw, r) {
		case headerField:
			if r == 0 {
				return 0, false, headerError("fewer than 2 header rows")
			}
			return r, true, nil
		case headerNormalized:
			return r, false, nil
		case headerNone:
		}
	}
	return 0, false, headerError("no Debit/Credit header row found")
}

// buildColumns synthesizes unique "<period> <field>" names for the header.
func buildColumns(raw *model.RawTable, fieldRow int, grouped bool) ([]string, error) {
	width := headerWidth(raw, fieldRow)
	columns := make([]string, width)
	columns[0] = model.ColumnAccount

	group := ""
	for c := 1; c < width; c++ {
		cell := raw.Cell(fieldRow, c)
		if cell == "" {
			return nil, headerError("blank field label in column %d", c+1)
		}

		if !grouped {
			label, field, ok := SplitColumn(cell)
			if !ok {
				return nil, headerError("unrecognized column %q", cell)
			}
			columns[c] = model.ColumnName(label, field)
			continue
		}

		if g := normalizeSpace(raw.Cell(fieldRow-1, c)); g != "" {
			group = g
		}
		if group == "" {
			return nil, headerError("column %d has no period label", c+1)
		}
		field, ok := canonicalField(cell)
		if !ok {
			return nil, headerError("unrecognized field label %q", cell)
		}
		columns[c] = model.ColumnName(group, field)
	}
	return columns, nil
}

// Normalize turns a raw export into a LedgerTable. The header is either the
// two-row group/field block or an already normalized single row, so normalizing a
// normalized table returns the same columns and rows. Data stops at the sentinel
// row; blank amounts are zero.
func Normalize(raw *model.RawTable, opts Options) (*model.LedgerTable, error) {
	if raw == nil || len(raw.Rows) == 0 {
		return nil, headerError("empty table")
	}

	fieldRow, grouped, err := locateHeader(raw, opts)
	if err != nil {
		return nil, err
	}

	columns, err := buildColumns(raw, fieldRow, grouped)
	if err != nil {
		return nil, err
	}

	periods, err := DiscoverPeriods(columns)
	if err != nil {
		return nil, &StageError{Stage: StageNormalize, Err: err}
	}

	layout, err := layoutColumns(columns, periods)
	if err != nil {
		return nil, &StageError{Stage: StageNormalize, Err: err}
	}

	sentinel := opts.sentinel()
	table := &model.LedgerTable{Periods: periods}

	for r := fieldRow + 1; r < len(raw.Rows); r++ {
		if raw.IsBlankRow(r) {
			continue
		}

		account := raw.Cell(r, 0)
		if account == sentinel {
			break
		}

		if c := firstCellBeyond(raw, r, len(columns)); c >= 0 {
			slog.Warn("Ignoring cells right of the header",
				"row", r+1,
				"account", account,
				"column", c+1,
				"value", raw.Cell(r, c))
		}

		row := model.LedgerRow{Account: account, Entries: make([]model.Entry, len(periods))}
		for p, pair := range layout {
			debit, err := parseCell(raw, r, pair.debit, columns)
			if err != nil {
				return nil, err
			}
			credit, err := parseCell(raw, r, pair.credit, columns)
			if err != nil {
				return nil, err
			}
			row.Entries[p] = model.Entry{Debit: debit, Credit: credit}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// firstCellBeyond returns the first non-blank column at or after width, or -1.
func firstCellBeyond(raw *model.RawTable, row, width int) int {
	for c := width; c < len(raw.Rows[row]); c++ {
		if raw.Cell(row, c) != "" {
			return c
		}
	}
	return -1
}

func parseCell(raw *model.RawTable, row, col int, columns []string) (decimal.Decimal, error) {
	text := raw.Cell(row, col)
	d, err := ParseAmount(text)
	if err != nil {
		return d, &StageError{
			Stage: StageNormalize,
			Value: text,
			Err:   fmt.Errorf("%w at row %d, column %q", ErrInvalidAmount, row+1, columns[col]),
		}
	}
	return d, nil
}

// IsMalformedHeader reports whether err is a structural header failure.
func IsMalformedHeader(err error) bool {
	return errors.Is(err, ErrMalformedHeader)
}

// ToRaw renders a ledger table in its normalized single-header form.
func ToRaw(table *model.LedgerTable) *model.RawTable {
	raw := &model.RawTable{Rows: make([][]string, 0, len(table.Rows)+1)}
	raw.Rows = append(raw.Rows, table.Columns())
	for _, row := range table.Rows {
		cells := make([]string, 0, 1+2*len(row.Entries))
		cells = append(cells, row.Account)
		for _, e := range row.Entries {
			cells = append(cells, e.Debit.String(), e.Credit.String())
		}
		raw.Rows = append(raw.Rows, cells)
	}
	return raw
}

// normalizeSpace collapses runs of whitespace in header text.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
