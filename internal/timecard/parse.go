// Package timecard joins employee timecard exports with profit-and-loss by customer
// reports and summarizes billable hours and revenue per employee and client.
package timecard

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/trialbalance"
	"github.com/shopspring/decimal"
)

// Timecard export columns.
const (
	ColumnDate      = "Date"
	ColumnFirstName = "First name"
	ColumnLastName  = "Last name"
	ColumnClient    = "Client"
	ColumnPTO       = "PTO"
	ColumnDuration  = "Duration"
)

// Revenue report names.
const (
	ColumnItem    = "Item"
	ColumnTotal   = "TOTAL"
	ItemRevenue   = "Total Services Revenue"
	ItemSalaries  = "Total Direct Salaries & Benefits"
	ItemRoyalties = "Royalty Fees"
	ItemExpenses  = "Total Expenses"
	ItemNetIncome = "Net Operating Income"
)

// KeptItems are the P&L lines carried into the revenue table.
var KeptItems = []string{ItemRevenue, ItemSalaries, ItemRoyalties, ItemExpenses, ItemNetIncome}

var (
	// ErrMissingColumn is returned when an export lacks a required column.
	ErrMissingColumn = errors.New("missing column")
	// ErrInvalidRow is returned for a row whose date or duration cannot be read.
	ErrInvalidRow = errors.New("invalid row")
)

var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"1/2/06",
	"Jan 2, 2006",
}

func parseDate(text string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", text)
}

// ParseTimecards reads a timecard CSV export. Entries without a client are booked
// to PTO when flagged as such and to Admin otherwise.
func ParseTimecards(r io.Reader) ([]model.TimeEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read timecard header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{ColumnDate, ColumnFirstName, ColumnLastName, ColumnClient, ColumnPTO, ColumnDuration} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, required)
		}
	}

	field := func(record []string, name string) string {
		i := index[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var entries []model.TimeEntry
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read timecard line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		date, err := parseDate(field(record, ColumnDate))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRow, line, err)
		}
		hours, err := decimal.NewFromString(field(record, ColumnDuration))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: duration %q", ErrInvalidRow, line, field(record, ColumnDuration))
		}

		pto := strings.EqualFold(field(record, ColumnPTO), "true")
		client := field(record, ColumnClient)
		if client == "" {
			if pto {
				client = model.ClientPTO
			} else {
				client = model.ClientAdmin
			}
		}

		entries = append(entries, model.TimeEntry{
			Date:     date,
			FullName: field(record, ColumnFirstName) + " " + field(record, ColumnLastName),
			Client:   client,
			Hours:    hours,
			Month:    int(date.Month()),
			Year:     date.Year(),
			PTO:      pto,
			Billable: IsBillable(client),
		})
	}

	return entries, nil
}

// IsBillable reports whether hours for client count as billable.
func IsBillable(client string) bool {
	for _, c := range model.NonBillableClients {
		if client == c {
			return false
		}
	}
	return true
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseRevenue melts a P&L by customer report into one line per kept item and
// client. headerRow is the zero-based row holding the client names. Blank cells
// produce no line.
func ParseRevenue(raw *model.RawTable, headerRow, month, year int) ([]model.RevenueLine, error) {
	if raw == nil || headerRow < 0 || headerRow >= len(raw.Rows) {
		return nil, fmt.Errorf("%w: header row %d is outside the report", ErrMissingColumn, headerRow+1)
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("month must be between 1 and 12, got %d", month)
	}

	type clientColumn struct {
		name  string
		index int
	}
	var clients []clientColumn
	for c := 1; c < len(raw.Rows[headerRow]); c++ {
		name := raw.Cell(headerRow, c)
		if name == "" || name == ColumnTotal {
			continue
		}
		clients = append(clients, clientColumn{name: name, index: c})
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("%w: no client columns in row %d", ErrMissingColumn, headerRow+1)
	}

	kept := make(map[string]bool, len(KeptItems))
	for _, item := range KeptItems {
		kept[item] = true
	}

	var lines []model.RevenueLine
	for r := headerRow + 1; r < len(raw.Rows); r++ {
		item := raw.Cell(r, 0)
		if !kept[item] {
			continue
		}
		for _, client := range clients {
			text := raw.Cell(r, client.index)
			if text == "" {
				continue
			}
			value, err := trialbalance.ParseAmount(text)
			if err != nil {
				return nil, fmt.Errorf("%w: %s for %s: %v", ErrInvalidRow, item, client.name, err)
			}
			lines = append(lines, model.RevenueLine{
				Item:   item,
				Client: client.name,
				Value:  value,
				Month:  month,
				Year:   year,
			})
		}
	}

	return lines, nil
}
