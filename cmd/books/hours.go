package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/timecard"
	"github.com/Veraticus/the-books-must-balance/internal/workbook"
	"github.com/spf13/cobra"
)

const flagDateLayout = "2006-01-02"

func hoursCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hours <timecards.csv>",
		Short: "Summarize billable hours from a timecard export",
		Long: `Summarize a timecard export: billable percentage per employee and the
clients with the most hours. With --revenue, the profit and loss by
customer report for the same month is joined in and clients are also
ranked by services revenue.

--employee adds a by-client breakdown for those employees; --client adds
a by-employee breakdown for those clients.`,
		Example: `  books hours timecards.csv --start 2024-01-01 --end 2024-01-31
  books hours timecards.csv --revenue pl-by-customer.xlsx --month 1 --year 2024
  books hours timecards.csv --employee "Ada Lovelace" --client "Acme Health"`,
		Args: cobra.ExactArgs(1),
		RunE: runHours,
	}

	cmd.Flags().String("revenue", "", "P&L by customer export (xlsx or csv) for the same period")
	cmd.Flags().Int("month", 0, "month of the revenue report (default: month of the latest entry)")
	cmd.Flags().Int("year", 0, "year of the revenue report (default: year of the latest entry)")
	cmd.Flags().String("start", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "last day to include (YYYY-MM-DD)")
	cmd.Flags().StringSlice("client", nil, "client for the by-employee breakdown (repeatable)")
	cmd.Flags().StringSlice("employee", nil, "employee for the by-client breakdown (repeatable)")
	cmd.Flags().Int("top", 15, "number of clients in the rankings")

	return cmd
}

func runHours(cmd *cobra.Command, args []string) error {
	dates, err := dateFilter(cmd)
	if err != nil {
		return err
	}
	clients, _ := cmd.Flags().GetStringSlice("client")
	employees, _ := cmd.Flags().GetStringSlice("employee")
	n, _ := cmd.Flags().GetInt("top")
	if n <= 0 {
		return fmt.Errorf("--top must be positive: %d", n)
	}

	f, err := os.Open(args[0]) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	entries, err := timecard.ParseTimecards(f)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("%s: %v", args[0], err), err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatIconTitle(cli.ClockIcon, fmt.Sprintf("Timecard summary %s", describeRange(dates, entries))))

	billable := cli.NewTable("Employee", "Non-billable hours", "Billable hours", "Billable %")
	for _, e := range timecard.BillableByEmployee(entries, dates) {
		billable.Append(e.FullName, e.NonBillable.StringFixed(1), e.Billable.StringFixed(1), e.Percent.StringFixed(1)+"%")
	}
	fmt.Fprintln(out, billable.Render())

	byHours := cli.NewTable("Client", "Hours")
	for _, c := range timecard.TopClientsByHours(entries, dates, n) {
		byHours.Append(c.Client, c.Hours.StringFixed(1))
	}
	fmt.Fprintln(out, cli.FormatIconTitle(cli.ClockIcon, fmt.Sprintf("Top %d clients by hours", n)))
	fmt.Fprintln(out, byHours.Render())

	if path, _ := cmd.Flags().GetString("revenue"); path != "" {
		if err := printRevenue(cmd, out, path, entries, clients, n); err != nil {
			return err
		}
	}

	if len(employees) > 0 {
		filter := dates
		filter.Employees = employees
		detail := timecard.EmployeeBreakdown(entries, filter)

		t := cli.NewTable("Client", "Hours")
		for _, c := range detail.Clients {
			t.Append(c.Client, c.Hours.StringFixed(1))
		}
		fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("By client for %s, total hours %s, %s%% billable",
			strings.Join(employees, ", "), detail.TotalHours.StringFixed(1), detail.BillablePercent.StringFixed(1))))
		fmt.Fprintln(out, t.Render())
	}

	if len(clients) > 0 {
		filter := dates
		filter.Clients = clients
		detail := timecard.ClientBreakdown(entries, filter)

		t := cli.NewTable("Employee", "Hours")
		for _, e := range detail.Employees {
			t.Append(e.FullName, e.Hours.StringFixed(1))
		}
		fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s time by employee, total hours %s",
			strings.Join(clients, ", "), detail.TotalHours.StringFixed(1))))
		fmt.Fprintln(out, t.Render())
	}

	return nil
}

func printRevenue(cmd *cobra.Command, out io.Writer, path string, entries []model.TimeEntry, clients []string, n int) error {
	month, year := revenuePeriod(cmd, entries)
	if month < 1 || month > 12 {
		return fmt.Errorf("--month must be between 1 and 12: %d", month)
	}

	raw, err := workbook.ReadFile(path, "")
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Could not read %s: %v", path, err), err)
	}
	revenue, err := timecard.ParseRevenue(raw, config.RevenueHeaderRow(), month, year)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("%s: %v", path, err), err)
	}

	joined := timecard.Join(entries, revenue)
	if len(joined) == 0 {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("No timecard entries match the revenue report for %d/%d", month, year)))
		return nil
	}

	t := cli.NewTable("Client", "Services revenue")
	for _, c := range timecard.TopClientsByRevenue(joined, n) {
		t.Append(c.Client, cli.FormatAmount(c.Revenue))
	}
	fmt.Fprintln(out, cli.FormatIconTitle(cli.ChartIcon, fmt.Sprintf("Top %d clients by revenue, %d/%d", n, month, year)))
	fmt.Fprintln(out, t.Render())

	for _, client := range clients {
		if amount, ok := timecard.ClientRevenue(joined, client); ok {
			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Total revenue for %s: %s", client, cli.FormatAmount(amount))))
		} else {
			fmt.Fprintln(out, cli.FormatWarning("No revenue recorded for "+client))
		}
	}
	return nil
}

// revenuePeriod returns --month and --year, defaulting each to the latest entry.
func revenuePeriod(cmd *cobra.Command, entries []model.TimeEntry) (int, int) {
	month, _ := cmd.Flags().GetInt("month")
	year, _ := cmd.Flags().GetInt("year")

	var latest time.Time
	for _, e := range entries {
		if e.Date.After(latest) {
			latest = e.Date
		}
	}
	if month == 0 && !latest.IsZero() {
		month = int(latest.Month())
	}
	if year == 0 && !latest.IsZero() {
		year = latest.Year()
	}
	return month, year
}

func dateFilter(cmd *cobra.Command) (timecard.Filter, error) {
	var f timecard.Filter
	for _, opt := range []struct {
		flag string
		dst  *time.Time
	}{{"start", &f.Start}, {"end", &f.End}} {
		v, _ := cmd.Flags().GetString(opt.flag)
		if v == "" {
			continue
		}
		t, err := time.Parse(flagDateLayout, v)
		if err != nil {
			return f, fmt.Errorf("--%s must be YYYY-MM-DD: %q", opt.flag, v)
		}
		*opt.dst = t
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return f, fmt.Errorf("--end %s is before --start %s", f.End.Format(flagDateLayout), f.Start.Format(flagDateLayout))
	}
	return f, nil
}

// describeRange names the filter's dates, falling back to the span of the entries.
func describeRange(f timecard.Filter, entries []model.TimeEntry) string {
	start, end := f.Start, f.End
	for _, e := range entries {
		if f.Start.IsZero() && (start.IsZero() || e.Date.Before(start)) {
			start = e.Date
		}
		if f.End.IsZero() && e.Date.After(end) {
			end = e.Date
		}
	}
	if start.IsZero() && end.IsZero() {
		return "(no entries)"
	}
	return fmt.Sprintf("from %s to %s", start.Format(flagDateLayout), end.Format(flagDateLayout))
}
