package timecard

import (
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/shopspring/decimal"
)

// Filter narrows entries by date and by who or what they were logged against.
// Zero dates and empty lists do not restrict.
type Filter struct {
	Start     time.Time
	End       time.Time
	Clients   []string
	Employees []string
}

// Match reports whether e passes the filter. End is inclusive of the whole day.
func (f Filter) Match(e model.TimeEntry) bool {
	if !f.Start.IsZero() && e.Date.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && !e.Date.Before(f.End.AddDate(0, 0, 1)) {
		return false
	}
	if len(f.Clients) > 0 && !contains(f.Clients, e.Client) {
		return false
	}
	if len(f.Employees) > 0 && !contains(f.Employees, e.FullName) {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Apply returns the entries that pass the filter.
func (f Filter) Apply(entries []model.TimeEntry) []model.TimeEntry {
	var out []model.TimeEntry
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Join pairs every entry with every revenue line for the same client, month and year.
func Join(entries []model.TimeEntry, revenue []model.RevenueLine) []model.JoinedEntry {
	type key struct {
		client      string
		month, year int
	}
	byKey := make(map[key][]model.RevenueLine)
	for _, line := range revenue {
		k := key{line.Client, line.Month, line.Year}
		byKey[k] = append(byKey[k], line)
	}

	var joined []model.JoinedEntry
	for _, e := range entries {
		for _, line := range byKey[key{e.Client, e.Month, e.Year}] {
			joined = append(joined, model.JoinedEntry{TimeEntry: e, Item: line.Item, Value: line.Value})
		}
	}
	return joined
}

// EmployeeBillable summarizes billable time for one employee.
type EmployeeBillable struct {
	FullName    string
	Billable    decimal.Decimal
	NonBillable decimal.Decimal
	Percent     decimal.Decimal
}

// ClientHours is the time logged against one client.
type ClientHours struct {
	Client string
	Hours  decimal.Decimal
}

// EmployeeHours is the time one employee logged.
type EmployeeHours struct {
	FullName string
	Hours    decimal.Decimal
}

// ClientAmount is the revenue booked for one client.
type ClientAmount struct {
	Client  string
	Revenue decimal.Decimal
}

// EmployeeDetail breaks an employee's time down by client.
type EmployeeDetail struct {
	Clients         []ClientHours
	TotalHours      decimal.Decimal
	BillablePercent decimal.Decimal
}

// ClientDetail breaks a client's time down by employee.
type ClientDetail struct {
	Employees  []EmployeeHours
	TotalHours decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// percent is part/total rounded to a tenth of a percent; zero when total is zero.
func percent(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Round(3).Mul(hundred)
}

// BillableByEmployee returns each employee's billable and non-billable hours,
// highest billable percentage first.
func BillableByEmployee(entries []model.TimeEntry, f Filter) []EmployeeBillable {
	index := make(map[string]int)
	var out []EmployeeBillable
	for _, e := range f.Apply(entries) {
		i, ok := index[e.FullName]
		if !ok {
			i = len(out)
			index[e.FullName] = i
			out = append(out, EmployeeBillable{FullName: e.FullName})
		}
		if e.Billable {
			out[i].Billable = out[i].Billable.Add(e.Hours)
		} else {
			out[i].NonBillable = out[i].NonBillable.Add(e.Hours)
		}
	}

	for i := range out {
		out[i].Percent = percent(out[i].Billable, out[i].Billable.Add(out[i].NonBillable))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Percent.GreaterThan(out[j].Percent)
	})
	return out
}

// TopClientsByHours returns up to n clients with the most hours, most first.
// Admin time is left out.
func TopClientsByHours(entries []model.TimeEntry, f Filter, n int) []ClientHours {
	var kept []model.TimeEntry
	for _, e := range f.Apply(entries) {
		if !strings.Contains(e.Client, model.ClientAdmin) {
			kept = append(kept, e)
		}
	}

	clients := hoursByClient(kept)
	sort.SliceStable(clients, func(i, j int) bool {
		return clients[i].Hours.GreaterThan(clients[j].Hours)
	})
	return top(clients, n)
}

// TopClientsByRevenue returns up to n clients with the highest services revenue.
func TopClientsByRevenue(joined []model.JoinedEntry, n int) []ClientAmount {
	index := make(map[string]int)
	var out []ClientAmount
	for _, j := range joined {
		if j.Item != ItemRevenue {
			continue
		}
		i, ok := index[j.Client]
		if !ok {
			index[j.Client] = len(out)
			out = append(out, ClientAmount{Client: j.Client, Revenue: j.Value})
			continue
		}
		if j.Value.GreaterThan(out[i].Revenue) {
			out[i].Revenue = j.Value
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Revenue.GreaterThan(out[j].Revenue)
	})
	return top(out, n)
}

// ClientRevenue returns the services revenue of client for the joined period.
func ClientRevenue(joined []model.JoinedEntry, client string) (decimal.Decimal, bool) {
	var (
		revenue decimal.Decimal
		found   bool
	)
	for _, j := range joined {
		if j.Client != client || j.Item != ItemRevenue {
			continue
		}
		if !found || j.Value.GreaterThan(revenue) {
			revenue = j.Value
		}
		found = true
	}
	return revenue, found
}

// EmployeeBreakdown totals the filtered hours by client.
func EmployeeBreakdown(entries []model.TimeEntry, f Filter) EmployeeDetail {
	selected := f.Apply(entries)

	detail := EmployeeDetail{Clients: hoursByClient(selected)}
	sort.Slice(detail.Clients, func(i, j int) bool {
		return detail.Clients[i].Client < detail.Clients[j].Client
	})

	billable := decimal.Zero
	for _, e := range selected {
		detail.TotalHours = detail.TotalHours.Add(e.Hours)
		if e.Billable {
			billable = billable.Add(e.Hours)
		}
	}
	detail.BillablePercent = percent(billable, detail.TotalHours)
	return detail
}

// ClientBreakdown totals the filtered hours by employee.
func ClientBreakdown(entries []model.TimeEntry, f Filter) ClientDetail {
	index := make(map[string]int)
	var detail ClientDetail
	for _, e := range f.Apply(entries) {
		i, ok := index[e.FullName]
		if !ok {
			i = len(detail.Employees)
			index[e.FullName] = i
			detail.Employees = append(detail.Employees, EmployeeHours{FullName: e.FullName})
		}
		detail.Employees[i].Hours = detail.Employees[i].Hours.Add(e.Hours)
		detail.TotalHours = detail.TotalHours.Add(e.Hours)
	}

	sort.Slice(detail.Employees, func(i, j int) bool {
		return detail.Employees[i].FullName < detail.Employees[j].FullName
	})
	return detail
}

func hoursByClient(entries []model.TimeEntry) []ClientHours {
	index := make(map[string]int)
	var out []ClientHours
	for _, e := range entries {
		i, ok := index[e.Client]
		if !ok {
			i = len(out)
			index[e.Client] = i
			out = append(out, ClientHours{Client: e.Client})
		}
		out[i].Hours = out[i].Hours.Add(e.Hours)
	}
	return out
}

func top[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
