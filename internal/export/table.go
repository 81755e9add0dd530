// Package export renders normalized records into spreadsheet files. It is a
// pure formatting layer over already-computed aggregates.
package export

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/atlas-bms/atlas-bms/internal/expenses"
	"github.com/atlas-bms/atlas-bms/internal/hr"
	"github.com/atlas-bms/atlas-bms/internal/invoices"
	"github.com/atlas-bms/atlas-bms/internal/manufacturing"
)

const dateLayout = "2006-01-02"

// money renders amounts with grouping separators and two decimals.
var money = message.NewPrinter(language.English)

func amount(v float64) string {
	return money.Sprintf("%.2f", v)
}

// Table is a rendered export: fixed column order and widths, one row per
// record.
type Table struct {
	Name    string
	Headers []string
	Widths  []float64
	Rows    [][]string
}

// ExpensesTable lays out expenses for export.
func ExpensesTable(records []expenses.Expense) Table {
	t := Table{
		Name:    "Expenses",
		Headers: []string{"Number", "Category", "Vendor", "Description", "Incurred", "Total", "Paid", "Remaining", "Status"},
		Widths:  []float64{14, 16, 18, 32, 12, 12, 12, 12, 10},
	}
	for _, e := range records {
		t.Rows = append(t.Rows, []string{
			e.Number, e.Category, e.Vendor, e.Description,
			e.IncurredAt.Format(dateLayout),
			amount(e.Total), amount(e.Paid), amount(e.Remaining()),
			string(e.Status()),
		})
	}
	return t
}

// InvoicesTable lays out invoices for export.
func InvoicesTable(records []invoices.Invoice) Table {
	t := Table{
		Name:    "Invoices",
		Headers: []string{"Number", "Customer", "Issued", "Due", "Subtotal", "VAT", "Total", "Paid", "Remaining", "Status"},
		Widths:  []float64{14, 24, 12, 12, 12, 12, 12, 12, 12, 10},
	}
	for _, inv := range records {
		t.Rows = append(t.Rows, []string{
			inv.Number, inv.CustomerName,
			inv.IssueDate.Format(dateLayout), inv.DueAt.Format(dateLayout),
			amount(inv.Subtotal), amount(inv.TaxAmount), amount(inv.Total),
			amount(inv.Paid), amount(inv.Remaining()),
			string(inv.Status),
		})
	}
	return t
}

// OrdersTable lays out production orders for export.
func OrdersTable(records []manufacturing.ProductionOrder) Table {
	t := Table{
		Name:    "Production Orders",
		Headers: []string{"Number", "Recipe", "Planned", "Produced", "Remaining", "Unit Cost", "Total Cost", "Status"},
		Widths:  []float64{14, 24, 12, 12, 12, 12, 12, 12},
	}
	for _, o := range records {
		t.Rows = append(t.Rows, []string{
			o.Number, o.RecipeName,
			amount(o.Planned), amount(o.Produced), amount(o.Remaining()),
			amount(o.UnitCost), amount(o.TotalCost()),
			string(o.Status()),
		})
	}
	return t
}

// EmployeesTable lays out employee profiles for export. The PIN hash never
// appears in exports.
func EmployeesTable(records []hr.Employee) Table {
	t := Table{
		Name:    "Employees",
		Headers: []string{"Name", "Email", "Phone", "Position", "Salary", "Hired", "Active"},
		Widths:  []float64{24, 26, 16, 18, 12, 12, 8},
	}
	for _, e := range records {
		active := "no"
		if e.Active {
			active = "yes"
		}
		t.Rows = append(t.Rows, []string{
			e.Name, e.Email, e.Phone, e.Position,
			amount(e.Salary), e.HiredAt.Format(dateLayout), active,
		})
	}
	return t
}

// LeavesTable lays out leave requests for export.
func LeavesTable(records []hr.LeaveRequest) Table {
	t := Table{
		Name:    "Leave Requests",
		Headers: []string{"Number", "Employee ID", "Type", "Start", "End", "Days", "State"},
		Widths:  []float64{14, 12, 12, 12, 12, 8, 12},
	}
	for _, l := range records {
		t.Rows = append(t.Rows, []string{
			l.Number, money.Sprintf("%d", l.EmployeeID), l.Type,
			l.StartDate.Format(dateLayout), l.EndDate.Format(dateLayout),
			money.Sprintf("%d", l.Days), string(l.State),
		})
	}
	return t
}
