package export

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/atlas-bms/atlas-bms/internal/expenses"
	"github.com/atlas-bms/atlas-bms/internal/hr"
	"github.com/atlas-bms/atlas-bms/internal/invoices"
	"github.com/atlas-bms/atlas-bms/internal/manufacturing"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// Format selects the output file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ContentType returns the MIME type for HTTP responses.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Sources supplies the record sets behind each export. Nil entries disable
// that export.
type Sources struct {
	Expenses  func(ctx context.Context) ([]expenses.Expense, error)
	Invoices  func(ctx context.Context) ([]invoices.Invoice, error)
	Orders    func(ctx context.Context) ([]manufacturing.ProductionOrder, error)
	Employees func(ctx context.Context) ([]hr.Employee, error)
	Leaves    func(ctx context.Context) ([]hr.LeaveRequest, error)
}

// File is a rendered export ready to send.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Service builds export files. Concurrent requests for the same entity and
// format share a single build.
type Service struct {
	sources Sources
	group   singleflight.Group
}

// NewService builds a Service.
func NewService(sources Sources) *Service {
	return &Service{sources: sources}
}

// Build renders the named entity in the requested format.
func (s *Service) Build(ctx context.Context, entity string, format Format) (*File, error) {
	switch format {
	case FormatXLSX, FormatCSV:
	case "":
		format = FormatXLSX
	default:
		return nil, shared.Invalid("format", "must be xlsx or csv")
	}

	key := fmt.Sprintf("%s.%s", entity, format)
	result, err, _ := s.group.Do(key, func() (any, error) {
		table, err := s.table(ctx, entity)
		if err != nil {
			return nil, err
		}
		var data []byte
		if format == FormatCSV {
			data, err = CSV(*table)
		} else {
			data, err = XLSX(*table)
		}
		if err != nil {
			return nil, err
		}
		return &File{
			Name:        key,
			ContentType: format.ContentType(),
			Data:        data,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*File), nil
}

func (s *Service) table(ctx context.Context, entity string) (*Table, error) {
	switch entity {
	case "expenses":
		if s.sources.Expenses == nil {
			break
		}
		records, err := s.sources.Expenses(ctx)
		if err != nil {
			return nil, err
		}
		t := ExpensesTable(records)
		return &t, nil
	case "invoices":
		if s.sources.Invoices == nil {
			break
		}
		records, err := s.sources.Invoices(ctx)
		if err != nil {
			return nil, err
		}
		t := InvoicesTable(records)
		return &t, nil
	case "orders":
		if s.sources.Orders == nil {
			break
		}
		records, err := s.sources.Orders(ctx)
		if err != nil {
			return nil, err
		}
		t := OrdersTable(records)
		return &t, nil
	case "employees":
		if s.sources.Employees == nil {
			break
		}
		records, err := s.sources.Employees(ctx)
		if err != nil {
			return nil, err
		}
		t := EmployeesTable(records)
		return &t, nil
	case "leaves":
		if s.sources.Leaves == nil {
			break
		}
		records, err := s.sources.Leaves(ctx)
		if err != nil {
			return nil, err
		}
		t := LeavesTable(records)
		return &t, nil
	}
	return nil, shared.Invalid("entity", "unknown export entity")
}
