package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/atlas-bms/atlas-bms/internal/expenses"
	"github.com/atlas-bms/atlas-bms/internal/shared"
)

func sampleExpenses() []expenses.Expense {
	return []expenses.Expense{
		{
			Number:      "EXP-2025-001",
			Category:    "utilities",
			Vendor:      "City Power",
			Description: "electricity",
			IncurredAt:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			Total:       1500,
			Paid:        500,
		},
	}
}

func TestExpensesTableLayout(t *testing.T) {
	table := ExpensesTable(sampleExpenses())

	require.Equal(t, "Expenses", table.Name)
	require.Len(t, table.Headers, 9)
	require.Len(t, table.Rows, 1)

	row := table.Rows[0]
	require.Equal(t, "EXP-2025-001", row[0])
	require.Equal(t, "1,500.00", row[5])
	require.Equal(t, "500.00", row[6])
	require.Equal(t, "1,000.00", row[7])
	require.Equal(t, "PARTIAL", row[8])
}

func TestCSVOutput(t *testing.T) {
	data, err := CSV(ExpensesTable(sampleExpenses()))
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "Number", records[0][0])
	require.Equal(t, "EXP-2025-001", records[1][0])
}

func TestXLSXOutput(t *testing.T) {
	data, err := XLSX(ExpensesTable(sampleExpenses()))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, "Expenses", f.GetSheetName(0))

	got, err := f.GetCellValue("Expenses", "A2")
	require.NoError(t, err)
	require.Equal(t, "EXP-2025-001", got)

	header, err := f.GetCellValue("Expenses", "I1")
	require.NoError(t, err)
	require.Equal(t, "Status", header)
}

func TestBuildValidatesInput(t *testing.T) {
	svc := NewService(Sources{})

	_, err := svc.Build(context.Background(), "unknown", FormatCSV)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Build(context.Background(), "expenses", Format("pdf"))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestBuildDeduplicatesConcurrentRequests(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	svc := NewService(Sources{
		Expenses: func(context.Context) ([]expenses.Expense, error) {
			calls.Add(1)
			<-release
			return sampleExpenses(), nil
		},
	})

	const workers = 5
	var wg sync.WaitGroup
	results := make([]*File, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			file, err := svc.Build(context.Background(), "expenses", FormatCSV)
			require.NoError(t, err)
			results[i] = file
		}(i)
	}

	// Give the goroutines time to pile onto the same key before releasing.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, file := range results {
		require.Equal(t, "expenses.csv", file.Name)
		require.NotEmpty(t, file.Data)
	}
}
