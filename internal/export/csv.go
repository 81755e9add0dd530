package export

import (
	"bytes"
	"encoding/csv"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// CSV renders a table as comma-separated values with a header row.
func CSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.Headers); err != nil {
		return nil, shared.Remote("write csv header", err)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return nil, shared.Remote("write csv row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, shared.Remote("flush csv", err)
	}
	return buf.Bytes(), nil
}
