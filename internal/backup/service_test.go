package backup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSnapshotWritesAllSources(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir, discardLogger(), []Source{
		{Name: "expenses", Fetch: func(context.Context) (any, error) {
			return []map[string]any{{"number": "EXP-2025-001", "total": 100}}, nil
		}},
		{Name: "employees", Fetch: func(context.Context) (any, error) {
			return []map[string]any{{"name": "Sami"}}, nil
		}},
	})

	snapshot, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"expenses", "employees"}, snapshot.Entities)
	require.Positive(t, snapshot.Size)

	raw, err := os.ReadFile(filepath.Join(dir, snapshot.File))
	require.NoError(t, err)

	var doc struct {
		ID   string                 `json:"id"`
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, snapshot.ID, doc.ID)
	require.Contains(t, doc.Data, "expenses")
	require.Contains(t, doc.Data, "employees")
}

func TestSnapshotFailsWhenSourceFails(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir, discardLogger(), []Source{
		{Name: "expenses", Fetch: func(context.Context) (any, error) {
			return nil, errors.New("db down")
		}},
	})

	_, err := svc.Snapshot(context.Background())
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestListAndDelete(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir, discardLogger(), []Source{
		{Name: "expenses", Fetch: func(context.Context) (any, error) { return nil, nil }},
	})

	first, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	snapshots, err := svc.List()
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	require.Equal(t, first.File, snapshots[0].File)

	require.NoError(t, svc.Delete(first.File))
	snapshots, err = svc.List()
	require.NoError(t, err)
	require.Empty(t, snapshots)

	require.ErrorIs(t, svc.Delete(first.File), shared.ErrNotFound)
}

func TestOpenRejectsPathTraversal(t *testing.T) {
	svc := NewService(t.TempDir(), discardLogger(), nil)

	_, err := svc.Open("../etc/passwd")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Open("notes.txt")
	require.ErrorIs(t, err, shared.ErrValidation)
}
