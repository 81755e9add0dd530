// Package backup writes JSON snapshots of all business records to a
// configured directory, on demand or on a schedule.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

const filePrefix = "atlas-backup-"

// Source supplies one entity's records for a snapshot.
type Source struct {
	Name  string
	Fetch func(ctx context.Context) (any, error)
}

// Snapshot describes one written backup file.
type Snapshot struct {
	ID        string    `json:"id"`
	File      string    `json:"file"`
	Size      int64     `json:"size"`
	Entities  []string  `json:"entities"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service builds and manages snapshots.
type Service struct {
	dir     string
	logger  *slog.Logger
	sources []Source
}

// NewService builds a Service writing to dir.
func NewService(dir string, logger *slog.Logger, sources []Source) *Service {
	return &Service{dir: dir, logger: logger, sources: sources}
}

// Snapshot collects every source and writes one JSON document. A failing
// source fails the whole snapshot; partial backups are worse than none.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, shared.Remote("create backup dir", err)
	}

	payload := make(map[string]any, len(s.sources))
	entities := make([]string, 0, len(s.sources))
	for _, source := range s.sources {
		records, err := source.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("backup source %s: %w", source.Name, err)
		}
		payload[source.Name] = records
		entities = append(entities, source.Name)
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	doc := map[string]any{
		"id":        id,
		"createdAt": now.Format(time.RFC3339),
		"data":      payload,
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, shared.Remote("encode backup", err)
	}

	name := fmt.Sprintf("%s%s-%s.json", filePrefix, now.Format("20060102T150405"), id[:8])
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return nil, shared.Remote("write backup file", err)
	}

	s.logger.Info("backup written",
		slog.String("file", name),
		slog.Int("entities", len(entities)),
		slog.Int("bytes", len(raw)),
	)
	return &Snapshot{
		ID:        id,
		File:      name,
		Size:      int64(len(raw)),
		Entities:  entities,
		CreatedAt: now,
	}, nil
}

// List returns existing snapshot files, newest first.
func (s *Service) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, shared.Remote("read backup dir", err)
	}

	var snapshots []Snapshot
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			File:      name,
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}

// Open returns the contents of one snapshot file by name.
func (s *Service) Open(name string) ([]byte, error) {
	if filepath.Base(name) != name || !strings.HasPrefix(name, filePrefix) {
		return nil, shared.Invalid("file", "not a backup file name")
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: backup %s", shared.ErrNotFound, name)
	}
	if err != nil {
		return nil, shared.Remote("read backup file", err)
	}
	return raw, nil
}

// Delete removes one snapshot file by name.
func (s *Service) Delete(name string) error {
	if filepath.Base(name) != name || !strings.HasPrefix(name, filePrefix) {
		return shared.Invalid("file", "not a backup file name")
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: backup %s", shared.ErrNotFound, name)
	}
	if err != nil {
		return shared.Remote("delete backup file", err)
	}
	return nil
}
