// Package jobs wires background work (scheduled backups) through Asynq.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/atlas-bms/atlas-bms/internal/backup"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeBackup is the task type for writing a backup snapshot.
	TaskTypeBackup = "backup:snapshot"
)

// BackupPayload parametrizes a backup task.
type BackupPayload struct {
	Reason string `json:"reason"`
}

// NewBackupTask constructs an Asynq task.
func NewBackupTask(payload BackupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeBackup, data), nil
}

// BackupHandler processes TaskTypeBackup tasks against the backup service.
func BackupHandler(svc *backup.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload BackupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		snapshot, err := svc.Snapshot(ctx)
		if err != nil {
			logger.Error("scheduled backup failed", slog.Any("error", err))
			return err
		}
		logger.Info("scheduled backup done",
			slog.String("file", snapshot.File),
			slog.String("reason", payload.Reason),
		)
		return nil
	}
}
