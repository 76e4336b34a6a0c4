package migrate

import (
	"context"
	"fmt"
	"path/filepath"

	"codegraph/internal/storage"

	"github.com/google/uuid"
)

const DefaultBackupDir = "backups"

// Backup writes a zstd-compressed JSON-lines snapshot of the whole store into
// the backup directory and returns its path.
func (e *Engine) Backup(ctx context.Context) (string, error) {
	name := fmt.Sprintf("codegraph-%s-%s.jsonl.zst",
		e.now().UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
	path := filepath.Join(e.cfg.BackupDir, name)

	count, err := storage.WriteSnapshotFile(ctx, e.store, path)
	if err != nil {
		return "", fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	e.logger.Info("backup written", "path", path, "entities", count)
	return path, nil
}

// CreateBackup is the best-effort form of Backup: failure is logged and
// reported as false.
func (e *Engine) CreateBackup(ctx context.Context) bool {
	if _, err := e.Backup(ctx); err != nil {
		e.logger.Error("backup failed", "error", err)
		return false
	}
	return true
}
