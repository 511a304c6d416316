// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/otiai10/copy"

	"docsafe/internal/fingerprint"
	"docsafe/internal/store"
)

// Audit operation names
const (
	OpBackupCreated    = "backup_created"
	OpRollbackExecuted = "rollback_executed"
	OpRollbackFailed   = "rollback_failed"
	OpBackupsCleaned   = "backups_cleaned"
)

// PreRollbackPrefix starts the operation id of the backup a rollback takes
// of the file it is about to overwrite; the rest is the restored backup's id
const PreRollbackPrefix = "pre-rollback:"

// ErrBackupNotFound is returned for unknown backup ids
var ErrBackupNotFound = errors.New("backup not found")

// Ledger records backups and the audit trail. *store.SQLiteStore
// implements it.
type Ledger interface {
	SaveBackup(ctx context.Context, b store.BackupRecord) error
	Backup(ctx context.Context, id string) (store.BackupRecord, error)
	Backups(ctx context.Context) ([]store.BackupRecord, error)
	DeleteBackup(ctx context.Context, id string) error
	AppendAudit(ctx context.Context, e store.AuditEntry) error
}

// Manager copies documents aside before they are modified and restores them
type Manager struct {
	dir    string
	ledger Ledger
	logger *slog.Logger
	now    func() time.Time
}

// NewManager stores backup copies under dir
func NewManager(dir string, ledger Ledger, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{dir: dir, ledger: ledger, logger: logger, now: time.Now}, nil
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Create copies path into the backup directory and returns the backup id.
// A missing source is an error wrapping os.ErrNotExist.
func (m *Manager) Create(ctx context.Context, path string, fp *fingerprint.Fingerprint, operationID string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("document to back up: %w", err)
	}

	id := newID()
	dst := filepath.Join(m.dir, id+"_"+filepath.Base(path))
	if err := copy.Copy(path, dst, copy.Options{PreserveTimes: true, Sync: true}); err != nil {
		return "", fmt.Errorf("copy %s to backup: %w", path, err)
	}

	rec := store.BackupRecord{
		ID:           id,
		OriginalPath: path,
		BackupPath:   dst,
		OperationID:  operationID,
		CreatedAt:    m.now(),
	}
	if fp != nil {
		rec.ContentHash = fp.FullTextHash
	}
	if err := m.ledger.SaveBackup(ctx, rec); err != nil {
		os.Remove(dst)
		return "", err
	}

	m.audit(ctx, store.AuditEntry{
		Operation:    OpBackupCreated,
		DocumentPath: path,
		OperationID:  operationID,
		Success:      true,
		Details:      fmt.Sprintf("backup %s at %s", id, dst),
	})
	m.logger.Info("created backup", "backup_id", id, "document", path)
	return id, nil
}

// Rollback restores a backup over target, or over the original path when
// target is empty. The current target is itself backed up first. It
// reports false, with the reason in the audit trail, when the backup is
// unknown or its file is gone.
func (m *Manager) Rollback(ctx context.Context, id, target string) bool {
	if err := m.rollback(ctx, id, target); err != nil {
		m.logger.Error("rollback failed", "backup_id", id, "error", err)
		m.audit(ctx, store.AuditEntry{
			Operation:    OpRollbackFailed,
			DocumentPath: target,
			OperationID:  id,
			Success:      false,
			Details:      err.Error(),
		})
		return false
	}
	return true
}

func (m *Manager) rollback(ctx context.Context, id, target string) error {
	rec, err := m.ledger.Backup(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s: %w", id, ErrBackupNotFound)
	}
	if err != nil {
		return err
	}
	if target == "" {
		target = rec.OriginalPath
	}
	if _, err := os.Stat(rec.BackupPath); err != nil {
		return fmt.Errorf("backup file: %w", err)
	}

	// the current target becomes an ordinary backup, so the rollback can
	// itself be rolled back and the copy expires with the others
	if _, err := os.Stat(target); err == nil {
		pre, err := m.Create(ctx, target, nil, PreRollbackPrefix+id)
		if err != nil {
			return fmt.Errorf("save current %s: %w", target, err)
		}
		m.logger.Info("saved pre-rollback copy", "backup_id", pre, "document", target)
	}

	if err := copy.Copy(rec.BackupPath, target, copy.Options{Sync: true}); err != nil {
		return fmt.Errorf("restore %s: %w", target, err)
	}

	m.audit(ctx, store.AuditEntry{
		Operation:    OpRollbackExecuted,
		DocumentPath: target,
		OperationID:  rec.OperationID,
		Success:      true,
		Details:      fmt.Sprintf("restored from backup %s taken %s", id, rec.CreatedAt.Format(time.RFC3339)),
	})
	return nil
}

// Backups lists the backups of one document, oldest first
func (m *Manager) Backups(ctx context.Context, path string) ([]store.BackupRecord, error) {
	all, err := m.ledger.Backups(ctx)
	if err != nil {
		return nil, err
	}
	var out []store.BackupRecord
	for _, b := range all {
		if b.OriginalPath == path {
			out = append(out, b)
		}
	}
	return out, nil
}

// Cleanup deletes backups older than retention and returns how many went
func (m *Manager) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	all, err := m.ledger.Backups(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := m.now().Add(-retention)

	removed := 0
	for _, b := range all {
		if !b.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(b.BackupPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", b.BackupPath, err)
		}
		if err := m.ledger.DeleteBackup(ctx, b.ID); err != nil {
			return removed, err
		}
		removed++
	}

	m.audit(ctx, store.AuditEntry{
		Operation: OpBackupsCleaned,
		Success:   true,
		Details:   fmt.Sprintf("removed %d backups older than %s", removed, retention),
	})
	m.logger.Info("cleaned up old backups", "removed", removed)
	return removed, nil
}

// audit failures are logged, never returned: the file operation already happened
func (m *Manager) audit(ctx context.Context, e store.AuditEntry) {
	if err := m.ledger.AppendAudit(ctx, e); err != nil {
		m.logger.Warn("failed to write audit entry", "operation", e.Operation, "error", err)
	}
}
