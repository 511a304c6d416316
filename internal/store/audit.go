// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AuditEntry is one line of the modification trail
type AuditEntry struct {
	ID           int64     `json:"id" yaml:"id"`
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
	Operation    string    `json:"operation" yaml:"operation"`
	DocumentPath string    `json:"document_path" yaml:"document_path"`
	OperationID  string    `json:"operation_id,omitempty" yaml:"operation_id,omitempty"`
	Success      bool      `json:"success" yaml:"success"`
	Details      string    `json:"details,omitempty" yaml:"details,omitempty"`
}

type auditRow struct {
	ID           int64  `db:"id"`
	Timestamp    string `db:"timestamp"`
	Operation    string `db:"operation"`
	DocumentPath string `db:"document_path"`
	OperationID  string `db:"operation_id"`
	Success      bool   `db:"success"`
	Details      string `db:"details"`
}

// AppendAudit adds an entry. A zero timestamp is set to now.
func (s *SQLiteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO audit_entries
		(timestamp, operation, document_path, operation_id, success, details)
		VALUES (:timestamp, :operation, :document_path, :operation_id, :success, :details)`,
		auditRow{
			Timestamp:    formatTime(e.Timestamp),
			Operation:    e.Operation,
			DocumentPath: e.DocumentPath,
			OperationID:  e.OperationID,
			Success:      e.Success,
			Details:      e.Details,
		})
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History returns the audit entries for a document, oldest first. An empty
// path returns the whole trail.
func (s *SQLiteStore) History(ctx context.Context, path string) ([]AuditEntry, error) {
	var rows []auditRow
	query := `SELECT * FROM audit_entries ORDER BY id`
	args := []any{}
	if path != "" {
		query = `SELECT * FROM audit_entries WHERE document_path = ? ORDER BY id`
		args = append(args, path)
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	out := make([]AuditEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, AuditEntry{
			ID:           r.ID,
			Timestamp:    parseTime(r.Timestamp),
			Operation:    r.Operation,
			DocumentPath: r.DocumentPath,
			OperationID:  r.OperationID,
			Success:      r.Success,
			Details:      r.Details,
		})
	}
	return out, nil
}

// BackupRecord describes one stored backup copy
type BackupRecord struct {
	ID           string    `json:"backup_id" yaml:"backup_id"`
	OriginalPath string    `json:"original_path" yaml:"original_path"`
	BackupPath   string    `json:"backup_path" yaml:"backup_path"`
	OperationID  string    `json:"operation_id" yaml:"operation_id"`
	ContentHash  string    `json:"content_hash" yaml:"content_hash"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

type backupRow struct {
	ID           string `db:"backup_id"`
	OriginalPath string `db:"original_path"`
	BackupPath   string `db:"backup_path"`
	OperationID  string `db:"operation_id"`
	ContentHash  string `db:"content_hash"`
	CreatedAt    string `db:"created_at"`
}

func (r backupRow) record() BackupRecord {
	return BackupRecord{
		ID:           r.ID,
		OriginalPath: r.OriginalPath,
		BackupPath:   r.BackupPath,
		OperationID:  r.OperationID,
		ContentHash:  r.ContentHash,
		CreatedAt:    parseTime(r.CreatedAt),
	}
}

// SaveBackup inserts a backup record
func (s *SQLiteStore) SaveBackup(ctx context.Context, b BackupRecord) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO backups
		(backup_id, original_path, backup_path, operation_id, content_hash, created_at)
		VALUES (:backup_id, :original_path, :backup_path, :operation_id, :content_hash, :created_at)`,
		backupRow{
			ID:           b.ID,
			OriginalPath: b.OriginalPath,
			BackupPath:   b.BackupPath,
			OperationID:  b.OperationID,
			ContentHash:  b.ContentHash,
			CreatedAt:    formatTime(b.CreatedAt),
		})
	if err != nil {
		return fmt.Errorf("insert backup %s: %w", b.ID, err)
	}
	return nil
}

// Backup looks a record up by id
func (s *SQLiteStore) Backup(ctx context.Context, id string) (BackupRecord, error) {
	var row backupRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM backups WHERE backup_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return BackupRecord{}, fmt.Errorf("backup %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return BackupRecord{}, fmt.Errorf("query backup: %w", err)
	}
	return row.record(), nil
}

// Backups lists every record, oldest first
func (s *SQLiteStore) Backups(ctx context.Context) ([]BackupRecord, error) {
	var rows []backupRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM backups ORDER BY created_at, backup_id`); err != nil {
		return nil, fmt.Errorf("query backups: %w", err)
	}
	out := make([]BackupRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// DeleteBackup removes a record
func (s *SQLiteStore) DeleteBackup(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM backups WHERE backup_id = ?`, id); err != nil {
		return fmt.Errorf("delete backup %s: %w", id, err)
	}
	return nil
}
