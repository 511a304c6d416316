// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package backup

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsafe/internal/fingerprint"
	"docsafe/internal/store"
)

func setup(t *testing.T) (*Manager, *store.SQLiteStore, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "docsafe.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m, err := NewManager(filepath.Join(dir, "backups"), db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	doc := filepath.Join(dir, "manual.docx")
	require.NoError(t, os.WriteFile(doc, []byte("original"), 0o600))
	return m, db, doc
}

func TestCreateAndRollback(t *testing.T) {
	ctx := context.Background()
	m, db, doc := setup(t)

	id, err := m.Create(ctx, doc, &fingerprint.Fingerprint{FullTextHash: "abc"}, "op-1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, os.WriteFile(doc, []byte("modified"), 0o600))
	assert.True(t, m.Rollback(ctx, id, ""))

	data, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	other := filepath.Join(t.TempDir(), "restored.docx")
	assert.True(t, m.Rollback(ctx, id, other))
	data, err = os.ReadFile(other)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	// the first rollback backed up the modified file before overwriting it
	backups, err := m.Backups(ctx, doc)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	byOp := map[string]store.BackupRecord{}
	for _, b := range backups {
		byOp[b.OperationID] = b
	}
	assert.Equal(t, "abc", byOp["op-1"].ContentHash)
	assert.Contains(t, byOp, PreRollbackPrefix+id)

	history, err := db.History(ctx, doc)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, OpBackupCreated, history[0].Operation)
	assert.Equal(t, OpBackupCreated, history[1].Operation)
	assert.Equal(t, OpRollbackExecuted, history[2].Operation)
}

func TestRollback_PreRollbackCopyIsABackup(t *testing.T) {
	ctx := context.Background()
	m, db, doc := setup(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return start }

	id, err := m.Create(ctx, doc, nil, "op")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(doc, []byte("modified"), 0o600))
	require.True(t, m.Rollback(ctx, id, ""))

	backups, err := db.Backups(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	var pre store.BackupRecord
	for _, b := range backups {
		if b.OperationID == PreRollbackPrefix+id {
			pre = b
		}
	}
	require.NotEmpty(t, pre.ID)
	assert.Equal(t, doc, pre.OriginalPath)
	data, err := os.ReadFile(pre.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "modified", string(data))

	// undoing the rollback brings the modified text back
	require.True(t, m.Rollback(ctx, pre.ID, ""))
	data, err = os.ReadFile(doc)
	require.NoError(t, err)
	assert.Equal(t, "modified", string(data))

	// every copy in the backup dir is in the ledger, so cleanup empties it
	m.now = func() time.Time { return start.AddDate(0, 0, 31) }
	removed, err := m.Cleanup(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	entries, err := os.ReadDir(m.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreate_MissingSource(t *testing.T) {
	m, _, doc := setup(t)
	_, err := m.Create(context.Background(), doc+".missing", nil, "op")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRollback_Failures(t *testing.T) {
	ctx := context.Background()
	m, db, doc := setup(t)

	assert.False(t, m.Rollback(ctx, "no-such-backup", doc))

	id, err := m.Create(ctx, doc, nil, "op")
	require.NoError(t, err)
	rec, err := db.Backup(ctx, id)
	require.NoError(t, err)
	require.NoError(t, os.Remove(rec.BackupPath))
	assert.False(t, m.Rollback(ctx, id, doc))

	history, err := db.History(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, OpRollbackFailed, history[len(history)-1].Operation)
	assert.False(t, history[len(history)-1].Success)
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	m, _, doc := setup(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	m.now = func() time.Time { return start }
	oldID, err := m.Create(ctx, doc, nil, "old")
	require.NoError(t, err)

	m.now = func() time.Time { return start.AddDate(0, 0, 34) }
	_, err = m.Create(ctx, doc, nil, "new")
	require.NoError(t, err)

	m.now = func() time.Time { return start.AddDate(0, 0, 35) }
	removed, err := m.Cleanup(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	backups, err := m.Backups(ctx, doc)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, "new", backups[0].OperationID)
	assert.False(t, m.Rollback(ctx, oldID, doc))
}
