// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsafe/internal/document"
	"docsafe/internal/fingerprint"
	"docsafe/internal/safety"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "docsafe.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFingerprints(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.LatestFingerprint(ctx, "manual.docx")
	require.ErrorIs(t, err, ErrNotFound)

	doc := document.New("manual.docx", "Total cost is $15,000.00 with 15% discount.", "Second paragraph.")
	fp, err := fingerprint.NewBuilder(nil).Build(doc)
	require.NoError(t, err)

	_, err = s.SaveFingerprint(ctx, "manual.docx", fp)
	require.NoError(t, err)

	newer := *fp
	newer.WordCount = 99
	id, err := s.SaveFingerprint(ctx, "manual.docx", &newer)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	got, err := s.LatestFingerprint(ctx, "manual.docx")
	require.NoError(t, err)
	assert.Equal(t, 99, got.WordCount)
	assert.Equal(t, fp.NumericalValues, got.NumericalValues)
	assert.Equal(t, fp.ParagraphHashes, got.ParagraphHashes)
	assert.True(t, got.Timestamp.Equal(fp.Timestamp))
}

func TestZones_ReplacePerDocument(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	zones := []safety.ProhibitedZone{
		{ZoneType: "procedural_language", Start: 3, End: 3, ContentHash: "h3", Safety: document.SafetyCritical, TextSample: "Step 1"},
		{ZoneType: "numerical_values", Start: 1, End: 1, ContentHash: "h1", Safety: document.SafetyCritical, TextSample: "$5"},
	}
	require.NoError(t, s.SaveZones(ctx, "a.docx", zones))
	require.NoError(t, s.SaveZones(ctx, "b.docx", zones[:1]))
	require.NoError(t, s.SaveZones(ctx, "a.docx", zones))

	got, err := s.Zones(ctx, "a.docx")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Start)
	assert.Equal(t, document.SafetyCritical, got[0].Safety)
	assert.Equal(t, "procedural_language", got[1].ZoneType)

	other, err := s.Zones(ctx, "b.docx")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestAuditAndBackups(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.AppendAudit(ctx, AuditEntry{Operation: "backup", DocumentPath: "a.docx", OperationID: "op-1", Success: true}))
	require.NoError(t, s.AppendAudit(ctx, AuditEntry{Operation: "rollback", DocumentPath: "a.docx", Success: false, Details: "missing file"}))
	require.NoError(t, s.AppendAudit(ctx, AuditEntry{Operation: "backup", DocumentPath: "b.docx", Success: true}))

	history, err := s.History(ctx, "a.docx")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Success)
	assert.False(t, history[1].Success)
	assert.Equal(t, "missing file", history[1].Details)
	assert.True(t, history[0].Timestamp.Equal(fixed))

	all, err := s.History(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	rec := BackupRecord{ID: "b1", OriginalPath: "a.docx", BackupPath: "/backups/b1.docx", OperationID: "op-1", CreatedAt: fixed}
	require.NoError(t, s.SaveBackup(ctx, rec))
	assert.Error(t, s.SaveBackup(ctx, rec))

	got, err := s.Backup(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, rec.BackupPath, got.BackupPath)
	assert.True(t, got.CreatedAt.Equal(fixed))

	list, err := s.Backups(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteBackup(ctx, "b1"))
	_, err = s.Backup(ctx, "b1")
	assert.ErrorIs(t, err, ErrNotFound)
}
