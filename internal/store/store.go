// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"docsafe/internal/document"
	"docsafe/internal/fingerprint"
	"docsafe/internal/safety"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

const schema = `
CREATE TABLE IF NOT EXISTS fingerprints (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	document_path    TEXT NOT NULL,
	full_text_hash   TEXT NOT NULL,
	structure_hash   TEXT NOT NULL,
	word_count       INTEGER NOT NULL,
	character_count  INTEGER NOT NULL,
	paragraph_hashes TEXT NOT NULL DEFAULT '[]',
	numerical_values TEXT NOT NULL DEFAULT '[]',
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS fingerprints_path ON fingerprints (document_path);

CREATE TABLE IF NOT EXISTS zones (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	document_path  TEXT NOT NULL,
	zone_type      TEXT NOT NULL,
	start_index    INTEGER NOT NULL,
	end_index      INTEGER NOT NULL,
	content_hash   TEXT NOT NULL,
	safety         TEXT NOT NULL,
	text_sample    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS zones_path ON zones (document_path);

CREATE TABLE IF NOT EXISTS audit_entries (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp     TEXT NOT NULL,
	operation     TEXT NOT NULL,
	document_path TEXT NOT NULL DEFAULT '',
	operation_id  TEXT NOT NULL DEFAULT '',
	success       INTEGER NOT NULL,
	details       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_path ON audit_entries (document_path);

CREATE TABLE IF NOT EXISTS backups (
	backup_id     TEXT PRIMARY KEY,
	original_path TEXT NOT NULL,
	backup_path   TEXT NOT NULL,
	operation_id  TEXT NOT NULL DEFAULT '',
	content_hash  TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);
`

// SQLiteStore persists fingerprints, zones, the audit trail and backup
// records in a single sqlite file
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens or creates the database at path. ":memory:" works for tests.
func Open(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

type fingerprintRow struct {
	ID              int64  `db:"id"`
	DocumentPath    string `db:"document_path"`
	FullTextHash    string `db:"full_text_hash"`
	StructureHash   string `db:"structure_hash"`
	WordCount       int    `db:"word_count"`
	CharacterCount  int    `db:"character_count"`
	ParagraphHashes string `db:"paragraph_hashes"`
	NumericalValues string `db:"numerical_values"`
	CreatedAt       string `db:"created_at"`
}

// SaveFingerprint records a fingerprint for a document path and returns its id
func (s *SQLiteStore) SaveFingerprint(ctx context.Context, path string, fp *fingerprint.Fingerprint) (int64, error) {
	hashes, err := json.Marshal(fp.ParagraphHashes)
	if err != nil {
		return 0, fmt.Errorf("encode paragraph hashes: %w", err)
	}
	values, err := json.Marshal(fp.NumericalValues)
	if err != nil {
		return 0, fmt.Errorf("encode numerical values: %w", err)
	}
	created := fp.Timestamp
	if created.IsZero() {
		created = s.now()
	}

	res, err := s.db.NamedExecContext(ctx, `INSERT INTO fingerprints
		(document_path, full_text_hash, structure_hash, word_count, character_count, paragraph_hashes, numerical_values, created_at)
		VALUES (:document_path, :full_text_hash, :structure_hash, :word_count, :character_count, :paragraph_hashes, :numerical_values, :created_at)`,
		fingerprintRow{
			DocumentPath:    path,
			FullTextHash:    fp.FullTextHash,
			StructureHash:   fp.StructureHash,
			WordCount:       fp.WordCount,
			CharacterCount:  fp.CharacterCount,
			ParagraphHashes: string(hashes),
			NumericalValues: string(values),
			CreatedAt:       formatTime(created),
		})
	if err != nil {
		return 0, fmt.Errorf("insert fingerprint: %w", err)
	}
	return res.LastInsertId()
}

// LatestFingerprint returns the most recent fingerprint stored for path
func (s *SQLiteStore) LatestFingerprint(ctx context.Context, path string) (*fingerprint.Fingerprint, error) {
	var row fingerprintRow
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM fingerprints WHERE document_path = ? ORDER BY id DESC LIMIT 1`, path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fingerprint for %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query fingerprint: %w", err)
	}

	fp := &fingerprint.Fingerprint{
		FullTextHash:   row.FullTextHash,
		StructureHash:  row.StructureHash,
		WordCount:      row.WordCount,
		CharacterCount: row.CharacterCount,
		Timestamp:      parseTime(row.CreatedAt),
	}
	if err := json.Unmarshal([]byte(row.ParagraphHashes), &fp.ParagraphHashes); err != nil {
		return nil, fmt.Errorf("decode paragraph hashes: %w", err)
	}
	if err := json.Unmarshal([]byte(row.NumericalValues), &fp.NumericalValues); err != nil {
		return nil, fmt.Errorf("decode numerical values: %w", err)
	}
	return fp, nil
}

type zoneRow struct {
	ID           int64  `db:"id"`
	DocumentPath string `db:"document_path"`
	ZoneType     string `db:"zone_type"`
	Start        int    `db:"start_index"`
	End          int    `db:"end_index"`
	ContentHash  string `db:"content_hash"`
	Safety       string `db:"safety"`
	TextSample   string `db:"text_sample"`
}

// SaveZones replaces the stored zones of a document in one transaction
func (s *SQLiteStore) SaveZones(ctx context.Context, path string, zones []safety.ProhibitedZone) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM zones WHERE document_path = ?`, path); err != nil {
		return fmt.Errorf("clear zones: %w", err)
	}
	for _, z := range zones {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO zones
			(document_path, zone_type, start_index, end_index, content_hash, safety, text_sample)
			VALUES (:document_path, :zone_type, :start_index, :end_index, :content_hash, :safety, :text_sample)`,
			zoneRow{
				DocumentPath: path,
				ZoneType:     z.ZoneType,
				Start:        z.Start,
				End:          z.End,
				ContentHash:  z.ContentHash,
				Safety:       z.Safety.String(),
				TextSample:   z.TextSample,
			})
		if err != nil {
			return fmt.Errorf("insert zone: %w", err)
		}
	}
	return tx.Commit()
}

// Zones returns the stored zones of a document in paragraph order
func (s *SQLiteStore) Zones(ctx context.Context, path string) ([]safety.ProhibitedZone, error) {
	var rows []zoneRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM zones WHERE document_path = ? ORDER BY start_index, id`, path); err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}
	out := make([]safety.ProhibitedZone, 0, len(rows))
	for _, r := range rows {
		level, err := document.ParseSafetyLevel(r.Safety)
		if err != nil {
			return nil, err
		}
		out = append(out, safety.ProhibitedZone{
			ZoneType:    r.ZoneType,
			Start:       r.Start,
			End:         r.End,
			ContentHash: r.ContentHash,
			Safety:      level,
			TextSample:  r.TextSample,
		})
	}
	return out, nil
}
