// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docsafe/internal/classifiers"
	"docsafe/internal/document"
)

// Snapshot is the persisted state of an unattended run. NextIndex counts
// positions in the filtered paragraph sequence, not source indexes.
type Snapshot struct {
	Document     string                         `json:"document"`
	DocumentHash string                         `json:"document_hash"`
	NextIndex    int                            `json:"next_index"`
	Stats        classifiers.StatsSnapshot      `json:"stats"`
	Filtered     int                            `json:"filtered"`
	Excluded     []int                          `json:"excluded,omitempty"`
	Results      []document.ClassifiedParagraph `json:"results"`
	StartedAt    time.Time                      `json:"started_at"`
	UpdatedAt    time.Time                      `json:"updated_at"`
}

// Matches reports whether the snapshot was taken for the same content
func (s *Snapshot) Matches(documentHash string) bool {
	return s != nil && s.DocumentHash == documentHash
}

// Store keeps a single snapshot file
type Store struct {
	path string
	now  func() time.Time
}

// NewStore creates a store writing to path
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the snapshot file location
func (s *Store) Path() string { return s.path }

// Load returns the saved snapshot, or nil when there is none
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode progress %s: %w", s.path, err)
	}
	return &snap, nil
}

// Save writes the snapshot atomically and stamps UpdatedAt
func (s *Store) Save(snap *Snapshot) error {
	snap.UpdatedAt = s.now()
	if snap.StartedAt.IsZero() {
		snap.StartedAt = snap.UpdatedAt
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create progress dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename progress: %w", err)
	}
	return nil
}

// Clear removes the snapshot. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove progress: %w", err)
	}
	return nil
}
