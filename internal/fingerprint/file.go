// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package fingerprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile stores a fingerprint as indented JSON, replacing the target
// atomically so a crash never leaves a truncated record.
func WriteFile(path string, fp *Fingerprint) error {
	data, err := json.MarshalIndent(fp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fingerprint: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create fingerprint dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write fingerprint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename fingerprint: %w", err)
	}
	return nil
}

// ReadFile loads a fingerprint written by WriteFile
func ReadFile(path string) (*Fingerprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fingerprint: %w", err)
	}
	var fp Fingerprint
	if err := json.Unmarshal(data, &fp); err != nil {
		return nil, fmt.Errorf("decode fingerprint %s: %w", path, err)
	}
	return &fp, nil
}
