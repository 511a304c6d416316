// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package yaml

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"docsafe/internal/core"
	"docsafe/internal/formatters"
	"docsafe/internal/formatters/shared"
)

// Formatter implements YAML output formatting
type Formatter struct{}

// NewFormatter creates a new YAML formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "yaml"
}

func (f *Formatter) Description() string {
	return "YAML report with the same structure as the JSON one"
}

func (f *Formatter) FileExtension() string {
	return ".yaml"
}

func (f *Formatter) Format(result *core.ProcessResult, options formatters.FormatterOptions) (string, error) {
	// Same structure as the JSON formatter
	data, err := yaml.Marshal(shared.ConvertResult(result, options))
	if err != nil {
		return "", fmt.Errorf("error formatting YAML: %w", err)
	}
	return string(data), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
