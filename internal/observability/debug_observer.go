// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// DebugObserver prints nested pipeline steps for a human reader
type DebugObserver struct {
	*StandardObserver
	indent int
}

// NewDebugObserver creates a debug observer with step-by-step logging
func NewDebugObserver(writer io.Writer) *DebugObserver {
	d := &DebugObserver{StandardObserver: NewStandardObserver(ObservabilityDebug, writer)}
	d.StandardObserver.DebugObserver = d
	return d
}

// StartStep begins a processing step with indentation
func (d *DebugObserver) StartStep(component, step, filePath string) func(success bool, details string) {
	start := time.Now()

	d.mu.Lock()
	fmt.Fprintf(d.writer, "%s🔄 %s: %s (%s)\n", strings.Repeat("  ", d.indent), component, step, filePath)
	d.indent++
	d.mu.Unlock()

	return func(success bool, details string) {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.indent--
		indentStr := strings.Repeat("  ", d.indent)
		ms := time.Since(start).Milliseconds()
		if success {
			fmt.Fprintf(d.writer, "%s✅ %s: %s completed (%dms) %s\n", indentStr, component, step, ms, details)
		} else {
			fmt.Fprintf(d.writer, "%s❌ %s: %s failed (%dms) %s\n", indentStr, component, step, ms, details)
		}
	}
}

// LogDetail logs a detail within the current step
func (d *DebugObserver) LogDetail(component, detail string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.writer, "%s   → %s: %s\n", strings.Repeat("  ", d.indent), component, detail)
}

// LogMetric logs a metric value
func (d *DebugObserver) LogMetric(component, metric string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.writer, "%s   📊 %s: %s = %v\n", strings.Repeat("  ", d.indent), component, metric, value)
}
