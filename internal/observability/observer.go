// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StandardObserver records timed pipeline operations as JSON lines and owns
// the structured logger handed to the pipeline components.
type StandardObserver struct {
	level         ObservabilityLevel
	writer        io.Writer
	runID         string
	mu            sync.Mutex
	logger        *slog.Logger
	DebugObserver *DebugObserver // set when in debug mode
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// NewStandardObserver creates observability component
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	if writer == nil {
		writer = io.Discard
	}
	o := &StandardObserver{
		level:  level,
		writer: writer,
		runID:  "run-" + uuid.NewString()[:8],
	}
	o.logger = slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: o.logLevel()})).
		With("run_id", o.runID)
	return o
}

// New builds the observer for a command: debug output gets step logs on
// top of the JSON records, verbose output gets info-level logs.
func New(debug, verbose bool, writer io.Writer) *StandardObserver {
	if debug {
		return NewDebugObserver(writer).StandardObserver
	}
	if verbose {
		return NewStandardObserver(ObservabilityMetrics, writer)
	}
	return NewStandardObserver(ObservabilityOff, writer)
}

func (o *StandardObserver) logLevel() slog.Level {
	switch o.level {
	case ObservabilityDebug:
		return slog.LevelDebug
	case ObservabilityMetrics:
		return slog.LevelInfo
	}
	// warnings always reach the user
	return slog.LevelWarn
}

// Logger returns the structured logger for this run
func (o *StandardObserver) Logger() *slog.Logger { return o.logger }

// RunID identifies every record written by this observer
func (o *StandardObserver) RunID() string { return o.runID }

// StartTiming returns a function to complete timing
func (o *StandardObserver) StartTiming(component, operation, filePath string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		o.LogOperation(StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			FilePath:   filePath,
			DurationMs: time.Since(start).Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		})
	}
}

// LogOperation logs operation data. Records are only written in debug mode;
// at metrics level a one-line summary goes to the logger instead.
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o.level == ObservabilityOff {
		return
	}
	data.RunID = o.runID

	if o.level != ObservabilityDebug {
		o.logger.Info("operation",
			"component", data.Component, "operation", data.Operation,
			"duration_ms", data.DurationMs, "success", data.Success)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	_ = json.NewEncoder(o.writer).Encode(data)
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Component      string                 `json:"component"`
	Operation      string                 `json:"operation"`
	RunID          string                 `json:"run_id"`
	FilePath       string                 `json:"file_path,omitempty"`
	DurationMs     int64                  `json:"duration_ms,omitempty"`
	Success        bool                   `json:"success"`
	Error          string                 `json:"error,omitempty"`
	ParagraphCount int                    `json:"paragraph_count,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}
