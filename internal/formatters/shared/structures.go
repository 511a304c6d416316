// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"docsafe/internal/classifiers"
	"docsafe/internal/core"
	"docsafe/internal/filters"
	"docsafe/internal/formatters"
	"docsafe/internal/formatting"
	"docsafe/internal/integrity"
	"docsafe/internal/safety"
)

// JSONResponse represents the top-level response structure for JSON/YAML output
type JSONResponse struct {
	Summary    Summary                    `json:"summary" yaml:"summary"`
	Safety     safety.Report              `json:"safety" yaml:"safety"`
	Stats      classifiers.StatsSnapshot  `json:"classifier_stats" yaml:"classifier_stats"`
	Integrity  *integrity.Report          `json:"integrity,omitempty" yaml:"integrity,omitempty"`
	Paragraph  *integrity.ParagraphReport `json:"paragraph_check,omitempty" yaml:"paragraph_check,omitempty"`
	Prior      *integrity.Report          `json:"prior_check,omitempty" yaml:"prior_check,omitempty"`
	Removed    []JSONRemoval              `json:"removed" yaml:"removed"`
	Paragraphs []JSONParagraph            `json:"paragraphs,omitempty" yaml:"paragraphs,omitempty"`
	Changes    []formatting.Change        `json:"changes,omitempty" yaml:"changes,omitempty"`
}

// Summary holds the headline numbers of a run
type Summary struct {
	OperationID     string  `json:"operation_id" yaml:"operation_id"`
	Input           string  `json:"input" yaml:"input"`
	Output          string  `json:"output,omitempty" yaml:"output,omitempty"`
	Title           string  `json:"title" yaml:"title"`
	Strategy        string  `json:"strategy" yaml:"strategy"`
	Kept            int     `json:"kept" yaml:"kept"`
	Removed         int     `json:"removed" yaml:"removed"`
	Styled          int     `json:"styled" yaml:"styled"`
	Preserved       int     `json:"preserved" yaml:"preserved"`
	RequiresReview  int     `json:"requires_review" yaml:"requires_review"`
	Changes         int     `json:"changes" yaml:"changes"`
	Valid           bool    `json:"valid" yaml:"valid"`
	Blocked         bool    `json:"blocked,omitempty" yaml:"blocked,omitempty"`
	Resumed         bool    `json:"resumed,omitempty" yaml:"resumed,omitempty"`
	BackupID        string  `json:"backup_id,omitempty" yaml:"backup_id,omitempty"`
	DurationSeconds float64 `json:"duration_seconds" yaml:"duration_seconds"`
}

// JSONRemoval is a filtered paragraph
type JSONRemoval struct {
	Index  int    `json:"index" yaml:"index"`
	Stage  string `json:"stage" yaml:"stage"`
	Reason string `json:"reason" yaml:"reason"`
	Text   string `json:"text,omitempty" yaml:"text,omitempty"`
}

// JSONParagraph is a classified paragraph
type JSONParagraph struct {
	Index           int     `json:"index" yaml:"index"`
	Style           string  `json:"style" yaml:"style"`
	Safety          string  `json:"safety" yaml:"safety"`
	Confidence      float64 `json:"confidence" yaml:"confidence"`
	ConfidenceLevel string  `json:"confidence_level" yaml:"confidence_level"`
	Source          string  `json:"source" yaml:"source"`
	Text            string  `json:"text,omitempty" yaml:"text,omitempty"`
}

// GetConfidenceLevel returns the confidence level as a string
func GetConfidenceLevel(confidence float64) string {
	switch {
	case confidence >= 0.9:
		return "HIGH"
	case confidence >= 0.6:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// ConvertResult converts a processing result to the JSON/YAML structure.
// Paragraph listings and changes are only included in verbose mode.
func ConvertResult(r *core.ProcessResult, options formatters.FormatterOptions) JSONResponse {
	resp := JSONResponse{
		Summary: Summary{
			OperationID:     r.OperationID,
			Input:           r.InputPath,
			Output:          r.OutputPath,
			Title:           r.Title,
			Strategy:        r.Strategy,
			Kept:            len(r.Paragraphs),
			Removed:         len(r.Removed),
			Styled:          r.Styled,
			Preserved:       r.Preserved,
			RequiresReview:  r.Review,
			Changes:         len(r.Changes),
			Valid:           r.Valid(),
			Blocked:         r.Blocked,
			Resumed:         r.Resumed,
			BackupID:        r.BackupID,
			DurationSeconds: r.Duration.Seconds(),
		},
		Safety:    r.Safety,
		Stats:     r.Stats,
		Integrity: r.Integrity,
		Paragraph: r.ParagraphCheck,
		Prior:     r.PriorCheck,
		Removed:   convertRemovals(r.Removed, options),
	}

	if options.Verbose {
		for _, cp := range r.Paragraphs {
			p := JSONParagraph{
				Index:           cp.Paragraph.Index,
				Style:           cp.Style.String(),
				Safety:          cp.Safety.String(),
				Confidence:      cp.Confidence,
				ConfidenceLevel: GetConfidenceLevel(cp.Confidence),
				Source:          cp.Source,
			}
			if options.ShowText {
				p.Text = cp.Paragraph.Text
			}
			resp.Paragraphs = append(resp.Paragraphs, p)
		}
		resp.Changes = r.Changes
	}
	return resp
}

func convertRemovals(removed []filters.Removal, options formatters.FormatterOptions) []JSONRemoval {
	out := make([]JSONRemoval, 0, len(removed))
	for _, rm := range removed {
		jr := JSONRemoval{Index: rm.Paragraph.Index, Stage: rm.Stage, Reason: rm.Reason}
		if options.ShowText {
			jr.Text = rm.Paragraph.Text
		}
		out = append(out, jr)
	}
	return out
}
