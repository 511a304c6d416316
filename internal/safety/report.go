// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package safety

import (
	"github.com/samber/lo"

	"docsafe/internal/document"
)

// Recommended approaches returned by Report
const (
	ApproachNoContent       = "No content to process"
	ApproachManualCritical  = "Manual formatting recommended - high safety-critical content"
	ApproachAutomated       = "Automated formatting recommended with human review"
	ApproachSemiAutomated   = "Semi-automated formatting with extensive human review"
	ApproachManualAutomated = "Manual formatting recommended - limited automation benefits"
)

// Report summarises the safety profile of a document
type Report struct {
	TotalParagraphs     int      `json:"total_paragraphs" yaml:"total_paragraphs"`
	Safe                int      `json:"safe" yaml:"safe"`
	Review              int      `json:"review" yaml:"review"`
	Critical            int      `json:"critical" yaml:"critical"`
	ZoneCount           int      `json:"zone_count" yaml:"zone_count"`
	ZoneTypes           []string `json:"zone_types" yaml:"zone_types"`
	SafePercentage      float64  `json:"safe_percentage" yaml:"safe_percentage"`
	CriticalPercentage  float64  `json:"critical_percentage" yaml:"critical_percentage"`
	RecommendedApproach string   `json:"recommended_approach" yaml:"recommended_approach"`
}

// Report assesses every non-empty paragraph and recommends how much of the
// document can be formatted automatically.
func (c *Classifier) Report(src document.Source) Report {
	paragraphs := document.NonEmpty(src)
	zones := c.IdentifyZones(src)

	r := Report{
		TotalParagraphs: len(paragraphs),
		ZoneCount:       len(zones),
		ZoneTypes:       lo.Uniq(lo.Map(zones, func(z ProhibitedZone, _ int) string { return z.ZoneType })),
	}
	for _, p := range paragraphs {
		switch c.Assess(p.Text) {
		case document.SafetySafe:
			r.Safe++
		case document.SafetyReview:
			r.Review++
		case document.SafetyCritical:
			r.Critical++
		}
	}

	if r.TotalParagraphs == 0 {
		r.RecommendedApproach = ApproachNoContent
		return r
	}

	r.SafePercentage = float64(r.Safe) / float64(r.TotalParagraphs) * 100
	r.CriticalPercentage = float64(r.Critical) / float64(r.TotalParagraphs) * 100

	switch {
	case r.CriticalPercentage > 50:
		r.RecommendedApproach = ApproachManualCritical
	case r.SafePercentage > 70:
		r.RecommendedApproach = ApproachAutomated
	case r.SafePercentage > 40:
		r.RecommendedApproach = ApproachSemiAutomated
	default:
		r.RecommendedApproach = ApproachManualAutomated
	}
	return r
}
