// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatting

import (
	"strconv"

	"docsafe/internal/document"
)

// Cell is one rendered table cell. Text is the input cell text.
type Cell struct {
	Text       string               `json:"text" yaml:"text"`
	Header     bool                 `json:"header,omitempty" yaml:"header,omitempty"`
	Safety     document.SafetyLevel `json:"safety" yaml:"safety"`
	Class      string               `json:"class" yaml:"class"`
	Properties map[string]string    `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Table is a rendered table. Its first row is the header row.
type Table struct {
	ID    string   `json:"id" yaml:"id"`
	Index int      `json:"index" yaml:"index"`
	Rows  [][]Cell `json:"rows" yaml:"rows"`
}

// Assessor decides the safety level of a piece of text on its own
type Assessor interface {
	Assess(text string) document.SafetyLevel
}

// RenderTables assesses every cell separately and applies the guide's th or
// td rule to safe cells only. The result replaces out.Tables.
func (e *Engine) RenderTables(out *Output, tables []document.Table, a Assessor) {
	out.Tables = make([]Table, 0, len(tables))
	for _, t := range tables {
		rt := Table{ID: "table-" + strconv.Itoa(t.Index), Index: t.Index, Rows: make([][]Cell, 0, len(t.Rows))}
		for r, row := range t.Rows {
			cells := make([]Cell, 0, len(row))
			for _, c := range row {
				cell := Cell{Text: c.Text, Header: r == 0, Safety: a.Assess(c.Text)}
				switch cell.Safety {
				case document.SafetyCritical:
					cell.Class = ClassPreserved
				case document.SafetyReview:
					cell.Class = ClassReview
				default:
					cell.Class = ClassStyled
					cell.Properties = e.cellProperties(cell.Header)
				}
				cells = append(cells, cell)
			}
			rt.Rows = append(rt.Rows, cells)
		}
		out.Tables = append(out.Tables, rt)
	}
}

func (e *Engine) cellProperties(header bool) map[string]string {
	el := "td"
	if header {
		el = "th"
	}
	rule, ok := e.guide.Rules[el]
	if !ok || rule.Safety != document.SafetySafe {
		return nil
	}
	props := make(map[string]string, len(rule.Properties))
	for k, v := range rule.Properties {
		if Allowed(k) {
			props[k] = v
		}
	}
	return props
}

// Tag returns the cell element, th for the header row
func (c Cell) Tag() string {
	if c.Header {
		return "th"
	}
	return "td"
}
