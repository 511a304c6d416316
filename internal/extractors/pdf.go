// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractors

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"docsafe/internal/document"
)

// paragraphGap is the vertical distance, in multiples of the font size,
// above which two text rows belong to different paragraphs
const paragraphGap = 1.6

// extractPDF validates the file with pdfcpu and then reads positioned text
// rows with ledongthuc/pdf, grouping rows into paragraphs by line spacing.
// Pages always start a new paragraph.
func extractPDF(ctx context.Context, path string) (*document.Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return nil, fmt.Errorf("validate pdf %s: %w", path, err)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	doc := &document.Document{Path: path, Format: document.FormatPDF}
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("read page %d of %s: %w", i, path, err)
		}
		for _, para := range groupRows(rows) {
			doc.Paras = append(doc.Paras, document.Paragraph{
				Index:     len(doc.Paras),
				Text:      para,
				StyleName: document.Normal.String(),
			})
		}
	}

	doc.Title = baseName(path)
	if len(doc.Paras) > 0 {
		doc.Title = doc.Paras[0].Text
	}
	return doc, nil
}

type line struct {
	text string
	y    float64
	size float64
}

func groupRows(rows pdf.Rows) []string {
	var lines []line
	for _, row := range rows {
		if row == nil || len(row.Content) == 0 {
			continue
		}
		t := strings.TrimSpace(rowText(row.Content))
		if t == "" {
			continue
		}
		l := line{text: t, y: averageY(row.Content)}
		for _, el := range row.Content {
			l.size = max(l.size, el.FontSize)
		}
		if l.size <= 0 {
			l.size = 12
		}
		lines = append(lines, l)
	}
	// PDF y grows upwards, so the top of the page comes first
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].y > lines[j].y })

	var paras []string
	var current []string
	for i, l := range lines {
		if i > 0 && lines[i-1].y-l.y > paragraphGap*max(l.size, lines[i-1].size) {
			paras = append(paras, strings.Join(current, " "))
			current = nil
		}
		current = append(current, l.text)
	}
	if len(current) > 0 {
		paras = append(paras, strings.Join(current, " "))
	}
	return paras
}

func averageY(texts []pdf.Text) float64 {
	var total float64
	for _, t := range texts {
		total += t.Y
	}
	return total / float64(len(texts))
}

// rowText joins the glyph runs of one row left to right, inserting a space
// where the horizontal gap exceeds a fifth of the font size
func rowText(texts []pdf.Text) string {
	sorted := append([]pdf.Text(nil), texts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var buf bytes.Buffer
	for i, el := range sorted {
		buf.WriteString(el.S)
		if i == len(sorted)-1 {
			break
		}
		size := el.FontSize
		if size <= 0 {
			size = 12
		}
		if sorted[i+1].X-(el.X+el.W) > size*0.2 {
			buf.WriteByte(' ')
		}
	}
	return buf.String()
}
