// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"docsafe/internal/document"
)

// ErrSameFile is returned when the output path would overwrite the input
var ErrSameFile = errors.New("output path is the input document")

// Entry is one output paragraph. Properties are allow-listed CSS
// declarations; the ones with a word equivalent are written as paragraph
// and run properties, the rest are ignored.
type Entry struct {
	Text       string
	Style      document.StyleLabel
	Properties map[string]string
}

// TableEntry is one output table; each cell is written as a single
// paragraph so multi-line cell text reads back unchanged
type TableEntry struct {
	Rows [][]Entry
}

const (
	wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

	packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`
)

// Save writes entries, then tables, to output as a .docx. The file is
// written next to the destination and renamed into place, so a failed write
// never leaves a partial document. Writing over input is refused.
func Save(input, output string, entries []Entry, tables ...TableEntry) error {
	if same, err := samePath(input, output); err != nil {
		return err
	} else if same {
		return fmt.Errorf("%s: %w", output, ErrSameFile)
	}

	dir := filepath.Dir(output)
	tmp, err := os.CreateTemp(dir, ".docsafe-*.docx")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Write(tmp, entries, tables...); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Rename(tmpName, output); err != nil {
		return fmt.Errorf("rename output into place: %w", err)
	}
	return nil
}

func samePath(a, b string) (bool, error) {
	if a == "" {
		return false, nil
	}
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", a, err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", b, err)
	}
	if absA == absB {
		return true, nil
	}
	ia, errA := os.Stat(absA)
	ib, errB := os.Stat(absB)
	if errA != nil || errB != nil {
		return false, nil
	}
	return os.SameFile(ia, ib), nil
}

// Write streams a minimal word package holding one paragraph per entry in
// order followed by the tables, with a styles part that defines every label.
func Write(w io.Writer, entries []Entry, tables ...TableEntry) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name string
		body []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(packageRelsXML)},
		{"word/_rels/document.xml.rels", []byte(documentRelsXML)},
		{stylesPart, stylesBody()},
		{documentPart, documentBody(entries, tables)},
	}
	for _, p := range parts {
		fw, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("create part %s: %w", p.name, err)
		}
		if _, err := fw.Write(p.body); err != nil {
			return fmt.Errorf("write part %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish docx: %w", err)
	}
	return nil
}

// StyleID is the styles-part id used for a label
func StyleID(l document.StyleLabel) string {
	return strings.ReplaceAll(l.String(), " ", "")
}

func stylesBody() []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	fmt.Fprintf(&b, `<w:styles xmlns:w="%s">`, wordNS)
	for _, l := range document.AllLabels() {
		name := l.String()
		if l.IsHeading() {
			// word's built-in heading names are lower case
			name = strings.ToLower(name)
		}
		fmt.Fprintf(&b, `<w:style w:type="paragraph" w:styleId="%s"><w:name w:val="%s"/>`, StyleID(l), name)
		if l != document.Normal {
			b.WriteString(`<w:basedOn w:val="Normal"/>`)
		}
		if l.IsHeading() {
			fmt.Fprintf(&b, `<w:pPr><w:outlineLvl w:val="%d"/></w:pPr><w:rPr><w:b/></w:rPr>`, int(l-document.Heading1))
		}
		b.WriteString(`</w:style>`)
	}
	b.WriteString(`</w:styles>`)
	return b.Bytes()
}

func documentBody(entries []Entry, tables []TableEntry) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	fmt.Fprintf(&b, `<w:document xmlns:w="%s"><w:body>`, wordNS)
	for _, e := range entries {
		writeParagraph(&b, e)
	}
	for _, t := range tables {
		writeTable(&b, t)
	}
	b.WriteString(`<w:sectPr/></w:body></w:document>`)
	return b.Bytes()
}

const tableProps = `<w:tblPr><w:tblW w:w="0" w:type="auto"/><w:tblBorders>` +
	`<w:top w:val="single" w:sz="4" w:space="0" w:color="DDDDDD"/>` +
	`<w:left w:val="single" w:sz="4" w:space="0" w:color="DDDDDD"/>` +
	`<w:bottom w:val="single" w:sz="4" w:space="0" w:color="DDDDDD"/>` +
	`<w:right w:val="single" w:sz="4" w:space="0" w:color="DDDDDD"/>` +
	`<w:insideH w:val="single" w:sz="4" w:space="0" w:color="DDDDDD"/>` +
	`<w:insideV w:val="single" w:sz="4" w:space="0" w:color="DDDDDD"/>` +
	`</w:tblBorders></w:tblPr>`

func writeTable(b *bytes.Buffer, t TableEntry) {
	cols := 0
	for _, row := range t.Rows {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return
	}
	b.WriteString(`<w:tbl>` + tableProps + `<w:tblGrid>`)
	for range cols {
		b.WriteString(`<w:gridCol/>`)
	}
	b.WriteString(`</w:tblGrid>`)
	for _, row := range t.Rows {
		b.WriteString(`<w:tr>`)
		for _, cell := range row {
			b.WriteString(`<w:tc><w:tcPr><w:tcW w:w="0" w:type="auto"/></w:tcPr>`)
			writeParagraph(b, cell)
			b.WriteString(`</w:tc>`)
		}
		b.WriteString(`</w:tr>`)
	}
	b.WriteString(`</w:tbl>`)
}

func writeParagraph(b *bytes.Buffer, e Entry) {
	b.WriteString(`<w:p><w:pPr>`)
	fmt.Fprintf(b, `<w:pStyle w:val="%s"/>`, StyleID(e.Style))
	before, after := points(e.Properties["margin-top"]), points(e.Properties["margin-bottom"])
	if before > 0 || after > 0 {
		b.WriteString(`<w:spacing`)
		if before > 0 {
			fmt.Fprintf(b, ` w:before="%d"`, int(before*20))
		}
		if after > 0 {
			fmt.Fprintf(b, ` w:after="%d"`, int(after*20))
		}
		b.WriteString(`/>`)
	}
	if jc := justification(e.Properties["text-align"]); jc != "" {
		fmt.Fprintf(b, `<w:jc w:val="%s"/>`, jc)
	}
	b.WriteString(`</w:pPr><w:r>`)
	writeRunProps(b, e.Properties)

	lines := strings.Split(e.Text, "\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteString(`<w:br/>`)
		}
		for j, seg := range strings.Split(line, "\t") {
			if j > 0 {
				b.WriteString(`<w:tab/>`)
			}
			if seg == "" {
				continue
			}
			b.WriteString(`<w:t xml:space="preserve">`)
			xml.EscapeText(b, []byte(seg))
			b.WriteString(`</w:t>`)
		}
	}
	b.WriteString(`</w:r></w:p>`)
}

func writeRunProps(b *bytes.Buffer, props map[string]string) {
	var rpr strings.Builder
	if family := props["font-family"]; family != "" {
		name := strings.Trim(strings.TrimSpace(strings.Split(family, ",")[0]), "'")
		fmt.Fprintf(&rpr, `<w:rFonts w:ascii="%s" w:hAnsi="%s"/>`, escapeAttr(name), escapeAttr(name))
	}
	if strings.EqualFold(props["font-weight"], "bold") {
		rpr.WriteString(`<w:b/>`)
	}
	if strings.EqualFold(props["font-style"], "italic") {
		rpr.WriteString(`<w:i/>`)
	}
	if c := strings.TrimPrefix(props["color"], "#"); len(c) == 6 {
		fmt.Fprintf(&rpr, `<w:color w:val="%s"/>`, strings.ToUpper(c))
	}
	if size := points(props["font-size"]); size > 0 {
		fmt.Fprintf(&rpr, `<w:sz w:val="%d"/>`, int(size*2))
	}
	if rpr.Len() > 0 {
		b.WriteString(`<w:rPr>` + rpr.String() + `</w:rPr>`)
	}
}

func escapeAttr(s string) string {
	var b bytes.Buffer
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

// points converts a CSS length in pt or px to points
func points(v string) float64 {
	v = strings.TrimSpace(strings.ToLower(v))
	scale := 1.0
	switch {
	case strings.HasSuffix(v, "pt"):
		v = strings.TrimSuffix(v, "pt")
	case strings.HasSuffix(v, "px"):
		v = strings.TrimSuffix(v, "px")
		scale = 0.75
	default:
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f * scale
}

func justification(align string) string {
	switch strings.ToLower(align) {
	case "left":
		return "left"
	case "right":
		return "right"
	case "center":
		return "center"
	case "justify":
		return "both"
	}
	return ""
}
