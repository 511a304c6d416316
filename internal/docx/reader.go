// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package docx

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"docsafe/internal/document"
)

const (
	documentPart = "word/document.xml"
	stylesPart   = "word/styles.xml"
)

// ErrNoDocumentPart is returned for zip archives that are not word documents
var ErrNoDocumentPart = errors.New("word/document.xml not found in archive")

// Read parses a .docx file into paragraphs and tables. Style ids are
// resolved to display names through the styles part so that a paragraph
// styled "Heading2" reports "Heading 2". Paragraphs inside tables belong to
// the table only.
func Read(path string) (*document.Document, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx %s: %w", path, err)
	}
	defer r.Close()

	var docFile, styleFile *zip.File
	for _, f := range r.File {
		switch f.Name {
		case documentPart:
			docFile = f
		case stylesPart:
			styleFile = f
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrNoDocumentPart)
	}

	styles := map[string]string{}
	if styleFile != nil {
		if styles, err = readStyles(styleFile); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", documentPart, err)
	}
	defer rc.Close()

	doc, err := decodeBody(rc, styles)
	if err != nil {
		return nil, fmt.Errorf("parse %s in %s: %w", documentPart, path, err)
	}
	doc.Path = path
	doc.Format = document.FormatDocx
	doc.Title = title(doc, path)
	return doc, nil
}

func title(doc *document.Document, path string) string {
	for _, p := range doc.Paras {
		if p.IsHeading() && !p.IsEmpty() {
			return strings.TrimSpace(p.Text)
		}
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

type stylesXML struct {
	Styles []struct {
		ID   string `xml:"styleId,attr"`
		Name struct {
			Val string `xml:"val,attr"`
		} `xml:"name"`
	} `xml:"style"`
}

func readStyles(f *zip.File) (map[string]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", stylesPart, err)
	}
	defer rc.Close()

	var sx stylesXML
	if err := xml.NewDecoder(rc).Decode(&sx); err != nil {
		return nil, fmt.Errorf("parse %s: %w", stylesPart, err)
	}
	out := make(map[string]string, len(sx.Styles))
	for _, s := range sx.Styles {
		if s.Name.Val != "" {
			out[s.ID] = displayName(s.Name.Val)
		}
	}
	return out, nil
}

// displayName capitalises the built-in lower-case names ("heading 1")
// the way word shows them
func displayName(name string) string {
	if l, err := document.ParseStyleLabel(name); err == nil {
		return l.String()
	}
	return name
}

// paragraphState collects one w:p while tokens stream past
type paragraphState struct {
	text      strings.Builder
	styleID   string
	format    document.Formatting
	runs       int
	inRunProp  bool
	inParaProp bool
}

type tableState struct {
	rows [][]document.Cell
	row  []document.Cell
	cell *strings.Builder
}

func decodeBody(r io.Reader, styles map[string]string) (*document.Document, error) {
	doc := &document.Document{}
	dec := xml.NewDecoder(r)

	var (
		para   *paragraphState
		tables []*tableState
		inText bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tables = append(tables, &tableState{})
			case "tr":
				if len(tables) > 0 {
					tables[len(tables)-1].row = nil
				}
			case "tc":
				if len(tables) > 0 {
					tables[len(tables)-1].cell = &strings.Builder{}
				}
			case "p":
				para = &paragraphState{}
			case "pPr":
				if para != nil {
					para.inParaProp = true
				}
			case "pStyle":
				if para != nil {
					para.styleID = attr(t, "val")
				}
			case "jc":
				if para != nil && !para.inRunProp {
					para.format.Alignment = alignment(attr(t, "val"))
				}
			case "spacing":
				if para != nil && !para.inRunProp {
					para.format.SpacingBefore = twips(attr(t, "before"))
					para.format.SpacingAfter = twips(attr(t, "after"))
				}
			case "r":
				if para != nil {
					para.runs++
				}
			case "rPr":
				if para != nil {
					para.inRunProp = true
				}
			case "rFonts", "sz", "b", "i":
				// first run formatting stands for the paragraph
				if para != nil && para.inRunProp && para.runs == 1 {
					applyRunProp(&para.format, t)
				}
			case "t":
				inText = para != nil
			case "tab":
				// w:tab inside pPr is a tab stop, not text
				if para != nil && !para.inParaProp {
					para.text.WriteByte('\t')
				}
			case "br", "cr":
				if para != nil {
					para.text.WriteByte('\n')
				}
			}

		case xml.CharData:
			if inText {
				para.text.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "rPr":
				if para != nil {
					para.inRunProp = false
				}
			case "pPr":
				if para != nil {
					para.inParaProp = false
				}
			case "p":
				if para == nil {
					continue
				}
				if len(tables) > 0 {
					ts := tables[len(tables)-1]
					if ts.cell != nil {
						if ts.cell.Len() > 0 {
							ts.cell.WriteByte('\n')
						}
						ts.cell.WriteString(para.text.String())
					}
				} else {
					style := styles[para.styleID]
					if style == "" {
						style = defaultStyleName(para.styleID)
					}
					doc.Paras = append(doc.Paras, document.Paragraph{
						Index:      len(doc.Paras),
						Text:       para.text.String(),
						StyleName:  style,
						Formatting: para.format,
					})
				}
				para = nil
			case "tc":
				if len(tables) > 0 {
					ts := tables[len(tables)-1]
					if ts.cell != nil {
						ts.row = append(ts.row, document.Cell{Text: ts.cell.String()})
						ts.cell = nil
					}
				}
			case "tr":
				if len(tables) > 0 {
					ts := tables[len(tables)-1]
					ts.rows = append(ts.rows, ts.row)
					ts.row = nil
				}
			case "tbl":
				if len(tables) == 0 {
					continue
				}
				ts := tables[len(tables)-1]
				tables = tables[:len(tables)-1]
				if len(tables) > 0 {
					// nested table text folds into the enclosing cell
					if outer := tables[len(tables)-1]; outer.cell != nil {
						for _, row := range ts.rows {
							for _, c := range row {
								if outer.cell.Len() > 0 {
									outer.cell.WriteByte('\n')
								}
								outer.cell.WriteString(c.Text)
							}
						}
					}
					continue
				}
				doc.Tabs = append(doc.Tabs, document.Table{Index: len(doc.Tabs), Rows: ts.rows})
			}
		}
	}
	return doc, nil
}

func defaultStyleName(id string) string {
	if id == "" {
		return document.Normal.String()
	}
	return displayName(id)
}

func attr(e xml.StartElement, local string) string {
	for _, a := range e.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// on/off properties are true unless val says otherwise
func onOff(e xml.StartElement) bool {
	switch attr(e, "val") {
	case "0", "false", "off":
		return false
	}
	return true
}

func applyRunProp(f *document.Formatting, e xml.StartElement) {
	switch e.Name.Local {
	case "rFonts":
		f.FontName = attr(e, "ascii")
	case "sz":
		if hp, err := strconv.ParseFloat(attr(e, "val"), 64); err == nil {
			f.FontSize = hp / 2
		}
	case "b":
		f.Bold = onOff(e)
	case "i":
		f.Italic = onOff(e)
	}
}

func alignment(val string) string {
	switch val {
	case "both", "distribute":
		return "justify"
	case "start":
		return "left"
	case "end":
		return "right"
	}
	return val
}

// twips converts twentieths of a point to points
func twips(val string) float64 {
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0
	}
	return v / 20
}
