// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatting

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"

	"docsafe/internal/document"
)

// markerRules style the review and preserved markers. They are checked
// against the allow-list like any guide rule.
var markerRules = map[string]map[string]string{
	"." + ClassPreserved: {"background-color": "#fff8e1"},
	"." + ClassReview:    {"border": "1px dashed #cc0000", "padding": "2px"},
}

// Tag returns the HTML element used for a label
func Tag(label document.StyleLabel) string {
	switch {
	case label.IsHeading():
		return label.ElementType()
	case label == document.ListParagraph:
		return "li"
	}
	return "p"
}

// WriteHTML writes a standalone HTML document. Every paragraph becomes one
// block element holding its escaped text; consecutive list items share a
// <ul>. Preserved paragraphs are always plain <p> elements. Tables follow
// the paragraphs.
func WriteHTML(w io.Writer, out *Output, title string) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n<style>\n", html.EscapeString(title))
	writeStylesheet(bw, out.Guide)
	bw.WriteString("</style>\n</head>\n<body>\n")

	inList := false
	for _, p := range out.Paragraphs {
		tag := "p"
		if p.Class != ClassPreserved {
			tag = Tag(p.Style)
		}
		if tag == "li" && !inList {
			bw.WriteString("<ul>\n")
			inList = true
		}
		if tag != "li" && inList {
			bw.WriteString("</ul>\n")
			inList = false
		}

		fmt.Fprintf(bw, "<%s id=\"%s\" class=\"%s\" data-safety=\"%s\"", tag, p.ID, p.Class, p.Safety)
		if p.Class == ClassStyled && len(p.Properties) > 0 {
			fmt.Fprintf(bw, " style=\"%s\"", html.EscapeString(inlineStyle(p.Properties)))
		}
		fmt.Fprintf(bw, ">%s</%s>\n", html.EscapeString(p.Text), tag)
	}
	if inList {
		bw.WriteString("</ul>\n")
	}
	for _, t := range out.Tables {
		writeTable(bw, t)
	}
	bw.WriteString("</body>\n</html>\n")
	return bw.Flush()
}

func writeTable(w *bufio.Writer, t Table) {
	fmt.Fprintf(w, "<table id=\"%s\">\n", t.ID)
	for _, row := range t.Rows {
		w.WriteString("<tr>")
		for _, c := range row {
			tag := c.Tag()
			fmt.Fprintf(w, "<%s class=\"%s\" data-safety=\"%s\"", tag, c.Class, c.Safety)
			if c.Class == ClassStyled && len(c.Properties) > 0 {
				fmt.Fprintf(w, " style=\"%s\"", html.EscapeString(inlineStyle(c.Properties)))
			}
			fmt.Fprintf(w, ">%s</%s>", html.EscapeString(c.Text), tag)
		}
		w.WriteString("</tr>\n")
	}
	w.WriteString("</table>\n")
}

func writeStylesheet(w *bufio.Writer, guide *StyleGuide) {
	if guide != nil {
		// the table rule only; paragraph and cell rules are applied inline
		// to safe text so that preserved text never inherits them
		if r, ok := guide.Rules["table"]; ok {
			writeBlock(w, "table", r.Properties)
		}
	}
	for _, sel := range []string{"." + ClassPreserved, "." + ClassReview} {
		writeBlock(w, sel, markerRules[sel])
	}
}

func writeBlock(w *bufio.Writer, selector string, props map[string]string) {
	fmt.Fprintf(w, "%s { %s }\n", selector, inlineStyle(props))
}

func inlineStyle(props map[string]string) string {
	r := Rule{Properties: props}
	var parts []string
	for _, k := range r.SortedProperties() {
		if !Allowed(k) {
			continue
		}
		parts = append(parts, k+": "+props[k]+";")
	}
	return strings.Join(parts, " ")
}
