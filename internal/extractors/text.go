// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractors

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"docsafe/internal/document"
)

// extractText splits plain text into paragraphs on blank lines. Lines of
// one paragraph are joined with a single space.
func extractText(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	doc := &document.Document{Path: path, Format: document.FormatText, Title: baseName(path)}
	for _, block := range splitBlocks(string(data)) {
		doc.Paras = append(doc.Paras, document.Paragraph{
			Index:     len(doc.Paras),
			Text:      block,
			StyleName: document.Normal.String(),
		})
	}
	return doc, nil
}

func splitBlocks(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var blocks []string
	var lines []string
	flush := func() {
		if len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, " "))
			lines = nil
		}
	}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		lines = append(lines, line)
	}
	flush()
	return blocks
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// extractMarkdown walks the goldmark AST: headings keep their level, list
// items become list paragraphs, other blocks are normal paragraphs and GFM
// tables become tables.
func extractMarkdown(path string) (*document.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(text.NewReader(src))

	doc := &document.Document{Path: path, Format: document.FormatMarkdown}
	add := func(t string, style document.StyleLabel) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		doc.Paras = append(doc.Paras, document.Paragraph{Index: len(doc.Paras), Text: t, StyleName: style.String()})
	}

	var addItem func(item ast.Node)
	addItem = func(item ast.Node) {
		var parts []string
		var nested []ast.Node
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if _, ok := c.(*ast.List); ok {
				nested = append(nested, c)
				continue
			}
			if t := strings.TrimSpace(inlineText(c, src)); t != "" {
				parts = append(parts, t)
			}
		}
		add(strings.Join(parts, " "), document.ListParagraph)
		for _, list := range nested {
			for c := list.FirstChild(); c != nil; c = c.NextSibling() {
				addItem(c)
			}
		}
	}

	err = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			label := document.Heading1 + document.StyleLabel(min(node.Level, 6)-1)
			t := inlineText(node, src)
			if doc.Title == "" {
				doc.Title = strings.TrimSpace(t)
			}
			add(t, label)
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			addItem(node)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			add(inlineText(node, src), document.Normal)
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			add(codeText(node, src), document.Normal)
			return ast.WalkSkipChildren, nil
		case *east.Table:
			doc.Tabs = append(doc.Tabs, tableOf(node, src, len(doc.Tabs)))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk markdown %s: %w", path, err)
	}
	if doc.Title == "" {
		doc.Title = baseName(path)
	}
	return doc, nil
}

// inlineText concatenates the text segments under n. Soft breaks become
// spaces and hard breaks newlines.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.HardLineBreak() {
				b.WriteByte('\n')
			} else if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.AutoLink:
			b.Write(t.Label(src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func codeText(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimRight(b.String(), "\n")
}

func tableOf(t *east.Table, src []byte, index int) document.Table {
	table := document.Table{Index: index}
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []document.Cell
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, document.Cell{Text: strings.TrimSpace(inlineText(cell, src))})
		}
		table.Rows = append(table.Rows, cells)
	}
	return table
}
