// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"docsafe/internal/document"
	"docsafe/internal/docx"
)

// ErrUnsupportedFormat is returned for files no extractor can read
var ErrUnsupportedFormat = errors.New("unsupported document format")

const (
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePDF  = "application/pdf"
)

// Detect works out the document format from the file content, falling
// back to the extension for text formats that share a mime type.
func Detect(path string) (document.Format, error) {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect type of %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case mime.Is(mimeDocx):
		return document.FormatDocx, nil
	case mime.Is(mimePDF):
		return document.FormatPDF, nil
	case mime.Is("application/zip") && ext == ".docx":
		// some writers leave out the parts mimetype keys on
		return document.FormatDocx, nil
	case strings.HasPrefix(mime.String(), "text/"):
		switch ext {
		case ".md", ".markdown":
			return document.FormatMarkdown, nil
		case ".txt", ".text", "":
			return document.FormatText, nil
		}
	}
	return "", fmt.Errorf("%s (%s): %w", path, mime.String(), ErrUnsupportedFormat)
}

// Extract reads a document of any supported format. Missing files return an
// error wrapping os.ErrNotExist.
func Extract(ctx context.Context, path string) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}

	format, err := Detect(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case document.FormatDocx:
		return docx.Read(path)
	case document.FormatMarkdown:
		return extractMarkdown(path)
	case document.FormatPDF:
		return extractPDF(ctx, path)
	default:
		return extractText(path)
	}
}
