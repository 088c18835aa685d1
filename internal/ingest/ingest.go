// Package ingest extracts page-delimited text from case documents.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadableDocument marks a document whose format cannot be parsed or
// that contains no extractable text. It is recoverable per document: a
// corpus build skips the document and continues.
var ErrUnreadableDocument = errors.New("unreadable document")

// PageText is the raw text of one page, 1-based.
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// CaseDocument is an ingested source document. Immutable once built.
type CaseDocument struct {
	Filename string     `json:"filename"`
	Pages    []PageText `json:"pages"`
}

// SupportedExt reports whether the ingestor understands the file extension.
func SupportedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".txt":
		return true
	}
	return false
}

// ExtractFile reads the document at path and returns its pages.
func ExtractFile(path string) (*CaseDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ExtractBytes(filepath.Base(path), data)
}

// ExtractBytes extracts pages from an in-memory document. The filename's
// extension selects the parser; plain text is treated as a single page.
func ExtractBytes(filename string, data []byte) (*CaseDocument, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrUnreadableDocument, filename)
	}

	var pages []PageText
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		pages, err = extractPDFPages(data)
	case ".txt", "":
		pages = []PageText{{Page: 1, Text: string(data)}}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrUnreadableDocument, filepath.Ext(filename))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableDocument, filename, err)
	}

	kept := pages[:0]
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %s has no extractable text", ErrUnreadableDocument, filename)
	}

	return &CaseDocument{Filename: filename, Pages: kept}, nil
}

func extractPDFPages(data []byte) (pages []PageText, err error) {
	// The pdf library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single bad page does not fail the document.
			continue
		}
		pages = append(pages, PageText{Page: i, Text: text})
	}
	return pages, nil
}
