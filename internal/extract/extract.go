// Package extract turns uploaded documents into a corpus: one text entry
// per page, followed by any tables detected on that page.
package extract

import (
	"bytes"
	"context"
	"errors"
	"strings"
)

// ErrNoTextLayer reports a document whose pages carry no extractable text.
// Scanned documents are not OCR'd.
var ErrNoTextLayer = errors.New("extract: document has no text layer")

// ErrUnsupported reports a document format no extractor handles.
var ErrUnsupported = errors.New("extract: unsupported document format")

// Table block markers written around every detected table.
const (
	TableStart = "\n\n--- TABLE START ---\n"
	TableEnd   = "\n--- TABLE END ---\n"
)

// Extractor produces a corpus from raw document bytes.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]string, error)
}

// Searchable reports whether any corpus entry has non-blank text.
func Searchable(corpus []string) bool {
	for _, s := range corpus {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// Check returns ErrNoTextLayer when the corpus is not searchable.
func Check(corpus []string) error {
	if !Searchable(corpus) {
		return ErrNoTextLayer
	}
	return nil
}

var pdfMagic = []byte("%PDF-")

// Auto dispatches PDFs to PDF and anything else that is valid text to Text.
type Auto struct {
	PDF  Extractor
	Text Extractor
}

// Extract implements [Extractor].
func (a Auto) Extract(ctx context.Context, data []byte) ([]string, error) {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if bytes.Contains(head, pdfMagic) {
		if a.PDF == nil {
			return nil, ErrUnsupported
		}
		return a.PDF.Extract(ctx, data)
	}
	if a.Text == nil || bytes.IndexByte(data, 0) >= 0 {
		return nil, ErrUnsupported
	}
	return a.Text.Extract(ctx, data)
}
