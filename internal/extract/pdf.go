package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

var licenseOnce sync.Once

// SetLicense installs a metered unipdf licence key. It is applied once per
// process; an empty key is ignored.
func SetLicense(key string) error {
	if key == "" {
		return nil
	}
	var err error
	licenseOnce.Do(func() {
		err = license.SetMeteredKey(key)
	})
	if err != nil {
		return fmt.Errorf("extract: failed to set unipdf licence: %w", err)
	}
	return nil
}

// PDFExtractor reads the text layer of a PDF page by page, followed by the
// tables unipdf's layout analysis finds on the page. Pages that fail to
// extract are logged and skipped.
type PDFExtractor struct {
	// Tables optionally scans page text for further tables. Defaults to
	// NoTables.
	Tables TableDetector
	Logger *slog.Logger
}

func (e PDFExtractor) Extract(ctx context.Context, data []byte) ([]string, error) {
	log := e.Logger
	if log == nil {
		log = slog.Default()
	}
	tables := e.Tables
	if tables == nil {
		tables = NoTables{}
	}

	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("extract: failed to parse PDF: %w", err)
	}
	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("extract: failed to read page count: %w", err)
	}

	var corpus []string
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, native, err := pageContent(reader, i)
		if err != nil {
			log.Warn("extract: skipping page", slog.Int("page", i), slog.Any("error", err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			log.Debug("extract: no text on page", slog.Int("page", i))
			continue
		}
		corpus = append(corpus, text)
		found := append(native, tables.Detect(text)...)
		corpus = append(corpus, found...)
		log.Debug("extract: page extracted", slog.Int("page", i), slog.Int("tables", len(found)))
	}

	log.Info("extract: PDF extracted", slog.Int("pages", numPages), slog.Int("entries", len(corpus)))
	return corpus, nil
}

func pageContent(reader *model.PdfReader, n int) (string, []string, error) {
	page, err := reader.GetPage(n)
	if err != nil {
		return "", nil, fmt.Errorf("get page: %w", err)
	}
	ex, err := extractor.New(page)
	if err != nil {
		return "", nil, fmt.Errorf("create extractor: %w", err)
	}
	pt, _, _, err := ex.ExtractPageText()
	if err != nil {
		return "", nil, fmt.Errorf("extract text: %w", err)
	}

	var tables []string
	for _, t := range pt.Tables() {
		if rendered := renderTable(tableRows(t)); rendered != "" {
			tables = append(tables, rendered)
		}
	}
	return pt.Text(), tables, nil
}

// tableRows flattens a detected table to trimmed cell text. Tables with no
// text in any cell yield nil.
func tableRows(t extractor.TextTable) [][]string {
	rows := make([][]string, 0, len(t.Cells))
	empty := true
	for _, row := range t.Cells {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.TrimSpace(c.Text)
			if cells[i] != "" {
				empty = false
			}
		}
		rows = append(rows, cells)
	}
	if empty {
		return nil
	}
	return rows
}
