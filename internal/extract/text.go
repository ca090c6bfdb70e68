package extract

import (
	"context"
	"strings"
)

// TextExtractor reads plain text, one page per form feed.
type TextExtractor struct {
	Tables TableDetector
}

func (e TextExtractor) Extract(ctx context.Context, data []byte) ([]string, error) {
	tables := e.Tables
	if tables == nil {
		tables = NoTables{}
	}
	var corpus []string
	for _, page := range strings.Split(string(data), "\f") {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(page) == "" {
			continue
		}
		corpus = append(corpus, page)
		corpus = append(corpus, tables.Detect(page)...)
	}
	return corpus, nil
}
