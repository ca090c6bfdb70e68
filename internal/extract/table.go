package extract

import (
	"bytes"
	"encoding/csv"
	"strings"
	"unicode"
)

// TableDetector finds tables in the text of one page and renders each as a
// marked block.
type TableDetector interface {
	Detect(page string) []string
}

// NoTables detects nothing.
type NoTables struct{}

func (NoTables) Detect(string) []string { return nil }

// LowercaseWordHeuristic treats a line as a table row when it has more than
// two words and at least one of them is entirely lowercase letters.
// Consecutive rows form one table, written as CSV with one cell per word.
type LowercaseWordHeuristic struct{}

func (LowercaseWordHeuristic) Detect(page string) []string {
	var (
		tables []string
		rows   [][]string
	)
	flush := func() {
		if len(rows) == 0 {
			return
		}
		if t := renderTable(rows); t != "" {
			tables = append(tables, t)
		}
		rows = nil
	}
	for _, line := range strings.Split(page, "\n") {
		words := strings.Fields(line)
		if isTableRow(words) {
			rows = append(rows, words)
			continue
		}
		flush()
	}
	flush()
	return tables
}

func isTableRow(words []string) bool {
	if len(words) <= 2 {
		return false
	}
	for _, w := range words {
		if isLowerAlpha(w) {
			return true
		}
	}
	return false
}

func isLowerAlpha(w string) bool {
	if w == "" {
		return false
	}
	lower := false
	for _, r := range w {
		if !unicode.IsLetter(r) || unicode.IsUpper(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsLower(r) {
			lower = true
		}
	}
	return lower
}

func renderTable(rows [][]string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return ""
	}
	body := strings.TrimSpace(buf.String())
	if body == "" {
		return ""
	}
	return TableStart + body + TableEnd
}
