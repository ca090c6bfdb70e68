package ingestion

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Metadata holds the format, report kind and fiscal period inferred from a
// document's file name or URL. It is best-effort and only used for display
// and logging.
type Metadata struct {
	// Format is "pdf" or "text".
	Format string `json:"format"`
	// DocType classifies the report (annual-report, quarterly-report,
	// earnings-release, presentation, statement).
	DocType string `json:"doc_type"`
	// Period is the fiscal period, e.g. "FY24 Q4", or "" when unknown.
	Period string `json:"period,omitempty"`
}

// docTypeKeywords maps file name tokens to a report kind. Order matters:
// the first match wins.
var docTypeKeywords = []struct {
	token   string
	docType string
}{
	{"10-k", "annual-report"},
	{"10k", "annual-report"},
	{"annual", "annual-report"},
	{"10-q", "quarterly-report"},
	{"10q", "quarterly-report"},
	{"quarterly", "quarterly-report"},
	{"earnings", "earnings-release"},
	{"results", "earnings-release"},
	{"release", "earnings-release"},
	{"presentation", "presentation"},
	{"deck", "presentation"},
	{"slides", "presentation"},
}

var (
	fiscalYearRe = regexp.MustCompile(`(?:^|[^a-z])fy'?(\d{2}|\d{4})(?:[^0-9]|$)`)
	quarterRe    = regexp.MustCompile(`(?:^|[^a-z0-9])q([1-4])(?:[^0-9]|$)`)
	calYearRe    = regexp.MustCompile(`(?:^|[^0-9])((?:19|20)\d{2})(?:[^0-9]|$)`)
)

// InferMetadata inspects a file name or URL and returns best-effort
// metadata. Unknown names yield Format "pdf" and DocType "statement".
//
// Examples:
//
//	walmart-fy24-q4-earnings.pdf   → pdf, earnings-release, "FY24 Q4"
//	apple_10-K_2023.pdf            → pdf, annual-report, "2023"
//	https://example.com/q2-results → pdf, earnings-release, "Q2"
func InferMetadata(name string) Metadata {
	m := Metadata{Format: "pdf", DocType: "statement"}

	base := name
	if u, err := url.Parse(name); err == nil && u.Scheme != "" {
		base = u.Path
	}
	base = strings.ToLower(path.Base(base))

	switch path.Ext(base) {
	case ".txt", ".text", ".md":
		m.Format = "text"
	}

	for _, kw := range docTypeKeywords {
		if strings.Contains(base, kw.token) {
			m.DocType = kw.docType
			break
		}
	}

	var period []string
	if sm := fiscalYearRe.FindStringSubmatch(base); sm != nil {
		period = append(period, "FY"+sm[1])
	} else if sm := calYearRe.FindStringSubmatch(base); sm != nil {
		period = append(period, sm[1])
	}
	if sm := quarterRe.FindStringSubmatch(base); sm != nil {
		period = append(period, "Q"+sm[1])
	}
	m.Period = strings.Join(period, " ")

	return m
}
