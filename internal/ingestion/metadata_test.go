package ingestion

import "testing"

func TestInferMetadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		format  string
		docType string
		period  string
	}{
		{
			name:    "earnings release with fiscal quarter",
			input:   "walmart-fy24-q4-earnings.pdf",
			format:  "pdf",
			docType: "earnings-release",
			period:  "FY24 Q4",
		},
		{
			name:    "10-K with calendar year",
			input:   "Apple_10-K_2023.pdf",
			format:  "pdf",
			docType: "annual-report",
			period:  "2023",
		},
		{
			name:    "four digit fiscal year",
			input:   "FY2024_Annual_Report.PDF",
			format:  "pdf",
			docType: "annual-report",
			period:  "FY2024",
		},
		{
			name:    "10-Q",
			input:   "msft-10q-q2.pdf",
			format:  "pdf",
			docType: "quarterly-report",
			period:  "Q2",
		},
		{
			name:    "url",
			input:   "https://investors.example.com/files/q3-results?download=1",
			format:  "pdf",
			docType: "earnings-release",
			period:  "Q3",
		},
		{
			name:    "plain text",
			input:   "/tmp/notes.txt",
			format:  "text",
			docType: "statement",
		},
		{
			name:    "unknown",
			input:   "document.pdf",
			format:  "pdf",
			docType: "statement",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := InferMetadata(tc.input)
			if got.Format != tc.format {
				t.Errorf("Format = %q, want %q", got.Format, tc.format)
			}
			if got.DocType != tc.docType {
				t.Errorf("DocType = %q, want %q", got.DocType, tc.docType)
			}
			if got.Period != tc.period {
				t.Errorf("Period = %q, want %q", got.Period, tc.period)
			}
		})
	}
}
