package audit

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/54b3r/finrag-go/internal/logging"
)

func TestSanitiseKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key, value, want string
	}{
		{"GOOGLE_API_KEY", "AIza-secret", "set"},
		{"GOOGLE_API_KEY", "", "unset"},
		{"UNIDOC_LICENSE_API_KEY", "lic", "set"},
		{"FINRAG_API_KEY", "token", "set"},
		{"CHUNK_MAX", "30", "30"},
		{"MODEL_PROVIDER", "", "unset"},
	}
	for _, tt := range tests {
		if got := SanitiseKey(tt.key, tt.value); got != tt.want {
			t.Errorf("SanitiseKey(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.want)
		}
	}
}

func TestSanitiseConfigPath(t *testing.T) {
	t.Parallel()

	if got := sanitiseConfigPath(""); got != "none" {
		t.Errorf("expected 'none', got %q", got)
	}
	if got := sanitiseConfigPath("/tmp/config.yaml"); got != "/tmp/config.yaml" {
		t.Errorf("expected '/tmp/config.yaml', got %q", got)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "/" {
		p := home + "/.finrag/config.yaml"
		if got := sanitiseConfigPath(p); got != "~/.finrag/config.yaml" {
			t.Errorf("expected '~/.finrag/config.yaml', got %q", got)
		}
	}
}

func TestLogCommandStart_RedactsSecrets(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "AIza-very-secret")
	t.Setenv("RAG_TOP_K", "3")

	var buf bytes.Buffer
	LogCommandStart(logging.NewWithWriter(&buf, "info", "json"), "ask", "")

	out := buf.String()
	if strings.Contains(out, "AIza-very-secret") {
		t.Fatalf("secret value leaked into audit log: %s", out)
	}
	if !strings.Contains(out, `"GOOGLE_API_KEY":"set"`) {
		t.Errorf("expected GOOGLE_API_KEY presence marker, got %s", out)
	}
	if !strings.Contains(out, `"RAG_TOP_K":"3"`) {
		t.Errorf("expected RAG_TOP_K value, got %s", out)
	}
}
