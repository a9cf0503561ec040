package cmd

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/koopa0/atelier/internal/artifact"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    artifact.Kind
		wantErr bool
	}{
		{in: "component", want: artifact.KindComponent},
		{in: "code", want: artifact.KindComponent},
		{in: "CSS", want: artifact.KindStylesheet},
		{in: "stylesheet", want: artifact.KindStylesheet},
		{in: "html", want: artifact.KindMarkup},
		{in: "markup", want: artifact.KindMarkup},
		{in: "json", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseKind(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseKind(%q) succeeded, want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseKind(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDataURIFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swatch.png")
	payload := []byte{0x89, 'P', 'N', 'G'}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	uri, err := dataURIFromFile(path)
	if err != nil {
		t.Fatalf("dataURIFromFile: %v", err)
	}
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)
	if uri != want {
		t.Fatalf("uri = %q, want %q", uri, want)
	}
}

func TestDataURIFromFile_RejectsNonImage(t *testing.T) {
	if _, err := dataURIFromFile("notes.txt"); err == nil {
		t.Fatal("expected error for non-image extension")
	}
}

func TestDataURIFromFile_MissingFile(t *testing.T) {
	if _, err := dataURIFromFile(filepath.Join(t.TempDir(), "absent.png")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		t    time.Time
		want string
	}{
		{t: now.Add(-10 * time.Second), want: "just now"},
		{t: now.Add(-5 * time.Minute), want: "5 minutes ago"},
		{t: now.Add(-3 * time.Hour), want: "3 hours ago"},
		{t: now.Add(-48 * time.Hour), want: "2 days ago"},
	}
	for _, tt := range tests {
		if got := formatTime(tt.t); got != tt.want {
			t.Errorf("formatTime(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}

	old := now.Add(-30 * 24 * time.Hour)
	if got := formatTime(old); !strings.Contains(got, "-") {
		t.Errorf("formatTime(old) = %q, want absolute date", got)
	}
}

func TestMarkdownRendererFallback(t *testing.T) {
	var m *markdownRenderer
	if got := m.Render("plain"); got != "plain" {
		t.Fatalf("nil renderer returned %q", got)
	}
	empty := &markdownRenderer{}
	if got := empty.Render("plain"); got != "plain" {
		t.Fatalf("uninitialized renderer returned %q", got)
	}
}
