package domains

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filterdesk/pkg/logger"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"example.com", "example.com", false},
		{"  Example.COM.  ", "example.com", false},
		{"sub.domain.example.org", "sub.domain.example.org", false},
		{"", "", true},
		{".", "", true},
		{"http://example.com", "", true},
		{"example.com/path", "", true},
		{"example.com:443", "", true},
		{"192.168.1.1", "", true},
		{"bad..name", "", true},
		{"not a domain", "", true},
	}

	for _, tt := range tests {
		got, err := Normalize(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Normalize(%q) should return error, got %q", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Normalize(%q) returned error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAllowed(t *testing.T) {
	approved := []string{"example.com", "golang.org"}
	tests := []struct {
		host string
		want bool
	}{
		{"example.com", true},
		{"www.example.com", true},
		{"cdn.example.com", true},
		{"WWW.GOLANG.ORG", true},
		{"example.org", false},
		{"", false},
		{"www.", false},
	}
	for _, tt := range tests {
		if got := Allowed(approved, tt.host); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
	if Allowed(nil, "example.com") {
		t.Error("empty allow-list must not allow anything")
	}
}

func TestParseListKeepsOrderAndSkipsNoise(t *testing.T) {
	input := strings.Join([]string{
		"\ufeff# approved domains",
		"b.example.com",
		"0.0.0.0 a.example.com # hosts style",
		"; comment",
		"// another comment",
		"B.EXAMPLE.COM",
		"bad..name a/domain",
		"c.example.com d.example.com",
		"",
	}, "\n")

	domains, stats, err := ParseList(strings.NewReader(input), ParseOptions{ListID: "test", Logger: logger.Discard(), ErrorLimit: 5})
	if err != nil {
		t.Fatalf("ParseList returned error: %v", err)
	}

	want := []string{"b.example.com", "a.example.com", "c.example.com", "d.example.com"}
	if strings.Join(domains, ",") != strings.Join(want, ",") {
		t.Errorf("ParseList domains = %v, want %v", domains, want)
	}
	if stats.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", stats.Duplicates)
	}
	if stats.Invalid != 2 {
		t.Errorf("Invalid = %d, want 2", stats.Invalid)
	}
	if stats.Domains != 4 {
		t.Errorf("Domains = %d, want 4", stats.Domains)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domains.txt")
	if err := os.WriteFile(path, []byte("example.com\ngo.dev\n"), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	domains, _, err := LoadFile(path, logger.Discard(), 0)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if len(domains) != 2 || domains[0] != "example.com" || domains[1] != "go.dev" {
		t.Errorf("LoadFile = %v", domains)
	}

	if _, _, err := LoadFile(filepath.Join(t.TempDir(), "missing.txt"), logger.Discard(), 0); err == nil {
		t.Error("LoadFile on a missing file should return error")
	}
}
