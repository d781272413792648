package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

// capture redirects stdout around fn and returns what was printed.
func capture(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestLevels_TagAndMessageAppear(t *testing.T) {
	cases := []struct {
		level string
		fn    func(tag, msg string)
	}{
		{"INFO", Info},
		{"OK", Success},
		{"WARN", Warn},
		{"ERROR", Error},
	}
	for _, c := range cases {
		out := capture(t, func() { c.fn("ESI", "fetching orders") })
		if !strings.Contains(out, c.level) {
			t.Errorf("%s: level missing from %q", c.level, out)
		}
		if !strings.Contains(out, "[ESI]") || !strings.Contains(out, "fetching orders") {
			t.Errorf("%s: tag or message missing from %q", c.level, out)
		}
	}
}

func TestBanner_EmptyVersionFallsBackToDev(t *testing.T) {
	out := capture(t, func() { Banner("") })
	if !strings.Contains(out, "dev") {
		t.Errorf("banner without version = %q, want dev fallback", out)
	}
	out = capture(t, func() { Banner("v0.3.1") })
	if !strings.Contains(out, "v0.3.1") {
		t.Errorf("banner = %q, want version string", out)
	}
}

func TestSectionAndStats(t *testing.T) {
	out := capture(t, func() {
		Section("Refine")
		Stats("sources", 15)
	})
	if !strings.Contains(out, "Refine") {
		t.Errorf("section name missing from %q", out)
	}
	if !strings.Contains(out, "sources") || !strings.Contains(out, "15") {
		t.Errorf("stat line missing from %q", out)
	}
}
