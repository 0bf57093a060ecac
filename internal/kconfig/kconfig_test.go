package kconfig

import (
	"strings"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestParseOverridesAndIgnoresCommentsAndBlankLines(t *testing.T) {
	input := `# comment line

fsimage = /var/ia32os/fs.img
terminals = 3
rtc_hz = 1024   # fastest permitted
log = /tmp/ia32os.log
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	want := Config{FSImagePath: "/var/ia32os/fs.img", Terminals: 3, DefaultHz: 1024, LogPath: "/tmp/ia32os.log"}
	if cfg != want {
		t.Fatalf("cfg = %+v, want %+v", cfg, want)
	}
}

func TestParseRejectsUnknownKey(t *testing.T) {
	if _, err := Parse(strings.NewReader("bogus = 1\n")); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestParseRejectsMissingEquals(t *testing.T) {
	if _, err := Parse(strings.NewReader("fsimage\n")); err == nil {
		t.Fatalf("expected error for missing '='")
	}
}
