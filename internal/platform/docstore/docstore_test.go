package docstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/yungbote/prism-backend/internal/platform/logger"
)

func TestLocalStorePutOpen(t *testing.T) {
	s, err := NewLocalStore(logger.Nop(), t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	key := ObjectKey("case-001", "jane_doe.pdf")
	ref, err := s.Put(context.Background(), key, strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ref != "local://cases/case-001/jane_doe.pdf" {
		t.Fatalf("ref: got=%s", ref)
	}
	rc, err := s.Open(context.Background(), ref)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "%PDF-1.4" {
		t.Fatalf("content: got=%q", b)
	}
}

func TestObjectKeyStripsDirectories(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd":        "cases/case-002/passwd",
		`C:\scans\john_smith.pdf`: "cases/case-002/john_smith.pdf",
		"":                        "cases/case-002/document.pdf",
	}
	for in, want := range cases {
		if got := ObjectKey("case-002", in); got != want {
			t.Fatalf("ObjectKey(%q): want=%s got=%s", in, want, got)
		}
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeLocal {
		t.Fatalf("default: got=%s err=%v", m, err)
	}
	if m, err := ParseMode("GCS_EMULATOR"); err != nil || m != ModeGCSEmulator {
		t.Fatalf("emulator: got=%s err=%v", m, err)
	}
	if _, err := ParseMode("s3"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestParseGSRef(t *testing.T) {
	b, k, err := parseGSRef("gs://docs/cases/case-001/a.pdf")
	if err != nil || b != "docs" || k != "cases/case-001/a.pdf" {
		t.Fatalf("got=%s,%s err=%v", b, k, err)
	}
	if _, _, err := parseGSRef("gs://docs"); err == nil {
		t.Fatalf("expected error for missing key")
	}
}
