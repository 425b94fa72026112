// Package docstore stores uploaded case documents and hands back an opaque
// reference the rest of the system never interprets.
package docstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

type Mode string

const (
	ModeLocal       Mode = "local"
	ModeGCS         Mode = "gcs"
	ModeGCSEmulator Mode = "gcs_emulator"
)

func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return ModeLocal, nil
	case ModeLocal, ModeGCS, ModeGCSEmulator:
		return m, nil
	default:
		return "", fmt.Errorf("invalid DOCUMENT_STORAGE_MODE=%q (allowed: %q, %q, %q)", raw, ModeLocal, ModeGCS, ModeGCSEmulator)
	}
}

type Store interface {
	// Put writes the document under key and returns its reference.
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	// Open reads a document by the reference Put returned.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Mode() Mode
}

type Config struct {
	Mode         Mode
	LocalDir     string
	Bucket       string
	EmulatorHost string
}

// ObjectKey builds the storage key for a case document.
func ObjectKey(caseID, filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "document.pdf"
	}
	return path.Join("cases", caseID, name)
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".tif"), strings.HasSuffix(s, ".tiff"):
		return "image/tiff"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	case strings.HasSuffix(s, ".txt"):
		return "text/plain"
	default:
		return ""
	}
}
