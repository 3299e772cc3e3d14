// Package blob stores uploaded image content on local disk or in an
// S3-compatible bucket.
package blob

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const maxExtLen = 16

var namePattern = regexp.MustCompile(`^[0-9]+-[0-9a-f-]{36}(\.[a-z0-9.]*)?$`)

// NewFileName generates a storage name of the form <unix-millis>-<uuid><ext>.
// Only the extension of original survives, lowercased and reduced to [a-z0-9.].
func NewFileName(now time.Time, original string) string {
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString(), cleanExt(original))
}

func cleanExt(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) <= 1 || len(out) > maxExtLen {
		return ""
	}
	return out
}

// ValidName reports whether name could have been produced by NewFileName.
// Anything else, including path traversal attempts, is rejected before
// touching storage.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// DetectContentType sniffs the leading bytes of r. The returned reader
// yields the full content, sniffed prefix included.
func DetectContentType(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, err
	}
	head = head[:n]
	mt := mimetype.Detect(head)
	ct, _, _ := strings.Cut(mt.String(), ";")
	return ct, io.MultiReader(bytes.NewReader(head), r), nil
}
