// Package storage stores uploaded evidence, profile photos and banners.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Kind selects the folder an object is stored under.
type Kind string

const (
	KindProfile    Kind = "profiles"
	KindBanner     Kind = "banners"
	KindSubmission Kind = "submissions"
)

// ErrObjectNotFound is returned by Delete when the object is already gone.
var ErrObjectNotFound = errors.New("storage: object not found")

// Client abstracts object storage for dependency injection and testing.
// Upload returns the object reference that is persisted on the owning row;
// Delete accepts that same reference.
type Client interface {
	Upload(ctx context.Context, kind Kind, filename, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeFilename removes special characters from filenames and limits length.
func sanitizeFilename(filename string) string {
	sanitized := unsafeChars.ReplaceAllString(filename, "_")

	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}

	if sanitized == "" || sanitized == "." || sanitized == ".." {
		sanitized = "file"
	}

	return sanitized
}

// objectName builds "<kind>/<unix>_<rand>_<filename>". The random segment keeps
// concurrent uploads of the same filename from overwriting each other.
func objectName(kind Kind, filename string) string {
	return fmt.Sprintf("%s/%d_%s_%s",
		kind,
		time.Now().Unix(),
		uuid.New().String()[:8],
		sanitizeFilename(filename),
	)
}
