// Package objectstore hands out upload and download URLs for raw file bytes.
// The bytes never pass through the share-service.
package objectstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrObjectNotFound = errors.New("object not found")

// Slot is a time-bounded upload URL and the reference the object will live at.
type Slot struct {
	URL string
	Ref string
}

type Store interface {
	UploadSlot(ctx context.Context) (Slot, error)
	// Stat returns ErrObjectNotFound when nothing is stored at ref.
	Stat(ctx context.Context, ref string) error
	// PresignDownload signs a read URL for ref without checking that it exists.
	PresignDownload(ctx context.Context, ref string) (string, error)
}

// DownloadURL checks that ref exists and returns a signed read URL for it.
func DownloadURL(ctx context.Context, s Store, ref string) (string, error) {
	if err := s.Stat(ctx, ref); err != nil {
		return "", err
	}
	return s.PresignDownload(ctx, ref)
}

func newRef() string {
	return uuid.NewString()
}

// ValidRef reports whether ref has the shape of a reference this package issues.
func ValidRef(ref string) bool {
	_, err := uuid.Parse(ref)
	return err == nil && len(ref) == 36
}
