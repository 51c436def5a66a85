package access

import (
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"

	"github.com/konorlevich/file_share/internal/share-service/database"
)

const (
	defaultContentType = "application/octet-stream"
	maxNameLength      = 1024
)

type FileInput struct {
	StorageRef  string `json:"storageRef"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// FileView is a file record with a freshly resolved download URL.
// URL is nil when the object store can't resolve the reference.
type FileView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	OwnerID     string    `json:"ownerId,omitempty"`
	URL         *string   `json:"url"`
}

// validate checks shape only. Size and content type are what the client
// declared and are not compared with the stored bytes.
func (in FileInput) validate(validRef func(string) bool) (FileInput, error) {
	if !validRef(in.StorageRef) {
		return in, fmt.Errorf("%w: malformed storage reference", ErrValidation)
	}
	if strings.TrimSpace(in.Name) == "" {
		return in, fmt.Errorf("%w: name is empty", ErrValidation)
	}
	if len(in.Name) > maxNameLength {
		return in, fmt.Errorf("%w: name is longer than %d bytes", ErrValidation, maxNameLength)
	}
	if in.Size < 0 {
		return in, fmt.Errorf("%w: size is negative", ErrValidation)
	}
	if in.ContentType == "" {
		in.ContentType = defaultContentType
		return in, nil
	}
	if _, _, err := mime.ParseMediaType(in.ContentType); err != nil {
		return in, fmt.Errorf("%w: content type %q: %w", ErrValidation, in.ContentType, err)
	}
	return in, nil
}

func newFileView(f *database.File, url *string) FileView {
	return FileView{
		ID:          f.ID,
		Name:        f.Name,
		Size:        f.Size,
		ContentType: f.ContentType,
		OwnerID:     f.OwnerID,
		URL:         url,
	}
}
