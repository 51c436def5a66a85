// Package access enforces who may read and write file records and mints and
// resolves share codes.
package access

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/konorlevich/file_share/internal/share-service/database"
	"github.com/konorlevich/file_share/internal/share-service/objectstore"
)

const (
	maxCodeAttempts = 3
	hydrateLimit    = 8
)

type MetaStorage interface {
	CreateFile(ctx context.Context, f *database.File) (uuid.UUID, error)
	GetFile(ctx context.Context, id uuid.UUID) (*database.File, error)
	ListFilesByOwner(ctx context.Context, owner string) ([]*database.File, error)
	CreateShare(ctx context.Context, s *database.Share) (uuid.UUID, error)
	GetShareByCode(ctx context.Context, code string) (*database.Share, error)
}

type ObjectStore interface {
	UploadSlot(ctx context.Context) (objectstore.Slot, error)
	DownloadURL(ctx context.Context, ref string) (string, error)
}

type Service struct {
	ms         MetaStorage
	obj        ObjectStore
	l          *log.Entry
	maxRetries uint64
	backOff    func() backoff.BackOff
	newCode    func() (string, error)
	validRef   func(string) bool
	now        func() time.Time
}

func NewService(ms MetaStorage, obj ObjectStore, maxRetries uint64, l *log.Entry) *Service {
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	return &Service{
		ms:         ms,
		obj:        obj,
		l:          l,
		maxRetries: maxRetries,
		backOff:    newBackOff,
		newCode:    NewAccessCode,
		validRef:   objectstore.ValidRef,
		now:        time.Now,
	}
}

// IssueUploadSlot returns a URL the caller pushes bytes to directly.
func (s *Service) IssueUploadSlot(ctx context.Context, caller Caller) (objectstore.Slot, error) {
	if !caller.Authenticated() {
		return objectstore.Slot{}, ErrUnauthenticated
	}
	l := s.l.WithField("user", caller)
	slot, err := retry(ctx, s, "upload_slot", func() (objectstore.Slot, error) {
		return s.obj.UploadSlot(ctx)
	})
	if err != nil {
		return objectstore.Slot{}, s.unavailable(l, "upload_slot", err)
	}
	l.WithField("storage_ref", slot.Ref).Debug("upload slot issued")
	return slot, nil
}

// RegisterFile records that in.StorageRef holds a file owned by the caller.
func (s *Service) RegisterFile(ctx context.Context, caller Caller, in FileInput) (uuid.UUID, error) {
	if !caller.Authenticated() {
		return uuid.Nil, ErrUnauthenticated
	}
	in, err := in.validate(s.validRef)
	if err != nil {
		return uuid.Nil, err
	}
	l := s.l.WithFields(log.Fields{"user": caller, "storage_ref": in.StorageRef})

	// The id is fixed up front: a retry after a lost acknowledgement hits the
	// primary key instead of inserting a second row.
	id := uuid.New()
	attempts := 0
	_, err = retry(ctx, s, "register_file", func() (uuid.UUID, error) {
		attempts++
		return s.ms.CreateFile(ctx, &database.File{
			ID:          id,
			StorageRef:  in.StorageRef,
			Name:        in.Name,
			Size:        in.Size,
			ContentType: in.ContentType,
			OwnerID:     string(caller),
		})
	}, database.ErrDuplicateFile)
	if errors.Is(err, database.ErrDuplicateFile) && attempts > 1 {
		err = s.confirmRegistered(ctx, id, caller, in)
	}
	if err != nil {
		return uuid.Nil, s.unavailable(l, "register_file", err)
	}
	l.WithField("file_id", id).Info("file registered")
	return id, nil
}

// confirmRegistered checks that the row behind a duplicate id is the one an
// earlier attempt wrote.
func (s *Service) confirmRegistered(ctx context.Context, id uuid.UUID, caller Caller, in FileInput) error {
	f, err := retry(ctx, s, "get_file", func() (*database.File, error) {
		return s.ms.GetFile(ctx, id)
	})
	if err != nil {
		return err
	}
	if f.OwnerID != string(caller) || f.StorageRef != in.StorageRef {
		return database.ErrDuplicateFile
	}
	return nil
}

// ListOwnedFiles returns the caller's files. Anonymous callers get an empty
// list, not an error.
func (s *Service) ListOwnedFiles(ctx context.Context, caller Caller) ([]FileView, error) {
	if !caller.Authenticated() {
		return []FileView{}, nil
	}
	l := s.l.WithField("user", caller)

	files, err := retry(ctx, s, "list_files", func() ([]*database.File, error) {
		return s.ms.ListFilesByOwner(ctx, string(caller))
	})
	if err != nil {
		return nil, s.unavailable(l, "list_files", err)
	}

	views := make([]FileView, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(hydrateLimit)
	for i, f := range files {
		eg.Go(func() error {
			u, err := s.downloadURL(egCtx, f.StorageRef)
			if err != nil {
				return err
			}
			views[i] = newFileView(f, u)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, s.unavailable(l, "list_files", err)
	}
	return views, nil
}

// CreateShare mints a new access code for a file the caller owns.
func (s *Service) CreateShare(ctx context.Context, caller Caller, fileID string) (string, error) {
	if !caller.Authenticated() {
		return "", ErrUnauthenticated
	}
	l := s.l.WithFields(log.Fields{"user": caller, "file_id": fileID})

	id, err := uuid.Parse(fileID)
	if err != nil {
		return "", ErrAccessDenied
	}
	file, err := retry(ctx, s, "get_file", func() (*database.File, error) {
		return s.ms.GetFile(ctx, id)
	}, database.ErrRecordNotFound)
	if err != nil {
		if errors.Is(err, database.ErrRecordNotFound) {
			return "", ErrAccessDenied
		}
		return "", s.unavailable(l, "get_file", err)
	}
	if file.OwnerID != string(caller) {
		l.Info("share refused: not the owner")
		return "", ErrAccessDenied
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return "", s.unavailable(l, "generate_code", err)
		}
		_, err = retry(ctx, s, "create_share", func() (uuid.UUID, error) {
			return s.ms.CreateShare(ctx, &database.Share{
				FileID:     file.ID,
				AccessCode: code,
				CreatedBy:  string(caller),
			})
		}, database.ErrDuplicateCode)
		if errors.Is(err, database.ErrDuplicateCode) {
			l.WithField("attempt", attempt).Warn("access code collision")
			continue
		}
		if err != nil {
			return "", s.unavailable(l, "create_share", err)
		}
		l.WithField("code", codePrefix(code)).Info("share created")
		return code, nil
	}
	return "", s.unavailable(l, "create_share", database.ErrDuplicateCode)
}

// ResolveShare looks a share up by code without any caller identity.
// Unknown codes, expired shares and shares whose file is gone all yield
// (nil, nil); only store failures are errors.
func (s *Service) ResolveShare(ctx context.Context, code string) (*FileView, error) {
	if code == "" || len(code) > maxCodeLength {
		return nil, nil
	}
	l := s.l.WithField("code", codePrefix(code))

	share, err := retry(ctx, s, "get_share", func() (*database.Share, error) {
		return s.ms.GetShareByCode(ctx, code)
	}, database.ErrRecordNotFound)
	if errors.Is(err, database.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.unavailable(l, "get_share", err)
	}
	if share.Expired(s.now()) {
		return nil, nil
	}

	file, err := retry(ctx, s, "get_file", func() (*database.File, error) {
		return s.ms.GetFile(ctx, share.FileID)
	}, database.ErrRecordNotFound)
	if errors.Is(err, database.ErrRecordNotFound) {
		l.WithField("file_id", share.FileID).Warn("share points to a missing file")
		return nil, nil
	}
	if err != nil {
		return nil, s.unavailable(l, "get_file", err)
	}

	u, err := s.downloadURL(ctx, file.StorageRef)
	if err != nil {
		return nil, s.unavailable(l, "download_url", err)
	}
	v := newFileView(file, u)
	v.OwnerID = ""
	return &v, nil
}

func (s *Service) downloadURL(ctx context.Context, ref string) (*string, error) {
	u, err := retry(ctx, s, "download_url", func() (string, error) {
		return s.obj.DownloadURL(ctx, ref)
	}, objectstore.ErrObjectNotFound)
	if errors.Is(err, objectstore.ErrObjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
