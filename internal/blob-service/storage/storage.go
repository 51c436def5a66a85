package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

var (
	ErrCantCreateStorage = errors.New("can't create object storage dir")
	ErrNothingToSave     = errors.New("nothing to save")
	ErrIsNotAFile        = errors.New("object path is not a file")
	ErrInvalidRef        = errors.New("invalid object reference")
	ErrAlreadyExists     = errors.New("object already exists")
	ErrCantCreateObjDir  = errors.New("can't create object dir")
	ErrCantCreateObject  = errors.New("can't create object file")
	ErrCantWriteObject   = errors.New("can't write object file")
	ErrCantFindObject    = errors.New("can't find the object")
	ErrCantReadObject    = errors.New("can't read the object file")
	ErrCantPublishObject = errors.New("can't publish object file")
)

const tempSuffix = ".part"

type Storage struct {
	path string
	l    *log.Entry
}

func NewStorage(basePath string, l *log.Entry) (*Storage, error) {
	storagePath := path.Join(basePath, "objects")
	if err := os.MkdirAll(storagePath, 0o750); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCantCreateStorage, err)
	}
	return &Storage{path: storagePath, l: l.WithField("storage_base_path", storagePath)}, nil
}

// Open returns the stored object. The caller closes it.
func (s *Storage) Open(ref string) (*os.File, fs.FileInfo, error) {
	objPath, err := s.objectPath(ref)
	if err != nil {
		return nil, nil, err
	}
	info, err := os.Stat(objPath)
	if err != nil {
		s.l.WithField("ref", ref).WithError(err).Debug(ErrCantFindObject)
		return nil, nil, ErrCantFindObject
	}
	if !info.Mode().IsRegular() {
		return nil, nil, ErrIsNotAFile
	}
	f, err := os.Open(objPath)
	if err != nil {
		s.l.WithError(err).Error(ErrCantReadObject)
		return nil, nil, ErrCantReadObject
	}
	return f, info, nil
}

// Save writes the object once. A second write to the same ref fails with
// ErrAlreadyExists and leaves the first object untouched.
func (s *Storage) Save(ref string, file io.ReadCloser) error {
	if file == nil {
		return ErrNothingToSave
	}
	defer func(file io.ReadCloser) {
		if err := file.Close(); err != nil {
			s.l.WithError(err).Error("can't close request body")
		}
	}(file)

	objPath, err := s.objectPath(ref)
	if err != nil {
		return err
	}
	l := s.l.WithField("object_path", objPath)
	if _, err := os.Stat(objPath); err == nil {
		return ErrAlreadyExists
	}

	if err := os.MkdirAll(filepath.Dir(objPath), 0o750); err != nil {
		l.WithError(err).Error(ErrCantCreateObjDir)
		return ErrCantCreateObjDir
	}

	// Each writer gets its own temp file, so one left by a crash never blocks the ref.
	tmp, err := os.CreateTemp(filepath.Dir(objPath), ref+".*"+tempSuffix)
	if err != nil {
		l.WithError(err).Error(ErrCantCreateObject)
		return ErrCantCreateObject
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		l.WithError(err).Error(ErrCantWriteObject)
		return fmt.Errorf("%w: %w", ErrCantWriteObject, err)
	}
	if err := tmp.Close(); err != nil {
		l.WithError(err).Error(ErrCantWriteObject)
		return ErrCantWriteObject
	}
	// Link fails if the target exists, so concurrent writers can't overwrite.
	if err := os.Link(tmp.Name(), objPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrAlreadyExists
		}
		l.WithError(err).Error(ErrCantPublishObject)
		return ErrCantPublishObject
	}
	return nil
}

func (s *Storage) objectPath(ref string) (string, error) {
	if ref == "" || strings.ContainsAny(ref, `/\`) || ref == "." || ref == ".." {
		return "", ErrInvalidRef
	}
	if strings.HasSuffix(ref, tempSuffix) {
		return "", fmt.Errorf("%w: %s suffix is reserved", ErrInvalidRef, tempSuffix)
	}
	// two-level fan-out keeps directories small
	if len(ref) > 2 {
		return filepath.Join(s.path, ref[:2], ref), nil
	}
	return filepath.Join(s.path, ref), nil
}
