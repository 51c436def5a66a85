package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateFile keeps f.ID when set, so callers can retry an insert safely.
// A taken id yields ErrDuplicateFile.
func (r *Repository) CreateFile(ctx context.Context, f *File) (uuid.UUID, error) {
	if err := r.db.WithContext(ctx).Create(f).Error; err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, ErrDuplicateFile
		}
		return uuid.Nil, err
	}
	return f.ID, nil
}

func (r *Repository) GetFile(ctx context.Context, id uuid.UUID) (*File, error) {
	f := &File{}
	if err := r.db.WithContext(ctx).First(f, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return f, nil
}

// ListFilesByOwner returns the owner's files in no particular order.
func (r *Repository) ListFilesByOwner(ctx context.Context, owner string) ([]*File, error) {
	res := make([]*File, 0)
	return res, r.db.WithContext(ctx).Where("owner_id = ?", owner).Find(&res).Error
}

// CreateShare returns ErrDuplicateCode when the access code is already used.
func (r *Repository) CreateShare(ctx context.Context, s *Share) (uuid.UUID, error) {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, ErrDuplicateCode
		}
		return uuid.Nil, err
	}
	return s.ID, nil
}

func (r *Repository) GetShareByCode(ctx context.Context, code string) (*Share, error) {
	s := &Share{}
	if err := r.db.WithContext(ctx).Where("access_code = ?", code).First(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// ListSharesByFile is the lookup behind idx_shares_file, the shares-by-file index.
func (r *Repository) ListSharesByFile(ctx context.Context, fileID uuid.UUID) ([]*Share, error) {
	res := make([]*Share, 0)
	return res, r.db.WithContext(ctx).Where("file_id = ?", fileID).Find(&res).Error
}
