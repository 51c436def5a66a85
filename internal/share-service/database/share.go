package database

import (
	"time"

	"github.com/google/uuid"
)

type Share struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:(gen_random_uuid())"`
	FileID     uuid.UUID `gorm:"type:uuid;not null;index:idx_shares_file"`
	AccessCode string    `gorm:"not null;uniqueIndex:idx_shares_access_code"`
	CreatedBy  string    `gorm:"not null"`
	// ExpiresAt is reserved; nothing sets it yet.
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// Expired reports whether the share carries an expiry that has passed.
func (s *Share) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}
