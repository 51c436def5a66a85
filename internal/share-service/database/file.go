package database

import "github.com/google/uuid"

// File is the metadata of an uploaded object. Rows are never updated.
type File struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:(gen_random_uuid())"`
	StorageRef  string    `gorm:"not null"`
	Name        string    `gorm:"not null"`
	Size        int64
	ContentType string
	OwnerID     string `gorm:"not null;index:idx_files_owner"`
}
