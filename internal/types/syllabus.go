package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SyllabusStatusUploaded   = "uploaded"
	SyllabusStatusProcessing = "processing"
	SyllabusStatusProcessed  = "processed"
	SyllabusStatusFailed     = "failed"
)

type Syllabus struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ClassID      uuid.UUID `gorm:"type:uuid;not null;index" json:"class_id"`
	Class        *Class    `gorm:"constraint:OnDelete:CASCADE;foreignKey:ClassID;references:ID" json:"class,omitempty"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	OriginalName string    `gorm:"column:original_name;not null" json:"original_name"`
	MimeType     string    `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes    int64     `gorm:"column:size_bytes" json:"size_bytes"`
	StorageKey   string    `gorm:"column:storage_key" json:"storage_key"`
	FileURL      string    `gorm:"column:file_url" json:"file_url"`
	// Plain text pulled out of the document at upload time. Kept so a class
	// can be reprocessed without re-downloading the original file.
	RawText   string         `gorm:"column:raw_text;type:text" json:"-"`
	Status    string         `gorm:"column:status;not null;default:'uploaded'" json:"status"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Syllabus) TableName() string { return "syllabus" }
