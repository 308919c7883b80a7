package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event categories. Extraction only ever produces the first six; "other" and
// "google_calendar" exist at the storage layer for manual entries and synced
// events.
const (
	EventTypeAssignment     = "assignment"
	EventTypeExam           = "exam"
	EventTypeQuiz           = "quiz"
	EventTypeProject        = "project"
	EventTypeReading        = "reading"
	EventTypeDeadline       = "deadline"
	EventTypeOther          = "other"
	EventTypeGoogleCalendar = "google_calendar"
)

// Provenance tags recorded in extraction_method.
const (
	ExtractionMethodLLM          = "llm"
	ExtractionMethodUpload       = "upload_workflow"
	ExtractionMethodManual       = "manual"
	ExtractionMethodGoogleSync   = "google_calendar_sync"
	ExtractionMethodGoogleImport = "google_calendar_import"
)

// CalendarEvent is the stored shape of an extracted (or manually created)
// event. DueDate is a plain "YYYY-MM-DD" string and DueTime a plain "HH:MM"
// string; they are split on their delimiters for display rather than parsed
// into a timezone-bearing datetime.
type CalendarEvent struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User             *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ClassID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"class_id"`
	Class            *Class         `gorm:"constraint:OnDelete:CASCADE;foreignKey:ClassID;references:ID" json:"class,omitempty"`
	SyllabusID       *uuid.UUID     `gorm:"type:uuid;index" json:"syllabus_id,omitempty"`
	Syllabus         *Syllabus      `gorm:"constraint:OnDelete:SET NULL;foreignKey:SyllabusID;references:ID" json:"syllabus,omitempty"`
	Title            string         `gorm:"column:title;not null" json:"title"`
	Description      string         `gorm:"column:description" json:"description"`
	EventType        string         `gorm:"column:event_type;not null" json:"event_type"`
	DueDate          string         `gorm:"column:due_date;not null;index" json:"due_date"`
	DueTime          *string        `gorm:"column:due_time" json:"due_time,omitempty"`
	ConfidenceScore  *float64       `gorm:"column:confidence_score" json:"confidence_score,omitempty"`
	SourceText       string         `gorm:"column:source_text;type:text" json:"source_text"`
	ExtractionMethod string         `gorm:"column:extraction_method;not null" json:"extraction_method"`
	IsExported       bool           `gorm:"column:is_exported;not null;default:false" json:"is_exported"`
	ExportedAt       *time.Time     `gorm:"column:exported_at" json:"exported_at,omitempty"`
	ICSUID           *string        `gorm:"column:ics_uid" json:"ics_uid,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CalendarEvent) TableName() string { return "calendar_event" }
