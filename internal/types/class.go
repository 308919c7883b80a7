package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Class struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Name       string         `gorm:"column:name;not null" json:"name"`
	Code       string         `gorm:"column:code" json:"code"`
	Instructor string         `gorm:"column:instructor" json:"instructor"`
	Term       string         `gorm:"column:term" json:"term"`
	Color      string         `gorm:"column:color" json:"color"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Class) TableName() string { return "class" }
