package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentStatus is the closed set of processing states. Only the
// processing pipeline transitions it after upload.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "PENDING"
	StatusProcessing DocumentStatus = "PROCESSING"
	StatusCompleted  DocumentStatus = "COMPLETED"
	StatusFailed     DocumentStatus = "FAILED"
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether a processing run can still move this status.
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Document struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;index" json:"owner_id"`

	FileName string         `gorm:"column:file_name;not null" json:"file_name"`
	FilePath string         `gorm:"column:file_path;not null" json:"file_path"`
	Status   DocumentStatus `gorm:"column:status;not null;default:'PENDING'" json:"status"`

	ProcessingError string         `gorm:"column:processing_error" json:"processing_error,omitempty"`
	Diagnostics     datatypes.JSON `gorm:"column:diagnostics;type:jsonb" json:"diagnostics,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Document) TableName() string { return "document" }

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = StatusPending
	}
	return nil
}
