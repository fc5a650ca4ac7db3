package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base enthält die gemeinsamen Spalten aller Tabellen mit UUID-Primärschlüssel.
type Base struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate vergibt eine UUID, falls noch keine gesetzt ist.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// All listet alle Modelle für die Auto-Migration.
func All() []any {
	return []any{
		&Profile{},
		&UserRole{},
		&Submission{},
		&SubmissionReview{},
		&SubmissionStatusHistory{},
		&Article{},
	}
}
