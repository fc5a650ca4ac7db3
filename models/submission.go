package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubmissionStatus ist der redaktionelle Status einer Einreichung.
type SubmissionStatus string

const (
	SubmissionPending           SubmissionStatus = "pending"
	SubmissionUnderReview       SubmissionStatus = "under_review"
	SubmissionRevisionRequested SubmissionStatus = "revision_requested"
	SubmissionAccepted          SubmissionStatus = "accepted"
	SubmissionRejected          SubmissionStatus = "rejected"
)

// SubmissionStatuses in der Reihenfolge, in der das Dashboard sie anzeigt.
var SubmissionStatuses = []SubmissionStatus{
	SubmissionPending,
	SubmissionUnderReview,
	SubmissionRevisionRequested,
	SubmissionAccepted,
	SubmissionRejected,
}

// Valid prüft, ob der Status bekannt ist.
func (s SubmissionStatus) Valid() bool {
	for _, known := range SubmissionStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal meldet, ob über die Einreichung final entschieden wurde.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionAccepted || s == SubmissionRejected
}

// Submission repräsentiert ein eingereichtes Manuskript.
type Submission struct {
	Base

	// Eigentümer (Autor)
	UserID string `json:"user_id" gorm:"type:uuid;not null;index"`

	// Manuskript-Metadaten
	Title       string                      `json:"title" gorm:"not null"`
	Authors     string                      `json:"authors" gorm:"not null"`
	Abstract    string                      `json:"abstract" gorm:"type:text;not null"`
	Category    string                      `json:"category,omitempty" gorm:"index"`
	Keywords    datatypes.JSONSlice[string] `json:"keywords,omitempty"`
	CoverLetter string                      `json:"cover_letter,omitempty" gorm:"type:text"`

	// Dateien im Blob-Storage
	ManuscriptURL    string `json:"manuscript_url,omitempty"`
	SupplementaryURL string `json:"supplementary_url,omitempty"`

	// Redaktion
	Status     SubmissionStatus `json:"status" gorm:"type:varchar(32);index;not null;default:'pending'"`
	AdminNotes string           `json:"admin_notes,omitempty" gorm:"type:text"`

	Reviews []SubmissionReview `json:"reviews,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName gibt explizit den Tabellennamen an.
func (Submission) TableName() string {
	return "submissions"
}

// SubmissionStatusHistory protokolliert jede Statusänderung einer Einreichung.
type SubmissionStatusHistory struct {
	ID           uint              `json:"id" gorm:"primaryKey"`
	SubmissionID string            `json:"submission_id" gorm:"type:uuid;not null;index"`
	OldStatus    *SubmissionStatus `json:"old_status,omitempty" gorm:"type:varchar(32)"`
	NewStatus    SubmissionStatus  `json:"new_status" gorm:"type:varchar(32);not null"`
	ChangedBy    string            `json:"changed_by,omitempty"`
	Reason       string            `json:"reason,omitempty" gorm:"type:text"`
	CreatedAt    time.Time         `json:"created_at"`
}

// TableName gibt explizit den Tabellennamen an.
func (SubmissionStatusHistory) TableName() string {
	return "submission_status_history"
}
