package models

import "time"

// ReviewStatus ist der Bearbeitungsstand eines Gutachtens.
type ReviewStatus string

const (
	ReviewPending    ReviewStatus = "pending"
	ReviewInProgress ReviewStatus = "in_progress"
	ReviewCompleted  ReviewStatus = "completed"
	ReviewDeclined   ReviewStatus = "declined"
)

// Valid prüft, ob der Status bekannt ist.
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewPending, ReviewInProgress, ReviewCompleted, ReviewDeclined:
		return true
	}
	return false
}

// reviewTransitions listet die erlaubten Folgezustände. Gleicher Zustand ist immer erlaubt,
// außer in den Endzuständen.
var reviewTransitions = map[ReviewStatus][]ReviewStatus{
	ReviewPending:    {ReviewPending, ReviewInProgress, ReviewCompleted, ReviewDeclined},
	ReviewInProgress: {ReviewInProgress, ReviewCompleted, ReviewDeclined},
	ReviewCompleted:  {},
	ReviewDeclined:   {},
}

// CanTransitionTo meldet, ob der Übergang s -> next zulässig ist.
func (s ReviewStatus) CanTransitionTo(next ReviewStatus) bool {
	for _, allowed := range reviewTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Recommendation ist das Votum des Gutachters.
type Recommendation string

const (
	RecommendAccept         Recommendation = "accept"
	RecommendMinorRevisions Recommendation = "minor_revisions"
	RecommendMajorRevisions Recommendation = "major_revisions"
	RecommendReject         Recommendation = "reject"
)

// Valid prüft, ob das Votum bekannt ist.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendAccept, RecommendMinorRevisions, RecommendMajorRevisions, RecommendReject:
		return true
	}
	return false
}

// SubmissionReview ist die Zuweisung eines Gutachters zu einer Einreichung samt Votum.
// (submission_id, reviewer_id) ist eindeutig.
type SubmissionReview struct {
	Base

	SubmissionID string `json:"submission_id" gorm:"type:uuid;not null;uniqueIndex:idx_submission_reviews_pair"`
	ReviewerID   string `json:"reviewer_id" gorm:"type:uuid;not null;uniqueIndex:idx_submission_reviews_pair;index"`

	Status         ReviewStatus    `json:"status" gorm:"type:varchar(32);index;not null;default:'pending'"`
	Recommendation *Recommendation `json:"recommendation" gorm:"type:varchar(32)"`
	// Feedback sieht der Autor, PrivateNotes nur die Redaktion
	Feedback     string `json:"feedback,omitempty" gorm:"type:text"`
	PrivateNotes string `json:"private_notes,omitempty" gorm:"type:text"`

	AssignedAt  time.Time  `json:"assigned_at" gorm:"not null"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RemindedAt  *time.Time `json:"reminded_at,omitempty"`

	Reviewer   *Profile    `json:"reviewer,omitempty" gorm:"foreignKey:ReviewerID;references:ID"`
	Submission *Submission `json:"submission,omitempty" gorm:"foreignKey:SubmissionID;references:ID"`
}

// TableName gibt explizit den Tabellennamen an.
func (SubmissionReview) TableName() string {
	return "submission_reviews"
}
