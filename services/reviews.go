package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/metrics"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
)

// ReviewService vermittelt zwischen Einreichungen und Gutachtern und verfolgt den
// Fortschritt jedes Gutachtens.
type ReviewService struct {
	DB       *gorm.DB
	Notifier Notifier
	Mails    Mails
	Logger   *zap.Logger

	now func() time.Time
}

// NewReviewService erstellt eine neue Instanz des ReviewService.
func NewReviewService(db *gorm.DB, notifier Notifier, mails Mails, logger *zap.Logger) *ReviewService {
	return &ReviewService{DB: db, Notifier: notifier, Mails: mails, Logger: logger, now: time.Now}
}

// ReviewCompletion fasst den Fortschritt der Gutachten einer Einreichung zusammen.
type ReviewCompletion struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Percent   int   `json:"percent"`
}

func completion(total, completed int64) ReviewCompletion {
	c := ReviewCompletion{Total: total, Completed: completed}
	if total > 0 {
		c.Percent = int(math.Round(float64(completed) * 100 / float64(total)))
	}
	return c
}

// AssignReviewer weist einer Einreichung einen Gutachter zu und setzt die Einreichung auf
// under_review. Anlegen und Statuswechsel laufen in einer Transaktion. Eine zweite
// Zuweisung desselben Gutachters liefert ErrAlreadyAssigned.
func (s *ReviewService) AssignReviewer(ctx context.Context, submissionID, reviewerID, assignedBy string) (*models.SubmissionReview, error) {
	if submissionID == "" || reviewerID == "" {
		return nil, invalidInput("submission and reviewer required")
	}
	if uuid.Validate(reviewerID) != nil {
		return nil, invalidInput("reviewer id must be a UUID")
	}
	if err := checkID(submissionID, "submission"); err != nil {
		return nil, err
	}
	log := s.Logger.With(zap.String("submission_id", submissionID), zap.String("reviewer_id", reviewerID))

	var sub models.Submission
	review := &models.SubmissionReview{
		SubmissionID: submissionID,
		ReviewerID:   reviewerID,
		Status:       models.ReviewPending,
		AssignedAt:   s.now(),
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, "id = ?", submissionID).Error; err != nil {
			return notFound(err, "submission")
		}
		if err := tx.Create(review).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyAssigned
			}
			return err
		}
		// bewusst unbedingt, auch wenn die Einreichung schon weiter ist
		return setSubmissionStatus(tx, &sub, models.SubmissionUnderReview, assignedBy, "reviewer assigned")
	})
	switch {
	case errors.Is(err, ErrAlreadyAssigned):
		metrics.ReviewerAssignments.WithLabelValues("conflict").Inc()
		log.Info("Reviewer already assigned")
		return nil, err
	case err != nil:
		metrics.ReviewerAssignments.WithLabelValues("error").Inc()
		if !errors.Is(err, ErrNotFound) {
			log.Error("Failed to assign reviewer", zap.Error(err))
		}
		return nil, err
	}

	metrics.ReviewerAssignments.WithLabelValues("assigned").Inc()
	log.Info("Reviewer assigned", zap.String("review_id", review.ID), zap.String("assigned_by", assignedBy))

	var reviewer models.Profile
	if err := s.DB.WithContext(ctx).First(&reviewer, "id = ?", reviewerID).Error; err == nil {
		review.Reviewer = &reviewer
		subject, body := s.Mails.ReviewerAssigned(&sub)
		notify(ctx, s.Notifier, s.Logger, &reviewer, subject, body)
	} else {
		log.Warn("Reviewer profile not found, skipping notification", zap.Error(err))
	}
	return review, nil
}

// Get lädt ein Gutachten mit Gutachter und Einreichung.
func (s *ReviewService) Get(ctx context.Context, reviewID string) (*models.SubmissionReview, error) {
	if err := checkID(reviewID, "review"); err != nil {
		return nil, err
	}
	var review models.SubmissionReview
	err := s.DB.WithContext(ctx).
		Preload("Reviewer").
		Preload("Submission").
		First(&review, "id = ?", reviewID).Error
	if err != nil {
		return nil, notFound(err, "review")
	}
	return &review, nil
}

// StartReview markiert ein offenes Gutachten als in Bearbeitung, sobald es geöffnet wird.
// Andere Zustände bleiben unverändert.
func (s *ReviewService) StartReview(ctx context.Context, reviewID string) (*models.SubmissionReview, error) {
	review, err := s.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.Status != models.ReviewPending {
		return review, nil
	}
	if err := s.DB.WithContext(ctx).Model(&models.SubmissionReview{}).
		Where("id = ? AND status = ?", reviewID, models.ReviewPending).
		Update("status", models.ReviewInProgress).Error; err != nil {
		return nil, err
	}
	review.Status = models.ReviewInProgress
	return review, nil
}

// SubmitReview schließt ein Gutachten mit Votum ab. Feedback und private Notizen werden
// unverändert gespeichert. Geschrieben wird nur, wenn der Status seit dem Lesen gleich
// geblieben ist.
func (s *ReviewService) SubmitReview(ctx context.Context, reviewID string, recommendation models.Recommendation, feedback, privateNotes string) (*models.SubmissionReview, error) {
	if !recommendation.Valid() {
		return nil, invalidInput("recommendation must be one of accept, minor_revisions, major_revisions, reject")
	}
	review, err := s.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if !review.Status.CanTransitionTo(models.ReviewCompleted) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, review.Status, models.ReviewCompleted)
	}

	completedAt := s.now()
	res := s.DB.WithContext(ctx).Model(&models.SubmissionReview{}).
		Where("id = ? AND status = ?", reviewID, review.Status).
		Updates(map[string]any{
			"status":         models.ReviewCompleted,
			"recommendation": recommendation,
			"feedback":       feedback,
			"private_notes":  privateNotes,
			"completed_at":   completedAt,
		})
	if res.Error != nil {
		s.Logger.Error("Failed to submit review", zap.String("review_id", reviewID), zap.Error(res.Error))
		return nil, res.Error
	}
	// Status wurde zwischen Lesen und Schreiben geändert
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, review.Status)
	}

	metrics.ReviewsCompleted.WithLabelValues(string(recommendation)).Inc()
	s.Logger.Info("Review submitted",
		zap.String("review_id", reviewID),
		zap.String("submission_id", review.SubmissionID),
		zap.String("recommendation", string(recommendation)))

	review.Status = models.ReviewCompleted
	review.Recommendation = &recommendation
	review.Feedback = feedback
	review.PrivateNotes = privateNotes
	review.CompletedAt = &completedAt
	return review, nil
}

// UpdateReviewStatus setzt den Status gemäß der Übergangstabelle. completed ist nur über
// SubmitReview erreichbar, da ein Votum nötig ist.
func (s *ReviewService) UpdateReviewStatus(ctx context.Context, reviewID string, status models.ReviewStatus) (*models.SubmissionReview, error) {
	if !status.Valid() {
		return nil, invalidInput("unknown review status %q", status)
	}
	if status == models.ReviewCompleted {
		return nil, invalidInput("completing a review requires a recommendation")
	}
	review, err := s.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if !review.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, review.Status, status)
	}
	if review.Status == status {
		return review, nil
	}
	res := s.DB.WithContext(ctx).Model(&models.SubmissionReview{}).
		Where("id = ? AND status = ?", reviewID, review.Status).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, review.Status)
	}
	s.Logger.Info("Review status updated",
		zap.String("review_id", reviewID),
		zap.String("from", string(review.Status)),
		zap.String("to", string(status)))
	review.Status = status
	return review, nil
}

// Decline lehnt eine Zuweisung ab.
func (s *ReviewService) Decline(ctx context.Context, reviewID string) (*models.SubmissionReview, error) {
	return s.UpdateReviewStatus(ctx, reviewID, models.ReviewDeclined)
}

// RemoveReviewer löscht die Zuweisung. Der Status der Einreichung bleibt unverändert.
func (s *ReviewService) RemoveReviewer(ctx context.Context, reviewID string) error {
	if err := checkID(reviewID, "review"); err != nil {
		return err
	}
	res := s.DB.WithContext(ctx).Where("id = ?", reviewID).Delete(&models.SubmissionReview{})
	if res.Error != nil {
		s.Logger.Error("Failed to remove reviewer", zap.String("review_id", reviewID), zap.Error(res.Error))
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("review: %w", ErrNotFound)
	}
	s.Logger.Info("Reviewer removed", zap.String("review_id", reviewID))
	return nil
}

// ListForSubmission liefert alle Gutachten einer Einreichung mit Gutachtername.
func (s *ReviewService) ListForSubmission(ctx context.Context, submissionID string) ([]models.SubmissionReview, error) {
	var reviews []models.SubmissionReview
	if uuid.Validate(submissionID) != nil {
		return reviews, nil
	}
	err := s.DB.WithContext(ctx).
		Preload("Reviewer").
		Where("submission_id = ?", submissionID).
		Order("assigned_at asc").
		Find(&reviews).Error
	return reviews, err
}

// ListForReviewer liefert die Zuweisungen eines Gutachters mit der jeweiligen Einreichung
// in der Gutachtersicht.
func (s *ReviewService) ListForReviewer(ctx context.Context, reviewerID string) ([]models.SubmissionReview, error) {
	var reviews []models.SubmissionReview
	err := s.DB.WithContext(ctx).
		Preload("Submission").
		Where("reviewer_id = ?", reviewerID).
		Order("assigned_at desc").
		Find(&reviews).Error
	for i := range reviews {
		ReviewerView(&reviews[i])
	}
	return reviews, err
}

// ReviewerView entfernt die internen Notizen der Redaktion aus der mitgeladenen Einreichung.
func ReviewerView(review *models.SubmissionReview) *models.SubmissionReview {
	if review != nil && review.Submission != nil {
		review.Submission.AdminNotes = ""
	}
	return review
}

// CompletionForSubmission zählt abgeschlossene gegenüber allen Gutachten.
func (s *ReviewService) CompletionForSubmission(ctx context.Context, submissionID string) (ReviewCompletion, error) {
	var total, completed int64
	if uuid.Validate(submissionID) != nil {
		return ReviewCompletion{}, nil
	}
	base := s.DB.WithContext(ctx).Model(&models.SubmissionReview{}).Where("submission_id = ?", submissionID)
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return ReviewCompletion{}, err
	}
	if err := base.Session(&gorm.Session{}).Where("status = ?", models.ReviewCompleted).Count(&completed).Error; err != nil {
		return ReviewCompletion{}, err
	}
	return completion(total, completed), nil
}
