package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/metrics"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
)

// ReminderService erinnert Gutachter an offene Gutachten.
type ReminderService struct {
	DB       *gorm.DB
	Notifier Notifier
	Mails    Mails
	Logger   *zap.Logger
	// After ist die Frist seit Zuweisung bzw. letzter Erinnerung
	After time.Duration

	now func() time.Time
}

// NewReminderService erstellt eine neue Instanz des ReminderService.
func NewReminderService(db *gorm.DB, notifier Notifier, mails Mails, after time.Duration, logger *zap.Logger) *ReminderService {
	return &ReminderService{DB: db, Notifier: notifier, Mails: mails, After: after, Logger: logger, now: time.Now}
}

// Due liefert die offenen Gutachten, für die eine Erinnerung fällig ist.
func (r *ReminderService) Due(ctx context.Context) ([]models.SubmissionReview, error) {
	cutoff := r.now().Add(-r.After)
	var reviews []models.SubmissionReview
	err := r.DB.WithContext(ctx).
		Preload("Reviewer").
		Preload("Submission").
		Where("status IN ?", []models.ReviewStatus{models.ReviewPending, models.ReviewInProgress}).
		Where("assigned_at < ?", cutoff).
		Where("reminded_at IS NULL OR reminded_at < ?", cutoff).
		Order("assigned_at asc").
		Find(&reviews).Error
	return reviews, err
}

// Run verschickt alle fälligen Erinnerungen und liefert deren Anzahl.
func (r *ReminderService) Run(ctx context.Context) (int, error) {
	reviews, err := r.Due(ctx)
	if err != nil {
		r.Logger.Error("Failed to load due reviews", zap.Error(err))
		return 0, err
	}

	sent := 0
	for i := range reviews {
		review := &reviews[i]
		log := r.Logger.With(zap.String("review_id", review.ID))
		if review.Reviewer == nil || review.Reviewer.Email == "" || review.Submission == nil {
			log.Warn("Skipping reminder, reviewer or submission missing")
			continue
		}

		subject, body := r.Mails.ReviewReminder(review.Submission, review)
		if err := r.Notifier.Notify(ctx, []string{review.Reviewer.Email}, subject, body); err != nil {
			log.Warn("Reminder failed", zap.Error(err))
			continue
		}
		if err := r.DB.WithContext(ctx).Model(&models.SubmissionReview{}).
			Where("id = ?", review.ID).
			UpdateColumn("reminded_at", r.now()).Error; err != nil {
			log.Error("Failed to mark reminder", zap.Error(err))
			continue
		}
		metrics.RemindersSent.Inc()
		sent++
	}

	if sent > 0 {
		r.Logger.Info("Review reminders sent", zap.Int("count", sent), zap.Int("due", len(reviews)))
	}
	return sent, nil
}
