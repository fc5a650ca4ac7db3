package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
)

// DashboardService liefert die Kennzahlen für das Redaktions-Dashboard.
type DashboardService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewDashboardService erstellt eine neue Instanz des DashboardService.
func NewDashboardService(db *gorm.DB, logger *zap.Logger) *DashboardService {
	return &DashboardService{DB: db, Logger: logger}
}

// Stats sind die Zähler der Übersichtskarten.
type Stats struct {
	Submissions      map[models.SubmissionStatus]int64 `json:"submissions"`
	TotalSubmissions int64                             `json:"total_submissions"`
	Reviews          ReviewCompletion                  `json:"reviews"`
	OpenReviews      int64                             `json:"open_reviews"`
	Published        int64                             `json:"published_articles"`
	Drafts           int64                             `json:"draft_articles"`
}

// SubmissionProgress ist eine Zeile der Fortschrittsliste.
type SubmissionProgress struct {
	ID        string                  `json:"id"`
	Title     string                  `json:"title"`
	Status    models.SubmissionStatus `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
	ReviewCompletion
}

// Stats zählt Einreichungen je Status, Gutachten und Artikel.
func (d *DashboardService) Stats(ctx context.Context) (*Stats, error) {
	db := d.DB.WithContext(ctx)
	stats := &Stats{Submissions: make(map[models.SubmissionStatus]int64, len(models.SubmissionStatuses))}
	for _, st := range models.SubmissionStatuses {
		stats.Submissions[st] = 0
	}

	var rows []struct {
		Status models.SubmissionStatus
		Count  int64
	}
	if err := db.Model(&models.Submission{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		d.Logger.Error("Failed to count submissions", zap.Error(err))
		return nil, err
	}
	for _, r := range rows {
		stats.Submissions[r.Status] = r.Count
		stats.TotalSubmissions += r.Count
	}

	var total, completed int64
	if err := db.Model(&models.SubmissionReview{}).Count(&total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.SubmissionReview{}).Where("status = ?", models.ReviewCompleted).Count(&completed).Error; err != nil {
		return nil, err
	}
	stats.Reviews = completion(total, completed)
	if err := db.Model(&models.SubmissionReview{}).
		Where("status IN ?", []models.ReviewStatus{models.ReviewPending, models.ReviewInProgress}).
		Count(&stats.OpenReviews).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.Article{}).Where("published_at IS NOT NULL").Count(&stats.Published).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Article{}).Where("published_at IS NULL").Count(&stats.Drafts).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// SubmissionProgress liefert je Einreichung den Anteil abgeschlossener Gutachten, neueste zuerst.
func (d *DashboardService) SubmissionProgress(ctx context.Context) ([]SubmissionProgress, error) {
	var rows []struct {
		ID        string
		Title     string
		Status    models.SubmissionStatus
		CreatedAt time.Time
		Total     int64
		Completed int64
	}
	err := d.DB.WithContext(ctx).
		Table("submissions AS s").
		Select(`s.id, s.title, s.status, s.created_at,
			COUNT(r.id) AS total,
			COALESCE(SUM(CASE WHEN r.status = ? THEN 1 ELSE 0 END), 0) AS completed`, models.ReviewCompleted).
		Joins("LEFT JOIN submission_reviews AS r ON r.submission_id = s.id").
		Group("s.id, s.title, s.status, s.created_at").
		Order("s.created_at desc").
		Scan(&rows).Error
	if err != nil {
		d.Logger.Error("Failed to load submission progress", zap.Error(err))
		return nil, err
	}

	out := make([]SubmissionProgress, 0, len(rows))
	for _, r := range rows {
		out = append(out, SubmissionProgress{
			ID:               r.ID,
			Title:            r.Title,
			Status:           r.Status,
			CreatedAt:        r.CreatedAt,
			ReviewCompletion: completion(r.Total, r.Completed),
		})
	}
	return out, nil
}
