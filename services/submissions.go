package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/metrics"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/storage"
)

// BlobStore speichert hochgeladene Dateien und liefert deren URL.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// FileKind unterscheidet Manuskript und Zusatzmaterial.
type FileKind string

const (
	FileManuscript    FileKind = "manuscript"
	FileSupplementary FileKind = "supplementary"
)

// SubmissionService verwaltet Einreichungen und deren Dateien.
type SubmissionService struct {
	DB       *gorm.DB
	Store    BlobStore
	Notifier Notifier
	Mails    Mails
	Logger   *zap.Logger
}

// NewSubmissionService erstellt eine neue Instanz des SubmissionService.
func NewSubmissionService(db *gorm.DB, store BlobStore, notifier Notifier, mails Mails, logger *zap.Logger) *SubmissionService {
	return &SubmissionService{DB: db, Store: store, Notifier: notifier, Mails: mails, Logger: logger}
}

// CreateSubmissionInput sind die Formularfelder einer neuen Einreichung.
type CreateSubmissionInput struct {
	Title       string   `json:"title" binding:"required"`
	Authors     string   `json:"authors" binding:"required"`
	Abstract    string   `json:"abstract" binding:"required"`
	Category    string   `json:"category"`
	Keywords    []string `json:"keywords"`
	CoverLetter string   `json:"cover_letter"`
}

// SubmissionFilter schränkt die Redaktionsliste ein.
type SubmissionFilter struct {
	Status   models.SubmissionStatus
	Category string
	Limit    int
	Offset   int
}

// Create legt eine neue Einreichung im Status pending an.
func (s *SubmissionService) Create(ctx context.Context, userID string, in CreateSubmissionInput) (*models.Submission, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Authors = strings.TrimSpace(in.Authors)
	in.Abstract = strings.TrimSpace(in.Abstract)
	switch {
	case uuid.Validate(userID) != nil:
		return nil, invalidInput("user id must be a UUID")
	case in.Title == "":
		return nil, invalidInput("title required")
	case in.Authors == "":
		return nil, invalidInput("authors required")
	case in.Abstract == "":
		return nil, invalidInput("abstract required")
	}

	var keywords []string
	for _, k := range in.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}

	sub := &models.Submission{
		UserID:      userID,
		Title:       in.Title,
		Authors:     in.Authors,
		Abstract:    in.Abstract,
		Category:    strings.TrimSpace(in.Category),
		Keywords:    keywords,
		CoverLetter: in.CoverLetter,
		Status:      models.SubmissionPending,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		return tx.Create(&models.SubmissionStatusHistory{
			SubmissionID: sub.ID,
			NewStatus:    models.SubmissionPending,
			ChangedBy:    userID,
		}).Error
	})
	if err != nil {
		s.Logger.Error("Failed to create submission", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	metrics.SubmissionsCreated.Inc()
	s.Logger.Info("Submission created", zap.String("id", sub.ID), zap.String("user_id", userID))
	return sub, nil
}

// Get lädt eine Einreichung.
func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	if err := checkID(id, "submission"); err != nil {
		return nil, err
	}
	var sub models.Submission
	if err := s.DB.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "submission")
	}
	return &sub, nil
}

// ListByUser liefert die Einreichungen eines Autors, neueste zuerst.
func (s *SubmissionService) ListByUser(ctx context.Context, userID string) ([]models.Submission, error) {
	var subs []models.Submission
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&subs).Error
	return subs, err
}

// List liefert Einreichungen für die Redaktion.
func (s *SubmissionService) List(ctx context.Context, f SubmissionFilter) ([]models.Submission, error) {
	query := s.DB.WithContext(ctx).Model(&models.Submission{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}

	var subs []models.Submission
	err := query.Order("created_at desc").Find(&subs).Error
	return subs, err
}

// UpdateStatus setzt die redaktionelle Entscheidung und benachrichtigt den Autor.
func (s *SubmissionService) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus, changedBy, reason string) (*models.Submission, error) {
	if !status.Valid() {
		return nil, invalidInput("unknown submission status %q", status)
	}
	if err := checkID(id, "submission"); err != nil {
		return nil, err
	}

	var sub models.Submission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, "id = ?", id).Error; err != nil {
			return notFound(err, "submission")
		}
		return setSubmissionStatus(tx, &sub, status, changedBy, reason)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Submission status updated",
		zap.String("id", id), zap.String("status", string(status)), zap.String("changed_by", changedBy))

	if author, err := s.author(ctx, &sub); err == nil {
		subject, body := s.Mails.StatusChanged(&sub)
		notify(ctx, s.Notifier, s.Logger, author, subject, body)
	}
	return &sub, nil
}

// UpdateAdminNotes speichert die internen Notizen der Redaktion.
func (s *SubmissionService) UpdateAdminNotes(ctx context.Context, id, notes string) (*models.Submission, error) {
	if err := checkID(id, "submission"); err != nil {
		return nil, err
	}
	res := s.DB.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", id).Update("admin_notes", notes)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("submission: %w", ErrNotFound)
	}
	return s.Get(ctx, id)
}

// AttachFile lädt Manuskript oder Zusatzmaterial hoch und hinterlegt die URL.
func (s *SubmissionService) AttachFile(ctx context.Context, id string, kind FileKind, filename, contentType string, data []byte) (*models.Submission, error) {
	column := ""
	switch kind {
	case FileManuscript:
		column = "manuscript_url"
	case FileSupplementary:
		column = "supplementary_url"
	default:
		return nil, invalidInput("unknown file kind %q", kind)
	}
	if len(data) == 0 {
		return nil, invalidInput("empty file")
	}
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	key := storage.ObjectKey(fmt.Sprintf("submissions/%s/%s", sub.ID, kind), filename)
	log := s.Logger.With(zap.String("submission_id", sub.ID), zap.String("key", key))
	link, err := s.Store.Upload(ctx, key, contentType, data)
	if err != nil {
		log.Error("Upload failed", zap.Error(err))
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(sub).Update(column, link).Error; err != nil {
		log.Error("Failed to store file link", zap.Error(err))
		return nil, err
	}
	log.Info("Submission file uploaded", zap.String("kind", string(kind)), zap.Int("bytes", len(data)))
	return s.Get(ctx, id)
}

// History liefert den Statusverlauf einer Einreichung.
func (s *SubmissionService) History(ctx context.Context, id string) ([]models.SubmissionStatusHistory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	var entries []models.SubmissionStatusHistory
	err := s.DB.WithContext(ctx).
		Where("submission_id = ?", id).
		Order("created_at asc, id asc").
		Find(&entries).Error
	return entries, err
}

// AuthorFeedback ist die Sicht des Autors auf ein Gutachten (single blind: ohne Gutachter, ohne private Notizen).
type AuthorFeedback struct {
	Status         models.ReviewStatus    `json:"status"`
	Recommendation *models.Recommendation `json:"recommendation,omitempty"`
	Feedback       string                 `json:"feedback,omitempty"`
	CompletedAt    string                 `json:"completed_at,omitempty"`
}

// FeedbackForAuthor liefert die abgeschlossenen Gutachten in der Autorensicht.
func (s *SubmissionService) FeedbackForAuthor(ctx context.Context, id string) ([]AuthorFeedback, error) {
	if err := checkID(id, "submission"); err != nil {
		return nil, err
	}
	var reviews []models.SubmissionReview
	err := s.DB.WithContext(ctx).
		Where("submission_id = ? AND status = ?", id, models.ReviewCompleted).
		Order("completed_at asc").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	out := make([]AuthorFeedback, 0, len(reviews))
	for _, r := range reviews {
		fb := AuthorFeedback{Status: r.Status, Recommendation: r.Recommendation, Feedback: r.Feedback}
		if r.CompletedAt != nil {
			fb.CompletedAt = r.CompletedAt.UTC().Format("2006-01-02")
		}
		out = append(out, fb)
	}
	return out, nil
}

func (s *SubmissionService) author(ctx context.Context, sub *models.Submission) (*models.Profile, error) {
	var author models.Profile
	if err := s.DB.WithContext(ctx).First(&author, "id = ?", sub.UserID).Error; err != nil {
		return nil, err
	}
	return &author, nil
}
