package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// setupTestDB erstellt eine SQLite-In-Memory-Datenbank. Eine Verbindung, damit alle
// Queries dieselbe Datenbank sehen.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type sentMail struct {
	To      []string
	Subject string
	Body    string
}

// recordingNotifier merkt sich alle verschickten Mails.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, to []string, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (n *recordingNotifier) Sent() []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMail(nil), n.sent...)
}

// memStore ist ein BlobStore im Speicher.
type memStore struct {
	objects map[string][]byte
	err     error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.objects[key] = data
	return "https://files.example.org/journal/" + key, nil
}

var errBoom = errors.New("boom")

func createProfile(t *testing.T, db *gorm.DB, name, email string) *models.Profile {
	t.Helper()
	p := &models.Profile{FullName: name, Email: email}
	require.NoError(t, db.Create(p).Error)
	return p
}

func grantRole(t *testing.T, db *gorm.DB, userID string, role models.Role) {
	t.Helper()
	require.NoError(t, db.Create(&models.UserRole{UserID: userID, Role: role}).Error)
}

func createSubmission(t *testing.T, db *gorm.DB, authorID string, status models.SubmissionStatus) *models.Submission {
	t.Helper()
	sub := &models.Submission{
		UserID:   authorID,
		Title:    "Outcomes of early excision in pediatric burns",
		Authors:  "A. Saleh, M. Al-Harazi",
		Abstract: "Retrospective cohort of 212 patients.",
		Category: "Burns",
		Status:   status,
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

type reviewFixture struct {
	db       *gorm.DB
	svc      *ReviewService
	notifier *recordingNotifier
	author   *models.Profile
	reviewer *models.Profile
	sub      *models.Submission
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	db := setupTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewReviewService(db, notifier, Mails{PortalURL: "https://journal.example.org"}, zaptest.NewLogger(t))
	svc.now = func() time.Time { return testNow }

	author := createProfile(t, db, "Amal Saleh", "author@example.org")
	reviewer := createProfile(t, db, "Dr. Khaled Noman", "reviewer@example.org")
	grantRole(t, db, reviewer.ID, models.RoleReviewer)

	return &reviewFixture{
		db:       db,
		svc:      svc,
		notifier: notifier,
		author:   author,
		reviewer: reviewer,
		sub:      createSubmission(t, db, author.ID, models.SubmissionPending),
	}
}

func (f *reviewFixture) submissionStatus(t *testing.T) models.SubmissionStatus {
	t.Helper()
	var sub models.Submission
	require.NoError(t, f.db.First(&sub, "id = ?", f.sub.ID).Error)
	return sub.Status
}
