package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/metrics"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
)

func TestAssignReviewer(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	before := testutil.ToFloat64(metrics.ReviewerAssignments.WithLabelValues("assigned"))

	review, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)

	assert.Equal(t, models.ReviewPending, review.Status)
	assert.True(t, review.AssignedAt.Equal(testNow))
	assert.Nil(t, review.CompletedAt)
	assert.Equal(t, models.SubmissionUnderReview, f.submissionStatus(t))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ReviewerAssignments.WithLabelValues("assigned")))

	var stored models.SubmissionReview
	require.NoError(t, f.db.First(&stored, "id = ?", review.ID).Error)
	assert.Equal(t, f.sub.ID, stored.SubmissionID)
	assert.Equal(t, f.reviewer.ID, stored.ReviewerID)

	var history []models.SubmissionStatusHistory
	require.NoError(t, f.db.Where("submission_id = ?", f.sub.ID).Find(&history).Error)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].OldStatus)
	assert.Equal(t, models.SubmissionPending, *history[0].OldStatus)
	assert.Equal(t, models.SubmissionUnderReview, history[0].NewStatus)
	assert.Equal(t, "editor-1", history[0].ChangedBy)

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"reviewer@example.org"}, sent[0].To)
	assert.Contains(t, sent[0].Subject, f.sub.Title)
}

func TestAssignReviewerTwiceIsRejected(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	_, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)

	_, err = f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	assert.ErrorIs(t, err, ErrAlreadyAssigned)

	var count int64
	require.NoError(t, f.db.Model(&models.SubmissionReview{}).
		Where("submission_id = ? AND reviewer_id = ?", f.sub.ID, f.reviewer.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Len(t, f.notifier.Sent(), 1)
}

func TestAssignReviewerSetsUnderReviewUnconditionally(t *testing.T) {
	f := newReviewFixture(t)
	require.NoError(t, f.db.Model(f.sub).Update("status", models.SubmissionAccepted).Error)

	_, err := f.svc.AssignReviewer(context.Background(), f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionUnderReview, f.submissionStatus(t))
}

func TestAssignReviewerAlreadyUnderReviewKeepsHistory(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	second := createProfile(t, f.db, "Dr. Huda Ali", "huda@example.org")

	_, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)
	_, err = f.svc.AssignReviewer(ctx, f.sub.ID, second.ID, "editor-1")
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.Model(&models.SubmissionStatusHistory{}).Where("submission_id = ?", f.sub.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAssignReviewerRollsBackOnStatusFailure(t *testing.T) {
	f := newReviewFixture(t)
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:fail_submissions", func(tx *gorm.DB) {
		if tx.Statement.Table == "submissions" {
			tx.AddError(errBoom)
		}
	}))

	_, err := f.svc.AssignReviewer(context.Background(), f.sub.ID, f.reviewer.ID, "editor-1")
	assert.ErrorIs(t, err, errBoom)

	var count int64
	require.NoError(t, f.db.Model(&models.SubmissionReview{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.notifier.Sent())

	var sub models.Submission
	require.NoError(t, f.db.First(&sub, "id = ?", f.sub.ID).Error)
	assert.Equal(t, models.SubmissionPending, sub.Status)
}

func TestAssignReviewerUnknownSubmission(t *testing.T) {
	f := newReviewFixture(t)
	_, err := f.svc.AssignReviewer(context.Background(), "00000000-0000-0000-0000-000000000000", f.reviewer.ID, "editor-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.AssignReviewer(context.Background(), "", f.reviewer.ID, "editor-1")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAssignReviewerNotificationFailureIsIgnored(t *testing.T) {
	f := newReviewFixture(t)
	f.notifier.err = errBoom

	review, err := f.svc.AssignReviewer(context.Background(), f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)
	assert.NotEmpty(t, review.ID)
}

func TestSubmitReview(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	review, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)

	completedAt := testNow.Add(72 * time.Hour)
	f.svc.now = func() time.Time { return completedAt }
	before := testutil.ToFloat64(metrics.ReviewsCompleted.WithLabelValues("minor_revisions"))

	feedback := "  Die Methodik ist solide.\nPlease clarify the graft take rates.  "
	notes := "Author may overlap with prior JYAPRBS paper."
	done, err := f.svc.SubmitReview(ctx, review.ID, models.RecommendMinorRevisions, feedback, notes)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewCompleted, done.Status)

	var stored models.SubmissionReview
	require.NoError(t, f.db.First(&stored, "id = ?", review.ID).Error)
	assert.Equal(t, models.ReviewCompleted, stored.Status)
	require.NotNil(t, stored.Recommendation)
	assert.Equal(t, models.RecommendMinorRevisions, *stored.Recommendation)
	assert.Equal(t, feedback, stored.Feedback)
	assert.Equal(t, notes, stored.PrivateNotes)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, stored.CompletedAt.Equal(completedAt))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ReviewsCompleted.WithLabelValues("minor_revisions")))
}

func TestSubmitReviewRejectsUnknownRecommendation(t *testing.T) {
	f := newReviewFixture(t)
	review, err := f.svc.AssignReviewer(context.Background(), f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)

	_, err = f.svc.SubmitReview(context.Background(), review.ID, models.Recommendation("maybe"), "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.SubmitReview(context.Background(), "missing", models.RecommendAccept, "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReviewStatusTransitions(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	review, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)

	// gleicher Status ist ein No-op
	same, err := f.svc.UpdateReviewStatus(ctx, review.ID, models.ReviewPending)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewPending, same.Status)

	_, err = f.svc.UpdateReviewStatus(ctx, review.ID, models.ReviewCompleted)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.UpdateReviewStatus(ctx, review.ID, models.ReviewStatus("archived"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	moved, err := f.svc.UpdateReviewStatus(ctx, review.ID, models.ReviewInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewInProgress, moved.Status)

	_, err = f.svc.UpdateReviewStatus(ctx, review.ID, models.ReviewPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.SubmitReview(ctx, review.ID, models.RecommendReject, "Insufficient follow-up.", "")
	require.NoError(t, err)

	for _, next := range []models.ReviewStatus{models.ReviewPending, models.ReviewInProgress, models.ReviewDeclined} {
		_, err = f.svc.UpdateReviewStatus(ctx, review.ID, next)
		assert.ErrorIs(t, err, ErrInvalidTransition, "completed -> %s", next)
	}
	_, err = f.svc.SubmitReview(ctx, review.ID, models.RecommendAccept, "", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDeclineReview(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	review, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)

	declined, err := f.svc.Decline(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewDeclined, declined.Status)

	_, err = f.svc.SubmitReview(ctx, review.ID, models.RecommendAccept, "", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.StartReview(ctx, review.ID)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewDeclined, got.Status)
}

func TestStartReview(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	review, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)

	started, err := f.svc.StartReview(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewInProgress, started.Status)
	require.NotNil(t, started.Reviewer)
	assert.Equal(t, "Dr. Khaled Noman", started.Reviewer.DisplayName())
	require.NotNil(t, started.Submission)
	assert.Equal(t, f.sub.Title, started.Submission.Title)

	again, err := f.svc.StartReview(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewInProgress, again.Status)

	_, err = f.svc.SubmitReview(ctx, review.ID, models.RecommendAccept, "", "")
	require.NoError(t, err)
	done, err := f.svc.StartReview(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewCompleted, done.Status)
}

func TestRemoveReviewer(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	review, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)

	other := createProfile(t, f.db, "Dr. Huda Ali", "huda@example.org")
	kept, err := f.svc.AssignReviewer(ctx, f.sub.ID, other.ID, "editor-1")
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveReviewer(ctx, review.ID))
	_, err = f.svc.Get(ctx, review.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := f.svc.ListForSubmission(ctx, f.sub.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].ID)
	assert.Equal(t, other.ID, list[0].ReviewerID)
	assert.Equal(t, models.SubmissionUnderReview, f.submissionStatus(t))

	assert.ErrorIs(t, f.svc.RemoveReviewer(ctx, review.ID), ErrNotFound)

	// nach dem Entfernen ist eine erneute Zuweisung möglich
	_, err = f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	assert.NoError(t, err)
}

func TestCompletionForSubmission(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	progress, err := f.svc.CompletionForSubmission(ctx, f.sub.ID)
	require.NoError(t, err)
	assert.Equal(t, ReviewCompletion{}, progress)

	first, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)
	_, err = f.svc.SubmitReview(ctx, first.ID, models.RecommendAccept, "Well written.", "")
	require.NoError(t, err)

	progress, err = f.svc.CompletionForSubmission(ctx, f.sub.ID)
	require.NoError(t, err)
	assert.Equal(t, ReviewCompletion{Total: 1, Completed: 1, Percent: 100}, progress)

	for _, name := range []string{"Dr. Huda Ali", "Dr. Omar Fadel"} {
		p := createProfile(t, f.db, name, "")
		_, err := f.svc.AssignReviewer(ctx, f.sub.ID, p.ID, "editor-1")
		require.NoError(t, err)
	}
	progress, err = f.svc.CompletionForSubmission(ctx, f.sub.ID)
	require.NoError(t, err)
	assert.Equal(t, ReviewCompletion{Total: 3, Completed: 1, Percent: 33}, progress)
}

func TestCompletionRounding(t *testing.T) {
	assert.Equal(t, 67, completion(3, 2).Percent)
	assert.Equal(t, 50, completion(2, 1).Percent)
	assert.Equal(t, 0, completion(0, 0).Percent)
}

func TestListReviews(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	second := createProfile(t, f.db, "", "second@example.org")

	_, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)
	f.svc.now = func() time.Time { return testNow.Add(time.Hour) }
	_, err = f.svc.AssignReviewer(ctx, f.sub.ID, second.ID, "editor-1")
	require.NoError(t, err)

	list, err := f.svc.ListForSubmission(ctx, f.sub.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Dr. Khaled Noman", list[0].Reviewer.DisplayName())
	assert.Equal(t, "second@example.org", list[1].Reviewer.DisplayName())

	mine, err := f.svc.ListForReviewer(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Submission)
	assert.Equal(t, f.sub.ID, mine[0].Submission.ID)
}

func TestAssignReviewerConcurrently(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
		}(i)
	}
	wg.Wait()

	var won, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case assert.ErrorIs(t, err, ErrAlreadyAssigned):
			conflicts++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, conflicts)

	var count int64
	require.NoError(t, f.db.Model(&models.SubmissionReview{}).Where("submission_id = ?", f.sub.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, f.db.Model(&models.SubmissionStatusHistory{}).Where("submission_id = ?", f.sub.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// changeStatusAfterRead setzt den Status des Gutachtens direkt nach dem ersten Lesen
// auf status, wie ein paralleler Request zwischen Lesen und Schreiben.
func changeStatusAfterRead(t *testing.T, db *gorm.DB, reviewID string, status models.ReviewStatus) {
	t.Helper()
	var done bool
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:concurrent_status", func(tx *gorm.DB) {
		if done || tx.Statement.Table != "submission_reviews" {
			return
		}
		done = true
		require.NoError(t, db.Model(&models.SubmissionReview{}).Where("id = ?", reviewID).Update("status", status).Error)
	}))
	t.Cleanup(func() { _ = db.Callback().Query().Remove("test:concurrent_status") })
}

func TestSubmitReviewKeepsConcurrentDecline(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	review, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)

	changeStatusAfterRead(t, f.db, review.ID, models.ReviewDeclined)
	_, err = f.svc.SubmitReview(ctx, review.ID, models.RecommendAccept, "Sound methods.", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	var stored models.SubmissionReview
	require.NoError(t, f.db.First(&stored, "id = ?", review.ID).Error)
	assert.Equal(t, models.ReviewDeclined, stored.Status)
	assert.Nil(t, stored.Recommendation)
	assert.Empty(t, stored.Feedback)
	assert.Nil(t, stored.CompletedAt)
}

func TestSubmitReviewOnlyOnce(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	review, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)

	// zweiter Submit liest noch in_progress, der erste hat bereits abgeschlossen
	require.NoError(t, f.db.Model(&models.SubmissionReview{}).Where("id = ?", review.ID).Update("status", models.ReviewInProgress).Error)
	changeStatusAfterRead(t, f.db, review.ID, models.ReviewCompleted)
	_, err = f.svc.SubmitReview(ctx, review.ID, models.RecommendReject, "Second opinion.", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	var stored models.SubmissionReview
	require.NoError(t, f.db.First(&stored, "id = ?", review.ID).Error)
	assert.Nil(t, stored.Recommendation)
	assert.Empty(t, stored.Feedback)
}

func TestUpdateReviewStatusKeepsConcurrentCompletion(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	review, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)

	changeStatusAfterRead(t, f.db, review.ID, models.ReviewCompleted)
	_, err = f.svc.Decline(ctx, review.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	var stored models.SubmissionReview
	require.NoError(t, f.db.First(&stored, "id = ?", review.ID).Error)
	assert.Equal(t, models.ReviewCompleted, stored.Status)
}

func TestReviewIDsMustBeUUIDs(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.StartReview(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Decline(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.RemoveReviewer(ctx, "not-a-uuid"), ErrNotFound)

	_, err = f.svc.AssignReviewer(ctx, "not-a-uuid", f.reviewer.ID, "editor-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.AssignReviewer(ctx, f.sub.ID, "dr-khaled", "editor-1")
	assert.ErrorIs(t, err, ErrInvalidInput)

	list, err := f.svc.ListForSubmission(ctx, "not-a-uuid")
	require.NoError(t, err)
	assert.Empty(t, list)
	progress, err := f.svc.CompletionForSubmission(ctx, "not-a-uuid")
	require.NoError(t, err)
	assert.Equal(t, ReviewCompletion{}, progress)
}

func TestListForReviewerHidesAdminNotes(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.Model(f.sub).Update("admin_notes", "Conflict of interest with co-author.").Error)
	_, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)

	mine, err := f.svc.ListForReviewer(ctx, f.reviewer.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Submission)
	assert.Equal(t, f.sub.Title, mine[0].Submission.Title)
	assert.Empty(t, mine[0].Submission.AdminNotes)

	// die Redaktion sieht die Notizen weiterhin
	var sub models.Submission
	require.NoError(t, f.db.First(&sub, "id = ?", f.sub.ID).Error)
	assert.Equal(t, "Conflict of interest with co-author.", sub.AdminNotes)
}
