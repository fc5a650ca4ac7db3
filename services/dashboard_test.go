package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
)

func TestDashboardStats(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	dash := NewDashboardService(f.db, zaptest.NewLogger(t))

	empty, err := dash.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), empty.TotalSubmissions)
	assert.Equal(t, int64(0), empty.Submissions[models.SubmissionAccepted])
	assert.Equal(t, ReviewCompletion{}, empty.Reviews)

	createSubmission(t, f.db, f.author.ID, models.SubmissionAccepted)
	second := createProfile(t, f.db, "Dr. Huda Ali", "huda@example.org")
	r1, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)
	_, err = f.svc.AssignReviewer(ctx, f.sub.ID, second.ID, "editor-1")
	require.NoError(t, err)
	_, err = f.svc.SubmitReview(ctx, r1.ID, models.RecommendAccept, "", "")
	require.NoError(t, err)

	require.NoError(t, f.db.Create(&models.Article{Title: "Published", Slug: "published", PublishedAt: &testNow}).Error)
	require.NoError(t, f.db.Create(&models.Article{Title: "Draft", Slug: "draft"}).Error)

	stats, err := dash.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalSubmissions)
	assert.Equal(t, int64(1), stats.Submissions[models.SubmissionUnderReview])
	assert.Equal(t, int64(1), stats.Submissions[models.SubmissionAccepted])
	assert.Equal(t, int64(0), stats.Submissions[models.SubmissionPending])
	assert.Equal(t, ReviewCompletion{Total: 2, Completed: 1, Percent: 50}, stats.Reviews)
	assert.Equal(t, int64(1), stats.OpenReviews)
	assert.Equal(t, int64(1), stats.Published)
	assert.Equal(t, int64(1), stats.Drafts)
}

func TestSubmissionProgress(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	dash := NewDashboardService(f.db, zaptest.NewLogger(t))
	lonely := createSubmission(t, f.db, f.author.ID, models.SubmissionPending)

	review, err := f.svc.AssignReviewer(ctx, f.sub.ID, f.reviewer.ID, "editor-1")
	require.NoError(t, err)
	_, err = f.svc.SubmitReview(ctx, review.ID, models.RecommendAccept, "", "")
	require.NoError(t, err)

	rows, err := dash.SubmissionProgress(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := map[string]SubmissionProgress{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	assert.Equal(t, ReviewCompletion{Total: 1, Completed: 1, Percent: 100}, byID[f.sub.ID].ReviewCompletion)
	assert.Equal(t, models.SubmissionUnderReview, byID[f.sub.ID].Status)
	assert.Equal(t, ReviewCompletion{}, byID[lonely.ID].ReviewCompletion)
}
