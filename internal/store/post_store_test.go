package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/dayplan/internal/model"
	"github.com/nhle/dayplan/tests/testutil"
)

func TestCreatePost_Status(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	draft, err := s.CreatePost(ctx, model.Post{UserID: alice, Topic: "time blocking"})
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusDraft, draft.Status)

	scheduled, err := s.CreatePost(ctx, model.Post{
		UserID: alice, Topic: "deep work", ScheduledAt: testutil.Ptr(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusPending, scheduled.Status)

	_, err = s.CreatePost(ctx, model.Post{UserID: alice})
	assert.ErrorIs(t, err, model.ErrInvalid)

	pending, err := s.ListPosts(ctx, alice, model.PostStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, scheduled.ID, pending[0].ID)
}

func TestClaimDuePosts(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	due, err := s.CreatePost(ctx, model.Post{UserID: alice, Topic: "due", ScheduledAt: testutil.Ptr(now.Add(-time.Minute))})
	require.NoError(t, err)
	_, err = s.CreatePost(ctx, model.Post{UserID: alice, Topic: "later", ScheduledAt: testutil.Ptr(now.Add(time.Hour))})
	require.NoError(t, err)
	_, err = s.CreatePost(ctx, model.Post{UserID: alice, Topic: "draft"})
	require.NoError(t, err)

	claimed, err := s.ClaimDuePosts(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, due.ID, claimed[0].ID)
	assert.Equal(t, model.PostStatusGenerating, claimed[0].Status)

	again, err := s.ClaimDuePosts(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, again, "a claimed post is not claimed twice")

	got, err := s.GetPost(ctx, alice, due.ID)
	require.NoError(t, err)
	require.NotNil(t, got.GenerationStartedAt)
}

func TestResetStalePosts_FailsAfterMaxRetries(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	start := time.Now().UTC()

	post, err := s.CreatePost(ctx, model.Post{UserID: alice, Topic: "stuck", ScheduledAt: testutil.Ptr(start.Add(-time.Hour))})
	require.NoError(t, err)

	for attempt := 1; attempt <= 3; attempt++ {
		claimAt := start.Add(time.Duration(attempt) * time.Hour)
		claimed, err := s.ClaimDuePosts(ctx, claimAt, 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1, "attempt %d", attempt)

		notYet, failedNotYet, err := s.ResetStalePosts(ctx, claimAt.Add(-time.Minute), 3)
		require.NoError(t, err)
		assert.Zero(t, notYet+failedNotYet, "fresh claims are not stale")

		reset, failed, err := s.ResetStalePosts(ctx, claimAt.Add(10*time.Minute), 3)
		require.NoError(t, err)

		got, err := s.GetPost(ctx, alice, post.ID)
		require.NoError(t, err)
		assert.Equal(t, attempt, got.RetryCount)
		assert.Nil(t, got.GenerationStartedAt)

		if attempt < 3 {
			assert.Equal(t, 1, reset)
			assert.Equal(t, 0, failed)
			assert.Equal(t, model.PostStatusPending, got.Status)
		} else {
			assert.Equal(t, 0, reset)
			assert.Equal(t, 1, failed)
			assert.Equal(t, model.PostStatusFailed, got.Status)
		}
	}
}

func TestPostGenerationOutcome(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	post, err := s.CreatePost(ctx, model.Post{UserID: alice, Topic: "routines"})
	require.NoError(t, err)

	err = s.CompletePostGeneration(ctx, alice, post.ID, "T", "B")
	assert.ErrorIs(t, err, model.ErrConflict, "only generating posts can be published")

	require.NoError(t, s.MarkPostGenerating(ctx, alice, post.ID, time.Now()))
	status, err := s.FailPostGeneration(ctx, alice, post.ID, "upstream 529", 2)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusDraft, status, "unscheduled posts return to draft")

	require.NoError(t, s.MarkPostGenerating(ctx, alice, post.ID, time.Now()))
	status, err = s.FailPostGeneration(ctx, alice, post.ID, "upstream 529", 2)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusFailed, status)

	require.NoError(t, s.MarkPostGenerating(ctx, alice, post.ID, time.Now()))
	require.NoError(t, s.CompletePostGeneration(ctx, alice, post.ID, "Routines that stick", "body"))

	got, err := s.GetPost(ctx, alice, post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusPublished, got.Status)
	assert.Equal(t, "Routines that stick", got.Title)
	assert.Empty(t, got.LastError)

	err = s.MarkPostGenerating(ctx, alice, post.ID, time.Now())
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestCreatePosts_AllOrNothing(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.CreatePosts(ctx, []model.Post{
		{UserID: alice, Topic: "first"},
		{UserID: alice, Topic: "  "},
		{UserID: alice, Topic: "third"},
	})
	require.ErrorIs(t, err, model.ErrInvalid)

	posts, err := s.ListPosts(ctx, alice, "")
	require.NoError(t, err)
	assert.Empty(t, posts)

	created, err := s.CreatePosts(ctx, []model.Post{
		{UserID: alice, Topic: "first"},
		{UserID: alice, Topic: "second"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "first", created[0].Topic)
	assert.Equal(t, model.PostStatusDraft, created[1].Status)
	assert.NotEqual(t, created[0].ID, created[1].ID)
}

func TestResetStalePosts_UnscheduledReturnsToDraft(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	start := time.Now().UTC()

	draft, err := s.CreatePost(ctx, model.Post{UserID: alice, Topic: "manual"})
	require.NoError(t, err)
	require.NoError(t, s.MarkPostGenerating(ctx, alice, draft.ID, start))

	reset, failed, err := s.ResetStalePosts(ctx, start.Add(time.Minute), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, reset)
	assert.Zero(t, failed)

	got, err := s.GetPost(ctx, alice, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PostStatusDraft, got.Status)
	assert.Equal(t, 1, got.RetryCount)
}
