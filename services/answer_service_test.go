package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	q := f.ask(t, "Hello", alice, time.Now().Add(-time.Minute))

	a, err := f.answers.Create(ctx, q, "Hi there", bob)
	require.NoError(t, err)
	assert.Equal(t, q.ID, a.QuestionID)
	assert.Nil(t, a.ModifyDate)

	got, err := f.answers.GetAnswer(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAuthoredBy("bob"))
	assert.False(t, got.IsAuthoredBy("alice"))

	require.NoError(t, f.answers.Modify(ctx, got, "Hi again"))
	got, err = f.answers.GetAnswer(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi again", got.Content)
	require.NotNil(t, got.ModifyDate)
	assert.False(t, got.ModifyDate.Before(got.CreateDate))

	require.NoError(t, f.answers.Vote(ctx, got, alice))
	require.NoError(t, f.answers.Vote(ctx, got, alice))
	n, err := f.answers.VoterCount(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, f.answers.Delete(ctx, got))
	_, err = f.answers.GetAnswer(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var rows int64
	require.NoError(t, f.db.Table("answer_voters").Count(&rows).Error)
	assert.Zero(t, rows)

	// the question survives
	_, err = f.questions.GetQuestion(ctx, q.ID)
	assert.NoError(t, err)
}

func TestAnswerVoterCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	q := f.ask(t, "Hello", alice, time.Now())

	a1, err := f.answers.Create(ctx, q, "one", alice)
	require.NoError(t, err)
	a2, err := f.answers.Create(ctx, q, "two", alice)
	require.NoError(t, err)
	require.NoError(t, f.answers.Vote(ctx, a1, alice))
	require.NoError(t, f.answers.Vote(ctx, a1, bob))

	counts, err := f.answers.VoterCounts(ctx, a1.ID, a2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[a1.ID])
	assert.Zero(t, counts[a2.ID])

	empty, err := f.answers.VoterCounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
