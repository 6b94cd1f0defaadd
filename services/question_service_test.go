package services

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/sbb/models"
)

func TestQuestionCreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")

	q, err := f.questions.Create(ctx, "Hello", "World", alice)
	require.NoError(t, err)
	assert.NotZero(t, q.ID)
	assert.Nil(t, q.ModifyDate)

	got, err := f.questions.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Subject)
	require.NotNil(t, got.Author)
	assert.Equal(t, "alice", got.Author.Username)
	assert.Nil(t, got.ModifyDate)
	assert.True(t, got.IsAuthoredBy("alice"))
	assert.False(t, got.IsAuthoredBy("bob"))

	_, err = f.questions.GetQuestion(ctx, q.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuestionModify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	q, err := f.questions.Create(ctx, "Hello", "World", alice)
	require.NoError(t, err)

	require.NoError(t, f.questions.Modify(ctx, q, "Hello again", "Changed"))

	got, err := f.questions.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello again", got.Subject)
	assert.Equal(t, "Changed", got.Content)
	require.NotNil(t, got.ModifyDate)
	assert.False(t, got.ModifyDate.Before(got.CreateDate))
	assert.WithinDuration(t, q.CreateDate, got.CreateDate, time.Second)
}

func TestQuestionVoteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	q, err := f.questions.Create(ctx, "Hello", "World", alice)
	require.NoError(t, err)

	require.NoError(t, f.questions.Vote(ctx, q, bob))
	require.NoError(t, f.questions.Vote(ctx, q, bob))

	n, err := f.questions.VoterCount(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, f.questions.Vote(ctx, q, alice))
	n, err = f.questions.VoterCount(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// voting never touches the voter's own row
	var users int64
	require.NoError(t, f.db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(2), users)
}

func TestQuestionDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	q, err := f.questions.Create(ctx, "Hello", "World", alice)
	require.NoError(t, err)
	a, err := f.answers.Create(ctx, q, "an answer", bob)
	require.NoError(t, err)
	require.NoError(t, f.questions.Vote(ctx, q, bob))
	require.NoError(t, f.answers.Vote(ctx, a, alice))

	require.NoError(t, f.questions.Delete(ctx, q))

	_, err = f.questions.GetQuestion(ctx, q.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.answers.GetAnswer(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var rows int64
	require.NoError(t, f.db.Table("question_voters").Count(&rows).Error)
	assert.Zero(t, rows)
	require.NoError(t, f.db.Table("answer_voters").Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestGetListPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		f.ask(t, fmt.Sprintf("question %02d", i), alice, base.Add(time.Duration(i)*time.Minute))
	}

	first, err := f.questions.GetList(ctx, 0, "")
	require.NoError(t, err)
	assert.Len(t, first.Items, PageSize)
	assert.Equal(t, int64(12), first.Total)
	assert.Equal(t, 2, first.TotalPages)
	assert.Equal(t, "question 11", first.Items[0].Subject)
	for i := 1; i < len(first.Items); i++ {
		assert.False(t, first.Items[i].CreateDate.After(first.Items[i-1].CreateDate))
	}

	second, err := f.questions.GetList(ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, "question 00", second.Items[1].Subject)

	beyond, err := f.questions.GetList(ctx, 5, "")
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, int64(12), beyond.Total)

	negative, err := f.questions.GetList(ctx, -3, "")
	require.NoError(t, err)
	assert.Equal(t, 0, negative.Page)
	assert.Len(t, negative.Items, PageSize)
}

func TestGetListKeywordSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	base := time.Now().Add(-time.Hour)

	bySubject := f.ask(t, "golang generics", alice, base)
	byAnswers := f.ask(t, "unrelated", alice, base.Add(time.Minute))
	byAuthor := f.ask(t, "another", bob, base.Add(2*time.Minute))
	f.ask(t, "nothing here", alice, base.Add(3*time.Minute))

	for i := 0; i < 3; i++ {
		_, err := f.answers.Create(ctx, byAnswers, fmt.Sprintf("try golang %d", i), bob)
		require.NoError(t, err)
	}

	page, err := f.questions.GetList(ctx, 0, "golang")
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, byAnswers.ID, page.Items[0].ID)
	assert.Equal(t, bySubject.ID, page.Items[1].ID)

	// answer author names match too, and each question appears once
	page, err = f.questions.GetList(ctx, 0, "bob")
	require.NoError(t, err)
	ids := map[uint]int{}
	for _, q := range page.Items {
		ids[q.ID]++
	}
	assert.Equal(t, map[uint]int{byAnswers.ID: 1, byAuthor.ID: 1}, ids)

	// preloaded answers come back in creation order
	require.Len(t, page.Items[1].Answers, 3)
	assert.Equal(t, "try golang 0", page.Items[1].Answers[0].Content)
	require.NotNil(t, page.Items[1].Answers[0].Author)
	assert.Equal(t, "bob", page.Items[1].Answers[0].Author.Username)

	page, err = f.questions.GetList(ctx, 0, "zzz")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Total)
}

func TestGetListKeywordIsCaseSensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	hello := f.ask(t, "Hello World", alice, time.Now())

	page, err := f.questions.GetList(ctx, 0, "hello")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Total)

	page, err = f.questions.GetList(ctx, 0, "Hello")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, hello.ID, page.Items[0].ID)

	// wildcard characters are matched literally
	page, err = f.questions.GetList(ctx, 0, "H%o")
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = f.questions.GetList(ctx, 0, "ALICE")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestGetListHugePageIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice")
	f.ask(t, "only one", alice, time.Now())

	for _, p := range []int{maxPage, maxPage + 1, math.MaxInt} {
		page, err := f.questions.GetList(ctx, p, "")
		require.NoError(t, err)
		assert.Empty(t, page.Items, "page %d", p)
		assert.Equal(t, int64(1), page.Total)
		assert.Equal(t, p, page.Page)
	}
}

func TestQuestionWithoutAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q, err := f.questions.Create(ctx, "orphan", "no owner", nil)
	require.NoError(t, err)

	got, err := f.questions.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Author)
	assert.False(t, got.IsAuthoredBy(""))
	assert.False(t, got.IsAuthoredBy("alice"))
}
