package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/sbb/config"
	"github.com/cppla/sbb/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := config.AppConfig{
		DBDriver:   "sqlite",
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		LogLevel:   "silent",
	}
	db, err := config.OpenDatabase(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	db        *gorm.DB
	users     *UserService
	questions *QuestionService
	answers   *AnswerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	return &fixture{
		db:        db,
		users:     NewUserService(db, nil),
		questions: NewQuestionService(db, nil),
		answers:   NewAnswerService(db, nil),
	}
}

func (f *fixture) signup(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := f.users.Signup(context.Background(), SignupInput{
		Username:  name,
		Email:     name + "@example.com",
		Password1: "pw-" + name,
		Password2: "pw-" + name,
	})
	require.NoError(t, err)
	return u
}

// ask creates a question and moves its create date so ordering is deterministic.
func (f *fixture) ask(t *testing.T, subject string, author *models.User, at time.Time) *models.Question {
	t.Helper()
	q, err := f.questions.Create(context.Background(), subject, "content of "+subject, author)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.Question{}).Where("id = ?", q.ID).Update("create_date", at).Error)
	q.CreateDate = at
	return q
}
