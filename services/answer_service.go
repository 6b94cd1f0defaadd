package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/sbb/models"
)

// AnswerService implements the lifecycle of answers attached to a question.
type AnswerService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAnswerService creates a new AnswerService instance.
func NewAnswerService(db *gorm.DB, log *zap.Logger) *AnswerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnswerService{db: db, log: log.Named("answer")}
}

// Create attaches a new answer to question.
func (s *AnswerService) Create(ctx context.Context, question *models.Question, content string, author *models.User) (*models.Answer, error) {
	if question == nil {
		return nil, errors.Wrap(ErrNotFound, "answer without question")
	}
	a := models.Answer{
		Content:    content,
		CreateDate: time.Now(),
		QuestionID: question.ID,
	}
	if author != nil {
		a.AuthorID = &author.ID
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&a).Error; err != nil {
		return nil, errors.Wrapf(err, "create answer for question %d", question.ID)
	}
	a.Author = author

	s.log.Info("answer created", zap.Uint("id", a.ID), zap.Uint("question_id", question.ID), zap.Stringp("author", authorName(author)))
	return &a, nil
}

// GetAnswer loads one answer with its author.
func (s *AnswerService) GetAnswer(ctx context.Context, id uint) (*models.Answer, error) {
	var a models.Answer
	err := s.db.WithContext(ctx).Preload("Author").First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "answer %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load answer %d", id)
	}
	return &a, nil
}

// Modify overwrites content and stamps the modification time.
func (s *AnswerService) Modify(ctx context.Context, a *models.Answer, content string) error {
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.Answer{}).Where("id = ?", a.ID).
		Updates(map[string]interface{}{
			"content":     content,
			"modify_date": now,
		}).Error; err != nil {
		return errors.Wrapf(err, "modify answer %d", a.ID)
	}
	a.Content = content
	a.ModifyDate = &now

	s.log.Info("answer modified", zap.Uint("id", a.ID))
	return nil
}

// Delete removes the answer and its voter rows.
func (s *AnswerService) Delete(ctx context.Context, a *models.Answer) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM answer_voters WHERE answer_id = ?", a.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Answer{}, a.ID).Error
	})
	if err != nil {
		return errors.Wrapf(err, "delete answer %d", a.ID)
	}

	s.log.Info("answer deleted", zap.Uint("id", a.ID), zap.Uint("question_id", a.QuestionID))
	return nil
}

// Vote adds user to the voter set. Voting twice is a no-op.
func (s *AnswerService) Vote(ctx context.Context, a *models.Answer, user *models.User) error {
	if user == nil {
		return errors.Wrap(ErrUnauthorized, "vote without user")
	}
	target := models.Answer{ID: a.ID}
	if err := s.db.WithContext(ctx).Model(&target).Omit("Voters.*").Association("Voters").Append(user); err != nil {
		return errors.Wrapf(err, "vote answer %d", a.ID)
	}
	s.log.Debug("answer voted", zap.Uint("id", a.ID), zap.String("voter", user.Username))
	return nil
}

// VoterCount returns the size of the voter set.
func (s *AnswerService) VoterCount(ctx context.Context, a *models.Answer) (int64, error) {
	counts, err := s.VoterCounts(ctx, a.ID)
	if err != nil {
		return 0, err
	}
	return counts[a.ID], nil
}

// VoterCounts returns voter set sizes keyed by answer id. Ids without votes are absent.
func (s *AnswerService) VoterCounts(ctx context.Context, ids ...uint) (map[uint]int64, error) {
	return voterCounts(ctx, s.db, "answer_voters", "answer_id", ids)
}
