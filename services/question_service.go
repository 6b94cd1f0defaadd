package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/sbb/models"
)

// maxPage keeps page*PageSize inside int.
const maxPage = math.MaxInt / PageSize

// QuestionService implements listing, search and lifecycle of questions.
type QuestionService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewQuestionService creates a new QuestionService instance.
func NewQuestionService(db *gorm.DB, log *zap.Logger) *QuestionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuestionService{db: db, log: log.Named("question")}
}

// withDetail preloads author and the ordered answers with their authors.
func withDetail(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").
		Preload("Answers", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("create_date ASC").Order("id ASC")
		}).
		Preload("Answers.Author")
}

// matchingIDs selects the distinct ids of questions whose subject, content, author name,
// answer content or answer author name contains keyword.
func (s *QuestionService) matchingIDs(ctx context.Context, keyword string) *gorm.DB {
	q := s.db.WithContext(ctx).
		Table("questions AS q").
		Select("DISTINCT q.id").
		Joins("LEFT JOIN users u1 ON q.author_id = u1.id").
		Joins("LEFT JOIN answers a ON a.question_id = q.id").
		Joins("LEFT JOIN users u2 ON a.author_id = u2.id")
	if keyword != "" {
		cols := []string{"q.subject", "q.content", "u1.username", "a.content", "u2.username"}
		preds := make([]string, 0, len(cols))
		args := make([]interface{}, 0, len(cols))
		for _, col := range cols {
			pred, arg := s.containsPredicate(col, keyword)
			preds = append(preds, pred)
			args = append(args, arg)
		}
		q = q.Where(strings.Join(preds, " OR "), args...)
	}
	return q
}

// containsPredicate builds a case-sensitive literal substring test for col.
func (s *QuestionService) containsPredicate(col, keyword string) (string, interface{}) {
	switch s.db.Dialector.Name() {
	case "sqlite":
		return "instr(" + col + ", ?) > 0", keyword
	case "mysql":
		return "INSTR(CAST(" + col + " AS BINARY), CAST(? AS BINARY)) > 0", keyword
	default:
		return col + " LIKE ?", "%" + keyword + "%"
	}
}

// GetList returns the 0-based page of questions matching keyword, newest first.
func (s *QuestionService) GetList(ctx context.Context, page int, keyword string) (Page[models.Question], error) {
	if page < 0 {
		page = 0
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Question{}).
		Where("id IN (?)", s.matchingIDs(ctx, keyword)).
		Count(&total).Error; err != nil {
		return Page[models.Question]{}, errors.Wrap(err, "count questions")
	}
	if page > maxPage || int64(page)*PageSize >= total {
		return newPage[models.Question](nil, page, total), nil
	}

	var items []models.Question
	if err := withDetail(s.db.WithContext(ctx)).
		Where("id IN (?)", s.matchingIDs(ctx, keyword)).
		Order("create_date DESC").Order("id DESC").
		Offset(page * PageSize).Limit(PageSize).
		Find(&items).Error; err != nil {
		return Page[models.Question]{}, errors.Wrap(err, "list questions")
	}
	return newPage(items, page, total), nil
}

// GetQuestion loads one question with its answers.
func (s *QuestionService) GetQuestion(ctx context.Context, id uint) (*models.Question, error) {
	var q models.Question
	err := withDetail(s.db.WithContext(ctx)).First(&q, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "question %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load question %d", id)
	}
	return &q, nil
}

// Create persists a new question authored by author.
func (s *QuestionService) Create(ctx context.Context, subject, content string, author *models.User) (*models.Question, error) {
	q := models.Question{
		Subject:    subject,
		Content:    content,
		CreateDate: time.Now(),
	}
	if author != nil {
		q.AuthorID = &author.ID
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&q).Error; err != nil {
		return nil, errors.Wrap(err, "create question")
	}
	q.Author = author
	q.Answers = []models.Answer{}

	s.log.Info("question created", zap.Uint("id", q.ID), zap.Stringp("author", authorName(author)))
	return &q, nil
}

// Modify overwrites subject and content and stamps the modification time.
func (s *QuestionService) Modify(ctx context.Context, q *models.Question, subject, content string) error {
	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", q.ID).
		Updates(map[string]interface{}{
			"subject":     subject,
			"content":     content,
			"modify_date": now,
		}).Error; err != nil {
		return errors.Wrapf(err, "modify question %d", q.ID)
	}
	q.Subject = subject
	q.Content = content
	q.ModifyDate = &now

	s.log.Info("question modified", zap.Uint("id", q.ID))
	return nil
}

// Delete removes the question, its answers and every voter row of both in one transaction.
func (s *QuestionService) Delete(ctx context.Context, q *models.Question) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var answerIDs []uint
		if err := tx.Model(&models.Answer{}).Where("question_id = ?", q.ID).Pluck("id", &answerIDs).Error; err != nil {
			return err
		}
		if len(answerIDs) > 0 {
			if err := tx.Exec("DELETE FROM answer_voters WHERE answer_id IN ?", answerIDs).Error; err != nil {
				return err
			}
			if err := tx.Where("question_id = ?", q.ID).Delete(&models.Answer{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec("DELETE FROM question_voters WHERE question_id = ?", q.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Question{}, q.ID).Error
	})
	if err != nil {
		return errors.Wrapf(err, "delete question %d", q.ID)
	}

	s.log.Info("question deleted", zap.Uint("id", q.ID))
	return nil
}

// Vote adds user to the voter set. Voting twice is a no-op.
func (s *QuestionService) Vote(ctx context.Context, q *models.Question, user *models.User) error {
	if user == nil {
		return errors.Wrap(ErrUnauthorized, "vote without user")
	}
	target := models.Question{ID: q.ID}
	if err := s.db.WithContext(ctx).Model(&target).Omit("Voters.*").Association("Voters").Append(user); err != nil {
		return errors.Wrapf(err, "vote question %d", q.ID)
	}
	s.log.Debug("question voted", zap.Uint("id", q.ID), zap.String("voter", user.Username))
	return nil
}

// VoterCount returns the size of the voter set.
func (s *QuestionService) VoterCount(ctx context.Context, q *models.Question) (int64, error) {
	counts, err := s.VoterCounts(ctx, q.ID)
	if err != nil {
		return 0, err
	}
	return counts[q.ID], nil
}

// VoterCounts returns voter set sizes keyed by question id. Ids without votes are absent.
func (s *QuestionService) VoterCounts(ctx context.Context, ids ...uint) (map[uint]int64, error) {
	return voterCounts(ctx, s.db, "question_voters", "question_id", ids)
}

type voterCountRow struct {
	ID    uint
	Total int64
}

func voterCounts(ctx context.Context, db *gorm.DB, table, column string, ids []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	var rows []voterCountRow
	if err := db.WithContext(ctx).Table(table).
		Select(column+" AS id, COUNT(*) AS total").
		Where(column+" IN ?", ids).
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "count %s", table)
	}
	for _, r := range rows {
		counts[r.ID] = r.Total
	}
	return counts, nil
}

func authorName(u *models.User) *string {
	if u == nil {
		return nil
	}
	return &u.Username
}
