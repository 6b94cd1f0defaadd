package controllers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/cppla/sbb/models"
	"github.com/cppla/sbb/services"
	"github.com/cppla/sbb/utils"
)

// QuestionController exposes the question endpoints.
type QuestionController struct {
	questions *services.QuestionService
	answers   *services.AnswerService
	users     *services.UserService
	cacheTTL  time.Duration
}

// NewQuestionController creates a new QuestionController instance.
func NewQuestionController(questions *services.QuestionService, answers *services.AnswerService, users *services.UserService, cacheTTL time.Duration) *QuestionController {
	return &QuestionController{questions: questions, answers: answers, users: users, cacheTTL: cacheTTL}
}

type questionForm struct {
	Subject string `json:"subject" form:"subject" binding:"required,max=200"`
	Content string `json:"content" form:"content" binding:"required"`
}

// List returns a page of questions, optionally filtered by the kw keyword.
func (c *QuestionController) List(ctx *gin.Context) {
	page := parsePage(ctx.Query("page"))
	keyword := strings.TrimSpace(ctx.Query("kw"))
	reqCtx := ctx.Request.Context()

	cacheKey, cacheable := questionCacheKey(reqCtx, fmt.Sprintf("list:page=%d:kw=%s", page, keyword))
	var cached PageDTO
	if cacheable && utils.CacheGetJSON(reqCtx, cacheKey, &cached) {
		utils.Success(ctx, cached)
		return
	}

	result, err := c.questions.GetList(reqCtx, page, keyword)
	if err != nil {
		respondError(ctx, err)
		return
	}
	items, err := c.render(reqCtx, result.Items...)
	if err != nil {
		respondError(ctx, err)
		return
	}

	payload := toPageDTO(result, items)
	if cacheable {
		utils.CacheSetJSON(reqCtx, cacheKey, payload, c.cacheTTL)
	}
	utils.Success(ctx, payload)
}

// Detail returns one question with its answers.
func (c *QuestionController) Detail(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()

	cacheKey, cacheable := questionCacheKey(reqCtx, "detail:"+strconv.FormatUint(uint64(id), 10))
	var cached QuestionDTO
	if cacheable && utils.CacheGetJSON(reqCtx, cacheKey, &cached) {
		utils.Success(ctx, cached)
		return
	}

	q, err := c.questions.GetQuestion(reqCtx, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	dto, err := c.render(reqCtx, *q)
	if err != nil {
		respondError(ctx, err)
		return
	}

	if cacheable {
		utils.CacheSetJSON(reqCtx, cacheKey, dto[0], c.cacheTTL)
	}
	utils.Success(ctx, dto[0])
}

// Create posts a new question as the principal.
func (c *QuestionController) Create(ctx *gin.Context) {
	var form questionForm
	if err := ctx.ShouldBind(&form); err != nil {
		badRequest(ctx, "subject and content are required, subject at most 200 characters")
		return
	}
	subject, okSubject := cleanSubject(form.Subject)
	content, okContent := cleanText(form.Content)
	if !okSubject || !okContent {
		badRequest(ctx, "subject and content cannot be empty")
		return
	}

	user, ok := currentUser(ctx, c.users)
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()
	q, err := c.questions.Create(reqCtx, subject, content, user)
	if err != nil {
		respondError(ctx, err)
		return
	}

	invalidateQuestions(reqCtx)
	utils.InvalidateByPrefix(reqCtx, cacheStatsKey)
	utils.Created(ctx, toQuestionDTO(q, nil, nil))
}

// Modify rewrites a question owned by the principal.
func (c *QuestionController) Modify(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var form questionForm
	if err := ctx.ShouldBind(&form); err != nil {
		badRequest(ctx, "subject and content are required, subject at most 200 characters")
		return
	}
	subject, okSubject := cleanSubject(form.Subject)
	content, okContent := cleanText(form.Content)
	if !okSubject || !okContent {
		badRequest(ctx, "subject and content cannot be empty")
		return
	}

	q, ok := c.ownedQuestion(ctx, id)
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()
	if err := c.questions.Modify(reqCtx, q, subject, content); err != nil {
		respondError(ctx, err)
		return
	}

	invalidateQuestions(reqCtx)
	dto, err := c.render(reqCtx, *q)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, dto[0])
}

// Delete removes a question owned by the principal together with its answers.
func (c *QuestionController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	q, ok := c.ownedQuestion(ctx, id)
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()
	if err := c.questions.Delete(reqCtx, q); err != nil {
		respondError(ctx, err)
		return
	}

	invalidateQuestions(reqCtx)
	utils.InvalidateByPrefix(reqCtx, cacheStatsKey)
	utils.NoContent(ctx)
}

// Vote records the principal's vote on a question.
func (c *QuestionController) Vote(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	user, ok := currentUser(ctx, c.users)
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()
	q, err := c.questions.GetQuestion(reqCtx, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if err := c.questions.Vote(reqCtx, q, user); err != nil {
		respondError(ctx, err)
		return
	}

	invalidateQuestions(reqCtx)
	dto, err := c.render(reqCtx, *q)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, dto[0])
}

// ownedQuestion loads the question and checks the principal is its author.
func (c *QuestionController) ownedQuestion(ctx *gin.Context, id uint) (*models.Question, bool) {
	username, ok := getUsername(ctx)
	if !ok {
		respondError(ctx, errors.Wrap(services.ErrUnauthorized, "authentication required"))
		return nil, false
	}
	q, err := c.questions.GetQuestion(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return nil, false
	}
	if !q.IsAuthoredBy(username) {
		respondError(ctx, errors.Wrap(services.ErrForbidden, "only the author may change this question"))
		return nil, false
	}
	return q, true
}

// render converts questions to DTOs with voter counts for the questions and their answers.
func (c *QuestionController) render(ctx context.Context, qs ...models.Question) ([]QuestionDTO, error) {
	questionIDs := make([]uint, 0, len(qs))
	answerIDs := []uint{}
	for _, q := range qs {
		questionIDs = append(questionIDs, q.ID)
		for _, a := range q.Answers {
			answerIDs = append(answerIDs, a.ID)
		}
	}
	questionVotes, err := c.questions.VoterCounts(ctx, questionIDs...)
	if err != nil {
		return nil, err
	}
	answerVotes, err := c.answers.VoterCounts(ctx, answerIDs...)
	if err != nil {
		return nil, err
	}

	out := make([]QuestionDTO, 0, len(qs))
	for i := range qs {
		out = append(out, toQuestionDTO(&qs[i], questionVotes, answerVotes))
	}
	return out, nil
}
