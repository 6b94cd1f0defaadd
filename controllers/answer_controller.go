package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/cppla/sbb/models"
	"github.com/cppla/sbb/services"
	"github.com/cppla/sbb/utils"
)

// AnswerController exposes the answer endpoints.
type AnswerController struct {
	questions *services.QuestionService
	answers   *services.AnswerService
	users     *services.UserService
}

// NewAnswerController creates a new AnswerController instance.
func NewAnswerController(questions *services.QuestionService, answers *services.AnswerService, users *services.UserService) *AnswerController {
	return &AnswerController{questions: questions, answers: answers, users: users}
}

type answerForm struct {
	Content string `json:"content" form:"content" binding:"required"`
}

// Detail returns one answer.
func (c *AnswerController) Detail(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	a, err := c.answers.GetAnswer(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	c.respondAnswer(ctx, a, false)
}

// Create answers the question identified by :questionId as the principal.
func (c *AnswerController) Create(ctx *gin.Context) {
	questionID, ok := parseID(ctx, "questionId")
	if !ok {
		return
	}
	content, ok := c.bindContent(ctx)
	if !ok {
		return
	}
	user, ok := currentUser(ctx, c.users)
	if !ok {
		return
	}

	reqCtx := ctx.Request.Context()
	q, err := c.questions.GetQuestion(reqCtx, questionID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	a, err := c.answers.Create(reqCtx, q, content, user)
	if err != nil {
		respondError(ctx, err)
		return
	}

	invalidateQuestions(reqCtx)
	utils.InvalidateByPrefix(reqCtx, cacheStatsKey)
	utils.Created(ctx, toAnswerDTO(a, nil))
}

// Modify rewrites an answer owned by the principal.
func (c *AnswerController) Modify(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	content, ok := c.bindContent(ctx)
	if !ok {
		return
	}
	a, ok := c.ownedAnswer(ctx, id)
	if !ok {
		return
	}
	if err := c.answers.Modify(ctx.Request.Context(), a, content); err != nil {
		respondError(ctx, err)
		return
	}
	c.respondAnswer(ctx, a, true)
}

// Delete removes an answer owned by the principal.
func (c *AnswerController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	a, ok := c.ownedAnswer(ctx, id)
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()
	if err := c.answers.Delete(reqCtx, a); err != nil {
		respondError(ctx, err)
		return
	}

	invalidateQuestions(reqCtx)
	utils.InvalidateByPrefix(reqCtx, cacheStatsKey)
	utils.NoContent(ctx)
}

// Vote records the principal's vote on an answer.
func (c *AnswerController) Vote(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	user, ok := currentUser(ctx, c.users)
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()
	a, err := c.answers.GetAnswer(reqCtx, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if err := c.answers.Vote(reqCtx, a, user); err != nil {
		respondError(ctx, err)
		return
	}
	c.respondAnswer(ctx, a, true)
}

func (c *AnswerController) bindContent(ctx *gin.Context) (string, bool) {
	var form answerForm
	if err := ctx.ShouldBind(&form); err != nil {
		badRequest(ctx, "content is required")
		return "", false
	}
	content, ok := cleanText(form.Content)
	if !ok {
		badRequest(ctx, "content cannot be empty")
		return "", false
	}
	return content, true
}

func (c *AnswerController) ownedAnswer(ctx *gin.Context, id uint) (*models.Answer, bool) {
	username, ok := getUsername(ctx)
	if !ok {
		respondError(ctx, errors.Wrap(services.ErrUnauthorized, "authentication required"))
		return nil, false
	}
	a, err := c.answers.GetAnswer(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return nil, false
	}
	if !a.IsAuthoredBy(username) {
		respondError(ctx, errors.Wrap(services.ErrForbidden, "only the author may change this answer"))
		return nil, false
	}
	return a, true
}

// respondAnswer writes the answer DTO, invalidating the question caches after a change.
func (c *AnswerController) respondAnswer(ctx *gin.Context, a *models.Answer, changed bool) {
	reqCtx := ctx.Request.Context()
	if changed {
		invalidateQuestions(reqCtx)
	}
	votes, err := c.answers.VoterCounts(reqCtx, a.ID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, toAnswerDTO(a, votes))
}
