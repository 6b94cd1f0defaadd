package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/sbb/models"
	"github.com/cppla/sbb/services"
)

// AnonymousAuthor is rendered for rows without an author.
const AnonymousAuthor = "Anonymous"

// QuestionDTO is the API projection of a question.
type QuestionDTO struct {
	ID             uint        `json:"id"`
	Subject        string      `json:"subject"`
	Content        string      `json:"content"`
	CreateDate     time.Time   `json:"createDate"`
	ModifyDate     *time.Time  `json:"modifyDate"`
	AuthorUsername string      `json:"authorUsername"`
	AnswerList     []AnswerDTO `json:"answerList"`
	VoterCount     int64       `json:"voterCount"`
}

// AnswerDTO is the API projection of an answer.
type AnswerDTO struct {
	ID             uint       `json:"id"`
	Content        string     `json:"content"`
	CreateDate     time.Time  `json:"createDate"`
	ModifyDate     *time.Time `json:"modifyDate"`
	AuthorUsername string     `json:"authorUsername"`
	QuestionID     uint       `json:"questionId"`
	VoterCount     int64      `json:"voterCount"`
}

// PageDTO mirrors the list payload used across the API.
type PageDTO struct {
	Items      []QuestionDTO `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// Pagination describes the position of a page in the full result set.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func authorUsername(u *models.User) string {
	if u == nil {
		return AnonymousAuthor
	}
	return u.Username
}

func toAnswerDTO(a *models.Answer, votes map[uint]int64) AnswerDTO {
	return AnswerDTO{
		ID:             a.ID,
		Content:        a.Content,
		CreateDate:     a.CreateDate,
		ModifyDate:     a.ModifyDate,
		AuthorUsername: authorUsername(a.Author),
		QuestionID:     a.QuestionID,
		VoterCount:     votes[a.ID],
	}
}

func toQuestionDTO(q *models.Question, questionVotes, answerVotes map[uint]int64) QuestionDTO {
	answers := make([]AnswerDTO, 0, len(q.Answers))
	for i := range q.Answers {
		answers = append(answers, toAnswerDTO(&q.Answers[i], answerVotes))
	}
	return QuestionDTO{
		ID:             q.ID,
		Subject:        q.Subject,
		Content:        q.Content,
		CreateDate:     q.CreateDate,
		ModifyDate:     q.ModifyDate,
		AuthorUsername: authorUsername(q.Author),
		AnswerList:     answers,
		VoterCount:     questionVotes[q.ID],
	}
}

func toPageDTO(p services.Page[models.Question], items []QuestionDTO) PageDTO {
	return PageDTO{
		Items: items,
		Pagination: Pagination{
			Page:       p.Page,
			PageSize:   p.PageSize,
			Total:      p.Total,
			TotalPages: p.TotalPages,
		},
	}
}

// publicUser strips private fields from a user for API responses.
func publicUser(u *models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"created_at": u.CreatedAt,
	}
}
