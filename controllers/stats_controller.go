package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/sbb/models"
	"github.com/cppla/sbb/utils"
)

const statsCacheTTL = time.Minute

// StatsController provides board statistics and the health check.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

type statsPayload struct {
	UserCount     int64 `json:"user_count"`
	QuestionCount int64 `json:"question_count"`
	AnswerCount   int64 `json:"answer_count"`
}

// GetStats returns aggregate counts for the board.
func (s *StatsController) GetStats(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()
	var payload statsPayload
	if utils.CacheGetJSON(reqCtx, cacheStatsKey, &payload) {
		utils.Success(ctx, payload)
		return
	}

	db := s.db.WithContext(reqCtx)
	counts := []struct {
		name  string
		model interface{}
		dst   *int64
	}{
		{"users", &models.User{}, &payload.UserCount},
		{"questions", &models.Question{}, &payload.QuestionCount},
		{"answers", &models.Answer{}, &payload.AnswerCount},
	}
	complete := true
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			// Fallback to 0 instead of failing the whole endpoint, but never cache it
			utils.Logger.Warn("stats count failed", zap.String("table", c.name), zap.Error(err))
			*c.dst = 0
			complete = false
		}
	}

	if complete {
		utils.CacheSetJSON(reqCtx, cacheStatsKey, payload, statsCacheTTL)
	}
	utils.Success(ctx, payload)
}

// Health reports whether the database answers.
func (s *StatsController) Health(ctx *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx.Request.Context())
	}
	if err != nil {
		utils.Logger.Warn("health check failed: " + err.Error())
		utils.Error(ctx, http.StatusServiceUnavailable, 50300, "database unavailable")
		return
	}
	utils.Success(ctx, gin.H{"status": "ok"})
}
