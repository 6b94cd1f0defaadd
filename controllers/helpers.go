package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cppla/sbb/middleware"
	"github.com/cppla/sbb/models"
	"github.com/cppla/sbb/services"
	"github.com/cppla/sbb/utils"
)

const (
	cacheQuestionNS     = "question"
	cacheQuestionPrefix = "cache:question:"
	cacheStatsKey       = "cache:stats:counts"
)

// questionCacheKey scopes suffix to the current question cache generation.
// ok is false when caching is unavailable.
func questionCacheKey(ctx context.Context, suffix string) (string, bool) {
	gen, ok := utils.CacheGeneration(ctx, cacheQuestionNS)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%sg%d:%s", cacheQuestionPrefix, gen, suffix), true
}

// invalidateQuestions runs after a committed write. Bumping the generation first means a
// reader that loaded older rows writes under a retired key; the prefix sweep reclaims memory.
func invalidateQuestions(ctx context.Context) {
	utils.BumpGeneration(ctx, cacheQuestionNS)
	utils.InvalidateByPrefix(ctx, cacheQuestionPrefix)
}

// respondError maps service errors to statuses. Unclassified errors are logged and redacted.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, err.Error())
	case errors.Is(err, services.ErrValidation):
		utils.Error(ctx, http.StatusBadRequest, 40002, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		utils.Error(ctx, http.StatusUnauthorized, 40106, err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40301, err.Error())
	case errors.Is(err, services.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40901, err.Error())
	default:
		utils.Logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.String("request_id", ctx.GetString(utils.ContextRequestIDKey)),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

func badRequest(ctx *gin.Context, message string) {
	utils.Error(ctx, http.StatusBadRequest, 40001, message)
}

// getUsername returns the principal placed by middleware.AuthRequired.
func getUsername(ctx *gin.Context) (string, bool) {
	name := ctx.GetString(middleware.ContextUsernameKey)
	return name, name != ""
}

// currentUser resolves the principal to its user row, answering 401 when absent.
func currentUser(ctx *gin.Context, users *services.UserService) (*models.User, bool) {
	username, ok := getUsername(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
		return nil, false
	}
	user, err := users.GetUser(ctx.Request.Context(), username)
	if errors.Is(err, services.ErrNotFound) {
		// the token outlived its account
		utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
		return nil, false
	}
	if err != nil {
		respondError(ctx, err)
		return nil, false
	}
	return user, true
}

func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid id")
		return 0, false
	}
	return uint(id), true
}

// parsePage reads a 0-based page index; anything invalid means the first page.
func parsePage(s string) int {
	if p, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && p > 0 {
		return p
	}
	return 0
}

// cleanText sanitizes user supplied text and reports whether anything is left.
func cleanText(s string) (string, bool) {
	out := strings.TrimSpace(utils.Sanitize(strings.TrimSpace(s)))
	return out, out != ""
}

func cleanSubject(s string) (string, bool) {
	out := strings.TrimSpace(utils.SanitizePlain(strings.TrimSpace(s)))
	return out, out != ""
}
