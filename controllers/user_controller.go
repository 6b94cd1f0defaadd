package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/sbb/config"
	"github.com/cppla/sbb/middleware"
	"github.com/cppla/sbb/services"
	"github.com/cppla/sbb/utils"
)

// UserController handles registration and the session lifecycle.
type UserController struct {
	users *services.UserService
}

// NewUserController creates a new UserController instance.
func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

type signupForm struct {
	Username  string `json:"username" form:"username" binding:"required,min=3,max=25"`
	Email     string `json:"email" form:"email" binding:"required,email"`
	Password1 string `json:"password1" form:"password1" binding:"required"`
	Password2 string `json:"password2" form:"password2" binding:"required"`
}

type loginForm struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Signup registers a new user.
func (u *UserController) Signup(ctx *gin.Context) {
	var form signupForm
	if err := ctx.ShouldBind(&form); err != nil {
		badRequest(ctx, "username (3-25 characters), a valid email and both passwords are required")
		return
	}

	user, err := u.users.Signup(ctx.Request.Context(), services.SignupInput{
		Username:  form.Username,
		Email:     form.Email,
		Password1: form.Password1,
		Password2: form.Password2,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	utils.InvalidateByPrefix(ctx.Request.Context(), cacheStatsKey)
	utils.Created(ctx, publicUser(user))
}

// Login verifies credentials, issues a session token and sets the session cookie.
func (u *UserController) Login(ctx *gin.Context) {
	var form loginForm
	if err := ctx.ShouldBind(&form); err != nil {
		badRequest(ctx, "username and password are required")
		return
	}

	user, err := u.users.Authenticate(ctx.Request.Context(), form.Username, form.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}

	cfg := config.Get()
	token, err := utils.GenerateToken(user.ID, user.Username, cfg.TokenTTL)
	if err != nil {
		respondError(ctx, err)
		return
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		respondError(ctx, err)
		return
	}
	expiresAt := utils.TokenExpiry(claims, cfg.TokenTTL)

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(cfg.SessionCookie, token, int(time.Until(expiresAt).Seconds()), "/", "", cfg.CookieSecure, true)

	utils.Success(ctx, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user":       publicUser(user),
	})
}

// Logout revokes the presented token until its expiration and clears the cookie.
func (u *UserController) Logout(ctx *gin.Context) {
	cfg := config.Get()
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
		return
	}
	claims, _ := ctx.Get(middleware.ContextClaimsKey)
	parsed, _ := claims.(*utils.Claims)

	utils.BlacklistToken(ctx.Request.Context(), token, utils.TokenExpiry(parsed, cfg.TokenTTL))
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(cfg.SessionCookie, "", -1, "/", "", cfg.CookieSecure, true)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current principal's profile.
func (u *UserController) Me(ctx *gin.Context) {
	user, ok := currentUser(ctx, u.users)
	if !ok {
		return
	}
	utils.Success(ctx, publicUser(user))
}
