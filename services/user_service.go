package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/sbb/models"
	"github.com/cppla/sbb/utils"
)

// Username length bounds, counted after trimming.
const (
	UsernameMinLen = 3
	UsernameMaxLen = 25
)

// SignupInput carries the registration form.
type SignupInput struct {
	Username  string
	Email     string
	Password1 string
	Password2 string
}

// UserService registers and authenticates board members.
type UserService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewUserService creates a new UserService instance.
func NewUserService(db *gorm.DB, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{db: db, log: log.Named("user")}
}

// Signup creates a user after checking the password confirmation and uniqueness.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if n := utf8.RuneCountInString(username); n < UsernameMinLen || n > UsernameMaxLen {
		return nil, errors.Wrapf(ErrValidation, "username must be %d-%d characters", UsernameMinLen, UsernameMaxLen)
	}
	if in.Password1 != in.Password2 {
		return nil, errors.Wrap(ErrValidation, "passwords do not match")
	}

	var exists int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&exists).Error; err != nil {
		return nil, errors.Wrap(err, "check existing user")
	}
	if exists > 0 {
		return nil, errors.Wrap(ErrConflict, "username or email already registered")
	}

	hash, err := utils.HashPassword(in.Password1)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	user := models.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Wrap(ErrConflict, "username or email already registered")
		}
		return nil, errors.Wrap(err, "create user")
	}

	s.log.Info("user registered", zap.Uint("id", user.ID), zap.String("username", user.Username))
	return &user, nil
}

// Authenticate verifies credentials and returns the matching user.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(ErrUnauthorized, "invalid credentials")
	}
	if err != nil {
		return nil, errors.Wrap(err, "load user")
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		s.log.Info("login rejected", zap.String("username", user.Username))
		return nil, errors.Wrap(ErrUnauthorized, "invalid credentials")
	}
	return &user, nil
}

// GetUser resolves a principal name to its user row.
func (s *UserService) GetUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "user %s", username)
	}
	if err != nil {
		return nil, errors.Wrap(err, "load user")
	}
	return &user, nil
}
