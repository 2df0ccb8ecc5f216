package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studieren/mindjournal/apperr"
	"github.com/studieren/mindjournal/gormtool"
	"github.com/studieren/mindjournal/logger"
	"github.com/studieren/mindjournal/models"
)

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type Service struct {
	crud   *gormtool.CRUDTool
	log    *logger.Logger
	tokens *TokenIssuer
}

func NewService(crud *gormtool.CRUDTool, log *logger.Logger, tokens *TokenIssuer) *Service {
	return &Service{crud: crud, log: log.With("service", "AuthService"), tokens: tokens}
}

func (s *Service) Tokens() *TokenIssuer { return s.tokens }

// Signup 邮箱统一转小写；重复邮箱返回 Conflict
func (s *Service) Signup(ctx context.Context, email, name, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}

	hash, err := HashPassword(password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooShort) || errors.Is(err, ErrPasswordTooLong) {
			return nil, apperr.Validation(err.Error())
		}
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	err = s.crud.WithTransaction(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("email already registered")
		}
		if err := tx.Create(user).Error; err != nil {
			// 并发注册时 count 检查可能都通过，由唯一索引兜底
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("email already registered")
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user signed up", "user_id", user.ID)
	return s.session(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	if err := s.crud.Conn(ctx, nil).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, err
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	return s.session(&user)
}

func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.crud.Conn(ctx, nil).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Name)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
