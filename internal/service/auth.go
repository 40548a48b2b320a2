package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dkotelnikov/storefront/internal/auth"
	"github.com/dkotelnikov/storefront/internal/events"
	"github.com/dkotelnikov/storefront/internal/hash"
	"github.com/dkotelnikov/storefront/internal/logging"
	"github.com/dkotelnikov/storefront/internal/models"
	"github.com/dkotelnikov/storefront/internal/repo"
)

type AuthService struct {
	Users     *repo.UserRepo
	JWTSecret []byte
	Producer  events.Publisher
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginResult struct {
	User     *models.User
	Token    string
	TokenExp time.Time
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: valid email required", ErrValidation)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password required", ErrValidation)
	}

	if _, err := s.Users.ByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, err
	}

	res, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, user.ID, map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})
	l.Info("register_success", "userID", user.ID)
	return res, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password required", ErrValidation)
	}

	user, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	res, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, user.ID, map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
		"email":  user.Email,
	})
	l.Info("login_success", "userID", user.ID)
	return res, nil
}

func (s *AuthService) issueSession(user *models.User) (*LoginResult, error) {
	exp := time.Now().Add(auth.TokenTTL)
	token, err := auth.SignSessionToken(user.ID, user.Role, s.JWTSecret, exp)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: token, TokenExp: exp}, nil
}

func (s *AuthService) publish(ctx context.Context, userID uint, event map[string]any) {
	if s.Producer == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, events.TopicUserEvents, fmt.Sprint(userID), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "error", err)
	}
}
