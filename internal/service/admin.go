package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/dkotelnikov/storefront/internal/hash"
	"github.com/dkotelnikov/storefront/internal/models"
	"github.com/dkotelnikov/storefront/internal/repo"
)

type AdminService struct {
	Users *repo.UserRepo
}

func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// CreateAdmin registers a new account that is admin from the start.
func (s *AdminService) CreateAdmin(ctx context.Context, in RegisterInput) (*models.User, error) {
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
		return nil, err
	}

	user := &models.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: pwHash,
		Role:         models.RoleAdmin,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Promote flips an existing user to admin, matched by email.
func (s *AdminService) Promote(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email required", ErrValidation)
	}

	user, err := s.Users.UpdateRole(ctx, email, models.RoleAdmin)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, email)
		}
		return nil, err
	}
	return user, nil
}
