package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"planetarium-service/internal/auth"
	"planetarium-service/internal/models"
)

// ErrInvalidCredentials covers both unknown email and wrong password so the
// token endpoint does not reveal which one failed.
var ErrInvalidCredentials = errors.New("invalid email or password")

var ErrWeakPassword = errors.New("password must be at least 8 characters")

type DBLayer interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, user models.User) error
}

type Service struct {
	DB       DBLayer
	Secret   string
	TokenTTL time.Duration
}

func NewService(db DBLayer, secret string, tokenTTL time.Duration) *Service {
	return &Service{DB: db, Secret: secret, TokenTTL: tokenTTL}
}

// Register creates a user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("a valid email is required")
	}
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.DB.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// IssueToken checks credentials and returns a signed access token.
func (s *Service) IssueToken(ctx context.Context, req models.TokenRequest) (string, error) {
	user, err := s.DB.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return auth.IssueToken(s.Secret, user.ID, s.TokenTTL)
}

func (s *Service) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.DB.GetUserByID(ctx, userID)
}

// UpdateProfile changes email and, when provided, the password.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req models.ProfileUpdateRequest) (*models.User, error) {
	user, err := s.DB.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != "" {
		user.Email = strings.TrimSpace(strings.ToLower(req.Email))
	}
	if req.Password != "" {
		if len(req.Password) < 8 {
			return nil, ErrWeakPassword
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.DB.UpdateUser(ctx, *user); err != nil {
		return nil, err
	}
	return user, nil
}
