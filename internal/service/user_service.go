package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"cinelog-api/internal/apperrors"
	"cinelog-api/internal/auth"
	"cinelog-api/internal/models"
)

// UserService handles registration, login and profile maintenance.
type UserService struct {
	users  userStore
	tokens *auth.TokenManager
}

// NewUserService creates a UserService.
func NewUserService(users userStore, tokens *auth.TokenManager) *UserService {
	return &UserService{users: users, tokens: tokens}
}

// Register creates an account and returns it together with a token pair.
// Duplicate emails surface as ErrConflict.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, *models.AuthTokens, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, req.Name, req.Email, string(hash))
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Login verifies the credentials and returns a fresh token pair. Unknown
// emails and wrong passwords both map to ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return s.tokens.IssuePair(user.ID)
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	userID, err := s.tokens.Verify(refreshToken, auth.TypeRefresh)
	if err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	return s.tokens.IssuePair(userID)
}

// Profile returns the account for the given id.
func (s *UserService) Profile(ctx context.Context, userID int64) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile applies a partial profile update; a nil field keeps the
// stored value. Changing the password rehashes it.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req models.UpdateProfileRequest) (*models.User, error) {
	var passwordHash *string
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		h := string(hash)
		passwordHash = &h
	}
	return s.users.Update(ctx, userID, req.Name, req.Email, passwordHash)
}
