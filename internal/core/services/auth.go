package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
)

// AuthService is the connection authenticator: it turns a raw bearer
// credential into a resolved active user, or a distinguishable failure.
type AuthService struct {
	log    *slog.Logger
	tokens *TokenService
	users  domain.UserRepository
}

func NewAuthService(log *slog.Logger, tokens *TokenService, users domain.UserRepository) *AuthService {
	return &AuthService{
		log:    log,
		tokens: tokens,
		users:  users,
	}
}

// Authenticate verifies the credential and resolves its subject. Every
// failure is one of the ErrUnauthenticated sentinels; callers emit the same
// error event and close regardless of which.
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (*domain.User, error) {
	if rawToken == "" {
		return nil, domain.ErrMissingCredential
	}
	sub, _, err := s.tokens.ValidateToken(rawToken)
	if err != nil {
		s.log.WarnContext(ctx, "auth - authenticate - token rejected", "err", err)
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, domain.ErrMalformedCredential
		}
		return nil, domain.ErrInvalidCredential
	}
	user, err := s.users.GetUserByID(ctx, sub)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.WarnContext(ctx, "auth - authenticate - unknown subject", "sub", sub)
			return nil, domain.ErrUserNotFound
		}
		s.log.ErrorContext(ctx, "auth - authenticate - user lookup failed", "sub", sub, "err", err)
		return nil, domain.Fail("auth.Authenticate", domain.ErrPersistence, err)
	}
	if user.Status != domain.UserActive {
		s.log.WarnContext(ctx, "auth - authenticate - inactive account", "user_id", user.ID)
		return nil, domain.ErrUserInactive
	}
	return user, nil
}
