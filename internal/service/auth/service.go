// internal/service/auth/service.go

// Package auth authenticates the dashboard's single operator. There
// is no user table: the operator's username and bcrypt password hash
// come from configuration, and a successful login issues a signed
// session token.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	xerrors "github.com/andre-sav/panopticon/internal/pkg/errors"
	"github.com/andre-sav/panopticon/internal/pkg/jwt"
)

// Limiter throttles login attempts per source IP. Nil disables
// throttling (tests, local runs without Redis).
type Limiter interface {
	Allow(ctx context.Context, ip string) (bool, int64, error)
	Reset(ctx context.Context, ip string) error
}

// Revoker invalidates issued tokens on logout.
type Revoker interface {
	Revoke(ctx context.Context, jti string, remaining time.Duration) error
}

// Session is an issued login.
type Session struct {
	Token     string    `json:"token"`
	Operator  string    `json:"operator"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthService struct {
	username     string
	passwordHash []byte
	jwtManager   *jwt.Manager
	limiter      Limiter
	revoker      Revoker
	logger       *zap.Logger
}

func NewAuthService(
	username string,
	passwordHash string,
	jwtManager *jwt.Manager,
	limiter Limiter,
	revoker Revoker,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		username:     username,
		passwordHash: []byte(passwordHash),
		jwtManager:   jwtManager,
		limiter:      limiter,
		revoker:      revoker,
		logger:       logger,
	}
}

// Login checks the operator's credentials and issues a session token.
// Wrong username and wrong password return the same error.
func (s *AuthService) Login(ctx context.Context, username, password, ip string) (*Session, error) {
	if s.limiter != nil {
		allowed, remaining, err := s.limiter.Allow(ctx, ip)
		if err != nil {
			// A broken limiter must not lock the operator out.
			s.logger.Warn("login rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			s.logger.Warn("login rate limited", zap.String("ip", ip))
			return nil, xerrors.ErrRateLimited
		} else if remaining == 0 {
			s.logger.Warn("last login attempt before lockout", zap.String("ip", ip))
		}
	}

	// Compare both factors before answering so a wrong username costs
	// the same as a wrong password.
	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passwordErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !usernameOK || passwordErr != nil {
		s.logger.Warn("login rejected", zap.String("ip", ip))
		return nil, xerrors.ErrUnauthorized
	}

	token, jti, err := s.jwtManager.Generate(s.username)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, ip); err != nil {
			s.logger.Warn("failed to reset login attempts", zap.Error(err))
		}
	}

	s.logger.Info("operator logged in", zap.String("jti", jti), zap.String("ip", ip))
	return &Session{
		Token:     token,
		Operator:  s.username,
		ExpiresAt: time.Now().Add(s.jwtManager.TTL()),
	}, nil
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.Verify(tokenString)
	if err != nil {
		return xerrors.ErrUnauthorized
	}

	if s.revoker != nil && claims.ExpiresAt != nil {
		remaining := time.Until(claims.ExpiresAt.Time)
		if err := s.revoker.Revoke(ctx, claims.ID, remaining); err != nil {
			return fmt.Errorf("failed to revoke session: %w", err)
		}
	}

	s.logger.Info("operator logged out", zap.String("jti", claims.ID))
	return nil
}
