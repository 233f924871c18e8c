// Package auth provides the back-office operator login.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rbxmart/rbxmart/config"
	"github.com/rbxmart/rbxmart/pkg/domain"
	"golang.org/x/crypto/bcrypt"
)

// Service authenticates the operator and issues admin JWTs.
type Service struct {
	cfg    config.AuthConfig
	logger *slog.Logger
}

// New creates an auth Service.
func New(cfg config.AuthConfig, logger *slog.Logger) *Service {
	return &Service{cfg: cfg, logger: logger}
}

// Login checks the operator credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	if s.cfg.AdminEmail == "" || s.cfg.AdminPasswordHash == "" {
		s.logger.Error("admin login attempted with no admin credentials configured")
		return "", domain.ErrUnauthorized
	}
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.cfg.AdminEmail)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(password))
	if !emailOK || passErr != nil {
		return "", domain.ErrUnauthorized
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  email,
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.Jwt.Expiry).Unix(),
	})
	signed, err := token.SignedString([]byte(s.cfg.Jwt.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
