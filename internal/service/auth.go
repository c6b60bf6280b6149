package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Gopher0727/FeedbackBot/middleware/jwt"
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid client credentials", ErrAuthorization)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrAuthorization)
)

// TokenRequest is the gateway's key exchange.
type TokenRequest struct {
	ClientID string `json:"client_id" binding:"required"`
	APIKey   string `json:"api_key" binding:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type IAuthService interface {
	IssueToken(ctx context.Context, req *TokenRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, token string) (*TokenResponse, error)
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

// AuthService trades the shared gateway key for short lived tokens.
type AuthService struct {
	apiKey       []byte
	tokenManager *jwt.TokenManager
	opts         options
}

func NewAuthService(apiKey string, tokenManager *jwt.TokenManager, opts ...Option) IAuthService {
	return &AuthService{apiKey: []byte(apiKey), tokenManager: tokenManager, opts: buildOptions(opts)}
}

func (s *AuthService) IssueToken(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	if len(s.apiKey) == 0 || subtle.ConstantTimeCompare(s.apiKey, []byte(req.APIKey)) != 1 {
		s.opts.log.Warn("gateway authentication failed", zap.String("client_id", req.ClientID))
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokenManager.GenerateToken(req.ClientID, []string{jwt.ScopeGateway})
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &TokenResponse{Token: token}, nil
}

func (s *AuthService) Refresh(ctx context.Context, token string) (*TokenResponse, error) {
	fresh, err := s.tokenManager.RefreshToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrNotRefreshable) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, ErrInvalidToken
	}
	return &TokenResponse{Token: fresh}, nil
}

func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.tokenManager.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
