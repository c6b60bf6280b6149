package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gopher0727/FeedbackBot/middleware/jwt"
)

func TestAuthService_IssueToken(t *testing.T) {
	tm := jwt.NewTokenManager("secret", "feedback-bot", 1, 2)
	svc := NewAuthService("gateway-key", tm)
	ctx := context.Background()

	tests := []struct {
		name string
		req  TokenRequest
		want error
	}{
		{name: "valid", req: TokenRequest{ClientID: "telegram-gw", APIKey: "gateway-key"}},
		{name: "wrong key", req: TokenRequest{ClientID: "telegram-gw", APIKey: "guess"}, want: ErrInvalidCredentials},
		{name: "empty key", req: TokenRequest{ClientID: "telegram-gw"}, want: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.IssueToken(ctx, &tt.req)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				assert.ErrorIs(t, err, ErrAuthorization)
				return
			}
			require.NoError(t, err)

			claims, err := svc.ValidateToken(ctx, resp.Token)
			require.NoError(t, err)
			assert.Equal(t, "telegram-gw", claims.ClientID)
			assert.True(t, claims.HasScope(jwt.ScopeGateway))
			assert.False(t, claims.HasScope(jwt.ScopeAdmin))
		})
	}
}

func TestAuthService_NoConfiguredKeyRejectsAll(t *testing.T) {
	svc := NewAuthService("", jwt.NewTokenManager("secret", "", 1, 1))

	_, err := svc.IssueToken(context.Background(), &TokenRequest{ClientID: "gw", APIKey: ""})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_ValidateToken(t *testing.T) {
	svc := NewAuthService("k", jwt.NewTokenManager("secret", "feedback-bot", 1, 1))

	_, err := svc.ValidateToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := jwt.NewTokenManager("other", "feedback-bot", 1, 1).GenerateToken("gw", nil)
	require.NoError(t, err)
	_, err = svc.ValidateToken(context.Background(), foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()

	// the token lifetime sits inside the refresh window
	svc := NewAuthService("k", jwt.NewTokenManager("secret", "feedback-bot", 1, 2))
	resp, err := svc.IssueToken(ctx, &TokenRequest{ClientID: "gw", APIKey: "k"})
	require.NoError(t, err)

	fresh, err := svc.Refresh(ctx, resp.Token)
	require.NoError(t, err)
	claims, err := svc.ValidateToken(ctx, fresh.Token)
	require.NoError(t, err)
	assert.Equal(t, "gw", claims.ClientID)

	long := NewAuthService("k", jwt.NewTokenManager("secret", "feedback-bot", 24, 1))
	resp, err = long.IssueToken(ctx, &TokenRequest{ClientID: "gw", APIKey: "k"})
	require.NoError(t, err)
	_, err = long.Refresh(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = long.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
