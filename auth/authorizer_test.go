package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuthorizeFailsClosedWithoutToken(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	a := NewAuthorizer("", zap.New(core))

	req := httptest.NewRequest("GET", "/api/papers", nil)
	req.Header.Set("Authorization", "Bearer anything")
	res := a.Authorize(req)

	assert.False(t, res.Authorized)
	assert.Regexp(t, `(?i)server configuration error`, res.Message)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "API_AUTH_TOKEN is not configured. Requests are denied.", logs.All()[0].Message)
}

func TestAuthorize(t *testing.T) {
	a := NewAuthorizer("expected-token", zap.NewNop())

	tests := []struct {
		name       string
		headers    map[string]string
		authorized bool
		role       Role
		message    string
	}{
		{
			name:    "missing header",
			headers: map[string]string{"x-user-role": "admin"},
			message: MsgMissingHeader,
		},
		{
			name:    "wrong token",
			headers: map[string]string{"Authorization": "Bearer wrong", "x-user-role": "admin"},
			message: MsgInvalidCredentials,
		},
		{
			name:    "token without bearer prefix",
			headers: map[string]string{"Authorization": "expected-token"},
			message: MsgInvalidCredentials,
		},
		{
			name:       "role header is lower-cased",
			headers:    map[string]string{"Authorization": "Bearer expected-token", "x-user-role": "Principal_Investigator"},
			authorized: true,
			role:       RolePrincipalInvestigator,
		},
		{
			name:       "missing role header defaults to viewer",
			headers:    map[string]string{"Authorization": "Bearer expected-token"},
			authorized: true,
			role:       RoleViewer,
		},
		{
			name:       "unknown role degrades to viewer",
			headers:    map[string]string{"Authorization": "Bearer expected-token", "x-user-role": "root"},
			authorized: true,
			role:       RoleViewer,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/papers", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			res := a.Authorize(req)
			assert.Equal(t, tt.authorized, res.Authorized)
			assert.Equal(t, tt.role, res.Role)
			assert.Equal(t, tt.message, res.Message)
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{Role: RoleAdmin, UserID: 3})
	p, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(3), p.UserID)
	assert.True(t, p.Capabilities().CanHardDelete)
}
