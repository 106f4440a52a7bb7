package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Meldungen des Authorizers; beide Ablehnungen werden an der Grenze zu 401.
const (
	MsgServerMisconfigured = "Server configuration error. Contact administrator."
	MsgMissingHeader       = "Missing Authorization header."
	MsgInvalidCredentials  = "Invalid credentials."
)

const roleHeader = "x-user-role"

// Result ist das Ergebnis von Authorize.
type Result struct {
	Authorized bool
	Role       Role
	Message    string
}

// Authorizer prüft das gemeinsame Bearer-Token der API.
type Authorizer struct {
	token  string
	logger *zap.Logger
}

// NewAuthorizer erstellt einen Authorizer. Ein leeres Token lehnt jede Anfrage ab.
func NewAuthorizer(token string, logger *zap.Logger) *Authorizer {
	return &Authorizer{token: token, logger: logger}
}

// Authorize validiert den Authorization-Header und liest die Rolle aus x-user-role.
func (a *Authorizer) Authorize(r *http.Request) Result {
	if a.token == "" {
		a.logger.Error("API_AUTH_TOKEN is not configured. Requests are denied.")
		return Result{Message: MsgServerMisconfigured}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return Result{Message: MsgMissingHeader}
	}
	if header != "Bearer "+a.token {
		return Result{Message: MsgInvalidCredentials}
	}
	return Result{Authorized: true, Role: ParseRole(r.Header.Get(roleHeader))}
}

// Principal ist die authentifizierte Identität einer Anfrage.
type Principal struct {
	Role          Role
	UserID        int64 // 0, wenn die Anfrage nur das gemeinsame Token trägt
	UserName      string
	Authenticated bool
	Source        string // "token" oder "session"
}

// Anonymous ist der Principal, auf den Sessions bei jedem Fehler zurückfallen.
func Anonymous() Principal {
	return Principal{Role: RoleViewer, Source: "session"}
}

// Capabilities ist eine Abkürzung für p.Role.Capabilities().
func (p Principal) Capabilities() Capabilities {
	return p.Role.Capabilities()
}

type principalKey struct{}

// WithPrincipal legt p im Context ab.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext liest den Principal aus dem Context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
