package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// CookieName ist der Name des HTTP-only Session-Cookies.
const CookieName = "auth_token"

const issuer = "papertrail"

// ErrNoSecret wird geliefert, wenn JWT_SECRET nicht gesetzt ist.
var ErrNoSecret = errors.New("JWT_SECRET environment variable is not set")

// Claims sind die Nutzdaten des Session-Tokens.
type Claims struct {
	UserID   int64  `json:"userId"`
	Role     Role   `json:"role"`
	UserName string `json:"userName"`
	jwt.RegisteredClaims
}

// Sessions signiert und prüft Session-Tokens (HS256).
type Sessions struct {
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewSessions erstellt einen Sessions-Dienst. secret darf leer sein; dann
// schlagen Issue und Verify mit ErrNoSecret fehl.
func NewSessions(secret string, ttl time.Duration, logger *zap.Logger) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, logger: logger, now: time.Now}
}

// TTL ist die Gültigkeitsdauer eines neuen Tokens.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue erstellt ein signiertes Token für den User.
func (s *Sessions) Issue(userID int64, userName string, role Role) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	now := s.now()
	claims := Claims{
		UserID:   userID,
		Role:     role,
		UserName: userName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify prüft Signatur und Ablaufzeit und liefert die Claims.
func (s *Sessions) Verify(token string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrNoSecret
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// FromRequest liest das Session-Token aus dem Cookie oder einem Bearer-JWT.
// Schlägt die Prüfung fehl, wird nie ein Fehler geliefert, sondern ein
// nicht authentifizierter viewer.
func (s *Sessions) FromRequest(r *http.Request) Principal {
	token := ""
	if c, err := r.Cookie(CookieName); err == nil {
		token = c.Value
	}
	if token == "" {
		if bearer := bearerToken(r); strings.Count(bearer, ".") == 2 {
			token = bearer
		}
	}
	if token == "" {
		return Anonymous()
	}
	claims, err := s.Verify(token)
	if err != nil {
		s.logger.Debug("Session token verification failed", zap.Error(err))
		return Anonymous()
	}
	return Principal{
		Role:          ParseRole(string(claims.Role)),
		UserID:        claims.UserID,
		UserName:      claims.UserName,
		Authenticated: true,
		Source:        "session",
	}
}
