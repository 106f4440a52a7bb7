package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"papertrail/apperr"
	"papertrail/auth"
	"papertrail/config"
	"papertrail/lifecycle"
	"papertrail/metrics"
	"papertrail/models"
)

const (
	msgInvalidJSON    = "Invalid JSON in request body."
	msgInvalidPayload = "Invalid payload. Check field types and enums."
	msgInvalidPaperID = "Invalid paper ID. Must be a positive integer."
)

// userFinder liefert User für den Login.
type userFinder interface {
	FindUserByIdentifier(ctx context.Context, identifier string) (*models.User, error)
}

func init() {
	// Validierungsfehler nennen das JSON-Feld statt des Go-Feldnamens
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

func newRouter(cfg *config.Config, svc *lifecycle.Service, users userFinder, log *zap.Logger) *gin.Engine {
	authorizer := auth.NewAuthorizer(cfg.APIAuthToken, log)
	sessions := auth.NewSessions(cfg.JWTSecret, cfg.SessionTTL, log)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))
	router.Use(metrics.Middleware())
	router.GET("/metrics", metrics.Handler())

	setupHealthRoutes(router, cfg)
	setupAuthRoutes(router, users, sessions, cfg, log)

	api := router.Group("/api/papers")
	api.Use(apiAuthMiddleware(authorizer, sessions))
	setupPaperRoutes(api, svc, log)
	setupRelationRoutes(api, svc, cfg, log)

	return router
}

// apiAuthMiddleware lässt Anfragen mit gültigem Bearer-Token durch. Schlägt
// die Prüfung fehl, genügt eine gültige Session (Cookie oder Bearer-JWT).
func apiAuthMiddleware(authorizer *auth.Authorizer, sessions *auth.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var principal auth.Principal
		if res := authorizer.Authorize(c.Request); res.Authorized {
			principal = auth.Principal{Role: res.Role, Authenticated: true, Source: "token"}
		} else if session := sessions.FromRequest(c.Request); session.Authenticated {
			principal = session
		} else {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": res.Message})
			return
		}
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// principal liest den vom Middleware gesetzten Principal; ohne ihn gilt viewer.
func principal(c *gin.Context) auth.Principal {
	if p, ok := auth.PrincipalFromContext(c.Request.Context()); ok {
		return p
	}
	return auth.Anonymous()
}

// respondError schreibt {"error": ...}. 500er werden mit Ursache geloggt,
// der Client bekommt nur fallback.
func respondError(c *gin.Context, log *zap.Logger, err error, fallback string) {
	status := apperr.StatusCode(err)
	msg := apperr.Message(err, fallback)
	switch {
	case errors.Is(err, lifecycle.ErrStorageDisabled):
		status, msg = http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, lifecycle.ErrOverviewFormat):
		msg = lifecycle.ErrOverviewFormat.Error()
	}
	if status >= http.StatusInternalServerError {
		log.Error(fallback,
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}

// bindJSON dekodiert den Body und unterscheidet Syntax-, Typ- und Validierungsfehler.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &typeErr):
		return apperr.Validation(msgInvalidPayload)
	case errors.As(err, &verrs):
		return apperr.Validationf("Invalid value for %s.", verrs[0].Field())
	default:
		return apperr.Validation(msgInvalidJSON)
	}
}

// parseID akzeptiert nur positive Ganzzahlen.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func paperIDParam(c *gin.Context) (int64, bool) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidPaperID})
	}
	return id, ok
}

// parseDate akzeptiert RFC 3339 und YYYY-MM-DD; leer = nicht gesetzt.
func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validationf("Invalid date for %s. Use YYYY-MM-DD or RFC 3339.", field)
}
