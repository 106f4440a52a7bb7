package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"papertrail/apperr"
	"papertrail/auth"
	"papertrail/config"
)

type loginRequest struct {
	Username any `json:"username"`
	Email    any `json:"email"`
	Password any `json:"password"`
}

// identifier bevorzugt username vor email; nur nicht-leere Strings zählen.
func (r loginRequest) identifier() string {
	for _, v := range []any{r.Username, r.Email} {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func setupAuthRoutes(router *gin.Engine, users userFinder, sessions *auth.Sessions, cfg *config.Config, log *zap.Logger) {
	rg := router.Group("/api/auth")

	rg.POST("/login", func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format."})
			return
		}
		identifier := req.identifier()
		password, _ := req.Password.(string)
		if identifier == "" || password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required."})
			return
		}

		user, err := users.FindUserByIdentifier(c.Request.Context(), identifier)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found."})
				return
			}
			log.Error("Login error", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password."})
			return
		}

		role := auth.NormalizeRoleName(user.Role.RoleName)
		token, err := sessions.Issue(user.ID, user.UserName, role)
		if err != nil {
			log.Error("Login error: token could not be issued", zap.Int64("user_id", user.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
			return
		}

		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(auth.CookieName, token, int(sessions.TTL()/time.Second), "/", "", cfg.IsProduction(), true)
		log.Info("User logged in", zap.Int64("user_id", user.ID), zap.String("role", string(role)))
		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user": gin.H{
				"id":       user.ID,
				"userName": user.UserName,
				"email":    user.Email,
				"role":     role,
			},
		})
	})

	rg.POST("/logout", func(c *gin.Context) {
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(auth.CookieName, "", -1, "/", "", cfg.IsProduction(), true)
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	rg.GET("/session", func(c *gin.Context) {
		p := sessions.FromRequest(c.Request)
		c.JSON(http.StatusOK, gin.H{
			"authenticated": p.Authenticated,
			"userId":        p.UserID,
			"userName":      p.UserName,
			"role":          p.Role,
			"capabilities":  p.Capabilities(),
		})
	})
}

func setupHealthRoutes(router *gin.Engine, cfg *config.Config) {
	router.GET("/api/health", func(c *gin.Context) {
		message := "DATABASE_URL is missing. Copy .env.example to .env and adjust credentials."
		if cfg.DatabaseConfigured() {
			message = "Environment ready. Tables and stored procedures are installed at start-up when AUTO_MIGRATE is enabled."
		}
		c.JSON(http.StatusOK, gin.H{
			"service":            "PaperTrail API",
			"databaseConfigured": cfg.DatabaseConfigured(),
			"timestamp":          time.Now().UTC().Format(time.RFC3339),
			"message":            message,
		})
	})
}
