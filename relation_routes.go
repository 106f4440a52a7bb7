package main

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"papertrail/apperr"
	"papertrail/config"
	"papertrail/lifecycle"
)

type linkGrantRequest struct {
	GrantID int64 `json:"grantId" binding:"required,gt=0"`
}

type assignAuthorRequest struct {
	UserID            int64   `json:"userId" binding:"required,gt=0"`
	AuthorOrder       *int    `json:"authorOrder" binding:"omitempty,min=1"`
	ContributionNotes *string `json:"contributionNotes" binding:"omitempty,max=2000"`
}

type reorderAuthorRequest struct {
	AuthorOrder int `json:"authorOrder" binding:"required,min=1"`
}

type addRevisionRequest struct {
	VersionLabel string  `json:"versionLabel" binding:"required,max=64"`
	Notes        *string `json:"notes"`
}

// setupRelationRoutes konfiguriert Grants, Autoren, Revisionen und PDF-Anhänge eines Papers.
func setupRelationRoutes(rg *gin.RouterGroup, svc *lifecycle.Service, cfg *config.Config, log *zap.Logger) {
	rg.POST("/:id/grants", func(c *gin.Context) {
		id, ok := paperIDParam(c)
		if !ok {
			return
		}
		var req linkGrantRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err, msgInvalidJSON)
			return
		}
		if err := svc.LinkGrant(c.Request.Context(), principal(c), id, req.GrantID); err != nil {
			respondError(c, log, err, "Unable to link grant. Check database connection.")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true})
	})

	rg.DELETE("/:id/grants/:grantId", func(c *gin.Context) {
		id, ok := paperIDParam(c)
		if !ok {
			return
		}
		grantID, ok := parseID(c.Param("grantId"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid grant ID."})
			return
		}
		if err := svc.UnlinkGrant(c.Request.Context(), principal(c), id, grantID); err != nil {
			respondError(c, log, err, "Unable to unlink grant. Check database connection.")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	rg.POST("/:id/authors", func(c *gin.Context) {
		id, ok := paperIDParam(c)
		if !ok {
			return
		}
		var req assignAuthorRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err, msgInvalidJSON)
			return
		}
		err := svc.AssignAuthor(c.Request.Context(), principal(c), id, lifecycle.AuthorInput{
			UserID:            req.UserID,
			AuthorOrder:       req.AuthorOrder,
			ContributionNotes: req.ContributionNotes,
		})
		if err != nil {
			respondError(c, log, err, "Unable to assign author. Check database connection.")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true})
	})

	rg.PATCH("/:id/authors/:authorshipId", func(c *gin.Context) {
		id, ok := paperIDParam(c)
		if !ok {
			return
		}
		authorshipID, ok := parseID(c.Param("authorshipId"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid authorship ID."})
			return
		}
		var req reorderAuthorRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err, msgInvalidJSON)
			return
		}
		if err := svc.ReorderAuthor(c.Request.Context(), principal(c), id, authorshipID, req.AuthorOrder); err != nil {
			respondError(c, log, err, "Unable to reorder author. Check database connection.")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	rg.DELETE("/:id/authors/:authorshipId", func(c *gin.Context) {
		id, ok := paperIDParam(c)
		if !ok {
			return
		}
		authorshipID, ok := parseID(c.Param("authorshipId"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid authorship ID."})
			return
		}
		if err := svc.RemoveAuthor(c.Request.Context(), principal(c), id, authorshipID); err != nil {
			respondError(c, log, err, "Unable to remove author. Check database connection.")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	rg.POST("/:id/revisions", func(c *gin.Context) {
		id, ok := paperIDParam(c)
		if !ok {
			return
		}
		var req addRevisionRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err, msgInvalidJSON)
			return
		}
		rev, err := svc.AddRevision(c.Request.Context(), principal(c), id, lifecycle.RevisionInput{
			VersionLabel: req.VersionLabel,
			Notes:        req.Notes,
		})
		if err != nil {
			respondError(c, log, err, "Unable to add revision. Check database connection.")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"revision": rev})
	})

	rg.POST("/:id/pdf", func(c *gin.Context) {
		id, ok := paperIDParam(c)
		if !ok {
			return
		}
		// etwas Luft für die Multipart-Header
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.PDFMaxBytes+1<<20)
		fileHeader, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": lifecycle.MsgFileTooLarge})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "Multipart field 'file' is required."})
			return
		}
		f, err := fileHeader.Open()
		if err != nil {
			respondError(c, log, apperr.Persistence(err), "Unable to read upload.")
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			respondError(c, log, apperr.Persistence(err), "Unable to read upload.")
			return
		}

		paper, err := svc.AttachPDF(c.Request.Context(), principal(c), id, data)
		if err != nil {
			respondError(c, log, err, "Unable to attach PDF. Check storage configuration.")
			return
		}
		c.JSON(http.StatusOK, gin.H{"paper": paper})
	})
}
