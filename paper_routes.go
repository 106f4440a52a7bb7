package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"papertrail/apperr"
	"papertrail/lifecycle"
)

type createPaperRequest struct {
	Title            string  `json:"title"`
	Abstract         *string `json:"abstract"`
	Status           any     `json:"status"`
	PrimaryContactID *int64  `json:"primaryContactId"`
	VenueID          *int64  `json:"venueId"`
	SubmissionDate   *string `json:"submissionDate"`
	PublicationDate  *string `json:"publicationDate"`
	PDFURL           *string `json:"pdfUrl" binding:"omitempty,url"`
}

type updatePaperRequest struct {
	ID        *int64  `json:"id"`
	Title     *string `json:"title"`
	Abstract  *string `json:"abstract"`
	Status    *string `json:"status"`
	IsDeleted *bool   `json:"isDeleted"`
}

func setupPaperRoutes(rg *gin.RouterGroup, svc *lifecycle.Service, log *zap.Logger) {
	rg.GET("", func(c *gin.Context) {
		papers, err := svc.List(c.Request.Context(), principal(c), lifecycle.ListInput{
			Search:  c.Query("search"),
			Status:  c.Query("status"),
			Deleted: c.Query("deleted") == "true",
		})
		if err != nil {
			respondError(c, log, err, "Database not ready yet. Run migrations and try again.")
			return
		}
		c.JSON(http.StatusOK, gin.H{"papers": papers})
	})

	rg.POST("", func(c *gin.Context) {
		p := principal(c)
		// Berechtigung vor dem Body prüfen, damit viewer keine Validierungsdetails sehen
		if !p.Capabilities().CanWrite {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions."})
			return
		}

		var req createPaperRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err, msgInvalidJSON)
			return
		}
		submission, err := parseDate("submissionDate", req.SubmissionDate)
		if err != nil {
			respondError(c, log, err, msgInvalidPayload)
			return
		}
		publication, err := parseDate("publicationDate", req.PublicationDate)
		if err != nil {
			respondError(c, log, err, msgInvalidPayload)
			return
		}

		paper, err := svc.Create(c.Request.Context(), p, lifecycle.CreateInput{
			Title:            req.Title,
			Abstract:         req.Abstract,
			Status:           req.Status,
			PrimaryContactID: req.PrimaryContactID,
			VenueID:          req.VenueID,
			SubmissionDate:   submission,
			PublicationDate:  publication,
			PDFURL:           req.PDFURL,
		})
		if err != nil {
			respondError(c, log, err, "Unable to create paper. Check database connection.")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"paper": paper})
	})

	update := func(c *gin.Context, id int64, req updatePaperRequest) {
		paper, err := svc.Update(c.Request.Context(), principal(c), id, lifecycle.UpdateInput{
			Title:     req.Title,
			Abstract:  req.Abstract,
			Status:    req.Status,
			IsDeleted: req.IsDeleted,
		})
		if err != nil {
			respondError(c, log, err, "Unable to update paper. Check database connection.")
			return
		}
		c.JSON(http.StatusOK, gin.H{"paper": paper})
	}

	rg.PATCH("", func(c *gin.Context) {
		var req updatePaperRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err, msgInvalidJSON)
			return
		}
		if req.ID == nil || *req.ID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidPaperID})
			return
		}
		update(c, *req.ID, req)
	})

	rg.PATCH("/:id", func(c *gin.Context) {
		id, ok := paperIDParam(c)
		if !ok {
			return
		}
		var req updatePaperRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err, msgInvalidJSON)
			return
		}
		update(c, id, req)
	})

	remove := func(c *gin.Context, id int64) {
		p := principal(c)
		var err error
		msg := fmt.Sprintf("Paper with id %d has been soft deleted successfully.", id)
		if c.Query("hard") == "true" {
			err = svc.HardDelete(c.Request.Context(), p, id)
			msg = fmt.Sprintf("Paper with id %d has been permanently deleted.", id)
		} else {
			err = svc.SoftDelete(c.Request.Context(), p, id)
		}
		if err != nil {
			respondError(c, log, err, "Unable to delete paper. Check database connection.")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	}

	rg.DELETE("", func(c *gin.Context) {
		// Rechte vor den Query-Parametern prüfen
		if !principal(c).Capabilities().CanHardDelete {
			respondError(c, log, apperr.Authorization("Insufficient permissions. Only admins can delete papers."), "")
			return
		}
		raw := c.Query("id")
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Paper id is required for deletion."})
			return
		}
		id, ok := parseID(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid paper id."})
			return
		}
		remove(c, id)
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		id, ok := paperIDParam(c)
		if !ok {
			return
		}
		remove(c, id)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, ok := paperIDParam(c)
		if !ok {
			return
		}
		ov, err := svc.Detail(c.Request.Context(), principal(c), id)
		if err != nil {
			respondError(c, log, err, "Unable to fetch paper details at this time.")
			return
		}
		c.JSON(http.StatusOK, ov)
	})

	rg.POST("/:id/restore", func(c *gin.Context) {
		id, ok := paperIDParam(c)
		if !ok {
			return
		}
		paper, err := svc.Restore(c.Request.Context(), principal(c), id)
		if err != nil {
			respondError(c, log, err, "Unable to restore paper. Check database connection.")
			return
		}
		c.JSON(http.StatusOK, gin.H{"paper": paper})
	})
}
