package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"papertrail/apperr"
	"papertrail/auth"
	"papertrail/metrics"
	"papertrail/models"
)

// ErrStorageDisabled wird geliefert, wenn kein Objektspeicher konfiguriert ist.
var ErrStorageDisabled = errors.New("PDF storage is not configured.")

// MsgFileTooLarge ist die Meldung für Uploads über PDF_MAX_BYTES.
const MsgFileTooLarge = "File too large."

// LinkGrant verknüpft eine Förderung über sp_link_grant_to_paper.
func (s *Service) LinkGrant(ctx context.Context, p auth.Principal, paperID, grantID int64) error {
	if !p.Capabilities().CanWrite {
		return apperr.Authorization(msgInsufficient)
	}
	if grantID <= 0 {
		return apperr.Validation("grantId is required.")
	}
	exists, err := s.store.GrantExists(ctx, grantID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.Reference("grantId does not exist.")
	}
	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return err
	}
	if err := s.store.LinkGrant(ctx, paperID, grantID, actor); err != nil {
		return err
	}
	metrics.Mutation(models.ActionLinkGrant)
	return nil
}

// UnlinkGrant entfernt die Verknüpfung und schreibt einen Audit-Eintrag.
func (s *Service) UnlinkGrant(ctx context.Context, p auth.Principal, paperID, grantID int64) error {
	if !p.Capabilities().CanWrite {
		return apperr.Authorization(msgInsufficient)
	}
	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return err
	}
	audit := AuditEntry{ActorID: actor, Action: models.ActionUnlinkGrant, Detail: fmt.Sprintf("Unlinked grant %d", grantID)}
	if err := s.store.UnlinkGrant(ctx, paperID, grantID, audit); err != nil {
		return err
	}
	metrics.Mutation(models.ActionUnlinkGrant)
	return nil
}

// AuthorInput sind die Felder von POST /api/papers/:id/authors.
type AuthorInput struct {
	UserID            int64
	AuthorOrder       *int
	ContributionNotes *string
}

// AssignAuthor trägt einen User über sp_assign_author als Autor ein. Ohne
// Reihenfolge hängt die Prozedur den Autor ans Ende.
func (s *Service) AssignAuthor(ctx context.Context, p auth.Principal, paperID int64, in AuthorInput) error {
	if !p.Capabilities().CanWrite {
		return apperr.Authorization(msgInsufficient)
	}
	if in.UserID <= 0 {
		return apperr.Validation("userId is required.")
	}
	if in.AuthorOrder != nil && *in.AuthorOrder < 1 {
		return apperr.Validation("authorOrder must be a positive integer.")
	}
	exists, err := s.store.UserExists(ctx, in.UserID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.Reference("userId does not exist.")
	}
	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return err
	}
	if err := s.store.AssignAuthor(ctx, paperID, in.UserID, in.AuthorOrder, in.ContributionNotes, actor); err != nil {
		return err
	}
	metrics.Mutation(models.ActionAssignAuthor)
	return nil
}

// RemoveAuthor löscht eine Autorschaft.
func (s *Service) RemoveAuthor(ctx context.Context, p auth.Principal, paperID, authorshipID int64) error {
	if !p.Capabilities().CanWrite {
		return apperr.Authorization(msgInsufficient)
	}
	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return err
	}
	audit := AuditEntry{ActorID: actor, Action: models.ActionRemoveAuthor, Detail: fmt.Sprintf("Removed authorship %d", authorshipID)}
	if err := s.store.RemoveAuthor(ctx, paperID, authorshipID, audit); err != nil {
		return err
	}
	metrics.Mutation(models.ActionRemoveAuthor)
	return nil
}

// ReorderAuthor setzt die Position eines Autors.
func (s *Service) ReorderAuthor(ctx context.Context, p auth.Principal, paperID, authorshipID int64, order int) error {
	if !p.Capabilities().CanWrite {
		return apperr.Authorization(msgInsufficient)
	}
	if order < 1 {
		return apperr.Validation("authorOrder must be a positive integer.")
	}
	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return err
	}
	audit := AuditEntry{
		ActorID: actor,
		Action:  models.ActionReorderAuthor,
		Detail:  fmt.Sprintf("Moved authorship %d to position %d", authorshipID, order),
	}
	if err := s.store.ReorderAuthor(ctx, paperID, authorshipID, order, audit); err != nil {
		return err
	}
	metrics.Mutation(models.ActionReorderAuthor)
	return nil
}

// RevisionInput sind die Felder von POST /api/papers/:id/revisions.
type RevisionInput struct {
	VersionLabel string
	Notes        *string
}

// AddRevision hängt einen Versionsstand an.
func (s *Service) AddRevision(ctx context.Context, p auth.Principal, paperID int64, in RevisionInput) (*models.Revision, error) {
	if !p.Capabilities().CanEdit {
		return nil, apperr.Authorization(msgInsufficient)
	}
	label := strings.TrimSpace(in.VersionLabel)
	if label == "" {
		return nil, apperr.Validation("versionLabel is required.")
	}
	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return nil, err
	}
	rev := &models.Revision{PaperID: paperID, VersionLabel: label, Notes: in.Notes}
	audit := AuditEntry{ActorID: actor, Action: models.ActionAddRevision, Detail: "Added revision " + label}
	if err := s.store.AddRevision(ctx, rev, audit); err != nil {
		return nil, err
	}
	metrics.Mutation(models.ActionAddRevision)
	return rev, nil
}

// AttachPDF lädt ein PDF in den Objektspeicher und setzt pdfUrl.
func (s *Service) AttachPDF(ctx context.Context, p auth.Principal, paperID int64, data []byte) (*models.Paper, error) {
	if !p.Capabilities().CanEdit {
		return nil, apperr.Authorization(msgInsufficient)
	}
	if s.files == nil {
		return nil, ErrStorageDisabled
	}
	if len(data) == 0 {
		return nil, apperr.Validation("file is required.")
	}
	if int64(len(data)) > s.opts.PDFMaxBytes {
		return nil, apperr.TooLarge(MsgFileTooLarge)
	}
	if ct := http.DetectContentType(data); ct != "application/pdf" {
		return nil, apperr.Validation("file must be a PDF.")
	}
	if _, err := s.store.GetPaper(ctx, paperID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("papers/%d/%d.pdf", paperID, s.now().Unix())
	url, err := s.files.Put(ctx, key, "application/pdf", data)
	if err != nil {
		s.logger.Error("PDF upload failed", zap.Int64("paper_id", paperID), zap.Error(err))
		return nil, apperr.Persistence(err)
	}

	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return nil, err
	}
	audit := AuditEntry{ActorID: actor, Action: models.ActionAttachPDF, Detail: "Attached PDF " + key}
	paper, err := s.store.UpdatePaper(ctx, paperID, PaperChanges{PDFURL: &url}, audit)
	if err != nil {
		return nil, err
	}
	metrics.Mutation(models.ActionAttachPDF)
	return paper, nil
}
