// Package lifecycle implementiert den Workflow eines Papers: Anlegen, Listen,
// Metadaten- und Statusänderungen, Soft-/Hard-Delete und Wiederherstellen.
// Jede Operation prüft zuerst die Rolle des Aufrufers, dann die Eingaben,
// dann referenzierte Datensätze, und schreibt erst danach.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"papertrail/apperr"
	"papertrail/auth"
	"papertrail/metrics"
	"papertrail/models"
)

const (
	msgInsufficient      = "Insufficient permissions."
	msgAdminDeleteOnly   = "Insufficient permissions. Only admins can delete papers."
	msgAdminRestoreOnly  = "Insufficient permissions. Only admins can restore papers."
	msgDeletedForbidden  = "Insufficient permissions to view deleted papers."
	msgRequiredFields    = "title and primaryContactId are required"
	msgContactMissing    = "primaryContactId does not exist."
	msgVenueMissing      = "venueId does not exist."
	msgUnsupportedStatus = "Unsupported status."
	msgPaperNotFound     = "Paper not found."
	msgNotDeleted        = "Paper is not deleted."
)

// Options steuert Grenzwerte und Standardwerte des Service.
type Options struct {
	DefaultActorID    int64
	ListLimit         int
	AbstractMaxLength int
	PDFMaxBytes       int64
}

// Service ist der Lifecycle-Controller.
type Service struct {
	store  Store
	files  FileStore
	logger *zap.Logger
	opts   Options
	now    func() time.Time
}

// NewService erstellt einen Service. files darf nil sein; PDF-Uploads liefern dann ErrStorageDisabled.
func NewService(store Store, files FileStore, logger *zap.Logger, opts Options) *Service {
	if opts.ListLimit <= 0 {
		opts.ListLimit = 20
	}
	if opts.AbstractMaxLength <= 0 {
		opts.AbstractMaxLength = 5000
	}
	if opts.PDFMaxBytes <= 0 {
		opts.PDFMaxBytes = 20 << 20
	}
	return &Service{store: store, files: files, logger: logger, opts: opts, now: time.Now}
}

// CreateInput sind die Felder von POST /api/papers. Status ist der rohe
// JSON-Wert, damit auch Nicht-Strings erkannt werden.
type CreateInput struct {
	Title            string
	Abstract         *string
	Status           any
	PrimaryContactID *int64
	VenueID          *int64
	SubmissionDate   *time.Time
	PublicationDate  *time.Time
	PDFURL           *string
}

// Create legt ein Paper an.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*models.Paper, error) {
	if !p.Capabilities().CanWrite {
		return nil, apperr.Authorization(msgInsufficient)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" || in.PrimaryContactID == nil || *in.PrimaryContactID == 0 {
		return nil, apperr.Validation(msgRequiredFields)
	}

	contactExists, err := s.store.UserExists(ctx, *in.PrimaryContactID)
	if err != nil {
		return nil, err
	}
	if !contactExists {
		return nil, apperr.Reference(msgContactMissing)
	}
	if in.VenueID != nil {
		venueExists, err := s.store.VenueExists(ctx, *in.VenueID)
		if err != nil {
			return nil, err
		}
		if !venueExists {
			return nil, apperr.Reference(msgVenueMissing)
		}
	}

	abstract := ""
	if in.Abstract != nil {
		abstract = s.truncateAbstract(*in.Abstract)
	}
	paper := &models.Paper{
		Title:            title,
		Abstract:         abstract,
		Status:           s.createStatus(in.Status),
		SubmissionDate:   in.SubmissionDate,
		PublicationDate:  in.PublicationDate,
		PDFURL:           in.PDFURL,
		PrimaryContactID: *in.PrimaryContactID,
		VenueID:          in.VenueID,
	}

	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return nil, err
	}
	audit := AuditEntry{ActorID: actor, Action: models.ActionCreate, Detail: fmt.Sprintf("Created paper %q", title)}
	if err := s.store.CreatePaper(ctx, paper, audit); err != nil {
		return nil, err
	}
	metrics.PaperCreated()
	s.logger.Info("Paper created", zap.Int64("paper_id", paper.ID), zap.String("status", string(paper.Status)))
	return paper, nil
}

// createStatus fällt für fehlende, unbekannte oder nicht-string Werte auf Draft zurück.
func (s *Service) createStatus(raw any) models.PaperStatus {
	switch v := raw.(type) {
	case nil:
		return models.DefaultPaperStatus
	case string:
		if status, ok := models.ParsePaperStatus(v); ok {
			return status
		}
		return models.DefaultPaperStatus
	default:
		s.logger.Error("Invalid status type received.", zap.Any("value", v))
		return models.DefaultPaperStatus
	}
}

func (s *Service) truncateAbstract(abstract string) string {
	if utf8.RuneCountInString(abstract) <= s.opts.AbstractMaxLength {
		return abstract
	}
	return string([]rune(abstract)[:s.opts.AbstractMaxLength])
}

// ListInput sind die Query-Parameter von GET /api/papers.
type ListInput struct {
	Search  string
	Status  string
	Deleted bool
}

// List liefert die zuletzt geänderten Paper. Rollen ohne Schreibrecht sehen
// nur veröffentlichte Paper, unabhängig vom angefragten Status.
func (s *Service) List(ctx context.Context, p auth.Principal, in ListInput) ([]PaperSummary, error) {
	caps := p.Capabilities()
	if in.Deleted && !caps.CanSeeDeleted {
		return nil, apperr.Authorization(msgDeletedForbidden)
	}

	q := ListQuery{
		Deleted:      in.Deleted,
		Search:       strings.TrimSpace(in.Search),
		IncludeEmail: caps.CanSeeEmail,
		Limit:        s.opts.ListLimit,
	}
	switch {
	case !caps.CanWrite:
		published := models.StatusPublished
		q.Status = &published
	case in.Status != "":
		status, ok := models.ParsePaperStatus(in.Status)
		if !ok {
			return nil, apperr.Validation(msgUnsupportedStatus)
		}
		q.Status = &status
	}

	papers, err := s.store.ListPapers(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]PaperSummary, 0, len(papers))
	for _, paper := range papers {
		out = append(out, summarize(paper, q.IncludeEmail))
	}
	return out, nil
}

func summarize(paper models.Paper, includeEmail bool) PaperSummary {
	sum := PaperSummary{Paper: paper, Venue: paper.Venue, Topics: make([]string, 0, len(paper.Topics))}
	if paper.PrimaryContact != nil {
		sum.PrimaryContact.UserName = paper.PrimaryContact.UserName
		if includeEmail {
			email := paper.PrimaryContact.Email
			sum.PrimaryContact.Email = &email
		}
	}
	for _, t := range paper.Topics {
		sum.Topics = append(sum.Topics, t.Name)
	}
	return sum
}

// Detail liefert Paper, Autoren, Revisionen und Audit-Trail.
func (s *Service) Detail(ctx context.Context, p auth.Principal, id int64) (*Overview, error) {
	raw, err := s.store.PaperOverview(ctx, id)
	if err != nil {
		return nil, err
	}
	ov, err := decodeOverview(raw)
	if err != nil {
		return nil, err
	}
	caps := p.Capabilities()
	if !visible(ov.Paper, caps) {
		return nil, apperr.NotFound(msgPaperNotFound)
	}
	if !caps.CanSeeEmail {
		for _, author := range ov.Authors {
			delete(author, "email")
		}
	}
	return ov, nil
}

// visible wendet die Sichtbarkeitsregeln der Liste auf ein einzelnes Paper an.
func visible(paper map[string]any, caps auth.Capabilities) bool {
	if deleted, _ := paper["isDeleted"].(bool); deleted && !caps.CanSeeDeleted {
		return false
	}
	if status, _ := paper["status"].(string); !caps.CanWrite && status != string(models.StatusPublished) {
		return false
	}
	return true
}

// UpdateInput sind die Felder von PATCH /api/papers/:id; nil = nicht gesetzt.
type UpdateInput struct {
	Title     *string
	Abstract  *string
	Status    *string
	IsDeleted *bool
}

// Update ändert Metadaten und Status. isDeleted=false stellt ein gelöschtes
// Paper wieder her (Status wird auf Draft gesetzt), bei einem aktiven Paper
// bleibt es ohne Wirkung. isDeleted=true löscht weich.
// Beim Wiederherstellen gewinnt ein explizit mitgeschickter Status.
func (s *Service) Update(ctx context.Context, p auth.Principal, id int64, in UpdateInput) (*models.Paper, error) {
	if in.Title == nil && in.Abstract == nil && in.Status == nil && in.IsDeleted == nil {
		return nil, apperr.Validation("At least one of title, abstract, status or isDeleted is required.")
	}
	caps := p.Capabilities()
	if (in.Title != nil || in.Abstract != nil) && !caps.CanEdit {
		return nil, apperr.Authorization(msgInsufficient)
	}
	if in.Status != nil && !caps.CanWrite {
		return nil, apperr.Authorization(msgInsufficient)
	}
	if in.IsDeleted != nil {
		if *in.IsDeleted && !caps.CanHardDelete {
			return nil, apperr.Authorization(msgAdminDeleteOnly)
		}
		if !*in.IsDeleted && !caps.CanRestore {
			return nil, apperr.Authorization(msgAdminRestoreOnly)
		}
	}

	var changes PaperChanges
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperr.Validation("title must not be empty.")
		}
		changes.Title = &title
	}
	if in.Abstract != nil {
		abstract := s.truncateAbstract(*in.Abstract)
		changes.Abstract = &abstract
	}
	if in.Status != nil {
		status, ok := models.ParsePaperStatus(*in.Status)
		if !ok {
			return nil, apperr.Validation(msgUnsupportedStatus)
		}
		changes.Status = &status
	}

	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return nil, err
	}

	var paper *models.Paper
	if in.IsDeleted != nil && !*in.IsDeleted {
		if paper, err = s.store.GetPaper(ctx, id); err != nil {
			return nil, err
		}
		if paper.IsDeleted {
			if paper, err = s.restore(ctx, id, actor); err != nil {
				return nil, err
			}
		}
	}
	if !changes.Empty() {
		action := models.ActionUpdate
		if changes.Status != nil {
			action = models.ActionStatusChange
		}
		audit := AuditEntry{ActorID: actor, Action: action, Detail: describeChanges(changes)}
		if paper, err = s.store.UpdatePaper(ctx, id, changes, audit); err != nil {
			return nil, err
		}
		metrics.Mutation(action)
	}
	if in.IsDeleted != nil && *in.IsDeleted {
		if err := s.softDelete(ctx, id, actor); err != nil {
			return nil, err
		}
		if paper, err = s.store.GetPaper(ctx, id); err != nil {
			return nil, err
		}
	}
	return paper, nil
}

func describeChanges(c PaperChanges) string {
	var parts []string
	if c.Title != nil {
		parts = append(parts, fmt.Sprintf("title=%q", *c.Title))
	}
	if c.Abstract != nil {
		parts = append(parts, "abstract updated")
	}
	if c.Status != nil {
		parts = append(parts, "status="+string(*c.Status))
	}
	if c.PDFURL != nil {
		parts = append(parts, "pdfUrl="+*c.PDFURL)
	}
	return strings.Join(parts, ", ")
}

// Restore hebt ein Soft-Delete auf und setzt den Status auf Draft zurück.
// Für aktive Paper liefert es einen Konflikt.
func (s *Service) Restore(ctx context.Context, p auth.Principal, id int64) (*models.Paper, error) {
	if !p.Capabilities().CanRestore {
		return nil, apperr.Authorization(msgAdminRestoreOnly)
	}
	current, err := s.store.GetPaper(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsDeleted {
		return nil, apperr.Conflict(msgNotDeleted)
	}
	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.restore(ctx, id, actor)
}

func (s *Service) restore(ctx context.Context, id int64, actor *int64) (*models.Paper, error) {
	audit := AuditEntry{ActorID: actor, Action: models.ActionRestore, Detail: "Restored paper, status reset to Draft"}
	paper, err := s.store.RestorePaper(ctx, id, audit)
	if err != nil {
		return nil, err
	}
	metrics.Mutation(models.ActionRestore)
	s.logger.Info("Paper restored", zap.Int64("paper_id", id))
	return paper, nil
}

// SoftDelete blendet ein Paper aus (nur admin).
func (s *Service) SoftDelete(ctx context.Context, p auth.Principal, id int64) error {
	if !p.Capabilities().CanHardDelete {
		return apperr.Authorization(msgAdminDeleteOnly)
	}
	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return err
	}
	return s.softDelete(ctx, id, actor)
}

func (s *Service) softDelete(ctx context.Context, id int64, actor *int64) error {
	if err := s.store.SoftDeletePaper(ctx, id, actor); err != nil {
		return err
	}
	metrics.Mutation(models.ActionSoftDelete)
	s.logger.Info("Paper soft deleted", zap.Int64("paper_id", id), zap.Int64p("actor_id", actor))
	return nil
}

// HardDelete entfernt ein Paper samt abhängiger Zeilen endgültig (nur admin).
// Eine Bestätigung ist Sache des Clients.
func (s *Service) HardDelete(ctx context.Context, p auth.Principal, id int64) error {
	if !p.Capabilities().CanHardDelete {
		return apperr.Authorization(msgAdminDeleteOnly)
	}
	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return err
	}
	if err := s.store.HardDeletePaper(ctx, id, actor); err != nil {
		return err
	}
	metrics.Mutation(models.ActionHardDelete)
	s.logger.Warn("Paper permanently deleted", zap.Int64("paper_id", id), zap.Int64p("actor_id", actor))
	return nil
}

// resolveActor bestimmt den User für den Audit-Trail: den angemeldeten User,
// sonst DEFAULT_ACTOR_ID falls vorhanden, sonst den ersten Admin, sonst NULL.
func (s *Service) resolveActor(ctx context.Context, p auth.Principal) (*int64, error) {
	if p.UserID > 0 {
		id := p.UserID
		return &id, nil
	}
	if s.opts.DefaultActorID > 0 {
		exists, err := s.store.UserExists(ctx, s.opts.DefaultActorID)
		if err != nil {
			return nil, err
		}
		if exists {
			id := s.opts.DefaultActorID
			return &id, nil
		}
	}
	id, ok, err := s.store.FirstAdminID(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Warn("No actor could be resolved for audit trail")
		return nil, nil
	}
	return &id, nil
}
