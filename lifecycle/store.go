package lifecycle

import (
	"context"
	"time"

	"papertrail/models"
)

// ListQuery beschreibt eine Paper-Liste.
type ListQuery struct {
	Deleted      bool
	Status       *models.PaperStatus
	Search       string // Teilstring in Titel oder Abstract, case-sensitive
	IncludeEmail bool
	Limit        int
}

// PaperChanges enthält die zu ändernden Metadaten; nil = unverändert.
type PaperChanges struct {
	Title    *string
	Abstract *string
	Status   *models.PaperStatus
	PDFURL   *string
}

// Empty meldet, ob keine Änderung enthalten ist.
func (c PaperChanges) Empty() bool {
	return c.Title == nil && c.Abstract == nil && c.Status == nil && c.PDFURL == nil
}

// AuditEntry wird in derselben Transaktion wie die Änderung geschrieben.
type AuditEntry struct {
	ActorID *int64
	Action  string
	Detail  string
}

// Store ist die relationale Datenhaltung hinter dem Lifecycle-Controller.
// Methoden, die eine gespeicherte Prozedur aufrufen, verlassen sich darauf,
// dass die Prozedur Änderung und Audit-Eintrag atomar schreibt.
type Store interface {
	UserExists(ctx context.Context, id int64) (bool, error)
	VenueExists(ctx context.Context, id int64) (bool, error)
	GrantExists(ctx context.Context, id int64) (bool, error)
	FirstAdminID(ctx context.Context) (int64, bool, error)

	CreatePaper(ctx context.Context, paper *models.Paper, audit AuditEntry) error
	GetPaper(ctx context.Context, id int64) (*models.Paper, error)
	ListPapers(ctx context.Context, q ListQuery) ([]models.Paper, error)
	// PaperOverview liefert das JSON-Dokument von sp_get_paper_overview.
	PaperOverview(ctx context.Context, id int64) ([]byte, error)
	UpdatePaper(ctx context.Context, id int64, changes PaperChanges, audit AuditEntry) (*models.Paper, error)
	RestorePaper(ctx context.Context, id int64, audit AuditEntry) (*models.Paper, error)
	SoftDeletePaper(ctx context.Context, id int64, actorID *int64) error
	HardDeletePaper(ctx context.Context, id int64, actorID *int64) error
	DeletedBefore(ctx context.Context, cutoff time.Time) ([]int64, error)

	LinkGrant(ctx context.Context, paperID, grantID int64, actorID *int64) error
	UnlinkGrant(ctx context.Context, paperID, grantID int64, audit AuditEntry) error
	AssignAuthor(ctx context.Context, paperID, userID int64, order *int, notes *string, actorID *int64) error
	RemoveAuthor(ctx context.Context, paperID, authorshipID int64, audit AuditEntry) error
	ReorderAuthor(ctx context.Context, paperID, authorshipID int64, order int, audit AuditEntry) error
	AddRevision(ctx context.Context, rev *models.Revision, audit AuditEntry) error
}

// FileStore legt hochgeladene PDFs ab und liefert deren öffentliche URL.
type FileStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// ContactSummary ist der Hauptkontakt in Listen; Email nur für berechtigte Rollen.
type ContactSummary struct {
	UserName string  `json:"userName"`
	Email    *string `json:"email,omitempty"`
}

// PaperSummary ist ein Listeneintrag.
type PaperSummary struct {
	models.Paper
	Venue          *models.Venue  `json:"venue"`
	PrimaryContact ContactSummary `json:"primaryContact"`
	Topics         []string       `json:"topics"`
}

// Overview ist die Detailansicht eines Papers.
type Overview struct {
	Paper       map[string]any   `json:"paper"`
	Authors     []map[string]any `json:"authors"`
	Revisions   []map[string]any `json:"revisions"`
	ActivityLog []map[string]any `json:"activityLog"`
}
