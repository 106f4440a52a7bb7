package models

// PaperStatus ist der Lebenszyklus-Status eines Papers.
type PaperStatus string

const (
	StatusDraft       PaperStatus = "Draft"
	StatusSubmitted   PaperStatus = "Submitted"
	StatusUnderReview PaperStatus = "UnderReview"
	StatusAccepted    PaperStatus = "Accepted"
	StatusPublished   PaperStatus = "Published"
	StatusRejected    PaperStatus = "Rejected"
	StatusWithdrawn   PaperStatus = "Withdrawn"
)

// DefaultPaperStatus wird verwendet, wenn kein gültiger Status angegeben wurde.
const DefaultPaperStatus = StatusDraft

// PaperStatuses listet alle erlaubten Status in Workflow-Reihenfolge.
var PaperStatuses = []PaperStatus{
	StatusDraft,
	StatusSubmitted,
	StatusUnderReview,
	StatusAccepted,
	StatusPublished,
	StatusRejected,
	StatusWithdrawn,
}

// Valid meldet, ob s einer der festen Status-Werte ist (Groß-/Kleinschreibung zählt).
func (s PaperStatus) Valid() bool {
	for _, known := range PaperStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParsePaperStatus liefert den Status zu raw und ok=false für unbekannte Werte.
func ParsePaperStatus(raw string) (PaperStatus, bool) {
	s := PaperStatus(raw)
	return s, s.Valid()
}
