package auth

import (
	"strings"

	"golang.org/x/text/cases"
)

// Role ist eine der vier festen API-Rollen.
type Role string

const (
	RoleAdmin                 Role = "admin"
	RolePrincipalInvestigator Role = "principal_investigator"
	RoleContributor           Role = "contributor"
	RoleViewer                Role = "viewer"
)

// Capabilities beschreibt, was eine Rolle darf.
type Capabilities struct {
	CanWrite      bool `json:"canWrite"`      // Paper anlegen, Status ändern, Autoren/Grants verwalten
	CanEdit       bool `json:"canEdit"`       // Titel, Abstract, Revisionen, PDF
	CanHardDelete bool `json:"canHardDelete"` // Soft- und Hard-Delete
	CanRestore    bool `json:"canRestore"`
	CanSeeEmail   bool `json:"canSeeEmail"`
	CanSeeDeleted bool `json:"canSeeDeleted"`
}

var folder = cases.Fold()

// ParseRole bildet einen Header- oder Claim-Wert auf eine Rolle ab.
// Unbekannte oder leere Werte ergeben RoleViewer.
func ParseRole(raw string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleAdmin, RolePrincipalInvestigator, RoleContributor, RoleViewer:
		return r
	default:
		return RoleViewer
	}
}

// NormalizeRoleName bildet den Rollennamen aus der Datenbank ("Research Admin",
// "Principal Investigator", "PI", ...) auf eine API-Rolle ab.
func NormalizeRoleName(name string) Role {
	key := strings.Join(strings.Fields(folder.String(name)), "_")
	switch key {
	case "research_admin", "admin", "administrator":
		return RoleAdmin
	case "pi", "principal_investigator":
		return RolePrincipalInvestigator
	case "contributor":
		return RoleContributor
	default:
		return RoleViewer
	}
}

// Capabilities liefert die Berechtigungen der Rolle.
func (r Role) Capabilities() Capabilities {
	switch r {
	case RoleAdmin:
		return Capabilities{
			CanWrite:      true,
			CanEdit:       true,
			CanHardDelete: true,
			CanRestore:    true,
			CanSeeEmail:   true,
			CanSeeDeleted: true,
		}
	case RolePrincipalInvestigator:
		return Capabilities{
			CanWrite:      true,
			CanEdit:       true,
			CanSeeEmail:   true,
			CanSeeDeleted: true,
		}
	case RoleContributor:
		return Capabilities{CanEdit: true}
	case RoleViewer:
		return Capabilities{}
	default:
		return Capabilities{}
	}
}

// HasWritePermission ist true nur für admin und principal_investigator.
func HasWritePermission(r Role) bool {
	return r.Capabilities().CanWrite
}

// CanIncludeEmails steuert, ob Kontakt-E-Mails in Antworten enthalten sind.
func CanIncludeEmails(r Role) bool {
	return r.Capabilities().CanSeeEmail
}
