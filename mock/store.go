// Package mock stellt einen In-Memory-Store für Tests bereit.
package mock

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"papertrail/apperr"
	"papertrail/auth"
	"papertrail/lifecycle"
	"papertrail/models"
)

// Store implementiert lifecycle.Store im Speicher. Procedures protokolliert
// jeden Aufruf, der im echten Store eine gespeicherte Prozedur wäre.
type Store struct {
	mu sync.Mutex

	Users       map[int64]*models.User
	Roles       map[int64]*models.Role
	Venues      map[int64]*models.Venue
	Grants      map[int64]*models.Grant
	Papers      map[int64]*models.Paper
	Authorships map[int64]*models.Authorship
	PaperGrants map[[2]int64]bool
	Revisions   []models.Revision
	Logs        []models.ActivityLog

	Procedures []string
	Writes     int
	// Err wird, falls gesetzt, von jeder Methode zurückgegeben.
	Err error

	lastID int64
	clock  time.Time
}

// NewStore erstellt einen leeren Store.
func NewStore() *Store {
	return &Store{
		Users:       make(map[int64]*models.User),
		Roles:       make(map[int64]*models.Role),
		Venues:      make(map[int64]*models.Venue),
		Grants:      make(map[int64]*models.Grant),
		Papers:      make(map[int64]*models.Paper),
		Authorships: make(map[int64]*models.Authorship),
		PaperGrants: make(map[[2]int64]bool),
		clock:       time.Now().UTC(),
	}
}

func (s *Store) nextID() int64 {
	s.lastID++
	return s.lastID
}

// tick liefert streng monoton steigende Zeitstempel.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// AddRole legt eine Datenbank-Rolle an.
func (s *Store) AddRole(name string) *models.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &models.Role{ID: s.nextID(), RoleName: name}
	s.Roles[r.ID] = r
	return r
}

// AddUser legt einen User an; RoleID muss auf eine Rolle aus AddRole zeigen.
func (s *Store) AddUser(u models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.nextID()
	}
	if r, ok := s.Roles[u.RoleID]; ok {
		u.Role = *r
	}
	s.Users[u.ID] = &u
	return &u
}

// AddVenue legt einen Veranstaltungsort an.
func (s *Store) AddVenue(v models.Venue) *models.Venue {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.nextID()
	s.Venues[v.ID] = &v
	return &v
}

// AddGrant legt eine Förderung an.
func (s *Store) AddGrant(g models.Grant) *models.Grant {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.nextID()
	s.Grants[g.ID] = &g
	return &g
}

// LogsFor liefert den Audit-Trail eines Papers.
func (s *Store) LogsFor(paperID int64) []models.ActivityLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ActivityLog
	for _, l := range s.Logs {
		if l.PaperID != nil && *l.PaperID == paperID {
			out = append(out, l)
		}
	}
	return out
}

func (s *Store) log(paperID int64, actor *int64, action, detail string) {
	pid := paperID
	s.Logs = append(s.Logs, models.ActivityLog{
		ID:           s.nextID(),
		PaperID:      &pid,
		UserID:       actor,
		ActionType:   action,
		ActionDetail: detail,
		Timestamp:    s.tick(),
	})
}

func (s *Store) paper(id int64) (*models.Paper, error) {
	p, ok := s.Papers[id]
	if !ok {
		return nil, apperr.NotFound("Paper not found.")
	}
	return p, nil
}

func (s *Store) UserExists(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	_, ok := s.Users[id]
	return ok, nil
}

func (s *Store) VenueExists(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	_, ok := s.Venues[id]
	return ok, nil
}

func (s *Store) GrantExists(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	_, ok := s.Grants[id]
	return ok, nil
}

func (s *Store) FirstAdminID(_ context.Context) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, false, s.Err
	}
	var best int64
	for id, u := range s.Users {
		if auth.NormalizeRoleName(u.Role.RoleName) == auth.RoleAdmin && (best == 0 || id < best) {
			best = id
		}
	}
	return best, best != 0, nil
}

// FindUserByIdentifier sucht case-insensitiv nach Email oder Benutzername.
func (s *Store) FindUserByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.Users {
		if strings.EqualFold(u.Email, identifier) || strings.EqualFold(u.UserName, identifier) {
			found := *u
			return &found, nil
		}
	}
	return nil, apperr.NotFound("User not found.")
}

func (s *Store) CreatePaper(_ context.Context, paper *models.Paper, audit lifecycle.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	paper.ID = s.nextID()
	paper.CreatedAt = s.tick()
	paper.UpdatedAt = paper.CreatedAt
	stored := *paper
	s.Papers[paper.ID] = &stored
	s.Writes++
	s.log(paper.ID, audit.ActorID, audit.Action, audit.Detail)
	return nil
}

func (s *Store) GetPaper(_ context.Context, id int64) (*models.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, err := s.paper(id)
	if err != nil {
		return nil, err
	}
	out := *p
	return &out, nil
}

func (s *Store) ListPapers(_ context.Context, q lifecycle.ListQuery) ([]models.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []models.Paper
	for _, p := range s.Papers {
		if p.IsDeleted != q.Deleted {
			continue
		}
		if q.Status != nil && p.Status != *q.Status {
			continue
		}
		if q.Search != "" && !strings.Contains(p.Title, q.Search) && !strings.Contains(p.Abstract, q.Search) {
			continue
		}
		row := *p
		if u, ok := s.Users[p.PrimaryContactID]; ok {
			contact := *u
			row.PrimaryContact = &contact
		}
		if p.VenueID != nil {
			if v, ok := s.Venues[*p.VenueID]; ok {
				venue := *v
				row.Venue = &venue
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// PaperOverview baut dasselbe Dokument wie sp_get_paper_overview.
func (s *Store) PaperOverview(_ context.Context, id int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	doc := map[string]any{
		"paper":       []any{},
		"authors":     []any{},
		"revisions":   []any{},
		"activityLog": []any{},
	}
	p, ok := s.Papers[id]
	if !ok {
		return json.Marshal(doc)
	}
	doc["paper"] = []any{p}

	var authors []map[string]any
	for _, a := range s.Authorships {
		if a.PaperID != id {
			continue
		}
		row := map[string]any{"authorshipId": a.ID, "userId": a.UserID, "authorOrder": a.AuthorOrder}
		if u, ok := s.Users[a.UserID]; ok {
			row["userName"] = u.UserName
			row["email"] = u.Email
		}
		authors = append(authors, row)
	}
	sort.Slice(authors, func(i, j int) bool {
		return authors[i]["authorOrder"].(int) < authors[j]["authorOrder"].(int)
	})
	if authors != nil {
		doc["authors"] = authors
	}

	var revisions []models.Revision
	for _, r := range s.Revisions {
		if r.PaperID == id {
			revisions = append(revisions, r)
		}
	}
	if revisions != nil {
		doc["revisions"] = revisions
	}

	var logs []models.ActivityLog
	for _, l := range s.Logs {
		if l.PaperID != nil && *l.PaperID == id {
			logs = append(logs, l)
		}
	}
	if logs != nil {
		doc["activityLog"] = logs
	}
	return json.Marshal(doc)
}

func (s *Store) UpdatePaper(_ context.Context, id int64, c lifecycle.PaperChanges, audit lifecycle.AuditEntry) (*models.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, err := s.paper(id)
	if err != nil {
		return nil, err
	}
	if c.Title != nil {
		p.Title = *c.Title
	}
	if c.Abstract != nil {
		p.Abstract = *c.Abstract
	}
	if c.Status != nil {
		p.Status = *c.Status
	}
	if c.PDFURL != nil {
		url := *c.PDFURL
		p.PDFURL = &url
	}
	p.UpdatedAt = s.tick()
	s.Writes++
	s.log(id, audit.ActorID, audit.Action, audit.Detail)
	out := *p
	return &out, nil
}

func (s *Store) RestorePaper(_ context.Context, id int64, audit lifecycle.AuditEntry) (*models.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, err := s.paper(id)
	if err != nil {
		return nil, err
	}
	if !p.IsDeleted {
		return nil, apperr.NotFound("Paper not found.")
	}
	p.IsDeleted = false
	p.Status = models.StatusDraft
	p.UpdatedAt = s.tick()
	s.Writes++
	s.log(id, audit.ActorID, audit.Action, audit.Detail)
	out := *p
	return &out, nil
}

func (s *Store) SoftDeletePaper(_ context.Context, id int64, actorID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Procedures = append(s.Procedures, "CALL sp_soft_delete_paper(?, ?)")
	p, err := s.paper(id)
	if err != nil {
		return err
	}
	p.IsDeleted = true
	p.UpdatedAt = s.tick()
	s.Writes++
	s.log(id, actorID, models.ActionSoftDelete, "Soft deleted paper")
	return nil
}

func (s *Store) HardDeletePaper(_ context.Context, id int64, actorID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Procedures = append(s.Procedures, "CALL sp_hard_delete_paper(?, ?)")
	if _, err := s.paper(id); err != nil {
		return err
	}
	delete(s.Papers, id)
	for aid, a := range s.Authorships {
		if a.PaperID == id {
			delete(s.Authorships, aid)
		}
	}
	for key := range s.PaperGrants {
		if key[0] == id {
			delete(s.PaperGrants, key)
		}
	}
	revisions := s.Revisions[:0]
	for _, r := range s.Revisions {
		if r.PaperID != id {
			revisions = append(revisions, r)
		}
	}
	s.Revisions = revisions
	logs := s.Logs[:0]
	for _, l := range s.Logs {
		if l.PaperID == nil || *l.PaperID != id {
			logs = append(logs, l)
		}
	}
	s.Logs = logs
	s.Writes++
	// der Eintrag überlebt das Paper nur ohne Paper-Bezug
	s.Logs = append(s.Logs, models.ActivityLog{
		ID:           s.nextID(),
		UserID:       actorID,
		ActionType:   models.ActionHardDelete,
		ActionDetail: "Hard deleted paper",
		Timestamp:    s.tick(),
	})
	return nil
}

func (s *Store) DeletedBefore(_ context.Context, cutoff time.Time) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var ids []int64
	for id, p := range s.Papers {
		if p.IsDeleted && p.UpdatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) LinkGrant(_ context.Context, paperID, grantID int64, actorID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Procedures = append(s.Procedures, "CALL sp_link_grant_to_paper(?, ?, ?)")
	if _, err := s.paper(paperID); err != nil {
		return err
	}
	key := [2]int64{paperID, grantID}
	if s.PaperGrants[key] {
		return apperr.Validation("Invalid data: grant already linked")
	}
	s.PaperGrants[key] = true
	s.Writes++
	s.log(paperID, actorID, models.ActionLinkGrant, "Linked grant")
	return nil
}

func (s *Store) UnlinkGrant(_ context.Context, paperID, grantID int64, audit lifecycle.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	key := [2]int64{paperID, grantID}
	if !s.PaperGrants[key] {
		return apperr.NotFound("Grant link not found.")
	}
	delete(s.PaperGrants, key)
	s.Writes++
	s.log(paperID, audit.ActorID, audit.Action, audit.Detail)
	return nil
}

func (s *Store) AssignAuthor(_ context.Context, paperID, userID int64, order *int, notes *string, actorID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Procedures = append(s.Procedures, "CALL sp_assign_author(?, ?, ?, ?, ?)")
	if _, err := s.paper(paperID); err != nil {
		return err
	}
	next := 1
	for _, a := range s.Authorships {
		if a.PaperID != paperID {
			continue
		}
		if a.UserID == userID {
			return apperr.Validation("Invalid data: author already assigned")
		}
		if a.AuthorOrder >= next {
			next = a.AuthorOrder + 1
		}
	}
	if order != nil {
		next = *order
	}
	a := &models.Authorship{ID: s.nextID(), PaperID: paperID, UserID: userID, AuthorOrder: next, ContributionNotes: notes, CreatedAt: s.tick()}
	s.Authorships[a.ID] = a
	s.Writes++
	s.log(paperID, actorID, models.ActionAssignAuthor, "Assigned author")
	return nil
}

func (s *Store) authorship(paperID, authorshipID int64) (*models.Authorship, error) {
	a, ok := s.Authorships[authorshipID]
	if !ok || a.PaperID != paperID {
		return nil, apperr.NotFound("Authorship not found.")
	}
	return a, nil
}

func (s *Store) RemoveAuthor(_ context.Context, paperID, authorshipID int64, audit lifecycle.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, err := s.authorship(paperID, authorshipID); err != nil {
		return err
	}
	delete(s.Authorships, authorshipID)
	s.Writes++
	s.log(paperID, audit.ActorID, audit.Action, audit.Detail)
	return nil
}

func (s *Store) ReorderAuthor(_ context.Context, paperID, authorshipID int64, order int, audit lifecycle.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	a, err := s.authorship(paperID, authorshipID)
	if err != nil {
		return err
	}
	a.AuthorOrder = order
	s.Writes++
	s.log(paperID, audit.ActorID, audit.Action, audit.Detail)
	return nil
}

func (s *Store) AddRevision(_ context.Context, rev *models.Revision, audit lifecycle.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, err := s.paper(rev.PaperID); err != nil {
		return err
	}
	rev.ID = s.nextID()
	rev.CreatedAt = s.tick()
	s.Revisions = append(s.Revisions, *rev)
	s.Writes++
	s.log(rev.PaperID, audit.ActorID, audit.Action, audit.Detail)
	return nil
}

// Age verschiebt den Änderungszeitpunkt eines Papers in die Vergangenheit.
func (s *Store) Age(id int64, by time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.Papers[id]; ok {
		p.UpdatedAt = p.UpdatedAt.Add(-by)
	}
}

// Files ist ein FileStore im Speicher.
type Files struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Err     error
}

func (f *Files) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	if f.Objects == nil {
		f.Objects = make(map[string][]byte)
	}
	f.Objects[key] = data
	return "https://files.test/" + key, nil
}
