package store

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"papertrail/apperr"
	"papertrail/lifecycle"
	"papertrail/models"
)

const (
	msgPaperNotFound      = "Paper not found."
	msgAuthorshipNotFound = "Authorship not found."
	msgGrantLinkNotFound  = "Grant link not found."
)

func auditRow(paperID int64, audit lifecycle.AuditEntry) *models.ActivityLog {
	pid := paperID
	return &models.ActivityLog{
		PaperID:      &pid,
		UserID:       audit.ActorID,
		ActionType:   audit.Action,
		ActionDetail: audit.Detail,
	}
}

func (s *Store) CreatePaper(ctx context.Context, paper *models.Paper, audit lifecycle.AuditEntry) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(paper).Error; err != nil {
			return err
		}
		return tx.Create(auditRow(paper.ID, audit)).Error
	})
	return classify(err, msgPaperNotFound)
}

func (s *Store) GetPaper(ctx context.Context, id int64) (*models.Paper, error) {
	var paper models.Paper
	if err := s.db.WithContext(ctx).First(&paper, id).Error; err != nil {
		return nil, classify(err, msgPaperNotFound)
	}
	return &paper, nil
}

// ListPapers sortiert nach updated_at absteigend. LIKE ist in Postgres
// case-sensitiv, die Suche also auch.
func (s *Store) ListPapers(ctx context.Context, q lifecycle.ListQuery) ([]models.Paper, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Paper{}).
		Preload("PrimaryContact").
		Preload("Venue").
		Preload("Topics").
		Where("is_deleted = ?", q.Deleted)

	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(q.Search) + "%"
		query = query.Where(`(title LIKE ? ESCAPE '\' OR abstract LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var papers []models.Paper
	if err := query.Order("updated_at DESC").Order("id DESC").Find(&papers).Error; err != nil {
		return nil, classify(err, msgPaperNotFound)
	}
	return papers, nil
}

func (s *Store) PaperOverview(ctx context.Context, id int64) ([]byte, error) {
	var doc datatypes.JSON
	row := s.db.WithContext(ctx).Raw("SELECT sp_get_paper_overview(?)", id).Row()
	if err := row.Scan(&doc); err != nil {
		return nil, classify(err, msgPaperNotFound)
	}
	return []byte(doc), nil
}

// updatePaper schreibt updates und den Audit-Eintrag in einer Transaktion
// und liefert die neue Zeile über RETURNING. Mit deletedOnly trifft das
// UPDATE nur Paper im Papierkorb.
func (s *Store) updatePaper(ctx context.Context, id int64, updates map[string]any, audit lifecycle.AuditEntry, deletedOnly bool) (*models.Paper, error) {
	var paper models.Paper
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&paper).Clauses(clause.Returning{}).Where("id = ?", id)
		if deletedOnly {
			query = query.Where("is_deleted = ?", true)
		}
		res := query.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(auditRow(id, audit)).Error
	})
	if err != nil {
		return nil, classify(err, msgPaperNotFound)
	}
	return &paper, nil
}

func (s *Store) UpdatePaper(ctx context.Context, id int64, c lifecycle.PaperChanges, audit lifecycle.AuditEntry) (*models.Paper, error) {
	updates := map[string]any{}
	if c.Title != nil {
		updates["title"] = *c.Title
	}
	if c.Abstract != nil {
		updates["abstract"] = *c.Abstract
	}
	if c.Status != nil {
		updates["status"] = *c.Status
	}
	if c.PDFURL != nil {
		updates["pdf_url"] = *c.PDFURL
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("nothing to update")
	}
	return s.updatePaper(ctx, id, updates, audit, false)
}

// RestorePaper findet nur soft-gelöschte Paper; ein aktives Paper gilt als nicht gefunden.
func (s *Store) RestorePaper(ctx context.Context, id int64, audit lifecycle.AuditEntry) (*models.Paper, error) {
	return s.updatePaper(ctx, id, map[string]any{
		"is_deleted": false,
		"status":     models.StatusDraft,
	}, audit, true)
}

func (s *Store) SoftDeletePaper(ctx context.Context, id int64, actorID *int64) error {
	err := s.db.WithContext(ctx).Exec("CALL sp_soft_delete_paper(?, ?)", id, actorID).Error
	return classify(err, msgPaperNotFound)
}

func (s *Store) HardDeletePaper(ctx context.Context, id int64, actorID *int64) error {
	err := s.db.WithContext(ctx).Exec("CALL sp_hard_delete_paper(?, ?)", id, actorID).Error
	return classify(err, msgPaperNotFound)
}

// DeletedBefore liefert Paper, die seit cutoff unverändert im Papierkorb liegen.
func (s *Store) DeletedBefore(ctx context.Context, cutoff time.Time) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&models.Paper{}).
		Where("is_deleted = ? AND updated_at < ?", true, cutoff).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, classify(err, msgPaperNotFound)
	}
	return ids, nil
}

func (s *Store) LinkGrant(ctx context.Context, paperID, grantID int64, actorID *int64) error {
	err := s.db.WithContext(ctx).Exec("CALL sp_link_grant_to_paper(?, ?, ?)", paperID, grantID, actorID).Error
	return classify(err, msgPaperNotFound)
}

func (s *Store) UnlinkGrant(ctx context.Context, paperID, grantID int64, audit lifecycle.AuditEntry) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("paper_id = ? AND grant_id = ?", paperID, grantID).Delete(&models.PaperGrant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(auditRow(paperID, audit)).Error
	})
	return classify(err, msgGrantLinkNotFound)
}

func (s *Store) AssignAuthor(ctx context.Context, paperID, userID int64, order *int, notes *string, actorID *int64) error {
	err := s.db.WithContext(ctx).
		Exec("CALL sp_assign_author(?, ?, ?, ?, ?)", paperID, userID, order, notes, actorID).Error
	return classify(err, msgPaperNotFound)
}

func (s *Store) RemoveAuthor(ctx context.Context, paperID, authorshipID int64, audit lifecycle.AuditEntry) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND paper_id = ?", authorshipID, paperID).Delete(&models.Authorship{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(auditRow(paperID, audit)).Error
	})
	return classify(err, msgAuthorshipNotFound)
}

func (s *Store) ReorderAuthor(ctx context.Context, paperID, authorshipID int64, order int, audit lifecycle.AuditEntry) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Authorship{}).
			Where("id = ? AND paper_id = ?", authorshipID, paperID).
			Update("author_order", order)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(auditRow(paperID, audit)).Error
	})
	return classify(err, msgAuthorshipNotFound)
}

func (s *Store) AddRevision(ctx context.Context, rev *models.Revision, audit lifecycle.AuditEntry) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Paper{}).Where("id = ?", rev.PaperID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Create(rev).Error; err != nil {
			return err
		}
		return tx.Create(auditRow(rev.PaperID, audit)).Error
	})
	return classify(err, msgPaperNotFound)
}
