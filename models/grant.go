package models

import "time"

// Grant ist eine Förderung, die mehreren Papern zugeordnet sein kann.
type Grant struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"not null"`
	Funder      string     `json:"funder"`
	GrantNumber *string    `json:"grantNumber" gorm:"uniqueIndex"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

func (Grant) TableName() string { return "grants" }

// PaperGrant ist die Verknüpfungstabelle zwischen Paper und Grant.
type PaperGrant struct {
	PaperID int64 `json:"paperId" gorm:"primaryKey"`
	GrantID int64 `json:"grantId" gorm:"primaryKey"`
}

func (PaperGrant) TableName() string { return "paper_grants" }
