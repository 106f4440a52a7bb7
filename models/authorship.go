package models

import "time"

// Authorship verknüpft einen User als Autor mit einem Paper.
type Authorship struct {
	ID                int64     `json:"id" gorm:"primaryKey"`
	PaperID           int64     `json:"paperId" gorm:"not null;uniqueIndex:idx_authorships_paper_user"`
	UserID            int64     `json:"userId" gorm:"not null;uniqueIndex:idx_authorships_paper_user"`
	AuthorOrder       int       `json:"authorOrder" gorm:"not null;check:author_order > 0"`
	ContributionNotes *string   `json:"contributionNotes"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (Authorship) TableName() string { return "authorships" }

// Revision ist ein unveränderlicher Versionsstand eines Papers.
type Revision struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	PaperID      int64     `json:"paperId" gorm:"not null;index"`
	VersionLabel string    `json:"versionLabel" gorm:"not null"`
	Notes        *string   `json:"notes"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (Revision) TableName() string { return "revisions" }
