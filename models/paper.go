package models

import (
	"time"
)

// Paper repräsentiert eine wissenschaftliche Arbeit im Einreichungs-Workflow.
type Paper struct {
	ID       int64       `json:"id" gorm:"primaryKey"`
	Title    string      `json:"title" gorm:"not null"`
	Abstract string      `json:"abstract" gorm:"type:text;not null;default:''"`
	Status   PaperStatus `json:"status" gorm:"type:varchar(20);not null;default:'Draft';index"`

	SubmissionDate  *time.Time `json:"submissionDate"`
	PublicationDate *time.Time `json:"publicationDate"`
	PDFURL          *string    `json:"pdfUrl" gorm:"column:pdf_url"`

	// Soft-Delete-Flag; gelöschte Paper fehlen in den Standard-Listen
	IsDeleted bool `json:"isDeleted" gorm:"not null;default:false;index"`

	PrimaryContactID int64  `json:"primaryContactId" gorm:"not null;index"`
	VenueID          *int64 `json:"venueId" gorm:"index"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	PrimaryContact *User   `json:"-" gorm:"foreignKey:PrimaryContactID;constraint:OnDelete:RESTRICT"`
	Venue          *Venue  `json:"-" gorm:"foreignKey:VenueID;constraint:OnDelete:SET NULL"`
	Topics         []Topic `json:"-" gorm:"many2many:paper_topics"`
}

// TableName gibt explizit den Tabellennamen an.
func (Paper) TableName() string {
	return "papers"
}
