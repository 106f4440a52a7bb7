package models

// Venue ist ein Journal oder eine Konferenz.
type Venue struct {
	ID        int64   `json:"id" gorm:"primaryKey"`
	Name      string  `json:"name" gorm:"not null"`
	VenueType string  `json:"venueType" gorm:"not null;default:'Journal'"`
	Publisher *string `json:"publisher"`
}

func (Venue) TableName() string { return "venues" }

// Topic ist ein Schlagwort, das Papern zugeordnet werden kann.
type Topic struct {
	ID   int64  `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

func (Topic) TableName() string { return "topics" }
