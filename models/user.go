package models

import "time"

// Role ist die in der Datenbank gepflegte Rolle, z.B. "Research Admin".
// Die Abbildung auf die festen API-Rollen geschieht beim Login.
type Role struct {
	ID       int64  `json:"id" gorm:"primaryKey"`
	RoleName string `json:"roleName" gorm:"uniqueIndex;not null"`
}

func (Role) TableName() string { return "roles" }

// User ist ein Forschender oder Mitarbeitender mit Login.
type User struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	UserName    string    `json:"userName" gorm:"uniqueIndex;not null"`
	Email       string    `json:"email" gorm:"uniqueIndex;not null"`
	Password    string    `json:"-" gorm:"not null"` // bcrypt-Hash
	Affiliation *string   `json:"affiliation"`
	ORCID       *string   `json:"orcid" gorm:"column:orcid"`
	RoleID      int64     `json:"roleId" gorm:"index"`
	Role        Role      `json:"-" gorm:"foreignKey:RoleID"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }
