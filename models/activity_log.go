package models

import "time"

// Aktionstypen im Audit-Trail.
const (
	ActionCreate        = "CREATE"
	ActionUpdate        = "UPDATE"
	ActionStatusChange  = "STATUS_CHANGE"
	ActionSoftDelete    = "SOFT_DELETE"
	ActionRestore       = "RESTORE"
	ActionHardDelete    = "HARD_DELETE"
	ActionLinkGrant     = "LINK_GRANT"
	ActionUnlinkGrant   = "UNLINK_GRANT"
	ActionAssignAuthor  = "ASSIGN_AUTHOR"
	ActionRemoveAuthor  = "REMOVE_AUTHOR"
	ActionReorderAuthor = "REORDER_AUTHOR"
	ActionAddRevision   = "ADD_REVISION"
	ActionAttachPDF     = "ATTACH_PDF"
)

// ActivityLog ist ein Eintrag im Audit-Trail. Einträge werden nie geändert.
type ActivityLog struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	PaperID      *int64    `json:"paperId" gorm:"index"`
	UserID       *int64    `json:"userId" gorm:"index"`
	ActionType   string    `json:"actionType" gorm:"type:varchar(32);not null"`
	ActionDetail string    `json:"actionDetail" gorm:"type:text"`
	Timestamp    time.Time `json:"timestamp" gorm:"autoCreateTime"`
}

func (ActivityLog) TableName() string { return "activity_logs" }
