package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Action kinds written by entity writers.
const (
	ActionAddEntry       = "add_entry"
	ActionUpdateEntry    = "update_entry"
	ActionDeleteEntry    = "delete_entry"
	ActionRevealPassword = "reveal_password"
	ActionImportEntries  = "import_entries"
	ActionLoginFailed    = "login_failed"
	ActionLogin          = "login"
	ActionChangePassword = "change_password"
	ActionAddComment     = "add_comment"
	ActionAddAttachment  = "add_attachment"
	ActionSubmitFeedback = "submit_feedback"
)

// AuditLog is immutable once written. ActorID is nullable so deleting a user
// keeps their history.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorID    *snowflake.ID     `gorm:"column:actor_id;index" json:"actorId,omitempty"`
	Action     string            `gorm:"type:text;not null;index" json:"action"`
	TargetType string            `gorm:"column:target_type;type:text;not null" json:"targetType"`
	TargetID   *string           `gorm:"column:target_id;type:text" json:"targetId,omitempty"`
	TargetName *string           `gorm:"column:target_name;type:text" json:"targetName,omitempty"`
	Detail     *string           `gorm:"type:text" json:"detail,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	IPAddress  *string           `gorm:"column:ip_address;type:text" json:"ipAddress,omitempty"`
	UserAgent  *string           `gorm:"column:user_agent;type:text" json:"userAgent,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"createdAt"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// AuditLogView is a listing row joined with the actor display name.
type AuditLogView struct {
	AuditLog
	ActorName *string `gorm:"column:actor_name" json:"actorName,omitempty"`
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorID    *snowflake.ID
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
}
