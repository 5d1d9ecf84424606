package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// AuditLog is an append-only record of a state change.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id" bson:"_id"`
	ActorType  string            `gorm:"type:text;not null" json:"actor_type" bson:"actor_type"`
	ActorID    *string           `gorm:"type:text" json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	Action     string            `gorm:"type:text;not null;index" json:"action" bson:"action"`
	TargetType string            `gorm:"type:text;not null;index:idx_audit_target" json:"target_type" bson:"target_type"`
	TargetID   *string           `gorm:"type:text;index:idx_audit_target" json:"target_id,omitempty" bson:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty" bson:"metadata,omitempty"`
	IPAddress  *string           `gorm:"type:text" json:"ip_address,omitempty" bson:"ip_address,omitempty"`
	UserAgent  *string           `gorm:"type:text" json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at" bson:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	Cursor     *AuditCursor
	Limit      int
}
