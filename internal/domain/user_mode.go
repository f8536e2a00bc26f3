package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserMode is the single per-user strategy-mode row. EliteActivatedAt is set
// on first elite entry and never cleared afterwards.
type UserMode struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CurrentMode      string         `gorm:"column:current_mode;not null;default:'optimization'" json:"current_mode"`
	CurrentScore     int            `gorm:"column:current_score;not null;default:0" json:"current_score"`
	PreviousMode     *string        `gorm:"column:previous_mode" json:"previous_mode,omitempty"`
	TransitionedAt   *time.Time     `gorm:"column:transitioned_at" json:"transitioned_at,omitempty"`
	TransitionReason string         `gorm:"column:transition_reason" json:"transition_reason"`
	EliteActivatedAt *time.Time     `gorm:"column:elite_activated_at" json:"elite_activated_at,omitempty"`
	ModeChangesCount int            `gorm:"column:mode_changes_count;not null;default:0" json:"mode_changes_count"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (UserMode) TableName() string { return "user_mode" }
