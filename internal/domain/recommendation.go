package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recommendation is one suggested fix for a scanned site. Rows are owned by
// a Scan and removed only by cascade when the scan is destroyed.
//
// SourceScanID is set on follow-up recommendations spawned by validation and
// names the scan whose evidence produced them; together with
// PreviousRecommendationID it forms the dedupe key that keeps retried
// scan-completion handling from creating duplicate successors.
type Recommendation struct {
	ID                       uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ScanID                   uuid.UUID       `gorm:"type:uuid;not null;index" json:"scan_id"`
	Scan                     *Scan           `gorm:"constraint:OnDelete:CASCADE;foreignKey:ScanID;references:ID" json:"scan,omitempty"`
	UserID                   uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Category                 string          `gorm:"column:category;not null" json:"category"`
	Title                    string          `gorm:"column:title;not null" json:"title"`
	Text                     string          `gorm:"column:text" json:"text"`
	Priority                 int             `gorm:"column:priority;not null;default:0" json:"priority"`
	EstimatedImpact          string          `gorm:"column:estimated_impact" json:"estimated_impact"`
	Effort                   string          `gorm:"column:effort" json:"effort"`
	RecType                  string          `gorm:"column:rec_type;not null" json:"rec_type"`
	PageURL                  *string         `gorm:"column:page_url" json:"page_url,omitempty"`
	UnlockState              string          `gorm:"column:unlock_state;not null;default:'locked';index" json:"unlock_state"`
	BatchNumber              int             `gorm:"column:batch_number;not null;default:0" json:"batch_number"`
	UnlockedAt               *time.Time      `gorm:"column:unlocked_at" json:"unlocked_at,omitempty"`
	SkipEnabledAt            *time.Time      `gorm:"column:skip_enabled_at" json:"skip_enabled_at,omitempty"`
	SkippedAt                *time.Time      `gorm:"column:skipped_at" json:"skipped_at,omitempty"`
	MarkedCompleteAt         *time.Time      `gorm:"column:marked_complete_at" json:"marked_complete_at,omitempty"`
	VerifiedAt               *time.Time      `gorm:"column:verified_at" json:"verified_at,omitempty"`
	ValidationStatus         *string         `gorm:"column:validation_status" json:"validation_status,omitempty"`
	ImplementationProgress   int             `gorm:"column:implementation_progress;not null;default:0" json:"implementation_progress"`
	PreviousRecommendationID *uuid.UUID      `gorm:"type:uuid;column:previous_recommendation_id;index" json:"previous_recommendation_id,omitempty"`
	SourceScanID             *uuid.UUID      `gorm:"type:uuid;column:source_scan_id" json:"source_scan_id,omitempty"`
	ActionSteps              datatypes.JSON  `gorm:"type:jsonb;column:action_steps" json:"action_steps,omitempty"`
	Findings                 datatypes.JSON  `gorm:"type:jsonb;column:findings" json:"findings,omitempty"`
	CodeSnippet              string          `gorm:"column:code_snippet" json:"code_snippet,omitempty"`
	Notes                    datatypes.JSON  `gorm:"type:jsonb;column:notes" json:"notes,omitempty"`
	CreatedAt                time.Time       `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt                time.Time       `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt                gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (Recommendation) TableName() string { return "recommendation" }
