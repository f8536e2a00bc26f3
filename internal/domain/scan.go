package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Scan is one completed crawl+score pass over a domain. The score and
// evidence columns are produced by the external scoring engine; this service
// only reads them.
type Scan struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index:idx_scan_user_domain" json:"user_id"`
	Domain         string         `gorm:"column:domain;not null;index:idx_scan_user_domain" json:"domain"`
	Status         string         `gorm:"column:status;not null;default:'completed'" json:"status"`
	TotalScore     int            `gorm:"column:total_score;not null;default:0" json:"total_score"`
	CategoryScores datatypes.JSON `gorm:"type:jsonb;column:category_scores" json:"category_scores"`
	Evidence       datatypes.JSON `gorm:"type:jsonb;column:evidence" json:"evidence"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Scan) TableName() string { return "scan" }

// SelectedPage is one of the pages chosen for a scan. Page-specific
// recommendations are distributed across these.
type SelectedPage struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ScanID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"scan_id"`
	Scan         *Scan          `gorm:"constraint:OnDelete:CASCADE;foreignKey:ScanID;references:ID" json:"scan,omitempty"`
	URL          string         `gorm:"column:url;not null" json:"url"`
	PriorityRank int            `gorm:"column:priority_rank;not null;default:0" json:"priority_rank"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SelectedPage) TableName() string { return "selected_page" }
