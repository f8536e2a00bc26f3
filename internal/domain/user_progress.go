package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProgress is the per-(user, scan) rollup over the recommendation state
// set. Counters are always refreshed from the recommendation rows inside the
// same transaction as the transition that changed them, never incremented at
// call sites.
type UserProgress struct {
	ID                           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID                       uuid.UUID      `gorm:"type:uuid;not null;index:idx_progress_user_scan,unique" json:"user_id"`
	ScanID                       uuid.UUID      `gorm:"type:uuid;not null;index:idx_progress_user_scan,unique" json:"scan_id"`
	Scan                         *Scan          `gorm:"constraint:OnDelete:CASCADE;foreignKey:ScanID;references:ID" json:"scan,omitempty"`
	TotalRecommendations         int            `gorm:"column:total_recommendations;not null;default:0" json:"total_recommendations"`
	ActiveRecommendations        int            `gorm:"column:active_recommendations;not null;default:0" json:"active_recommendations"`
	CompletedRecommendations     int            `gorm:"column:completed_recommendations;not null;default:0" json:"completed_recommendations"`
	VerifiedRecommendations      int            `gorm:"column:verified_recommendations;not null;default:0" json:"verified_recommendations"`
	SiteWideTotal                int            `gorm:"column:site_wide_total;not null;default:0" json:"site_wide_total"`
	SiteWideActive               int            `gorm:"column:site_wide_active;not null;default:0" json:"site_wide_active"`
	SiteWideCompleted            int            `gorm:"column:site_wide_completed;not null;default:0" json:"site_wide_completed"`
	PageSpecificTotal            int            `gorm:"column:page_specific_total;not null;default:0" json:"page_specific_total"`
	PageSpecificCompleted        int            `gorm:"column:page_specific_completed;not null;default:0" json:"page_specific_completed"`
	CurrentBatch                 int            `gorm:"column:current_batch;not null;default:1" json:"current_batch"`
	TargetActiveCount            int            `gorm:"column:target_active_count;not null;default:5" json:"target_active_count"`
	LastReplacementDate          *time.Time     `gorm:"column:last_replacement_date" json:"last_replacement_date,omitempty"`
	NextReplacementDate          *time.Time     `gorm:"column:next_replacement_date;index" json:"next_replacement_date,omitempty"`
	RecommendationsReplacedCount int            `gorm:"column:recommendations_replaced_count;not null;default:0" json:"recommendations_replaced_count"`
	CreatedAt                    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt                    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt                    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (UserProgress) TableName() string { return "user_progress" }
