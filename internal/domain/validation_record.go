package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ValidationRecord is one immutable audit row for a (recommendation, scan)
// re-check. Rows are append-only; there is no update or delete path.
type ValidationRecord struct {
	ID                   uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RecommendationID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_validation_rec_scan,unique" json:"recommendation_id"`
	ScanID               uuid.UUID      `gorm:"type:uuid;not null;index:idx_validation_rec_scan,unique" json:"scan_id"`
	UserID               uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Subfactor            string         `gorm:"column:subfactor;not null" json:"subfactor"`
	WasImplemented       bool           `gorm:"column:was_implemented;not null;default:false" json:"was_implemented"`
	IsPartial            bool           `gorm:"column:is_partial;not null;default:false" json:"is_partial"`
	CompletionPercentage int            `gorm:"column:completion_percentage;not null;default:0" json:"completion_percentage"`
	FoundElements        datatypes.JSON `gorm:"type:jsonb;column:found_elements" json:"found_elements,omitempty"`
	MissingElements      datatypes.JSON `gorm:"type:jsonb;column:missing_elements" json:"missing_elements,omitempty"`
	Outcome              string         `gorm:"column:outcome;not null" json:"outcome"`
	Notes                string         `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt            time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (ValidationRecord) TableName() string { return "validation_record" }
