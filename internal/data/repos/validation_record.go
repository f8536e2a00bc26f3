package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
)

// ValidationRecordRepo is append-only: no update or delete methods exist.
type ValidationRecordRepo interface {
	Create(dbc dbctx.Context, rows []*types.ValidationRecord) ([]*types.ValidationRecord, error)

	GetByRecommendationAndScan(dbc dbctx.Context, recommendationID, scanID uuid.UUID) (*types.ValidationRecord, error)
	ListByRecommendation(dbc dbctx.Context, recommendationID uuid.UUID) ([]*types.ValidationRecord, error)
}

type validationRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewValidationRecordRepo(db *gorm.DB, baseLog *logger.Logger) ValidationRecordRepo {
	return &validationRecordRepo{db: db, log: baseLog.With("repo", "ValidationRecordRepo")}
}

// Create ignores conflicts on (recommendation_id, scan_id) so a retried
// scan-completion handler cannot duplicate audit rows.
func (r *validationRecordRepo) Create(dbc dbctx.Context, rows []*types.ValidationRecord) ([]*types.ValidationRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.ValidationRecord{}, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recommendation_id"}, {Name: "scan_id"}},
			DoNothing: true,
		}).
		Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *validationRecordRepo) GetByRecommendationAndScan(dbc dbctx.Context, recommendationID, scanID uuid.UUID) (*types.ValidationRecord, error) {
	if recommendationID == uuid.Nil || scanID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.ValidationRecord
	if err := t.WithContext(dbc.Ctx).
		Where("recommendation_id = ? AND scan_id = ?", recommendationID, scanID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *validationRecordRepo) ListByRecommendation(dbc dbctx.Context, recommendationID uuid.UUID) ([]*types.ValidationRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ValidationRecord
	if recommendationID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("recommendation_id = ?", recommendationID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
