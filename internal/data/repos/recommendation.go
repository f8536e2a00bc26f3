package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
)

// StateCount is one group-by bucket over the recommendation state set.
type StateCount struct {
	RecType     string
	UnlockState string
	Count       int
}

type RecommendationRepo interface {
	Create(dbc dbctx.Context, rows []*types.Recommendation) ([]*types.Recommendation, error)

	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Recommendation, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Recommendation, error)
	GetSuccessor(dbc dbctx.Context, previousID, sourceScanID uuid.UUID) (*types.Recommendation, error)

	ListByScan(dbc dbctx.Context, scanID uuid.UUID) ([]*types.Recommendation, error)
	ListByScanAndStates(dbc dbctx.Context, scanID uuid.UUID, states []string) ([]*types.Recommendation, error)
	ListLockedByScan(dbc dbctx.Context, scanID uuid.UUID, limit int) ([]*types.Recommendation, error)

	CountStates(dbc dbctx.Context, scanID uuid.UUID) ([]StateCount, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsByIDs(dbc dbctx.Context, ids []uuid.UUID, updates map[string]interface{}) error
}

type recommendationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecommendationRepo(db *gorm.DB, baseLog *logger.Logger) RecommendationRepo {
	return &recommendationRepo{db: db, log: baseLog.With("repo", "RecommendationRepo")}
}

func (r *recommendationRepo) Create(dbc dbctx.Context, rows []*types.Recommendation) ([]*types.Recommendation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Recommendation{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *recommendationRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Recommendation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Recommendation
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recommendationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Recommendation, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *recommendationRepo) GetSuccessor(dbc dbctx.Context, previousID, sourceScanID uuid.UUID) (*types.Recommendation, error) {
	if previousID == uuid.Nil || sourceScanID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Recommendation
	if err := t.WithContext(dbc.Ctx).
		Where("previous_recommendation_id = ? AND source_scan_id = ?", previousID, sourceScanID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *recommendationRepo) ListByScan(dbc dbctx.Context, scanID uuid.UUID) ([]*types.Recommendation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Recommendation
	if scanID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("scan_id = ?", scanID).
		Order("priority DESC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recommendationRepo) ListByScanAndStates(dbc dbctx.Context, scanID uuid.UUID, states []string) ([]*types.Recommendation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Recommendation
	if scanID == uuid.Nil || len(states) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("scan_id = ? AND unlock_state IN ?", scanID, states).
		Order("priority DESC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListLockedByScan returns locked rows in unlock order: highest priority
// first, insertion order as the tiebreak, so replacement is deterministic.
func (r *recommendationRepo) ListLockedByScan(dbc dbctx.Context, scanID uuid.UUID, limit int) ([]*types.Recommendation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Recommendation
	if scanID == uuid.Nil {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).
		Where("scan_id = ? AND unlock_state = ?", scanID, types.RecStateLocked).
		Order("priority DESC, created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recommendationRepo) CountStates(dbc dbctx.Context, scanID uuid.UUID) ([]StateCount, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []StateCount
	if scanID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Recommendation{}).
		Select("rec_type, unlock_state, count(*) as count").
		Where("scan_id = ?", scanID).
		Group("rec_type, unlock_state").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recommendationRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	return r.UpdateFieldsByIDs(dbc, []uuid.UUID{id}, updates)
}

func (r *recommendationRepo) UpdateFieldsByIDs(dbc dbctx.Context, ids []uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Recommendation{}).
		Where("id IN ?", ids).
		Updates(updates).Error
}
