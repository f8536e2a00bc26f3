package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
)

type UserProgressRepo interface {
	Create(dbc dbctx.Context, rows []*types.UserProgress) ([]*types.UserProgress, error)

	GetByUserScan(dbc dbctx.Context, userID, scanID uuid.UUID) (*types.UserProgress, error)
	// LockByUserScan takes a FOR UPDATE row lock; callers must hold a
	// transaction. This is the mutual exclusion for the replacement cycle.
	LockByUserScan(dbc dbctx.Context, userID, scanID uuid.UUID) (*types.UserProgress, error)

	// ListDue returns progress rows whose next replacement date has elapsed,
	// for the optional background sweep.
	ListDue(dbc dbctx.Context, before time.Time, limit int) ([]*types.UserProgress, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type userProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserProgressRepo(db *gorm.DB, baseLog *logger.Logger) UserProgressRepo {
	return &userProgressRepo{db: db, log: baseLog.With("repo", "UserProgressRepo")}
}

func (r *userProgressRepo) Create(dbc dbctx.Context, rows []*types.UserProgress) ([]*types.UserProgress, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.UserProgress{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *userProgressRepo) GetByUserScan(dbc dbctx.Context, userID, scanID uuid.UUID) (*types.UserProgress, error) {
	if userID == uuid.Nil || scanID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.UserProgress
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND scan_id = ?", userID, scanID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *userProgressRepo) LockByUserScan(dbc dbctx.Context, userID, scanID uuid.UUID) (*types.UserProgress, error) {
	if userID == uuid.Nil || scanID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.UserProgress
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND scan_id = ?", userID, scanID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *userProgressRepo) ListDue(dbc dbctx.Context, before time.Time, limit int) ([]*types.UserProgress, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.UserProgress
	q := t.WithContext(dbc.Ctx).
		Where("next_replacement_date IS NOT NULL AND next_replacement_date <= ?", before).
		Order("next_replacement_date ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userProgressRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.UserProgress{}).
		Where("id = ?", id).
		Updates(updates).Error
}
