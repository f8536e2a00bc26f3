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

type UserModeRepo interface {
	Create(dbc dbctx.Context, rows []*types.UserMode) ([]*types.UserMode, error)

	GetByUser(dbc dbctx.Context, userID uuid.UUID) (*types.UserMode, error)
	// LockByUser takes a FOR UPDATE row lock so concurrent scan completions
	// evaluate mode transitions one at a time.
	LockByUser(dbc dbctx.Context, userID uuid.UUID) (*types.UserMode, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type userModeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserModeRepo(db *gorm.DB, baseLog *logger.Logger) UserModeRepo {
	return &userModeRepo{db: db, log: baseLog.With("repo", "UserModeRepo")}
}

func (r *userModeRepo) Create(dbc dbctx.Context, rows []*types.UserMode) ([]*types.UserMode, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.UserMode{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *userModeRepo) GetByUser(dbc dbctx.Context, userID uuid.UUID) (*types.UserMode, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.UserMode
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *userModeRepo) LockByUser(dbc dbctx.Context, userID uuid.UUID) (*types.UserMode, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.UserMode
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
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

func (r *userModeRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.UserMode{}).
		Where("id = ?", id).
		Updates(updates).Error
}
