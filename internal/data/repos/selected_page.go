package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
)

type SelectedPageRepo interface {
	Create(dbc dbctx.Context, rows []*types.SelectedPage) ([]*types.SelectedPage, error)
	ListByScan(dbc dbctx.Context, scanID uuid.UUID) ([]*types.SelectedPage, error)
}

type selectedPageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSelectedPageRepo(db *gorm.DB, baseLog *logger.Logger) SelectedPageRepo {
	return &selectedPageRepo{db: db, log: baseLog.With("repo", "SelectedPageRepo")}
}

func (r *selectedPageRepo) Create(dbc dbctx.Context, rows []*types.SelectedPage) ([]*types.SelectedPage, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.SelectedPage{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *selectedPageRepo) ListByScan(dbc dbctx.Context, scanID uuid.UUID) ([]*types.SelectedPage, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.SelectedPage
	if scanID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("scan_id = ?", scanID).
		Order("priority_rank ASC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
