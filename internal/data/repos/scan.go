package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
)

type ScanRepo interface {
	Create(dbc dbctx.Context, rows []*types.Scan) ([]*types.Scan, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Scan, error)
	// GetPreviousForDomain returns the most recent earlier scan of the same
	// domain by the same user, or nil when this is the first scan.
	GetPreviousForDomain(dbc dbctx.Context, userID uuid.UUID, domain string, before time.Time) (*types.Scan, error)

	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Scan, error)
}

type scanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScanRepo(db *gorm.DB, baseLog *logger.Logger) ScanRepo {
	return &scanRepo{db: db, log: baseLog.With("repo", "ScanRepo")}
}

func (r *scanRepo) Create(dbc dbctx.Context, rows []*types.Scan) ([]*types.Scan, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Scan{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *scanRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Scan, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Scan
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *scanRepo) GetPreviousForDomain(dbc dbctx.Context, userID uuid.UUID, domain string, before time.Time) (*types.Scan, error) {
	if userID == uuid.Nil || domain == "" {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Scan
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND domain = ? AND created_at < ?", userID, domain, before).
		Order("created_at DESC").
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *scanRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Scan, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Scan
	if userID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
