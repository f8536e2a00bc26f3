package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visiblelabs/aivis-backend/internal/config"
	"github.com/visiblelabs/aivis-backend/internal/data/repos"
	types "github.com/visiblelabs/aivis-backend/internal/domain"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
)

// Notification kinds for mode transitions.
const (
	NotifyEliteFirstTime     = "elite_first_time"
	NotifyEliteReturn        = "elite_return"
	NotifyEliteInitial       = "elite_initial"
	NotifyOptimizationReturn = "optimization_return"
)

// ModeNotification is the payload handed to the presentation layer (and the
// notification bus) when a user's strategy mode changes.
type ModeNotification struct {
	Kind       string    `json:"kind"`
	UserID     uuid.UUID `json:"user_id"`
	Mode       string    `json:"mode"`
	Score      int       `json:"score"`
	ScoreDelta int       `json:"score_delta,omitempty"`
}

// ModeNotifier publishes mode transitions. A nil notifier is legal; the
// engine runs without a bus.
type ModeNotifier interface {
	PublishModeEvent(ctx context.Context, n ModeNotification) error
}

type ModeResult struct {
	Mode         string             `json:"mode"`
	Score        int                `json:"score"`
	Changed      bool               `json:"changed"`
	Reason       string             `json:"reason,omitempty"`
	Notification *ModeNotification  `json:"notification,omitempty"`
	Weights      map[string]float64 `json:"weights"`
}

type ModeService interface {
	// EvaluateMode classifies the user's strategy mode from the scan's total
	// score, applying enter-at-850 / exit-below-800 hysteresis.
	EvaluateMode(ctx context.Context, userID uuid.UUID, score int) (*ModeResult, error)
	// GetMode returns the current mode. When mode storage is not available
	// it degrades to a default optimization-mode result instead of failing.
	GetMode(ctx context.Context, userID uuid.UUID) (*ModeResult, error)
	// StrategyWeights is the generation-strategy weight table consumed by
	// the external recommendation generator.
	StrategyWeights(mode string) map[string]float64
}

type modeService struct {
	db       *gorm.DB
	log      *logger.Logger
	cfg      config.Config
	modes    repos.UserModeRepo
	notifier ModeNotifier
}

func NewModeService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg config.Config,
	modes repos.UserModeRepo,
	notifier ModeNotifier,
) ModeService {
	return &modeService{
		db:       db,
		log:      baseLog.With("service", "ModeService"),
		cfg:      cfg,
		modes:    modes,
		notifier: notifier,
	}
}

// modeDecision is the pure hysteresis rule. Scores in [exit, entry) never
// trigger a transition; the user keeps whichever mode they already hold.
func modeDecision(currentMode string, score, entryScore, exitScore int) (newMode, reason string, changed bool) {
	switch currentMode {
	case types.ModeElite:
		if score < exitScore {
			return types.ModeOptimization, types.ReasonScoreDroppedBelowThreshold, true
		}
		return types.ModeElite, "", false
	default:
		if score >= entryScore {
			return types.ModeElite, types.ReasonScoreThresholdReached, true
		}
		return types.ModeOptimization, "", false
	}
}

func (s *modeService) EvaluateMode(ctx context.Context, userID uuid.UUID, score int) (*ModeResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}

	var result *ModeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		row, err := s.modes.LockByUser(dbc, userID)
		if err != nil {
			return fmt.Errorf("load user mode: %w", err)
		}

		now := time.Now().UTC()
		if row == nil {
			initial, err := s.createInitial(dbc, userID, score, now)
			if err != nil {
				return err
			}
			result = initial
			return nil
		}

		newMode, reason, changed := modeDecision(row.CurrentMode, score, s.cfg.EliteEntryScore, s.cfg.EliteExitScore)
		if !changed {
			if err := s.modes.UpdateFields(dbc, row.ID, map[string]interface{}{
				"current_score": score,
			}); err != nil {
				return fmt.Errorf("update user mode score: %w", err)
			}
			result = &ModeResult{Mode: row.CurrentMode, Score: score, Weights: s.StrategyWeights(row.CurrentMode)}
			return nil
		}

		updates := map[string]interface{}{
			"current_mode":       newMode,
			"current_score":      score,
			"previous_mode":      row.CurrentMode,
			"transitioned_at":    now,
			"transition_reason":  reason,
			"mode_changes_count": row.ModeChangesCount + 1,
		}
		var notification *ModeNotification
		if newMode == types.ModeElite {
			if row.EliteActivatedAt == nil {
				updates["elite_activated_at"] = now
				notification = &ModeNotification{Kind: NotifyEliteFirstTime, UserID: userID, Mode: newMode, Score: score}
			} else {
				notification = &ModeNotification{
					Kind:       NotifyEliteReturn,
					UserID:     userID,
					Mode:       newMode,
					Score:      score,
					ScoreDelta: score - row.CurrentScore,
				}
			}
		} else {
			notification = &ModeNotification{
				Kind:       NotifyOptimizationReturn,
				UserID:     userID,
				Mode:       newMode,
				Score:      score,
				ScoreDelta: score - row.CurrentScore,
			}
		}
		if err := s.modes.UpdateFields(dbc, row.ID, updates); err != nil {
			return fmt.Errorf("update user mode: %w", err)
		}
		result = &ModeResult{
			Mode:         newMode,
			Score:        score,
			Changed:      true,
			Reason:       reason,
			Notification: notification,
			Weights:      s.StrategyWeights(newMode),
		}
		return nil
	})
	if err != nil {
		if isSchemaMissing(err) {
			s.log.Warn("Mode storage not provisioned, using default optimization mode", "user_id", userID, "error", err)
			return s.defaultResult(score), nil
		}
		return nil, err
	}

	if result.Notification != nil {
		s.publish(ctx, *result.Notification)
	}
	return result, nil
}

func (s *modeService) createInitial(dbc dbctx.Context, userID uuid.UUID, score int, now time.Time) (*ModeResult, error) {
	mode := types.ModeOptimization
	var eliteAt *time.Time
	var notification *ModeNotification
	if score >= s.cfg.EliteEntryScore {
		mode = types.ModeElite
		eliteAt = &now
		notification = &ModeNotification{Kind: NotifyEliteInitial, UserID: userID, Mode: mode, Score: score}
	}
	row := &types.UserMode{
		ID:               uuid.New(),
		UserID:           userID,
		CurrentMode:      mode,
		CurrentScore:     score,
		TransitionedAt:   &now,
		TransitionReason: types.ReasonInitialScan,
		EliteActivatedAt: eliteAt,
	}
	if _, err := s.modes.Create(dbc, []*types.UserMode{row}); err != nil {
		return nil, fmt.Errorf("create user mode: %w", err)
	}
	return &ModeResult{
		Mode:         mode,
		Score:        score,
		Changed:      true,
		Reason:       types.ReasonInitialScan,
		Notification: notification,
		Weights:      s.StrategyWeights(mode),
	}, nil
}

func (s *modeService) GetMode(ctx context.Context, userID uuid.UUID) (*ModeResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	row, err := s.modes.GetByUser(dbc, userID)
	if err != nil {
		if isSchemaMissing(err) {
			s.log.Warn("Mode storage not provisioned, using default optimization mode", "user_id", userID, "error", err)
			return s.defaultResult(0), nil
		}
		return nil, fmt.Errorf("load user mode: %w", err)
	}
	if row == nil {
		return s.defaultResult(0), nil
	}
	return &ModeResult{Mode: row.CurrentMode, Score: row.CurrentScore, Weights: s.StrategyWeights(row.CurrentMode)}, nil
}

func (s *modeService) StrategyWeights(mode string) map[string]float64 {
	if mode == types.ModeElite {
		return map[string]float64{
			"competitive_intelligence": 0.30,
			"content_opportunities":    0.30,
			"advanced_optimization":    0.20,
			"maintenance_monitoring":   0.20,
		}
	}
	return map[string]float64{
		"technical_fixes":           0.40,
		"content_gaps":              0.35,
		"foundational_optimization": 0.25,
	}
}

func (s *modeService) defaultResult(score int) *ModeResult {
	return &ModeResult{
		Mode:    types.ModeOptimization,
		Score:   score,
		Weights: s.StrategyWeights(types.ModeOptimization),
	}
}

func (s *modeService) publish(ctx context.Context, n ModeNotification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishModeEvent(ctx, n); err != nil {
		s.log.Warn("Failed to publish mode notification", "kind", n.Kind, "user_id", n.UserID, "error", err)
	}
}

// isSchemaMissing matches the driver errors postgres raises when a
// supporting table has not been provisioned yet.
func isSchemaMissing(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "does not exist") || strings.Contains(msg, "no such table")
}
