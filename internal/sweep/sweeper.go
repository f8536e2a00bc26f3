package sweep

import (
	"context"
	"time"

	"github.com/visiblelabs/aivis-backend/internal/data/repos"
	"github.com/visiblelabs/aivis-backend/internal/platform/dbctx"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
	"github.com/visiblelabs/aivis-backend/internal/services"
)

const batchSize = 200

// Sweeper periodically runs the replacement check for every scan whose
// next replacement date has passed. The lazy on-read check stays the primary
// trigger; the sweeper only catches users who never come back to look.
type Sweeper struct {
	log       *logger.Logger
	progress  repos.UserProgressRepo
	scheduler services.SchedulerService
	interval  time.Duration
	stop      chan struct{}
}

func NewSweeper(
	baseLog *logger.Logger,
	progress repos.UserProgressRepo,
	scheduler services.SchedulerService,
	interval time.Duration,
) *Sweeper {
	return &Sweeper{
		log:       baseLog.With("service", "Sweeper"),
		progress:  progress,
		scheduler: scheduler,
		interval:  interval,
	}
}

// Start begins ticking until ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.sweep(ctx, time.Now())
		for {
			select {
			case t := <-ticker.C:
				s.sweep(ctx, t)
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}

func (s *Sweeper) sweep(ctx context.Context, now time.Time) {
	due, err := s.progress.ListDue(dbctx.Context{Ctx: ctx}, now, batchSize)
	if err != nil {
		s.log.Error("Failed to list due progress rows", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}
	s.log.Info("Sweeping due replacement checks", "count", len(due))
	var performed int
	for _, p := range due {
		res, err := s.scheduler.CheckAndReplace(ctx, p.UserID, p.ScanID, now, false)
		if err != nil {
			s.log.Warn("Replacement check failed", "user_id", p.UserID, "scan_id", p.ScanID, "error", err)
			continue
		}
		if res.Performed {
			performed++
		}
	}
	s.log.Info("Sweep complete", "due", len(due), "performed", performed)
}
