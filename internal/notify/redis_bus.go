package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
	"github.com/visiblelabs/aivis-backend/internal/services"
)

// ModeBus fans mode-transition events out over redis pub/sub so the
// presentation layer can surface them live.
type ModeBus interface {
	services.ModeNotifier
	StartForwarder(ctx context.Context, onMsg func(n services.ModeNotification)) error
	Close() error
}

type modeBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewModeBus(log *logger.Logger) (ModeBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_MODE_CHANNEL"))
	if ch == "" {
		ch = "mode_events"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &modeBus{
		log:     log.With("service", "RedisModeBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *modeBus) PublishModeEvent(ctx context.Context, n services.ModeNotification) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis mode bus not initialized")
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *modeBus) StartForwarder(ctx context.Context, onMsg func(n services.ModeNotification)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis mode bus not initialized")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer func() { _ = sub.Close() }()
		chMsgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-chMsgs:
				if !ok {
					return
				}
				var n services.ModeNotification
				if err := json.Unmarshal([]byte(m.Payload), &n); err != nil {
					b.log.Warn("Dropping malformed mode event", "error", err)
					continue
				}
				onMsg(n)
			}
		}
	}()
	return nil
}

func (b *modeBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
