package bootstrap

import (
	"context"
	"io"
	"log/slog"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/adapters/events"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

// closerStack releases resources in reverse acquisition order.
type closerStack []func(context.Context) error

func (s *closerStack) push(fn func(context.Context) error) {
	*s = append(*s, fn)
}

func (s *closerStack) pushCloser(c io.Closer) {
	s.push(func(context.Context) error { return c.Close() })
}

func (s closerStack) closeAll(ctx context.Context) {
	for i := len(s) - 1; i >= 0; i-- {
		_ = s[i](ctx)
	}
}

type persistence struct {
	store       ports.Store
	idempotency ports.IdempotencyRepository
	eventDedup  ports.EventDedupRepository
}

func openPersistence(ctx context.Context, cfg Config, logger *slog.Logger, closers *closerStack) (persistence, error) {
	if cfg.DatabaseURL == "" {
		logger.WarnContext(ctx, "no database configured, deals live in process memory",
			"module", "bootstrap.wiring",
			"layer", "bootstrap",
			"operation", "open_persistence",
			"outcome", "degraded",
		)
		return persistence{
			store:       memory.NewStore(),
			idempotency: memory.NewIdempotencyRepository(),
			eventDedup:  memory.NewEventDedupRepository(),
		}, nil
	}
	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return persistence{}, err
	}
	pool, err := db.DB()
	if err != nil {
		return persistence{}, err
	}
	closers.pushCloser(pool)
	if err := postgres.RunMigrations(ctx, db); err != nil {
		return persistence{}, err
	}
	repos := postgres.NewRepositories(db)
	return persistence{store: repos.Store, idempotency: repos.Idempotency, eventDedup: repos.EventDedup}, nil
}

func openCache(ctx context.Context, cfg Config, closers *closerStack) (ports.Cache, error) {
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		closers.pushCloser(client)
		return cache.NewRedisCache(client), nil
	}
	local := cache.NewMemoryCache(cfg.DealCacheTTL, cfg.LocalCacheCapacity)
	local.Start()
	closers.push(func(context.Context) error {
		local.Stop()
		return nil
	})
	return local, nil
}

// openBroker falls back to the logging publisher and the no-op consumer when
// Kafka is not configured or a client cannot be built.
func openBroker(ctx context.Context, cfg Config, logger *slog.Logger, closers *closerStack) (ports.EventPublisher, eventadapter.Consumer) {
	var (
		publisher ports.EventPublisher  = eventadapter.NewLoggingPublisher(logger)
		consumer  eventadapter.Consumer = eventadapter.NewNoopConsumer()
	)
	if len(cfg.KafkaBrokers) == 0 {
		return publisher, consumer
	}
	if kp, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers); err != nil {
		logger.WarnContext(ctx, "kafka publisher unavailable", "module", "bootstrap.wiring", "outcome", "degraded", "error", err)
	} else {
		closers.pushCloser(kp)
		publisher = kp
	}
	if kc, err := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, []string{cfg.KafkaTopicVerdicts}); err != nil {
		logger.WarnContext(ctx, "kafka consumer unavailable", "module", "bootstrap.wiring", "outcome", "degraded", "error", err)
	} else {
		closers.pushCloser(kc)
		consumer = kc
	}
	return publisher, consumer
}
