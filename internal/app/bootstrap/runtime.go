package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	eventadapter "github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/adapters/events"
	grpcadapter "github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/adapters/grpc"
	httpadapter "github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/adapters/telemetry"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

const shutdownGrace = 10 * time.Second

// Runtime holds the wired service and the processes that front it. The API
// process serves HTTP and gRPC; the worker process relays the outbox and
// consumes arbiter verdicts.
type Runtime struct {
	cfg     Config
	logger  *slog.Logger
	closers closerStack

	service *application.Service
	outbox  ports.OutboxRepository
	web     *http.Server
	rpc     *grpc.Server
	health  *health.Server
}

// NewRuntime wires every adapter from configuration. Without a database URL
// the service runs on the in-memory store, and without Redis it caches in
// process.
func NewRuntime(ctx context.Context, configPath string) (rt *Runtime, err error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.slogLevel()})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	rt = &Runtime{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			rt.closers.closeAll(ctx)
			rt = nil
		}
	}()

	stopTracing, traceErr := telemetry.Setup(ctx, cfg.ServiceID, cfg.OTelEndpoint, cfg.OTelSampleRatio)
	if traceErr != nil {
		logger.WarnContext(ctx, "tracing disabled", "module", "bootstrap.runtime", "outcome", "degraded", "error", traceErr)
	}
	rt.closers.push(stopTracing)

	persist, err := openPersistence(ctx, cfg, logger, &rt.closers)
	if err != nil {
		return nil, err
	}
	dealCache, err := openCache(ctx, cfg, &rt.closers)
	if err != nil {
		return nil, err
	}
	tokens, err := security.NewHMACTokens(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, err
	}

	arbiter, _ := domain.ParseAddress(cfg.ArbiterAddress)
	if arbiter == "" {
		logger.WarnContext(ctx, "no arbiter address configured, broker verdicts will be rejected", "module", "bootstrap.runtime")
	}
	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:    cfg.ServiceID,
			IdempotencyTTL: cfg.IdempotencyTTL,
			EventDedupTTL:  cfg.EventDedupTTL,
			DealCacheTTL:   cfg.DealCacheTTL,
			ArbiterAddress: arbiter,
		},
		Store:       persist.store,
		Idempotency: persist.idempotency,
		EventDedup:  persist.eventDedup,
		Cache:       dealCache,
		Logger:      logger,
	})

	rt.web = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpadapter.NewRouter(httpadapter.NewHandler(service, tokens, logger)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	rt.rpc = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	rt.health = health.NewServer()
	healthpb.RegisterHealthServer(rt.rpc, rt.health)
	grpcadapter.Register(rt.rpc, grpcadapter.NewDealQueryService(service))
	for _, name := range []string{"", grpcadapter.ServiceName} {
		rt.health.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}

	rt.service = service
	rt.outbox = persist.store.Outbox()
	return rt, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		r.closers.closeAll(ctx)
		return fmt.Errorf("listen grpc: %w", err)
	}
	r.logger.InfoContext(ctx, "api runtime starting", "http_port", r.cfg.HTTPPort, "grpc_port", r.cfg.GRPCPort)
	return r.serve(ctx,
		[]func(context.Context) error{
			func(context.Context) error {
				if err := r.web.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			},
			func(context.Context) error { return r.rpc.Serve(lis) },
		},
		func(ctx context.Context) {
			r.health.Shutdown()
			_ = r.web.Shutdown(ctx)
			r.rpc.GracefulStop()
		},
	)
}

// RunWorker opens the broker clients here rather than in NewRuntime, so only
// worker processes join the verdict consumer group.
func (r *Runtime) RunWorker(ctx context.Context) error {
	publisher, consumer := openBroker(ctx, r.cfg, r.logger, &r.closers)
	relay := eventadapter.NewOutboxWorker(r.logger, r.outbox, publisher, r.cfg.OutboxPollInterval, r.cfg.OutboxBatchSize)
	verdicts := eventadapter.NewConsumerWorker(r.logger, consumer, r.service, r.cfg.KafkaTopicVerdicts, r.cfg.ConsumerPollInterval)
	r.logger.InfoContext(ctx, "worker runtime starting")
	return r.serve(ctx, []func(context.Context) error{relay.Run, verdicts.Run}, nil)
}

// serve runs tasks until a signal arrives or one of them fails, then stops
// them and releases every resource.
func (r *Runtime) serve(ctx context.Context, tasks []func(context.Context) error, stop func(context.Context)) error {
	ctx, cancelSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelSignals()

	failed := make(chan error, len(tasks))
	for _, task := range tasks {
		go func() {
			if err := task(ctx); err != nil && !errors.Is(err, context.Canceled) {
				failed <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-failed:
		r.logger.ErrorContext(ctx, "runtime task failed", "module", "bootstrap.runtime", "outcome", "failure", "error", runErr)
	}
	cancelSignals()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if stop != nil {
		stop(shutdownCtx)
	}
	r.closers.closeAll(shutdownCtx)
	return runErr
}
