package application

import (
	"io"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

type Config struct {
	ServiceName    string
	IdempotencyTTL time.Duration
	EventDedupTTL  time.Duration
	DealCacheTTL   time.Duration
	// ArbiterAddress is the identity verdicts consumed from the event bus
	// are applied as.
	ArbiterAddress domain.Address
}

const RoleArbiter = "arbiter"

// Actor is the authenticated identity of one call. The engine has no notion
// of a current user beyond it.
type Actor struct {
	Address        domain.Address
	Role           string
	RequestID      string
	IdempotencyKey string
}

func (a Actor) caller() domain.Caller {
	return domain.Caller{Address: a.Address, Arbiter: a.Role == RoleArbiter}
}

type CreateDealInput struct {
	Worker        string
	Terms         string
	Budget        uint64
	Penalty       uint64
	Duration      uint64
	Contact       domain.Contact
	SuppliedValue uint64
}

type AcceptDealInput struct {
	DealID  uint64
	Contact domain.Contact
}

type RequestResolutionInput struct {
	DealID   uint64
	ProofURL string
}

type ApplyVerdictInput struct {
	DealID  uint64
	Verdict string
	Raw     string
}

type Service struct {
	cfg         Config
	store       ports.Store
	idempotency ports.IdempotencyRepository
	eventDedup  ports.EventDedupRepository
	cache       ports.Cache
	logger      *slog.Logger
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Store       ports.Store
	Idempotency ports.IdempotencyRepository
	EventDedup  ports.EventDedupRepository
	Cache       ports.Cache
	Logger      *slog.Logger
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "M47-Deal-Escrow-Service"
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.EventDedupTTL <= 0 {
		cfg.EventDedupTTL = 7 * 24 * time.Hour
	}
	if cfg.DealCacheTTL <= 0 {
		cfg.DealCacheTTL = 10 * time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		cfg:         cfg,
		store:       deps.Store,
		idempotency: deps.Idempotency,
		eventDedup:  deps.EventDedup,
		cache:       deps.Cache,
		logger:      logger,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}
