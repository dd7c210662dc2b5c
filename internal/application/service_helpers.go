package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
)

type idempotentRequest struct {
	Operation string         `json:"operation"`
	Caller    domain.Address `json:"caller"`
	Input     any            `json:"input"`
}

// runIdempotent executes fn at most once per key. A completed key replays
// the stored result; a key reused for a different request is a conflict.
func runIdempotent[T any](ctx context.Context, s *Service, key string, request idempotentRequest, fn func() (T, error)) (T, error) {
	var zero T
	key = strings.TrimSpace(key)
	if s.idempotency == nil || key == "" {
		return fn()
	}
	requestHash := hashJSON(request)
	rec, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil {
		return zero, domain.AsExternal(fmt.Errorf("idempotency lookup: %w", err))
	}
	if rec != nil {
		if rec.RequestHash != requestHash {
			return zero, domain.ErrIdempotencyConflict
		}
		if len(rec.ResponseBody) == 0 {
			return zero, fmt.Errorf("%w: request still in flight", domain.ErrIdempotencyConflict)
		}
		var out T
		if err := json.Unmarshal(rec.ResponseBody, &out); err != nil {
			return zero, fmt.Errorf("decode idempotent replay: %w", err)
		}
		return out, nil
	}
	if err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL)); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return zero, domain.ErrIdempotencyConflict
		}
		return zero, err
	}
	out, err := fn()
	if err != nil {
		_ = s.idempotency.Release(ctx, key)
		return zero, err
	}
	body, err := json.Marshal(out)
	if err == nil {
		err = s.idempotency.Complete(ctx, key, 200, body, s.nowFn())
	}
	if err != nil {
		s.logger.WarnContext(ctx, "idempotency record not completed",
			"module", "application.idempotency",
			"layer", "application",
			"operation", request.Operation,
			"outcome", "degraded",
			"error", err,
		)
	}
	return out, nil
}

func hashJSON(v any) string {
	b, _ := json.Marshal(v)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
