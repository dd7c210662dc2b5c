package memory

import (
	"context"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

// expiring is a mutex-guarded map whose entries vanish once their deadline
// has passed.
type expiring[V any] struct {
	mu      sync.Mutex
	entries map[string]V
	expiry  func(V) time.Time
}

func newExpiring[V any](expiry func(V) time.Time) *expiring[V] {
	return &expiring[V]{entries: map[string]V{}, expiry: expiry}
}

// live returns the entry for key unless it expired before now. Callers hold mu.
func (m *expiring[V]) live(key string, now time.Time) (V, bool) {
	v, ok := m.entries[key]
	if ok && now.After(m.expiry(v)) {
		delete(m.entries, key)
		var zero V
		return zero, false
	}
	return v, ok
}

type IdempotencyRepository struct {
	keys *expiring[ports.IdempotencyRecord]
}

func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{keys: newExpiring(func(r ports.IdempotencyRecord) time.Time { return r.ExpiresAt })}
}

func (r *IdempotencyRepository) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	r.keys.mu.Lock()
	defer r.keys.mu.Unlock()
	rec, ok := r.keys.live(key, now)
	if !ok {
		return nil, nil
	}
	rec.ResponseBody = append([]byte(nil), rec.ResponseBody...)
	return &rec, nil
}

// Reserve claims key for one in-flight request. An unexpired claim, finished
// or not, is a conflict.
func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.keys.mu.Lock()
	defer r.keys.mu.Unlock()
	if _, taken := r.keys.live(key, time.Now().UTC()); taken {
		return domain.ErrConflict
	}
	r.keys.entries[key] = ports.IdempotencyRecord{Key: key, RequestHash: requestHash, ExpiresAt: expiresAt}
	return nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	r.keys.mu.Lock()
	defer r.keys.mu.Unlock()
	rec, ok := r.keys.entries[key]
	if !ok {
		return domain.ErrNotFound
	}
	rec.ResponseCode = responseCode
	rec.ResponseBody = append([]byte(nil), responseBody...)
	r.keys.entries[key] = rec
	return nil
}

// Release drops a claim whose request never produced a response.
func (r *IdempotencyRepository) Release(_ context.Context, key string) error {
	r.keys.mu.Lock()
	defer r.keys.mu.Unlock()
	if rec, ok := r.keys.entries[key]; ok && rec.ResponseCode == 0 {
		delete(r.keys.entries, key)
	}
	return nil
}

type processedEvent struct {
	eventType string
	expiresAt time.Time
}

type EventDedupRepository struct {
	seen *expiring[processedEvent]
}

func NewEventDedupRepository() *EventDedupRepository {
	return &EventDedupRepository{seen: newExpiring(func(e processedEvent) time.Time { return e.expiresAt })}
}

func (r *EventDedupRepository) IsDuplicate(_ context.Context, eventID string, now time.Time) (bool, error) {
	r.seen.mu.Lock()
	defer r.seen.mu.Unlock()
	_, ok := r.seen.live(eventID, now)
	return ok, nil
}

func (r *EventDedupRepository) MarkProcessed(_ context.Context, eventID, eventType string, expiresAt time.Time) error {
	r.seen.mu.Lock()
	defer r.seen.mu.Unlock()
	r.seen.entries[eventID] = processedEvent{eventType: eventType, expiresAt: expiresAt}
	return nil
}
