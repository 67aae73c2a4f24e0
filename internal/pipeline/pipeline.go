// Package pipeline owns the RFQ lifecycle (OPEN -> AWARDED | CANCELLED) and
// the order fulfillment lifecycle that an award spawns.
//
// Every operation takes the acting party's id and checks it against the
// record; authorization lives here, not in the transport layer.
//
// Consistency is kept at two levels. Inside a process, RFQs and orders are
// guarded by per-id locks: quote submissions share the RFQ lock, awards and
// cancellations take it exclusively, order advances take the order lock.
// Across processes, storage re-checks version and status on every write and
// reports db.ErrConflict, which surfaces as apperr.ErrInvalidState.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agrotrade/db"
	"agrotrade/internal/apperr"
	"agrotrade/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrustIncrementOnDelivery is added to a supplier's trust score (capped at
// 100) when one of its orders reaches DELIVERED.
const TrustIncrementOnDelivery = 2

const (
	DefaultVolumeUnit = "MT"
	DefaultPageLimit  = 5
	MaxPageLimit      = 50
)

type Pipeline struct {
	store   StorageInterface
	admins  map[string]struct{}
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string

	rfqLocks   *keyedRWMutex
	orderLocks *keyedRWMutex
}

type Option func(*Pipeline)

// WithAdmins sets the actor ids allowed to advance any order.
func WithAdmins(ids ...string) Option {
	return func(p *Pipeline) {
		for _, id := range ids {
			if id != "" {
				p.admins[id] = struct{}{}
			}
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(p *Pipeline) { p.newID = newID }
}

func New(store StorageInterface, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      store,
		admins:     make(map[string]struct{}),
		log:        zap.NewNop(),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
		rfqLocks:   newKeyedRWMutex(),
		orderLocks: newKeyedRWMutex(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) isAdmin(actorID string) bool {
	_, ok := p.admins[actorID]
	return ok
}

// storageErr translates storage errors into the apperr taxonomy.
func storageErr(op string, err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	case errors.Is(err, db.ErrConflict):
		return fmt.Errorf("%s: %w: record changed, re-fetch", op, apperr.ErrInvalidState)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrUpstreamUnavailable, err)
	}
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrValidation, fmt.Sprintf(format, args...))
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > MaxPageLimit {
		limit = DefaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
