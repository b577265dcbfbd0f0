// Package sample implements the delivery sampler: each cycle draws one
// synthetic observation from the active profile, logs it and publishes it.
package sample

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"

	"delivery-metrics/internal/domain/entity"
	"delivery-metrics/internal/observability/tracing"
)

// Publisher receives every sample produced by a cycle.
type Publisher interface {
	Publish(s entity.Sample)
}

// Service runs sampling cycles.
// Cycles are serialized; the profile may be replaced concurrently.
type Service struct {
	publisher Publisher
	logger    *slog.Logger

	mu  sync.Mutex // guards rng and orders draw+publish
	rng *rand.Rand

	profile atomic.Pointer[entity.Profile]
}

// Option configures a Service.
type Option func(*options)

type options struct {
	profile entity.Profile
	rng     *rand.Rand
}

// WithProfile sets the initial profile (default: entity.DefaultProfile).
func WithProfile(p entity.Profile) Option {
	return func(o *options) {
		o.profile = p
	}
}

// WithSeed makes the random sequence deterministic.
func WithSeed(seed1, seed2 uint64) Option {
	return func(o *options) {
		o.rng = rand.New(rand.NewPCG(seed1, seed2))
	}
}

// NewService creates a sampler publishing to pub.
// It fails when the initial profile is invalid.
func NewService(pub Publisher, logger *slog.Logger, opts ...Option) (*Service, error) {
	o := options{profile: entity.DefaultProfile()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	if err := o.profile.Validate(); err != nil {
		return nil, fmt.Errorf("sampler profile: %w", err)
	}

	s := &Service{
		publisher: pub,
		logger:    logger,
		rng:       o.rng,
	}
	p := o.profile
	s.profile.Store(&p)
	return s, nil
}

// Profile returns a copy of the active profile.
func (s *Service) Profile() entity.Profile {
	return *s.profile.Load()
}

// SetProfile replaces the active profile. The next cycle uses it.
// An invalid profile is rejected and the active one is kept.
func (s *Service) SetProfile(p entity.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.profile.Store(&p)
	return nil
}

// Cycle draws one sample, logs it and publishes it.
//
// The log line reads "Pending:<n> On-the-way:<n> AvgTime:<x.xx>s Total:<n>";
// the same values are attached as attributes for structured handlers.
func (s *Service) Cycle(ctx context.Context) entity.Sample {
	p := s.Profile()

	ctx, span := tracing.StartSpan(ctx, "sampler.cycle",
		attribute.Bool("high_pending_mode", p.HighPendingMode),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	sample := Draw(s.rng, p)
	if err := sample.Validate(p); err != nil {
		s.logger.DebugContext(ctx, "drawn sample outside profile", slog.Any("error", err))
	}

	s.logger.InfoContext(ctx, sample.String(),
		slog.Int("pending", sample.Pending),
		slog.Int("on_the_way", sample.OnTheWay),
		slog.Float64("avg_time", sample.AvgTime),
		slog.Int("total", sample.Total()),
	)

	s.publisher.Publish(sample)

	span.SetAttributes(
		attribute.Int("pending", sample.Pending),
		attribute.Int("on_the_way", sample.OnTheWay),
		attribute.Int("delivered", sample.Delivered),
		attribute.Float64("avg_time", sample.AvgTime),
		attribute.Int("total", sample.Total()),
	)

	return sample
}

// Draw produces one sample from p.
// Integers are uniform over their inclusive range. AvgTime is uniform over
// the half-open [Min, Max), the usual convention for a uniform float; Max
// itself is never drawn, though a profile still accepts it as a bound.
// Values are drawn in the order pending, on the way, delivered, average time.
func Draw(r *rand.Rand, p entity.Profile) entity.Sample {
	return entity.Sample{
		Pending:   intIn(r, p.PendingRange()),
		OnTheWay:  intIn(r, p.OnTheWay),
		Delivered: intIn(r, p.Delivered),
		AvgTime:   floatIn(r, p.AvgTimeSeconds),
	}
}

func intIn(r *rand.Rand, rg entity.IntRange) int {
	return rg.Min + r.IntN(rg.Max-rg.Min+1)
}

func floatIn(r *rand.Rand, rg entity.FloatRange) float64 {
	return rg.Min + r.Float64()*(rg.Max-rg.Min)
}
