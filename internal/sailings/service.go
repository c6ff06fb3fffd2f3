package sailings

import (
	"context"
	"fmt"
	"time"

	"github.com/ferrywatch/ferries_core/internal/capacity"
	"github.com/ferrywatch/ferries_core/internal/models"
	"github.com/ferrywatch/ferries_core/internal/schedule"
	"github.com/ferrywatch/ferries_core/internal/terminals"
	"github.com/rs/zerolog/log"
)

// Service answers terminal and sailing queries
type Service struct {
	registry   *terminals.Registry
	source     capacity.Source
	normalizer *schedule.Normalizer
	now        func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the wall clock used to anchor and classify sailings
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a sailing service
func NewService(registry *terminals.Registry, source capacity.Source, loc *time.Location, opts ...Option) *Service {
	s := &Service{
		registry:   registry,
		source:     source,
		normalizer: schedule.NewNormalizer(registry, loc),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the terminal registry backing the service
func (s *Service) Registry() *terminals.Registry {
	return s.registry
}

// Location returns the reference time zone of the schedule
func (s *Service) Location() *time.Location {
	return s.normalizer.Location()
}

// Now returns the service clock
func (s *Service) Now() time.Time {
	return s.now()
}

// Terminals lists terminals with outgoing routes
func (s *Service) Terminals() []models.Terminal {
	return s.registry.ListTerminals()
}

// Destinations resolves the terminals reachable from terminalID
func (s *Service) Destinations(terminalID string) []models.Terminal {
	ids := s.registry.ValidDestinations(terminalID)
	dests := make([]models.Terminal, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.registry.Lookup(id); ok {
			dests = append(dests, t)
		}
	}
	return dests
}

// Sailings fetches and normalizes the sailings for dep -> arr.
// Non-adjacent routes fail with ErrRouteNotFound before any upstream request.
func (s *Service) Sailings(ctx context.Context, dep, arr string) ([]models.Sailing, error) {
	if !s.registry.IsValidRoute(dep, arr) {
		return nil, models.ErrRouteNotFound
	}

	start := time.Now()

	resp, err := s.source.FetchCapacity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch capacity: %w", err)
	}

	sailings, err := s.normalizer.Normalize(resp.Routes, dep, arr, s.now())
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("from", dep).
		Str("to", arr).
		Int("sailings", len(sailings)).
		Dur("duration", time.Since(start)).
		Msg("Loaded sailings")

	return sailings, nil
}
