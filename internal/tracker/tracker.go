package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ferrywatch/ferries_core/internal/models"
	"github.com/ferrywatch/ferries_core/internal/schedule"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is how often watched sailings are recomputed
const DefaultInterval = 30 * time.Second

// PublishFunc receives the recomputed states of all watched sailings
type PublishFunc func(states []models.ActivityState)

// Tracker holds the sailings a user is watching and recomputes their live
// state from the clock. It performs no I/O.
type Tracker struct {
	mu      sync.Mutex
	watched map[string]models.Sailing // sailing ID -> sailing
	now     func() time.Time
}

// New creates an empty tracker
func New() *Tracker {
	return &Tracker{
		watched: make(map[string]models.Sailing),
		now:     time.Now,
	}
}

// Start begins watching s and returns its current state
func (t *Tracker) Start(s models.Sailing) models.ActivityState {
	t.mu.Lock()
	t.watched[s.ID] = s
	t.mu.Unlock()

	log.Info().Str("sailing", s.ID).Str("vessel", s.VesselName).Msg("Started watching sailing")
	return schedule.ActivityStateOf(s, t.now())
}

// Stop stops watching sailingID. Returns false if it was not watched.
func (t *Tracker) Stop(sailingID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.watched[sailingID]; !ok {
		return false
	}
	delete(t.watched, sailingID)
	return true
}

// Len returns the number of watched sailings
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.watched)
}

// Sync replaces the fill and cancellation data of watched sailings with
// fresh upstream data. Fresh sailings carry new IDs, so they are matched on
// route and departure instant. Returns the number of sailings updated.
func (t *Tracker) Sync(fresh []models.Sailing) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	updated := 0
	for id, held := range t.watched {
		for _, s := range fresh {
			if s.DepartureTerminal == held.DepartureTerminal &&
				s.ArrivalTerminal == held.ArrivalTerminal &&
				s.ScheduledDeparture.Equal(held.ScheduledDeparture) {
				s.ID = id
				t.watched[id] = s
				updated++
				break
			}
		}
	}
	return updated
}

// Refresh recomputes every watched sailing at now, ordered by departure
func (t *Tracker) Refresh(now time.Time) []models.ActivityState {
	t.mu.Lock()
	sailings := make([]models.Sailing, 0, len(t.watched))
	for _, s := range t.watched {
		sailings = append(sailings, s)
	}
	t.mu.Unlock()

	sort.Slice(sailings, func(i, j int) bool {
		if sailings[i].ScheduledDeparture.Equal(sailings[j].ScheduledDeparture) {
			return sailings[i].ID < sailings[j].ID
		}
		return sailings[i].ScheduledDeparture.Before(sailings[j].ScheduledDeparture)
	})

	states := make([]models.ActivityState, 0, len(sailings))
	for _, s := range sailings {
		states = append(states, schedule.ActivityStateOf(s, now))
	}
	return states
}

// Run publishes a refresh immediately and then every interval until ctx is done
func (t *Tracker) Run(ctx context.Context, interval time.Duration, publish PublishFunc) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	publish(t.Refresh(t.now()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			publish(t.Refresh(t.now()))
		}
	}
}
