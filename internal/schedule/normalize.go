package schedule

import (
	"sort"
	"strings"
	"time"

	"github.com/ferrywatch/ferries_core/internal/models"
	"github.com/ferrywatch/ferries_core/internal/terminals"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Normalizer converts raw capacity routes into canonical sailings
type Normalizer struct {
	registry *terminals.Registry
	loc      *time.Location
	newID    func() string
}

// NewNormalizer creates a normalizer for the registry's routes in loc
func NewNormalizer(registry *terminals.Registry, loc *time.Location) *Normalizer {
	return &Normalizer{
		registry: registry,
		loc:      loc,
		newID:    uuid.NewString,
	}
}

// Location returns the reference timezone
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Normalize returns the sailings from dep to arr, sorted by departure.
// Entries with an unparseable departure are skipped. When the upstream feed
// repeats a departure time of day, the first entry wins.
func (n *Normalizer) Normalize(routes []models.CapacityRoute, dep, arr string, now time.Time) ([]models.Sailing, error) {
	if !n.registry.IsValidRoute(dep, arr) {
		return nil, models.ErrRouteNotFound
	}

	sailings := []models.Sailing{}
	seen := make(map[string]bool) // "HH:mm" -> already emitted
	matched := 0

	for _, route := range routes {
		if route.FromTerminalCode != dep || route.ToTerminalCode != arr {
			continue
		}
		matched++

		for _, raw := range route.Sailings {
			departure, err := ParseDeparture(raw.Time, now, n.loc)
			if err != nil {
				log.Warn().Err(err).Str("route", route.RouteCode).Msg("Skipping sailing with unparseable departure")
				continue
			}

			clock := departure.In(n.loc).Format(models.ClockLayout)
			if seen[clock] {
				log.Debug().Str("route", route.RouteCode).Str("departure", clock).Msg("Dropping duplicate sailing")
				continue
			}
			seen[clock] = true

			arrival := ParseArrival(raw.ArrivalTime, route.SailingDuration, departure, now, n.loc)
			sailings = append(sailings, n.buildSailing(route, raw, departure, arrival))
		}
	}

	sort.SliceStable(sailings, func(i, j int) bool {
		return sailings[i].ScheduledDeparture.Before(sailings[j].ScheduledDeparture)
	})

	log.Debug().
		Str("from", dep).
		Str("to", arr).
		Int("routes", matched).
		Int("sailings", len(sailings)).
		Msg("Normalized sailings")

	return sailings, nil
}

func (n *Normalizer) buildSailing(route models.CapacityRoute, raw models.CapacitySailing, departure, arrival time.Time) models.Sailing {
	vessel := models.UnknownVessel
	if raw.VesselName != nil && *raw.VesselName != "" {
		vessel = *raw.VesselName
	}

	return models.Sailing{
		ID:                 n.newID(),
		DepartureTerminal:  route.FromTerminalCode,
		ArrivalTerminal:    route.ToTerminalCode,
		ScheduledDeparture: departure,
		ScheduledArrival:   arrival,
		VesselName:         vessel,
		IsCancelled:        isCancelled(raw.SailingStatus),
		PercentageFull:     intOrZero(raw.CarFill),
		TotalFill:          intOrZero(raw.Fill),
		OversizeFill:       intOrZero(raw.OversizeFill),
		VesselStatus:       stringOrEmpty(raw.VesselStatus),
	}
}

// isCancelled matches "cancelled" anywhere in the status, ignoring case
func isCancelled(status *string) bool {
	if status == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*status), "cancelled")
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
