package schedule

import (
	"time"

	"github.com/ferrywatch/ferries_core/internal/models"
	"github.com/ferrywatch/ferries_core/internal/terminals"
)

// EstimatePosition estimates where the vessel is, assuming a straight crossing
// between the two terminals at constant speed. It only reports a position while
// the sailing is en route.
func EstimatePosition(s models.Sailing, registry *terminals.Registry, now time.Time) (lat, lon float64, ok bool) {
	progress, status := ProgressOf(s, now)
	if status != models.StatusEnRoute {
		return 0, 0, false
	}

	from, ok := registry.Lookup(s.DepartureTerminal)
	if !ok {
		return 0, 0, false
	}
	to, ok := registry.Lookup(s.ArrivalTerminal)
	if !ok {
		return 0, 0, false
	}

	lat, lon = linearInterpolate(from.Lat, from.Lon, to.Lat, to.Lon, progress)
	return lat, lon, true
}

// linearInterpolate performs simple linear interpolation between two points
func linearInterpolate(lat1, lon1, lat2, lon2, progress float64) (lat, lon float64) {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	lat = lat1 + (lat2-lat1)*progress
	lon = lon1 + (lon2-lon1)*progress
	return lat, lon
}
