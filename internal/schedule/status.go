package schedule

import (
	"time"

	"github.com/ferrywatch/ferries_core/internal/models"
)

// Progress computes the elapsed fraction and status of a sailing at now.
// The branch order matters: when arrival equals departure the en-route branch
// is unreachable, which is what keeps the division safe.
func Progress(departure, arrival time.Time, cancelled bool, now time.Time) (float64, models.SailingStatus) {
	if cancelled {
		return 0, models.StatusCancelled
	}

	if now.Before(departure) {
		return 0, models.StatusScheduled
	}

	if !now.Before(arrival) {
		return 1, models.StatusCompleted
	}

	total := arrival.Sub(departure)
	elapsed := now.Sub(departure)
	return float64(elapsed) / float64(total), models.StatusEnRoute
}

// ProgressOf is Progress applied to a sailing
func ProgressOf(s models.Sailing, now time.Time) (float64, models.SailingStatus) {
	return Progress(s.ScheduledDeparture, s.ScheduledArrival, s.IsCancelled, now)
}

// ActivityStateOf builds the live activity content for a sailing at now
func ActivityStateOf(s models.Sailing, now time.Time) models.ActivityState {
	progress, status := ProgressOf(s, now)
	return models.ActivityState{
		SailingID:      s.ID,
		PercentageFull: s.PercentageFull,
		IsCancelled:    s.IsCancelled,
		CurrentStatus:  status,
		Progress:       progress,
	}
}
