package models

import "time"

// SailingStatus is the derived, time-dependent state of a sailing
type SailingStatus string

const (
	StatusScheduled SailingStatus = "Scheduled"
	StatusEnRoute   SailingStatus = "En Route"
	StatusCompleted SailingStatus = "Completed"
	StatusCancelled SailingStatus = "Cancelled"
)

// UnknownVessel is used when the upstream feed omits the vessel name
const UnknownVessel = "Unknown Vessel"

// ClockLayout is the time-of-day format used to match recurring daily sailings
const ClockLayout = "15:04"

// Terminal represents a ferry dock location
type Terminal struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Sailing is one scheduled voyage between two terminals.
// Progress and status are never stored here, they depend on the wall clock.
type Sailing struct {
	ID                 string    `json:"id"`
	DepartureTerminal  string    `json:"departure_terminal"`
	ArrivalTerminal    string    `json:"arrival_terminal"`
	ScheduledDeparture time.Time `json:"scheduled_departure"`
	ScheduledArrival   time.Time `json:"scheduled_arrival"`
	VesselName         string    `json:"vessel_name"`
	IsCancelled        bool      `json:"is_cancelled"`
	PercentageFull     int       `json:"percentage_full"` // car deck fill, not clamped
	TotalFill          int       `json:"total_fill"`
	OversizeFill       int       `json:"oversize_fill"`
	VesselStatus       string    `json:"vessel_status,omitempty"`
}

// DepartureClock returns the "HH:mm" departure time in loc
func (s Sailing) DepartureClock(loc *time.Location) string {
	return s.ScheduledDeparture.In(loc).Format(ClockLayout)
}

// FavoriteRoute is a persisted (departure, arrival) pair.
// Name is derived once, when the favorite is created.
type FavoriteRoute struct {
	ID                  string `json:"id"`
	DepartureTerminalID string `json:"departure_terminal_id"`
	ArrivalTerminalID   string `json:"arrival_terminal_id"`
	Name                string `json:"name"`
}

// SamePair reports whether both favorites point at the same route
func (f FavoriteRoute) SamePair(dep, arr string) bool {
	return f.DepartureTerminalID == dep && f.ArrivalTerminalID == arr
}

// FavoriteSailing is a persisted recurring daily sailing
type FavoriteSailing struct {
	ID                     string `json:"id"`
	DepartureTerminalID    string `json:"departure_terminal_id"`
	ArrivalTerminalID      string `json:"arrival_terminal_id"`
	ScheduledDepartureTime string `json:"scheduled_departure_time"` // "HH:mm"
	VesselName             string `json:"vessel_name"`
}

// Matches compares structural fields only. Sailing IDs are regenerated on every
// fetch and must never be used here.
func (f FavoriteSailing) Matches(s Sailing, loc *time.Location) bool {
	return f.DepartureTerminalID == s.DepartureTerminal &&
		f.ArrivalTerminalID == s.ArrivalTerminal &&
		f.ScheduledDepartureTime == s.DepartureClock(loc) &&
		f.VesselName == s.VesselName
}

// Same reports structural equality between two favorite sailings
func (f FavoriteSailing) Same(o FavoriteSailing) bool {
	return f.DepartureTerminalID == o.DepartureTerminalID &&
		f.ArrivalTerminalID == o.ArrivalTerminalID &&
		f.ScheduledDepartureTime == o.ScheduledDepartureTime &&
		f.VesselName == o.VesselName
}

// ActivityState is the content pushed to a live sailing activity on every refresh
type ActivityState struct {
	SailingID      string        `json:"sailing_id"`
	PercentageFull int           `json:"percentage_full"`
	IsCancelled    bool          `json:"is_cancelled"`
	CurrentStatus  SailingStatus `json:"current_status"`
	Progress       float64       `json:"progress"`
}

// Capacity API data structures

// CapacityResponse is the body of GET /capacity
type CapacityResponse struct {
	Routes []CapacityRoute `json:"routes"`
}

// CapacityRoute groups upstream sailings for one terminal pair
type CapacityRoute struct {
	RouteCode        string            `json:"routeCode"`
	FromTerminalCode string            `json:"fromTerminalCode"`
	ToTerminalCode   string            `json:"toTerminalCode"`
	SailingDuration  string            `json:"sailingDuration"`
	Sailings         []CapacitySailing `json:"sailings"`
}

// CapacitySailing is a raw sailing entry; optional fields are pointers
type CapacitySailing struct {
	Time          string  `json:"time"`
	ArrivalTime   *string `json:"arrivalTime"`
	SailingStatus *string `json:"sailingStatus"`
	Fill          *int    `json:"fill"`
	CarFill       *int    `json:"carFill"`
	OversizeFill  *int    `json:"oversizeFill"`
	VesselName    *string `json:"vesselName"`
	VesselStatus  *string `json:"vesselStatus"`
}
