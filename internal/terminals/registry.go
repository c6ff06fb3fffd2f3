package terminals

import (
	"fmt"
	"sort"

	"github.com/ferrywatch/ferries_core/internal/models"
)

// Registry holds the terminal set and the directed adjacency of sailable routes.
// It is read-only after construction and safe for concurrent use.
type Registry struct {
	terminals map[string]models.Terminal // terminalID -> Terminal
	routes    map[string][]string        // terminalID -> destination IDs
}

// defaultTerminals are the terminals served by the capacity feed
var defaultTerminals = []models.Terminal{
	{ID: "TSA", Name: "Tsawwassen", Lat: 49.0069, Lon: -123.1309},
	{ID: "SWB", Name: "Swartz Bay", Lat: 48.6890, Lon: -123.4106},
	{ID: "HSB", Name: "Horseshoe Bay", Lat: 49.3747, Lon: -123.2735},
	{ID: "NAN", Name: "Nanaimo (Departure Bay)", Lat: 49.1934, Lon: -123.9537},
	{ID: "DUK", Name: "Duke Point", Lat: 49.1630, Lon: -123.8914},
	{ID: "LNG", Name: "Langdale", Lat: 49.4348, Lon: -123.4742},
}

// defaultRoutes is directed: TSA sails to DUK but DUK only returns to TSA
var defaultRoutes = map[string][]string{
	"TSA": {"SWB", "DUK"},
	"SWB": {"TSA"},
	"HSB": {"NAN", "LNG"},
	"DUK": {"TSA"},
	"LNG": {"HSB"},
	"NAN": {"HSB"},
}

// New builds a registry from explicit data
func New(terminals []models.Terminal, routes map[string][]string) *Registry {
	r := &Registry{
		terminals: make(map[string]models.Terminal, len(terminals)),
		routes:    make(map[string][]string, len(routes)),
	}
	for _, t := range terminals {
		r.terminals[t.ID] = t
	}
	for from, to := range routes {
		r.routes[from] = append([]string(nil), to...)
	}
	return r
}

// Default returns the BC Ferries capacity registry
func Default() *Registry {
	return New(defaultTerminals, defaultRoutes)
}

// Validate checks that every route endpoint is a known terminal
func (r *Registry) Validate() error {
	for from, dests := range r.routes {
		if _, ok := r.terminals[from]; !ok {
			return fmt.Errorf("route origin %s is not a known terminal", from)
		}
		for _, to := range dests {
			if _, ok := r.terminals[to]; !ok {
				return fmt.Errorf("route %s -> %s: unknown destination terminal", from, to)
			}
		}
	}
	return nil
}

// ListTerminals returns every terminal that has outgoing routes, sorted by name
func (r *Registry) ListTerminals() []models.Terminal {
	list := make([]models.Terminal, 0, len(r.routes))
	for id := range r.routes {
		if t, ok := r.terminals[id]; ok {
			list = append(list, t)
		}
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})

	return list
}

// ValidDestinations returns the destinations reachable from terminalID.
// Unknown terminals yield an empty slice.
func (r *Registry) ValidDestinations(terminalID string) []string {
	dests, ok := r.routes[terminalID]
	if !ok {
		return []string{}
	}
	return append([]string(nil), dests...)
}

// IsValidRoute reports whether arr is adjacent to dep
func (r *Registry) IsValidRoute(dep, arr string) bool {
	for _, id := range r.routes[dep] {
		if id == arr {
			return true
		}
	}
	return false
}

// Lookup returns the terminal for id
func (r *Registry) Lookup(id string) (models.Terminal, bool) {
	t, ok := r.terminals[id]
	return t, ok
}

// DisplayName returns the terminal name, or the id itself when unknown
func (r *Registry) DisplayName(id string) string {
	if t, ok := r.terminals[id]; ok {
		return t.Name
	}
	return id
}

// RouteName formats the display name of a directed route
func (r *Registry) RouteName(dep, arr string) string {
	return fmt.Sprintf("%s → %s", r.DisplayName(dep), r.DisplayName(arr))
}
