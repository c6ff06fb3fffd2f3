package preferences

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ferrywatch/ferries_core/internal/models"
	"github.com/ferrywatch/ferries_core/internal/terminals"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const recordVersion = 1

const (
	lastRouteKey        = "last_route"
	favoriteRoutesKey   = "favorite_routes"
	favoriteSailingsKey = "favorite_sailings"
)

type envelope[T any] struct {
	Version int `json:"version"`
	Items   T   `json:"items"`
}

type lastRoute struct {
	Departure string `json:"departure_terminal_id"`
	Arrival   string `json:"arrival_terminal_id"`
}

// Preferences is the preference set of one profile
type Preferences struct {
	store    Store
	registry *terminals.Registry
	loc      *time.Location
	profile  string
	newID    func() string

	// serializes read-modify-write cycles on this profile within the process
	mu *sync.Mutex
}

// New scopes store to profile. loc is the zone used to derive "HH:mm" sailing times.
// Use a Manager when several callers may update the same profile concurrently.
func New(store Store, registry *terminals.Registry, loc *time.Location, profile string) *Preferences {
	return &Preferences{
		store:    store,
		registry: registry,
		loc:      loc,
		profile:  profile,
		newID:    uuid.NewString,
		mu:       &sync.Mutex{},
	}
}

// Manager hands out per-profile preferences that share one lock per profile
type Manager struct {
	store    Store
	registry *terminals.Registry
	loc      *time.Location

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a manager over store
func NewManager(store Store, registry *terminals.Registry, loc *time.Location) *Manager {
	return &Manager{
		store:    store,
		registry: registry,
		loc:      loc,
		locks:    make(map[string]*sync.Mutex),
	}
}

// For returns the preferences of profile
func (m *Manager) For(profile string) *Preferences {
	m.mu.Lock()
	lock, ok := m.locks[profile]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[profile] = lock
	}
	m.mu.Unlock()

	p := New(m.store, m.registry, m.loc, profile)
	p.mu = lock
	return p
}

// Profile returns the profile namespace
func (p *Preferences) Profile() string {
	return p.profile
}

func (p *Preferences) key(name string) string {
	return fmt.Sprintf("%s/%s", p.profile, name)
}

func load[T any](ctx context.Context, store Store, key string, into *T) (bool, error) {
	data, found, err := store.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}

	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	if env.Version != recordVersion {
		return false, fmt.Errorf("%w: %s has version %d", ErrUnsupportedVersion, key, env.Version)
	}

	*into = env.Items
	return true, nil
}

func save[T any](ctx context.Context, store Store, key string, items T) error {
	data, err := json.Marshal(envelope[T]{Version: recordVersion, Items: items})
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return store.Set(ctx, key, data)
}

// Last route

// LastRoute returns the last viewed route. A stored route that no longer
// resolves to two terminals on a valid route reads as absent.
func (p *Preferences) LastRoute(ctx context.Context) (dep, arr models.Terminal, ok bool, err error) {
	var route lastRoute
	found, err := load(ctx, p.store, p.key(lastRouteKey), &route)
	if err != nil || !found {
		return dep, arr, false, err
	}

	dep, depOK := p.registry.Lookup(route.Departure)
	arr, arrOK := p.registry.Lookup(route.Arrival)
	if !depOK || !arrOK || !p.registry.IsValidRoute(route.Departure, route.Arrival) {
		log.Debug().Str("profile", p.profile).Str("from", route.Departure).Str("to", route.Arrival).Msg("Ignoring stale last route")
		return models.Terminal{}, models.Terminal{}, false, nil
	}

	return dep, arr, true, nil
}

// SaveLastRoute remembers dep -> arr
func (p *Preferences) SaveLastRoute(ctx context.Context, dep, arr string) error {
	if !p.registry.IsValidRoute(dep, arr) {
		return models.ErrRouteNotFound
	}
	return save(ctx, p.store, p.key(lastRouteKey), lastRoute{Departure: dep, Arrival: arr})
}

// ClearLastRoute forgets the last route
func (p *Preferences) ClearLastRoute(ctx context.Context) error {
	return p.store.Delete(ctx, p.key(lastRouteKey))
}

// Favorite routes

// FavoriteRoutes returns saved routes in insertion order
func (p *Preferences) FavoriteRoutes(ctx context.Context) ([]models.FavoriteRoute, error) {
	routes := []models.FavoriteRoute{}
	if _, err := load(ctx, p.store, p.key(favoriteRoutesKey), &routes); err != nil {
		return nil, err
	}
	return routes, nil
}

// IsFavoriteRoute reports whether dep -> arr is saved
func (p *Preferences) IsFavoriteRoute(ctx context.Context, dep, arr string) (bool, error) {
	routes, err := p.FavoriteRoutes(ctx)
	if err != nil {
		return false, err
	}
	return indexOfRoute(routes, dep, arr) >= 0, nil
}

// SaveFavoriteRoute adds dep -> arr unless already saved, and returns the stored favorite
func (p *Preferences) SaveFavoriteRoute(ctx context.Context, dep, arr string) (models.FavoriteRoute, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saveFavoriteRoute(ctx, dep, arr)
}

func (p *Preferences) saveFavoriteRoute(ctx context.Context, dep, arr string) (models.FavoriteRoute, error) {
	if !p.registry.IsValidRoute(dep, arr) {
		return models.FavoriteRoute{}, models.ErrRouteNotFound
	}

	routes, err := p.FavoriteRoutes(ctx)
	if err != nil {
		return models.FavoriteRoute{}, err
	}
	if i := indexOfRoute(routes, dep, arr); i >= 0 {
		return routes[i], nil
	}

	fav := models.FavoriteRoute{
		ID:                  p.newID(),
		DepartureTerminalID: dep,
		ArrivalTerminalID:   arr,
		Name:                p.registry.RouteName(dep, arr),
	}
	if err := save(ctx, p.store, p.key(favoriteRoutesKey), append(routes, fav)); err != nil {
		return models.FavoriteRoute{}, err
	}
	return fav, nil
}

// RemoveFavoriteRoute deletes dep -> arr. Removing an absent route is not an error.
func (p *Preferences) RemoveFavoriteRoute(ctx context.Context, dep, arr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeFavoriteRoute(ctx, dep, arr)
}

func (p *Preferences) removeFavoriteRoute(ctx context.Context, dep, arr string) error {
	routes, err := p.FavoriteRoutes(ctx)
	if err != nil {
		return err
	}

	kept := routes[:0]
	for _, r := range routes {
		if !r.SamePair(dep, arr) {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(routes) {
		return nil
	}
	return save(ctx, p.store, p.key(favoriteRoutesKey), kept)
}

// ToggleFavoriteRoute flips the saved state of dep -> arr and returns the new state
func (p *Preferences) ToggleFavoriteRoute(ctx context.Context, dep, arr string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	routes, err := p.FavoriteRoutes(ctx)
	if err != nil {
		return false, err
	}
	if indexOfRoute(routes, dep, arr) >= 0 {
		return false, p.removeFavoriteRoute(ctx, dep, arr)
	}
	if _, err := p.saveFavoriteRoute(ctx, dep, arr); err != nil {
		return false, err
	}
	return true, nil
}

func indexOfRoute(routes []models.FavoriteRoute, dep, arr string) int {
	for i, r := range routes {
		if r.SamePair(dep, arr) {
			return i
		}
	}
	return -1
}

// Favorite sailings

// FavoriteSailingOf builds the structural favorite for s, without an ID
func FavoriteSailingOf(s models.Sailing, loc *time.Location) models.FavoriteSailing {
	return models.FavoriteSailing{
		DepartureTerminalID:    s.DepartureTerminal,
		ArrivalTerminalID:      s.ArrivalTerminal,
		ScheduledDepartureTime: s.DepartureClock(loc),
		VesselName:             s.VesselName,
	}
}

// FavoriteSailings returns saved sailings in insertion order
func (p *Preferences) FavoriteSailings(ctx context.Context) ([]models.FavoriteSailing, error) {
	sailings := []models.FavoriteSailing{}
	if _, err := load(ctx, p.store, p.key(favoriteSailingsKey), &sailings); err != nil {
		return nil, err
	}
	return sailings, nil
}

// IsFavoriteSailing matches s against saved sailings by route, time of day and vessel
func (p *Preferences) IsFavoriteSailing(ctx context.Context, s models.Sailing) (bool, error) {
	favs, err := p.FavoriteSailings(ctx)
	if err != nil {
		return false, err
	}
	return indexOfSailing(favs, FavoriteSailingOf(s, p.loc)) >= 0, nil
}

// MarkFavorites returns the IDs of the sailings that match a saved favorite
func (p *Preferences) MarkFavorites(ctx context.Context, sailings []models.Sailing) (map[string]bool, error) {
	favs, err := p.FavoriteSailings(ctx)
	if err != nil {
		return nil, err
	}

	marked := make(map[string]bool)
	for _, s := range sailings {
		for _, f := range favs {
			if f.Matches(s, p.loc) {
				marked[s.ID] = true
				break
			}
		}
	}
	return marked, nil
}

// SaveFavoriteSailing adds fav unless an equal favorite exists, and returns the stored one
func (p *Preferences) SaveFavoriteSailing(ctx context.Context, fav models.FavoriteSailing) (models.FavoriteSailing, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saveFavoriteSailing(ctx, fav)
}

func (p *Preferences) saveFavoriteSailing(ctx context.Context, fav models.FavoriteSailing) (models.FavoriteSailing, error) {
	if !p.registry.IsValidRoute(fav.DepartureTerminalID, fav.ArrivalTerminalID) {
		return models.FavoriteSailing{}, models.ErrRouteNotFound
	}
	fav, err := canonicalSailing(fav)
	if err != nil {
		return models.FavoriteSailing{}, err
	}

	favs, err := p.FavoriteSailings(ctx)
	if err != nil {
		return models.FavoriteSailing{}, err
	}
	if i := indexOfSailing(favs, fav); i >= 0 {
		return favs[i], nil
	}

	fav.ID = p.newID()
	if err := save(ctx, p.store, p.key(favoriteSailingsKey), append(favs, fav)); err != nil {
		return models.FavoriteSailing{}, err
	}
	return fav, nil
}

// RemoveFavoriteSailing deletes every favorite structurally equal to fav
func (p *Preferences) RemoveFavoriteSailing(ctx context.Context, fav models.FavoriteSailing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeFavoriteSailing(ctx, fav)
}

func (p *Preferences) removeFavoriteSailing(ctx context.Context, fav models.FavoriteSailing) error {
	if canonical, err := canonicalSailing(fav); err == nil {
		fav = canonical
	}

	favs, err := p.FavoriteSailings(ctx)
	if err != nil {
		return err
	}

	kept := favs[:0]
	for _, f := range favs {
		if !f.Same(fav) {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(favs) {
		return nil
	}
	return save(ctx, p.store, p.key(favoriteSailingsKey), kept)
}

// ToggleFavoriteSailing flips the saved state of fav and returns the new state
func (p *Preferences) ToggleFavoriteSailing(ctx context.Context, fav models.FavoriteSailing) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fav, err := canonicalSailing(fav)
	if err != nil {
		return false, err
	}

	favs, err := p.FavoriteSailings(ctx)
	if err != nil {
		return false, err
	}
	if indexOfSailing(favs, fav) >= 0 {
		return false, p.removeFavoriteSailing(ctx, fav)
	}
	if _, err := p.saveFavoriteSailing(ctx, fav); err != nil {
		return false, err
	}
	return true, nil
}

// canonicalSailing rewrites the departure time as zero-padded HH:mm so it compares
// equal to Sailing.DepartureClock
func canonicalSailing(fav models.FavoriteSailing) (models.FavoriteSailing, error) {
	parsed, err := time.Parse(models.ClockLayout, strings.TrimSpace(fav.ScheduledDepartureTime))
	if err != nil {
		return fav, fmt.Errorf("%w %q: %v", ErrInvalidDepartureTime, fav.ScheduledDepartureTime, err)
	}
	fav.ScheduledDepartureTime = parsed.Format(models.ClockLayout)
	return fav, nil
}

func indexOfSailing(favs []models.FavoriteSailing, fav models.FavoriteSailing) int {
	for i, f := range favs {
		if f.Same(fav) {
			return i
		}
	}
	return -1
}
