package preferences

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ferrywatch/ferries_core/internal/models"
	"github.com/ferrywatch/ferries_core/internal/terminals"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newRedisStore(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "")
}

var backends = []struct {
	name string
	open func(t *testing.T) Store
}{
	{"sqlite", newSQLiteStore},
	{"redis", newRedisStore},
}

func newTestPreferences(t *testing.T, store Store, profile string) *Preferences {
	t.Helper()
	loc, err := time.LoadLocation("America/Vancouver")
	require.NoError(t, err)

	p := New(store, terminals.Default(), loc, profile)
	counter := 0
	p.newID = func() string {
		counter++
		return fmt.Sprintf("fav-%d", counter)
	}
	return p
}

func TestStoreRoundTrip(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			store := backend.open(t)
			ctx := context.Background()

			_, found, err := store.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, store.Set(ctx, "k", []byte("v1")))
			require.NoError(t, store.Set(ctx, "k", []byte("v2")))

			value, found, err := store.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, []byte("v2"), value)

			require.NoError(t, store.Delete(ctx, "k"))
			_, found, err = store.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, found)

			assert.NoError(t, store.Delete(ctx, "never-set"))
		})
	}
}

func TestLastRoute(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			p := newTestPreferences(t, backend.open(t), "alice")

			_, _, ok, err := p.LastRoute(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, p.SaveLastRoute(ctx, "HSB", "LNG"))
			dep, arr, ok, err := p.LastRoute(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "Horseshoe Bay", dep.Name)
			assert.Equal(t, "LNG", arr.ID)

			require.NoError(t, p.ClearLastRoute(ctx))
			_, _, ok, err = p.LastRoute(ctx)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSaveLastRouteRejectsInvalidRoute(t *testing.T) {
	p := newTestPreferences(t, newSQLiteStore(t), "alice")
	assert.ErrorIs(t, p.SaveLastRoute(context.Background(), "TSA", "LNG"), models.ErrRouteNotFound)
}

func TestLastRouteRevalidatedOnRead(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	p := newTestPreferences(t, store, "alice")

	require.NoError(t, store.Set(ctx, "alice/last_route",
		[]byte(`{"version":1,"items":{"departure_terminal_id":"SWB","arrival_terminal_id":"DUK"}}`)))

	_, _, ok, err := p.LastRoute(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnsupportedVersion(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	p := newTestPreferences(t, store, "alice")

	require.NoError(t, store.Set(ctx, "alice/favorite_routes", []byte(`{"version":2,"items":[]}`)))

	_, err := p.FavoriteRoutes(ctx)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestFavoriteRoutes(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			p := newTestPreferences(t, backend.open(t), "alice")

			fav, err := p.SaveFavoriteRoute(ctx, "TSA", "SWB")
			require.NoError(t, err)
			assert.Equal(t, "fav-1", fav.ID)
			assert.Equal(t, "Tsawwassen → Swartz Bay", fav.Name)

			again, err := p.SaveFavoriteRoute(ctx, "TSA", "SWB")
			require.NoError(t, err)
			assert.Equal(t, fav.ID, again.ID)

			_, err = p.SaveFavoriteRoute(ctx, "HSB", "NAN")
			require.NoError(t, err)

			routes, err := p.FavoriteRoutes(ctx)
			require.NoError(t, err)
			require.Len(t, routes, 2)
			assert.Equal(t, "TSA", routes[0].DepartureTerminalID)
			assert.Equal(t, "HSB", routes[1].DepartureTerminalID)

			isFav, err := p.IsFavoriteRoute(ctx, "SWB", "TSA")
			require.NoError(t, err)
			assert.False(t, isFav, "routes are directed")

			require.NoError(t, p.RemoveFavoriteRoute(ctx, "TSA", "SWB"))
			require.NoError(t, p.RemoveFavoriteRoute(ctx, "TSA", "SWB"))
			routes, err = p.FavoriteRoutes(ctx)
			require.NoError(t, err)
			require.Len(t, routes, 1)
			assert.Equal(t, "HSB", routes[0].DepartureTerminalID)
		})
	}
}

func TestToggleFavoriteRouteTwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	p := newTestPreferences(t, newSQLiteStore(t), "alice")

	_, err := p.SaveFavoriteRoute(ctx, "HSB", "LNG")
	require.NoError(t, err)
	before, err := p.FavoriteRoutes(ctx)
	require.NoError(t, err)

	on, err := p.ToggleFavoriteRoute(ctx, "TSA", "DUK")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = p.ToggleFavoriteRoute(ctx, "TSA", "DUK")
	require.NoError(t, err)
	assert.False(t, on)

	after, err := p.FavoriteRoutes(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSaveFavoriteRouteRejectsInvalidRoute(t *testing.T) {
	p := newTestPreferences(t, newSQLiteStore(t), "alice")
	_, err := p.SaveFavoriteRoute(context.Background(), "SWB", "DUK")
	assert.ErrorIs(t, err, models.ErrRouteNotFound)
}

func TestFavoriteSailings(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			p := newTestPreferences(t, backend.open(t), "alice")

			departure := time.Date(2026, 10, 19, 7, 0, 0, 0, p.loc)
			sailing := models.Sailing{
				ID:                 "generated-1",
				DepartureTerminal:  "TSA",
				ArrivalTerminal:    "SWB",
				ScheduledDeparture: departure,
				ScheduledArrival:   departure.Add(95 * time.Minute),
				VesselName:         "Spirit of British Columbia",
			}

			saved, err := p.SaveFavoriteSailing(ctx, FavoriteSailingOf(sailing, p.loc))
			require.NoError(t, err)
			assert.Equal(t, "07:00", saved.ScheduledDepartureTime)
			assert.NotEmpty(t, saved.ID)

			// The next day's fetch produces a new ID for the same recurring sailing
			tomorrow := sailing
			tomorrow.ID = "generated-2"
			tomorrow.ScheduledDeparture = departure.AddDate(0, 0, 1)

			isFav, err := p.IsFavoriteSailing(ctx, tomorrow)
			require.NoError(t, err)
			assert.True(t, isFav)

			otherVessel := tomorrow
			otherVessel.ID = "generated-3"
			otherVessel.VesselName = "Coastal Renaissance"
			marked, err := p.MarkFavorites(ctx, []models.Sailing{tomorrow, otherVessel})
			require.NoError(t, err)
			assert.Equal(t, map[string]bool{"generated-2": true}, marked)

			_, err = p.SaveFavoriteSailing(ctx, FavoriteSailingOf(tomorrow, p.loc))
			require.NoError(t, err)
			favs, err := p.FavoriteSailings(ctx)
			require.NoError(t, err)
			assert.Len(t, favs, 1)

			require.NoError(t, p.RemoveFavoriteSailing(ctx, FavoriteSailingOf(sailing, p.loc)))
			favs, err = p.FavoriteSailings(ctx)
			require.NoError(t, err)
			assert.Empty(t, favs)
		})
	}
}

func TestToggleFavoriteSailingTwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	p := newTestPreferences(t, newSQLiteStore(t), "alice")

	fav := models.FavoriteSailing{
		DepartureTerminalID:    "HSB",
		ArrivalTerminalID:      "NAN",
		ScheduledDepartureTime: "18:30",
		VesselName:             "Queen of Oak Bay",
	}

	on, err := p.ToggleFavoriteSailing(ctx, fav)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = p.ToggleFavoriteSailing(ctx, fav)
	require.NoError(t, err)
	assert.False(t, on)

	favs, err := p.FavoriteSailings(ctx)
	require.NoError(t, err)
	assert.Empty(t, favs)
}

func TestSaveFavoriteSailingValidation(t *testing.T) {
	ctx := context.Background()
	p := newTestPreferences(t, newSQLiteStore(t), "alice")

	_, err := p.SaveFavoriteSailing(ctx, models.FavoriteSailing{
		DepartureTerminalID: "TSA", ArrivalTerminalID: "SWB", ScheduledDepartureTime: "7am",
	})
	assert.ErrorIs(t, err, ErrInvalidDepartureTime)

	_, err = p.SaveFavoriteSailing(ctx, models.FavoriteSailing{
		DepartureTerminalID: "TSA", ArrivalTerminalID: "NAN", ScheduledDepartureTime: "07:00",
	})
	assert.ErrorIs(t, err, models.ErrRouteNotFound)
}

func TestFavoriteSailingTimeIsZeroPadded(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			p := newTestPreferences(t, backend.open(t), "alice")

			saved, err := p.SaveFavoriteSailing(ctx, models.FavoriteSailing{
				DepartureTerminalID:    "TSA",
				ArrivalTerminalID:      "SWB",
				ScheduledDepartureTime: "9:05",
				VesselName:             "Queen of New Westminster",
			})
			require.NoError(t, err)
			assert.Equal(t, "09:05", saved.ScheduledDepartureTime)

			departure := time.Date(2026, 10, 19, 9, 5, 0, 0, p.loc)
			sailing := models.Sailing{
				ID:                 "generated-1",
				DepartureTerminal:  "TSA",
				ArrivalTerminal:    "SWB",
				ScheduledDeparture: departure,
				ScheduledArrival:   departure.Add(95 * time.Minute),
				VesselName:         "Queen of New Westminster",
			}

			isFav, err := p.IsFavoriteSailing(ctx, sailing)
			require.NoError(t, err)
			assert.True(t, isFav)

			marked, err := p.MarkFavorites(ctx, []models.Sailing{sailing})
			require.NoError(t, err)
			assert.True(t, marked["generated-1"])

			// Toggling the unpadded form removes the stored favorite
			on, err := p.ToggleFavoriteSailing(ctx, models.FavoriteSailing{
				DepartureTerminalID:    "TSA",
				ArrivalTerminalID:      "SWB",
				ScheduledDepartureTime: "9:05",
				VesselName:             "Queen of New Westminster",
			})
			require.NoError(t, err)
			assert.False(t, on)

			favs, err := p.FavoriteSailings(ctx)
			require.NoError(t, err)
			assert.Empty(t, favs)
		})
	}
}

func TestProfilesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	alice := newTestPreferences(t, store, "alice")
	bob := newTestPreferences(t, store, "bob")

	_, err := alice.SaveFavoriteRoute(ctx, "TSA", "SWB")
	require.NoError(t, err)
	require.NoError(t, alice.SaveLastRoute(ctx, "TSA", "SWB"))

	routes, err := bob.FavoriteRoutes(ctx)
	require.NoError(t, err)
	assert.Empty(t, routes)

	_, _, ok, err := bob.LastRoute(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManagerSerializesConcurrentToggles(t *testing.T) {
	ctx := context.Background()
	loc, err := time.LoadLocation("America/Vancouver")
	require.NoError(t, err)
	manager := NewManager(newSQLiteStore(t), terminals.Default(), loc)

	routes := [][2]string{{"TSA", "SWB"}, {"TSA", "DUK"}, {"HSB", "NAN"}, {"HSB", "LNG"}, {"SWB", "TSA"}}

	var wg sync.WaitGroup
	for _, r := range routes {
		wg.Add(1)
		go func(dep, arr string) {
			defer wg.Done()
			_, err := manager.For("alice").ToggleFavoriteRoute(ctx, dep, arr)
			assert.NoError(t, err)
		}(r[0], r[1])
	}
	wg.Wait()

	saved, err := manager.For("alice").FavoriteRoutes(ctx)
	require.NoError(t, err)
	assert.Len(t, saved, len(routes))
}
