package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ferrywatch/ferries_core/internal/bootstrap"
	"github.com/ferrywatch/ferries_core/internal/config"
	"github.com/ferrywatch/ferries_core/internal/models"
	"github.com/ferrywatch/ferries_core/internal/preferences"
	"github.com/ferrywatch/ferries_core/internal/sailings"
	"github.com/ferrywatch/ferries_core/internal/schedule"
	"github.com/ferrywatch/ferries_core/internal/terminals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	resp *models.CapacityResponse
}

func (s *stubSource) FetchCapacity(ctx context.Context) (*models.CapacityResponse, error) {
	return s.resp, nil
}

func strPtr(s string) *string { return &s }

func testBuild(t *testing.T) BuildFunc {
	t.Helper()
	t.Setenv("FERRIES_CONFIG", "")
	dbPath := filepath.Join(t.TempDir(), "prefs.db")

	return func(ctx context.Context, cfg *config.Config) (*bootstrap.Deps, error) {
		loc, err := schedule.LoadZone(cfg.Timezone)
		if err != nil {
			return nil, err
		}
		registry := terminals.Default()
		source := &stubSource{resp: &models.CapacityResponse{
			Routes: []models.CapacityRoute{{
				FromTerminalCode: "TSA",
				ToTerminalCode:   "SWB",
				SailingDuration:  "1h 35m",
				Sailings: []models.CapacitySailing{
					{Time: "3:00 pm", VesselName: strPtr("Spirit of British Columbia")},
				},
			}},
		}}

		store, err := preferences.NewSQLiteStore(dbPath)
		if err != nil {
			return nil, err
		}

		return &bootstrap.Deps{
			Config:   cfg,
			Registry: registry,
			Location: loc,
			Service: sailings.NewService(registry, source, loc, sailings.WithClock(func() time.Time {
				return time.Date(2026, 10, 19, 12, 0, 0, 0, loc)
			})),
			Store:    store,
			Profiles: preferences.NewManager(store, registry, loc),
		}, nil
	}
}

func run(t *testing.T, build BuildFunc, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	err := NewApp(build, &out).Run(append([]string{"ferries"}, args...))
	require.NoError(t, err)
	return out.String()
}

func TestTerminalsCommand(t *testing.T) {
	build := testBuild(t)

	out := run(t, build, "terminals")
	assert.Contains(t, out, "Tsawwassen")
	assert.Contains(t, out, "SWB,DUK")

	out = run(t, build, "terminals", "--from", "hsb")
	assert.Contains(t, out, "Langdale")
	assert.NotContains(t, out, "Tsawwassen")
}

func TestSailingsCommandRemembersRoute(t *testing.T) {
	build := testBuild(t)

	out := run(t, build, "--profile", "alice", "sailings", "--from", "tsa", "--to", "swb")
	assert.Contains(t, out, "Tsawwassen → Swartz Bay")
	assert.Contains(t, out, "Spirit of British Columbia")
	assert.Contains(t, out, "Scheduled")

	out = run(t, build, "--profile", "alice", "last-route")
	assert.Contains(t, out, "(TSA -> SWB)")

	run(t, build, "--profile", "alice", "last-route", "--clear")
	out = run(t, build, "--profile", "alice", "last-route")
	assert.Contains(t, out, "no last route")
}

func TestSailingsCommandInvalidRoute(t *testing.T) {
	var out bytes.Buffer
	err := NewApp(testBuild(t), &out).Run([]string{"ferries", "sailings", "--from", "TSA", "--to", "LNG"})
	assert.ErrorIs(t, err, models.ErrRouteNotFound)
}

func TestFavoritesCommands(t *testing.T) {
	build := testBuild(t)

	out := run(t, build, "--profile", "bob", "favorites", "toggle-route", "--from", "tsa", "--to", "swb")
	assert.Contains(t, out, "favorite=true")

	out = run(t, build, "--profile", "bob", "favorites", "toggle-sailing",
		"--from", "TSA", "--to", "SWB", "--time", "15:00", "--vessel", "Spirit of British Columbia")
	assert.Contains(t, out, "favorite=true")

	out = run(t, build, "--profile", "bob", "favorites", "list")
	assert.Contains(t, out, "Tsawwassen → Swartz Bay")
	assert.Contains(t, out, "15:00")

	out = run(t, build, "--profile", "bob", "sailings", "--from", "TSA", "--to", "SWB")
	assert.Contains(t, out, "*")

	out = run(t, build, "--profile", "bob", "favorites", "toggle-route", "--from", "TSA", "--to", "SWB")
	assert.Contains(t, out, "favorite=false")
}
