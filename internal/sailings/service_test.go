package sailings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ferrywatch/ferries_core/internal/models"
	"github.com/ferrywatch/ferries_core/internal/schedule"
	"github.com/ferrywatch/ferries_core/internal/terminals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	calls int
	resp  *models.CapacityResponse
	err   error
}

func (s *stubSource) FetchCapacity(ctx context.Context) (*models.CapacityResponse, error) {
	s.calls++
	return s.resp, s.err
}

func strPtr(s string) *string { return &s }

func newTestService(t *testing.T, source *stubSource) *Service {
	t.Helper()
	loc, err := schedule.LoadZone(schedule.DefaultZone)
	require.NoError(t, err)

	return NewService(terminals.Default(), source, loc, WithClock(func() time.Time {
		return time.Date(2026, 10, 19, 12, 0, 0, 0, loc)
	}))
}

func TestSailingsRejectsInvalidRouteWithoutFetching(t *testing.T) {
	source := &stubSource{resp: &models.CapacityResponse{}}
	svc := newTestService(t, source)

	_, err := svc.Sailings(context.Background(), "TSA", "HSB")
	assert.ErrorIs(t, err, models.ErrRouteNotFound)
	assert.Equal(t, 0, source.calls)
}

func TestSailingsNormalizesFeed(t *testing.T) {
	source := &stubSource{resp: &models.CapacityResponse{
		Routes: []models.CapacityRoute{
			{
				FromTerminalCode: "TSA",
				ToTerminalCode:   "SWB",
				SailingDuration:  "1h 35m",
				Sailings: []models.CapacitySailing{
					{Time: "3:00 pm", VesselName: strPtr("Coastal Celebration")},
					{Time: "1:00 pm", VesselName: strPtr("Spirit of Vancouver Island")},
				},
			},
			{
				FromTerminalCode: "SWB",
				ToTerminalCode:   "TSA",
				Sailings:         []models.CapacitySailing{{Time: "2:00 pm"}},
			},
		},
	}}
	svc := newTestService(t, source)

	sailings, err := svc.Sailings(context.Background(), "TSA", "SWB")
	require.NoError(t, err)
	require.Len(t, sailings, 2)
	assert.Equal(t, "13:00", sailings[0].DepartureClock(svc.Location()))
	assert.Equal(t, "Coastal Celebration", sailings[1].VesselName)
	assert.Equal(t, 95*time.Minute, sailings[0].ScheduledArrival.Sub(sailings[0].ScheduledDeparture))
	assert.Equal(t, 1, source.calls)
}

func TestSailingsWrapsUpstreamErrors(t *testing.T) {
	source := &stubSource{err: &models.NetworkError{Cause: errors.New("timeout")}}
	svc := newTestService(t, source)

	_, err := svc.Sailings(context.Background(), "TSA", "SWB")
	require.Error(t, err)
	assert.True(t, models.IsUpstreamError(err))
}

func TestSailingsEmptyForValidRoute(t *testing.T) {
	svc := newTestService(t, &stubSource{resp: &models.CapacityResponse{}})

	sailings, err := svc.Sailings(context.Background(), "HSB", "LNG")
	require.NoError(t, err)
	assert.Empty(t, sailings)
}

func TestDestinations(t *testing.T) {
	svc := newTestService(t, &stubSource{})

	dests := svc.Destinations("TSA")
	require.Len(t, dests, 2)
	assert.Equal(t, "SWB", dests[0].ID)
	assert.Equal(t, "DUK", dests[1].ID)

	assert.Empty(t, svc.Destinations("XYZ"))
	assert.Len(t, svc.Terminals(), 6)
}
