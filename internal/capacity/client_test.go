package capacity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ferrywatch/ferries_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCapacity = `{
	"routes": [
		{
			"routeCode": "TSASWB",
			"fromTerminalCode": "TSA",
			"toTerminalCode": "SWB",
			"sailingDuration": "1h 35m",
			"sailings": [
				{
					"time": "7:00 am",
					"arrivalTime": "8:35 am",
					"sailingStatus": "On Time",
					"fill": 45,
					"carFill": 60,
					"oversizeFill": 20,
					"vesselName": "Spirit of British Columbia",
					"vesselStatus": "In Service"
				},
				{
					"time": "9:00 am"
				}
			]
		}
	]
}`

func TestFetchCapacitySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/capacity", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(sampleCapacity))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/v2/", 5*time.Second)
	resp, err := client.FetchCapacity(context.Background())
	require.NoError(t, err)

	require.Len(t, resp.Routes, 1)
	route := resp.Routes[0]
	assert.Equal(t, "TSA", route.FromTerminalCode)
	assert.Equal(t, "SWB", route.ToTerminalCode)
	assert.Equal(t, "1h 35m", route.SailingDuration)
	require.Len(t, route.Sailings, 2)

	first := route.Sailings[0]
	require.NotNil(t, first.CarFill)
	assert.Equal(t, 60, *first.CarFill)
	require.NotNil(t, first.VesselName)
	assert.Equal(t, "Spirit of British Columbia", *first.VesselName)

	second := route.Sailings[1]
	assert.Nil(t, second.ArrivalTime)
	assert.Nil(t, second.CarFill)
	assert.Nil(t, second.VesselName)
}

func TestFetchCapacityStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).FetchCapacity(context.Background())
	assert.ErrorIs(t, err, models.ErrInvalidResponse)
}

func TestFetchCapacityInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).FetchCapacity(context.Background())

	var decodeErr *models.DecodingError
	require.True(t, errors.As(err, &decodeErr))
	assert.NotEmpty(t, decodeErr.Detail)
}

func TestFetchCapacityWrongShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"routes": {"not": "a list"}}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).FetchCapacity(context.Background())

	var decodeErr *models.DecodingError
	assert.True(t, errors.As(err, &decodeErr))
}

func TestFetchCapacityNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, time.Second).FetchCapacity(context.Background())

	var netErr *models.NetworkError
	assert.True(t, errors.As(err, &netErr))
	assert.True(t, models.IsUpstreamError(err))
}

func TestFetchCapacityCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCapacity))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(server.URL, time.Second).FetchCapacity(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClientDefaults(t *testing.T) {
	assert.Equal(t, DefaultBaseURL+"/capacity", NewClient("", 0).Endpoint())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", preview([]byte("abc"), 10))
	assert.Equal(t, "ab...", preview([]byte("abc"), 2))
}
