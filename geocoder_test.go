package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNominatimURL = "http://nominatim.test"

func newMockedNominatim(t *testing.T) (*NominatimGeocoder, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	return newNominatimGeocoder(
		testNominatimURL+"/",
		"TransitGuard-Test/1.0",
		&http.Client{Transport: transport, Timeout: time.Second},
	), transport
}

func TestNominatimGeocoderParsesReverseResult(t *testing.T) {
	g, transport := newMockedNominatim(t)
	transport.RegisterResponder(http.MethodGet, testNominatimURL+"/reverse",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "TransitGuard-Test/1.0", req.Header.Get("User-Agent"))
			assert.Equal(t, "jsonv2", req.URL.Query().Get("format"))
			assert.Equal(t, "7.290600", req.URL.Query().Get("lat"))
			assert.Equal(t, "80.633700", req.URL.Query().Get("lon"))
			return httpmock.NewStringResponse(http.StatusOK, `{
				"display_name": "Dalada Veediya, Kandy, Kandy District, Central Province, Sri Lanka",
				"address": {
					"road": "Dalada Veediya",
					"city": "Kandy",
					"state_district": "Kandy District",
					"state": "Central Province",
					"country": "Sri Lanka"
				}
			}`), nil
		})

	res, err := g.Geocode(context.Background(), 7.2906, 80.6337)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Dalada Veediya, Kandy, Kandy District, Central Province, Sri Lanka", res.Label)
	assert.Equal(t, "Central Province", res.State)
	assert.Equal(t, "Kandy District", res.District)
	assert.Equal(t, "Kandy", res.City)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestNominatimGeocoderFallsBackToTownAndCounty(t *testing.T) {
	g, transport := newMockedNominatim(t)
	transport.RegisterResponder(http.MethodGet, testNominatimURL+"/reverse",
		httpmock.NewStringResponder(http.StatusOK, `{
			"display_name": "Ella, Badulla, Uva Province, Sri Lanka",
			"address": {"town": "Ella", "county": "Badulla", "state": "Uva Province"}
		}`))

	res, err := g.Geocode(context.Background(), 6.8667, 81.0466)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Ella", res.City)
	assert.Equal(t, "Badulla", res.District)
}

func TestNominatimGeocoderNoResult(t *testing.T) {
	g, transport := newMockedNominatim(t)
	transport.RegisterResponder(http.MethodGet, testNominatimURL+"/reverse",
		httpmock.NewStringResponder(http.StatusOK, `{"error": "Unable to geocode"}`))

	res, err := g.Geocode(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestNominatimGeocoderErrors(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
	}{
		{"server_error", httpmock.NewStringResponder(http.StatusInternalServerError, "boom")},
		{"rate_limited", httpmock.NewStringResponder(http.StatusTooManyRequests, "slow down")},
		{"invalid_json", httpmock.NewStringResponder(http.StatusOK, `{invalid`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, transport := newMockedNominatim(t)
			transport.RegisterResponder(http.MethodGet, testNominatimURL+"/reverse", tt.responder)

			res, err := g.Geocode(context.Background(), 6.9, 79.8)
			require.Error(t, err)
			assert.Nil(t, res)
		})
	}
}

func TestNominatimGeocoderHonoursContextWhileThrottled(t *testing.T) {
	g, transport := newMockedNominatim(t)
	transport.RegisterResponder(http.MethodGet, testNominatimURL+"/reverse",
		httpmock.NewStringResponder(http.StatusOK, `{"display_name": "x"}`))
	require.True(t, g.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Geocode(ctx, 6.9, 79.8)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestNominatimGeocoderSpacesConsecutiveCalls(t *testing.T) {
	g, transport := newMockedNominatim(t)
	transport.RegisterResponder(http.MethodGet, testNominatimURL+"/reverse",
		httpmock.NewStringResponder(http.StatusOK, `{"display_name": "x"}`))

	start := time.Now()
	_, err := g.Geocode(context.Background(), 6.9, 79.8)
	require.NoError(t, err)
	_, err = g.Geocode(context.Background(), 6.9, 79.8)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), nominatimMinInterval-50*time.Millisecond)
	assert.Equal(t, 2, transport.GetTotalCallCount())
}

func TestCoordinateLabel(t *testing.T) {
	assert.Equal(t, "Lat: 6.9271, Lon: 79.8612", coordinateLabel(6.9271, 79.8612))
	assert.Equal(t, "Lat: -1.5, Lon: 0", coordinateLabel(-1.5, 0))
}
