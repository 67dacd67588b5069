package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyReport(t *testing.T) {
	locations, err := locationsSeed()
	require.NoError(t, err)
	types, err := violationTypesSeed()
	require.NoError(t, err)

	tests := []struct {
		name string
		form ReportForm
		want reportClassification
	}{
		{
			name: "catalog priority and district hint",
			form: ReportForm{ViolationType: "Overloading", District: "kandy", CurrentLocation: "Lat:6.9,Lon:79.8"},
			want: reportClassification{Priority: priorityMedium, Province: "Central", District: "Kandy"},
		},
		{
			name: "unknown violation type is low priority",
			form: ReportForm{ViolationType: "Other", CurrentLocation: "Lat:6.9,Lon:79.8"},
			want: reportClassification{Priority: priorityLow},
		},
		{
			name: "client priority is ignored",
			form: ReportForm{ViolationType: "Drunk Driver", Priority: intPtr(3)},
			want: reportClassification{Priority: priorityHigh},
		},
		{
			name: "district wins over a mismatching province hint",
			form: ReportForm{ViolationType: "Too Slow", Province: "Western", District: "Jaffna"},
			want: reportClassification{Priority: priorityLow, Province: "Northern", District: "Jaffna"},
		},
		{
			name: "unknown district falls back to location text",
			form: ReportForm{ViolationType: "Too Slow", District: "Atlantis", CurrentLocation: "Main Street, Galle"},
			want: reportClassification{Priority: priorityLow, Province: "Southern", District: "Galle"},
		},
		{
			name: "first catalog district in text",
			form: ReportForm{ViolationType: "Excessive Fare", CurrentLocation: "Galle Road, Colombo 03"},
			want: reportClassification{Priority: priorityLow, Province: "Western", District: "Colombo"},
		},
		{
			name: "province hint without district",
			form: ReportForm{ViolationType: "Over Speeding", Province: "uva", CurrentLocation: "somewhere"},
			want: reportClassification{Priority: priorityMedium, Province: "Uva"},
		},
		{
			name: "longest province name in text",
			form: ReportForm{ViolationType: "Over Speeding", CurrentLocation: "A9 highway, North Western Province"},
			want: reportClassification{Priority: priorityMedium, Province: "North Western"},
		},
		{
			name: "province hint outside catalog is dropped",
			form: ReportForm{ViolationType: "overloading", Province: "Ontario"},
			want: reportClassification{Priority: priorityMedium},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyReport(tt.form, locations, types))
		})
	}
}

func TestClassifyReportWithEmptyCatalogs(t *testing.T) {
	got := classifyReport(ReportForm{ViolationType: "Drunk Driver", Province: "Western", District: "Colombo"}, nil, nil)
	assert.Equal(t, reportClassification{Priority: priorityLow}, got)
}

func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("near kandy town", "kandy"))
	assert.True(t, containsWord("kandy", "kandy"))
	assert.False(t, containsWord("kandyan dancers", "kandy"))
	assert.True(t, containsWord("kandyan kandy", "kandy"))
	assert.False(t, containsWord("anything", ""))
}

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		in     string
		lat    float64
		lon    float64
		wantOK bool
	}{
		{in: "Lat: 6.9271, Lon: 79.8612", lat: 6.9271, lon: 79.8612, wantOK: true},
		{in: "Lat:6.9,Lon:79.8", lat: 6.9, lon: 79.8, wantOK: true},
		{in: "latitude=7.29 longitude=80.63", lat: 7.29, lon: 80.63, wantOK: true},
		{in: " 6.05, 80.22 ", lat: 6.05, lon: 80.22, wantOK: true},
		{in: "Galle Road, Colombo 03", wantOK: false},
		{in: "Lat: 95, Lon: 10", wantOK: false},
		{in: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lat, lon, ok := parseCoordinates(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.lat, lat, 1e-9)
				assert.InDelta(t, tt.lon, lon, 1e-9)
			}
		})
	}
}

func TestCatalogResolverCachesNonEmptyResults(t *testing.T) {
	store := newMemStore()
	resolver := newCatalogResolver(store, time.Minute)
	ctx := context.Background()

	rows, err := resolver.locations(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	seed, err := locationsSeed()
	require.NoError(t, err)
	_, err = store.SeedLocations(ctx, seed)
	require.NoError(t, err)

	rows, err = resolver.locations(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 9)

	_, err = resolver.locations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.listLocationsCalls)

	resolver.invalidate(locationsCacheKey)
	_, err = resolver.locations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, store.listLocationsCalls)
}

func TestDistrictsOf(t *testing.T) {
	locations, err := locationsSeed()
	require.NoError(t, err)

	districts, ok := districtsOf(locations, " north western ")
	require.True(t, ok)
	assert.Equal(t, []string{"Kurunegala", "Puttalam"}, districts)

	_, ok = districtsOf(locations, "Atlantis")
	assert.False(t, ok)
}

func intPtr(v int) *int { return &v }
