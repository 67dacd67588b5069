package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/kavishka-rasanjana/Transit-Guard/internal/dashboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleComplaints() []dashboard.Complaint {
	submitted := time.Date(2026, time.February, 3, 8, 0, 0, 0, time.UTC)
	return []dashboard.Complaint{
		{
			ID: "1", PassengerName: "Kamal, Perera", BusNumber: "NB-1234", RouteNumber: "138",
			ViolationCategory: "Overloading", Priority: dashboard.PriorityMedium, Status: dashboard.StatusPending,
			Province: "Western", District: "Colombo", SubmittedAt: submitted,
			GPSLocation: &dashboard.GPSLocation{Latitude: 6.9271, Longitude: 79.8612},
		},
		{
			ID: "2", PassengerName: "Nimal", BusNumber: "CP-2222", ViolationCategory: "Drunk Driver",
			Priority: dashboard.PriorityHigh, Status: dashboard.StatusResolved, Province: "Central",
			SubmittedAt: submitted.Add(time.Hour),
		},
	}
}

func TestBuildCSV(t *testing.T) {
	data, err := buildCSV(sampleComplaints())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportColumns, records[0])
	assert.Equal(t, []string{
		"1", "2026-02-03T08:00:00Z", "Pending", "Medium", "Overloading", "Western",
		"Colombo", "Kamal, Perera", "NB-1234", "138", "6.927100", "79.861200",
	}, records[1])
	assert.Equal(t, "", records[2][10])
	assert.Equal(t, "", records[2][11])
}

func TestBuildGeoJSONSkipsComplaintsWithoutGPS(t *testing.T) {
	data, err := buildGeoJSON(sampleComplaints())
	require.NoError(t, err)

	var payload struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "FeatureCollection", payload.Type)
	require.Len(t, payload.Features, 1)
	assert.Equal(t, "Point", payload.Features[0].Geometry.Type)
	assert.Equal(t, []float64{79.8612, 6.9271}, payload.Features[0].Geometry.Coordinates)
	assert.Equal(t, "1", payload.Features[0].Properties["id"])
}

func TestBuildGeoJSONEmpty(t *testing.T) {
	data, err := buildGeoJSON(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}

func TestBuildPDF(t *testing.T) {
	data, err := buildPDF(sampleComplaints(), testNow)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestBuildXLSX(t *testing.T) {
	data, err := buildXLSX(sampleComplaints())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{complaintsSheet, provincesSheet}, f.GetSheetList())

	rows, err := f.GetRows(complaintsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportColumns, rows[0])
	assert.Equal(t, "NB-1234", rows[1][8])

	provinces, err := f.GetRows(provincesSheet)
	require.NoError(t, err)
	require.Len(t, provinces, len(dashboard.Provinces)+1)
	assert.Equal(t, []string{"Western", "1", "1", "0", "0", "0"}, provinces[1])
	assert.Equal(t, []string{"Central", "1", "0", "0", "1", "0"}, provinces[2])
}

func TestBuildExportRejectsUnknownFormat(t *testing.T) {
	_, err := buildExport("docx", nil, testNow)

	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid_format", apiErr.Code)
}

func TestBuildExportNamesArtifact(t *testing.T) {
	artifact, err := buildExport(exportFormatGeoJSON, sampleComplaints(), testNow)
	require.NoError(t, err)
	assert.Equal(t, "complaints-20260314-093000.geojson", artifact.FileName)
	assert.Equal(t, "application/geo+json", artifact.ContentType)
}
