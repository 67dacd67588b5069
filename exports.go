package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"
	"github.com/kavishka-rasanjana/Transit-Guard/internal/dashboard"
	"github.com/xuri/excelize/v2"
)

const (
	exportFormatCSV     = "csv"
	exportFormatGeoJSON = "geojson"
	exportFormatPDF     = "pdf"
	exportFormatXLSX    = "xlsx"

	complaintsSheet  = "Complaints"
	provincesSheet   = "Provinces"
	pdfTopCategories = 10
)

var exportColumns = []string{
	"id", "submitted_at", "status", "priority", "category", "province",
	"district", "passenger", "bus", "route", "lat", "lng",
}

type exportArtifact struct {
	ContentType string
	FileName    string
	Body        []byte
}

// buildExport renders complaints in the requested format.
func buildExport(format string, complaints []dashboard.Complaint, generatedAt time.Time) (*exportArtifact, error) {
	stamp := generatedAt.UTC().Format("20060102-150405")
	var (
		body        []byte
		contentType string
		err         error
	)
	switch format {
	case exportFormatCSV:
		body, err = buildCSV(complaints)
		contentType = "text/csv; charset=utf-8"
	case exportFormatGeoJSON:
		body, err = buildGeoJSON(complaints)
		contentType = "application/geo+json"
	case exportFormatPDF:
		body, err = buildPDF(complaints, generatedAt)
		contentType = "application/pdf"
	case exportFormatXLSX:
		body, err = buildXLSX(complaints)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, &apiError{Status: http.StatusBadRequest, Code: "invalid_format", Message: "format must be csv, geojson, pdf or xlsx"}
	}
	if err != nil {
		return nil, fmt.Errorf("build %s export: %w", format, err)
	}
	return &exportArtifact{
		ContentType: contentType,
		FileName:    fmt.Sprintf("complaints-%s.%s", stamp, format),
		Body:        body,
	}, nil
}

func exportRow(c dashboard.Complaint) []string {
	lat, lng := "", ""
	if c.GPSLocation != nil {
		lat = strconv.FormatFloat(c.GPSLocation.Latitude, 'f', 6, 64)
		lng = strconv.FormatFloat(c.GPSLocation.Longitude, 'f', 6, 64)
	}
	return []string{
		c.ID,
		c.SubmittedAt.UTC().Format(time.RFC3339),
		c.Status,
		c.Priority,
		c.ViolationCategory,
		c.Province,
		c.District,
		c.PassengerName,
		c.BusNumber,
		c.RouteNumber,
		lat,
		lng,
	}
}

func buildCSV(complaints []dashboard.Complaint) ([]byte, error) {
	buffer := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buffer)
	if err := writer.Write(exportColumns); err != nil {
		return nil, err
	}
	for _, c := range complaints {
		if err := writer.Write(exportRow(c)); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func buildGeoJSON(complaints []dashboard.Complaint) ([]byte, error) {
	features := make([]map[string]any, 0, len(complaints))
	for _, c := range complaints {
		if c.GPSLocation == nil {
			continue
		}
		features = append(features, map[string]any{
			"type": "Feature",
			"geometry": map[string]any{
				"type":        "Point",
				"coordinates": []float64{c.GPSLocation.Longitude, c.GPSLocation.Latitude},
			},
			"properties": map[string]any{
				"id":           c.ID,
				"submitted_at": c.SubmittedAt.UTC().Format(time.RFC3339),
				"status":       c.Status,
				"priority":     c.Priority,
				"category":     c.ViolationCategory,
				"province":     c.Province,
				"district":     c.District,
				"bus":          c.BusNumber,
			},
		})
	}
	payload := map[string]any{"type": "FeatureCollection", "features": features}
	return json.MarshalIndent(payload, "", "  ")
}

func buildPDF(complaints []dashboard.Complaint, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 16)
	pdf.Cell(0, 10, "Passenger complaint report")

	pdf.Ln(12)

	stats := dashboard.ComputeStats(complaints)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, "Generated: "+generatedAt.UTC().Format("2006-01-02 15:04 MST"))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Total complaints: %d", stats.TotalComplaints))
	pdf.Ln(10)

	section := func(title string) {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 8, title)
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
	}
	line := func(label string, count int) {
		pdf.Cell(0, 6, tr(fmt.Sprintf("- %s: %d", label, count)))
		pdf.Ln(6)
	}

	section("Status distribution")
	line(dashboard.StatusPending, stats.PendingComplaints)
	line(dashboard.StatusInReview, stats.InReviewComplaints)
	line(dashboard.StatusResolved, stats.ResolvedComplaints)
	line(dashboard.StatusRejected, stats.RejectedComplaints)

	section("Priority distribution")
	line(dashboard.PriorityHigh, stats.HighPriority)
	line(dashboard.PriorityMedium, stats.MediumPriority)
	line(dashboard.PriorityLow, stats.LowPriority)

	section("Provinces")
	pdf.SetFont("Helvetica", "B", 10)
	for i, heading := range []string{"Province", "Total", "Pending", "In Review", "Resolved", "Rejected"} {
		width := 25.0
		if i == 0 {
			width = 45
		}
		pdf.CellFormat(width, 7, heading, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range dashboard.ComputeProvinceStats(complaints) {
		pdf.CellFormat(45, 6, tr(row.Province), "1", 0, "L", false, 0, "")
		for _, v := range []int{row.Total, row.Pending, row.InReview, row.Resolved, row.Rejected} {
			pdf.CellFormat(25, 6, strconv.Itoa(v), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	section("Top categories")
	categories := dashboard.ComputeCategoryBreakdownFor(complaints, nil, nil)
	sort.SliceStable(categories, func(i, j int) bool { return categories[i].Count > categories[j].Count })
	if len(categories) > pdfTopCategories {
		categories = categories[:pdfTopCategories]
	}
	for _, row := range categories {
		line(fmt.Sprintf("%s (%s)", row.Name, row.Priority), row.Count)
	}

	buffer := bytes.NewBuffer(nil)
	if err := pdf.Output(buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func buildXLSX(complaints []dashboard.Complaint) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", complaintsSheet); err != nil {
		return nil, err
	}
	if err := setSheetRow(f, complaintsSheet, 1, toCells(exportColumns)); err != nil {
		return nil, err
	}
	for i, c := range complaints {
		if err := setSheetRow(f, complaintsSheet, i+2, toCells(exportRow(c))); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(provincesSheet); err != nil {
		return nil, err
	}
	if err := setSheetRow(f, provincesSheet, 1, []any{"province", "total", "pending", "in_review", "resolved", "rejected"}); err != nil {
		return nil, err
	}
	for i, row := range dashboard.ComputeProvinceStats(complaints) {
		cells := []any{row.Province, row.Total, row.Pending, row.InReview, row.Resolved, row.Rejected}
		if err := setSheetRow(f, provincesSheet, i+2, cells); err != nil {
			return nil, err
		}
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func setSheetRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func (a *App) dashboardExportHandler(c *gin.Context) {
	var q dashboard.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		writeAPIError(c, invalidPayload(err.Error()))
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.Query("format")))
	if format == "" {
		format = exportFormatCSV
	}

	scope, err := a.bindScope(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	scope.filter = q.Filter

	rows, err := a.complaints(c.Request.Context(), scope)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	dashboard.Sort(rows, q.Sort)

	artifact, err := buildExport(format, rows, a.now())
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", artifact.FileName))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Body)
}
