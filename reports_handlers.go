package main

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kavishka-rasanjana/Transit-Guard/internal/dashboard"
)

const (
	reportStatusPending  = dashboard.StatusPending
	reportStatusInReview = dashboard.StatusInReview
	reportStatusResolved = dashboard.StatusResolved
	reportStatusRejected = dashboard.StatusRejected

	evidenceFormField   = "EvidenceFiles"
	reportSubmittedMsg  = "Report submitted successfully!"
	maxStatusNoteLength = 500
	maxPageSize         = 100
)

var statusTransitions = map[string][]string{
	reportStatusPending:  {reportStatusInReview, reportStatusRejected},
	reportStatusInReview: {reportStatusResolved, reportStatusRejected},
	reportStatusResolved: {},
	reportStatusRejected: {},
}

func canTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func invalidPayload(message string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: message}
}

func (a *App) submitReportHandler(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if _, err := c.MultipartForm(); err != nil {
			writeAPIError(c, invalidPayload("Malformed multipart body"))
			return
		}
	}

	var form ReportForm
	if err := c.ShouldBind(&form); err != nil {
		writeAPIError(c, invalidPayload(err.Error()))
		return
	}
	if err := normalizeReportForm(&form); err != nil {
		writeAPIError(c, err)
		return
	}

	var headers []*multipart.FileHeader
	if c.Request.MultipartForm != nil {
		headers = c.Request.MultipartForm.File[evidenceFormField]
	}

	report, err := a.submitReport(c.Request.Context(), form, evidenceFromHeaders(headers))
	if err != nil {
		a.log.Error("report submission failed", "err", err)
		writeAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": reportSubmittedMsg, "id": report.ID})
}

func normalizeReportForm(form *ReportForm) error {
	required := []struct {
		name  string
		value *string
	}{
		{"PassengerName", &form.PassengerName},
		{"VehicleNumber", &form.VehicleNumber},
		{"RouteNumber", &form.RouteNumber},
		{"ViolationType", &form.ViolationType},
		{"CurrentLocation", &form.CurrentLocation},
	}
	for _, field := range required {
		*field.value = strings.TrimSpace(*field.value)
		if *field.value == "" {
			return invalidPayload(field.name + " is required")
		}
	}
	form.OtherDescription = strings.TrimSpace(form.OtherDescription)
	form.Province = strings.TrimSpace(form.Province)
	form.District = strings.TrimSpace(form.District)
	return nil
}

func evidenceFromHeaders(headers []*multipart.FileHeader) []evidenceFile {
	files := make([]evidenceFile, 0, len(headers))
	for _, fh := range headers {
		fh := fh // per-iteration copy: go.mod targets go1.21 loop semantics
		files = append(files, evidenceFile{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return files
}

// submitReport stores the evidence files and the record as one unit: files are
// staged, promoted into uploads and only then is the record inserted. Any
// failure removes every file of the submission.
func (a *App) submitReport(ctx context.Context, form ReportForm, files []evidenceFile) (*ViolationReport, error) {
	locations, err := a.catalog.locations(ctx)
	if err != nil {
		return nil, err
	}
	types, err := a.catalog.violationTypes(ctx)
	if err != nil {
		return nil, err
	}
	class := classifyReport(form, locations, types)
	if form.Priority != nil && *form.Priority != class.Priority {
		a.log.Debug("ignoring client priority", "client", *form.Priority, "derived", class.Priority)
	}

	batch, err := a.evidence.stage(files)
	if err != nil {
		return nil, err
	}
	if err := batch.promote(); err != nil {
		a.discardEvidence(batch)
		return nil, err
	}

	report := &ViolationReport{
		PassengerName:      form.PassengerName,
		VehicleNumber:      form.VehicleNumber,
		RouteNumber:        form.RouteNumber,
		ViolationType:      form.ViolationType,
		CurrentLocation:    form.CurrentLocation,
		EvidenceImagePaths: batch.paths(),
		ReportedDate:       a.now().UTC(),
		Priority:           class.Priority,
		Province:           class.Province,
		District:           class.District,
		Status:             reportStatusPending,
		StatusHistory:      []StatusChange{},
	}
	if form.OtherDescription != "" {
		description := form.OtherDescription
		report.OtherDescription = &description
	}

	if err := a.store.InsertReport(ctx, report); err != nil {
		a.discardEvidence(batch)
		return nil, err
	}

	a.metrics.reportStored(report.Priority, len(report.EvidenceImagePaths))
	a.log.Info("report stored",
		"report_id", report.ID,
		"priority", report.Priority,
		"province", report.Province,
		"district", report.District,
		"evidence_files", len(report.EvidenceImagePaths),
	)
	a.notifyHighPriority(*report)
	return report, nil
}

func (a *App) discardEvidence(batch *evidenceBatch) {
	if err := batch.discard(); err != nil {
		a.log.Error("failed to discard evidence files", "err", err)
	}
}

// toComplaint projects a stored report onto the dashboard model.
func toComplaint(report ViolationReport) dashboard.Complaint {
	status := report.Status
	if status == "" {
		status = reportStatusPending
	}
	c := dashboard.Complaint{
		ID:                report.ID,
		PassengerName:     report.PassengerName,
		BusNumber:         report.VehicleNumber,
		RouteNumber:       report.RouteNumber,
		ViolationCategory: report.ViolationType,
		Priority:          dashboard.PriorityLabel(report.Priority),
		Status:            status,
		Province:          report.Province,
		District:          report.District,
		SubmittedAt:       report.ReportedDate,
		UpdatedAt:         report.UpdatedAt,
	}
	if report.OtherDescription != nil {
		c.Description = *report.OtherDescription
	}
	for _, p := range report.EvidenceImagePaths {
		c.EvidenceURLs = append(c.EvidenceURLs, "/"+strings.TrimPrefix(p, "/"))
	}
	if lat, lon, ok := parseCoordinates(report.CurrentLocation); ok {
		c.GPSLocation = &dashboard.GPSLocation{Latitude: lat, Longitude: lon}
	}
	return c
}

func toComplaints(reports []ViolationReport) []dashboard.Complaint {
	out := make([]dashboard.Complaint, 0, len(reports))
	for _, r := range reports {
		out = append(out, toComplaint(r))
	}
	return out
}

func (a *App) listReportsHandler(c *gin.Context) {
	var q dashboard.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		writeAPIError(c, invalidPayload(err.Error()))
		return
	}
	pageSize, err := boundedIntQuery(c, "pageSize", dashboard.DefaultPageSize, maxPageSize)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	q.PageSize = pageSize
	scope, err := a.bindScope(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	scope.filter = q.Filter

	complaints, err := a.liveComplaints(c.Request.Context(), scope)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, q.Run(complaints))
}

func (a *App) getReportHandler(c *gin.Context) {
	report, err := a.store.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report, "complaint": toComplaint(*report)})
}

type statusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

func (a *App) updateReportStatusHandler(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAPIError(c, invalidPayload(err.Error()))
		return
	}
	req.Status = strings.TrimSpace(req.Status)
	req.Note = strings.TrimSpace(req.Note)
	if _, ok := statusTransitions[req.Status]; !ok {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_status", Message: "Unknown status " + req.Status})
		return
	}
	if len(req.Note) > maxStatusNoteLength {
		writeAPIError(c, invalidPayload("note is too long"))
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	current, err := a.store.GetReport(ctx, id)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	from := current.Status
	if from == "" {
		from = reportStatusPending
	}
	if !canTransition(from, req.Status) {
		writeAPIError(c, &apiError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_transition",
			Message: "Cannot move a report from " + from + " to " + req.Status,
		})
		return
	}

	updated, err := a.store.UpdateReportStatus(ctx, id, StatusChange{
		From:      from,
		To:        req.Status,
		Note:      req.Note,
		ChangedAt: a.now().UTC(),
	})
	if err != nil {
		if !errors.Is(err, errStatusConflict) && !errors.Is(err, errReportNotFound) {
			a.log.Error("status update failed", "report_id", id, "err", err)
		}
		writeAPIError(c, err)
		return
	}

	a.log.Info("report status changed", "report_id", id, "from", from, "to", req.Status)
	c.JSON(http.StatusOK, gin.H{"report": updated, "complaint": toComplaint(*updated)})
}

// complaintScope narrows the complaint set a request works on.
type complaintScope struct {
	filter   dashboard.Filter
	from, to time.Time
}

var priorityScores = map[string]int{
	dashboard.PriorityHigh:   priorityHigh,
	dashboard.PriorityMedium: priorityMedium,
	dashboard.PriorityLow:    priorityLow,
}

// storeFilters renders the equality fields and the date window as ListReports
// filter keys. The free-text search has no store form.
func (s complaintScope) storeFilters() map[string]any {
	filters := map[string]any{}
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" && value != dashboard.All {
			filters[key] = value
		}
	}
	set("status", s.filter.Status)
	set("province", s.filter.Province)
	set("district", s.filter.District)
	set("violation_type", s.filter.Category)
	if score, ok := priorityScores[s.filter.Priority]; ok {
		filters["priority"] = score
	}
	if !s.from.IsZero() {
		filters["from"] = s.from
	}
	if !s.to.IsZero() {
		filters["to"] = s.to
	}
	return filters
}

func (a *App) liveComplaints(ctx context.Context, scope complaintScope) ([]dashboard.Complaint, error) {
	reports, err := a.store.ListReports(ctx, scope.storeFilters())
	if err != nil {
		return nil, err
	}
	return scope.filter.Apply(toComplaints(reports)), nil
}

// complaints loads the dashboard data set from the configured source.
func (a *App) complaints(ctx context.Context, scope complaintScope) ([]dashboard.Complaint, error) {
	if a.cfg.DashboardSource == dashboardSourceMock {
		return dashboard.Within(scope.filter.Apply(a.mockComplaints()), scope.from, scope.to), nil
	}
	return a.liveComplaints(ctx, scope)
}

func (a *App) mockComplaints() []dashboard.Complaint {
	now := a.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return dashboard.GenerateMock(rand.New(rand.NewSource(a.mockSeed)), day)
}
