package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Location struct {
	ID        string   `json:"id" bson:"_id,omitempty"`
	Province  string   `json:"province" bson:"Province" validate:"required"`
	Districts []string `json:"districts" bson:"Districts" validate:"required,min=1,dive,required"`
}

type ViolationType struct {
	ID            string `json:"id" bson:"_id,omitempty"`
	Name          string `json:"name" bson:"Name" validate:"required"`
	PriorityScore int    `json:"priorityScore" bson:"PriorityScore" validate:"min=1,max=3"`
}

type StatusChange struct {
	From      string    `json:"from" bson:"From"`
	To        string    `json:"to" bson:"To"`
	Note      string    `json:"note,omitempty" bson:"Note,omitempty"`
	ChangedAt time.Time `json:"changedAt" bson:"ChangedAt"`
}

// ViolationReport is one passenger submission. Field names in bson match the
// documents written by earlier deployments of the intake API.
type ViolationReport struct {
	ID                 string         `json:"id" bson:"_id,omitempty"`
	PassengerName      string         `json:"passengerName" bson:"PassengerName"`
	VehicleNumber      string         `json:"vehicleNumber" bson:"VehicleNumber"`
	RouteNumber        string         `json:"routeNumber" bson:"RouteNumber"`
	ViolationType      string         `json:"violationType" bson:"ViolationType"`
	OtherDescription   *string        `json:"otherDescription,omitempty" bson:"OtherDescription,omitempty"`
	CurrentLocation    string         `json:"currentLocation" bson:"CurrentLocation"`
	EvidenceImagePaths []string       `json:"evidenceImagePaths" bson:"EvidenceImagePaths"`
	ReportedDate       time.Time      `json:"reportedDate" bson:"ReportedDate"`
	Priority           int            `json:"priority" bson:"Priority"`
	Province           string         `json:"province" bson:"Province"`
	District           string         `json:"district" bson:"District"`
	Status             string         `json:"status" bson:"Status"`
	UpdatedAt          *time.Time     `json:"updatedAt,omitempty" bson:"UpdatedAt,omitempty"`
	StatusHistory      []StatusChange `json:"statusHistory" bson:"StatusHistory"`
}

// ReportForm is the multipart body of POST /api/report.
type ReportForm struct {
	PassengerName    string `form:"PassengerName" binding:"required"`
	VehicleNumber    string `form:"VehicleNumber" binding:"required"`
	RouteNumber      string `form:"RouteNumber" binding:"required"`
	ViolationType    string `form:"ViolationType" binding:"required"`
	OtherDescription string `form:"OtherDescription"`
	CurrentLocation  string `form:"CurrentLocation" binding:"required"`
	Priority         *int   `form:"Priority"`
	Province         string `form:"Province"`
	District         string `form:"District"`
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

var (
	errAlreadySeeded  = errors.New("collection already seeded")
	errReportNotFound = errors.New("report not found")
	errStatusConflict = errors.New("report status changed concurrently")
)

func writeAPIError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Code, "message": apiErr.Message})
		return
	}
	if errors.Is(err, errReportNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Report not found"})
		return
	}
	if errors.Is(err, errStatusConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "status_conflict", "message": "Report status was changed by another request"})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
}
