// Package dashboard computes the admin views over a set of complaints:
// summary counts, per-province and per-category breakdowns, a monthly trend,
// and the filtered, sorted and paginated table projections.
package dashboard

import "time"

const (
	StatusPending  = "Pending"
	StatusInReview = "In Review"
	StatusResolved = "Resolved"
	StatusRejected = "Rejected"

	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"

	// All disables a filter field, matching the dashboard select boxes.
	All = "All"
)

var (
	Statuses   = []string{StatusPending, StatusInReview, StatusResolved, StatusRejected}
	Priorities = []string{PriorityHigh, PriorityMedium, PriorityLow}
	Provinces  = []string{
		"Western",
		"Central",
		"Southern",
		"Northern",
		"Eastern",
		"North Western",
		"North Central",
		"Uva",
		"Sabaragamuwa",
	}
	Categories = []string{
		"Reckless driving",
		"Harassment",
		"Overloading",
		"Overcharging",
		"Not issuing tickets",
		"Not giving correct change",
		"Skipping stops",
		"Rude behavior",
		"Loud music",
	}
	CategoryPriority = map[string]string{
		"Reckless driving":          PriorityHigh,
		"Harassment":                PriorityHigh,
		"Overloading":               PriorityMedium,
		"Overcharging":              PriorityMedium,
		"Not issuing tickets":       PriorityMedium,
		"Not giving correct change": PriorityLow,
		"Skipping stops":            PriorityLow,
		"Rude behavior":             PriorityLow,
		"Loud music":                PriorityLow,
	}

	priorityOrder = map[string]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}
	statusOrder   = map[string]int{StatusPending: 0, StatusInReview: 1, StatusResolved: 2, StatusRejected: 3}
)

type GPSLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Complaint is the dashboard projection of a violation report.
type Complaint struct {
	ID                string       `json:"id"`
	PassengerName     string       `json:"passengerName"`
	BusNumber         string       `json:"busNumber"`
	RouteNumber       string       `json:"routeNumber,omitempty"`
	ViolationCategory string       `json:"violationCategory"`
	Priority          string       `json:"priority"`
	Status            string       `json:"status"`
	Province          string       `json:"province"`
	District          string       `json:"district,omitempty"`
	Description       string       `json:"description,omitempty"`
	EvidenceURLs      []string     `json:"evidenceUrls,omitempty"`
	GPSLocation       *GPSLocation `json:"gpsLocation,omitempty"`
	SubmittedAt       time.Time    `json:"submittedAt"`
	UpdatedAt         *time.Time   `json:"updatedAt,omitempty"`
}

// PriorityLabel maps a catalog priority score to its dashboard label.
// Scores outside 1..3 are treated as Low.
func PriorityLabel(score int) string {
	switch score {
	case 1:
		return PriorityHigh
	case 2:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func bucket(order map[string]int, key string) int {
	if v, ok := order[key]; ok {
		return v
	}
	return len(order)
}
