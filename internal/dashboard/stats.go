package dashboard

import (
	"sort"
	"time"
)

type Stats struct {
	TotalComplaints    int `json:"totalComplaints"`
	PendingComplaints  int `json:"pendingComplaints"`
	InReviewComplaints int `json:"inReviewComplaints"`
	ResolvedComplaints int `json:"resolvedComplaints"`
	RejectedComplaints int `json:"rejectedComplaints"`
	HighPriority       int `json:"highPriority"`
	MediumPriority     int `json:"mediumPriority"`
	LowPriority        int `json:"lowPriority"`
}

func ComputeStats(complaints []Complaint) Stats {
	stats := Stats{TotalComplaints: len(complaints)}
	for _, c := range complaints {
		switch c.Status {
		case StatusPending:
			stats.PendingComplaints++
		case StatusInReview:
			stats.InReviewComplaints++
		case StatusResolved:
			stats.ResolvedComplaints++
		case StatusRejected:
			stats.RejectedComplaints++
		}
		switch c.Priority {
		case PriorityHigh:
			stats.HighPriority++
		case PriorityMedium:
			stats.MediumPriority++
		case PriorityLow:
			stats.LowPriority++
		}
	}
	return stats
}

type StatusCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	InReview int `json:"inReview"`
	Resolved int `json:"resolved"`
	Rejected int `json:"rejected"`
}

func (s *StatusCounts) add(status string) {
	s.Total++
	switch status {
	case StatusPending:
		s.Pending++
	case StatusInReview:
		s.InReview++
	case StatusResolved:
		s.Resolved++
	case StatusRejected:
		s.Rejected++
	}
}

type ProvinceStat struct {
	Province string `json:"province"`
	StatusCounts
}

// ComputeProvinceStats returns one row per known province, in display order.
func ComputeProvinceStats(complaints []Complaint) []ProvinceStat {
	index := make(map[string]int, len(Provinces))
	rows := make([]ProvinceStat, len(Provinces))
	for i, province := range Provinces {
		rows[i].Province = province
		index[province] = i
	}
	for _, c := range complaints {
		if i, ok := index[c.Province]; ok {
			rows[i].add(c.Status)
		}
	}
	return rows
}

type CategoryCount struct {
	Name     string `json:"name"`
	Priority string `json:"priority"`
	Count    int    `json:"count"`
}

// ComputeCategoryBreakdown counts complaints per violation category against
// the default dashboard category list.
func ComputeCategoryBreakdown(complaints []Complaint) []CategoryCount {
	return ComputeCategoryBreakdownFor(complaints, Categories, CategoryPriority)
}

// ComputeCategoryBreakdownFor counts complaints per category. Known categories
// come first in the given order, unknown ones follow alphabetically and take
// the priority of the first complaint seen with them.
func ComputeCategoryBreakdownFor(complaints []Complaint, categories []string, priorities map[string]string) []CategoryCount {
	counts := map[string]int{}
	observed := map[string]string{}
	for _, c := range complaints {
		counts[c.ViolationCategory]++
		if _, ok := observed[c.ViolationCategory]; !ok && c.Priority != "" {
			observed[c.ViolationCategory] = c.Priority
		}
	}

	rows := make([]CategoryCount, 0, len(categories)+len(counts))
	seen := make(map[string]struct{}, len(categories))
	for _, name := range categories {
		rows = append(rows, CategoryCount{Name: name, Priority: labelOr(priorities[name], PriorityLow), Count: counts[name]})
		seen[name] = struct{}{}
	}

	extra := make([]string, 0)
	for name := range counts {
		if _, ok := seen[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		rows = append(rows, CategoryCount{Name: name, Priority: labelOr(observed[name], PriorityLow), Count: counts[name]})
	}
	return rows
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}

type TrendPoint struct {
	Month      string `json:"month"`
	Year       int    `json:"year"`
	Complaints int    `json:"complaints"`
	Resolved   int    `json:"resolved"`
}

// ComputeMonthlyTrend buckets complaints into the last months calendar months
// ending with the month of now. Resolved complaints are counted in the month
// they were last updated, or submitted when no update time is known.
func ComputeMonthlyTrend(complaints []Complaint, months int, now time.Time) []TrendPoint {
	if months < 1 {
		months = 1
	}
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	points := make([]TrendPoint, months)
	for i := range points {
		m := first.AddDate(0, i, 0)
		points[i] = TrendPoint{Month: m.Format("Jan"), Year: m.Year()}
	}

	slot := func(t time.Time) int {
		t = t.UTC()
		idx := (t.Year()-first.Year())*12 + int(t.Month()) - int(first.Month())
		if idx < 0 || idx >= months {
			return -1
		}
		return idx
	}

	for _, c := range complaints {
		if i := slot(c.SubmittedAt); i >= 0 {
			points[i].Complaints++
		}
		if c.Status != StatusResolved {
			continue
		}
		resolvedAt := c.SubmittedAt
		if c.UpdatedAt != nil {
			resolvedAt = *c.UpdatedAt
		}
		if i := slot(resolvedAt); i >= 0 {
			points[i].Resolved++
		}
	}
	return points
}

// Recent returns the n newest complaints.
func Recent(complaints []Complaint, n int) []Complaint {
	rows := append([]Complaint(nil), complaints...)
	Sort(rows, SortByDate)
	if n >= 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

type MapStats struct {
	Total    int `json:"total"`
	Shown    int `json:"shown"`
	Pending  int `json:"pending"`
	InReview int `json:"inReview"`
	Resolved int `json:"resolved"`
	Rejected int `json:"rejected"`
}

type MapView struct {
	Complaints []Complaint `json:"complaints"`
	Stats      MapStats    `json:"stats"`
}

// BuildMapView keeps the complaints that carry GPS coordinates and match the
// status, priority and province fields of f.
func BuildMapView(complaints []Complaint, f Filter) MapView {
	mapFilter := Filter{Status: f.Status, Priority: f.Priority, Province: f.Province}
	view := MapView{Complaints: []Complaint{}}
	var shown StatusCounts
	for _, c := range complaints {
		if c.GPSLocation == nil {
			continue
		}
		view.Stats.Total++
		if !mapFilter.Match(c) {
			continue
		}
		view.Complaints = append(view.Complaints, c)
		shown.add(c.Status)
	}
	view.Stats.Shown = shown.Total
	view.Stats.Pending = shown.Pending
	view.Stats.InReview = shown.InReview
	view.Stats.Resolved = shown.Resolved
	view.Stats.Rejected = shown.Rejected
	return view
}
