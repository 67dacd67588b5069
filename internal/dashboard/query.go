package dashboard

import (
	"sort"
	"strings"
)

const DefaultPageSize = 10

const (
	SortByPriority = "priority"
	SortByDate     = "date"
	SortByStatus   = "status"
)

// Filter is a conjunction of equality checks plus a free-text search.
// Empty fields and All match everything.
type Filter struct {
	Status   string `form:"status" json:"status,omitempty"`
	Priority string `form:"priority" json:"priority,omitempty"`
	Province string `form:"province" json:"province,omitempty"`
	District string `form:"district" json:"district,omitempty"`
	Category string `form:"category" json:"category,omitempty"`
	Search   string `form:"q" json:"q,omitempty"`
}

func active(value string) bool {
	return value != "" && value != All
}

// Match reports whether c satisfies every set field of f.
func (f Filter) Match(c Complaint) bool {
	if active(f.Status) && c.Status != f.Status {
		return false
	}
	if active(f.Priority) && c.Priority != f.Priority {
		return false
	}
	if active(f.Province) && c.Province != f.Province {
		return false
	}
	if active(f.District) && c.District != f.District {
		return false
	}
	if active(f.Category) && c.ViolationCategory != f.Category {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		return strings.Contains(strings.ToLower(c.ID), term) ||
			strings.Contains(strings.ToLower(c.PassengerName), term) ||
			strings.Contains(strings.ToLower(c.BusNumber), term) ||
			strings.Contains(strings.ToLower(c.ViolationCategory), term)
	}
	return true
}

// Apply returns the complaints matching f, in input order. The input is not modified.
func (f Filter) Apply(complaints []Complaint) []Complaint {
	out := make([]Complaint, 0, len(complaints))
	for _, c := range complaints {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// NormalizeSort maps an unknown or empty sort mode to priority.
func NormalizeSort(mode string) string {
	switch mode {
	case SortByDate, SortByStatus:
		return mode
	default:
		return SortByPriority
	}
}

// Sort orders complaints in place. Ties always fall back to newest first.
func Sort(complaints []Complaint, mode string) {
	mode = NormalizeSort(mode)
	sort.SliceStable(complaints, func(i, j int) bool {
		a, b := complaints[i], complaints[j]
		switch mode {
		case SortByPriority:
			if d := bucket(priorityOrder, a.Priority) - bucket(priorityOrder, b.Priority); d != 0 {
				return d < 0
			}
		case SortByStatus:
			if d := bucket(statusOrder, a.Status) - bucket(statusOrder, b.Status); d != 0 {
				return d < 0
			}
		}
		return a.SubmittedAt.After(b.SubmittedAt)
	})
}

type Page struct {
	Items       []Complaint `json:"items"`
	TotalCount  int         `json:"totalCount"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	PageSize    int         `json:"pageSize"`
	From        int         `json:"from"`
	To          int         `json:"to"`
}

// Paginate slices complaints into page (1-based). The page is clamped into range.
func Paginate(complaints []Complaint, page, pageSize int) Page {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	total := len(complaints)
	totalPages := (total + pageSize - 1) / pageSize
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	result := Page{
		Items:       []Complaint{},
		TotalCount:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    pageSize,
	}
	if total == 0 {
		return result
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	result.Items = append(result.Items, complaints[start:end]...)
	result.From = start + 1
	result.To = end
	return result
}

// Query bundles the table controls of the complaints view.
type Query struct {
	Filter
	Sort     string `form:"sort" json:"sort,omitempty"`
	Page     int    `form:"page" json:"page,omitempty"`
	PageSize int    `form:"pageSize" json:"pageSize,omitempty"`
}

// Run filters, sorts and paginates complaints.
func (q Query) Run(complaints []Complaint) Page {
	rows := q.Filter.Apply(complaints)
	Sort(rows, q.Sort)
	return Paginate(rows, q.Page, q.PageSize)
}
