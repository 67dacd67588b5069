package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	RangeLast7  = "last7"
	RangeLast30 = "last30"
	RangeLast90 = "last90"
	RangeAll    = "all"
)

var rangeDays = map[string]int{RangeLast7: 7, RangeLast30: 30, RangeLast90: 90}

var ErrInvalidWindow = errors.New("invalid date window")

// Window limits complaints to a submission period, either as a named range
// relative to now or as explicit from/to dates. The two forms are exclusive.
type Window struct {
	Range string `form:"range" json:"range,omitempty"`
	From  string `form:"from" json:"from,omitempty"`
	To    string `form:"to" json:"to,omitempty"`
}

// Bounds resolves w against now. A zero time means that side is open.
// Dates without a time cover the whole day in UTC.
func (w Window) Bounds(now time.Time) (from, to time.Time, err error) {
	rng := strings.ToLower(strings.TrimSpace(w.Range))
	rawFrom, rawTo := strings.TrimSpace(w.From), strings.TrimSpace(w.To)

	if rng != "" && rng != RangeAll {
		days, ok := rangeDays[rng]
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: range must be last7, last30, last90 or all", ErrInvalidWindow)
		}
		if rawFrom != "" || rawTo != "" {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: range cannot be combined with from or to", ErrInvalidWindow)
		}
		return now.AddDate(0, 0, -days), time.Time{}, nil
	}

	if rawFrom != "" {
		if from, err = parseWindowTime(rawFrom, false); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if rawTo != "" {
		if to, err = parseWindowTime(rawTo, true); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from is after to", ErrInvalidWindow)
	}
	return from, to, nil
}

func parseWindowTime(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a date (2006-01-02) or RFC 3339 time", ErrInvalidWindow, raw)
	}
	if endOfDay {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return day, nil
}

// Within returns the complaints submitted in [from, to]. Zero bounds are open.
func Within(complaints []Complaint, from, to time.Time) []Complaint {
	if from.IsZero() && to.IsZero() {
		return complaints
	}
	out := make([]Complaint, 0, len(complaints))
	for _, c := range complaints {
		if !from.IsZero() && c.SubmittedAt.Before(from) {
			continue
		}
		if !to.IsZero() && c.SubmittedAt.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out
}
