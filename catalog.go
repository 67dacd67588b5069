package main

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	locationsCacheKey      = "locations"
	violationTypesCacheKey = "violation_types"
)

var (
	labelledCoordinatesPattern = regexp.MustCompile(`(?i)lat(?:itude)?\s*[:=]?\s*(-?\d+(?:\.\d+)?)\s*,?\s*(?:lon|lng|long|longitude)\s*[:=]?\s*(-?\d+(?:\.\d+)?)`)
	bareCoordinatesPattern     = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*$`)
)

// catalogResolver serves the Locations and ViolationTypes catalogs from a TTL
// cache in front of the store. Empty results are not cached so a later seed
// is picked up immediately.
type catalogResolver struct {
	store Store
	cache *cache.Cache
}

func newCatalogResolver(store Store, ttl time.Duration) *catalogResolver {
	return &catalogResolver{store: store, cache: cache.New(ttl, 2*ttl)}
}

func (r *catalogResolver) locations(ctx context.Context) ([]Location, error) {
	if cached, ok := r.cache.Get(locationsCacheKey); ok {
		return cached.([]Location), nil
	}
	rows, err := r.store.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		r.cache.SetDefault(locationsCacheKey, rows)
	}
	return rows, nil
}

func (r *catalogResolver) violationTypes(ctx context.Context) ([]ViolationType, error) {
	if cached, ok := r.cache.Get(violationTypesCacheKey); ok {
		return cached.([]ViolationType), nil
	}
	rows, err := r.store.ListViolationTypes(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		r.cache.SetDefault(violationTypesCacheKey, rows)
	}
	return rows, nil
}

func (r *catalogResolver) invalidate(key string) {
	r.cache.Delete(key)
}

type reportClassification struct {
	Priority int
	Province string
	District string
}

// classifyReport derives priority, province and district from the catalogs.
// The form's Province and District are only hints; values outside the
// catalogs are never returned.
func classifyReport(form ReportForm, locations []Location, types []ViolationType) reportClassification {
	result := reportClassification{Priority: priorityLow}

	violation := strings.TrimSpace(form.ViolationType)
	for _, vt := range types {
		if strings.EqualFold(vt.Name, violation) {
			result.Priority = vt.PriorityScore
			break
		}
	}

	if district, owner, ok := findDistrict(locations, form.District); ok {
		result.District, result.Province = district, owner
	} else if district, owner, ok := districtInText(locations, form.CurrentLocation); ok {
		result.District, result.Province = district, owner
	}
	if result.Province != "" {
		return result
	}

	if province, ok := findProvince(locations, form.Province); ok {
		result.Province = province
	} else if province, ok := provinceInText(locations, form.CurrentLocation); ok {
		result.Province = province
	}
	return result
}

func findDistrict(locations []Location, name string) (string, string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", false
	}
	for _, loc := range locations {
		for _, district := range loc.Districts {
			if strings.EqualFold(district, name) {
				return district, loc.Province, true
			}
		}
	}
	return "", "", false
}

func findProvince(locations []Location, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	for _, loc := range locations {
		if strings.EqualFold(loc.Province, name) {
			return loc.Province, true
		}
	}
	return "", false
}

// districtInText returns the first district, in catalog order, named in text.
func districtInText(locations []Location, text string) (string, string, bool) {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return "", "", false
	}
	for _, loc := range locations {
		for _, district := range loc.Districts {
			if containsWord(lower, strings.ToLower(district)) {
				return district, loc.Province, true
			}
		}
	}
	return "", "", false
}

// provinceInText tries longer province names first so "North Western" wins
// over "Western".
func provinceInText(locations []Location, text string) (string, bool) {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return "", false
	}
	names := make([]string, 0, len(locations))
	for _, loc := range locations {
		names = append(names, loc.Province)
	}
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	for _, name := range names {
		if containsWord(lower, strings.ToLower(name)) {
			return name, true
		}
	}
	return "", false
}

// containsWord reports whether word occurs in text bounded by non-letters.
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], word)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(word)
		if (start == 0 || !isLetter(text[start-1])) && (end == len(text) || !isLetter(text[end])) {
			return true
		}
		offset = start + 1
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func districtsOf(locations []Location, province string) ([]string, bool) {
	for _, loc := range locations {
		if strings.EqualFold(loc.Province, strings.TrimSpace(province)) {
			return loc.Districts, true
		}
	}
	return nil, false
}

// parseCoordinates extracts a latitude/longitude pair from a location string
// such as "Lat: 6.9, Lon: 79.8" or "6.9,79.8".
func parseCoordinates(s string) (float64, float64, bool) {
	match := labelledCoordinatesPattern.FindStringSubmatch(s)
	if match == nil {
		match = bareCoordinatesPattern.FindStringSubmatch(s)
	}
	if match == nil {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return 0, 0, false
	}
	if !validCoordinates(lat, lon) {
		return 0, 0, false
	}
	return lat, lon, true
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
