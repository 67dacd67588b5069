package main

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	priorityHigh   = 1
	priorityMedium = 2
	priorityLow    = 3
)

var (
	defaultLocations = []Location{
		{Province: "Western", Districts: []string{"Colombo", "Gampaha", "Kalutara"}},
		{Province: "Central", Districts: []string{"Kandy", "Matale", "Nuwara Eliya"}},
		{Province: "Southern", Districts: []string{"Galle", "Matara", "Hambantota"}},
		{Province: "Northern", Districts: []string{"Jaffna", "Kilinochchi", "Mannar", "Vavuniya", "Mullaitivu"}},
		{Province: "Eastern", Districts: []string{"Batticaloa", "Ampara", "Trincomalee"}},
		{Province: "North Western", Districts: []string{"Kurunegala", "Puttalam"}},
		{Province: "North Central", Districts: []string{"Anuradhapura", "Polonnaruwa"}},
		{Province: "Uva", Districts: []string{"Badulla", "Monaragala"}},
		{Province: "Sabaragamuwa", Districts: []string{"Ratnapura", "Kegalle"}},
	}
	defaultViolationTypes = []ViolationType{
		{Name: "Drunk Driver", PriorityScore: priorityHigh},
		{Name: "Drunk Conductor", PriorityScore: priorityHigh},
		{Name: "Unsafe Driving", PriorityScore: priorityHigh},
		{Name: "No Ticket Issued", PriorityScore: priorityMedium},
		{Name: "Over Speeding", PriorityScore: priorityMedium},
		{Name: "Overloading", PriorityScore: priorityMedium},
		{Name: "Use Phone While Driving", PriorityScore: priorityMedium},
		{Name: "Excessive Fare", PriorityScore: priorityLow},
		{Name: "Too Slow", PriorityScore: priorityLow},
	}

	seedValidator = validator.New(validator.WithRequiredStructEnabled())
)

// validateSeedTable checks every row and the uniqueness of key across rows.
func validateSeedTable[T any](rows []T, key func(T) string) error {
	if len(rows) == 0 {
		return fmt.Errorf("seed table is empty")
	}
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		if err := seedValidator.Struct(row); err != nil {
			return fmt.Errorf("seed row %d: %w", i, err)
		}
		k := key(row)
		if _, dup := seen[k]; dup {
			return fmt.Errorf("seed row %d: duplicate key %q", i, k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

func locationsSeed() ([]Location, error) {
	rows := make([]Location, len(defaultLocations))
	for i, loc := range defaultLocations {
		rows[i] = Location{Province: loc.Province, Districts: append([]string(nil), loc.Districts...)}
	}
	if err := validateSeedTable(rows, func(l Location) string { return l.Province }); err != nil {
		return nil, err
	}
	return rows, nil
}

func violationTypesSeed() ([]ViolationType, error) {
	rows := append([]ViolationType(nil), defaultViolationTypes...)
	if err := validateSeedTable(rows, func(v ViolationType) string { return v.Name }); err != nil {
		return nil, err
	}
	return rows, nil
}
