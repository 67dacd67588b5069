package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedTablesAreComplete(t *testing.T) {
	locations, err := locationsSeed()
	require.NoError(t, err)
	require.Len(t, locations, 9)
	assert.Equal(t, []string{"Jaffna", "Kilinochchi", "Mannar", "Vavuniya", "Mullaitivu"}, locations[3].Districts)

	types, err := violationTypesSeed()
	require.NoError(t, err)
	require.Len(t, types, 9)
	counts := map[int]int{}
	for _, vt := range types {
		counts[vt.PriorityScore]++
	}
	assert.Equal(t, map[int]int{priorityHigh: 3, priorityMedium: 4, priorityLow: 2}, counts)
}

func TestLocationsSeedReturnsCopies(t *testing.T) {
	first, err := locationsSeed()
	require.NoError(t, err)
	first[0].Districts[0] = "Changed"

	second, err := locationsSeed()
	require.NoError(t, err)
	assert.Equal(t, "Colombo", second[0].Districts[0])
}

func TestValidateSeedTableRejectsBadRows(t *testing.T) {
	byName := func(v ViolationType) string { return v.Name }

	assert.Error(t, validateSeedTable([]ViolationType{}, byName))
	assert.Error(t, validateSeedTable([]ViolationType{{Name: "", PriorityScore: 1}}, byName))
	assert.Error(t, validateSeedTable([]ViolationType{{Name: "Too Slow", PriorityScore: 4}}, byName))
	assert.Error(t, validateSeedTable([]ViolationType{
		{Name: "Too Slow", PriorityScore: 3},
		{Name: "Too Slow", PriorityScore: 2},
	}, byName))

	byProvince := func(l Location) string { return l.Province }
	assert.Error(t, validateSeedTable([]Location{{Province: "Uva"}}, byProvince))
	assert.Error(t, validateSeedTable([]Location{{Province: "Uva", Districts: []string{""}}}, byProvince))
	assert.NoError(t, validateSeedTable([]Location{{Province: "Uva", Districts: []string{"Badulla"}}}, byProvince))
}
