package cpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"G06N", "Computing Arrangements Based on Specific Computational Models"},
		{"H01L33/00", "Semiconductor Devices; Electric Solid-State Devices"},
		{"G06", "Computing; Calculating; Counting"},
		{"G", "Physics"},
		{"  Y02E 10/50  ", "Reduction of GHG Emissions — Energy Generation/Transmission/Distribution"},
		// Unknown subclass falls back to its class, unknown class to its section.
		{"G06Z", "Computing; Calculating; Counting"},
		{"G99X", "Physics"},
		{"Z01A", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(tt.code), "Describe(%q)", tt.code)
	}
}

func TestDescribeAll(t *testing.T) {
	got := DescribeAll([]string{"G06N", "H01L", "G06N", "Z01A"})

	assert.Len(t, got, 3)
	assert.Equal(t, "Computing Arrangements Based on Specific Computational Models", got["G06N"])
	assert.Equal(t, "Semiconductor Devices; Electric Solid-State Devices", got["H01L"])
	assert.Equal(t, "", got["Z01A"], "unknown codes stay in the map with an empty description")
}
