package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRegion(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases and trims", input: "  Porto  ", want: "porto"},
		{name: "strips diacritics", input: "Évora", want: "evora"},
		{name: "strips diacritics in compound names", input: "São Sebastião", want: "sao sebastiao"},
		{name: "collapses punctuation", input: "Lisboa / Centro!", want: "lisboa centro"},
		{name: "keeps commas and hyphens", input: "Vila Real, Trás-os-Montes", want: "vila real, tras-os-montes"},
		{name: "empty input", input: "   ", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeRegion(tc.input))
		})
	}
}

func TestLookupGazetteer(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		coords, ok := LookupGazetteer("lisboa")
		require.True(t, ok)
		assert.InDelta(t, 38.7223, coords.Lat, 0.0001)
		assert.InDelta(t, -9.1393, coords.Lng, 0.0001)
	})

	t.Run("comma segment match", func(t *testing.T) {
		coords, ok := LookupGazetteer(NormalizeRegion("Campanhã, Porto"))
		require.True(t, ok)
		assert.InDelta(t, 41.1579, coords.Lat, 0.0001)
	})

	t.Run("token n-gram match", func(t *testing.T) {
		coords, ok := LookupGazetteer(NormalizeRegion("Distrito de Castelo Branco Portugal"))
		require.True(t, ok)
		assert.InDelta(t, 39.8222, coords.Lat, 0.0001)
	})

	t.Run("hyphenated text splits into tokens", func(t *testing.T) {
		_, ok := LookupGazetteer(NormalizeRegion("porto-gaia"))
		require.True(t, ok)
	})

	t.Run("unknown region", func(t *testing.T) {
		_, ok := LookupGazetteer("atlantis")
		assert.False(t, ok)
	})

	t.Run("empty input", func(t *testing.T) {
		_, ok := LookupGazetteer("")
		assert.False(t, ok)
	})
}

func TestParseCoordinates(t *testing.T) {
	t.Run("valid pair", func(t *testing.T) {
		coords, ok := ParseCoordinates("38.7223, -9.1393")
		require.True(t, ok)
		assert.InDelta(t, 38.7223, coords.Lat, 0.0001)
		assert.InDelta(t, -9.1393, coords.Lng, 0.0001)
	})

	t.Run("semicolon separator", func(t *testing.T) {
		_, ok := ParseCoordinates("41.15; -8.62")
		assert.True(t, ok)
	})

	t.Run("out of range latitude", func(t *testing.T) {
		_, ok := ParseCoordinates("91.0,0.0")
		assert.False(t, ok)
	})

	t.Run("free text is not a pair", func(t *testing.T) {
		_, ok := ParseCoordinates("porto")
		assert.False(t, ok)
	})
}

func TestHaversineKm(t *testing.T) {
	lisbon := Coordinates{Lat: 38.7223, Lng: -9.1393}
	porto := Coordinates{Lat: 41.1579, Lng: -8.6291}

	distance := HaversineKm(lisbon, porto)
	assert.InDelta(t, 274, distance, 5)

	assert.Zero(t, HaversineKm(lisbon, lisbon))
}
