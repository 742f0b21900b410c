package spatial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeKnownCells(t *testing.T) {
	// Classic reference vector.
	require.Equal(t, "ezs42", Encode(42.605, -5.603, 5))
	require.Equal(t, "u4pruydqqvj", Encode(57.64911, 10.40744, 11))
}

func TestEncodeRoundTripStability(t *testing.T) {
	cases := []struct {
		lat, lon float64
	}{
		{0, 0},
		{42.605, -5.603},
		{57.64911, 10.40744},
		{-33.8688, 151.2093},
		{89.999, 179.999},
		{-89.999, -179.999},
		{31.2304, 121.4737},
	}
	for _, tc := range cases {
		for precision := 1; precision <= 12; precision++ {
			cell := Encode(tc.lat, tc.lon, precision)
			require.Len(t, cell, precision)

			centerLat, centerLon := DecodeCenter(cell)
			require.Equal(t, cell, Encode(centerLat, centerLon, precision),
				"re-encoding the decoded center must return the same cell")
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	a := Encode(39.9042, 116.4074, 5)
	b := Encode(39.9042, 116.4074, 5)
	require.Equal(t, a, b)
}

func TestEncodeClampsPrecision(t *testing.T) {
	require.Len(t, Encode(10, 10, 0), 1)
	require.Len(t, Encode(10, 10, 99), 12)
}

func TestBoundsContainCenter(t *testing.T) {
	cell := Encode(42.605, -5.603, 6)
	minLat, minLon, maxLat, maxLon := Bounds(cell)
	lat, lon := DecodeCenter(cell)
	require.GreaterOrEqual(t, lat, minLat)
	require.LessOrEqual(t, lat, maxLat)
	require.GreaterOrEqual(t, lon, minLon)
	require.LessOrEqual(t, lon, maxLon)
}

func TestHaversine(t *testing.T) {
	// One degree of latitude is about 111 km.
	d := Haversine(0, 0, 1, 0)
	require.InDelta(t, 111195, d, 200)

	require.Zero(t, Haversine(42.6, -5.6, 42.6, -5.6))
}
