package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocation_DistanceKm(t *testing.T) {
	berlin := Location{Lat: 52.5200, Lon: 13.4050}
	paris := Location{Lat: 48.8566, Lon: 2.3522}

	d := berlin.DistanceKm(paris)
	// Great-circle distance Berlin-Paris is roughly 878 km.
	assert.InDelta(t, 878, d, 5)

	assert.Zero(t, berlin.DistanceKm(berlin))
	assert.InDelta(t, d, paris.DistanceKm(berlin), 1e-9)
}

func TestLocation_WithinKm(t *testing.T) {
	berlin := Location{Lat: 52.5200, Lon: 13.4050}
	potsdam := Location{Lat: 52.3906, Lon: 13.0645}

	d := berlin.DistanceKm(potsdam)
	assert.True(t, berlin.WithinKm(potsdam, d+1))
	// A point exactly on the radius is inside.
	assert.True(t, berlin.WithinKm(potsdam, d))
	assert.False(t, berlin.WithinKm(potsdam, d-1))

	assert.True(t, berlin.WithinKm(berlin, 0))
}
