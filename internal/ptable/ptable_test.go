// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ptable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		symbol  string
		number  int
		wantErr bool
	}{
		{"iron", "Fe", 26, false},
		{"lowercase symbol", "fe", 26, false},
		{"uppercase symbol", "FE", 26, false},
		{"uranium", "U", 92, false},
		{"hydrogen", "H", 1, false},
		{"padded", " O ", 8, false},
		{"unknown", "Xq", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Lookup(tt.symbol)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.number, e.Number)
			assert.Greater(t, e.Mass, 0.0)
			assert.Greater(t, e.CovRadius, 0.0)
		})
	}
}

func TestSeriesMembership(t *testing.T) {
	assert.True(t, IsActinide("U"))
	assert.True(t, IsActinide("Pu"))
	assert.False(t, IsActinide("Fe"))
	assert.True(t, IsLanthanide("Gd"))
	assert.False(t, IsLanthanide("U"))
	assert.False(t, IsLanthanide("nonsense"))
}

func TestIsMetal(t *testing.T) {
	assert.True(t, IsMetal("Fe"))
	assert.True(t, IsMetal("U"))
	assert.True(t, IsMetal("Na"))
	assert.False(t, IsMetal("O"))
	assert.False(t, IsMetal("C"))
	assert.False(t, IsMetal("Xq"))
}

func TestCovalentRadiusFallback(t *testing.T) {
	assert.InDelta(t, 1.32, CovalentRadius("Fe", 1.5), 1e-9)
	assert.InDelta(t, 1.5, CovalentRadius("Xq", 1.5), 1e-9)
}
