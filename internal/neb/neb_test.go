// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package neb

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f-block/archon/internal/calc"
	"github.com/f-block/archon/pkg/types"
)

func TestInterpolateBuildsBand(t *testing.T) {
	reactant := []types.Atom{
		{Symbol: "H"},
		{Symbol: "H", Z: 0.74},
	}
	product := []types.Atom{
		{Symbol: "H"},
		{Symbol: "H", Z: 1.74},
	}

	images, err := Interpolate(reactant, product, 5)
	require.NoError(t, err)
	require.Len(t, images, 5)

	// Endpoints preserved, interior evenly spaced in bond length.
	for k, img := range images {
		d := img[1].Z - img[0].Z
		want := 0.74 + 0.25*float64(k)
		assert.InDelta(t, want, math.Abs(d), 1e-6, "image %d", k)
	}
}

func TestInterpolateAlignsProduct(t *testing.T) {
	reactant := []types.Atom{
		{Symbol: "O"},
		{Symbol: "H", X: 0.96},
		{Symbol: "H", X: -0.3, Y: 0.9},
	}
	// Product is the same structure translated far away; after
	// alignment the band should be nearly stationary.
	product := make([]types.Atom, len(reactant))
	for i, a := range reactant {
		product[i] = types.Atom{Symbol: a.Symbol, X: a.X + 20, Y: a.Y - 7, Z: a.Z + 3}
	}

	images, err := Interpolate(reactant, product, 3)
	require.NoError(t, err)

	for i := range reactant {
		assert.InDelta(t, reactant[i].X, images[2][i].X, 1e-6)
		assert.InDelta(t, reactant[i].Y, images[2][i].Y, 1e-6)
	}
}

func TestInterpolateRejectsMismatchedEndpoints(t *testing.T) {
	a := []types.Atom{{Symbol: "H"}}
	b := []types.Atom{{Symbol: "He"}}
	_, err := Interpolate(a, b, 3)
	assert.Error(t, err)

	_, err = Interpolate(a, append(b, types.Atom{Symbol: "H"}), 3)
	assert.Error(t, err)
}

// wellCalc is a double-well stand-in: energy peaks when the H-H bond
// sits between the two minima.
type wellCalc struct{}

func (wellCalc) Name() string { return "well" }

func (wellCalc) SinglePoint(_ context.Context, sys calc.System) (calc.Result, error) {
	d := sys.Atoms[1].Z - sys.Atoms[0].Z
	// Minima at 0.74 and 1.74, barrier in between.
	e := math.Pow(d-0.74, 2) * math.Pow(d-1.74, 2)
	return calc.Result{Atoms: sys.Atoms, Energy: e, Converged: true}, nil
}

func (wellCalc) Optimize(ctx context.Context, sys calc.System) (calc.Result, error) {
	return wellCalc{}.SinglePoint(ctx, sys)
}

func TestEvaluateProfileAndBarriers(t *testing.T) {
	reactant := []types.Atom{{Symbol: "H"}, {Symbol: "H", Z: 0.74}}
	product := []types.Atom{{Symbol: "H"}, {Symbol: "H", Z: 1.74}}

	images, err := Interpolate(reactant, product, 9)
	require.NoError(t, err)

	profile, err := Evaluate(context.Background(), wellCalc{}, images, nil, 0, 0, 2)
	require.NoError(t, err)
	require.Len(t, profile.Energies, 9)

	// Both endpoints are minima of the well.
	assert.InDelta(t, 0, profile.Energies[0], 1e-9)
	assert.InDelta(t, 0, profile.Energies[8], 1e-9)

	ci := profile.ClimbingImage()
	assert.Equal(t, 4, ci, "barrier top sits at the midpoint")

	fwd, rev := profile.Barriers()
	assert.Greater(t, fwd, 0.0)
	assert.InDelta(t, fwd, rev, 1e-9)
}
