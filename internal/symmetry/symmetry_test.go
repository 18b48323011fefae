// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package symmetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f-block/archon/internal/geometry"
	"github.com/f-block/archon/pkg/types"
)

func mustLigand(t *testing.T, name string) types.Ligand {
	t.Helper()
	l, err := types.BuiltinLigand(name)
	require.NoError(t, err)
	return l
}

func octahedral(t *testing.T) geometry.Core {
	t.Helper()
	c, err := geometry.ByName("octahedral")
	require.NoError(t, err)
	return c
}

func TestEnumerateFillsToCoordinationNumber(t *testing.T) {
	req := types.ComplexRequest{
		Metal:          "Fe",
		OxidationState: 2,
		Ligands:        []types.Ligand{mustLigand(t, "oxo")},
	}

	ligs, asgs, err := Enumerate(req, octahedral(t), types.Parameters{})
	require.NoError(t, err)
	require.Len(t, ligs, 6)
	assert.Equal(t, "oxo", ligs[0].Name)
	for _, l := range ligs[1:] {
		assert.Equal(t, "aqua", l.Name)
	}
	require.NotEmpty(t, asgs)
	for _, a := range asgs {
		require.Len(t, a.Sites, 6)
		seen := map[int]bool{}
		for _, sites := range a.Sites {
			require.Len(t, sites, 1)
			assert.False(t, seen[sites[0]], "site %d assigned twice", sites[0])
			seen[sites[0]] = true
		}
	}
}

func TestEnumerateForceTransOxos(t *testing.T) {
	oxo := mustLigand(t, "oxo")
	req := types.ComplexRequest{
		Metal:          "U",
		OxidationState: 6,
		Ligands:        []types.Ligand{oxo, oxo},
		Parameters:     types.Parameters{ForceTransOxos: true},
	}

	_, asgs, err := Enumerate(req, octahedral(t), req.Parameters)
	require.NoError(t, err)
	require.NotEmpty(t, asgs)
	for _, a := range asgs {
		assert.Equal(t, []int{0}, a.Sites[0])
		assert.Equal(t, []int{1}, a.Sites[1])
	}
}

func TestEnumerateFreeOxosPreferTrans(t *testing.T) {
	oxo := mustLigand(t, "oxo")
	req := types.ComplexRequest{
		Metal:          "U",
		OxidationState: 6,
		Ligands:        []types.Ligand{oxo, oxo},
	}

	core := octahedral(t)
	_, asgs, err := Enumerate(req, core, types.Parameters{})
	require.NoError(t, err)
	// Rounded-score dedup collapses the placements to trans and cis.
	require.Len(t, asgs, 2)
	assert.Less(t, asgs[0].Score, asgs[1].Score)

	// The lowest-scoring arrangement is the trans one.
	best := asgs[0]
	assert.InDelta(t, 180.0, core.Angle(best.Sites[0][0], best.Sites[1][0]), 1e-6)
}

func TestEnumerateFacMerIsomers(t *testing.T) {
	am := mustLigand(t, "ammine")
	cl := mustLigand(t, "chloro")
	req := types.ComplexRequest{
		Metal:          "Co",
		OxidationState: 3,
		Ligands:        []types.Ligand{am, am, am, cl, cl, cl},
	}

	_, asgs, err := Enumerate(req, octahedral(t), types.Parameters{})
	require.NoError(t, err)
	// fac and mer collapse to two distinct scores.
	assert.Len(t, asgs, 2)

	_, truncated, err := Enumerate(req, octahedral(t), types.Parameters{NSymmetries: 1})
	require.NoError(t, err)
	assert.Len(t, truncated, 1)
}

func TestEnumerateBidentateOnCisPair(t *testing.T) {
	en := mustLigand(t, "en")
	req := types.ComplexRequest{
		Metal:          "Ni",
		OxidationState: 2,
		Ligands:        []types.Ligand{en},
	}

	core := octahedral(t)
	_, asgs, err := Enumerate(req, core, types.Parameters{})
	require.NoError(t, err)
	require.NotEmpty(t, asgs)
	for _, a := range asgs {
		require.Len(t, a.Sites[0], 2)
		assert.InDelta(t, 90.0, core.Angle(a.Sites[0][0], a.Sites[0][1]), 1e-6)
	}
}

func TestEnumerateForcedSites(t *testing.T) {
	cl := mustLigand(t, "chloro")
	cl.ForcedSites = []int{4}
	req := types.ComplexRequest{
		Metal:          "Fe",
		OxidationState: 3,
		Ligands:        []types.Ligand{cl},
	}

	_, asgs, err := Enumerate(req, octahedral(t), types.Parameters{})
	require.NoError(t, err)
	require.NotEmpty(t, asgs)
	for _, a := range asgs {
		assert.Equal(t, []int{4}, a.Sites[0])
	}
}

func TestEnumerateOverCoordinated(t *testing.T) {
	am := mustLigand(t, "ammine")
	ligs := make([]types.Ligand, 5)
	for i := range ligs {
		ligs[i] = am
	}
	req := types.ComplexRequest{Metal: "Zn", OxidationState: 2, Ligands: ligs}

	core, err := geometry.ByName("tetrahedral")
	require.NoError(t, err)

	_, _, err = Enumerate(req, core, types.Parameters{})
	var oc *OverCoordinationError
	require.ErrorAs(t, err, &oc)
	assert.Equal(t, 4, oc.CN)
	assert.Equal(t, 5, oc.Donors)
}

func TestEnumerateUnmappableLigand(t *testing.T) {
	en := mustLigand(t, "en")
	req := types.ComplexRequest{Metal: "Ag", OxidationState: 1, Ligands: []types.Ligand{en}}

	core, err := geometry.ByName("linear")
	require.NoError(t, err)

	_, _, err = Enumerate(req, core, types.Parameters{})
	var um *UnmappableError
	require.ErrorAs(t, err, &um)
	assert.Equal(t, "en", um.Ligand)
}

func TestGroupRepeatsRejectsOverlaps(t *testing.T) {
	perLig := [][]int{{0}, {1}, {2}}
	s := groupRepeats([]int{0, 1}, perLig)
	// C(3,2) = 3 pairwise combinations, none overlapping.
	assert.Len(t, s.options, 3)
	for _, opt := range s.options {
		assert.False(t, hasDuplicates(opt))
	}

	overlapping := [][]int{{0, 1}, {1, 2}}
	s = groupRepeats([]int{0, 1}, overlapping)
	assert.Empty(t, s.options, "overlapping site sets must be rejected")
}

func TestPlacementScoreDeduplicates(t *testing.T) {
	// All-aqua homoleptic complex: every placement is equivalent, so
	// exactly one assignment survives score dedup.
	req := types.ComplexRequest{Metal: "Mg", OxidationState: 2}
	_, asgs, err := Enumerate(req, octahedral(t), types.Parameters{})
	require.NoError(t, err)
	assert.Len(t, asgs, 1)
}

func TestEnumerateErrorTypes(t *testing.T) {
	err := error(&UnmappableError{Ligand: "x", Core: "linear"})
	assert.Contains(t, err.Error(), "cannot be mapped")

	var target *UnmappableError
	assert.True(t, errors.As(err, &target))
}
