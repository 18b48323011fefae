// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble builds Cartesian candidate structures from site
// assignments: the metal sits at the origin and ligand templates are
// rigidly mapped onto their assigned core sites at covalent-radius
// distances.
package assemble

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/f-block/archon/internal/geometry"
	"github.com/f-block/archon/internal/ptable"
	"github.com/f-block/archon/internal/symmetry"
	"github.com/f-block/archon/pkg/types"
)

// Build constructs one candidate conformer from an assignment. The metal
// is atom 0; ligand atoms follow in ligand order. The imposed bond graph
// covers metal-donor bonds and each ligand's internal bonds.
func Build(req types.ComplexRequest, core geometry.Core, ligs []types.Ligand, asg symmetry.Assignment, params types.Parameters) (*types.Conformer, error) {
	params = params.Normalized()

	metal, err := ptable.Lookup(req.Metal)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	metalRad := metal.CovRadius
	if params.CovRadMetal > 0 {
		metalRad = params.CovRadMetal
	}

	if len(asg.Sites) != len(ligs) {
		return nil, fmt.Errorf("assemble: %d site lists for %d ligands", len(asg.Sites), len(ligs))
	}

	atoms := []types.Atom{{Symbol: metal.Symbol}}
	var bonds [][2]int

	for li, lig := range ligs {
		placed, err := placeLigand(lig, asg.Sites[li], core, metalRad, params.ScaledRadiiFactor)
		if err != nil {
			return nil, fmt.Errorf("assemble: ligand %s: %w", lig.Name, err)
		}

		offset := len(atoms)
		atoms = append(atoms, placed...)
		for _, d := range lig.Donors {
			bonds = append(bonds, [2]int{0, offset + d})
		}
		for _, b := range lig.Bonds {
			bonds = append(bonds, [2]int{offset + b[0], offset + b[1]})
		}
	}

	charge := totalCharge(req, ligs, params)
	spin := suggestSpin(charge, atoms, params)

	return &types.Conformer{
		Symmetry: -1,
		Score:    asg.Score,
		Atoms:    atoms,
		Bonds:    bonds,
		Charge:   charge,
		Spin:     spin,
	}, nil
}

// totalCharge sums the oxidation state and the charges of the placed
// ligand list. The list includes fill ligands, which the request's own
// ligand set does not. Parameters.FullCharge overrides the sum.
func totalCharge(req types.ComplexRequest, ligs []types.Ligand, params types.Parameters) int {
	if params.FullCharge != nil {
		return *params.FullCharge
	}
	q := req.OxidationState
	for _, l := range ligs {
		q += l.Charge
	}
	return q
}

// placeLigand rigidly maps a ligand template onto its assigned sites.
// Donor atoms anchor to site vectors scaled to covalent bond lengths; an
// extra anchor along the template's +z axis fixes the rotational
// ambiguity so the ligand body points away from the metal.
func placeLigand(lig types.Ligand, sites []int, core geometry.Core, metalRad, radScale float64) ([]types.Atom, error) {
	if lig.Type == types.LigSandwich {
		return placeSandwich(lig, sites, core, metalRad, radScale)
	}
	if len(sites) != len(lig.Donors) {
		return nil, fmt.Errorf("%d sites for %d donors", len(sites), len(lig.Donors))
	}

	src := make([]r3.Vec, 0, len(lig.Donors)+1)
	dst := make([]r3.Vec, 0, len(sites)+1)
	for k, d := range lig.Donors {
		donorRad := ptable.CovalentRadius(lig.Atoms[d].Symbol, 0.7)
		length := (metalRad + donorRad) * radScale
		src = append(src, lig.Atoms[d].Position())
		dst = append(dst, r3.Scale(length, core.Sites[sites[k]]))
	}

	// Outward orientation anchor.
	srcCent := geometry.Centroid(src)
	dstCent := geometry.Centroid(dst)
	outward := dstCent
	if r3.Norm(outward) < 1e-9 {
		// Planar multidentate around the metal: any normal works.
		outward = r3.Cross(r3.Sub(dst[0], dstCent), r3.Sub(dst[1], dstCent))
	}
	if r3.Norm(outward) > 1e-9 {
		outward = r3.Unit(outward)
		src = append(src, r3.Add(srcCent, r3.Vec{Z: 1}))
		dst = append(dst, r3.Add(dstCent, outward))
	}

	points := make([]r3.Vec, len(lig.Atoms))
	for i, a := range lig.Atoms {
		points[i] = a.Position()
	}
	mapped, err := geometry.MapOnto(points, src, dst)
	if err != nil {
		return nil, err
	}

	out := make([]types.Atom, len(lig.Atoms))
	for i, a := range lig.Atoms {
		out[i] = types.NewAtom(a.Symbol, mapped[i])
	}
	return out, nil
}

// placeSandwich centers a ring ligand over a facial three-site patch,
// ring plane perpendicular to the patch direction.
func placeSandwich(lig types.Ligand, sites []int, core geometry.Core, metalRad, radScale float64) ([]types.Atom, error) {
	var patch r3.Vec
	for _, s := range sites {
		patch = r3.Add(patch, core.Sites[s])
	}
	if r3.Norm(patch) < 1e-9 {
		return nil, fmt.Errorf("degenerate sandwich site patch %v", sites)
	}
	patch = r3.Unit(patch)

	donorRad := ptable.CovalentRadius(lig.Atoms[lig.Donors[0]].Symbol, 0.7)
	center := r3.Scale((metalRad+donorRad)*radScale, patch)

	var srcCent r3.Vec
	for _, d := range lig.Donors {
		srcCent = r3.Add(srcCent, lig.Atoms[d].Position())
	}
	srcCent = r3.Scale(1/float64(len(lig.Donors)), srcCent)

	src := []r3.Vec{srcCent, r3.Add(srcCent, r3.Vec{Z: 1})}
	dst := []r3.Vec{center, r3.Add(center, patch)}

	points := make([]r3.Vec, len(lig.Atoms))
	for i, a := range lig.Atoms {
		points[i] = a.Position()
	}
	mapped, err := geometry.MapOnto(points, src, dst)
	if err != nil {
		return nil, err
	}

	out := make([]types.Atom, len(lig.Atoms))
	for i, a := range lig.Atoms {
		out[i] = types.NewAtom(a.Symbol, mapped[i])
	}
	return out, nil
}

// suggestSpin derives the unpaired electron count: explicit overrides
// first, otherwise electron-count parity with any metal spin added.
func suggestSpin(charge int, atoms []types.Atom, params types.Parameters) int {
	if params.FullSpin != nil {
		return *params.FullSpin
	}

	electrons := 0
	for _, a := range atoms {
		if e, err := ptable.Lookup(a.Symbol); err == nil {
			electrons += e.Number
		}
	}
	electrons -= charge

	spin := electrons % 2
	if spin < 0 {
		spin = -spin
	}
	if params.MetalSpin != nil && *params.MetalSpin%2 == spin%2 {
		return *params.MetalSpin
	}
	return spin
}
