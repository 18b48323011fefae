// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package neb builds reaction paths between two endpoint structures:
// superposed endpoints, linearly interpolated images, and an energy
// profile evaluated along the band.
package neb

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/f-block/archon/internal/calc"
	"github.com/f-block/archon/internal/geometry"
	"github.com/f-block/archon/pkg/types"
)

// DefaultImages is the band size when the caller does not choose one.
const DefaultImages = 7

// Interpolate aligns the product onto the reactant frame and returns a
// band of nImages structures, endpoints included. Atom order and
// symbols must match between the endpoints.
func Interpolate(reactant, product []types.Atom, nImages int) ([][]types.Atom, error) {
	if nImages < 3 {
		nImages = DefaultImages
	}
	if len(reactant) != len(product) {
		return nil, fmt.Errorf("neb: endpoints have %d and %d atoms", len(reactant), len(product))
	}
	if len(reactant) == 0 {
		return nil, fmt.Errorf("neb: empty endpoints")
	}
	for i := range reactant {
		if reactant[i].Symbol != product[i].Symbol {
			return nil, fmt.Errorf("neb: atom %d is %s in reactant, %s in product", i, reactant[i].Symbol, product[i].Symbol)
		}
	}

	start := positions(reactant)
	end := positions(product)
	aligned, _, err := geometry.Superpose(end, start)
	if err != nil {
		return nil, fmt.Errorf("neb: aligning endpoints: %w", err)
	}

	images := make([][]types.Atom, nImages)
	for k := 0; k < nImages; k++ {
		t := float64(k) / float64(nImages-1)
		img := make([]types.Atom, len(reactant))
		for i := range reactant {
			p := r3.Add(r3.Scale(1-t, start[i]), r3.Scale(t, aligned[i]))
			img[i] = types.NewAtom(reactant[i].Symbol, p)
		}
		images[k] = img
	}
	return images, nil
}

// Profile is the evaluated band.
type Profile struct {
	Images   [][]types.Atom
	Energies []float64
}

// Evaluate runs single points over every image in parallel.
// Connectivity is assumed conserved along the band, so one bond list
// covers every image.
func Evaluate(ctx context.Context, c calc.Calculator, images [][]types.Atom, bonds [][2]int, charge, spin, workers int) (*Profile, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("neb: no images")
	}
	if workers <= 0 {
		workers = types.DefaultWorkers
	}

	energies := make([]float64, len(images))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for k, img := range images {
		k, img := k, img
		g.Go(func() error {
			res, err := c.SinglePoint(ctx, calc.System{Atoms: img, Bonds: bonds, Charge: charge, Spin: spin})
			if err != nil {
				return fmt.Errorf("neb: image %d: %w", k, err)
			}
			energies[k] = res.Energy
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Profile{Images: images, Energies: energies}, nil
}

// ClimbingImage is the index of the highest-energy interior image.
func (p *Profile) ClimbingImage() int {
	best := 1
	for k := 1; k < len(p.Energies)-1; k++ {
		if p.Energies[k] > p.Energies[best] {
			best = k
		}
	}
	return best
}

// Barriers returns the forward and reverse barrier heights relative to
// the endpoints.
func (p *Profile) Barriers() (forward, reverse float64) {
	top := p.Energies[p.ClimbingImage()]
	return top - p.Energies[0], top - p.Energies[len(p.Energies)-1]
}

func positions(atoms []types.Atom) []r3.Vec {
	out := make([]r3.Vec, len(atoms))
	for i, a := range atoms {
		out[i] = a.Position()
	}
	return out
}
