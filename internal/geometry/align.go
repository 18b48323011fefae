// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Centroid returns the mean position of a point set.
func Centroid(ps []r3.Vec) r3.Vec {
	var c r3.Vec
	for _, p := range ps {
		c = r3.Add(c, p)
	}
	return r3.Scale(1/float64(len(ps)), c)
}

// RMSD returns the root-mean-square deviation between two equal-length
// point sets without alignment.
func RMSD(a, b []r3.Vec) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("rmsd: point counts differ (%d vs %d)", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("rmsd: empty point sets")
	}
	var sum float64
	for i := range a {
		d := r3.Sub(a[i], b[i])
		sum += r3.Dot(d, d)
	}
	return math.Sqrt(sum / float64(len(a))), nil
}

// kabsch computes the rotation matrix minimizing the RMSD between
// centered point sets src and dst (both already centroid-subtracted).
func kabsch(src, dst []r3.Vec) *mat.Dense {
	h := mat.NewDense(3, 3, nil)
	for i := range src {
		s := [3]float64{src[i].X, src[i].Y, src[i].Z}
		d := [3]float64{dst[i].X, dst[i].Y, dst[i].Z}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				h.Set(r, c, h.At(r, c)+s[r]*d[c])
			}
		}
	}

	var svd mat.SVD
	svd.Factorize(h, mat.SVDFull)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// Correct for improper rotations.
	var vut mat.Dense
	vut.Mul(&v, u.T())
	d := 1.0
	if mat.Det(&vut) < 0 {
		d = -1.0
	}
	sign := mat.NewDiagDense(3, []float64{1, 1, d})

	var rot mat.Dense
	rot.Mul(&v, sign)
	rot.Mul(&rot, u.T())
	return &rot
}

func applyRot(rot *mat.Dense, p r3.Vec) r3.Vec {
	return r3.Vec{
		X: rot.At(0, 0)*p.X + rot.At(0, 1)*p.Y + rot.At(0, 2)*p.Z,
		Y: rot.At(1, 0)*p.X + rot.At(1, 1)*p.Y + rot.At(1, 2)*p.Z,
		Z: rot.At(2, 0)*p.X + rot.At(2, 1)*p.Y + rot.At(2, 2)*p.Z,
	}
}

// Superpose rigidly aligns mobile onto ref (equal-length point sets) and
// returns the transformed points with the post-alignment RMSD.
func Superpose(mobile, ref []r3.Vec) ([]r3.Vec, float64, error) {
	if len(mobile) != len(ref) {
		return nil, 0, fmt.Errorf("superpose: point counts differ (%d vs %d)", len(mobile), len(ref))
	}
	if len(mobile) == 0 {
		return nil, 0, fmt.Errorf("superpose: empty point sets")
	}

	mc := Centroid(mobile)
	rc := Centroid(ref)

	src := make([]r3.Vec, len(mobile))
	dst := make([]r3.Vec, len(ref))
	for i := range mobile {
		src[i] = r3.Sub(mobile[i], mc)
		dst[i] = r3.Sub(ref[i], rc)
	}

	rot := kabsch(src, dst)

	out := make([]r3.Vec, len(mobile))
	for i := range src {
		out[i] = r3.Add(applyRot(rot, src[i]), rc)
	}
	rmsd, err := RMSD(out, ref)
	if err != nil {
		return nil, 0, err
	}
	return out, rmsd, nil
}

// MapOnto computes the rigid transform taking the anchor points src onto
// dst and applies it to points. Assembly uses it to position ligand
// templates: src are template donor anchors, dst the core site targets.
func MapOnto(points, src, dst []r3.Vec) ([]r3.Vec, error) {
	if len(src) != len(dst) {
		return nil, fmt.Errorf("maponto: anchor counts differ (%d vs %d)", len(src), len(dst))
	}
	if len(src) == 0 {
		return nil, fmt.Errorf("maponto: no anchor points")
	}

	sc := Centroid(src)
	dc := Centroid(dst)

	cs := make([]r3.Vec, len(src))
	cd := make([]r3.Vec, len(dst))
	for i := range src {
		cs[i] = r3.Sub(src[i], sc)
		cd[i] = r3.Sub(dst[i], dc)
	}

	rot := kabsch(cs, cd)

	out := make([]r3.Vec, len(points))
	for i, p := range points {
		out[i] = r3.Add(applyRot(rot, r3.Sub(p, sc)), dc)
	}
	return out, nil
}
