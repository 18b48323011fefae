// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ptable provides periodic table data used throughout structure
// generation: atomic masses, covalent and van der Waals radii, and
// membership tests for the lanthanide and actinide series.
package ptable

import (
	"fmt"
	"strings"
)

// Element holds per-element reference data. Masses are in atomic mass
// units, radii in Angstrom. Covalent radii follow Cordero et al. (2008);
// van der Waals radii follow Alvarez (2013) where available.
type Element struct {
	Symbol    string
	Number    int
	Mass      float64
	CovRadius float64
	VdwRadius float64
}

var elements = []Element{
	{"H", 1, 1.008, 0.31, 1.20},
	{"He", 2, 4.0026, 0.28, 1.40},
	{"Li", 3, 6.94, 1.28, 1.82},
	{"Be", 4, 9.0122, 0.96, 1.53},
	{"B", 5, 10.81, 0.84, 1.92},
	{"C", 6, 12.011, 0.76, 1.70},
	{"N", 7, 14.007, 0.71, 1.55},
	{"O", 8, 15.999, 0.66, 1.52},
	{"F", 9, 18.998, 0.57, 1.47},
	{"Ne", 10, 20.180, 0.58, 1.54},
	{"Na", 11, 22.990, 1.66, 2.27},
	{"Mg", 12, 24.305, 1.41, 1.73},
	{"Al", 13, 26.982, 1.21, 1.84},
	{"Si", 14, 28.085, 1.11, 2.10},
	{"P", 15, 30.974, 1.07, 1.80},
	{"S", 16, 32.06, 1.05, 1.80},
	{"Cl", 17, 35.45, 1.02, 1.75},
	{"Ar", 18, 39.948, 1.06, 1.88},
	{"K", 19, 39.098, 2.03, 2.75},
	{"Ca", 20, 40.078, 1.76, 2.31},
	{"Sc", 21, 44.956, 1.70, 2.15},
	{"Ti", 22, 47.867, 1.60, 2.11},
	{"V", 23, 50.942, 1.53, 2.07},
	{"Cr", 24, 51.996, 1.39, 2.06},
	{"Mn", 25, 54.938, 1.39, 2.05},
	{"Fe", 26, 55.845, 1.32, 2.04},
	{"Co", 27, 58.933, 1.26, 2.00},
	{"Ni", 28, 58.693, 1.24, 1.97},
	{"Cu", 29, 63.546, 1.32, 1.96},
	{"Zn", 30, 65.38, 1.22, 2.01},
	{"Ga", 31, 69.723, 1.22, 1.87},
	{"Ge", 32, 72.630, 1.20, 2.11},
	{"As", 33, 74.922, 1.19, 1.85},
	{"Se", 34, 78.971, 1.20, 1.90},
	{"Br", 35, 79.904, 1.20, 1.85},
	{"Kr", 36, 83.798, 1.16, 2.02},
	{"Rb", 37, 85.468, 2.20, 3.03},
	{"Sr", 38, 87.62, 1.95, 2.49},
	{"Y", 39, 88.906, 1.90, 2.32},
	{"Zr", 40, 91.224, 1.75, 2.23},
	{"Nb", 41, 92.906, 1.64, 2.18},
	{"Mo", 42, 95.95, 1.54, 2.17},
	{"Tc", 43, 97.0, 1.47, 2.16},
	{"Ru", 44, 101.07, 1.46, 2.13},
	{"Rh", 45, 102.91, 1.42, 2.10},
	{"Pd", 46, 106.42, 1.39, 2.10},
	{"Ag", 47, 107.87, 1.45, 2.11},
	{"Cd", 48, 112.41, 1.44, 2.18},
	{"In", 49, 114.82, 1.42, 1.93},
	{"Sn", 50, 118.71, 1.39, 2.17},
	{"Sb", 51, 121.76, 1.39, 2.06},
	{"Te", 52, 127.60, 1.38, 2.06},
	{"I", 53, 126.90, 1.39, 1.98},
	{"Xe", 54, 131.29, 1.40, 2.16},
	{"Cs", 55, 132.91, 2.44, 3.43},
	{"Ba", 56, 137.33, 2.15, 2.68},
	{"La", 57, 138.91, 2.07, 2.43},
	{"Ce", 58, 140.12, 2.04, 2.42},
	{"Pr", 59, 140.91, 2.03, 2.40},
	{"Nd", 60, 144.24, 2.01, 2.39},
	{"Pm", 61, 145.0, 1.99, 2.38},
	{"Sm", 62, 150.36, 1.98, 2.36},
	{"Eu", 63, 151.96, 1.98, 2.35},
	{"Gd", 64, 157.25, 1.96, 2.34},
	{"Tb", 65, 158.93, 1.94, 2.33},
	{"Dy", 66, 162.50, 1.92, 2.31},
	{"Ho", 67, 164.93, 1.92, 2.30},
	{"Er", 68, 167.26, 1.89, 2.29},
	{"Tm", 69, 168.93, 1.90, 2.27},
	{"Yb", 70, 173.05, 1.87, 2.26},
	{"Lu", 71, 174.97, 1.87, 2.24},
	{"Hf", 72, 178.49, 1.75, 2.23},
	{"Ta", 73, 180.95, 1.70, 2.22},
	{"W", 74, 183.84, 1.62, 2.18},
	{"Re", 75, 186.21, 1.51, 2.16},
	{"Os", 76, 190.23, 1.44, 2.16},
	{"Ir", 77, 192.22, 1.41, 2.13},
	{"Pt", 78, 195.08, 1.36, 2.13},
	{"Au", 79, 196.97, 1.36, 2.14},
	{"Hg", 80, 200.59, 1.32, 2.23},
	{"Tl", 81, 204.38, 1.45, 1.96},
	{"Pb", 82, 207.2, 1.46, 2.02},
	{"Bi", 83, 208.98, 1.48, 2.07},
	{"Po", 84, 209.0, 1.40, 1.97},
	{"At", 85, 210.0, 1.50, 2.02},
	{"Rn", 86, 222.0, 1.50, 2.20},
	{"Fr", 87, 223.0, 2.60, 3.48},
	{"Ra", 88, 226.0, 2.21, 2.83},
	{"Ac", 89, 227.0, 2.15, 2.47},
	{"Th", 90, 232.04, 2.06, 2.45},
	{"Pa", 91, 231.04, 2.00, 2.43},
	{"U", 92, 238.03, 1.96, 2.41},
	{"Np", 93, 237.0, 1.90, 2.39},
	{"Pu", 94, 244.0, 1.87, 2.43},
	{"Am", 95, 243.0, 1.80, 2.44},
	{"Cm", 96, 247.0, 1.69, 2.45},
}

var bySymbol = func() map[string]Element {
	m := make(map[string]Element, len(elements))
	for _, e := range elements {
		m[e.Symbol] = e
	}
	return m
}()

// Lookup returns the element record for a chemical symbol. The symbol is
// case-normalized ("fe" and "FE" both resolve to iron).
func Lookup(symbol string) (Element, error) {
	e, ok := bySymbol[Normalize(symbol)]
	if !ok {
		return Element{}, fmt.Errorf("unknown element symbol %q", symbol)
	}
	return e, nil
}

// Normalize returns the canonical capitalization of a chemical symbol.
func Normalize(symbol string) string {
	s := strings.TrimSpace(symbol)
	if s == "" {
		return s
	}
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}

// CovalentRadius returns the covalent radius for a symbol, or fallback
// when the element is unknown.
func CovalentRadius(symbol string, fallback float64) float64 {
	if e, err := Lookup(symbol); err == nil {
		return e.CovRadius
	}
	return fallback
}

// Mass returns the atomic mass for a symbol, or an error for unknown elements.
func Mass(symbol string) (float64, error) {
	e, err := Lookup(symbol)
	if err != nil {
		return 0, err
	}
	return e.Mass, nil
}

// IsLanthanide reports whether the symbol belongs to the lanthanide series
// (La through Lu).
func IsLanthanide(symbol string) bool {
	e, err := Lookup(symbol)
	if err != nil {
		return false
	}
	return e.Number >= 57 && e.Number <= 71
}

// IsActinide reports whether the symbol belongs to the actinide series
// (Ac through Lr). Actinide centers get special oxo handling during
// symmetry selection and relaxation.
func IsActinide(symbol string) bool {
	e, err := Lookup(symbol)
	if err != nil {
		return false
	}
	return e.Number >= 89 && e.Number <= 103
}

// IsMetal reports whether the symbol is treated as a metal center. All
// elements outside the small nonmetal set qualify.
func IsMetal(symbol string) bool {
	switch Normalize(symbol) {
	case "H", "He", "B", "C", "N", "O", "F", "Ne", "Si", "P", "S", "Cl",
		"Ar", "As", "Se", "Br", "Kr", "Te", "I", "Xe", "At", "Rn":
		return false
	}
	_, err := Lookup(symbol)
	return err == nil
}
