// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// FailedEnergy is the sentinel energy (eV) assigned to structures whose
// evaluation did not converge.
const FailedEnergy = 10000.0

// Conformer is one generated 3-D arrangement of the complex, with its
// evaluation outcome attached.
type Conformer struct {
	// ID is a stable identifier within a run.
	ID string `json:"id" yaml:"id"`

	// RunID links the conformer to its generation run.
	RunID string `json:"run_id" yaml:"run_id"`

	// Symmetry is the index of the ligand-placement assignment this
	// conformer was built from (lower index = lower placement score).
	Symmetry int `json:"symmetry" yaml:"symmetry"`

	// Score is the placement score of the originating assignment.
	Score float64 `json:"score" yaml:"score"`

	// Atoms holds the structure; atom 0 is the metal center.
	Atoms []Atom `json:"atoms" yaml:"atoms"`

	// Bonds is the imposed molecular graph (index pairs into Atoms).
	Bonds [][2]int `json:"bonds,omitempty" yaml:"bonds,omitempty"`

	// Charge and Spin are the values used for evaluation.
	Charge int `json:"charge" yaml:"charge"`
	Spin   int `json:"spin" yaml:"spin"`

	// Method is the level of theory of the recorded Energy.
	Method string `json:"method" yaml:"method"`

	// Energy and InitEnergy are the final and pre-relaxation energies (eV).
	Energy     float64 `json:"energy" yaml:"energy"`
	InitEnergy float64 `json:"init_energy" yaml:"init_energy"`

	// RMSD is the displacement (Angstrom) of the relaxed structure from
	// the assembled input.
	RMSD float64 `json:"rmsd" yaml:"rmsd"`

	// Relaxed reports whether geometry relaxation ran; Converged whether
	// it (or the single point) succeeded.
	Relaxed   bool `json:"relaxed" yaml:"relaxed"`
	Converged bool `json:"converged" yaml:"converged"`

	// Sane reports the outcome of the distance/graph sanity checks;
	// SanityFailures carries the reasons when it is false.
	Sane           bool     `json:"sane" yaml:"sane"`
	SanityFailures []string `json:"sanity_failures,omitempty" yaml:"sanity_failures,omitempty"`

	// Errors records evaluation problems (SCF failures, binary errors).
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	// WallTime is the evaluation duration.
	WallTime time.Duration `json:"wall_time" yaml:"wall_time"`
}

// Positions returns the coordinates as a flat copy, metal first.
func (c *Conformer) Positions() []Atom {
	out := make([]Atom, len(c.Atoms))
	copy(out, c.Atoms)
	return out
}

// RunReport summarizes a generation run for storage and diagnosis.
type RunReport struct {
	RunID        string    `json:"run_id" yaml:"run_id"`
	Metal        string    `json:"metal" yaml:"metal"`
	CoreGeometry string    `json:"core_geometry" yaml:"core_geometry"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`

	// Requested settings that diagnosis reasons about.
	RequestedConformers int  `json:"requested_conformers" yaml:"requested_conformers"`
	RequestedSymmetries int  `json:"requested_symmetries" yaml:"requested_symmetries"`
	Relaxed             bool `json:"relaxed" yaml:"relaxed"`
	ForceTransOxos      bool `json:"force_trans_oxos" yaml:"force_trans_oxos"`
	ForceGeneration     bool `json:"force_generation" yaml:"force_generation"`
	HasOxoLigands       bool `json:"has_oxo_ligands" yaml:"has_oxo_ligands"`
	ActinideCenter      bool `json:"actinide_center" yaml:"actinide_center"`

	// Stage counts.
	SymmetriesFound   int            `json:"symmetries_found" yaml:"symmetries_found"`
	Assembled         int            `json:"assembled" yaml:"assembled"`
	SanityFailed      map[string]int `json:"sanity_failed,omitempty" yaml:"sanity_failed,omitempty"`
	ConvergenceFailed int            `json:"convergence_failed" yaml:"convergence_failed"`
	DuplicatesRemoved int            `json:"duplicates_removed" yaml:"duplicates_removed"`
	Returned          int            `json:"returned" yaml:"returned"`

	// WallTime is the total pipeline duration.
	WallTime time.Duration `json:"wall_time" yaml:"wall_time"`
}

// RunResult bundles the report with the surviving conformers; pipeline
// runs are persisted in this shape.
type RunResult struct {
	Report     RunReport      `json:"report" yaml:"report"`
	Request    ComplexRequest `json:"request" yaml:"request"`
	Conformers []*Conformer   `json:"conformers" yaml:"conformers"`
}
