// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Parameters is the recognized generation-parameter surface. YAML keys
// match the names users know from request files and the troubleshooting
// guide. Zero values mean "use the default"; call Normalized before use.
type Parameters struct {
	// NConformers is the number of distinct output structures to return.
	NConformers int `json:"n_conformers" yaml:"n_conformers"`

	// NSymmetries is how many ligand-placement symmetries to carry into
	// assembly. Raising it yields more (and more varied) candidates.
	NSymmetries int `json:"n_symmetries" yaml:"n_symmetries"`

	// Relax enables geometry relaxation of assembled candidates. Nil
	// defaults to true; set false for assemble-only runs.
	Relax *bool `json:"relax,omitempty" yaml:"relax,omitempty"`

	// AssembleMethod is the level of theory for assembly single points.
	AssembleMethod string `json:"assemble_method" yaml:"assemble_method"`

	// FullMethod is the level of theory for final relaxation/evaluation.
	FullMethod string `json:"full_method" yaml:"full_method"`

	// FFPreopt runs a force-field pre-optimization before FullMethod.
	FFPreopt bool `json:"ff_preopt" yaml:"ff_preopt"`

	// ForceGeneration keeps unconverged structures instead of discarding
	// them, falling back to the unrelaxed single-point result.
	ForceGeneration bool `json:"force_generation" yaml:"force_generation"`

	// ForceTransOxos pins the first two oxo ligands to the trans axial
	// site pair, the arrangement actinyl cores take.
	ForceTransOxos bool `json:"force_trans_oxos" yaml:"force_trans_oxos"`

	// OverrideOxoOpt relaxes even when the xtb charge bookkeeping
	// disagrees strongly with the formal charge (high oxidation states).
	OverrideOxoOpt bool `json:"override_oxo_opt" yaml:"override_oxo_opt"`

	// ForceOxoRelax relaxes such structures even during assembly.
	ForceOxoRelax bool `json:"force_oxo_relax" yaml:"force_oxo_relax"`

	// Sanity-check switches and cutoffs. Assembly cutoffs apply to raw
	// assembled candidates, full cutoffs to relaxed structures. Graph
	// cutoffs bound bond elongation relative to covalent-radius sums;
	// smallest-dist cutoffs screen atom collisions; min-dist cutoffs
	// screen structures that blew apart.
	AssembleSanityChecks       *bool   `json:"assemble_sanity_checks,omitempty" yaml:"assemble_sanity_checks,omitempty"`
	AssembleGraphSanityCutoff  float64 `json:"assemble_graph_sanity_cutoff" yaml:"assemble_graph_sanity_cutoff"`
	AssembleSmallestDistCutoff float64 `json:"assemble_smallest_dist_cutoff" yaml:"assemble_smallest_dist_cutoff"`
	AssembleMinDistCutoff      float64 `json:"assemble_min_dist_cutoff" yaml:"assemble_min_dist_cutoff"`
	FullSanityChecks           *bool   `json:"full_sanity_checks,omitempty" yaml:"full_sanity_checks,omitempty"`
	FullGraphSanityCutoff      float64 `json:"full_graph_sanity_cutoff" yaml:"full_graph_sanity_cutoff"`
	FullSmallestDistCutoff     float64 `json:"full_smallest_dist_cutoff" yaml:"full_smallest_dist_cutoff"`
	FullMinDistCutoff          float64 `json:"full_min_dist_cutoff" yaml:"full_min_dist_cutoff"`

	// DuplicateRMSDCutoff is the RMSD (Angstrom) below which two
	// energy-degenerate structures count as the same conformer.
	DuplicateRMSDCutoff float64 `json:"duplicate_rmsd_cutoff" yaml:"duplicate_rmsd_cutoff"`

	// Electronic parameters passed to the xtb calculator.
	XTBSolvent               string  `json:"xtb_solvent" yaml:"xtb_solvent"`
	XTBAccuracy              float64 `json:"xtb_accuracy" yaml:"xtb_accuracy"`
	XTBElectronicTemperature float64 `json:"xtb_electronic_temperature" yaml:"xtb_electronic_temperature"`
	XTBMaxIterations         int     `json:"xtb_max_iterations" yaml:"xtb_max_iterations"`

	// MetalSpin assigns unpaired electrons on the center; FullSpin and
	// FullCharge override the spin/charge of the whole complex.
	MetalSpin  *int `json:"metal_spin,omitempty" yaml:"metal_spin,omitempty"`
	FullSpin   *int `json:"full_spin,omitempty" yaml:"full_spin,omitempty"`
	FullCharge *int `json:"full_charge,omitempty" yaml:"full_charge,omitempty"`

	// Relaxation controls: force threshold (eV/Angstrom) and step cap.
	FMax     float64 `json:"fmax" yaml:"fmax"`
	MaxSteps int     `json:"maxsteps" yaml:"maxsteps"`

	// Metal radius overrides (Angstrom) and scaling of metal-donor bond
	// lengths during assembly.
	CovRadMetal       float64 `json:"covrad_metal,omitempty" yaml:"covrad_metal,omitempty"`
	VdwRadMetal       float64 `json:"vdwrad_metal,omitempty" yaml:"vdwrad_metal,omitempty"`
	ScaledRadiiFactor float64 `json:"scaled_radii_factor,omitempty" yaml:"scaled_radii_factor,omitempty"`

	// FillLigand and SecondaryFillLigand name builtin ligands used to
	// complete under-coordinated requests.
	FillLigand          string `json:"fill_ligand" yaml:"fill_ligand"`
	SecondaryFillLigand string `json:"secondary_fill_ligand" yaml:"secondary_fill_ligand"`

	// Workers bounds parallel conformer evaluation.
	Workers int `json:"workers" yaml:"workers"`

	// TempPrefix is the directory prefix for calculator scratch space.
	TempPrefix string `json:"temp_prefix" yaml:"temp_prefix"`

	// Debug enables verbose progress output.
	Debug bool `json:"debug" yaml:"debug"`
}

// Default parameter values, chosen to match the documented behavior of
// the generator's configuration surface.
const (
	DefaultNConformers = 1
	DefaultNSymmetries = 10
	DefaultFMax        = 0.1
	DefaultMaxSteps    = 1000
	DefaultWorkers     = 4

	DefaultAssembleGraphCutoff  = 1.8
	DefaultAssembleSmallestDist = 0.3
	DefaultAssembleMinDist      = 4.0
	DefaultFullGraphCutoff      = 1.7
	DefaultFullSmallestDist     = 0.55
	DefaultFullMinDist          = 3.5
	DefaultDuplicateRMSDCutoff  = 0.5
	DefaultXTBAccuracy          = 1.0
	DefaultXTBElectronicTemp    = 300.0
	DefaultXTBMaxIterations     = 250
	DefaultScaledRadiiFactor    = 1.0
)

// MethodGFN2, MethodGFNFF and MethodUFF are the recognized levels of
// theory. GFN methods run through the external xtb binary; UFF/MMFF run
// on the internal force field.
const (
	MethodGFN2  = "GFN2-xTB"
	MethodGFNFF = "GFN-FF"
	MethodUFF   = "UFF"
	MethodMMFF  = "MMFF"
)

// Normalized returns a copy with zero-valued fields replaced by defaults.
func (p Parameters) Normalized() Parameters {
	out := p
	if out.NConformers <= 0 {
		out.NConformers = DefaultNConformers
	}
	if out.NSymmetries <= 0 {
		out.NSymmetries = DefaultNSymmetries
	}
	if out.Relax == nil {
		t := true
		out.Relax = &t
	}
	if out.AssembleMethod == "" {
		out.AssembleMethod = MethodGFN2
	}
	if out.FullMethod == "" {
		out.FullMethod = MethodGFN2
	}
	if out.AssembleSanityChecks == nil {
		t := true
		out.AssembleSanityChecks = &t
	}
	if out.FullSanityChecks == nil {
		t := true
		out.FullSanityChecks = &t
	}
	if out.AssembleGraphSanityCutoff <= 0 {
		out.AssembleGraphSanityCutoff = DefaultAssembleGraphCutoff
	}
	if out.AssembleSmallestDistCutoff <= 0 {
		out.AssembleSmallestDistCutoff = DefaultAssembleSmallestDist
	}
	if out.AssembleMinDistCutoff <= 0 {
		out.AssembleMinDistCutoff = DefaultAssembleMinDist
	}
	if out.FullGraphSanityCutoff <= 0 {
		out.FullGraphSanityCutoff = DefaultFullGraphCutoff
	}
	if out.FullSmallestDistCutoff <= 0 {
		out.FullSmallestDistCutoff = DefaultFullSmallestDist
	}
	if out.FullMinDistCutoff <= 0 {
		out.FullMinDistCutoff = DefaultFullMinDist
	}
	if out.DuplicateRMSDCutoff <= 0 {
		out.DuplicateRMSDCutoff = DefaultDuplicateRMSDCutoff
	}
	if out.XTBSolvent == "" {
		out.XTBSolvent = "none"
	}
	if out.XTBAccuracy <= 0 {
		out.XTBAccuracy = DefaultXTBAccuracy
	}
	if out.XTBElectronicTemperature <= 0 {
		out.XTBElectronicTemperature = DefaultXTBElectronicTemp
	}
	if out.XTBMaxIterations <= 0 {
		out.XTBMaxIterations = DefaultXTBMaxIterations
	}
	if out.FMax <= 0 {
		out.FMax = DefaultFMax
	}
	if out.MaxSteps <= 0 {
		out.MaxSteps = DefaultMaxSteps
	}
	if out.ScaledRadiiFactor <= 0 {
		out.ScaledRadiiFactor = DefaultScaledRadiiFactor
	}
	if out.FillLigand == "" {
		out.FillLigand = "aqua"
	}
	if out.SecondaryFillLigand == "" {
		out.SecondaryFillLigand = "hydroxo"
	}
	if out.Workers <= 0 {
		out.Workers = DefaultWorkers
	}
	if out.TempPrefix == "" {
		out.TempPrefix = "/tmp/"
	}
	return out
}

// ShouldRelax reports the effective relax setting.
func (p Parameters) ShouldRelax() bool {
	return p.Relax == nil || *p.Relax
}
