// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package diagnose inspects a run report and explains common failure
// modes: no structures, too few structures, runaway run times, and
// wrong isomers, each with the parameter change that addresses it.
package diagnose

import (
	"fmt"

	"github.com/f-block/archon/pkg/types"
)

// Finding is one diagnosed symptom with its likely cause and the
// parameter remedy.
type Finding struct {
	Symptom string `json:"symptom" yaml:"symptom"`
	Cause   string `json:"cause" yaml:"cause"`
	Remedy  string `json:"remedy" yaml:"remedy"`
}

// Analyze applies the rule set to a run report. An empty slice means
// the run looks healthy.
func Analyze(rep types.RunReport) []Finding {
	var findings []Finding

	sanityFailed := 0
	for _, n := range rep.SanityFailed {
		sanityFailed += n
	}

	if rep.SymmetriesFound == 0 {
		findings = append(findings, Finding{
			Symptom: "no structures generated",
			Cause:   "no ligand placement maps every donor onto the requested core",
			Remedy:  "check each ligand's denticity against the core geometry, or raise core_cn so multidentate ligands have compatible site groups",
		})
		return findings
	}

	if rep.Returned == 0 && sanityFailed > 0 && sanityFailed >= rep.Assembled {
		findings = append(findings, Finding{
			Symptom: "no structures generated",
			Cause:   fmt.Sprintf("all %d assembled candidates failed the distance checks (%s)", rep.Assembled, dominantReason(rep.SanityFailed)),
			Remedy:  "loosen the sanity cutoffs (assemble_graph_sanity_cutoff, full_smallest_dist_cutoff) or set force_generation to keep flagged structures",
		})
	}

	if rep.Returned == 0 && rep.ConvergenceFailed > 0 {
		findings = append(findings, Finding{
			Symptom: "no structures generated",
			Cause:   fmt.Sprintf("%d candidates never converged at the requested level of theory", rep.ConvergenceFailed),
			Remedy:  "set force_generation to keep the unrelaxed single points, or drop full_method to GFN-FF",
		})
	}

	if rep.Returned > 0 && rep.Returned < rep.RequestedConformers {
		cause := fmt.Sprintf("only %d of %d requested conformers survived screening", rep.Returned, rep.RequestedConformers)
		remedy := "raise n_symmetries to feed more distinct placements into assembly"
		if rep.DuplicatesRemoved > 0 && rep.DuplicatesRemoved >= rep.Returned {
			cause = fmt.Sprintf("%d candidates collapsed into duplicates after relaxation", rep.DuplicatesRemoved)
			remedy = "raise n_symmetries, or tighten duplicate_rmsd_cutoff if the merged structures are genuinely distinct"
		}
		findings = append(findings, Finding{
			Symptom: "fewer structures than requested",
			Cause:   cause,
			Remedy:  remedy,
		})
	}

	if rep.RequestedSymmetries > 20 && rep.Relaxed {
		findings = append(findings, Finding{
			Symptom: "long run time",
			Cause:   fmt.Sprintf("%d symmetries each relaxed at the full level of theory", rep.RequestedSymmetries),
			Remedy:  "lower n_symmetries, set relax false for an assemble-only survey, or raise workers",
		})
	}

	if rep.HasOxoLigands && rep.ActinideCenter && !rep.ForceTransOxos {
		findings = append(findings, Finding{
			Symptom: "wrong isomer ranked lowest",
			Cause:   "cis oxo placements compete with the trans actinyl arrangement on electrostatic score alone",
			Remedy:  "set force_trans_oxos to pin the first two oxo ligands to the axial site pair",
		})
	}

	if rep.HasOxoLigands && rep.ActinideCenter && rep.Relaxed {
		findings = append(findings, Finding{
			Symptom: "structures returned unrelaxed",
			Cause:   "the tight-binding charge model caps f-element centers at the trivalent state, so relaxation is suppressed for higher oxidation states",
			Remedy:  "set override_oxo_opt (or force_oxo_relax for assembly stages) to relax anyway",
		})
	}

	return findings
}

func dominantReason(counts map[string]int) string {
	best, bestN := "distance checks", 0
	for r, n := range counts {
		if n > bestN {
			best, bestN = r, n
		}
	}
	return best
}
