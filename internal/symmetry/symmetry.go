// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package symmetry enumerates the valid assignments of ligand donor atoms
// to core coordination sites and ranks them by an electrostatic-steric
// placement score. The lowest-scoring assignments seed conformer assembly.
package symmetry

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/f-block/archon/internal/geometry"
	"github.com/f-block/archon/pkg/types"
)

// maxCombos caps raw enumeration. Beyond this the scoring pass sees a
// truncated combo stream; raising n_symmetries cannot recover placements
// past the cap.
const maxCombos = 10000

// Assignment maps each ligand (in filled-list order) to the core site
// indices its donors occupy, with the placement score that ranked it.
type Assignment struct {
	Sites [][]int
	Score float64
}

// UnmappableError reports a ligand whose binding mode has no valid site
// combination on the requested core.
type UnmappableError struct {
	Ligand string
	Core   string
}

func (e *UnmappableError) Error() string {
	return fmt.Sprintf("ligand %s cannot be mapped to core %s", e.Ligand, e.Core)
}

// OverCoordinationError reports a request whose ligands exceed the core's
// coordination number.
type OverCoordinationError struct {
	CN     int
	Donors int
}

func (e *OverCoordinationError) Error() string {
	return fmt.Sprintf("requested complex is over-coordinated: %d donors on a CN %d core", e.Donors, e.CN)
}

// Enumerate completes the ligand list with fill ligands, enumerates
// non-overlapping site assignments, scores them, and returns up to
// n_symmetries assignments in ascending score order. The returned ligand
// list includes fill ligands and is the order Assignment.Sites indexes.
func Enumerate(req types.ComplexRequest, core geometry.Core, params types.Parameters) ([]types.Ligand, []Assignment, error) {
	params = params.Normalized()

	ligs, err := fillLigands(req.Ligands, core.CN, params)
	if err != nil {
		return nil, nil, err
	}

	options, err := siteOptions(ligs, core, params)
	if err != nil {
		return ligs, nil, err
	}

	slots := buildSlots(ligs, options)

	combos := enumerate(slots, core.CN)

	assignments := scoreAndSelect(combos, slots, ligs, core, params.NSymmetries)
	return ligs, assignments, nil
}

// donorCount returns the number of core sites a ligand consumes.
// Sandwich and haptic ligands occupy a facial three-site patch.
func donorCount(l types.Ligand) int {
	if l.Type == types.LigSandwich {
		return 3
	}
	return l.Denticity()
}

// fillLigands appends fill ligands until the donor count matches the
// core coordination number. Over-coordination is an error.
func fillLigands(in []types.Ligand, cn int, params types.Parameters) ([]types.Ligand, error) {
	ligs := append([]types.Ligand(nil), in...)

	donors := 0
	for _, l := range ligs {
		donors += donorCount(l)
	}
	if donors > cn {
		return nil, &OverCoordinationError{CN: cn, Donors: donors}
	}

	nFill := cn - donors
	if nFill == 0 {
		return ligs, nil
	}

	fill, err := types.BuiltinLigand(params.FillLigand)
	if err != nil {
		return nil, fmt.Errorf("fill ligand: %w", err)
	}
	secondary, err := types.BuiltinLigand(params.SecondaryFillLigand)
	if err != nil {
		return nil, fmt.Errorf("secondary fill ligand: %w", err)
	}

	nPrimary := nFill / fill.Denticity()
	nSecondary := nFill - nPrimary*fill.Denticity()
	for i := 0; i < nPrimary; i++ {
		ligs = append(ligs, fill)
	}
	for i := 0; i < nSecondary; i++ {
		ligs = append(ligs, secondary)
	}
	return ligs, nil
}

// siteOptions returns, per ligand, the candidate site combinations its
// donors may occupy. The force_trans_oxos constraint pins the first two
// oxo ligands to the trans axial pair (sites 0 and 1).
func siteOptions(ligs []types.Ligand, core geometry.Core, params types.Parameters) ([][][]int, error) {
	options := make([][][]int, len(ligs))
	transOxos := 0

	for i, l := range ligs {
		switch {
		case len(l.ForcedSites) > 0:
			options[i] = [][]int{append([]int(nil), l.ForcedSites...)}

		case l.IsOxo() && params.ForceTransOxos && transOxos < 2:
			options[i] = [][]int{{transOxos}}
			transOxos++

		case donorCount(l) == 1:
			opts := make([][]int, core.CN)
			for s := 0; s < core.CN; s++ {
				opts[s] = []int{s}
			}
			options[i] = opts

		default:
			combos := core.Combinations(l.Type)
			if len(combos) == 0 {
				return nil, &UnmappableError{Ligand: l.Name, Core: core.Name}
			}
			options[i] = combos
		}
	}
	return options, nil
}

// slot is one unit of the enumeration: either a single ligand or a group
// of identical ligands collapsed into a pseudo-high-denticity ligand so
// the recursive search does not revisit their permutations.
type slot struct {
	ligIdx  []int              // ligand indices (filled-list order) the slot covers
	options [][]int            // candidate flattened site sets
	split   map[string][][]int // option key → per-ligand site lists
}

func optionsKey(opts [][]int) string {
	keys := make([]string, len(opts))
	for i, o := range opts {
		keys[i] = optionKey(o)
	}
	return strings.Join(keys, ";")
}

func optionKey(sites []int) string {
	sorted := append([]int(nil), sites...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, s := range sorted {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}

// buildSlots groups repeated identical ligands and orders slots by
// decreasing donor count so constrained ligands place first.
func buildSlots(ligs []types.Ligand, options [][][]int) []slot {
	groups := make(map[string][]int)
	var order []string
	for i, l := range ligs {
		// Ligands count as identical only when their candidate sites
		// match too: a trans-pinned oxo must not group with a free one.
		fp := l.Fingerprint() + "#" + optionsKey(options[i])
		if _, seen := groups[fp]; !seen {
			order = append(order, fp)
		}
		groups[fp] = append(groups[fp], i)
	}

	var slots []slot
	for _, fp := range order {
		idxs := groups[fp]
		if len(idxs) == 1 {
			i := idxs[0]
			s := slot{ligIdx: idxs, split: make(map[string][][]int)}
			for _, opt := range options[i] {
				key := optionKey(opt)
				if _, dup := s.split[key]; dup {
					continue
				}
				s.options = append(s.options, opt)
				s.split[key] = [][]int{opt}
			}
			slots = append(slots, s)
			continue
		}
		slots = append(slots, groupRepeats(idxs, options[idxs[0]]))
	}

	dent := func(s slot) int {
		if len(s.options) == 0 {
			return 0
		}
		return len(s.options[0])
	}
	sort.SliceStable(slots, func(a, b int) bool {
		return dent(slots[a]) > dent(slots[b])
	})
	return slots
}

// groupRepeats collapses n identical ligands into one slot whose options
// are the n-combinations of the per-ligand options, rejecting overlapping
// combinations. The split map inverts each combination back to individual
// ligand site lists.
func groupRepeats(idxs []int, perLig [][]int) slot {
	n := len(idxs)
	s := slot{ligIdx: idxs, split: make(map[string][][]int)}

	comboIdx := make([]int, n)
	for i := range comboIdx {
		comboIdx[i] = i
	}

	for {
		var flat []int
		parts := make([][]int, n)
		for i, ci := range comboIdx {
			parts[i] = perLig[ci]
			flat = append(flat, perLig[ci]...)
		}
		if !hasDuplicates(flat) {
			key := optionKey(flat)
			if _, dup := s.split[key]; !dup {
				s.options = append(s.options, flat)
				s.split[key] = parts
			}
		}

		// Advance the combination (lexicographic).
		i := n - 1
		for i >= 0 && comboIdx[i] == len(perLig)-n+i {
			i--
		}
		if i < 0 {
			break
		}
		comboIdx[i]++
		for j := i + 1; j < n; j++ {
			comboIdx[j] = comboIdx[j-1] + 1
		}
	}
	return s
}

func hasDuplicates(xs []int) bool {
	seen := make(map[int]bool, len(xs))
	for _, x := range xs {
		if seen[x] {
			return true
		}
		seen[x] = true
	}
	return false
}

// enumerate recursively assigns one option per slot with no shared sites,
// capped at maxCombos combinations.
func enumerate(slots []slot, cn int) [][][]int {
	var out [][][]int
	occupied := make([]bool, cn)
	current := make([][]int, 0, len(slots))

	var recurse func(depth int)
	recurse = func(depth int) {
		if len(out) >= maxCombos {
			return
		}
		if depth == len(slots) {
			combo := make([][]int, len(current))
			copy(combo, current)
			out = append(out, combo)
			return
		}
		for _, opt := range slots[depth].options {
			clash := false
			for _, site := range opt {
				if occupied[site] {
					clash = true
					break
				}
			}
			if clash {
				continue
			}
			for _, site := range opt {
				occupied[site] = true
			}
			current = append(current, opt)
			recurse(depth + 1)
			current = current[:len(current)-1]
			for _, site := range opt {
				occupied[site] = false
			}
		}
	}
	recurse(0)
	return out
}

// scoreAndSelect scores each combination, deduplicates score-identical
// placements, and returns the n lowest in ascending order, expressed as
// per-ligand site lists in filled-list order.
func scoreAndSelect(combos [][][]int, slots []slot, ligs []types.Ligand, core geometry.Core, n int) []Assignment {
	seen := make(map[float64]bool)
	var selected []Assignment

	for _, combo := range combos {
		perLig := splitCombo(combo, slots, len(ligs))
		score := placementScore(perLig, ligs, core)
		if seen[score] {
			continue
		}
		seen[score] = true
		selected = append(selected, Assignment{Sites: perLig, Score: score})
	}

	sort.SliceStable(selected, func(a, b int) bool {
		return selected[a].Score < selected[b].Score
	})
	if len(selected) > n {
		selected = selected[:n]
	}
	return selected
}

// splitCombo expands slot options back to per-ligand site lists.
func splitCombo(combo [][]int, slots []slot, nLigs int) [][]int {
	perLig := make([][]int, nLigs)
	for si, opt := range combo {
		parts := slots[si].split[optionKey(opt)]
		for k, ligIdx := range slots[si].ligIdx {
			perLig[ligIdx] = parts[k]
		}
	}
	return perLig
}

// placementScore combines a Coulomb-like charge repulsion weighted by
// ligand size with a steric crowding term, evaluated between the mean
// site directions of each ligand pair. Rounded to two decimals; rounding
// is what collapses symmetry-equivalent placements to a single score.
func placementScore(perLig [][]int, ligs []types.Ligand, core geometry.Core) float64 {
	positions := make([]r3.Vec, len(perLig))
	for i, sites := range perLig {
		var sum r3.Vec
		for _, s := range sites {
			sum = r3.Add(sum, core.Sites[s])
		}
		if r3.Norm(sum) > 1e-9 {
			sum = r3.Unit(sum)
		}
		positions[i] = sum
	}

	var score float64
	for i := 0; i < len(positions); i++ {
		for j := i + 1; j < len(positions); j++ {
			r := r3.Norm(r3.Sub(positions[i], positions[j]))
			if r < 1e-9 {
				r = 1e-9
			}
			qi, qj := float64(ligs[i].Charge), float64(ligs[j].Charge)
			ni, nj := float64(len(ligs[i].Atoms)), float64(len(ligs[j].Atoms))
			score += (qi * qj / r) * (ni + nj)
			score += (ni * nj) / r
		}
	}
	return math.Round(score*100) / 100
}
