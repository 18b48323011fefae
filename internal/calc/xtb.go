// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package calc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/f-block/archon/internal/toolchain"
	"github.com/f-block/archon/internal/xyz"
	"github.com/f-block/archon/pkg/types"
)

// hartreeToEV converts xtb's Hartree energies to the pipeline's eV.
const hartreeToEV = 27.211386245988

const xtbInputFile = "input.xyz"

var (
	totalEnergyRe = regexp.MustCompile(`TOTAL ENERGY\s+(-?\d+\.\d+)\s+Eh`)
	optConverged  = "GEOMETRY OPTIMIZATION CONVERGED"
	optOutputFile = "xtbopt.xyz"
)

// xtbCalc shells out to the xtb binary for the GFN methods.
type xtbCalc struct {
	tool   toolchain.Tool
	method string
	params types.Parameters
}

func newXTB(method string, params types.Parameters, tool toolchain.Tool) *xtbCalc {
	return &xtbCalc{tool: tool, method: method, params: params.Normalized()}
}

func (x *xtbCalc) Name() string { return x.method }

func (x *xtbCalc) SinglePoint(ctx context.Context, sys System) (Result, error) {
	return x.run(ctx, sys, false)
}

func (x *xtbCalc) Optimize(ctx context.Context, sys System) (Result, error) {
	return x.run(ctx, sys, true)
}

func (x *xtbCalc) run(ctx context.Context, sys System, relax bool) (Result, error) {
	dir, err := os.MkdirTemp(x.params.TempPrefix, "xtb-run-")
	if err != nil {
		return Result{}, fmt.Errorf("xtb scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	frame := xyz.Frame{Comment: "archon candidate", Atoms: sys.Atoms}
	if err := xyz.WriteFile(filepath.Join(dir, xtbInputFile), []xyz.Frame{frame}); err != nil {
		return Result{}, err
	}

	var stdout, stderr bytes.Buffer
	if err := x.tool.Run(ctx, dir, x.args(sys, relax), &stdout, &stderr); err != nil {
		return Result{}, fmt.Errorf("%s: %w: %s", x.method, err, lastLine(stderr.String()))
	}

	energy, ok := parseTotalEnergy(stdout.String())
	if !ok {
		return Result{}, fmt.Errorf("%s: no total energy in output", x.method)
	}

	res := Result{Atoms: clone(sys.Atoms), Energy: energy * hartreeToEV, Converged: true}
	if relax {
		res.Converged = strings.Contains(stdout.String(), optConverged)
		frames, err := xyz.ReadFile(filepath.Join(dir, optOutputFile))
		if err != nil {
			return Result{}, fmt.Errorf("%s: reading optimized geometry: %w", x.method, err)
		}
		if len(frames) == 0 {
			return Result{}, fmt.Errorf("%s: empty optimized geometry", x.method)
		}
		res.Atoms = frames[len(frames)-1].Atoms
	}
	return res, nil
}

func (x *xtbCalc) args(sys System, relax bool) []string {
	args := []string{xtbInputFile}
	if strings.Contains(strings.ToLower(x.method), "gfn-ff") || strings.Contains(strings.ToLower(x.method), "gfnff") {
		args = append(args, "--gfnff")
	} else {
		args = append(args, "--gfn", "2")
	}
	args = append(args,
		"--chrg", strconv.Itoa(sys.Charge),
		"--uhf", strconv.Itoa(sys.Spin),
		"--acc", formatFloat(x.params.XTBAccuracy),
		"--etemp", formatFloat(x.params.XTBElectronicTemperature),
		"--iterations", strconv.Itoa(x.params.XTBMaxIterations),
	)
	if x.params.XTBSolvent != "" && x.params.XTBSolvent != "none" {
		args = append(args, "--alpb", x.params.XTBSolvent)
	}
	if relax {
		args = append(args, "--opt")
	}
	return args
}

func parseTotalEnergy(out string) (float64, bool) {
	// xtb prints the line once per stage; the last one is authoritative.
	matches := totalEnergyRe.FindAllStringSubmatch(out, -1)
	if len(matches) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(matches[len(matches)-1][1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
