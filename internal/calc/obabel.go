// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package calc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/f-block/archon/internal/toolchain"
	"github.com/f-block/archon/internal/xyz"
	"github.com/f-block/archon/pkg/types"
)

const (
	obabelInputFile  = "input.xyz"
	obabelOutputFile = "preopt.xyz"
)

// obabelPreopt relaxes a geometry with openbabel's UFF minimizer. Only
// the relaxed coordinates are kept; energies come from the main method.
func obabelPreopt(ctx context.Context, tool toolchain.Tool, params types.Parameters, atoms []types.Atom) ([]types.Atom, error) {
	dir, err := os.MkdirTemp(params.TempPrefix, "obabel-run-")
	if err != nil {
		return nil, fmt.Errorf("obabel scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	frame := xyz.Frame{Comment: "archon preopt", Atoms: atoms}
	if err := xyz.WriteFile(filepath.Join(dir, obabelInputFile), []xyz.Frame{frame}); err != nil {
		return nil, err
	}

	args := []string{
		obabelInputFile, "-O", obabelOutputFile,
		"--minimize", "--ff", "UFF",
		"--steps", strconv.Itoa(params.MaxSteps), "--sd",
	}
	var stderr bytes.Buffer
	if err := tool.Run(ctx, dir, args, nil, &stderr); err != nil {
		return nil, fmt.Errorf("obabel: %w: %s", err, lastLine(stderr.String()))
	}

	frames, err := xyz.ReadFile(filepath.Join(dir, obabelOutputFile))
	if err != nil {
		return nil, fmt.Errorf("obabel: reading minimized geometry: %w", err)
	}
	if len(frames) == 0 || len(frames[0].Atoms) != len(atoms) {
		return nil, fmt.Errorf("obabel: minimized geometry has wrong atom count")
	}
	return frames[0].Atoms, nil
}
