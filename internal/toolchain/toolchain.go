// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package toolchain implements detection and execution of the external
// chemistry binaries the pipeline shells out to, chiefly the xtb
// semiempirical package.
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

const (
	binXTB    = "xtb"
	binObabel = "obabel"
)

// Tool provides operations on one external binary: checking availability,
// reporting its version, and running it inside a scratch directory.
type Tool interface {
	// Name returns the binary name or configured path.
	Name() string

	// Available reports whether the binary exists on PATH (or at its
	// configured path) and responds to a probe command.
	Available() bool

	// Version returns the binary's self-reported version line.
	Version() (string, error)

	// Run executes the binary in dir with the given arguments, piping
	// stdout and stderr. The context cancels a running calculation.
	Run(ctx context.Context, dir string, args []string, stdout, stderr io.Writer) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	Output(name string, args ...string) (string, error)
	RunIn(ctx context.Context, dir, name string, args []string, stdout, stderr io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (o *osExecutor) Output(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).CombinedOutput()
	return string(out), err
}

func (o *osExecutor) RunIn(ctx context.Context, dir, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// tool implements Tool for a specific binary. xtb and obabel share the
// same logic; they differ only in binary name and probe arguments.
type tool struct {
	bin       string
	probeArgs []string
	exec      executor
}

func (t *tool) Name() string { return t.bin }

func (t *tool) Available() bool {
	if _, err := t.exec.LookPath(t.bin); err != nil {
		return false
	}
	return t.exec.RunSilent(t.bin, t.probeArgs...) == nil
}

func (t *tool) Version() (string, error) {
	out, err := t.exec.Output(t.bin, t.probeArgs...)
	if err != nil {
		return "", fmt.Errorf("probing %s: %w", t.bin, err)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(strings.ToLower(line), "version") {
			return strings.TrimSpace(line), nil
		}
	}
	return strings.TrimSpace(strings.SplitN(out, "\n", 2)[0]), nil
}

func (t *tool) Run(ctx context.Context, dir string, args []string, stdout, stderr io.Writer) error {
	if stderr == nil {
		stderr = &bytes.Buffer{}
	}
	if err := t.exec.RunIn(ctx, dir, t.bin, args, stdout, stderr); err != nil {
		return fmt.Errorf("running %s: %w", t.bin, err)
	}
	return nil
}

func newXTB(path string, exec executor) *tool {
	bin := binXTB
	if path != "" {
		bin = path
	}
	return &tool{bin: bin, probeArgs: []string{"--version"}, exec: exec}
}

func newObabel(exec executor) *tool {
	return &tool{bin: binObabel, probeArgs: []string{"-V"}, exec: exec}
}

var defaultExec = &osExecutor{}

// DetectXTB locates the xtb binary, honoring an explicit path override.
// Returns an error when the binary is missing or not operational.
func DetectXTB(path string) (Tool, error) {
	return detectXTB(path, defaultExec)
}

func detectXTB(path string, exec executor) (Tool, error) {
	x := newXTB(path, exec)
	if x.Available() {
		return x, nil
	}
	return nil, fmt.Errorf("xtb binary %q not found or not operational", x.bin)
}

// DetectObabel locates the optional openbabel converter. A nil Tool with
// nil error means the converter is simply absent.
func DetectObabel() (Tool, error) {
	return detectObabel(defaultExec)
}

func detectObabel(exec executor) (Tool, error) {
	o := newObabel(exec)
	if o.Available() {
		return o, nil
	}
	return nil, nil
}
