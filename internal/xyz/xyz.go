// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package xyz reads and writes plain and multi-frame XYZ files, the
// exchange format between the pipeline, the xtb binary, and disk output.
package xyz

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/f-block/archon/pkg/types"
)

// Frame is one structure in an XYZ stream.
type Frame struct {
	Comment string
	Atoms   []types.Atom
}

// energyTag marks an energy annotation in a frame comment, in eV.
const energyTag = "energy="

// CommentWithEnergy builds a frame comment carrying an energy annotation.
func CommentWithEnergy(label string, energy float64) string {
	if label == "" {
		return fmt.Sprintf("%s%.8f", energyTag, energy)
	}
	return fmt.Sprintf("%s %s%.8f", label, energyTag, energy)
}

// Energy extracts an energy annotation from a frame comment. The second
// return is false when the comment carries none.
func Energy(comment string) (float64, bool) {
	for _, field := range strings.Fields(comment) {
		if !strings.HasPrefix(field, energyTag) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimPrefix(field, energyTag), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

// Write emits a single frame.
func Write(w io.Writer, f Frame) error {
	if _, err := fmt.Fprintf(w, "%d\n%s\n", len(f.Atoms), f.Comment); err != nil {
		return fmt.Errorf("writing xyz header: %w", err)
	}
	for _, a := range f.Atoms {
		if _, err := fmt.Fprintf(w, "%-3s %14.8f %14.8f %14.8f\n", a.Symbol, a.X, a.Y, a.Z); err != nil {
			return fmt.Errorf("writing xyz atom: %w", err)
		}
	}
	return nil
}

// WriteFrames emits frames back to back, the multi-frame trajectory form.
func WriteFrames(w io.Writer, frames []Frame) error {
	for i, f := range frames {
		if err := Write(w, f); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

// Read parses every frame from r. Blank lines between frames are
// tolerated; a malformed header or truncated frame is an error.
func Read(r io.Reader) ([]Frame, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var frames []Frame
	for {
		line, ok := nextNonBlank(sc)
		if !ok {
			break
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("frame %d: bad atom count %q", len(frames), strings.TrimSpace(line))
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("frame %d: missing comment line", len(frames))
		}
		f := Frame{Comment: strings.TrimSpace(sc.Text()), Atoms: make([]types.Atom, 0, n)}
		for i := 0; i < n; i++ {
			if !sc.Scan() {
				return nil, fmt.Errorf("frame %d: truncated at atom %d of %d", len(frames), i, n)
			}
			a, err := parseAtom(sc.Text())
			if err != nil {
				return nil, fmt.Errorf("frame %d atom %d: %w", len(frames), i, err)
			}
			f.Atoms = append(f.Atoms, a)
		}
		frames = append(frames, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading xyz: %w", err)
	}
	return frames, nil
}

// ReadOne parses a stream expected to hold exactly one frame.
func ReadOne(r io.Reader) (Frame, error) {
	frames, err := Read(r)
	if err != nil {
		return Frame{}, err
	}
	if len(frames) != 1 {
		return Frame{}, fmt.Errorf("expected one xyz frame, got %d", len(frames))
	}
	return frames[0], nil
}

// ReadFile parses every frame from a file.
func ReadFile(path string) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening xyz file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// WriteFile writes frames to a file, creating or truncating it.
func WriteFile(path string, frames []Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating xyz file: %w", err)
	}
	if err := WriteFrames(f, frames); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func nextNonBlank(sc *bufio.Scanner) (string, bool) {
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			return sc.Text(), true
		}
	}
	return "", false
}

func parseAtom(line string) (types.Atom, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return types.Atom{}, fmt.Errorf("bad atom line %q", strings.TrimSpace(line))
	}
	var coords [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return types.Atom{}, fmt.Errorf("bad coordinate %q", fields[i+1])
		}
		coords[i] = v
	}
	return types.Atom{Symbol: fields[0], X: coords[0], Y: coords[1], Z: coords[2]}, nil
}
