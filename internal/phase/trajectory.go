// SPDX-License-Identifier: MIT
package phase

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// WrapMode selects how the accumulated phase is folded back after each hop.
type WrapMode int

const (
	// WrapTrue folds the phase into [0, 2π) with a real modulo.
	WrapTrue WrapMode = iota

	// WrapLegacy reproduces `phase % 2 * π`: the phase is reduced modulo 2
	// and then multiplied by π. This does not preserve the per-hop increment
	// and exists only to match output rendered by older tooling.
	WrapLegacy
)

// String returns the config name of the mode.
func (m WrapMode) String() string {
	switch m {
	case WrapTrue:
		return "true"
	case WrapLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ParseWrapMode converts a config name (case-insensitive) to a WrapMode.
// Unknown names return WrapTrue and an error.
func ParseWrapMode(name string) (WrapMode, error) {
	switch strings.ToLower(name) {
	case "", "true", "modulo":
		return WrapTrue, nil
	case "legacy":
		return WrapLegacy, nil
	default:
		return WrapTrue, fmt.Errorf("%w: unknown phase wrap mode '%s'", ErrInvalidConfiguration, name)
	}
}

// wrap folds v according to the mode. Results are always non-negative.
func (m WrapMode) wrap(v float64) float64 {
	switch m {
	case WrapLegacy:
		r := math.Mod(v, 2)
		if r < 0 {
			r += 2
		}
		return r * math.Pi
	default:
		r := math.Mod(v, 2*math.Pi)
		if r < 0 {
			r += 2 * math.Pi
		}
		return r
	}
}

// Generator produces phase trajectories from an IncrementTable. It owns a
// random source for the initial phases and is not safe for concurrent use.
type Generator struct {
	mode   WrapMode
	seed   uint64
	seeded bool
	init   distuv.Uniform
}

// Option configures a Generator.
type Option func(*Generator)

// WithWrapMode sets the wraparound semantics. The default is WrapTrue.
func WithWrapMode(m WrapMode) Option {
	return func(g *Generator) { g.mode = m }
}

// WithSeed makes the initial phases reproducible. Any value, 0 included, is
// used as given. Without it the generator draws a seed from the runtime's
// random source; Seed reports the value drawn.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.seed = seed
		g.seeded = true
	}
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{mode: WrapTrue}
	for _, opt := range opts {
		opt(g)
	}
	if !g.seeded {
		g.seed = rand.Uint64()
	}
	g.init = distuv.Uniform{
		Min: 0,
		Max: 2 * math.Pi,
		Src: rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15),
	}
	return g
}

// Mode returns the configured wrap mode.
func (g *Generator) Mode() WrapMode { return g.mode }

// Seed returns the seed used for the initial phases.
func (g *Generator) Seed() uint64 { return g.seed }

// InitialPhase draws a fresh starting phase vector: uniform in [0, 2π) for
// every bin except bin 0, which is 0.
func (g *Generator) InitialPhase(numBins int) []float64 {
	current := make([]float64, numBins)
	for i := 1; i < numBins; i++ {
		current[i] = g.init.Rand()
	}
	return current
}

// Step records current as the output frame and returns the next accumulator
// value, wrap(current + inc). current is not modified.
func (g *Generator) Step(current, inc []float64) (next, frame []float64, err error) {
	if len(current) != len(inc) {
		return nil, nil, fmt.Errorf("%w: %d phases vs %d increments", ErrShapeMismatch, len(current), len(inc))
	}
	frame = make([]float64, len(current))
	copy(frame, current)

	next = make([]float64, len(current))
	copy(next, current)
	floats.Add(next, inc)
	for i, v := range next {
		next[i] = g.mode.wrap(v)
	}
	return next, frame, nil
}

// Generate returns numFrames phase frames, each with table.Len() values in
// [-π, π). Each call starts from a new random initial phase; frames are
// produced sequentially since every frame depends on the previous one.
func (g *Generator) Generate(numFrames int, table *IncrementTable) ([][]float64, error) {
	if numFrames < 0 {
		return nil, fmt.Errorf("%w: frame count must not be negative, got %d", ErrInvalidConfiguration, numFrames)
	}
	if table.Len() == 0 {
		return nil, fmt.Errorf("%w: increment table is empty", ErrInvalidConfiguration)
	}

	inc := table.inc
	current := g.InitialPhase(len(inc))

	frames := make([][]float64, numFrames)
	for i := range frames {
		next, frame, err := g.Step(current, inc)
		if err != nil {
			return nil, err
		}
		current, frames[i] = next, frame
	}

	for _, f := range frames {
		floats.AddConst(-math.Pi, f)
	}

	return frames, nil
}
