// SPDX-License-Identifier: MIT
package phase

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t testing.TB) *IncrementTable {
	t.Helper()
	table, err := NewIncrementTable(1024, 256, 44100)
	require.NoError(t, err)
	return table
}

// circularDiff returns b-a folded into [0, 2π).
func circularDiff(a, b float64) float64 {
	d := math.Mod(b-a, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return d
}

func TestGenerateShape(t *testing.T) {
	table := newTestTable(t)
	g := NewGenerator(WithSeed(1))

	for _, n := range []int{0, 1, 4, 100} {
		t.Run(fmt.Sprintf("%d frames", n), func(t *testing.T) {
			frames, err := g.Generate(n, table)
			require.NoError(t, err)
			require.Len(t, frames, n)
			for i, f := range frames {
				assert.Len(t, f, table.Len(), "frame %d", i)
			}
		})
	}
}

func TestGenerateRange(t *testing.T) {
	table := newTestTable(t)

	for _, mode := range []WrapMode{WrapTrue, WrapLegacy} {
		t.Run(mode.String(), func(t *testing.T) {
			frames, err := NewGenerator(WithSeed(7), WithWrapMode(mode)).Generate(50, table)
			require.NoError(t, err)
			for i, f := range frames {
				for k, v := range f {
					if v < -math.Pi || v >= math.Pi {
						t.Fatalf("frame %d bin %d out of range: %v", i, k, v)
					}
				}
			}
		})
	}
}

func TestGenerateDCBinConstant(t *testing.T) {
	table := newTestTable(t)

	for _, mode := range []WrapMode{WrapTrue, WrapLegacy} {
		t.Run(mode.String(), func(t *testing.T) {
			frames, err := NewGenerator(WithSeed(3), WithWrapMode(mode)).Generate(20, table)
			require.NoError(t, err)
			for i, f := range frames {
				assert.Equal(t, -math.Pi, f[0], "frame %d", i)
			}
		})
	}
}

func TestGenerateSeedsDifferButIncrementsMatch(t *testing.T) {
	table := newTestTable(t)
	inc := table.Values()

	a, err := NewGenerator(WithSeed(11)).Generate(8, table)
	require.NoError(t, err)
	b, err := NewGenerator(WithSeed(12)).Generate(8, table)
	require.NoError(t, err)

	for k := 1; k < table.Len(); k++ {
		assert.NotEqual(t, a[0][k], b[0][k], "bin %d equal at frame 0", k)
	}

	for _, frames := range [][][]float64{a, b} {
		for i := 0; i+1 < len(frames); i++ {
			for k := range inc {
				got := circularDiff(frames[i][k], frames[i+1][k])
				want := math.Mod(inc[k], 2*math.Pi)
				// Differences near 2π are equivalent to differences near 0.
				delta := math.Abs(got - want)
				delta = math.Min(delta, 2*math.Pi-delta)
				if delta > 1e-9 {
					t.Fatalf("frame %d bin %d: increment %v, want %v", i, k, got, want)
				}
			}
		}
	}
}

func TestGenerateSameSeedReproducible(t *testing.T) {
	table := newTestTable(t)

	a, err := NewGenerator(WithSeed(42)).Generate(10, table)
	require.NoError(t, err)
	b, err := NewGenerator(WithSeed(42)).Generate(10, table)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateFreshStatePerCall(t *testing.T) {
	table := newTestTable(t)
	g := NewGenerator(WithSeed(5))

	a, err := g.Generate(3, table)
	require.NoError(t, err)
	b, err := g.Generate(3, table)
	require.NoError(t, err)

	// The second call draws a new initial phase rather than continuing the first.
	assert.NotEqual(t, a[0][1], b[0][1])
}

func TestGenerateLegacyWrap(t *testing.T) {
	table := newTestTable(t)
	inc := table.Values()

	frames, err := NewGenerator(WithSeed(9), WithWrapMode(WrapLegacy)).Generate(6, table)
	require.NoError(t, err)

	for i := 0; i+1 < len(frames); i++ {
		for k := range inc {
			cur := frames[i][k] + math.Pi
			want := math.Mod(cur+inc[k], 2) * math.Pi
			assert.InDelta(t, want, frames[i+1][k]+math.Pi, 1e-9, "frame %d bin %d", i+1, k)
		}
	}
}

func TestStepDoesNotModifyInput(t *testing.T) {
	g := NewGenerator(WithSeed(1))
	current := []float64{0, 1, 6}
	inc := []float64{0, 1, 1}

	next, frame, err := g.Step(current, inc)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 6}, current)
	assert.Equal(t, current, frame)
	assert.InDelta(t, 2.0, next[1], 1e-12)
	assert.InDelta(t, 7-2*math.Pi, next[2], 1e-12)
}

func TestStepLengthMismatch(t *testing.T) {
	g := NewGenerator(WithSeed(1))

	assert.NotPanics(t, func() {
		next, frame, err := g.Step([]float64{0, 1, 2}, []float64{0, 1})
		assert.ErrorIs(t, err, ErrShapeMismatch)
		assert.Nil(t, next)
		assert.Nil(t, frame)
	})
}

func TestGenerateSeedZeroReproducible(t *testing.T) {
	table := newTestTable(t)

	g := NewGenerator(WithSeed(0))
	assert.Equal(t, uint64(0), g.Seed())

	a, err := g.Generate(4, table)
	require.NoError(t, err)
	b, err := NewGenerator(WithSeed(0)).Generate(4, table)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateInvalid(t *testing.T) {
	g := NewGenerator()

	_, err := g.Generate(-1, newTestTable(t))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = g.Generate(4, nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = g.Generate(4, &IncrementTable{})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestParseWrapMode(t *testing.T) {
	tests := []struct {
		in      string
		want    WrapMode
		wantErr bool
	}{
		{"", WrapTrue, false},
		{"true", WrapTrue, false},
		{"Modulo", WrapTrue, false},
		{"LEGACY", WrapLegacy, false},
		{"bogus", WrapTrue, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWrapMode(tt.in)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func BenchmarkGenerate(b *testing.B) {
	table := newTestTable(b)
	g := NewGenerator(WithSeed(1))

	b.ReportAllocs()
	for b.Loop() {
		_, _ = g.Generate(300, table)
	}
}
