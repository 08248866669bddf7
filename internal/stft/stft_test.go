// SPDX-License-Identifier: MIT
package stft

import (
	"math"
	"testing"

	"specsynth/internal/phase"
	"specsynth/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testFFTSize    = 1024
	testHopSize    = 256
	testSampleRate = 44100
)

func TestFromFramesTranspose(t *testing.T) {
	frames := [][]complex128{
		{1, 2, 3},
		{4, 5, 6},
	}
	spec, err := FromFrames(frames, 4)
	require.NoError(t, err)

	assert.Equal(t, 3, spec.NumBins())
	assert.Equal(t, 2, spec.NumFrames())
	assert.Equal(t, []complex128{2, 5}, spec.Bins[1])
	assert.Equal(t, frames, spec.Frames())
}

func TestFromFramesDerivesFFTSize(t *testing.T) {
	spec, err := FromFrames([][]complex128{make([]complex128, 513)}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1024, spec.FFTSize)
}

func TestFromFramesShapeMismatch(t *testing.T) {
	_, err := FromFrames([][]complex128{make([]complex128, 512)}, 1024)
	assert.ErrorIs(t, err, phase.ErrShapeMismatch)

	_, err = FromFrames([][]complex128{make([]complex128, 513), make([]complex128, 512)}, 1024)
	assert.ErrorIs(t, err, phase.ErrShapeMismatch)
}

func TestMagnitudes(t *testing.T) {
	spec, err := FromFrames([][]complex128{{3 + 4i, 0, -2}}, 4)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{5, 0, 2}}, spec.Magnitudes())
}

func unitSpectrogram(t *testing.T, numFrames int) Spectrogram {
	t.Helper()
	frames := make([][]complex128, numFrames)
	for i := range frames {
		frames[i] = make([]complex128, testFFTSize/2+1)
		for k := range frames[i] {
			frames[i][k] = complex(math.Cos(float64(k)), math.Sin(float64(k)))
		}
	}
	spec, err := FromFrames(frames, testFFTSize)
	require.NoError(t, err)
	return spec
}

func TestInverseOutputLength(t *testing.T) {
	for _, backend := range []Backend{BackendGonum, BackendGoDSP} {
		t.Run(backend.String(), func(t *testing.T) {
			inv, err := NewISTFT(testFFTSize, WithBackend(backend))
			require.NoError(t, err)

			out, err := inv.Inverse(unitSpectrogram(t, 4), testHopSize)
			require.NoError(t, err)
			assert.Len(t, out, (4-1)*testHopSize+testFFTSize)
			assert.Equal(t, len(out), inv.OutputLen(4, testHopSize))
			for i, v := range out {
				require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "sample %d = %v", i, v)
			}
		})
	}
}

func TestInverseCenterTrim(t *testing.T) {
	inv, err := NewISTFT(testFFTSize, WithCenter(true))
	require.NoError(t, err)

	out, err := inv.Inverse(unitSpectrogram(t, 10), testHopSize)
	require.NoError(t, err)
	assert.Len(t, out, 9*testHopSize)
	assert.Equal(t, len(out), inv.OutputLen(10, testHopSize))
}

func TestInverseNoFrames(t *testing.T) {
	inv, err := NewISTFT(testFFTSize)
	require.NoError(t, err)

	out, err := inv.Inverse(Spectrogram{FFTSize: testFFTSize, Bins: make([][]complex128, testFFTSize/2+1)}, testHopSize)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestInverseErrors(t *testing.T) {
	inv, err := NewISTFT(testFFTSize)
	require.NoError(t, err)
	spec := unitSpectrogram(t, 4)

	_, err = inv.Inverse(spec, 0)
	assert.ErrorIs(t, err, phase.ErrInvalidConfiguration)

	_, err = inv.Inverse(spec, -256)
	assert.ErrorIs(t, err, phase.ErrInvalidConfiguration)

	other, err := NewISTFT(512)
	require.NoError(t, err)
	_, err = other.Inverse(spec, testHopSize)
	assert.ErrorIs(t, err, phase.ErrShapeMismatch)

	ragged := unitSpectrogram(t, 4)
	ragged.Bins[7] = ragged.Bins[7][:3]
	_, err = inv.Inverse(ragged, testHopSize)
	assert.ErrorIs(t, err, phase.ErrShapeMismatch)

	_, err = NewISTFT(0)
	assert.ErrorIs(t, err, phase.ErrInvalidConfiguration)

	_, err = NewISTFT(testFFTSize, WithBackend(BackendGossp))
	assert.ErrorIs(t, err, phase.ErrInvalidConfiguration)
}

func TestInverseNonFinite(t *testing.T) {
	inv, err := NewISTFT(testFFTSize)
	require.NoError(t, err)
	spec := unitSpectrogram(t, 2)
	spec.Bins[3][1] = complex(math.Inf(1), 0)

	_, err = inv.Inverse(spec, testHopSize)
	assert.ErrorIs(t, err, phase.ErrNumericalInstability)
}

func TestRoundTripReconstruction(t *testing.T) {
	signal := utils.GenerateComplexWave(8192, testSampleRate)

	fwd, err := NewSTFT(testFFTSize, testFFTSize, testHopSize)
	require.NoError(t, err)
	spec, err := fwd.Forward(signal)
	require.NoError(t, err)
	assert.Equal(t, fwd.NumFrames(len(signal)), spec.NumFrames())

	for _, backend := range []Backend{BackendGonum, BackendGoDSP} {
		t.Run(backend.String(), func(t *testing.T) {
			inv, err := NewISTFT(testFFTSize, WithBackend(backend))
			require.NoError(t, err)
			out, err := inv.Inverse(spec, testHopSize)
			require.NoError(t, err)

			// Exact where the windows are fully overlapped. On the ramps at
			// both ends the output fades and never exceeds the input.
			for i := testFFTSize; i < len(out)-testFFTSize; i++ {
				require.InDelta(t, signal[i], out[i], 1e-9, "sample %d", i)
			}
			for i := range min(len(out), len(signal)) {
				require.LessOrEqual(t, math.Abs(out[i]), math.Abs(signal[i])+1e-9, "sample %d", i)
			}
		})
	}
}

func TestInverseEdgesNotAmplified(t *testing.T) {
	signal := utils.GenerateSineWave(16384, testSampleRate, 440)

	for _, w := range []WindowFunc{Hann, Hamming, Blackman} {
		t.Run(w.String(), func(t *testing.T) {
			fwd, err := NewSTFT(testFFTSize, testFFTSize, testHopSize, WithAnalysisWindow(w))
			require.NoError(t, err)
			spec, err := fwd.Forward(signal)
			require.NoError(t, err)

			inv, err := NewISTFT(testFFTSize, WithWindow(w))
			require.NoError(t, err)
			out, err := inv.Inverse(spec, testHopSize)
			require.NoError(t, err)

			peak, peakIdx := 0.0, 0
			for i, v := range out {
				if math.Abs(v) > peak {
					peak, peakIdx = math.Abs(v), i
				}
			}
			assert.Greater(t, peakIdx, testHopSize, "peak at sample %d", peakIdx)
			assert.Less(t, peakIdx, len(out)-testHopSize, "peak at sample %d", peakIdx)
			assert.Less(t, peak, 1.5, "peak %v", peak)
		})
	}
}

func TestBackendsAgree(t *testing.T) {
	spec := unitSpectrogram(t, 6)

	a, err := NewISTFT(testFFTSize, WithBackend(BackendGonum))
	require.NoError(t, err)
	b, err := NewISTFT(testFFTSize, WithBackend(BackendGoDSP))
	require.NoError(t, err)

	outA, err := a.Inverse(spec, testHopSize)
	require.NoError(t, err)
	outB, err := b.Inverse(spec, testHopSize)
	require.NoError(t, err)

	require.Equal(t, len(outA), len(outB))
	for i := range outA {
		require.InDelta(t, outA[i], outB[i], 1e-9, "sample %d", i)
	}
}

func TestForwardPeakBin(t *testing.T) {
	signal := utils.GenerateSineWave(8192, testSampleRate, 440)
	wantBin := int(math.Round(440 * testFFTSize / testSampleRate))

	tests := []struct {
		name string
		opts []ForwardOption
		win  int
	}{
		{"gonum full window", nil, testFFTSize},
		{"gonum short window", nil, 512},
		{"gonum centered", []ForwardOption{WithCenterPadding(true)}, testFFTSize},
		{"gossp", []ForwardOption{WithForwardBackend(BackendGossp)}, testFFTSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd, err := NewSTFT(testFFTSize, tt.win, testHopSize, tt.opts...)
			require.NoError(t, err)
			spec, err := fwd.Forward(signal)
			require.NoError(t, err)
			require.Equal(t, testFFTSize/2+1, spec.NumBins())
			require.Positive(t, spec.NumFrames())

			mags := spec.Magnitudes()
			mid := mags[len(mags)/2]
			assert.InDelta(t, wantBin, utils.FindPeakBin(mid, 0, len(mid)-1), 1)
		})
	}
}

func TestForwardShortInput(t *testing.T) {
	fwd, err := NewSTFT(testFFTSize, 512, testHopSize)
	require.NoError(t, err)

	spec, err := fwd.Forward(make([]float64, 100))
	require.NoError(t, err)
	assert.Equal(t, 1, spec.NumFrames())
}

func TestNewSTFTInvalid(t *testing.T) {
	_, err := NewSTFT(0, 0, 256)
	assert.ErrorIs(t, err, phase.ErrInvalidConfiguration)

	_, err = NewSTFT(1024, 2048, 256)
	assert.ErrorIs(t, err, phase.ErrInvalidConfiguration)

	_, err = NewSTFT(1024, 1024, 0)
	assert.ErrorIs(t, err, phase.ErrInvalidConfiguration)

	_, err = NewSTFT(1024, 1024, 256, WithForwardBackend(BackendGoDSP))
	assert.ErrorIs(t, err, phase.ErrInvalidConfiguration)
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		in      string
		want    WindowFunc
		wantErr bool
	}{
		{"Hann", Hann, false},
		{"hanning", Hann, false},
		{"", Hann, false},
		{"HAMMING", Hamming, false},
		{"boxcar", Rectangular, false},
		{"sine", Sine, false},
		{"kaiser", Hann, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindowFunc(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestCoefficients(t *testing.T) {
	for w := range windowNames {
		t.Run(w.String(), func(t *testing.T) {
			c := Coefficients(w, 64)
			require.Len(t, c, 64)
			for i, v := range c {
				require.False(t, math.IsNaN(v), "coefficient %d", i)
			}
		})
	}

	rect := Coefficients(Rectangular, 8)
	for _, v := range rect {
		assert.Equal(t, 1.0, v)
	}
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("go-dsp")
	require.NoError(t, err)
	assert.Equal(t, BackendGoDSP, b)

	b, err = ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendGonum, b)

	_, err = ParseBackend("fftw")
	assert.Error(t, err)
}

func BenchmarkInverse(b *testing.B) {
	frames := make([][]complex128, 300)
	for i := range frames {
		frames[i] = make([]complex128, testFFTSize/2+1)
		for k := range frames[i] {
			frames[i][k] = 1
		}
	}
	spec, _ := FromFrames(frames, testFFTSize)
	inv, _ := NewISTFT(testFFTSize)

	b.ReportAllocs()
	for b.Loop() {
		_, _ = inv.Inverse(spec, testHopSize)
	}
}
