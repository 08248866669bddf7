// SPDX-License-Identifier: MIT
/*
Package specio reads and writes magnitude spectrogram files, the hand-off
format between a model producing magnitude frames and the synthesizer.

Layout (little endian):

	+--------+---------+-----------+-----------+---------+------------+---------+---------+
	| "SPEC" | version | precision | numFrames | numBins | sampleRate | hopSize | fftSize |
	| 4 B    | u8      | u8        | u32       | u32     | u32        | u32     | u32     |
	+--------+---------+-----------+-----------+---------+------------+---------+---------+
	| numFrames * numBins values, frame-major, float32 or IEEE 754 half precision        |
	+-------------------------------------------------------------------------------------+

Half precision halves file size at roughly three significant digits, which
is plenty for magnitudes headed to a 16 bit WAV.
*/
package specio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/x448/float16"

	"specsynth/internal/config"
)

const (
	magic   = "SPEC"
	version = 1

	// MaxBins is the bin count of the largest supported FFT.
	MaxBins = config.MaxFFTSize/2 + 1

	// initialFrames caps the up-front frame allocation in Read.
	initialFrames = 1024
)

// Precision is the on-disk width of each value in bits.
type Precision uint8

const (
	Float32 Precision = 32
	Float16 Precision = 16
)

var (
	ErrBadMagic             = errors.New("specio: not a spectrogram file")
	ErrUnsupportedVersion   = errors.New("specio: unsupported version")
	ErrUnsupportedPrecision = errors.New("specio: unsupported precision")
	ErrRagged               = errors.New("specio: frames have differing bin counts")
	ErrBinCount             = errors.New("specio: bin count out of range")
)

type header struct {
	Magic      [4]byte
	Version    uint8
	Precision  Precision
	NumFrames  uint32
	NumBins    uint32
	SampleRate uint32
	HopSize    uint32
	FFTSize    uint32
}

// File is a magnitude spectrogram together with the STFT settings that
// produced it.
type File struct {
	SampleRate int
	HopSize    int
	FFTSize    int
	Precision  Precision
	Frames     [][]float64
}

// NumBins returns the bin count of the first frame, or 0 with no frames.
func (f *File) NumBins() int {
	if len(f.Frames) == 0 {
		return 0
	}
	return len(f.Frames[0])
}

// Write encodes f to w. A zero Precision writes Float32.
func Write(w io.Writer, f *File) error {
	prec := f.Precision
	if prec == 0 {
		prec = Float32
	}
	if prec != Float32 && prec != Float16 {
		return fmt.Errorf("%w: %d", ErrUnsupportedPrecision, prec)
	}
	numBins := f.NumBins()
	for i, frame := range f.Frames {
		if len(frame) != numBins {
			return fmt.Errorf("%w: frame %d has %d bins, want %d", ErrRagged, i, len(frame), numBins)
		}
	}
	if err := checkBins(len(f.Frames), numBins); err != nil {
		return err
	}

	h := header{
		Version:    version,
		Precision:  prec,
		NumFrames:  uint32(len(f.Frames)),
		NumBins:    uint32(numBins),
		SampleRate: uint32(f.SampleRate),
		HopSize:    uint32(f.HopSize),
		FFTSize:    uint32(f.FFTSize),
	}
	copy(h.Magic[:], magic)

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("specio: write header: %w", err)
	}

	var buf [4]byte
	for _, frame := range f.Frames {
		for _, v := range frame {
			var err error
			if prec == Float16 {
				binary.LittleEndian.PutUint16(buf[:2], float16.Fromfloat32(float32(v)).Bits())
				_, err = bw.Write(buf[:2])
			} else {
				binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(v)))
				_, err = bw.Write(buf[:])
			}
			if err != nil {
				return fmt.Errorf("specio: write values: %w", err)
			}
		}
	}
	return bw.Flush()
}

// Read decodes a spectrogram file from r.
func Read(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)

	var h header
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("specio: read header: %w", err)
	}
	if string(h.Magic[:]) != magic {
		return nil, ErrBadMagic
	}
	if h.Version != version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	width := 0
	switch h.Precision {
	case Float32:
		width = 4
	case Float16:
		width = 2
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPrecision, h.Precision)
	}

	if err := checkBins(int(h.NumFrames), int(h.NumBins)); err != nil {
		return nil, err
	}

	// Frames grow as rows arrive so a corrupt count fails at the first
	// missing row instead of allocating for it.
	f := &File{
		SampleRate: int(h.SampleRate),
		HopSize:    int(h.HopSize),
		FFTSize:    int(h.FFTSize),
		Precision:  h.Precision,
		Frames:     make([][]float64, 0, min(int(h.NumFrames), initialFrames)),
	}

	row := make([]byte, int(h.NumBins)*width)
	for i := range int(h.NumFrames) {
		if _, err := io.ReadFull(br, row); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("specio: frame %d of %d: %w", i, h.NumFrames, err)
		}
		frame := make([]float64, h.NumBins)
		for k := range frame {
			if width == 2 {
				frame[k] = float64(float16.Frombits(binary.LittleEndian.Uint16(row[2*k:])).Float32())
			} else {
				frame[k] = float64(math.Float32frombits(binary.LittleEndian.Uint32(row[4*k:])))
			}
		}
		f.Frames = append(f.Frames, frame)
	}
	return f, nil
}

func checkBins(numFrames, numBins int) error {
	if numBins > MaxBins {
		return fmt.Errorf("%w: %d bins, limit %d", ErrBinCount, numBins, MaxBins)
	}
	if numFrames > 0 && numBins == 0 {
		return fmt.Errorf("%w: %d frames without bins", ErrBinCount, numFrames)
	}
	return nil
}

// ReadFile opens and decodes path.
func ReadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Read(fh)
}

// WriteFile encodes f into path, replacing any existing file.
func WriteFile(path string, f *File) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(fh, f); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
