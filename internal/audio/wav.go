// SPDX-License-Identifier: MIT
/*
Package audio moves rendered sample buffers in and out of the process:
WAV and FLAC files on disk and PortAudio devices for live playback.

All sample buffers are mono float64 in [-1, 1].
*/
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"specsynth/internal/log"
)

// wavFormatPCM is the WAVE format tag for integer PCM.
const wavFormatPCM = 1

// ErrUnsupportedFormat is returned for files ReadFile cannot decode.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// fullScale returns the largest positive PCM value at bitDepth.
func fullScale(bitDepth int) float64 {
	return float64(int64(1)<<(bitDepth-1) - 1)
}

// WriteWAV encodes samples as mono integer PCM. Samples outside [-1, 1] are
// clipped.
func WriteWAV(path string, samples []float64, sampleRate, bitDepth int) error {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	encoder := wav.NewEncoder(file, sampleRate, bitDepth, 1, wavFormatPCM)

	scale := fullScale(bitDepth)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: bitDepth,
	}
	clipped := 0
	for i, s := range samples {
		if s > 1 {
			s, clipped = 1, clipped+1
		} else if s < -1 {
			s, clipped = -1, clipped+1
		}
		buf.Data[i] = int(math.Round(s * scale))
	}
	if clipped > 0 {
		log.Warnf("audio: clipped %d of %d samples writing %s", clipped, len(samples), filepath.Base(path))
	}

	if err := encoder.Write(buf); err != nil {
		file.Close()
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := encoder.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to finalise WAV header: %w", err)
	}
	return file.Close()
}

// ReadWAV decodes a PCM WAV file into mono samples, averaging channels.
func ReadWAV(path string) ([]float64, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("%s: %w: not a valid WAV file", path, ErrUnsupportedFormat)
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode WAV data: %w", err)
	}

	channels := pcm.Format.NumChannels
	if channels <= 0 {
		return nil, 0, fmt.Errorf("%s: WAV file declares %d channels", path, channels)
	}
	samples := downmix(pcm.Data, channels, fullScale(int(decoder.BitDepth)))
	return samples, pcm.Format.SampleRate, nil
}

// ReadFile decodes a WAV or FLAC file chosen by extension.
func ReadFile(path string) ([]float64, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return ReadWAV(path)
	case ".flac":
		return ReadFLAC(path)
	default:
		return nil, 0, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// downmix averages interleaved integer frames into normalised mono samples.
func downmix[T int | int32](data []T, channels int, scale float64) []float64 {
	out := make([]float64, len(data)/channels)
	norm := 1 / (scale * float64(channels))
	for i := range out {
		sum := 0.0
		for c := range channels {
			sum += float64(data[i*channels+c])
		}
		out[i] = sum * norm
	}
	return out
}
