// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// ReadFLAC decodes a FLAC file into mono samples, averaging channels.
func ReadFLAC(path string) ([]float64, int, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open FLAC stream: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	if channels == 0 {
		return nil, 0, fmt.Errorf("%s: FLAC stream declares no channels", path)
	}
	scale := fullScale(int(info.BitsPerSample))

	samples := make([]float64, 0, info.NSamples)
	interleaved := make([]int32, 0, 4096*channels)
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to decode FLAC frame: %w", err)
		}

		n := len(frame.Subframes[0].Samples)
		interleaved = interleaved[:0]
		for i := range n {
			for c := range channels {
				interleaved = append(interleaved, frame.Subframes[c].Samples[i])
			}
		}
		samples = append(samples, downmix(interleaved, channels, scale)...)
	}

	return samples, int(info.SampleRate), nil
}
