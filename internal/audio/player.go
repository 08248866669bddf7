// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"

	"specsynth/internal/log"
)

// DefaultFramesPerBuffer balances latency against write overhead.
const DefaultFramesPerBuffer = 512

// Player plays mono buffers on one output device through a blocking
// PortAudio stream. PortAudio must be initialized for the Player's lifetime.
type Player struct {
	device          *portaudio.DeviceInfo
	latency         time.Duration
	sampleRate      float64
	framesPerBuffer int

	stream *portaudio.Stream
	out    []float32
}

// NewPlayer opens an output stream on deviceID (-1 for the default device).
func NewPlayer(deviceID int, sampleRate float64, lowLatency bool) (*Player, error) {
	device, err := OutputDevice(deviceID)
	if err != nil {
		return nil, err
	}

	p := &Player{
		device:          device,
		sampleRate:      sampleRate,
		framesPerBuffer: DefaultFramesPerBuffer,
		out:             make([]float32, DefaultFramesPerBuffer),
	}
	if lowLatency {
		p.latency = device.DefaultLowOutputLatency
	} else {
		p.latency = device.DefaultHighOutputLatency
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   device,
			Latency:  p.latency,
		},
		FramesPerBuffer: p.framesPerBuffer,
		SampleRate:      sampleRate,
	}

	// Passing a buffer instead of a callback opens a blocking stream.
	stream, err := portaudio.OpenStream(params, p.out)
	if err != nil {
		return nil, fmt.Errorf("failed to open output stream on %s: %w", device.Name, err)
	}
	p.stream = stream

	log.Debugf("audio: output stream on %s (%.0f Hz, latency %s)", device.Name, sampleRate, p.latency)
	return p, nil
}

// DeviceName returns the name of the device being played to.
func (p *Player) DeviceName() string { return p.device.Name }

// Play writes samples to the device and blocks until they are queued or
// ctx is cancelled.
func (p *Player) Play(ctx context.Context, samples []float64) error {
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	defer func() {
		if err := p.stream.Stop(); err != nil {
			log.Warnf("audio: stopping output stream: %v", err)
		}
	}()

	for off := 0; off < len(samples); off += p.framesPerBuffer {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := copyChunk(p.out, samples[off:])
		for i := n; i < len(p.out); i++ {
			p.out[i] = 0
		}

		if err := p.stream.Write(); err != nil {
			if err == portaudio.OutputUnderflowed {
				log.Debugf("audio: output underflow at sample %d", off)
				continue
			}
			return fmt.Errorf("failed to write output stream: %w", err)
		}
	}
	return nil
}

// Close releases the stream.
func (p *Player) Close() error {
	if p.stream == nil {
		return nil
	}
	err := p.stream.Close()
	p.stream = nil
	return err
}

// copyChunk converts up to len(dst) samples into dst and returns the count.
func copyChunk(dst []float32, src []float64) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = float32(src[i])
	}
	return n
}
