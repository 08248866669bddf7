// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"specsynth/internal/audio"
	"specsynth/internal/config"
	"specsynth/internal/log"
	"specsynth/internal/specio"
	"specsynth/internal/stft"
	"specsynth/internal/synth"
	"specsynth/internal/transport"
	"specsynth/internal/transport/udp"
)

// drainTimeout bounds how long a finished run waits for paced UDP frames.
const drainTimeout = 30 * time.Second

// openTransport builds the frame transports enabled in cfg. It returns a nil
// Transport when nothing is enabled. The returned closer drains pending
// frames before shutting everything down.
func openTransport(cfg *config.Config) (transport.Transport, func(context.Context), error) {
	var (
		fan     transport.Fanout
		closers []func(context.Context)
	)
	closeAll := func(ctx context.Context) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i](ctx)
		}
	}

	if cfg.Debug {
		fan = append(fan, transport.NewLoggingTransport(cfg.STFT.SampleRate))
	}

	if cfg.Transport.UDPEnabled {
		if bins := cfg.STFT.FFTSize/2 + 1; bins > udp.MaxMagnitudes {
			log.Warnf("UDP: %d bins per frame exceed the %d a datagram holds, frames will be dropped", bins, udp.MaxMagnitudes)
		}
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return nil, nil, err
		}
		publisher, err := udp.NewFramePublisher(cfg.Transport.UDPSendInterval, sender)
		if err != nil {
			sender.Close()
			return nil, nil, err
		}
		publisher.Start()
		fan = append(fan, publisher)
		closers = append(closers, func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, drainTimeout)
			defer cancel()
			if err := publisher.Drain(ctx); err != nil {
				log.Warnf("UDP: stopped with frames pending: %v", err)
			}
			publisher.Close()
			sender.Close()
		})
	}

	if cfg.Transport.WebSocketAddr != "" {
		wst, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr)
		if err != nil {
			closeAll(context.Background())
			return nil, nil, err
		}
		fan = append(fan, wst)
		closers = append(closers, func(context.Context) { wst.Close() })
	}

	if len(fan) == 0 {
		return nil, func(context.Context) {}, nil
	}
	return fan, closeAll, nil
}

// render synthesises cfg.Synthesis.Samples variations of mags.
func render(ctx context.Context, cfg *config.Config, mags [][]float64, publishPhases bool) ([]*synth.Result, error) {
	tr, closeTransport, err := openTransport(cfg)
	if err != nil {
		return nil, err
	}
	defer closeTransport(ctx)

	var opts []synth.SessionOption
	if tr != nil {
		opts = append(opts, synth.WithTransport(tr), synth.WithPublishedPhases(publishPhases))
	}
	session, err := synth.NewSession(cfg, opts...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var results []*synth.Result
	if n := cfg.Synthesis.Samples; n > 1 {
		if tr != nil {
			log.Infof("Frames are not published for batch renders")
		}
		results, err = session.Batch(ctx, mags, n)
	} else {
		var res *synth.Result
		res, err = session.Render(mags)
		results = []*synth.Result{res}
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"frames":     len(mags),
		"variations": len(results),
		"elapsed":    time.Since(start).Round(time.Millisecond),
	}).Info("Synthesis finished")
	return results, nil
}

// writeResults writes one WAV per result. With a single result out is used
// as given; otherwise a two digit index is inserted before the extension.
// An empty out writes <output.dir>/<base>.wav.
func writeResults(cfg *config.Config, results []*synth.Result, out, base string) error {
	if out == "" {
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		out = filepath.Join(cfg.Output.Dir, base+".wav")
	}

	sampleRate := int(cfg.STFT.SampleRate)
	for i, res := range results {
		path := out
		if len(results) > 1 {
			ext := filepath.Ext(out)
			path = fmt.Sprintf("%s-%02d%s", strings.TrimSuffix(out, ext), i, ext)
		}
		if err := audio.WriteWAV(path, res.Samples, sampleRate, cfg.Output.BitDepth); err != nil {
			return err
		}
		log.Infof("Wrote %s (%.2fs, seed %d)", path, float64(len(res.Samples))/cfg.STFT.SampleRate, res.Seed)
	}
	return nil
}

// loadSpectrogram reads a magnitude file and adopts its STFT geometry.
func loadSpectrogram(cfg *config.Config, path string) ([][]float64, error) {
	f, err := specio.ReadFile(path)
	if err != nil {
		return nil, err
	}

	adopt := func(name string, dst *int, v int) {
		if v > 0 && *dst != v {
			log.Infof("Using %s %d from %s (config has %d)", name, v, filepath.Base(path), *dst)
			*dst = v
		}
	}
	adopt("fft size", &cfg.STFT.FFTSize, f.FFTSize)
	adopt("hop size", &cfg.STFT.HopSize, f.HopSize)
	if f.SampleRate > 0 {
		cfg.STFT.SampleRate = float64(f.SampleRate)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Debugf("Loaded %s: %d frames x %d bins", path, len(f.Frames), f.NumBins())
	return f.Frames, nil
}

// analyse computes magnitudes from an audio file with the forward STFT.
func analyse(cfg *config.Config, path string) ([][]float64, error) {
	samples, sampleRate, err := audio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.STFT.SampleRate = float64(sampleRate)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	window, err := stft.ParseWindowFunc(cfg.STFT.Window)
	if err != nil {
		return nil, err
	}
	backend, err := stft.ParseBackend(cfg.STFT.Backend)
	if err != nil {
		return nil, err
	}
	if backend == stft.BackendGoDSP {
		backend = stft.BackendGonum
	}

	forward, err := stft.NewSTFT(cfg.STFT.FFTSize, cfg.STFT.AnalysisWindow(), cfg.STFT.HopSize,
		stft.WithAnalysisWindow(window),
		stft.WithCenterPadding(cfg.STFT.Center),
		stft.WithForwardBackend(backend),
	)
	if err != nil {
		return nil, err
	}
	spec, err := forward.Forward(samples)
	if err != nil {
		return nil, err
	}

	log.Debugf("Analysed %s: %d samples @ %d Hz -> %d frames", path, len(samples), sampleRate, spec.NumFrames())
	return spec.Magnitudes(), nil
}

// loadMagnitudes picks loadSpectrogram or analyse by file extension.
func loadMagnitudes(cfg *config.Config, path string) ([][]float64, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave", ".flac":
		return analyse(cfg, path)
	default:
		return loadSpectrogram(cfg, path)
	}
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
