// SPDX-License-Identifier: MIT
package transport

import (
	"specsynth/internal/log"
)

// LoggingTransport implements the Transport interface by logging a per-band
// summary of each frame at debug level.
type LoggingTransport struct {
	sampleRate float64
}

// NewLoggingTransport creates a LoggingTransport for frames at sampleRate.
func NewLoggingTransport(sampleRate float64) *LoggingTransport {
	log.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{sampleRate: sampleRate}
}

// Send logs the received data. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	if log.GetLevel() > log.LevelDebug {
		return nil
	}
	switch v := data.(type) {
	case FrameEvent:
		lt.logFrame(&v)
	case *FrameEvent:
		lt.logFrame(v)
	default:
		log.Debugf("LOG_TRANSPORT: Received (%T)", data)
	}
	return nil
}

func (lt *LoggingTransport) logFrame(e *FrameEvent) {
	fields := log.Fields{
		"frame": e.Index,
		"bins":  len(e.Magnitudes),
	}
	for i, energy := range BandEnergies(e.Magnitudes, lt.sampleRate, DefaultBands) {
		fields[DefaultBands[i].Name] = energy
	}
	log.WithFields(fields).Debug("LOG_TRANSPORT: frame")
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	log.Debugf("LOG_TRANSPORT: Close called.")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
