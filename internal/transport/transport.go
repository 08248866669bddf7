// SPDX-License-Identifier: MIT
package transport

import "errors"

// Transport defines a generic interface for sending synthesis frames or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// FrameEvent is one synthesis frame as published to listeners: the magnitudes
// that went into the inverse transform and, when requested, the synthetic
// phases that were paired with them.
type FrameEvent struct {
	Index      int       `json:"index"`
	Magnitudes []float64 `json:"magnitudes"`
	Phases     []float64 `json:"phases,omitempty"`
}

// Fanout sends every value to each of its transports in order.
type Fanout []Transport

// Send forwards data to every transport and joins their errors.
func (f Fanout) Send(data any) error {
	var errs []error
	for _, t := range f {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins their errors.
func (f Fanout) Close() error {
	var errs []error
	for _, t := range f {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Fanout(nil)
