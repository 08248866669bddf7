// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"specsynth/internal/log"
)

// MaxDatagramSize is the largest UDP payload over IPv4.
const MaxDatagramSize = 65507

// MaxMagnitudes is the largest frame that fits one datagram. Frames from FFT
// sizes above 32742 exceed it.
const MaxMagnitudes = (MaxDatagramSize - HeaderSize) / 4

var (
	// ErrSenderClosed is returned by Send after Close.
	ErrSenderClosed = errors.New("UDP sender is closed")

	// ErrDatagramTooLarge is returned for payloads above MaxDatagramSize.
	ErrDatagramTooLarge = errors.New("frame packet exceeds UDP datagram size")
)

// SenderStats counts what a UDPSender has put on the wire.
type SenderStats struct {
	Packets uint64
	Bytes   uint64
	Dropped uint64
}

// UDPSender writes encoded frame packets to one listener.
type UDPSender struct {
	mu     sync.Mutex
	conn   *net.UDPConn
	target *net.UDPAddr
	stats  SenderStats
	closed bool
}

// NewUDPSender connects to a frame listener at targetAddress ("host:port").
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	target, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP frame target '%s': %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, target)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP frame target '%s': %w", targetAddress, err)
	}

	log.Infof("UDP: streaming frames to %s (up to %d bins per frame)", conn.RemoteAddr(), MaxMagnitudes)
	return &UDPSender{conn: conn, target: target}, nil
}

// Target returns the resolved listener address.
func (s *UDPSender) Target() *net.UDPAddr { return s.target }

// Stats returns a snapshot of the send counters.
func (s *UDPSender) Stats() SenderStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Send writes one packet. Oversized packets and write failures count as
// dropped.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSenderClosed
	}
	if len(data) > MaxDatagramSize {
		s.stats.Dropped++
		return fmt.Errorf("%w: %d bytes, %d magnitudes", ErrDatagramTooLarge, len(data), (len(data)-HeaderSize)/4)
	}

	n, err := s.conn.Write(data)
	if err != nil {
		s.stats.Dropped++
		log.Debugf("UDP: write to %s failed: %v", s.target, err)
		return fmt.Errorf("failed to send frame packet: %w", err)
	}
	s.stats.Packets++
	s.stats.Bytes += uint64(n)
	return nil
}

// Close logs the totals and closes the connection. It is idempotent.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	log.WithFields(log.Fields{
		"target":  s.target.String(),
		"packets": s.stats.Packets,
		"bytes":   s.stats.Bytes,
		"dropped": s.stats.Dropped,
	}).Debug("UDP: sender closed")

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}

var _ PacketSender = (*UDPSender)(nil)
