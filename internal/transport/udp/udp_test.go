// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specsynth/internal/transport"
)

type recordingSender struct {
	mu      sync.Mutex
	packets [][]byte
}

func (r *recordingSender) Send(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packets = append(r.packets, bytes.Clone(data))
	return nil
}

func (r *recordingSender) snapshot() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.packets...)
}

func TestPacketRoundTrip(t *testing.T) {
	in := Packet{Sequence: 9, Timestamp: 123456789, FrameIndex: 4, Magnitudes: []float32{0, 1.5, -2}}
	var buf bytes.Buffer
	require.NoError(t, AppendPacket(&buf, in))
	assert.Equal(t, HeaderSize+3*4, buf.Len())

	// Sequence number leads, big endian.
	assert.Equal(t, []byte{0, 0, 0, 9}, buf.Bytes()[:4])

	out, err := DecodePacket(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodePacketErrors(t *testing.T) {
	_, err := DecodePacket(make([]byte, HeaderSize-1))
	assert.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, AppendPacket(&buf, Packet{Magnitudes: []float32{1, 2}}))
	_, err = DecodePacket(buf.Bytes()[:buf.Len()-1])
	assert.Error(t, err)
}

func TestAppendPacketTooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := AppendPacket(&buf, Packet{Magnitudes: make([]float32, 1<<16)})
	assert.Error(t, err)
}

func TestFrameQueue(t *testing.T) {
	var q FrameQueue
	_, ok := q.NextFrame()
	assert.False(t, ok)

	q.Push(transport.FrameEvent{Index: 1})
	q.Push(transport.FrameEvent{Index: 2})
	assert.Equal(t, 2, q.Len())

	f, ok := q.NextFrame()
	require.True(t, ok)
	assert.Equal(t, 1, f.Index)
	f, _ = q.NextFrame()
	assert.Equal(t, 2, f.Index)
	assert.Equal(t, 0, q.Len())
}

func TestFramePublisherPublishesInOrder(t *testing.T) {
	rec := &recordingSender{}
	p, err := NewFramePublisher(time.Millisecond, rec)
	require.NoError(t, err)

	for i := range 5 {
		require.NoError(t, p.Send(transport.FrameEvent{Index: i, Magnitudes: []float64{float64(i), 1}}))
	}
	require.NoError(t, p.Send(&transport.FrameEvent{Index: 5, Magnitudes: []float64{5, 1}}))

	p.Start()
	p.Start() // no-op
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Drain(ctx))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 6 }, 2*time.Second, time.Millisecond)
	require.NoError(t, p.Close())
	assert.NoError(t, p.Close())

	for i, raw := range rec.snapshot() {
		pkt, err := DecodePacket(raw)
		require.NoError(t, err)
		assert.Equal(t, uint32(i+1), pkt.Sequence)
		assert.Equal(t, uint32(i), pkt.FrameIndex)
		assert.Equal(t, []float32{float32(i), 1}, pkt.Magnitudes)
	}
	assert.Equal(t, uint32(6), p.Sent())
}

func TestFramePublisherRejects(t *testing.T) {
	_, err := NewFramePublisher(time.Millisecond, nil)
	assert.Error(t, err)
	_, err = NewSourcePublisher(time.Millisecond, &recordingSender{}, nil)
	assert.Error(t, err)

	p, err := NewFramePublisher(0, &recordingSender{})
	require.NoError(t, err)
	assert.Equal(t, 16*time.Millisecond, p.interval)
	assert.Error(t, p.Send("not a frame"))

	src, err := NewSourcePublisher(time.Millisecond, &recordingSender{}, &FrameQueue{})
	require.NoError(t, err)
	assert.Error(t, src.Send(transport.FrameEvent{}))
	assert.NoError(t, src.Drain(context.Background()))
}

func TestFramePublisherDrainCancelled(t *testing.T) {
	p, err := NewFramePublisher(time.Millisecond, &recordingSender{})
	require.NoError(t, err)
	require.NoError(t, p.Send(transport.FrameEvent{}))

	// Never started, so the queue never empties.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Drain(ctx), context.DeadlineExceeded)
}

func TestUDPSender(t *testing.T) {
	ln, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer ln.Close()

	s, err := NewUDPSender(ln.LocalAddr().String())
	require.NoError(t, err)
	assert.Equal(t, ln.LocalAddr().(*net.UDPAddr).Port, s.Target().Port)

	require.NoError(t, s.Send([]byte("frame")))

	require.NoError(t, ln.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 64)
	n, _, err := ln.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "frame", string(buf[:n]))

	assert.Equal(t, SenderStats{Packets: 1, Bytes: 5}, s.Stats())

	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.ErrorIs(t, s.Send([]byte("late")), ErrSenderClosed)
}

func TestUDPSenderOversizedFrame(t *testing.T) {
	ln, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer ln.Close()

	s, err := NewUDPSender(ln.LocalAddr().String())
	require.NoError(t, err)
	defer s.Close()

	var buf bytes.Buffer
	require.NoError(t, AppendPacket(&buf, Packet{Magnitudes: make([]float32, MaxMagnitudes)}))
	assert.LessOrEqual(t, buf.Len(), MaxDatagramSize)

	// 65536-point FFT frames have 32769 bins.
	buf.Reset()
	require.NoError(t, AppendPacket(&buf, Packet{Magnitudes: make([]float32, 32769)}))
	assert.ErrorIs(t, s.Send(buf.Bytes()), ErrDatagramTooLarge)

	buf.Reset()
	require.NoError(t, AppendPacket(&buf, Packet{Magnitudes: make([]float32, 513)}))
	require.NoError(t, s.Send(buf.Bytes()))

	assert.Equal(t, SenderStats{Packets: 1, Bytes: uint64(HeaderSize + 4*513), Dropped: 1}, s.Stats())
}

func TestUDPSenderBadAddress(t *testing.T) {
	_, err := NewUDPSender("no-port")
	assert.Error(t, err)
}
