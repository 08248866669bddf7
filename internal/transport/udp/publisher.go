// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"specsynth/internal/log"
	"specsynth/internal/transport"
)

// PacketSender writes one datagram. UDPSender is the production implementation.
type PacketSender interface {
	Send(data []byte) error
}

// FrameSource yields frames to publish. ok is false when nothing is pending.
type FrameSource interface {
	NextFrame() (frame transport.FrameEvent, ok bool)
}

// FrameQueue is an unbounded FIFO FrameSource fed by Push.
type FrameQueue struct {
	mu     sync.Mutex
	frames []transport.FrameEvent
}

// Push appends a frame.
func (q *FrameQueue) Push(f transport.FrameEvent) {
	q.mu.Lock()
	q.frames = append(q.frames, f)
	q.mu.Unlock()
}

// NextFrame pops the oldest frame.
func (q *FrameQueue) NextFrame() (transport.FrameEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return transport.FrameEvent{}, false
	}
	f := q.frames[0]
	q.frames[0] = transport.FrameEvent{}
	q.frames = q.frames[1:]
	return f, true
}

// Len returns the number of pending frames.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

/*
UDP Packet Structure (BigEndian)

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 4 Bytes -->|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |  Frame Index  |   Magnitude   |       Magnitudes        |
|      (uint32)     |   (int64, unix ns)    |    (uint32)   |  Count (u16)  |      (N * float32)      |
+-------------------+-----------------------+---------------+---------------+-------------------------+
*/

// HeaderSize is the fixed packet prefix before the magnitudes.
const HeaderSize = 4 + 8 + 4 + 2

// Packet is a decoded frame datagram.
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	FrameIndex uint32
	Magnitudes []float32
}

// AppendPacket encodes p onto buf.
func AppendPacket(buf *bytes.Buffer, p Packet) error {
	if len(p.Magnitudes) > math.MaxUint16 {
		return fmt.Errorf("udp: %d magnitudes exceed packet limit %d", len(p.Magnitudes), math.MaxUint16)
	}
	var hdr [HeaderSize]byte
	binary.BigEndian.PutUint32(hdr[0:], p.Sequence)
	binary.BigEndian.PutUint64(hdr[4:], uint64(p.Timestamp))
	binary.BigEndian.PutUint32(hdr[12:], p.FrameIndex)
	binary.BigEndian.PutUint16(hdr[16:], uint16(len(p.Magnitudes)))
	buf.Write(hdr[:])
	return binary.Write(buf, binary.BigEndian, p.Magnitudes)
}

// DecodePacket parses a datagram produced by AppendPacket.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < HeaderSize {
		return Packet{}, fmt.Errorf("udp: packet of %d bytes is shorter than header", len(data))
	}
	p := Packet{
		Sequence:   binary.BigEndian.Uint32(data[0:]),
		Timestamp:  int64(binary.BigEndian.Uint64(data[4:])),
		FrameIndex: binary.BigEndian.Uint32(data[12:]),
	}
	n := int(binary.BigEndian.Uint16(data[16:]))
	if len(data) != HeaderSize+4*n {
		return Packet{}, fmt.Errorf("udp: packet declares %d magnitudes but carries %d bytes", n, len(data)-HeaderSize)
	}
	p.Magnitudes = make([]float32, n)
	for i := range p.Magnitudes {
		p.Magnitudes[i] = math.Float32frombits(binary.BigEndian.Uint32(data[HeaderSize+4*i:]))
	}
	return p, nil
}

// FramePublisher paces synthesis frames onto UDP. Frames handed to Send are
// queued and one frame is sent per interval, so listeners see the spectrum
// at roughly playback speed no matter how fast synthesis runs.
type FramePublisher struct {
	sender   PacketSender
	source   FrameSource
	queue    *FrameQueue
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequenceNum  uint32
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewFramePublisher creates a publisher fed by its own FrameQueue.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewFramePublisher(interval time.Duration, sender PacketSender) (*FramePublisher, error) {
	q := &FrameQueue{}
	p, err := NewSourcePublisher(interval, sender, q)
	if err != nil {
		return nil, err
	}
	p.queue = q
	return p, nil
}

// NewSourcePublisher creates a publisher that drains an external FrameSource.
// Send is not supported on such a publisher.
func NewSourcePublisher(interval time.Duration, sender PacketSender, source FrameSource) (*FramePublisher, error) {
	if sender == nil {
		return nil, errors.New("FramePublisher: UDP sender cannot be nil")
	}
	if source == nil {
		return nil, errors.New("FramePublisher: frame source cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		log.Warnf("FramePublisher: Invalid interval provided, defaulting to %s", interval)
	}
	return &FramePublisher{
		sender:       sender,
		source:       source,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start begins the periodic publishing process. Calling Start on a running
// publisher is a no-op.
func (p *FramePublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("FramePublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Capture for the goroutine to avoid racing Stop on p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Debugf("FramePublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publishNext()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to exit.
// Pending frames stay queued. Stop is idempotent.
func (p *FramePublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	p.wg.Wait()
	log.Debugf("FramePublisher: Publisher goroutine finished after %d packets.", p.Sent())
	return nil
}

// Sent returns the number of packets sent so far.
func (p *FramePublisher) Sent() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sequenceNum
}

// Send queues a transport.FrameEvent (or pointer to one) for publishing.
func (p *FramePublisher) Send(data any) error {
	if p.queue == nil {
		return errors.New("FramePublisher: Send requires a queue-backed publisher")
	}
	switch v := data.(type) {
	case transport.FrameEvent:
		p.queue.Push(v)
	case *transport.FrameEvent:
		p.queue.Push(*v)
	default:
		return fmt.Errorf("FramePublisher: unsupported payload %T", data)
	}
	return nil
}

// Drain blocks until the queue is empty or ctx is done.
func (p *FramePublisher) Drain(ctx context.Context) error {
	if p.queue == nil {
		return nil
	}
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for p.queue.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// publishNext pulls one frame from the source, packs it and sends it.
// Ticks with nothing pending send nothing.
func (p *FramePublisher) publishNext() {
	frame, ok := p.source.NextFrame()
	if !ok {
		return
	}

	if cap(p.f32Buffer) < len(frame.Magnitudes) {
		p.f32Buffer = make([]float32, len(frame.Magnitudes))
	}
	p.f32Buffer = p.f32Buffer[:len(frame.Magnitudes)]
	for i, v := range frame.Magnitudes {
		p.f32Buffer[i] = float32(v)
	}

	p.mu.Lock()
	p.sequenceNum++
	seq := p.sequenceNum
	p.mu.Unlock()

	p.packetBuffer.Reset()
	err := AppendPacket(p.packetBuffer, Packet{
		Sequence:   seq,
		Timestamp:  time.Now().UnixNano(),
		FrameIndex: uint32(frame.Index),
		Magnitudes: p.f32Buffer,
	})
	if err != nil {
		log.Errorf("FramePublisher: Error packing frame %d: %v", frame.Index, err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		log.Debugf("FramePublisher: Frame %d not sent: %v", frame.Index, err)
		return
	}
	log.Debugf("FramePublisher: Sent packet %d (frame %d, %d bytes)", seq, frame.Index, p.packetBuffer.Len())
}

// Close stops the publisher. The sender is owned by the caller.
func (p *FramePublisher) Close() error {
	return p.Stop()
}

var _ transport.Transport = (*FramePublisher)(nil)
