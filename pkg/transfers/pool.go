package transfers

import (
	"errors"
	"fmt"
	"time"

	"github.com/kevmo314/go-megapixels/pkg/descriptors"
	"github.com/kevmo314/go-megapixels/pkg/device"
	"github.com/kevmo314/go-megapixels/pkg/requests"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

var (
	ErrNoMmap              = errors.New("device does not support memory mapping")
	ErrInsufficientBuffers = errors.New("insufficient buffer memory")
	ErrTimeout             = errors.New("timed out waiting for a frame")
	ErrOwnership           = errors.New("buffer ownership violation")
	ErrPoolInitialized     = errors.New("buffer pool already initialized")
	ErrPoolEmpty           = errors.New("buffer pool not initialized")
)

const (
	DefaultBufferCount = 4
	MinBufferCount     = 2
	DefaultWait        = 2 * time.Second
)

// Owner records which side currently holds a slot.
type Owner int

const (
	OwnerApp Owner = iota
	OwnerKernel
)

func (o Owner) String() string {
	if o == OwnerKernel {
		return "kernel"
	}
	return "app"
}

// Slot is one kernel buffer mapped into the process.
type Slot struct {
	Index  uint32
	Offset uint32
	Data   []byte
	Owner  Owner
}

// Buffer is a filled slot handed to the application by Dequeue. Data is the
// valid prefix of the mapping and is only usable until the buffer is queued
// again.
type Buffer struct {
	Index     uint32
	Data      []byte
	Sequence  uint32
	Timestamp time.Duration
}

// BufferPool owns the mmap buffers of one capture node.
type BufferPool struct {
	h         device.StreamHandle
	slots     []*Slot
	streaming bool
	logger    *zap.Logger
}

func NewBufferPool(h device.StreamHandle, logger *zap.Logger) *BufferPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BufferPool{h: h, logger: logger}
}

// Len is the number of mapped slots.
func (p *BufferPool) Len() int { return len(p.slots) }

// Slot returns the slot with the given kernel index.
func (p *BufferPool) Slot(index uint32) (*Slot, bool) {
	if int(index) >= len(p.slots) {
		return nil, false
	}
	return p.slots[index], true
}

func (p *BufferPool) Streaming() bool { return p.streaming }

// InitMmap requests count buffers and maps every buffer the driver grants.
// Fewer than MinBufferCount is an error.
func (p *BufferPool) InitMmap(count uint32) error {
	if len(p.slots) > 0 {
		return ErrPoolInitialized
	}
	if count == 0 {
		count = DefaultBufferCount
	}
	rb := descriptors.RequestBuffers{
		Count:  count,
		Type:   requests.BufTypeVideoCapture,
		Memory: requests.MemoryMmap,
	}
	if err := device.Do(p.h, requests.VidiocReqBufs, &rb); err != nil {
		if errors.Is(err, unix.EINVAL) {
			return fmt.Errorf("%w: %w", ErrNoMmap, err)
		}
		return fmt.Errorf("request buffers: %w", err)
	}
	if rb.Count < MinBufferCount {
		p.release()
		return fmt.Errorf("%w: granted %d", ErrInsufficientBuffers, rb.Count)
	}
	for i := uint32(0); i < rb.Count; i++ {
		b := descriptors.Buffer{Index: i, Type: requests.BufTypeVideoCapture, Memory: requests.MemoryMmap}
		if err := device.Do(p.h, requests.VidiocQueryBuf, &b); err != nil {
			p.unmap()
			return fmt.Errorf("query buffer %d: %w", i, err)
		}
		data, err := p.h.Mmap(int64(b.Offset), int(b.Length))
		if err != nil {
			p.unmap()
			return fmt.Errorf("mmap buffer %d: %w", i, err)
		}
		p.slots = append(p.slots, &Slot{Index: i, Offset: b.Offset, Data: data, Owner: OwnerApp})
	}
	p.logger.Debug("mapped buffers", zap.Uint32("requested", count), zap.Int("granted", len(p.slots)))
	return nil
}

// Start queues every slot and turns streaming on.
func (p *BufferPool) Start() error {
	if len(p.slots) == 0 {
		return ErrPoolEmpty
	}
	for _, s := range p.slots {
		if s.Owner == OwnerKernel {
			continue
		}
		if err := p.queue(s); err != nil {
			return err
		}
	}
	st := descriptors.StreamType(requests.BufTypeVideoCapture)
	if err := device.Do(p.h, requests.VidiocStreamOn, &st); err != nil {
		return fmt.Errorf("stream on: %w", err)
	}
	p.streaming = true
	return nil
}

// Stop turns streaming off, unmaps every slot and releases the kernel pool.
// InitMmap must run again before the next Start.
func (p *BufferPool) Stop() error {
	var err error
	if p.streaming {
		st := descriptors.StreamType(requests.BufTypeVideoCapture)
		if e := device.Do(p.h, requests.VidiocStreamOff, &st); e != nil {
			err = multierr.Append(err, fmt.Errorf("stream off: %w", e))
		}
		p.streaming = false
	}
	err = multierr.Append(err, p.unmap())
	return err
}

func (p *BufferPool) unmap() error {
	var err error
	for _, s := range p.slots {
		if e := p.h.Munmap(s.Data); e != nil {
			err = multierr.Append(err, fmt.Errorf("munmap buffer %d: %w", s.Index, e))
		}
	}
	p.slots = nil
	return multierr.Append(err, p.release())
}

func (p *BufferPool) release() error {
	rb := descriptors.RequestBuffers{Type: requests.BufTypeVideoCapture, Memory: requests.MemoryMmap}
	if err := device.Do(p.h, requests.VidiocReqBufs, &rb); err != nil {
		return fmt.Errorf("release buffers: %w", err)
	}
	return nil
}

// Wait blocks until a filled buffer is ready, or fails with ErrTimeout.
func (p *BufferPool) Wait(timeout time.Duration) error {
	ok, err := p.h.WaitReadable(timeout)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w after %v", ErrTimeout, timeout)
	}
	return nil
}

// Dequeue takes a filled buffer from the driver. It reports false, without
// error, when no buffer is ready yet.
func (p *BufferPool) Dequeue() (*Buffer, bool, error) {
	b := descriptors.Buffer{Type: requests.BufTypeVideoCapture, Memory: requests.MemoryMmap}
	if err := device.Do(p.h, requests.VidiocDQBuf, &b); err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("dequeue buffer: %w", err)
	}
	s, ok := p.Slot(b.Index)
	if !ok {
		return nil, false, fmt.Errorf("dequeue buffer: driver returned index %d of %d", b.Index, len(p.slots))
	}
	if s.Owner == OwnerApp {
		return nil, false, fmt.Errorf("%w: buffer %d dequeued twice", ErrOwnership, b.Index)
	}
	s.Owner = OwnerApp
	n := int(b.BytesUsed)
	if n == 0 || n > len(s.Data) {
		n = len(s.Data)
	}
	return &Buffer{Index: b.Index, Data: s.Data[:n], Sequence: b.Sequence, Timestamp: b.Timestamp}, true, nil
}

// Queue hands a dequeued buffer back to the driver.
func (p *BufferPool) Queue(b *Buffer) error {
	s, ok := p.Slot(b.Index)
	if !ok {
		return fmt.Errorf("queue buffer: unknown index %d", b.Index)
	}
	if s.Owner == OwnerKernel {
		return fmt.Errorf("%w: buffer %d queued twice", ErrOwnership, b.Index)
	}
	return p.queue(s)
}

func (p *BufferPool) queue(s *Slot) error {
	b := descriptors.Buffer{Index: s.Index, Type: requests.BufTypeVideoCapture, Memory: requests.MemoryMmap}
	if err := device.Do(p.h, requests.VidiocQBuf, &b); err != nil {
		return fmt.Errorf("queue buffer %d: %w", s.Index, err)
	}
	s.Owner = OwnerKernel
	return nil
}

// Next waits for and dequeues the next filled buffer, waiting again
// whenever the driver reports that none is ready.
func (p *BufferPool) Next(timeout time.Duration) (*Buffer, error) {
	for {
		if err := p.Wait(timeout); err != nil {
			return nil, err
		}
		b, ok, err := p.Dequeue()
		if err != nil {
			return nil, err
		}
		if ok {
			return b, nil
		}
	}
}
