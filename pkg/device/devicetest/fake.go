// Package devicetest provides in-memory device handles for exercising the
// capture stack without hardware.
package devicetest

import (
	"sync"
	"time"

	"github.com/kevmo314/go-megapixels/pkg/device"
	"github.com/kevmo314/go-megapixels/pkg/requests"
	"golang.org/x/sys/unix"
)

// Call is one recorded ioctl. Arg is a copy of the argument as it was passed
// in, before the handler touched it.
type Call struct {
	Request requests.Request
	Arg     []byte
}

// Fake is a programmable device.StreamHandle. A nil Handler answers every
// ioctl with ENOTTY, like a node that is not a V4L2 device.
type Fake struct {
	Path     string
	Handler  func(req requests.Request, arg []byte) error
	MmapFunc func(offset int64, length int) ([]byte, error)
	Readable func(timeout time.Duration) (bool, error)

	mu     sync.Mutex
	calls  []Call
	closed bool
	mapped int
}

var _ device.StreamHandle = (*Fake)(nil)

func (f *Fake) Ioctl(req requests.Request, arg []byte) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return device.ErrClosed
	}
	f.calls = append(f.calls, Call{Request: req, Arg: append([]byte(nil), arg...)})
	handler := f.Handler
	f.mu.Unlock()
	if handler == nil {
		return &device.IoctlError{Request: req, Err: unix.ENOTTY}
	}
	if err := handler(req, arg); err != nil {
		return &device.IoctlError{Request: req, Err: err}
	}
	return nil
}

func (f *Fake) Mmap(offset int64, length int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, device.ErrClosed
	}
	var b []byte
	if f.MmapFunc != nil {
		var err error
		if b, err = f.MmapFunc(offset, length); err != nil {
			return nil, err
		}
	} else {
		b = make([]byte, length)
	}
	f.mapped++
	return b, nil
}

func (f *Fake) Munmap(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mapped--
	return nil
}

func (f *Fake) WaitReadable(timeout time.Duration) (bool, error) {
	if f.Readable == nil {
		return true, nil
	}
	return f.Readable(timeout)
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return device.ErrClosed
	}
	f.closed = true
	return nil
}

// Calls returns the ioctls issued so far.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Requests returns the request numbers issued so far, in order.
func (f *Fake) Requests() []requests.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	reqs := make([]requests.Request, len(f.calls))
	for i, c := range f.calls {
		reqs[i] = c.Request
	}
	return reqs
}

func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Mapped is the number of live mappings.
func (f *Fake) Mapped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mapped
}
