// Package device wraps the character device nodes exposed by V4L2 and the
// Media Controller: ioctls, memory mapping and readiness polling.
package device

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"
	"unsafe"

	"github.com/kevmo314/go-megapixels/pkg/descriptors"
	"github.com/kevmo314/go-megapixels/pkg/requests"
	"golang.org/x/sys/unix"
)

var ErrClosed = errors.New("device closed")

// Handle is an open device node that accepts ioctls.
type Handle interface {
	Ioctl(req requests.Request, arg []byte) error
	Close() error
}

// StreamHandle is a video capture node: in addition to ioctls it can map
// driver buffers and wait for a filled buffer to become available.
type StreamHandle interface {
	Handle
	Mmap(offset int64, length int) ([]byte, error)
	Munmap(b []byte) error
	WaitReadable(timeout time.Duration) (bool, error)
}

// Opener opens a device node. Open satisfies it; tests substitute fakes.
type Opener func(path string, flags int) (StreamHandle, error)

// IoctlError is returned when the kernel rejects an ioctl. It unwraps to the
// errno so callers can test for unix.EINVAL, unix.EAGAIN and friends.
type IoctlError struct {
	Request requests.Request
	Err     error
}

func (e *IoctlError) Error() string { return fmt.Sprintf("%s: %v", e.Request, e.Err) }

func (e *IoctlError) Unwrap() error { return e.Err }

// File is a device node opened directly through open(2). The raw descriptor
// is kept instead of an *os.File so the runtime poller never switches it back
// to blocking mode.
type File struct {
	fd   int
	path string
}

var _ StreamHandle = (*File)(nil)

// Open opens path with the given open(2) flags. O_CLOEXEC is always added.
func Open(path string, flags int) (StreamHandle, error) {
	fd, err := unix.Open(path, flags|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return &File{fd: fd, path: path}, nil
}

func (f *File) Name() string { return f.path }

func (f *File) Fd() uintptr { return uintptr(f.fd) }

func (f *File) Ioctl(req requests.Request, arg []byte) error {
	if f.fd < 0 {
		return ErrClosed
	}
	var p unsafe.Pointer
	if len(arg) > 0 {
		p = unsafe.Pointer(&arg[0])
	}
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(f.fd), uintptr(req), uintptr(p))
		if errno == unix.EINTR {
			continue
		}
		runtime.KeepAlive(arg)
		if errno != 0 {
			return &IoctlError{Request: req, Err: errno}
		}
		return nil
	}
}

func (f *File) Mmap(offset int64, length int) ([]byte, error) {
	if f.fd < 0 {
		return nil, ErrClosed
	}
	return unix.Mmap(f.fd, offset, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func (f *File) Munmap(b []byte) error {
	return unix.Munmap(b)
}

// WaitReadable blocks until the node is readable or timeout elapses. It
// reports false on timeout.
func (f *File) WaitReadable(timeout time.Duration) (bool, error) {
	if f.fd < 0 {
		return false, ErrClosed
	}
	fds := []unix.PollFd{{Fd: int32(f.fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, int(timeout/time.Millisecond))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("poll %s: %w", f.path, err)
		}
		return n > 0, nil
	}
}

func (f *File) Close() error {
	if f.fd < 0 {
		return ErrClosed
	}
	err := unix.Close(f.fd)
	f.fd = -1
	return err
}

// Do marshals d, issues req on h and decodes the kernel's reply back into d.
func Do(h Handle, req requests.Request, d descriptors.Descriptor) error {
	buf, err := d.MarshalBinary()
	if err != nil {
		return err
	}
	if err := h.Ioctl(req, buf); err != nil {
		return err
	}
	return d.UnmarshalBinary(buf)
}
