// Package descriptors encodes and decodes the fixed-layout structs exchanged
// with the kernel through V4L2 and Media Controller ioctls.
//
// Every descriptor marshals into a byte slice of exactly the kernel struct's
// size in native byte order, so the slice can be handed to the ioctl directly
// and decoded again after the kernel has written into it.
package descriptors

import (
	"encoding"
	"encoding/binary"
	"errors"
	"io"
)

var ErrShortBuffer = io.ErrShortBuffer

var ErrInvalidDescriptor = errors.New("invalid descriptor")

var byteOrder = binary.NativeEndian

// Descriptor is a kernel struct that can be round-tripped through an ioctl.
type Descriptor interface {
	MarshalSize() int
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

func cstring(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

func putCString(dst []byte, s string) {
	n := copy(dst[:len(dst)-1], s)
	clear(dst[n:])
}

func marshal(d interface {
	MarshalSize() int
	MarshalInto([]byte) error
}) ([]byte, error) {
	buf := make([]byte, d.MarshalSize())
	return buf, d.MarshalInto(buf)
}
