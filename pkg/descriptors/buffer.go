package descriptors

import (
	"time"

	"github.com/kevmo314/go-megapixels/pkg/requests"
)

// RequestBuffers is struct v4l2_requestbuffers.
type RequestBuffers struct {
	Count        uint32
	Type         requests.BufType
	Memory       requests.Memory
	Capabilities uint32
	Flags        uint8
}

func (rb *RequestBuffers) MarshalSize() int { return requests.SizeRequestBuffers }

func (rb *RequestBuffers) MarshalInto(buf []byte) error {
	if len(buf) < rb.MarshalSize() {
		return ErrShortBuffer
	}
	byteOrder.PutUint32(buf[0:4], rb.Count)
	byteOrder.PutUint32(buf[4:8], uint32(rb.Type))
	byteOrder.PutUint32(buf[8:12], uint32(rb.Memory))
	byteOrder.PutUint32(buf[12:16], rb.Capabilities)
	buf[16] = rb.Flags
	clear(buf[17:20])
	return nil
}

func (rb *RequestBuffers) MarshalBinary() ([]byte, error) { return marshal(rb) }

func (rb *RequestBuffers) UnmarshalBinary(buf []byte) error {
	if len(buf) < rb.MarshalSize() {
		return ErrShortBuffer
	}
	rb.Count = byteOrder.Uint32(buf[0:4])
	rb.Type = requests.BufType(byteOrder.Uint32(buf[4:8]))
	rb.Memory = requests.Memory(byteOrder.Uint32(buf[8:12]))
	rb.Capabilities = byteOrder.Uint32(buf[12:16])
	rb.Flags = buf[16]
	return nil
}

// Buffer is struct v4l2_buffer for single-planar mmap I/O. Offset is the
// m.offset union member, the only one meaningful for MemoryMmap.
type Buffer struct {
	Index     uint32
	Type      requests.BufType
	BytesUsed uint32
	Flags     uint32
	Field     requests.Field
	Timestamp time.Duration
	Sequence  uint32
	Memory    requests.Memory
	Offset    uint32
	Length    uint32
}

func (b *Buffer) MarshalSize() int { return requests.SizeBuffer }

func (b *Buffer) MarshalInto(buf []byte) error {
	if len(buf) < b.MarshalSize() {
		return ErrShortBuffer
	}
	clear(buf[:b.MarshalSize()])
	byteOrder.PutUint32(buf[0:4], b.Index)
	byteOrder.PutUint32(buf[4:8], uint32(b.Type))
	byteOrder.PutUint32(buf[8:12], b.BytesUsed)
	byteOrder.PutUint32(buf[12:16], b.Flags)
	byteOrder.PutUint32(buf[16:20], uint32(b.Field))
	ts := bufferTimestampOffset
	putWord(buf[ts:], int64(b.Timestamp/time.Second))
	putWord(buf[ts+bufferTimevalWord:], int64(b.Timestamp%time.Second/time.Microsecond))
	byteOrder.PutUint32(buf[bufferSequenceOffset:], b.Sequence)
	byteOrder.PutUint32(buf[bufferMemoryOffset:], uint32(b.Memory))
	byteOrder.PutUint32(buf[bufferMOffset:], b.Offset)
	byteOrder.PutUint32(buf[bufferLengthOffset:], b.Length)
	return nil
}

func (b *Buffer) MarshalBinary() ([]byte, error) { return marshal(b) }

func (b *Buffer) UnmarshalBinary(buf []byte) error {
	if len(buf) < b.MarshalSize() {
		return ErrShortBuffer
	}
	b.Index = byteOrder.Uint32(buf[0:4])
	b.Type = requests.BufType(byteOrder.Uint32(buf[4:8]))
	b.BytesUsed = byteOrder.Uint32(buf[8:12])
	b.Flags = byteOrder.Uint32(buf[12:16])
	b.Field = requests.Field(byteOrder.Uint32(buf[16:20]))
	ts := bufferTimestampOffset
	sec := getWord(buf[ts:])
	usec := getWord(buf[ts+bufferTimevalWord:])
	b.Timestamp = time.Duration(sec)*time.Second + time.Duration(usec)*time.Microsecond
	b.Sequence = byteOrder.Uint32(buf[bufferSequenceOffset:])
	b.Memory = requests.Memory(byteOrder.Uint32(buf[bufferMemoryOffset:]))
	b.Offset = byteOrder.Uint32(buf[bufferMOffset:])
	b.Length = byteOrder.Uint32(buf[bufferLengthOffset:])
	return nil
}

// StreamType is the enum v4l2_buf_type argument of VIDIOC_STREAMON/OFF.
type StreamType requests.BufType

func (st *StreamType) MarshalSize() int { return requests.SizeBufType }

func (st *StreamType) MarshalInto(buf []byte) error {
	if len(buf) < st.MarshalSize() {
		return ErrShortBuffer
	}
	byteOrder.PutUint32(buf[0:4], uint32(*st))
	return nil
}

func (st *StreamType) MarshalBinary() ([]byte, error) { return marshal(st) }

func (st *StreamType) UnmarshalBinary(buf []byte) error {
	if len(buf) < st.MarshalSize() {
		return ErrShortBuffer
	}
	*st = StreamType(byteOrder.Uint32(buf[0:4]))
	return nil
}
