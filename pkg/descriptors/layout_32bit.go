//go:build arm || 386 || mipsle

package descriptors

const (
	formatPixOffset = 4

	bufferTimestampOffset = 20
	bufferTimevalWord     = 4
	bufferSequenceOffset  = 44
	bufferMemoryOffset    = 48
	bufferMOffset         = 52
	bufferLengthOffset    = 56
)

func getWord(buf []byte) int64 { return int64(int32(byteOrder.Uint32(buf))) }

func putWord(buf []byte, v int64) { byteOrder.PutUint32(buf, uint32(v)) }
