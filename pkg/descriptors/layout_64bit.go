//go:build amd64 || arm64 || riscv64 || ppc64le || loong64 || mips64le || s390x

package descriptors

const (
	formatPixOffset = 8

	bufferTimestampOffset = 24
	bufferTimevalWord     = 8
	bufferSequenceOffset  = 56
	bufferMemoryOffset    = 60
	bufferMOffset         = 64
	bufferLengthOffset    = 72
)

func getWord(buf []byte) int64 { return int64(byteOrder.Uint64(buf)) }

func putWord(buf []byte, v int64) { byteOrder.PutUint64(buf, uint64(v)) }
