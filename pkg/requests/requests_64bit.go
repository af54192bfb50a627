//go:build amd64 || arm64 || riscv64 || ppc64le || loong64 || mips64le || s390x

package requests

// v4l2_format carries a union with pointer members, so fmt is 8-byte aligned
// on 64-bit ABIs. v4l2_buffer embeds a 16-byte struct timeval.
const (
	SizeFormat = 208
	SizeBuffer = 88
)
