// Package formats describes the 8-bit Bayer pixel orderings a sensor can be
// configured for.
package formats

import (
	"errors"
	"fmt"
)

var ErrUnknownFormat = errors.New("unknown pixel format")

// CFAColor is a TIFF/EP CFAPattern colour index.
type CFAColor uint8

const (
	CFARed   CFAColor = 0
	CFAGreen CFAColor = 1
	CFABlue  CFAColor = 2
)

// Format is one Bayer ordering. CFA lists the colour of the top-left 2x2
// block in row-major order.
type Format struct {
	Name     string
	FourCC   [4]byte
	MediaBus uint32
	CFA      [4]CFAColor
	BitDepth int
}

var (
	BGGR8 = Format{
		Name:     "BGGR8",
		FourCC:   [4]byte{'B', 'A', '8', '1'},
		MediaBus: 0x3001,
		CFA:      [4]CFAColor{CFABlue, CFAGreen, CFAGreen, CFARed},
		BitDepth: 8,
	}
	GBRG8 = Format{
		Name:     "GBRG8",
		FourCC:   [4]byte{'G', 'B', 'R', 'G'},
		MediaBus: 0x3013,
		CFA:      [4]CFAColor{CFAGreen, CFABlue, CFARed, CFAGreen},
		BitDepth: 8,
	}
	GRBG8 = Format{
		Name:     "GRBG8",
		FourCC:   [4]byte{'G', 'R', 'B', 'G'},
		MediaBus: 0x3002,
		CFA:      [4]CFAColor{CFAGreen, CFARed, CFABlue, CFAGreen},
		BitDepth: 8,
	}
	RGGB8 = Format{
		Name:     "RGGB8",
		FourCC:   [4]byte{'R', 'G', 'G', 'B'},
		MediaBus: 0x3014,
		CFA:      [4]CFAColor{CFARed, CFAGreen, CFAGreen, CFABlue},
		BitDepth: 8,
	}
)

var all = []Format{BGGR8, GBRG8, GRBG8, RGGB8}

// All returns every known format.
func All() []Format {
	return append([]Format(nil), all...)
}

// Parse looks a format up by its configuration name, e.g. "BGGR8".
func Parse(name string) (Format, error) {
	for _, f := range all {
		if f.Name == name {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// FromFourCC looks a format up by its V4L2 pixel format code.
func FromFourCC(code uint32) (Format, bool) {
	for _, f := range all {
		if f.PixelFormat() == code {
			return f, true
		}
	}
	return Format{}, false
}

// PixelFormat is the V4L2 fourcc as the kernel encodes it in v4l2_pix_format.
func (f Format) PixelFormat() uint32 {
	return uint32(f.FourCC[0]) | uint32(f.FourCC[1])<<8 | uint32(f.FourCC[2])<<16 | uint32(f.FourCC[3])<<24
}

// Pattern returns the CFA pattern as raw bytes suitable for the DNG
// CFAPattern tag.
func (f Format) Pattern() []byte {
	return []byte{byte(f.CFA[0]), byte(f.CFA[1]), byte(f.CFA[2]), byte(f.CFA[3])}
}

func (f Format) String() string {
	if f.Name == "" {
		return "unset"
	}
	return f.Name
}
