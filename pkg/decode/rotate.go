package decode

import (
	"fmt"
	"image"
)

// Rotate returns src turned counterclockwise by degrees, which must be 0, 90,
// 180 or 270. A rotation of 0 returns src itself.
func Rotate(src *RGB, degrees int) (*RGB, error) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	var dst *RGB
	var at func(x, y int) (int, int)
	switch degrees {
	case 0:
		return src, nil
	case 90:
		dst = NewRGB(image.Rect(0, 0, h, w))
		at = func(x, y int) (int, int) { return y, w - 1 - x }
	case 180:
		dst = NewRGB(image.Rect(0, 0, w, h))
		at = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 270:
		dst = NewRGB(image.Rect(0, 0, h, w))
		at = func(x, y int) (int, int) { return h - 1 - y, x }
	default:
		return nil, fmt.Errorf("rotate: unsupported angle %d", degrees)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := src.PixOffset(src.Rect.Min.X+x, src.Rect.Min.Y+y)
			dx, dy := at(x, y)
			d := dst.PixOffset(dx, dy)
			copy(dst.Pix[d:d+3], src.Pix[s:s+3])
		}
	}
	return dst, nil
}
