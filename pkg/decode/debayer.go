package decode

import (
	"fmt"
	"image"
)

// PreviewSkip is the subsampling factor used for on-screen previews of a
// frame of the given width.
func PreviewSkip(width int) int {
	if width > 1280 {
		return 3
	}
	return 2
}

// QuickDebayerBGGR8 builds an RGB image from a BGGR 8-bit mosaic by taking
// one 2x2 cell out of every skip cells in each direction. No interpolation
// is done, which makes it cheap enough to run on every preview frame. The
// result is width/(2*skip) by height/(2*skip).
func QuickDebayerBGGR8(src []byte, width, height, stride, skip int) (*RGB, error) {
	if skip < 1 {
		return nil, fmt.Errorf("debayer: invalid skip %d", skip)
	}
	if stride < width {
		stride = width
	}
	if len(src) < stride*(height-1)+width {
		return nil, fmt.Errorf("debayer: short frame: %d bytes for %dx%d", len(src), width, height)
	}
	step := 2 * skip
	out := NewRGB(image.Rect(0, 0, width/step, height/step))
	for oy := 0; oy < out.Rect.Dy(); oy++ {
		row := oy * step * stride
		next := row + stride
		d := oy * out.Stride
		for ox := 0; ox < out.Rect.Dx(); ox++ {
			sx := ox * step
			b := src[row+sx]
			g := (uint16(src[row+sx+1]) + uint16(src[next+sx])) / 2
			r := src[next+sx+1]
			out.Pix[d], out.Pix[d+1], out.Pix[d+2] = r, uint8(g), b
			d += 3
		}
	}
	return out, nil
}
