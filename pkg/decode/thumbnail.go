package decode

import (
	"image"

	"golang.org/x/image/draw"
)

// ThumbnailSize is the edge length of the last-capture thumbnail.
const ThumbnailSize = 24

// Thumbnail scales src into a size x size image with bilinear filtering,
// ignoring the aspect ratio.
func Thumbnail(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Rect, src, src.Bounds(), draw.Src, nil)
	return dst
}

// Fit scales src down to fit within width x height keeping its aspect ratio.
// It uses nearest-neighbour sampling, which is good enough for a preview.
func Fit(src image.Image, width, height int) image.Image {
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || width <= 0 || height <= 0 {
		return src
	}
	w, h := width, b.Dy()*width/b.Dx()
	if h > height {
		w, h = b.Dx()*height/b.Dy(), height
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Rect, src, b, draw.Src, nil)
	return dst
}
