package descriptors

import "github.com/kevmo314/go-megapixels/pkg/requests"

// PixFormat is struct v4l2_pix_format.
type PixFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	Field        requests.Field
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   uint32
	Priv         uint32
	Flags        uint32
	YCbCrEnc     uint32
	Quantization uint32
	XferFunc     uint32
}

const sizePixFormat = 48

func (p *PixFormat) fields() []*uint32 {
	return []*uint32{
		&p.Width, &p.Height, &p.PixelFormat, (*uint32)(&p.Field),
		&p.BytesPerLine, &p.SizeImage, &p.Colorspace, &p.Priv,
		&p.Flags, &p.YCbCrEnc, &p.Quantization, &p.XferFunc,
	}
}

// Format is struct v4l2_format restricted to the single-planar pix member,
// which is the only one used for video capture.
type Format struct {
	Type requests.BufType
	Pix  PixFormat
}

func (f *Format) MarshalSize() int { return requests.SizeFormat }

func (f *Format) MarshalInto(buf []byte) error {
	if len(buf) < f.MarshalSize() {
		return ErrShortBuffer
	}
	clear(buf[:f.MarshalSize()])
	byteOrder.PutUint32(buf[0:4], uint32(f.Type))
	for i, v := range f.Pix.fields() {
		off := formatPixOffset + 4*i
		byteOrder.PutUint32(buf[off:off+4], *v)
	}
	return nil
}

func (f *Format) MarshalBinary() ([]byte, error) { return marshal(f) }

func (f *Format) UnmarshalBinary(buf []byte) error {
	if len(buf) < f.MarshalSize() {
		return ErrShortBuffer
	}
	f.Type = requests.BufType(byteOrder.Uint32(buf[0:4]))
	for i, v := range f.Pix.fields() {
		off := formatPixOffset + 4*i
		*v = byteOrder.Uint32(buf[off : off+4])
	}
	return nil
}
