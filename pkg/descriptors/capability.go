package descriptors

import "github.com/kevmo314/go-megapixels/pkg/requests"

// Capability is struct v4l2_capability, filled by VIDIOC_QUERYCAP.
type Capability struct {
	Driver       string
	Card         string
	BusInfo      string
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
}

func (c *Capability) MarshalSize() int { return requests.SizeCapability }

func (c *Capability) MarshalInto(buf []byte) error {
	if len(buf) < c.MarshalSize() {
		return ErrShortBuffer
	}
	putCString(buf[0:16], c.Driver)
	putCString(buf[16:48], c.Card)
	putCString(buf[48:80], c.BusInfo)
	byteOrder.PutUint32(buf[80:84], c.Version)
	byteOrder.PutUint32(buf[84:88], c.Capabilities)
	byteOrder.PutUint32(buf[88:92], c.DeviceCaps)
	clear(buf[92:104])
	return nil
}

func (c *Capability) MarshalBinary() ([]byte, error) { return marshal(c) }

func (c *Capability) UnmarshalBinary(buf []byte) error {
	if len(buf) < c.MarshalSize() {
		return ErrShortBuffer
	}
	c.Driver = cstring(buf[0:16])
	c.Card = cstring(buf[16:48])
	c.BusInfo = cstring(buf[48:80])
	c.Version = byteOrder.Uint32(buf[80:84])
	c.Capabilities = byteOrder.Uint32(buf[84:88])
	c.DeviceCaps = byteOrder.Uint32(buf[88:92])
	return nil
}

// Has reports whether the node advertises every capability bit in mask. When
// the driver fills device_caps those are the caps of this particular node.
func (c *Capability) Has(mask uint32) bool {
	caps := c.Capabilities
	if caps&requests.CapDeviceCaps != 0 {
		caps = c.DeviceCaps
	}
	return caps&mask == mask
}

// Rect is struct v4l2_rect.
type Rect struct {
	Left   int32
	Top    int32
	Width  uint32
	Height uint32
}

const sizeRect = 16

func (r Rect) put(buf []byte) {
	byteOrder.PutUint32(buf[0:4], uint32(r.Left))
	byteOrder.PutUint32(buf[4:8], uint32(r.Top))
	byteOrder.PutUint32(buf[8:12], r.Width)
	byteOrder.PutUint32(buf[12:16], r.Height)
}

func getRect(buf []byte) Rect {
	return Rect{
		Left:   int32(byteOrder.Uint32(buf[0:4])),
		Top:    int32(byteOrder.Uint32(buf[4:8])),
		Width:  byteOrder.Uint32(buf[8:12]),
		Height: byteOrder.Uint32(buf[12:16]),
	}
}

// Fract is struct v4l2_fract.
type Fract struct {
	Numerator   uint32
	Denominator uint32
}

func (f Fract) put(buf []byte) {
	byteOrder.PutUint32(buf[0:4], f.Numerator)
	byteOrder.PutUint32(buf[4:8], f.Denominator)
}

func getFract(buf []byte) Fract {
	return Fract{Numerator: byteOrder.Uint32(buf[0:4]), Denominator: byteOrder.Uint32(buf[4:8])}
}

// CropCap is struct v4l2_cropcap.
type CropCap struct {
	Type        requests.BufType
	Bounds      Rect
	DefRect     Rect
	PixelAspect Fract
}

func (cc *CropCap) MarshalSize() int { return requests.SizeCropCap }

func (cc *CropCap) MarshalInto(buf []byte) error {
	if len(buf) < cc.MarshalSize() {
		return ErrShortBuffer
	}
	byteOrder.PutUint32(buf[0:4], uint32(cc.Type))
	cc.Bounds.put(buf[4 : 4+sizeRect])
	cc.DefRect.put(buf[20 : 20+sizeRect])
	cc.PixelAspect.put(buf[36:44])
	return nil
}

func (cc *CropCap) MarshalBinary() ([]byte, error) { return marshal(cc) }

func (cc *CropCap) UnmarshalBinary(buf []byte) error {
	if len(buf) < cc.MarshalSize() {
		return ErrShortBuffer
	}
	cc.Type = requests.BufType(byteOrder.Uint32(buf[0:4]))
	cc.Bounds = getRect(buf[4:20])
	cc.DefRect = getRect(buf[20:36])
	cc.PixelAspect = getFract(buf[36:44])
	return nil
}

// Crop is struct v4l2_crop.
type Crop struct {
	Type requests.BufType
	C    Rect
}

func (c *Crop) MarshalSize() int { return requests.SizeCrop }

func (c *Crop) MarshalInto(buf []byte) error {
	if len(buf) < c.MarshalSize() {
		return ErrShortBuffer
	}
	byteOrder.PutUint32(buf[0:4], uint32(c.Type))
	c.C.put(buf[4:20])
	return nil
}

func (c *Crop) MarshalBinary() ([]byte, error) { return marshal(c) }

func (c *Crop) UnmarshalBinary(buf []byte) error {
	if len(buf) < c.MarshalSize() {
		return ErrShortBuffer
	}
	c.Type = requests.BufType(byteOrder.Uint32(buf[0:4]))
	c.C = getRect(buf[4:20])
	return nil
}
