package descriptors

import "github.com/kevmo314/go-megapixels/pkg/requests"

// MbusFrameFormat is struct v4l2_mbus_framefmt.
type MbusFrameFormat struct {
	Width        uint32
	Height       uint32
	Code         uint32
	Field        requests.Field
	Colorspace   uint32
	YCbCrEnc     uint16
	Quantization uint16
	XferFunc     uint16
	Flags        uint16
}

const sizeMbusFrameFormat = 48

func (m *MbusFrameFormat) put(buf []byte) {
	clear(buf[:sizeMbusFrameFormat])
	byteOrder.PutUint32(buf[0:4], m.Width)
	byteOrder.PutUint32(buf[4:8], m.Height)
	byteOrder.PutUint32(buf[8:12], m.Code)
	byteOrder.PutUint32(buf[12:16], uint32(m.Field))
	byteOrder.PutUint32(buf[16:20], m.Colorspace)
	byteOrder.PutUint16(buf[20:22], m.YCbCrEnc)
	byteOrder.PutUint16(buf[22:24], m.Quantization)
	byteOrder.PutUint16(buf[24:26], m.XferFunc)
	byteOrder.PutUint16(buf[26:28], m.Flags)
}

func (m *MbusFrameFormat) get(buf []byte) {
	m.Width = byteOrder.Uint32(buf[0:4])
	m.Height = byteOrder.Uint32(buf[4:8])
	m.Code = byteOrder.Uint32(buf[8:12])
	m.Field = requests.Field(byteOrder.Uint32(buf[12:16]))
	m.Colorspace = byteOrder.Uint32(buf[16:20])
	m.YCbCrEnc = byteOrder.Uint16(buf[20:22])
	m.Quantization = byteOrder.Uint16(buf[22:24])
	m.XferFunc = byteOrder.Uint16(buf[24:26])
	m.Flags = byteOrder.Uint16(buf[26:28])
}

// SubdevFormat is struct v4l2_subdev_format.
type SubdevFormat struct {
	Which  requests.SubdevFormatWhence
	Pad    uint32
	Format MbusFrameFormat
	Stream uint32
}

func (sf *SubdevFormat) MarshalSize() int { return requests.SizeSubdevFormat }

func (sf *SubdevFormat) MarshalInto(buf []byte) error {
	if len(buf) < sf.MarshalSize() {
		return ErrShortBuffer
	}
	byteOrder.PutUint32(buf[0:4], uint32(sf.Which))
	byteOrder.PutUint32(buf[4:8], sf.Pad)
	sf.Format.put(buf[8 : 8+sizeMbusFrameFormat])
	byteOrder.PutUint32(buf[56:60], sf.Stream)
	clear(buf[60:88])
	return nil
}

func (sf *SubdevFormat) MarshalBinary() ([]byte, error) { return marshal(sf) }

func (sf *SubdevFormat) UnmarshalBinary(buf []byte) error {
	if len(buf) < sf.MarshalSize() {
		return ErrShortBuffer
	}
	sf.Which = requests.SubdevFormatWhence(byteOrder.Uint32(buf[0:4]))
	sf.Pad = byteOrder.Uint32(buf[4:8])
	sf.Format.get(buf[8 : 8+sizeMbusFrameFormat])
	sf.Stream = byteOrder.Uint32(buf[56:60])
	return nil
}

// SubdevFrameInterval is struct v4l2_subdev_frame_interval.
type SubdevFrameInterval struct {
	Pad      uint32
	Interval Fract
	Stream   uint32
	Which    requests.SubdevFormatWhence
}

func (fi *SubdevFrameInterval) MarshalSize() int { return requests.SizeSubdevFrameInterval }

func (fi *SubdevFrameInterval) MarshalInto(buf []byte) error {
	if len(buf) < fi.MarshalSize() {
		return ErrShortBuffer
	}
	byteOrder.PutUint32(buf[0:4], fi.Pad)
	fi.Interval.put(buf[4:12])
	byteOrder.PutUint32(buf[12:16], fi.Stream)
	byteOrder.PutUint32(buf[16:20], uint32(fi.Which))
	clear(buf[20:48])
	return nil
}

func (fi *SubdevFrameInterval) MarshalBinary() ([]byte, error) { return marshal(fi) }

func (fi *SubdevFrameInterval) UnmarshalBinary(buf []byte) error {
	if len(buf) < fi.MarshalSize() {
		return ErrShortBuffer
	}
	fi.Pad = byteOrder.Uint32(buf[0:4])
	fi.Interval = getFract(buf[4:12])
	fi.Stream = byteOrder.Uint32(buf[12:16])
	fi.Which = requests.SubdevFormatWhence(byteOrder.Uint32(buf[16:20]))
	return nil
}
