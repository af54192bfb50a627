package descriptors

import "github.com/kevmo314/go-megapixels/pkg/requests"

// Control is struct v4l2_control.
type Control struct {
	ID    requests.ControlID
	Value int32
}

func (c *Control) MarshalSize() int { return requests.SizeControl }

func (c *Control) MarshalInto(buf []byte) error {
	if len(buf) < c.MarshalSize() {
		return ErrShortBuffer
	}
	byteOrder.PutUint32(buf[0:4], uint32(c.ID))
	byteOrder.PutUint32(buf[4:8], uint32(c.Value))
	return nil
}

func (c *Control) MarshalBinary() ([]byte, error) { return marshal(c) }

func (c *Control) UnmarshalBinary(buf []byte) error {
	if len(buf) < c.MarshalSize() {
		return ErrShortBuffer
	}
	c.ID = requests.ControlID(byteOrder.Uint32(buf[0:4]))
	c.Value = int32(byteOrder.Uint32(buf[4:8]))
	return nil
}
