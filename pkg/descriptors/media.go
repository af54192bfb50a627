// This file implements the Media Controller structs from linux/media.h.
package descriptors

import "github.com/kevmo314/go-megapixels/pkg/requests"

// MediaDeviceInfo is struct media_device_info.
type MediaDeviceInfo struct {
	Driver        string
	Model         string
	Serial        string
	BusInfo       string
	MediaVersion  uint32
	HWRevision    uint32
	DriverVersion uint32
}

func (di *MediaDeviceInfo) MarshalSize() int { return requests.SizeMediaDeviceInfo }

func (di *MediaDeviceInfo) MarshalInto(buf []byte) error {
	if len(buf) < di.MarshalSize() {
		return ErrShortBuffer
	}
	clear(buf[:di.MarshalSize()])
	putCString(buf[0:16], di.Driver)
	putCString(buf[16:48], di.Model)
	putCString(buf[48:88], di.Serial)
	putCString(buf[88:120], di.BusInfo)
	byteOrder.PutUint32(buf[120:124], di.MediaVersion)
	byteOrder.PutUint32(buf[124:128], di.HWRevision)
	byteOrder.PutUint32(buf[128:132], di.DriverVersion)
	return nil
}

func (di *MediaDeviceInfo) MarshalBinary() ([]byte, error) { return marshal(di) }

func (di *MediaDeviceInfo) UnmarshalBinary(buf []byte) error {
	if len(buf) < di.MarshalSize() {
		return ErrShortBuffer
	}
	di.Driver = cstring(buf[0:16])
	di.Model = cstring(buf[16:48])
	di.Serial = cstring(buf[48:88])
	di.BusInfo = cstring(buf[88:120])
	di.MediaVersion = byteOrder.Uint32(buf[120:124])
	di.HWRevision = byteOrder.Uint32(buf[124:128])
	di.DriverVersion = byteOrder.Uint32(buf[128:132])
	return nil
}

// MediaEntityDesc is struct media_entity_desc. Major and Minor are taken from
// the dev member of the union, which is valid for entities backed by a device
// node.
type MediaEntityDesc struct {
	ID       uint32
	Name     string
	Type     uint32
	Revision uint32
	Flags    uint32
	GroupID  uint32
	Pads     uint16
	Links    uint16
	Major    uint32
	Minor    uint32
}

func (ed *MediaEntityDesc) MarshalSize() int { return requests.SizeMediaEntityDesc }

func (ed *MediaEntityDesc) MarshalInto(buf []byte) error {
	if len(buf) < ed.MarshalSize() {
		return ErrShortBuffer
	}
	clear(buf[:ed.MarshalSize()])
	byteOrder.PutUint32(buf[0:4], ed.ID)
	putCString(buf[4:36], ed.Name)
	byteOrder.PutUint32(buf[36:40], ed.Type)
	byteOrder.PutUint32(buf[40:44], ed.Revision)
	byteOrder.PutUint32(buf[44:48], ed.Flags)
	byteOrder.PutUint32(buf[48:52], ed.GroupID)
	byteOrder.PutUint16(buf[52:54], ed.Pads)
	byteOrder.PutUint16(buf[54:56], ed.Links)
	byteOrder.PutUint32(buf[72:76], ed.Major)
	byteOrder.PutUint32(buf[76:80], ed.Minor)
	return nil
}

func (ed *MediaEntityDesc) MarshalBinary() ([]byte, error) { return marshal(ed) }

func (ed *MediaEntityDesc) UnmarshalBinary(buf []byte) error {
	if len(buf) < ed.MarshalSize() {
		return ErrShortBuffer
	}
	ed.ID = byteOrder.Uint32(buf[0:4])
	ed.Name = cstring(buf[4:36])
	ed.Type = byteOrder.Uint32(buf[36:40])
	ed.Revision = byteOrder.Uint32(buf[40:44])
	ed.Flags = byteOrder.Uint32(buf[44:48])
	ed.GroupID = byteOrder.Uint32(buf[48:52])
	ed.Pads = byteOrder.Uint16(buf[52:54])
	ed.Links = byteOrder.Uint16(buf[54:56])
	ed.Major = byteOrder.Uint32(buf[72:76])
	ed.Minor = byteOrder.Uint32(buf[76:80])
	return nil
}

// MediaPadDesc is struct media_pad_desc.
type MediaPadDesc struct {
	Entity uint32
	Index  uint16
	Flags  uint32
}

const sizeMediaPadDesc = 20

func (pd *MediaPadDesc) put(buf []byte) {
	clear(buf[:sizeMediaPadDesc])
	byteOrder.PutUint32(buf[0:4], pd.Entity)
	byteOrder.PutUint16(buf[4:6], pd.Index)
	byteOrder.PutUint32(buf[8:12], pd.Flags)
}

func (pd *MediaPadDesc) get(buf []byte) {
	pd.Entity = byteOrder.Uint32(buf[0:4])
	pd.Index = byteOrder.Uint16(buf[4:6])
	pd.Flags = byteOrder.Uint32(buf[8:12])
}

// MediaLinkDesc is struct media_link_desc, the argument of MEDIA_IOC_SETUP_LINK.
type MediaLinkDesc struct {
	Source MediaPadDesc
	Sink   MediaPadDesc
	Flags  uint32
}

func (ld *MediaLinkDesc) MarshalSize() int { return requests.SizeMediaLinkDesc }

func (ld *MediaLinkDesc) MarshalInto(buf []byte) error {
	if len(buf) < ld.MarshalSize() {
		return ErrShortBuffer
	}
	ld.Source.put(buf[0:20])
	ld.Sink.put(buf[20:40])
	byteOrder.PutUint32(buf[40:44], ld.Flags)
	clear(buf[44:52])
	return nil
}

func (ld *MediaLinkDesc) MarshalBinary() ([]byte, error) { return marshal(ld) }

func (ld *MediaLinkDesc) UnmarshalBinary(buf []byte) error {
	if len(buf) < ld.MarshalSize() {
		return ErrShortBuffer
	}
	ld.Source.get(buf[0:20])
	ld.Sink.get(buf[20:40])
	ld.Flags = byteOrder.Uint32(buf[40:44])
	return nil
}
