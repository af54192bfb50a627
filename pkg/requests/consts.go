package requests

import "fmt"

type BufType uint32

const (
	BufTypeVideoCapture BufType = 1
)

type Memory uint32

const (
	MemoryMmap    Memory = 1
	MemoryUserPtr Memory = 2
	MemoryDMABuf  Memory = 4
)

type Field uint32

const (
	FieldAny  Field = 0
	FieldNone Field = 1
)

// Capability bits reported by VIDIOC_QUERYCAP.
const (
	CapVideoCapture uint32 = 0x00000001
	CapStreaming    uint32 = 0x04000000
	CapDeviceCaps   uint32 = 0x80000000
)

// SubdevFormatWhence selects the TRY or ACTIVE format of a sub-device pad.
type SubdevFormatWhence uint32

const (
	SubdevFormatTry    SubdevFormatWhence = 0
	SubdevFormatActive SubdevFormatWhence = 1
)

// ControlID identifies a V4L2 control.
type ControlID uint32

const (
	cidBase            = 0x00980900
	cidCameraClassBase = 0x009a0900

	CIDExposure     ControlID = cidBase + 17
	CIDAutoGain     ControlID = cidBase + 18
	CIDGain         ControlID = cidBase + 19
	CIDExposureAuto ControlID = cidCameraClassBase + 1
)

var controlNames = map[ControlID]string{
	CIDExposure:     "exposure",
	CIDAutoGain:     "autogain",
	CIDGain:         "gain",
	CIDExposureAuto: "exposure_auto",
}

func (c ControlID) String() string {
	if name, ok := controlNames[c]; ok {
		return name
	}
	return fmt.Sprintf("control(%#x)", uint32(c))
}

// Values of the V4L2_CID_EXPOSURE_AUTO menu control.
const (
	ExposureAuto   int32 = 0
	ExposureManual int32 = 1
)

// Media controller entity and link constants.
const (
	MediaEntIDFlagNext uint32 = 1 << 31

	MediaEntFOldBase       uint32 = 0x00010000
	MediaEntFOldSubdevBase uint32 = 0x00020000
	MediaEntFIOV4L         uint32 = MediaEntFOldBase + 1
	MediaEntFCamSensor     uint32 = MediaEntFOldSubdevBase + 1

	MediaLnkFlEnabled   uint32 = 1 << 0
	MediaLnkFlImmutable uint32 = 1 << 1
)
