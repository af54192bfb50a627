// Package requests holds the ioctl request numbers and request-level constants
// of the Video4Linux2, V4L2 sub-device and Media Controller kernel interfaces.
package requests

import "fmt"

// Request is an encoded ioctl request number.
type Request uint32

const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	iocSizeMask = 1<<14 - 1
)

// Encode builds a request number the way the kernel's _IOC macro does.
func Encode(dir, typ, nr, size uint32) Request {
	return Request(dir<<iocDirShift | (size&iocSizeMask)<<iocSizeShift | typ<<iocTypeShift | nr<<iocNRShift)
}

func (r Request) Dir() uint32  { return uint32(r) >> iocDirShift }
func (r Request) Type() uint32 { return uint32(r) >> iocTypeShift & 0xff }
func (r Request) NR() uint32   { return uint32(r) >> iocNRShift & 0xff }
func (r Request) Size() uint32 { return uint32(r) >> iocSizeShift & iocSizeMask }

const (
	typeVideo = 'V'
	typeMedia = '|'
)

// Sizes of the fixed-layout kernel structs.
const (
	SizeCapability          = 104
	SizeCropCap             = 44
	SizeCrop                = 20
	SizeRequestBuffers      = 20
	SizeControl             = 8
	SizeSubdevFormat        = 88
	SizeSubdevFrameInterval = 48
	SizeMediaDeviceInfo     = 256
	SizeMediaEntityDesc     = 256
	SizeMediaLinkDesc       = 52
	SizeBufType             = 4
)

// V4L2 video node requests.
const (
	VidiocQueryCap  = Request(iocRead<<iocDirShift | SizeCapability<<iocSizeShift | typeVideo<<iocTypeShift | 0)
	VidiocReqBufs   = Request((iocRead|iocWrite)<<iocDirShift | SizeRequestBuffers<<iocSizeShift | typeVideo<<iocTypeShift | 8)
	VidiocSCtrl     = Request((iocRead|iocWrite)<<iocDirShift | SizeControl<<iocSizeShift | typeVideo<<iocTypeShift | 28)
	VidiocStreamOn  = Request(iocWrite<<iocDirShift | SizeBufType<<iocSizeShift | typeVideo<<iocTypeShift | 18)
	VidiocStreamOff = Request(iocWrite<<iocDirShift | SizeBufType<<iocSizeShift | typeVideo<<iocTypeShift | 19)
	VidiocCropCap   = Request((iocRead|iocWrite)<<iocDirShift | SizeCropCap<<iocSizeShift | typeVideo<<iocTypeShift | 58)
	VidiocSCrop     = Request(iocWrite<<iocDirShift | SizeCrop<<iocSizeShift | typeVideo<<iocTypeShift | 60)

	VidiocGFmt     = Request((iocRead|iocWrite)<<iocDirShift | SizeFormat<<iocSizeShift | typeVideo<<iocTypeShift | 4)
	VidiocSFmt     = Request((iocRead|iocWrite)<<iocDirShift | SizeFormat<<iocSizeShift | typeVideo<<iocTypeShift | 5)
	VidiocQueryBuf = Request((iocRead|iocWrite)<<iocDirShift | SizeBuffer<<iocSizeShift | typeVideo<<iocTypeShift | 9)
	VidiocQBuf     = Request((iocRead|iocWrite)<<iocDirShift | SizeBuffer<<iocSizeShift | typeVideo<<iocTypeShift | 15)
	VidiocDQBuf    = Request((iocRead|iocWrite)<<iocDirShift | SizeBuffer<<iocSizeShift | typeVideo<<iocTypeShift | 17)
)

// V4L2 sub-device requests. These share the 'V' type with the video node
// requests and are told apart by their struct size.
const (
	VidiocSubdevSFmt           = Request((iocRead|iocWrite)<<iocDirShift | SizeSubdevFormat<<iocSizeShift | typeVideo<<iocTypeShift | 5)
	VidiocSubdevSFrameInterval = Request((iocRead|iocWrite)<<iocDirShift | SizeSubdevFrameInterval<<iocSizeShift | typeVideo<<iocTypeShift | 22)
)

// Media controller requests.
const (
	MediaIocDeviceInfo   = Request((iocRead|iocWrite)<<iocDirShift | SizeMediaDeviceInfo<<iocSizeShift | typeMedia<<iocTypeShift | 0)
	MediaIocEnumEntities = Request((iocRead|iocWrite)<<iocDirShift | SizeMediaEntityDesc<<iocSizeShift | typeMedia<<iocTypeShift | 1)
	MediaIocSetupLink    = Request((iocRead|iocWrite)<<iocDirShift | SizeMediaLinkDesc<<iocSizeShift | typeMedia<<iocTypeShift | 3)
)

var names = map[Request]string{
	VidiocQueryCap:             "VIDIOC_QUERYCAP",
	VidiocReqBufs:              "VIDIOC_REQBUFS",
	VidiocSCtrl:                "VIDIOC_S_CTRL",
	VidiocStreamOn:             "VIDIOC_STREAMON",
	VidiocStreamOff:            "VIDIOC_STREAMOFF",
	VidiocCropCap:              "VIDIOC_CROPCAP",
	VidiocSCrop:                "VIDIOC_S_CROP",
	VidiocGFmt:                 "VIDIOC_G_FMT",
	VidiocSFmt:                 "VIDIOC_S_FMT",
	VidiocQueryBuf:             "VIDIOC_QUERYBUF",
	VidiocQBuf:                 "VIDIOC_QBUF",
	VidiocDQBuf:                "VIDIOC_DQBUF",
	VidiocSubdevSFmt:           "VIDIOC_SUBDEV_S_FMT",
	VidiocSubdevSFrameInterval: "VIDIOC_SUBDEV_S_FRAME_INTERVAL",
	MediaIocDeviceInfo:         "MEDIA_IOC_DEVICE_INFO",
	MediaIocEnumEntities:       "MEDIA_IOC_ENUM_ENTITIES",
	MediaIocSetupLink:          "MEDIA_IOC_SETUP_LINK",
}

// String returns the kernel macro name of the request, or its hex value.
func (r Request) String() string {
	if name, ok := names[r]; ok {
		return name
	}
	return fmt.Sprintf("ioctl(%#08x)", uint32(r))
}
