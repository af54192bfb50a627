// Package megapixels drives a media-controller camera pipeline on a phone:
// it routes one of several Bayer sensors to the capture interface, streams
// preview frames and writes bursts of raw frames to DNG files.
package megapixels

import (
	"fmt"
	"time"

	"github.com/kevmo314/go-megapixels/pkg/descriptors"
	"github.com/kevmo314/go-megapixels/pkg/device"
	"github.com/kevmo314/go-megapixels/pkg/dng"
	"github.com/kevmo314/go-megapixels/pkg/formats"
	"github.com/kevmo314/go-megapixels/pkg/subdev"
	"github.com/kevmo314/go-megapixels/pkg/transfers"
	"go.uber.org/multierr"
)

// CameraProfile is one configured camera. Everything except EntityID and
// DevPath comes from the configuration file; those two are filled in when
// the media graph is resolved.
type CameraProfile struct {
	Index    int
	Name     string
	EntityID uint32
	DevPath  string

	Width  uint32
	Height uint32
	Rate   uint32
	Rotate int
	Format formats.Format

	ColorMatrix   [9]float64
	ForwardMatrix [9]float64
	BlackLevel    uint32
	WhiteLevel    uint32
	FocalLength   float64
	CropFactor    float64
	FNumber       float64

	Valid bool
}

func (p *CameraProfile) String() string {
	return fmt.Sprintf("camera%d(%s %dx%d@%d %s)", p.Index, p.Name, p.Width, p.Height, p.Rate, p.Format)
}

func (p *CameraProfile) sensorMode() subdev.Mode {
	return subdev.Mode{Width: p.Width, Height: p.Height, Rate: p.Rate, Code: p.Format.MediaBus}
}

func (p *CameraProfile) captureMode() transfers.Mode {
	return transfers.Mode{Width: p.Width, Height: p.Height, PixelFormat: p.Format.PixelFormat()}
}

func (p *CameraProfile) metadata(dev DeviceInfo, t time.Time) dng.Metadata {
	return dng.Metadata{
		Make:          dev.Make,
		Model:         dev.Model,
		Time:          t,
		ColorMatrix:   p.ColorMatrix,
		ForwardMatrix: p.ForwardMatrix,
		BlackLevel:    p.BlackLevel,
		WhiteLevel:    p.WhiteLevel,
		FocalLength:   p.FocalLength,
		CropFactor:    p.CropFactor,
		FNumber:       p.FNumber,
	}
}

// ActiveCamera is the camera currently routed to the capture interface
// together with the handles opened for it.
type ActiveCamera struct {
	Profile CameraProfile
	Sensor  *subdev.Sensor
	Video   device.StreamHandle
	Pool    *transfers.BufferPool
	Format  descriptors.PixFormat
}

// stopCapture stops streaming and closes the capture node. The sensor stays
// open.
func (a *ActiveCamera) stopCapture() error {
	var err error
	if a.Pool != nil {
		err = multierr.Append(err, a.Pool.Stop())
		a.Pool = nil
	}
	if a.Video != nil {
		err = multierr.Append(err, a.Video.Close())
		a.Video = nil
	}
	return err
}

func (a *ActiveCamera) close() error {
	err := a.stopCapture()
	if a.Sensor != nil {
		err = multierr.Append(err, a.Sensor.Close())
		a.Sensor = nil
	}
	return err
}

// frame wraps a dequeued buffer for the DNG writer. The CFA is left zero so
// every file is tagged BGGR, the ordering the preview debayer assumes too.
func (a *ActiveCamera) frame(data []byte) dng.Frame {
	return dng.Frame{
		Width:  int(a.Format.Width),
		Height: int(a.Format.Height),
		Stride: int(a.Format.BytesPerLine),
		Pix:    data,
	}
}
