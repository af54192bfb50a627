// Package transfers moves frames from a V4L2 capture node into the process:
// device initialisation and the memory-mapped buffer pool.
package transfers

import (
	"errors"
	"fmt"

	"github.com/kevmo314/go-megapixels/pkg/descriptors"
	"github.com/kevmo314/go-megapixels/pkg/device"
	"github.com/kevmo314/go-megapixels/pkg/requests"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

var (
	ErrNotV4L2          = errors.New("not a V4L2 device")
	ErrNotCaptureDevice = errors.New("not a video capture device")
	ErrNoStreaming      = errors.New("device does not support streaming i/o")
	ErrModeRejected     = errors.New("device rejected the capture format")
)

// Mode is the frame format requested from the capture node. A zero Width
// keeps whatever format the driver currently has.
type Mode struct {
	Width       uint32
	Height      uint32
	PixelFormat uint32
}

// InitDevice checks that h is a streaming capture node, resets cropping to
// the default rectangle and applies m. It returns the format in effect.
func InitDevice(h device.Handle, m Mode, logger *zap.Logger) (descriptors.PixFormat, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var capability descriptors.Capability
	if err := device.Do(h, requests.VidiocQueryCap, &capability); err != nil {
		if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOTTY) {
			return descriptors.PixFormat{}, fmt.Errorf("%w: %w", ErrNotV4L2, err)
		}
		return descriptors.PixFormat{}, fmt.Errorf("query capabilities: %w", err)
	}
	if !capability.Has(requests.CapVideoCapture) {
		return descriptors.PixFormat{}, fmt.Errorf("%w: %s", ErrNotCaptureDevice, capability.Card)
	}
	if !capability.Has(requests.CapStreaming) {
		return descriptors.PixFormat{}, fmt.Errorf("%w: %s", ErrNoStreaming, capability.Card)
	}
	logger.Debug("capture device",
		zap.String("driver", capability.Driver),
		zap.String("card", capability.Card),
		zap.String("bus", capability.BusInfo))

	// Cropping is optional; drivers that do not support it are fine.
	cropcap := descriptors.CropCap{Type: requests.BufTypeVideoCapture}
	if err := device.Do(h, requests.VidiocCropCap, &cropcap); err == nil {
		crop := descriptors.Crop{Type: requests.BufTypeVideoCapture, C: cropcap.DefRect}
		if err := device.Do(h, requests.VidiocSCrop, &crop); err != nil {
			logger.Debug("crop reset ignored", zap.Error(err))
		}
	}

	f := descriptors.Format{Type: requests.BufTypeVideoCapture}
	if m.Width > 0 {
		f.Pix = descriptors.PixFormat{
			Width:       m.Width,
			Height:      m.Height,
			PixelFormat: m.PixelFormat,
			Field:       requests.FieldAny,
		}
		if err := device.Do(h, requests.VidiocSFmt, &f); err != nil {
			return descriptors.PixFormat{}, fmt.Errorf("%w: %dx%d: %w", ErrModeRejected, m.Width, m.Height, err)
		}
	} else if err := device.Do(h, requests.VidiocGFmt, &f); err != nil {
		return descriptors.PixFormat{}, fmt.Errorf("get format: %w", err)
	}

	// Buggy driver paranoia. Every supported format is one byte per pixel.
	if f.Pix.BytesPerLine < f.Pix.Width {
		f.Pix.BytesPerLine = f.Pix.Width
	}
	if minSize := f.Pix.BytesPerLine * f.Pix.Height; f.Pix.SizeImage < minSize {
		f.Pix.SizeImage = minSize
	}
	logger.Info("capture format",
		zap.Uint32("width", f.Pix.Width),
		zap.Uint32("height", f.Pix.Height),
		zap.Uint32("bytesperline", f.Pix.BytesPerLine),
		zap.Uint32("sizeimage", f.Pix.SizeImage))
	return f.Pix, nil
}
