// Package subdev negotiates frame rate, pad format and exposure controls on
// an image sensor sub-device.
package subdev

import (
	"fmt"

	"github.com/kevmo314/go-megapixels/pkg/descriptors"
	"github.com/kevmo314/go-megapixels/pkg/device"
	"github.com/kevmo314/go-megapixels/pkg/requests"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Sensor is an open sensor sub-device node.
type Sensor struct {
	h      device.Handle
	path   string
	logger *zap.Logger
}

// Open opens the sub-device node at path read-write.
func Open(path string, open device.Opener, logger *zap.Logger) (*Sensor, error) {
	if open == nil {
		open = device.Open
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h, err := open(path, unix.O_RDWR)
	if err != nil {
		return nil, fmt.Errorf("open sensor: %w", err)
	}
	return &Sensor{h: h, path: path, logger: logger.With(zap.String("device", path))}, nil
}

// New wraps an already open sub-device handle.
func New(h device.Handle, path string, logger *zap.Logger) *Sensor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sensor{h: h, path: path, logger: logger.With(zap.String("device", path))}
}

func (s *Sensor) Path() string { return s.path }

func (s *Sensor) Close() error { return s.h.Close() }

// SetFrameInterval requests 1/rate seconds per frame on pad 0. Drivers may
// substitute the nearest interval they support; that is logged, not an
// error.
func (s *Sensor) SetFrameInterval(rate uint32) (descriptors.Fract, error) {
	fi := descriptors.SubdevFrameInterval{
		Pad:      0,
		Interval: descriptors.Fract{Numerator: 1, Denominator: rate},
	}
	if err := device.Do(s.h, requests.VidiocSubdevSFrameInterval, &fi); err != nil {
		return descriptors.Fract{}, fmt.Errorf("set frame interval 1/%d: %w", rate, err)
	}
	if fi.Interval.Numerator != 1 || fi.Interval.Denominator != rate {
		s.logger.Warn("driver chose a different frame interval",
			zap.Uint32("numerator", fi.Interval.Numerator),
			zap.Uint32("denominator", fi.Interval.Denominator))
	}
	return fi.Interval, nil
}

// SetFormat sets the active pad 0 format. The format the driver settled on
// is returned.
func (s *Sensor) SetFormat(width, height, code uint32) (descriptors.MbusFrameFormat, error) {
	sf := descriptors.SubdevFormat{
		Which: requests.SubdevFormatActive,
		Pad:   0,
		Format: descriptors.MbusFrameFormat{
			Width:  width,
			Height: height,
			Code:   code,
			Field:  requests.FieldAny,
		},
	}
	if err := device.Do(s.h, requests.VidiocSubdevSFmt, &sf); err != nil {
		return descriptors.MbusFrameFormat{}, fmt.Errorf("set format %dx%d code %#x: %w", width, height, code, err)
	}
	if sf.Format.Width != width || sf.Format.Height != height || sf.Format.Code != code {
		s.logger.Warn("driver chose a different format",
			zap.Uint32("width", sf.Format.Width),
			zap.Uint32("height", sf.Format.Height),
			zap.Uint32("code", sf.Format.Code))
	}
	return sf.Format, nil
}

// SetControl sets a single V4L2 control.
func (s *Sensor) SetControl(id requests.ControlID, value int32) error {
	c := descriptors.Control{ID: id, Value: value}
	if err := device.Do(s.h, requests.VidiocSCtrl, &c); err != nil {
		return fmt.Errorf("set %s=%d: %w", id, value, err)
	}
	return nil
}

// Exposure selects automatic or fixed exposure and gain. Manual is the
// exposure in lines; zero means half the frame height.
type Exposure struct {
	Auto     bool
	AutoGain bool
	Manual   int32
}

// ApplyExposure programs the exposure controls. Sensors commonly lack some of
// them, so failures are logged and skipped.
func (s *Sensor) ApplyExposure(e Exposure, height uint32) {
	if e.Auto {
		s.trySetControl(requests.CIDExposureAuto, requests.ExposureAuto)
	} else {
		manual := e.Manual
		if manual == 0 {
			manual = int32(height / 2)
		}
		s.trySetControl(requests.CIDExposureAuto, requests.ExposureManual)
		s.trySetControl(requests.CIDExposure, manual)
	}
	if e.AutoGain {
		s.trySetControl(requests.CIDAutoGain, 1)
	} else {
		s.trySetControl(requests.CIDAutoGain, 0)
		s.trySetControl(requests.CIDGain, 0)
	}
}

func (s *Sensor) trySetControl(id requests.ControlID, value int32) {
	if err := s.SetControl(id, value); err != nil {
		s.logger.Warn("control not applied", zap.Stringer("control", id), zap.Int32("value", value), zap.Error(err))
	}
}

// Mode is a sensor configuration to negotiate.
type Mode struct {
	Width  uint32
	Height uint32
	Rate   uint32
	Code   uint32
}

// Negotiate opens the sensor at path and applies rate, format and exposure in
// that order. On error the sensor is closed again.
func Negotiate(path string, m Mode, e Exposure, open device.Opener, logger *zap.Logger) (*Sensor, error) {
	s, err := Open(path, open, logger)
	if err != nil {
		return nil, err
	}
	if _, err := s.SetFrameInterval(m.Rate); err != nil {
		s.Close()
		return nil, err
	}
	if _, err := s.SetFormat(m.Width, m.Height, m.Code); err != nil {
		s.Close()
		return nil, err
	}
	s.ApplyExposure(e, m.Height)
	s.logger.Info("sensor configured",
		zap.Uint32("width", m.Width),
		zap.Uint32("height", m.Height),
		zap.Uint32("rate", m.Rate))
	return s, nil
}
