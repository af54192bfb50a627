package megapixels

import (
	"errors"
	"fmt"
)

// Errors the user is told about, in addition to them being returned.
var (
	ErrMediaNodeNotFound = errors.New("could not find the media node")
	ErrCamerasNotFound   = errors.New("could not find the cameras")
	ErrDeviceOpen        = errors.New("error opening the video device")
	ErrModeRejected      = errors.New("could not set camera mode")
)

var (
	ErrNotStreaming  = errors.New("capture is not running")
	ErrNotOpen       = errors.New("session is not open")
	ErrInvalidCamera = errors.New("camera is not configured or was not found")
)

var userMessages = map[error]string{
	ErrMediaNodeNotFound: "Could not find the media node",
	ErrCamerasNotFound:   "Could not find the cameras",
	ErrDeviceOpen:        "Error opening the video device",
	ErrModeRejected:      "Could not set camera mode",
}

// UserMessage returns the message to show for err when it is one of the
// user-visible errors.
func UserMessage(err error) (string, bool) {
	for target, msg := range userMessages {
		if errors.Is(err, target) {
			return msg, true
		}
	}
	return "", false
}

// FatalError is returned when the hardware stopped behaving in a way capture
// can continue from. The process is expected to exit.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err, or an error it wraps, is a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

func fatal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Op: op, Err: err}
}
