// Package camera provides video frame sources (real or mocked) and the
// illumination control used while measuring.
package camera

import (
	"context"
	"errors"
	"image"
	"time"
)

// Facing values understood by Constraints.
const (
	FacingEnvironment = "environment"
	FacingUser        = "user"
)

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrDeviceBusy       = errors.New("camera is in use")
	ErrNotFound         = errors.New("camera not found")
	ErrNotOpen          = errors.New("camera is not open")
	ErrAlreadyOpen      = errors.New("camera already open")
	ErrTorchUnsupported = errors.New("torch not supported")
)

// Constraints are the hints passed when opening a camera.
type Constraints struct {
	Facing string
	Width  int
	Height int
	FPS    int
}

// Frame is a single captured video frame.
type Frame struct {
	Image     image.Image
	Timestamp time.Time
}

// Capabilities describes an opened camera.
type Capabilities struct {
	Torch  bool
	Facing string
	Width  int
	Height int
	FPS    int
}

// Device defines the interface for video sources (real or mocked).
//
// Frames returns the channel of the current session. It is closed when the
// device is closed or the stream ends.
type Device interface {
	Open(ctx context.Context, c Constraints) error
	Close() error
	Frames() <-chan Frame
	Capabilities() Capabilities
	SetTorch(on bool) error
	IsOpen() bool
}

// Torch switches an illuminator that is not part of the camera itself.
type Torch interface {
	Connect() error
	Set(on bool) error
	Close() error
}

var (
	_ Device = (*Mock)(nil)
	_ Device = (*torchDevice)(nil)
	_ Torch  = (*SerialTorch)(nil)
)
