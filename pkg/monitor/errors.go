package monitor

import (
	"context"
	"errors"

	"github.com/itohio/pulsecam/pkg/camera"
)

var (
	ErrPermissionDenied = camera.ErrPermissionDenied
	ErrDeviceBusy       = camera.ErrDeviceBusy
	ErrNotFound         = camera.ErrNotFound
	ErrTorch            = errors.New("flashlight unavailable")
	ErrAlreadyRunning   = errors.New("measurement already running")
	ErrStopped          = errors.New("measurement stopped")
	ErrStreamEnded      = errors.New("camera stream ended")
)

// Describe maps an acquisition error to a sentence that can be shown to the
// user as is.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "Camera access was denied. Allow camera access and try again."
	case errors.Is(err, ErrDeviceBusy):
		return "The camera is being used by another application. Close it and try again."
	case errors.Is(err, ErrNotFound):
		return "No camera was found."
	case errors.Is(err, ErrTorch), errors.Is(err, camera.ErrTorchUnsupported):
		return "The flashlight could not be turned on. Measurement needs the flashlight to shine through your fingertip."
	case errors.Is(err, ErrAlreadyRunning):
		return "A measurement is already running."
	case errors.Is(err, ErrStreamEnded):
		return "The camera stopped delivering frames."
	case errors.Is(err, ErrStopped), errors.Is(err, context.Canceled):
		return "The measurement was stopped."
	default:
		return "The camera could not be started."
	}
}
