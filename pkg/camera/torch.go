package camera

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// torchDevice routes torch control of a camera to an external illuminator.
type torchDevice struct {
	Device
	torch Torch

	mu        sync.RWMutex
	connected bool
}

// WithTorch wraps dev so that Capabilities reports a torch and SetTorch drives
// torch instead of the camera. The illuminator is connected on Open; if that
// fails the camera's own torch capability is reported.
func WithTorch(dev Device, torch Torch) Device {
	return &torchDevice{Device: dev, torch: torch}
}

func (d *torchDevice) Open(ctx context.Context, c Constraints) error {
	if err := d.Device.Open(ctx, c); err != nil {
		return err
	}

	err := d.torch.Connect()
	d.mu.Lock()
	d.connected = err == nil
	d.mu.Unlock()
	if err != nil {
		logrus.WithField("component", "camera.torch").WithError(err).Warn("external illuminator unavailable")
	}
	return nil
}

func (d *torchDevice) Close() error {
	d.mu.Lock()
	connected := d.connected
	d.connected = false
	d.mu.Unlock()

	var torchErr error
	if connected {
		torchErr = d.torch.Close()
	}
	return errors.Join(d.Device.Close(), torchErr)
}

func (d *torchDevice) Capabilities() Capabilities {
	caps := d.Device.Capabilities()
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.connected {
		caps.Torch = true
	}
	return caps
}

func (d *torchDevice) SetTorch(on bool) error {
	d.mu.RLock()
	connected := d.connected
	d.mu.RUnlock()

	if !connected {
		return d.Device.SetTorch(on)
	}
	return d.torch.Set(on)
}
