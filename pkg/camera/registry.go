package camera

import (
	"fmt"
	"sort"
	"sync"

	"github.com/itohio/pulsecam/pkg/config"
)

// Factory creates a device from configuration.
type Factory func(cfg *config.Config) (Device, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a driver available to NewDevice. Registering the same name
// twice replaces the previous factory.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDevice creates the device selected by cfg.Camera.Driver. When a torch
// port is configured the device is wrapped so that torch control goes to the
// external illuminator.
func NewDevice(cfg *config.Config) (Device, error) {
	registryMu.RLock()
	f, ok := registry[cfg.Camera.Driver]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown camera driver %q (available: %v)", cfg.Camera.Driver, Drivers())
	}

	dev, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s camera: %w", cfg.Camera.Driver, err)
	}

	if cfg.Torch.Port != "" {
		dev = WithTorch(dev, NewSerialTorch(cfg.Torch))
	}
	return dev, nil
}

func init() {
	Register("mock", func(cfg *config.Config) (Device, error) {
		return NewMock(&cfg.Mock), nil
	})
}
