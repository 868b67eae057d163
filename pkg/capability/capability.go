// Package capability decides whether the current device can measure a pulse
// through the camera: a camera facing the fingertip plus controllable
// illumination.
package capability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/itohio/pulsecam/pkg/camera"
	"github.com/itohio/pulsecam/pkg/config"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "capability")

// Result is either Supported or Unsupported.
type Result interface {
	isResult()
}

// Supported means the probed camera can be used for measuring.
type Supported struct {
	Capabilities camera.Capabilities
	Handheld     bool
}

// Unsupported carries a user-facing reason.
type Unsupported struct {
	Reason   string
	Handheld bool
}

func (Supported) isResult()   {}
func (Unsupported) isResult() {}

// Descriptor is the flat form of a Result.
type Descriptor struct {
	HasAuxiliaryIllumination bool
	IsHandheldDevice         bool
	IsSupported              bool
	UnsupportedReason        string
}

// Describe flattens a Result.
func Describe(r Result) Descriptor {
	switch r := r.(type) {
	case Supported:
		return Descriptor{
			HasAuxiliaryIllumination: r.Capabilities.Torch,
			IsHandheldDevice:         r.Handheld,
			IsSupported:              true,
		}
	case Unsupported:
		return Descriptor{
			IsHandheldDevice:  r.Handheld,
			UnsupportedReason: r.Reason,
		}
	default:
		return Descriptor{UnsupportedReason: "Unknown device."}
	}
}

// Environment describes the host without touching the camera.
type Environment struct {
	OS       string
	Model    string
	Handheld bool
	// CameraAvailable is false only when the host certainly has no camera
	CameraAvailable bool
	// ExternalIllumination is set when a separate illuminator is configured
	ExternalIllumination bool
}

const (
	dmiProductFile  = "/sys/class/dmi/id/product_name"
	deviceTreeModel = "/proc/device-tree/model"
)

// DetectEnvironment derives the environment from the runtime and applies
// configuration overrides. The mock camera simulates a phone.
func DetectEnvironment(cfg *config.Config) Environment {
	env := Environment{
		OS:                   runtime.GOOS,
		Handheld:             runtime.GOOS == "android" || runtime.GOOS == "ios",
		CameraAvailable:      true,
		ExternalIllumination: cfg.Torch.Port != "",
	}

	switch {
	case cfg.Camera.Driver == "mock":
		env.Handheld = true
		env.Model = "mock"
	case runtime.GOOS == "linux":
		devices, _ := filepath.Glob("/dev/video*")
		env.CameraAvailable = len(devices) > 0
		env.Model = readModel()
	}

	if cfg.Device.Model != "" {
		env.Model = cfg.Device.Model
	}
	if cfg.Device.Handheld != nil {
		env.Handheld = *cfg.Device.Handheld
	}
	return env
}

// readModel returns the board or product name, empty when unknown.
func readModel() string {
	for _, name := range []string{deviceTreeModel, dmiProductFile} {
		contents, err := os.ReadFile(name)
		if err != nil {
			continue
		}
		// Device tree strings are nul-terminated
		model := strings.TrimSpace(strings.Trim(string(contents), "\x00"))
		if model != "" {
			return model
		}
	}
	return ""
}

// Rule pre-classifies an environment. A non-empty reason rejects it.
type Rule func(env Environment) (reason string)

// NoCamera rejects hosts that have no camera at all.
func NoCamera(env Environment) string {
	if !env.CameraAvailable {
		return "No camera was found on this device."
	}
	return ""
}

// DesktopClass rejects non-handheld hosts unless an external illuminator is
// configured.
func DesktopClass(env Environment) string {
	if !env.Handheld && !env.ExternalIllumination {
		return "Heart-rate measurement needs a phone camera with a flashlight. Desktop devices are not supported."
	}
	return ""
}

// BlockedModel rejects the listed device models (case-insensitive).
func BlockedModel(models ...string) Rule {
	blocked := make([]string, 0, len(models))
	for _, m := range models {
		if m = strings.TrimSpace(m); m != "" {
			blocked = append(blocked, strings.ToLower(m))
		}
	}
	return func(env Environment) string {
		if slices.Contains(blocked, strings.ToLower(env.Model)) {
			return fmt.Sprintf("The camera of %s cannot be used for heart-rate measurement.", env.Model)
		}
		return ""
	}
}

// Classifier runs rules in order before any hardware is touched.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier; the first rejecting rule wins.
func NewClassifier(rules ...Rule) *Classifier {
	return &Classifier{rules: rules}
}

// DefaultClassifier returns the standard rule set.
func DefaultClassifier(cfg config.DeviceConfig) *Classifier {
	return NewClassifier(NoCamera, DesktopClass, BlockedModel(cfg.BlockedModels...))
}

// Classify returns the first rejection, or nil when the device must be probed.
func (c *Classifier) Classify(env Environment) *Unsupported {
	for _, rule := range c.rules {
		if reason := rule(env); reason != "" {
			return &Unsupported{Reason: reason, Handheld: env.Handheld}
		}
	}
	return nil
}

// Check classifies env and, if no rule rejects it, creates the camera with
// newDevice and probes it. Rejected environments never touch the camera.
func (c *Classifier) Check(ctx context.Context, env Environment, newDevice func() (camera.Device, error), cons camera.Constraints) Result {
	if u := c.Classify(env); u != nil {
		log.WithFields(logrus.Fields{"os": env.OS, "model": env.Model}).Infof("device pre-classified as unsupported: %s", u.Reason)
		return *u
	}

	dev, err := newDevice()
	if err != nil {
		log.WithError(err).Warn("failed to create camera for capability check")
		return Unsupported{Reason: probeReason(err), Handheld: env.Handheld}
	}
	return Probe(ctx, dev, cons, env.Handheld)
}

// Probe opens dev with the measurement constraints, reads its capabilities
// and closes it again. The torch is never switched on.
func Probe(ctx context.Context, dev camera.Device, cons camera.Constraints, handheld bool) Result {
	if err := dev.Open(ctx, cons); err != nil {
		log.WithError(err).Warn("capability probe failed to open camera")
		if cerr := dev.Close(); cerr != nil {
			log.WithError(cerr).Warn("failed to close camera after probe")
		}
		return Unsupported{Reason: probeReason(err), Handheld: handheld}
	}
	caps := dev.Capabilities()
	if err := dev.Close(); err != nil {
		log.WithError(err).Warn("failed to close camera after probe")
	}

	log.WithFields(logrus.Fields{
		"torch":  caps.Torch,
		"facing": caps.Facing,
		"width":  caps.Width,
		"height": caps.Height,
		"fps":    caps.FPS,
	}).Debug("camera probed")

	return FromCapabilities(caps, handheld)
}

// FromCapabilities judges the capabilities of an opened camera.
func FromCapabilities(caps camera.Capabilities, handheld bool) Result {
	if !caps.Torch {
		return Unsupported{Reason: "This camera has no controllable flashlight.", Handheld: handheld}
	}
	return Supported{Capabilities: caps, Handheld: handheld}
}

func probeReason(err error) string {
	switch {
	case errors.Is(err, camera.ErrPermissionDenied):
		return "Camera access was denied."
	case errors.Is(err, camera.ErrDeviceBusy):
		return "The camera is in use by another application."
	case errors.Is(err, camera.ErrNotFound):
		return "No suitable camera was found."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The camera check was cancelled."
	default:
		return "The camera could not be opened."
	}
}
