// Package monitor owns the camera during a measurement: it acquires the
// device, lights the torch, feeds frames to the meter and releases everything
// on every exit path.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/itohio/pulsecam/pkg/camera"
	"github.com/itohio/pulsecam/pkg/capability"
	"github.com/itohio/pulsecam/pkg/config"
	"github.com/itohio/pulsecam/pkg/meter"
	"github.com/itohio/pulsecam/pkg/sample"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "monitor")

// DeviceFactory creates the camera for one session.
type DeviceFactory func() (camera.Device, error)

// FactoryFromConfig creates devices through the camera registry.
func FactoryFromConfig(cfg *config.Config) DeviceFactory {
	return func() (camera.Device, error) {
		return camera.NewDevice(cfg)
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithOnBPMDetected sets the callback fired once each time a reading becomes stable.
func WithOnBPMDetected(f func(bpm int)) Option {
	return func(c *Controller) { c.onBPM = f }
}

// WithOnError sets the callback receiving user-facing failure messages.
func WithOnError(f func(message string)) Option {
	return func(c *Controller) { c.onError = f }
}

// WithOnUpdate sets the callback fired after every analysis cycle.
func WithOnUpdate(f func(meter.SignalData)) Option {
	return func(c *Controller) { c.onUpdate = f }
}

// WithEnvironment overrides the detected environment.
func WithEnvironment(env capability.Environment) Option {
	return func(c *Controller) { c.env = env }
}

// WithClassifier overrides the capability rules.
func WithClassifier(cl *capability.Classifier) Option {
	return func(c *Controller) { c.classifier = cl }
}

// Controller runs measurement sessions. Every session measures into its own
// meter, which stays readable through Snapshot after the session ends.
type Controller struct {
	cfg        *config.Config
	factory    DeviceFactory
	env        capability.Environment
	classifier *capability.Classifier

	onBPM    func(int)
	onError  func(string)
	onUpdate func(meter.SignalData)

	mu      sync.Mutex
	session *session
	meter   *meter.Meter
}

// session is one Start..Stop cycle.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc

	settled chan struct{} // closed when Start returns
	done    chan struct{} // closed when the frame loop exits
	meter   *meter.Meter

	mu    sync.Mutex
	dev   camera.Device
	caps  camera.Capabilities
	torch bool

	release sync.Once
}

// New creates a controller. No hardware is touched until CheckCapabilities
// or Start.
func New(cfg *config.Config, factory DeviceFactory, opts ...Option) *Controller {
	c := &Controller{
		cfg:     cfg,
		factory: factory,
	}
	c.env = capability.DetectEnvironment(cfg)
	c.classifier = capability.DefaultClassifier(cfg.Device)

	for _, opt := range opts {
		opt(c)
	}

	c.meter = c.newMeter(func() bool { return true })
	return c
}

// newMeter creates a meter whose callbacks are forwarded while live reports
// true.
func (c *Controller) newMeter(live func() bool) *meter.Meter {
	m := meter.New(meter.ParamsFrom(c.cfg.Engine))
	m.OnUpdate(func(d meter.SignalData) {
		if c.onUpdate != nil && live() {
			c.onUpdate(d)
		}
	})
	m.OnDetected(func(bpm int) {
		if !live() {
			return
		}
		log.WithField("bpm", bpm).Info("stable heart rate detected")
		if c.onBPM != nil {
			c.onBPM(bpm)
		}
	})
	return m
}

func (c *Controller) currentMeter() *meter.Meter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meter
}

func (c *Controller) constraints() camera.Constraints {
	return camera.Constraints{
		Facing: c.cfg.Camera.Facing,
		Width:  c.cfg.Camera.Width,
		Height: c.cfg.Camera.Height,
		FPS:    c.cfg.Camera.FPS,
	}
}

// CheckCapabilities reports whether measuring is possible. Pre-classified
// devices are rejected without opening the camera. While a session runs the
// capabilities of the open camera are reported.
func (c *Controller) CheckCapabilities(ctx context.Context) capability.Descriptor {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s != nil {
		s.mu.Lock()
		caps, open := s.caps, s.dev != nil && s.dev.IsOpen()
		s.mu.Unlock()
		if open {
			return capability.Describe(capability.FromCapabilities(caps, c.env.Handheld))
		}
	}

	return capability.Describe(c.classifier.Check(ctx, c.env, c.factory, c.constraints()))
}

// Start acquires the camera, enables the torch and starts the frame loop.
// ctx bounds acquisition only. On failure every acquired resource is
// released, the error callback receives a user-facing message and the
// returned error wraps one of the package errors.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	sctx, cancel := context.WithCancel(context.Background())
	s := &session{
		ctx:     sctx,
		cancel:  cancel,
		settled: make(chan struct{}),
		done:    make(chan struct{}),
	}
	c.session = s
	c.mu.Unlock()

	defer close(s.settled)

	// Acquisition is aborted by the caller's ctx or by Stop
	acqCtx, acqCancel := context.WithCancel(ctx)
	defer acqCancel()
	stopAcq := context.AfterFunc(sctx, acqCancel)
	defer stopAcq()

	if err := c.acquire(acqCtx, s); err != nil {
		return c.fail(s, err)
	}
	if sctx.Err() != nil {
		return c.fail(s, ErrStopped)
	}

	s.meter = c.newMeter(func() bool { return s.ctx.Err() == nil })
	c.mu.Lock()
	c.meter = s.meter
	c.mu.Unlock()

	s.mu.Lock()
	caps, torch := s.caps, s.torch
	s.mu.Unlock()
	log.WithFields(logrus.Fields{
		"facing": caps.Facing,
		"width":  caps.Width,
		"height": caps.Height,
		"fps":    caps.FPS,
		"torch":  torch,
	}).Info("measurement started")

	go c.loop(s)
	return nil
}

func (c *Controller) acquire(ctx context.Context, s *session) error {
	dev, err := c.factory()
	if err != nil {
		return fmt.Errorf("failed to create camera: %w", err)
	}
	s.mu.Lock()
	s.dev = dev
	s.mu.Unlock()

	if err := dev.Open(ctx, c.constraints()); err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}

	caps := dev.Capabilities()
	s.mu.Lock()
	s.caps = caps
	s.mu.Unlock()

	if !caps.Torch {
		if c.cfg.Camera.RequireTorch {
			return fmt.Errorf("camera has no torch: %w", ErrTorch)
		}
		log.Warn("camera has no torch, measuring without illumination")
		return nil
	}

	if err := dev.SetTorch(true); err != nil {
		if c.cfg.Camera.RequireTorch {
			return fmt.Errorf("failed to enable torch: %v: %w", err, ErrTorch)
		}
		log.WithError(err).Warn("failed to enable torch, measuring without illumination")
		return nil
	}
	s.mu.Lock()
	s.torch = true
	s.mu.Unlock()
	return nil
}

// fail releases a session that did not start.
func (c *Controller) fail(s *session, err error) error {
	stopped := s.ctx.Err() != nil || errors.Is(err, context.Canceled)
	c.detach(s)
	c.release(s)

	if stopped {
		log.Info("measurement stopped during acquisition")
		return fmt.Errorf("%w: %v", ErrStopped, err)
	}

	log.WithError(err).Error("failed to start measurement")
	c.reportError(Describe(err))
	return err
}

// detach clears the current session if it is s.
func (c *Controller) detach(s *session) {
	c.mu.Lock()
	if c.session == s {
		c.session = nil
	}
	c.mu.Unlock()
	s.cancel()
}

// release turns the torch off and closes the camera, once per session.
func (c *Controller) release(s *session) {
	s.release.Do(func() {
		s.mu.Lock()
		dev, torch := s.dev, s.torch
		s.torch = false
		s.mu.Unlock()

		if dev == nil {
			return
		}
		if torch {
			if err := dev.SetTorch(false); err != nil {
				log.WithError(err).Warn("failed to turn torch off")
			}
		}
		if err := dev.Close(); err != nil {
			log.WithError(err).Warn("failed to close camera")
		}
		log.Debug("camera released")
	})
}

// Stop ends the current session. It may be called at any time, from any
// goroutine including the callbacks, and is a no-op when nothing runs. If
// acquisition is in progress it is aborted and Stop waits for it to settle.
func (c *Controller) Stop() {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s == nil {
		return
	}

	s.cancel()
	<-s.settled
	c.release(s)
	log.Info("measurement stopped")
}

// Close is the process-level teardown.
func (c *Controller) Close() error {
	c.Stop()
	return nil
}

// Running reports whether a session is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// Snapshot returns the latest SignalData of the current or last session.
func (c *Controller) Snapshot() meter.SignalData {
	return c.currentMeter().Snapshot()
}

// Samples returns a copy of the signal buffer of the current or last session.
func (c *Controller) Samples() []float64 {
	return c.currentMeter().Samples()
}

// TorchOn reports whether the running session has the torch lit.
func (c *Controller) TorchOn() bool {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.torch
}

// SetTorch switches the torch of the running session.
func (c *Controller) SetTorch(on bool) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return ErrStopped
	}

	select {
	case <-s.settled:
	default:
		return fmt.Errorf("camera is still starting: %w", ErrTorch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return ErrStopped
	}
	if err := s.dev.SetTorch(on); err != nil {
		return fmt.Errorf("failed to switch torch: %w", err)
	}
	s.torch = on
	return nil
}

// ProcessFrame samples one frame and feeds the meter. Frames without a
// usable region are skipped. The frame loop calls it for every frame; call
// it directly only when no session runs.
func (c *Controller) ProcessFrame(frame camera.Frame) {
	c.processFrame(c.currentMeter(), frame)
}

func (c *Controller) processFrame(m *meter.Meter, frame camera.Frame) {
	if frame.Image == nil {
		return
	}
	roi := sample.CenterROI(frame.Image.Bounds(), c.cfg.Engine.ROIFraction)
	v := sample.Luminance(frame.Image, roi, c.cfg.Engine.SampleStep)
	m.ProcessSample(v)
}

// loop is the single writer of the meter state while a session runs.
func (c *Controller) loop(s *session) {
	defer close(s.done)

	s.mu.Lock()
	frames := s.dev.Frames()
	s.mu.Unlock()

	for {
		select {
		case <-s.ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				if s.ctx.Err() != nil {
					return
				}
				log.Warn("camera stream ended")
				c.detach(s)
				c.release(s)
				c.reportError(Describe(ErrStreamEnded))
				return
			}
			if s.ctx.Err() != nil {
				return
			}
			c.processFrame(s.meter, frame)
		}
	}
}

func (c *Controller) reportError(msg string) {
	if c.onError != nil {
		c.onError(msg)
	}
}
