package camera

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/itohio/pulsecam/pkg/config"
	"github.com/sirupsen/logrus"
)

// DefaultFrameBuffer is the capacity of the frames channel.
const DefaultFrameBuffer = 8

// Mock simulates a camera with a fingertip pressed on the lens.
//
// The red channel follows base + a pulse waveform (fundamental plus second
// harmonic at cfg.BPM) + bounded deterministic noise. The fields below may be
// set before Open to inject failures and shape the stream.
type Mock struct {
	cfg *config.MockConfig

	OpenErr   error         // Returned by Open
	TorchErr  error         // Returned by SetTorch(true)
	OpenDelay time.Duration // Simulated permission prompt, honours ctx
	MaxFrames int           // Stream ends after this many frames, 0 means never

	mu      sync.RWMutex
	frames  chan Frame
	cancel  context.CancelFunc
	done    chan struct{}
	open    bool
	torch   bool
	facing  string
	started time.Time

	opens    int
	closes   int
	torchOn  int
	torchOff int
}

// NewMock creates a new mocked camera.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}
	return &Mock{cfg: cfg}
}

// Open simulates acquiring the camera and starts producing frames.
func (m *Mock) Open(ctx context.Context, c Constraints) error {
	m.mu.Lock()
	m.opens++
	if m.open {
		m.mu.Unlock()
		return ErrAlreadyOpen
	}
	m.mu.Unlock()

	if m.OpenDelay > 0 {
		select {
		case <-time.After(m.OpenDelay):
		case <-ctx.Done():
			return fmt.Errorf("failed to open mock camera: %w", ctx.Err())
		}
	}
	if m.OpenErr != nil {
		return m.OpenErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open {
		return ErrAlreadyOpen
	}

	facing := c.Facing
	if facing == "" {
		facing = FacingEnvironment
	}

	genCtx, cancel := context.WithCancel(context.Background())
	m.frames = make(chan Frame, DefaultFrameBuffer)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.open = true
	m.facing = facing
	m.started = time.Now()

	go m.generateFrames(genCtx, m.frames, m.done)

	return nil
}

// Close stops the simulated stream. Every call is counted, including calls on
// a camera that never opened.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closes++
	if !m.open {
		m.mu.Unlock()
		return nil
	}
	cancel, done := m.cancel, m.done
	m.open = false
	m.torch = false
	m.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Frames returns the channel of the current session.
func (m *Mock) Frames() <-chan Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frames
}

// Capabilities reports the simulated camera.
func (m *Mock) Capabilities() Capabilities {
	m.mu.RLock()
	defer m.mu.RUnlock()

	facing := m.facing
	if facing == "" {
		facing = FacingEnvironment
	}
	return Capabilities{
		Torch:  m.cfg.Torch,
		Facing: facing,
		Width:  m.cfg.Width,
		Height: m.cfg.Height,
		FPS:    m.cfg.FPS,
	}
}

// SetTorch switches the simulated torch.
func (m *Mock) SetTorch(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return ErrNotOpen
	}
	if !m.cfg.Torch {
		return ErrTorchUnsupported
	}
	if on && m.TorchErr != nil {
		return m.TorchErr
	}

	m.torch = on
	if on {
		m.torchOn++
	} else {
		m.torchOff++
	}
	return nil
}

// IsOpen returns whether the camera is currently open.
func (m *Mock) IsOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.open
}

// Torch returns whether the simulated torch is lit.
func (m *Mock) Torch() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.torch
}

// Opens returns the number of Open calls.
func (m *Mock) Opens() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opens
}

// Closes returns the number of Close calls.
func (m *Mock) Closes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closes
}

// TorchOns returns the number of successful SetTorch(true) calls.
func (m *Mock) TorchOns() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.torchOn
}

// TorchOffs returns the number of successful SetTorch(false) calls.
func (m *Mock) TorchOffs() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.torchOff
}

// Level returns the red channel level of frame i.
func (m *Mock) Level(i int) float64 {
	fps := float64(m.cfg.FPS)
	if fps <= 0 {
		fps = 30
	}
	t := float64(i) / fps
	f := m.cfg.BPM / 60

	pulse := math.Sin(2*math.Pi*f*t) + 0.5*math.Sin(4*math.Pi*f*t)
	return m.cfg.Base + m.cfg.Amplitude*pulse + m.cfg.Noise*noise(i)
}

// FrameAt renders frame i of the synthetic stream.
func (m *Mock) FrameAt(i int) Frame {
	w, h := m.cfg.Width, m.cfg.Height
	if w <= 0 || h <= 0 {
		w, h = 64, 48
	}
	level := m.Level(i)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		row := y * img.Stride
		for x := range w {
			// Ordered dither keeps the frame mean close to level
			d := float64((x*31+y*17)%64) / 64
			p := row + x*4
			img.Pix[p] = clampByte(level + d)
			img.Pix[p+1] = clampByte(level * 0.15)
			img.Pix[p+2] = clampByte(level * 0.1)
			img.Pix[p+3] = 0xff
		}
	}

	m.mu.RLock()
	started := m.started
	m.mu.RUnlock()

	period := time.Second / time.Duration(max(m.cfg.FPS, 1))
	return Frame{
		Image:     img,
		Timestamp: started.Add(time.Duration(i) * period),
	}
}

// generateFrames owns the frames channel and closes it on exit.
func (m *Mock) generateFrames(ctx context.Context, frames chan<- Frame, done chan<- struct{}) {
	defer close(done)
	defer close(frames)

	period := time.Second / time.Duration(max(m.cfg.FPS, 1))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for i := 0; m.MaxFrames <= 0 || i < m.MaxFrames; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame := m.FrameAt(i)
		select {
		case frames <- frame:
		case <-ctx.Done():
			return
		default:
			logrus.WithField("component", "camera.mock").Debug("frames channel full, dropping frame")
		}
	}
}

// noise is a deterministic value in [-1, 1] for sample i.
func noise(i int) float64 {
	v := math.Sin(float64(i)*12.9898) * 43758.5453
	return 2*(v-math.Floor(v)) - 1
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
