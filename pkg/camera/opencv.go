//go:build opencv

package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itohio/pulsecam/pkg/config"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// OpenCV captures frames from a local camera through GoCV.
// It has no control over a flashlight; pair it with WithTorch.
type OpenCV struct {
	deviceID int

	mu      sync.RWMutex
	capture *gocv.VideoCapture
	frames  chan Frame
	cancel  context.CancelFunc
	done    chan struct{}
	caps    Capabilities
	open    bool
}

// NewOpenCV creates a camera for the given device index.
func NewOpenCV(deviceID int) *OpenCV {
	return &OpenCV{deviceID: deviceID}
}

func init() {
	Register("opencv", func(cfg *config.Config) (Device, error) {
		return NewOpenCV(cfg.Camera.DeviceID), nil
	})
}

// Open opens the capture device and applies the resolution and rate hints.
func (c *OpenCV) Open(ctx context.Context, cons Constraints) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to open camera %d: %w", c.deviceID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return ErrAlreadyOpen
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("failed to open camera %d: %v: %w", c.deviceID, err, ErrNotFound)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("failed to open camera %d: %w", c.deviceID, ErrDeviceBusy)
	}

	if cons.Width > 0 && cons.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(cons.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(cons.Height))
	}
	if cons.FPS > 0 {
		capture.Set(gocv.VideoCaptureFPS, float64(cons.FPS))
	}

	facing := cons.Facing
	if facing == "" {
		facing = FacingEnvironment
	}
	c.caps = Capabilities{
		Facing: facing,
		Width:  int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(capture.Get(gocv.VideoCaptureFrameHeight)),
		FPS:    int(capture.Get(gocv.VideoCaptureFPS)),
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.capture = capture
	c.frames = make(chan Frame, DefaultFrameBuffer)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.open = true

	go c.readFrames(loopCtx, capture, c.frames, c.done)

	return nil
}

// Close stops reading and releases the capture device.
func (c *OpenCV) Close() error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil
	}
	cancel, done, capture := c.cancel, c.done, c.capture
	c.open = false
	c.capture = nil
	c.mu.Unlock()

	cancel()
	<-done

	if err := capture.Close(); err != nil {
		return fmt.Errorf("failed to close camera %d: %w", c.deviceID, err)
	}
	return nil
}

func (c *OpenCV) Frames() <-chan Frame {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frames
}

func (c *OpenCV) Capabilities() Capabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caps
}

func (c *OpenCV) SetTorch(bool) error {
	return ErrTorchUnsupported
}

func (c *OpenCV) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// readFrames owns the frames channel and closes it on exit.
func (c *OpenCV) readFrames(ctx context.Context, capture *gocv.VideoCapture, frames chan<- Frame, done chan<- struct{}) {
	defer close(done)
	defer close(frames)

	log := logrus.WithField("component", "camera.opencv")

	mat := gocv.NewMat()
	defer mat.Close()

	for {
		if ctx.Err() != nil {
			return
		}
		if ok := capture.Read(&mat); !ok || mat.Empty() {
			log.Warn("camera stream ended")
			return
		}

		img, err := mat.ToImage()
		if err != nil {
			log.WithError(err).Debug("failed to convert frame")
			continue
		}

		select {
		case frames <- Frame{Image: img, Timestamp: time.Now()}:
		case <-ctx.Done():
			return
		default:
			log.Debug("frames channel full, dropping frame")
		}
	}
}
