package camera

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/itohio/pulsecam/pkg/config"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the baud rate of the illuminator board.
	DefaultBaudRate = 115200
	// DefaultAckTimeout bounds the wait for a command acknowledgement.
	DefaultAckTimeout = 500 * time.Millisecond
)

// ErrTorchTimeout is returned when the illuminator does not acknowledge a command.
var ErrTorchTimeout = errors.New("torch did not acknowledge")

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// SerialTorch drives the external LED illuminator over a serial line.
//
// Protocol: the host sends "T1\n" or "T0\n", the board answers with the same
// token on its own line once the LED has switched.
type SerialTorch struct {
	port       string
	baudRate   int
	ackTimeout time.Duration

	mu   sync.Mutex
	conn io.ReadWriteCloser
}

// NewSerialTorch creates an illuminator for the configured port.
func NewSerialTorch(cfg config.TorchConfig) *SerialTorch {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}
	timeout := cfg.AckTimeout
	if timeout == 0 {
		timeout = DefaultAckTimeout
	}
	return &SerialTorch{
		port:       cfg.Port,
		baudRate:   baud,
		ackTimeout: timeout,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the serial port.
func (t *SerialTorch) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}

	port, err := serial.Open(t.port, &serial.Mode{BaudRate: t.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", t.port, err)
	}
	// Short reads let readAck enforce its own deadline
	if err := port.SetReadTimeout(20 * time.Millisecond); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout on %s: %w", t.port, err)
	}

	t.conn = port
	return nil
}

// Set switches the illuminator and waits for the acknowledgement.
func (t *SerialTorch) Set(on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return ErrNotOpen
	}

	cmd := "T0"
	if on {
		cmd = "T1"
	}
	if _, err := t.conn.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("failed to send torch command: %w", err)
	}

	deadline := time.Now().Add(t.ackTimeout)
	for {
		line, err := t.readLine(deadline)
		if err != nil {
			return err
		}
		state, err := parseAck(line)
		if err != nil {
			logrus.WithField("component", "camera.torch").WithError(err).Debugf("ignoring line %q", line)
			continue
		}
		if state != on {
			return fmt.Errorf("torch acknowledged %q after %q", line, cmd)
		}
		return nil
	}
}

// Close closes the serial port.
func (t *SerialTorch) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", t.port, err)
	}
	return nil
}

// readLine reads one trimmed line, treating empty reads as read timeouts.
func (t *SerialTorch) readLine(deadline time.Time) (string, error) {
	var (
		line []byte
		buf  [1]byte
	)
	for time.Now().Before(deadline) {
		n, err := t.conn.Read(buf[:])
		if err != nil {
			return "", fmt.Errorf("failed to read torch ack: %w", err)
		}
		if n == 0 {
			continue
		}
		if buf[0] == '\n' {
			return strings.TrimSpace(string(line)), nil
		}
		line = append(line, buf[0])
	}
	return "", ErrTorchTimeout
}

// parseAck parses an acknowledgement line: "T1" (on) or "T0" (off).
func parseAck(line string) (bool, error) {
	switch strings.TrimSpace(line) {
	case "T1":
		return true, nil
	case "T0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid torch ack %q", line)
	}
}
