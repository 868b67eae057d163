package camera

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/itohio/pulsecam/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort answers every command with a scripted reply. Reads with nothing
// queued return (0, nil), like a serial read timeout.
type fakePort struct {
	mu      sync.Mutex
	written bytes.Buffer
	pending bytes.Buffer
	reply   func(cmd string) string
	closed  bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written.Write(b)
	if p.reply != nil {
		p.pending.WriteString(p.reply(string(b)))
	}
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending.Len() == 0 {
		return 0, nil
	}
	return p.pending.Read(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func echoReply(cmd string) string {
	return cmd[:2] + "\r\n"
}

func TestParseAck(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    bool
		wantErr bool
	}{
		{name: "on", line: "T1", want: true},
		{name: "off", line: "T0", want: false},
		{name: "on with whitespace", line: " T1\r", want: true},
		{name: "empty", line: "", wantErr: true},
		{name: "unknown state", line: "T2", wantErr: true},
		{name: "lowercase", line: "t1", wantErr: true},
		{name: "garbage", line: "hello", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAck(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewSerialTorch_Defaults(t *testing.T) {
	torch := NewSerialTorch(config.TorchConfig{Port: "/dev/ttyACM0"})
	assert.Equal(t, "/dev/ttyACM0", torch.port)
	assert.Equal(t, DefaultBaudRate, torch.baudRate)
	assert.Equal(t, DefaultAckTimeout, torch.ackTimeout)
}

func TestSerialTorch_SetNotConnected(t *testing.T) {
	torch := NewSerialTorch(config.TorchConfig{Port: "/dev/null"})
	assert.ErrorIs(t, torch.Set(true), ErrNotOpen)
	assert.NoError(t, torch.Close())
}

func TestSerialTorch_Set(t *testing.T) {
	port := &fakePort{reply: echoReply}
	torch := NewSerialTorch(config.TorchConfig{AckTimeout: time.Second})
	torch.conn = port

	require.NoError(t, torch.Set(true))
	require.NoError(t, torch.Set(false))
	assert.Equal(t, "T1\nT0\n", port.written.String())

	require.NoError(t, torch.Close())
	assert.True(t, port.closed)
}

func TestSerialTorch_SkipsNoise(t *testing.T) {
	port := &fakePort{reply: func(cmd string) string {
		return "boot\n\n" + echoReply(cmd)
	}}
	torch := NewSerialTorch(config.TorchConfig{AckTimeout: time.Second})
	torch.conn = port

	assert.NoError(t, torch.Set(true))
}

func TestSerialTorch_WrongAck(t *testing.T) {
	port := &fakePort{reply: func(string) string { return "T0\n" }}
	torch := NewSerialTorch(config.TorchConfig{AckTimeout: time.Second})
	torch.conn = port

	err := torch.Set(true)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTorchTimeout)
}

func TestSerialTorch_Timeout(t *testing.T) {
	port := &fakePort{}
	torch := NewSerialTorch(config.TorchConfig{AckTimeout: 30 * time.Millisecond})
	torch.conn = port

	start := time.Now()
	err := torch.Set(true)
	assert.ErrorIs(t, err, ErrTorchTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}
