package serialmux

import (
	"bytes"
	"errors"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/banshee-data/lap.timer/internal/monitoring"
)

// DefaultReplayScript is the gate session replayed in dev mode: two timed
// laps, a false start that is restarted, and a line the parser ignores.
var DefaultReplayScript = []ReplayStep{
	{Delay: time.Second, Line: "start"},
	{Delay: 2500 * time.Millisecond, Line: "goal,2500000"},
	{Delay: 2 * time.Second, Line: "start"},
	{Delay: 800 * time.Millisecond, Line: "start"},
	{Delay: 2100 * time.Millisecond, Line: "goal,2093417"},
	{Delay: time.Second, Line: "boot v1.2"},
	{Delay: time.Second, Line: "start"},
	{Delay: 3 * time.Second, Line: "goal,3012006"},
}

// ReplayStep is one scripted device line, sent Delay after the previous one.
type ReplayStep struct {
	Delay time.Duration
	Line  string
}

// ReplayPort implements SerialPorter by replaying a script of gate lines in
// a loop. Each line is written in randomly split pieces so the line framer is
// exercised the way a real UART delivers data.
type ReplayPort struct {
	io.Reader
	w *io.PipeWriter

	mu      sync.Mutex
	written bytes.Buffer
	done    chan struct{}
	once    sync.Once
}

// NewReplayPort starts replaying script. Close stops the replay.
func NewReplayPort(script []ReplayStep) *ReplayPort {
	r, w := io.Pipe()
	p := &ReplayPort{Reader: r, w: w, done: make(chan struct{})}
	go p.replay(script)
	return p
}

func (p *ReplayPort) replay(script []ReplayStep) {
	defer p.w.Close()
	if len(script) == 0 {
		return
	}
	for {
		for _, step := range script {
			select {
			case <-time.After(step.Delay):
			case <-p.done:
				return
			}
			msg := step.Line + "\r\n"
			for len(msg) > 0 {
				n := 1 + rand.IntN(len(msg))
				if _, err := p.w.Write([]byte(msg[:n])); err != nil {
					return
				}
				msg = msg[n:]
			}
		}
	}
}

// Write records commands sent to the fake device.
func (p *ReplayPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	monitoring.Debugf("replay port received command %q", b)
	return p.written.Write(b)
}

// Written returns every command written to the port.
func (p *ReplayPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

// Close stops the replay and unblocks readers.
func (p *ReplayPort) Close() error {
	p.once.Do(func() {
		close(p.done)
		p.w.CloseWithError(io.EOF)
	})
	return nil
}

// NewMockSerialMux creates a SerialMux backed by a ReplayPort.
func NewMockSerialMux(script []ReplayStep) *SerialMux[*ReplayPort] {
	return NewSerialMux(NewReplayPort(script))
}

// TestableSerialPort implements SerialPorter with configurable behaviour for
// testing. Reads block until data is added or the port is closed.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call once the buffer is empty
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// ShortWrite makes Write report one byte fewer than requested
	ShortWrite bool

	// Closed indicates whether Close was called
	Closed bool

	// EOF makes Read return io.EOF once the buffer is drained
	EOF bool

	readCond *sync.Cond
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	tsp.readCond = sync.NewCond(&tsp.mu)
	return tsp
}

// Read returns buffered data, blocking while the buffer is empty.
func (t *TestableSerialPort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for !t.Closed && t.ReadBuffer.Len() == 0 && t.ReadError == nil && !t.EOF {
		t.readCond.Wait()
	}
	if t.ReadBuffer.Len() > 0 {
		return t.ReadBuffer.Read(p)
	}
	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}
	return 0, io.EOF
}

// Write writes to the write buffer, optionally simulating errors.
func (t *TestableSerialPort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}
	n, err = t.WriteBuffer.Write(p)
	if t.ShortWrite && n > 0 {
		n--
	}
	return n, err
}

// Close marks the port as closed and wakes blocked readers.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast()
	return nil
}

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
	t.readCond.Broadcast()
}

// FailNextRead makes the next Read on an empty buffer return err.
func (t *TestableSerialPort) FailNextRead(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadError = err
	t.readCond.Broadcast()
}

// EndOfStream makes Read return io.EOF once the buffer is drained.
func (t *TestableSerialPort) EndOfStream() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.EOF = true
	t.readCond.Broadcast()
}

// GetWrittenData returns all data written to the port.
func (t *TestableSerialPort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return bytes.Clone(t.WriteBuffer.Bytes())
}
