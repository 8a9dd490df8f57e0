package scanner

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// LineSource yields raw scan lines. io.EOF ends the stream; any other error
// is a fault the pipeline reports and retries past.
type LineSource interface {
	ReadLine() (string, error)
}

type readerSource struct {
	r *bufio.Reader
}

// NewReaderSource reads newline-terminated scans from r. A final line
// without a newline is still returned.
func NewReaderSource(r io.Reader) LineSource {
	return &readerSource{r: bufio.NewReader(r)}
}

func (s *readerSource) ReadLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

var errPortGone = errors.New("serial port returned end of stream")

// SerialSource reads scans from a serial port. After a read failure the port
// is closed and reopened on the next ReadLine, so a scanner that is
// unplugged and reconnected resumes without a restart.
type SerialSource struct {
	name string
	mode *serial.Mode
	open func(name string, mode *serial.Mode) (serial.Port, error)

	mu     sync.Mutex
	port   serial.Port
	reader *bufio.Reader
	closed bool
}

// Compile-time guards.
var (
	_ LineSource = (*SerialSource)(nil)
	_ io.Closer  = (*SerialSource)(nil)
)

// NewSerialSource returns a source for port at baud (8N1). The port is
// opened by the first ReadLine; failing to open it is a read fault.
func NewSerialSource(port string, baud int) *SerialSource {
	return &SerialSource{
		name: port,
		mode: &serial.Mode{BaudRate: baud, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit},
		open: serial.Open,
	}
}

// OpenSerial is NewSerialSource that opens the port immediately.
func OpenSerial(port string, baud int) (*SerialSource, error) {
	s := NewSerialSource(port, baud)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SerialSource) openLocked() error {
	p, err := s.open(s.name, s.mode)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", s.name, err)
	}
	s.port = p
	s.reader = bufio.NewReader(p)
	return nil
}

// ReadLine blocks until a full line arrives. After Close it returns io.EOF.
func (s *SerialSource) ReadLine() (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", io.EOF
	}
	if s.port == nil {
		if err := s.openLocked(); err != nil {
			s.mu.Unlock()
			return "", err
		}
	}
	reader := s.reader
	s.mu.Unlock()

	line, err := reader.ReadString('\n')
	if err == nil {
		return line, nil
	}

	s.mu.Lock()
	closed := s.closed
	if s.port != nil {
		_ = s.port.Close()
		s.port = nil
	}
	s.mu.Unlock()

	if closed {
		return "", io.EOF
	}
	if errors.Is(err, io.EOF) {
		err = errPortGone
	}
	return "", fmt.Errorf("read serial port %s: %w", s.name, err)
}

// Close releases the port and unblocks a pending ReadLine.
func (s *SerialSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}
