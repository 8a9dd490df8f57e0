package scanner

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestReaderSourceLastLineWithoutNewline(t *testing.T) {
	src := NewReaderSource(strings.NewReader("AB1234\r\nCD5678"))

	line, err := src.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "AB1234\r\n", line)

	line, err = src.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "CD5678", line)

	_, err = src.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

// fakePort satisfies serial.Port by embedding it; only Read and Close are used.
type fakePort struct {
	serial.Port
	r      io.Reader
	mu     sync.Mutex
	closed bool
}

func (p *fakePort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestSerialSourceReopensAfterFault(t *testing.T) {
	var opened []*fakePort
	s := NewSerialSource("/dev/ttyUSB0", 9600)
	s.open = func(name string, mode *serial.Mode) (serial.Port, error) {
		assert.Equal(t, "/dev/ttyUSB0", name)
		assert.Equal(t, 9600, mode.BaudRate)
		var r io.Reader
		if len(opened) == 0 {
			r = io.MultiReader(strings.NewReader("AB1234\n"), failingReader{errors.New("input/output error")})
		} else {
			r = strings.NewReader("CD5678\n")
		}
		p := &fakePort{r: r}
		opened = append(opened, p)
		return p, nil
	}

	line, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "AB1234\n", line)

	_, err = s.ReadLine()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.True(t, opened[0].closed, "failed port is closed")

	line, err = s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "CD5678\n", line)
	assert.Len(t, opened, 2)

	require.NoError(t, s.Close())
	_, err = s.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSerialSourceOpenFailureIsFault(t *testing.T) {
	s := NewSerialSource("/dev/ttyACM9", 9600)
	s.open = func(string, *serial.Mode) (serial.Port, error) {
		return nil, errors.New("no such file or directory")
	}

	_, err := s.ReadLine()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestSerialSourceEndOfStreamIsFault(t *testing.T) {
	s := NewSerialSource("/dev/ttyUSB0", 9600)
	s.open = func(string, *serial.Mode) (serial.Port, error) {
		return &fakePort{r: strings.NewReader("")}, nil
	}

	_, err := s.ReadLine()
	assert.ErrorIs(t, err, errPortGone)
	assert.NotErrorIs(t, err, io.EOF)
}
