package mmap

import (
	"errors"
	"os"
	"sync/atomic"
	"unsafe"
)

// AccessPattern hints the kernel about how a mapping will be read.
type AccessPattern int

const (
	// AccessDefault gives no specific advice.
	AccessDefault AccessPattern = iota
	// AccessSequential expects sequential reads.
	AccessSequential
	// AccessRandom expects random reads.
	AccessRandom
	// AccessWillNeed expects the data to be read soon.
	AccessWillNeed
)

const float64Size = 8

var (
	// ErrClosed is returned when using a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for sizes that are negative or not a
	// multiple of 8 bytes.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrUnsupported is returned on platforms without mmap support.
	ErrUnsupported = errors.New("mmap: unsupported platform")
	// ErrReadOnly is returned when syncing a read-only mapping.
	ErrReadOnly = errors.New("mmap: mapping is read-only")
)

// Mapping is a memory-mapped file.
type Mapping struct {
	path     string
	data     []byte
	writable bool
	closed   atomic.Bool
}

// Open maps the file at path read-only.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size < 0 || size%float64Size != 0 {
		return nil, ErrInvalidSize
	}
	if size == 0 {
		return &Mapping{path: path}, nil
	}

	data, err := osMap(f, int(size), false)
	if err != nil {
		return nil, err
	}
	return &Mapping{path: path, data: data}, nil
}

// Create creates (or truncates) the file at path to size bytes of zeros and
// maps it read-write. Writes through Float64s land in the file.
func Create(path string, size int) (*Mapping, error) {
	if size < 0 || size%float64Size != 0 {
		return nil, ErrInvalidSize
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		return nil, err
	}
	if size == 0 {
		return &Mapping{path: path, writable: true}, nil
	}

	data, err := osMap(f, size, true)
	if err != nil {
		return nil, err
	}
	return &Mapping{path: path, data: data, writable: true}, nil
}

// Path returns the mapped file path.
func (m *Mapping) Path() string { return m.path }

// Size returns the mapping size in bytes.
func (m *Mapping) Size() int { return len(m.data) }

// Writable reports whether the mapping was created read-write.
func (m *Mapping) Writable() bool { return m.writable }

// Bytes returns the mapped bytes. The slice is invalid after Close.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Float64s returns the mapping as a float64 slice aliasing the file.
// The slice is invalid after Close.
func (m *Mapping) Float64s() []float64 {
	if m.closed.Load() || len(m.data) == 0 {
		return nil
	}
	// mmap returns page-aligned memory, which satisfies float64 alignment.
	return unsafe.Slice((*float64)(unsafe.Pointer(&m.data[0])), len(m.data)/float64Size) //nolint:gosec // aligned mapping
}

// Advise hints the kernel about the access pattern. Hints are best effort.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if len(m.data) == 0 {
		return nil
	}
	return osAdvise(m.data, pattern)
}

// Sync flushes a writable mapping to its file.
func (m *Mapping) Sync() error {
	if m.closed.Load() {
		return ErrClosed
	}
	if !m.writable {
		return ErrReadOnly
	}
	if len(m.data) == 0 {
		return nil
	}
	return osSync(m.data)
}

// Close unmaps the file. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	data := m.data
	m.data = nil
	if len(data) == 0 {
		return nil
	}
	return osUnmap(data)
}
