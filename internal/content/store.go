package content

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"git.home.luguber.info/inful/sitepipe/internal/fileio"
)

// ErrStoreDisposed is returned when a store is read after its cleanup ran.
var ErrStoreDisposed = errors.New("content store disposed")

// Store exposes a document payload. Content exposed by a store never changes
// for the lifetime of that store instance, except for file-backed stores whose
// underlying file is outside the engine's control. Implementations must be
// comparable (usually pointers) since stores are keyed by identity.
type Store interface {
	OpenRead() (io.ReadCloser, error)
	// Fingerprint returns a deterministic hash of the bytes.
	Fingerprint() (uint64, error)
	Length() (int64, error)
	MediaType() string
}

// Disposer is implemented by stores that hold releasable resources.
type Disposer interface {
	Dispose() error
}

type nullStore struct{}

func (nullStore) OpenRead() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(nil)), nil }
func (nullStore) Fingerprint() (uint64, error)     { return xxhash.Sum64(nil), nil }
func (nullStore) Length() (int64, error)           { return 0, nil }
func (nullStore) MediaType() string                { return "" }

// Null is the explicit "no content" sentinel. Passing it where a store is
// expected detaches a derived document from any inherited store; it is never
// reference counted.
var Null Store = nullStore{}

// IsNull reports whether s is nil or the Null sentinel.
func IsNull(s Store) bool {
	if s == nil {
		return true
	}
	_, ok := s.(nullStore)
	return ok
}

// Fingerprint hashes everything readable from r.
func Fingerprint(r io.Reader) (uint64, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// FingerprintBytes hashes b.
func FingerprintBytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// MemoryStore serves an in-memory buffer. Its fingerprint is memoized since
// the buffer can never change.
type MemoryStore struct {
	data      []byte
	mediaType string

	once sync.Once
	fp   uint64
}

// NewMemory copies data into a new store.
func NewMemory(data []byte, mediaType string) *MemoryStore {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &MemoryStore{data: buf, mediaType: mediaType}
}

// NewString stores s.
func NewString(s, mediaType string) *MemoryStore {
	return &MemoryStore{data: []byte(s), mediaType: mediaType}
}

func (m *MemoryStore) OpenRead() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func (m *MemoryStore) Fingerprint() (uint64, error) {
	m.once.Do(func() { m.fp = xxhash.Sum64(m.data) })
	return m.fp, nil
}

func (m *MemoryStore) Length() (int64, error) { return int64(len(m.data)), nil }
func (m *MemoryStore) MediaType() string      { return m.mediaType }

// FileStore reads a file through a fileio.FileSystem. The fingerprint is
// recomputed on every call because the file may change between reads.
type FileStore struct {
	fs              fileio.FileSystem
	path            string
	mediaType       string
	deleteOnDispose bool
	disposed        atomic.Bool
}

// NewFile returns a store over an existing file.
func NewFile(fsys fileio.FileSystem, path, mediaType string) *FileStore {
	return &FileStore{fs: fsys, path: path, mediaType: mediaType}
}

// NewTempFile returns a store that deletes its backing file on disposal.
func NewTempFile(fsys fileio.FileSystem, path, mediaType string) *FileStore {
	return &FileStore{fs: fsys, path: path, mediaType: mediaType, deleteOnDispose: true}
}

// Path returns the backing file path.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) OpenRead() (io.ReadCloser, error) {
	if f.disposed.Load() {
		return nil, fmt.Errorf("%s: %w", f.path, ErrStoreDisposed)
	}
	return f.fs.OpenRead(f.path)
}

func (f *FileStore) Fingerprint() (uint64, error) {
	r, err := f.OpenRead()
	if err != nil {
		return 0, err
	}
	defer func() { _ = r.Close() }()
	return Fingerprint(r)
}

func (f *FileStore) Length() (int64, error) {
	if f.disposed.Load() {
		return 0, fmt.Errorf("%s: %w", f.path, ErrStoreDisposed)
	}
	info, err := f.fs.Stat(f.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (f *FileStore) MediaType() string { return f.mediaType }

// Dispose marks the store finalized and removes temp files.
func (f *FileStore) Dispose() error {
	if !f.disposed.CompareAndSwap(false, true) {
		return nil
	}
	if f.deleteOnDispose {
		return f.fs.Remove(f.path)
	}
	return nil
}

// FuncStore produces a fresh stream from open on every read.
type FuncStore struct {
	open      func() (io.ReadCloser, error)
	mediaType string
}

// NewFunc wraps open.
func NewFunc(open func() (io.ReadCloser, error), mediaType string) *FuncStore {
	return &FuncStore{open: open, mediaType: mediaType}
}

func (s *FuncStore) OpenRead() (io.ReadCloser, error) { return s.open() }

func (s *FuncStore) Fingerprint() (uint64, error) {
	r, err := s.open()
	if err != nil {
		return 0, err
	}
	defer func() { _ = r.Close() }()
	return Fingerprint(r)
}

func (s *FuncStore) Length() (int64, error) {
	r, err := s.open()
	if err != nil {
		return 0, err
	}
	defer func() { _ = r.Close() }()
	return io.Copy(io.Discard, r)
}

func (s *FuncStore) MediaType() string { return s.mediaType }
