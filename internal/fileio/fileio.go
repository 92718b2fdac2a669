// Package fileio defines the file-access capability the engine consumes and a
// billy-backed implementation for the local disk and for memory.
//
// The engine never normalizes paths, expands globs or resolves overlay roots;
// it opens, writes and enumerates exactly what it is given.
package fileio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// FileSystem is the narrow capability used by content stores, modules and the
// write tracker.
type FileSystem interface {
	OpenRead(path string) (io.ReadCloser, error)
	// OpenWrite truncates or creates the file, creating parent directories.
	OpenWrite(path string) (io.WriteCloser, error)
	Exists(path string) bool
	Stat(path string) (fs.FileInfo, error)
	Remove(path string) error
	// EnumerateRoots returns the configured input roots in declaration order.
	EnumerateRoots() []string
	// Enumerate lists every regular file below root in lexical order.
	Enumerate(root string) ([]string, error)
}

// BillyFS adapts a billy.Filesystem to FileSystem. It is safe for concurrent
// use. Buffered instances copy file bodies in and out under the lock, for
// backends such as memfs whose open handles share unguarded storage.
type BillyFS struct {
	mu       sync.RWMutex
	fs       billy.Filesystem
	roots    []string
	buffered bool
}

// New wraps an existing billy filesystem.
func New(bfs billy.Filesystem, roots ...string) *BillyFS {
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		cleaned = append(cleaned, clean(r))
	}
	return &BillyFS{fs: bfs, roots: cleaned}
}

// NewOS returns a FileSystem backed by the local disk. Paths are absolute.
func NewOS(roots ...string) *BillyFS {
	return New(osfs.New(string(filepath.Separator)), roots...)
}

// NewMemory returns an in-memory FileSystem, mainly for tests.
func NewMemory(roots ...string) *BillyFS {
	b := New(memfs.New(), roots...)
	b.buffered = true
	return b
}

// OpenRead opens path for reading.
func (b *BillyFS) OpenRead(p string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	f, err := b.fs.Open(clean(p))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	if !b.buffered {
		return f, nil
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// OpenWrite opens path for writing, truncating existing content.
func (b *BillyFS) OpenWrite(p string) (io.WriteCloser, error) {
	p = clean(p)
	b.mu.Lock()
	defer b.mu.Unlock()
	f, err := b.create(p)
	if err != nil {
		return nil, err
	}
	if !b.buffered {
		return f, nil
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("create %s: %w", p, err)
	}
	return &bufferedWriter{fs: b, path: p}, nil
}

// create truncates or creates p. Callers hold the write lock.
func (b *BillyFS) create(p string) (billy.File, error) {
	if dir := path.Dir(p); dir != "." && dir != "/" {
		if err := b.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	f, err := b.fs.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s for writing: %w", p, err)
	}
	return f, nil
}

// Exists reports whether path exists.
func (b *BillyFS) Exists(p string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, err := b.fs.Stat(clean(p))
	return err == nil
}

// Stat returns file information for path.
func (b *BillyFS) Stat(p string) (fs.FileInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fs.Stat(clean(p))
}

// Remove deletes path. Removing a missing file is not an error.
func (b *BillyFS) Remove(p string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fs.Remove(clean(p)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return nil
}

// EnumerateRoots returns a copy of the configured roots.
func (b *BillyFS) EnumerateRoots() []string {
	out := make([]string, len(b.roots))
	copy(out, b.roots)
	return out
}

// Enumerate lists every regular file below root.
func (b *BillyFS) Enumerate(root string) ([]string, error) {
	root = clean(root)
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, err := b.fs.Stat(root); err != nil {
		return nil, nil
	}
	var files []string
	err := util.Walk(b.fs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, clean(p))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// bufferedWriter collects a file body and stores it on Close.
type bufferedWriter struct {
	fs     *BillyFS
	path   string
	buf    bytes.Buffer
	closed bool
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("write %s: %w", w.path, os.ErrClosed)
	}
	return w.buf.Write(p)
}

func (w *bufferedWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	f, err := w.fs.create(w.path)
	if err != nil {
		return err
	}
	if _, err := f.Write(w.buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	return f.Close()
}

// WriteFile writes data to path through fsys.
func WriteFile(fsys FileSystem, p string, data []byte) error {
	w, err := fsys.OpenWrite(p)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", p, err)
	}
	return w.Close()
}

// ReadFile reads the whole file at path.
func ReadFile(fsys FileSystem, p string) ([]byte, error) {
	r, err := fsys.OpenRead(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

// IsWithin reports whether p is root itself or lies below it.
func IsWithin(root, p string) bool {
	if root == "" {
		return false
	}
	root, p = clean(root), clean(p)
	if root == p {
		return true
	}
	if root == "/" {
		return path.IsAbs(p)
	}
	return len(p) > len(root) && p[:len(root)] == root && p[len(root)] == '/'
}

// Rel returns p relative to root in slash form, or p unchanged when it is not below root.
func Rel(root, p string) string {
	root, p = clean(root), clean(p)
	if !IsWithin(root, p) || root == p {
		return p
	}
	if root == "/" {
		return p[1:]
	}
	return p[len(root)+1:]
}

func clean(p string) string {
	return path.Clean(filepath.ToSlash(p))
}
