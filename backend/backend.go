// Package backend defines the capability set every vcmc storage backend
// implements and the factory that resolves a BackendSpec to a shared
// instance.
package backend

import (
	"sync"

	"github.com/gigimon/vcmc/fs"
)

// Backend is the polymorphic filesystem surface the app and the worker pool
// operate against. All methods are synchronous; implementations may pool or
// re-dial connections internally.
type Backend interface {
	// Name identifies the backend family ("local", "sftp", "archive").
	Name() string

	// ListDir returns the sorted listing of path, with the synthesized ".."
	// parent link first when a parent exists.
	ListDir(path string, mode fs.SortMode, showHidden bool) ([]fs.Entry, error)

	// StatEntry resolves a single path to an entry.
	StatEntry(path string) (fs.Entry, error)

	// CreateDir creates a directory. The parent must exist.
	CreateDir(path string) error

	// RemovePath removes a file, or a directory recursively.
	RemovePath(path string) error

	// MovePath renames src to dst. The local backend falls back to
	// copy+remove when the native rename fails across devices; the SFTP
	// backend uses the remote rename only. Returns the resolved destination.
	MovePath(src, dst string) (string, error)

	// CopyPath copies a file or directory tree. Returns the resolved
	// destination.
	CopyPath(src, dst string) (string, error)

	// NormalizeExistingPath resolves path to an absolute canonical form.
	// The path must exist.
	NormalizeExistingPath(op, path string) (string, error)

	// NormalizeNewPath canonicalizes the parent (which must exist) and
	// keeps the terminal name verbatim.
	NormalizeNewPath(op, path string) (string, error)

	// ReadFile returns the whole content of path.
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces the content of path.
	WriteFile(path string, data []byte) error
}

// Constructor builds a backend from a spec. Implementations register
// themselves from init.
type Constructor func(spec fs.BackendSpec) (Backend, error)

var (
	registryMu   sync.Mutex
	constructors = map[fs.BackendKind]Constructor{}

	cacheMu sync.Mutex
	cache   = map[string]Backend{}
)

// Register installs the constructor for a backend kind.
func Register(kind fs.BackendKind, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	constructors[kind] = ctor
}

// FromSpec resolves a spec to a backend instance. Instances are shared:
// a panel and the jobs running against it get the same backend.
func FromSpec(spec fs.BackendSpec) (Backend, error) {
	key := spec.String()
	cacheMu.Lock()
	if b, ok := cache[key]; ok {
		cacheMu.Unlock()
		return b, nil
	}
	cacheMu.Unlock()

	registryMu.Lock()
	ctor, ok := constructors[spec.Kind]
	registryMu.Unlock()
	if !ok {
		return nil, fs.UnavailableError("backend", "unknown", nil)
	}
	b, err := ctor(spec)
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if prev, ok := cache[key]; ok {
		return prev, nil
	}
	cache[key] = b
	return b, nil
}
