// Package archive implements a read-only vcmc backend over a tar container.
package archive

import (
	"archive/tar"
	"io"
	"os"
	gopath "path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/gigimon/vcmc/backend"
	"github.com/gigimon/vcmc/fs"
)

func init() {
	backend.Register(fs.BackendArchive, func(spec fs.BackendSpec) (backend.Backend, error) {
		if spec.Archive == nil {
			return nil, fs.UnavailableError("archive", "unknown", errors.New("missing archive info"))
		}
		return New(spec.Archive.ArchivePath), nil
	})
}

// member is one stored tar entry, with its name normalized to an absolute
// slash path inside the archive.
type member struct {
	name    string
	size    int64
	modTime time.Time
	mode    os.FileMode
	isDir   bool
	isLink  bool
}

// Fs is the archive backend. The member index is built once on first use;
// file reads stream the container again to reach the payload.
type Fs struct {
	archivePath string

	mu      sync.Mutex
	indexed bool
	members map[string]member
	dirs    map[string]bool
}

// New returns an archive backend for the tar container at archivePath.
func New(archivePath string) *Fs {
	return &Fs{archivePath: archivePath}
}

// Name identifies the backend family
func (f *Fs) Name() string {
	return "archive"
}

func (f *Fs) String() string {
	return "archive://" + f.archivePath
}

// normalizeMemberName maps a stored tar name to "/docs/readme.txt" form.
func normalizeMemberName(name string) string {
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimSuffix(name, "/")
	if name == "" || name == "." {
		return "/"
	}
	return gopath.Clean("/" + name)
}

func (f *Fs) index() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexed {
		return nil
	}

	file, err := os.Open(f.archivePath)
	if err != nil {
		return fs.IOError("archive_open", f.archivePath, err)
	}
	defer func() {
		_ = file.Close()
	}()

	members := map[string]member{}
	dirs := map[string]bool{"/": true}
	tr := tar.NewReader(file)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fs.IOError("archive_read", f.archivePath, err)
		}
		name := normalizeMemberName(hdr.Name)
		if name == "/" {
			continue
		}
		m := member{
			name:    name,
			size:    hdr.Size,
			modTime: hdr.ModTime,
			mode:    hdr.FileInfo().Mode(),
			isDir:   hdr.Typeflag == tar.TypeDir,
			isLink:  hdr.Typeflag == tar.TypeSymlink || hdr.Typeflag == tar.TypeLink,
		}
		members[name] = m
		if m.isDir {
			dirs[name] = true
		}
		// every ancestor is a directory even without its own header
		for parent := gopath.Dir(name); parent != "/"; parent = gopath.Dir(parent) {
			dirs[parent] = true
		}
	}

	f.members = members
	f.dirs = dirs
	f.indexed = true
	return nil
}

// ListDir implements backend.Backend by projecting the next path segment of
// every member stored under dir.
func (f *Fs) ListDir(dir string, mode fs.SortMode, showHidden bool) ([]fs.Entry, error) {
	if err := f.index(); err != nil {
		return nil, err
	}
	dirPath := normalizeMemberName(dir)
	if !f.dirs[dirPath] {
		return nil, fs.NotFoundError("list_dir", dirPath)
	}

	prefix := dirPath
	if prefix != "/" {
		prefix += "/"
	}
	seen := map[string]bool{}
	var entries []fs.Entry

	addDir := func(name, full string) {
		if seen[name] {
			return
		}
		seen[name] = true
		e := fs.Entry{Name: name, Path: full, Type: fs.EntryDirectory, Hidden: strings.HasPrefix(name, ".")}
		if m, ok := f.members[full]; ok {
			e.ModTime = m.modTime
		}
		entries = append(entries, e)
	}

	names := make([]string, 0, len(f.members))
	for name := range f.members {
		names = append(names, name)
	}
	for name := range f.dirs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == dirPath || !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		segment := rest
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			segment = rest[:idx]
		}
		full := prefix + segment
		if !showHidden && strings.HasPrefix(segment, ".") {
			continue
		}
		if f.dirs[full] || segment != rest {
			addDir(segment, full)
			continue
		}
		if seen[segment] {
			continue
		}
		seen[segment] = true
		m := f.members[full]
		e := fs.Entry{
			Name:    segment,
			Path:    full,
			Type:    fs.EntryFile,
			Size:    m.size,
			ModTime: m.modTime,
			Hidden:  strings.HasPrefix(segment, "."),
		}
		if m.isLink {
			e.Type = fs.EntrySymlink
		}
		if e.Type == fs.EntryFile && m.mode.Perm()&0111 != 0 {
			e.Executable = true
		}
		entries = append(entries, e)
	}

	fs.SortEntries(entries, mode)
	if dirPath != "/" {
		entries = append([]fs.Entry{fs.ParentLink(gopath.Dir(dirPath))}, entries...)
	}
	return entries, nil
}

// StatEntry implements backend.Backend. The archive root stats as a
// synthetic directory so panels can bootstrap straight into "/".
func (f *Fs) StatEntry(path string) (fs.Entry, error) {
	if err := f.index(); err != nil {
		return fs.Entry{}, err
	}
	normalized := normalizeMemberName(path)
	if normalized == "/" {
		return fs.Entry{Name: "/", Path: "/", Type: fs.EntryDirectory}, nil
	}
	if m, ok := f.members[normalized]; ok {
		e := fs.Entry{
			Name:    gopath.Base(normalized),
			Path:    normalized,
			Size:    m.size,
			ModTime: m.modTime,
			Type:    fs.EntryFile,
			Hidden:  strings.HasPrefix(gopath.Base(normalized), "."),
		}
		switch {
		case m.isDir:
			e.Type = fs.EntryDirectory
			e.Size = 0
		case m.isLink:
			e.Type = fs.EntrySymlink
		}
		return e, nil
	}
	if f.dirs[normalized] {
		return fs.Entry{Name: gopath.Base(normalized), Path: normalized, Type: fs.EntryDirectory}, nil
	}
	return fs.Entry{}, fs.NotFoundError("stat", normalized)
}

// ReadFile implements backend.Backend by streaming the stored member.
func (f *Fs) ReadFile(path string) ([]byte, error) {
	if err := f.index(); err != nil {
		return nil, err
	}
	normalized := normalizeMemberName(path)
	m, ok := f.members[normalized]
	if !ok || m.isDir {
		return nil, fs.NotFoundError("read", normalized)
	}

	file, err := os.Open(f.archivePath)
	if err != nil {
		return nil, fs.IOError("read", f.archivePath, err)
	}
	defer func() {
		_ = file.Close()
	}()

	tr := tar.NewReader(file)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fs.IOError("read", f.archivePath, err)
		}
		if normalizeMemberName(hdr.Name) != normalized {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fs.IOError("read", normalized, err)
		}
		return data, nil
	}
	return nil, fs.NotFoundError("read", normalized)
}

// NormalizeExistingPath implements backend.Backend lexically, checking
// membership.
func (f *Fs) NormalizeExistingPath(op, path string) (string, error) {
	if err := f.index(); err != nil {
		return "", err
	}
	normalized := normalizeMemberName(path)
	if normalized == "/" || f.dirs[normalized] {
		return normalized, nil
	}
	if _, ok := f.members[normalized]; ok {
		return normalized, nil
	}
	return "", fs.NotFoundError(op, normalized)
}

// NormalizeNewPath implements backend.Backend lexically.
func (f *Fs) NormalizeNewPath(op, path string) (string, error) {
	return normalizeMemberName(path), nil
}

func (f *Fs) readOnly(op string) error {
	return fs.IOError(op, f.archivePath, errors.Errorf("archive backend is read-only"))
}

// CreateDir implements backend.Backend; archives are read-only.
func (f *Fs) CreateDir(path string) error {
	return f.readOnly("mkdir")
}

// RemovePath implements backend.Backend; archives are read-only.
func (f *Fs) RemovePath(path string) error {
	return f.readOnly("remove")
}

// MovePath implements backend.Backend; archives are read-only.
func (f *Fs) MovePath(src, dst string) (string, error) {
	return "", f.readOnly("move")
}

// CopyPath implements backend.Backend; archives are read-only as a
// destination. Copy-out goes through the cross-backend ReadFile path.
func (f *Fs) CopyPath(src, dst string) (string, error) {
	return "", f.readOnly("copy")
}

// WriteFile implements backend.Backend; archives are read-only.
func (f *Fs) WriteFile(path string, data []byte) error {
	return f.readOnly("write")
}

var _ backend.Backend = (*Fs)(nil)
