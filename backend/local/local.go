// Package local implements the vcmc backend over the process filesystem.
package local

import (
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"github.com/gigimon/vcmc/backend"
	"github.com/gigimon/vcmc/fs"
)

func init() {
	backend.Register(fs.BackendLocal, func(fs.BackendSpec) (backend.Backend, error) {
		return &Fs{}, nil
	})
}

// Fs is the local filesystem backend. It is stateless; every call uses its
// own file handles.
type Fs struct{}

// New returns a local backend.
func New() *Fs {
	return &Fs{}
}

// Name identifies the backend family
func (f *Fs) Name() string {
	return "local"
}

func (f *Fs) String() string {
	return "local"
}

// ListDir implements backend.Backend
func (f *Fs) ListDir(dir string, mode fs.SortMode, showHidden bool) ([]fs.Entry, error) {
	dirPath, err := f.NormalizeExistingPath("list_dir", dir)
	if err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, wrapOSError("list_dir", dirPath, err)
	}

	entries := make([]fs.Entry, 0, len(dirents))
	for _, de := range dirents {
		name := de.Name()
		hidden := strings.HasPrefix(name, ".")
		if !showHidden && hidden {
			continue
		}
		full := filepath.Join(dirPath, name)
		info, err := os.Lstat(full)
		if err != nil {
			return nil, wrapOSError("list_dir", full, err)
		}
		entries = append(entries, entryFromInfo(name, full, info))
	}

	fs.SortEntries(entries, mode)
	if parent := filepath.Dir(dirPath); parent != dirPath {
		entries = append([]fs.Entry{fs.ParentLink(parent)}, entries...)
	}
	return entries, nil
}

// StatEntry implements backend.Backend
func (f *Fs) StatEntry(path string) (fs.Entry, error) {
	normalized, err := f.NormalizeExistingPath("stat", path)
	if err != nil {
		return fs.Entry{}, err
	}
	info, err := os.Lstat(normalized)
	if err != nil {
		return fs.Entry{}, wrapOSError("stat", normalized, err)
	}
	return entryFromInfo(filepath.Base(normalized), normalized, info), nil
}

// CreateDir implements backend.Backend
func (f *Fs) CreateDir(path string) error {
	normalized, err := f.NormalizeNewPath("mkdir", path)
	if err != nil {
		return err
	}
	if err := os.Mkdir(normalized, 0755); err != nil {
		return wrapOSError("mkdir", normalized, err)
	}
	return nil
}

// RemovePath implements backend.Backend. Directories are removed
// recursively; symlinks are removed, never followed.
func (f *Fs) RemovePath(path string) error {
	normalized, err := f.NormalizeNewPath("remove", path)
	if err != nil {
		return err
	}
	info, err := os.Lstat(normalized)
	if err != nil {
		return wrapOSError("remove", normalized, err)
	}
	if info.IsDir() {
		if err := os.RemoveAll(normalized); err != nil {
			return wrapOSError("remove", normalized, err)
		}
		return nil
	}
	if err := os.Remove(normalized); err != nil {
		return wrapOSError("remove", normalized, err)
	}
	return nil
}

// MovePath implements backend.Backend. It tries an atomic rename first and
// falls back to copy+remove on a cross-device error.
func (f *Fs) MovePath(src, dst string) (string, error) {
	srcPath, err := f.NormalizeExistingPath("move", src)
	if err != nil {
		return "", err
	}
	dstPath, err := f.resolveDestination("move", srcPath, dst)
	if err != nil {
		return "", err
	}
	if srcPath == dstPath {
		return "", fs.PreconditionError("move", "source and destination are the same")
	}

	err = os.Rename(srcPath, dstPath)
	if err == nil {
		return dstPath, nil
	}
	if isCrossDevice(err) {
		fs.Debugf(f, "rename %q -> %q crossed devices, copying", srcPath, dstPath)
		if _, err := f.CopyPath(srcPath, dstPath); err != nil {
			return "", err
		}
		if err := f.RemovePath(srcPath); err != nil {
			return "", err
		}
		return dstPath, nil
	}
	return "", wrapOSError("move", srcPath, err)
}

// CopyPath implements backend.Backend. Directory sources are walked
// depth-first; symlinks are re-created verbatim, regular files copied
// byte-wise.
func (f *Fs) CopyPath(src, dst string) (string, error) {
	srcPath, err := f.NormalizeExistingPath("copy", src)
	if err != nil {
		return "", err
	}
	dstPath, err := f.resolveDestination("copy", srcPath, dst)
	if err != nil {
		return "", err
	}
	if srcPath == dstPath {
		return "", fs.PreconditionError("copy", "source and destination are the same")
	}

	info, err := os.Lstat(srcPath)
	if err != nil {
		return "", wrapOSError("copy", srcPath, err)
	}
	if info.IsDir() {
		if err := copyTree(srcPath, dstPath); err != nil {
			return "", err
		}
		return dstPath, nil
	}
	if err := copyLeaf(srcPath, dstPath); err != nil {
		return "", err
	}
	return dstPath, nil
}

// NormalizeExistingPath implements backend.Backend: absolute, symlinks
// followed, "."/".." collapsed. Fails when the path does not exist.
func (f *Fs) NormalizeExistingPath(op, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fs.IOError(op, path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", wrapOSError(op, abs, err)
	}
	return resolved, nil
}

// NormalizeNewPath implements backend.Backend: canonicalize the parent,
// keep the terminal name verbatim.
func (f *Fs) NormalizeNewPath(op, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fs.IOError(op, path, err)
	}
	name := filepath.Base(abs)
	if name == "." || name == string(filepath.Separator) {
		return "", fs.InvalidPathError(op, abs, "target path must include a file or directory name")
	}
	parent := filepath.Dir(abs)
	resolvedParent, err := filepath.EvalSymlinks(parent)
	if err != nil {
		return "", wrapOSError(op, parent, err)
	}
	return filepath.Join(resolvedParent, name), nil
}

// ReadFile implements backend.Backend
func (f *Fs) ReadFile(path string) ([]byte, error) {
	normalized, err := f.NormalizeExistingPath("read", path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(normalized)
	if err != nil {
		return nil, wrapOSError("read", normalized, err)
	}
	return data, nil
}

// WriteFile implements backend.Backend
func (f *Fs) WriteFile(path string, data []byte) error {
	normalized, err := f.NormalizeNewPath("write", path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(normalized, data, 0644); err != nil {
		return wrapOSError("write", normalized, err)
	}
	return nil
}

// resolveDestination appends the source name when dst is an existing
// directory, then normalizes as a new path.
func (f *Fs) resolveDestination(op, srcPath, dst string) (string, error) {
	abs, err := filepath.Abs(dst)
	if err != nil {
		return "", fs.IOError(op, dst, err)
	}
	if info, err := os.Lstat(abs); err == nil && info.IsDir() {
		abs = filepath.Join(abs, filepath.Base(srcPath))
	}
	return f.NormalizeNewPath(op, abs)
}

func entryFromInfo(name, path string, info iofs.FileInfo) fs.Entry {
	e := fs.Entry{
		Name:    name,
		Path:    path,
		Type:    entryType(info),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Hidden:  strings.HasPrefix(name, "."),
	}
	if e.Type == fs.EntryFile && info.Mode().Perm()&0111 != 0 {
		e.Executable = true
	}
	return e
}

func entryType(info iofs.FileInfo) fs.EntryType {
	mode := info.Mode()
	switch {
	case mode.IsDir():
		return fs.EntryDirectory
	case mode&iofs.ModeSymlink != 0:
		return fs.EntrySymlink
	case mode.IsRegular():
		return fs.EntryFile
	}
	return fs.EntryOther
}

func copyTree(src, dst string) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return wrapOSError("copy", dst, err)
	}
	return filepath.WalkDir(src, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return wrapOSError("copy", path, err)
		}
		if path == src {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fs.InvalidPathError("copy", path, err.Error())
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return wrapOSError("copy", target, err)
			}
			return nil
		}
		return copyLeaf(path, target)
	})
}

// copyLeaf copies a single file or symlink, creating parent directories as
// needed. Symlink targets are preserved verbatim.
func copyLeaf(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return wrapOSError("copy", filepath.Dir(dst), err)
	}
	info, err := os.Lstat(src)
	if err != nil {
		return wrapOSError("copy", src, err)
	}
	if info.Mode()&iofs.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return wrapOSError("copy", src, err)
		}
		if _, err := os.Lstat(dst); err == nil {
			if err := os.Remove(dst); err != nil {
				return wrapOSError("copy", dst, err)
			}
		}
		if err := os.Symlink(target, dst); err != nil {
			return wrapOSError("copy", dst, err)
		}
		return nil
	}
	return copyFileContents(src, dst, info.Mode().Perm())
}

func copyFileContents(src, dst string, perm iofs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return wrapOSError("copy", src, err)
	}
	defer func() {
		_ = in.Close()
	}()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return wrapOSError("copy", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fs.IOError("copy", dst, err)
	}
	if err := out.Close(); err != nil {
		return wrapOSError("copy", dst, err)
	}
	return nil
}

func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

// wrapOSError maps an os error for path into the vcmc taxonomy.
func wrapOSError(op, path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return fs.NotFoundError(op, path)
	case os.IsPermission(err):
		return fs.PermissionError(op, path)
	}
	return fs.IOError(op, path, err)
}

var _ backend.Backend = (*Fs)(nil)
