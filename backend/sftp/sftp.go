// Package sftp provides the remote vcmc backend using github.com/pkg/sftp.
package sftp

import (
	"fmt"
	"io"
	"net"
	"os"
	gopath "path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	sshagent "github.com/xanzy/ssh-agent"
	"golang.org/x/crypto/ssh"

	"github.com/gigimon/vcmc/backend"
	"github.com/gigimon/vcmc/fs"
)

const (
	connectAttempts = 3
	connectBackoff  = 120 * time.Millisecond
	dialTimeout     = 30 * time.Second

	dirMode  = 0755
	fileMode = 0644

	copyBufferSize = 32 * 1024
)

func init() {
	backend.Register(fs.BackendSftp, func(spec fs.BackendSpec) (backend.Backend, error) {
		if spec.Sftp == nil {
			return nil, fs.UnavailableError("sftp", "unknown", errors.New("missing connection info"))
		}
		return New(*spec.Sftp), nil
	})
}

// Fs is the SFTP backend. Every high-level operation opens a fresh session
// with retry and releases it on exit, so a panel and concurrent jobs never
// share protocol state.
type Fs struct {
	conn fs.SftpConnInfo
}

// New returns an SFTP backend for the given connection info.
func New(conn fs.SftpConnInfo) *Fs {
	return &Fs{conn: conn}
}

// Name identifies the backend family
func (f *Fs) Name() string {
	return "sftp"
}

func (f *Fs) String() string {
	return fmt.Sprintf("sftp://%s@%s:%d", f.conn.User, f.conn.Host, f.conn.Port)
}

// session bundles the SSH transport with its SFTP channel.
type session struct {
	sshClient  *ssh.Client
	sftpClient *sftp.Client
}

func (s *session) close() {
	_ = s.sftpClient.Close()
	_ = s.sshClient.Close()
}

// connect dials with up to connectAttempts tries and a linear backoff
// between them. The final failure is classified for the user.
func (f *Fs) connect(op string) (*session, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		s, err := f.connectOnce()
		if err == nil {
			return s, nil
		}
		lastErr = err
		fs.Debugf(f, "connect attempt %d/%d failed: %v", attempt, connectAttempts, err)
		if attempt < connectAttempts {
			time.Sleep(time.Duration(attempt) * connectBackoff)
		}
	}
	return nil, fs.UnavailableError(op, ClassifyError(lastErr), lastErr)
}

func (f *Fs) connectOnce() (*session, error) {
	auth, err := f.authMethods()
	if err != nil {
		return nil, err
	}
	config := &ssh.ClientConfig{
		User:            f.conn.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}
	addr := net.JoinHostPort(f.conn.Host, fmt.Sprintf("%d", f.conn.Port))
	sshClient, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't connect SSH")
	}
	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, errors.Wrap(err, "couldn't initialise SFTP")
	}
	return &session{sshClient: sshClient, sftpClient: sftpClient}, nil
}

func (f *Fs) authMethods() ([]ssh.AuthMethod, error) {
	switch f.conn.Auth.Method {
	case fs.SftpAuthPassword:
		return []ssh.AuthMethod{ssh.Password(f.conn.Auth.Password)}, nil
	case fs.SftpAuthKeyFile:
		key, err := os.ReadFile(f.conn.Auth.KeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read private key file")
		}
		var signer ssh.Signer
		if f.conn.Auth.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(f.conn.Auth.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse private key file")
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	agentClient, _, err := sshagent.New()
	if err != nil {
		return nil, errors.Wrap(err, "couldn't connect to ssh-agent")
	}
	signers, err := agentClient.Signers()
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read ssh agent signers")
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signers...)}, nil
}

// resolvePath makes path absolute in remote coordinates.
func (f *Fs) resolvePath(path string) string {
	if gopath.IsAbs(path) {
		return gopath.Clean(path)
	}
	root := f.conn.RootPath
	if root == "" {
		root = "/"
	}
	return gopath.Join(root, path)
}

// ListDir implements backend.Backend
func (f *Fs) ListDir(dir string, mode fs.SortMode, showHidden bool) ([]fs.Entry, error) {
	s, err := f.connect("list_dir")
	if err != nil {
		return nil, err
	}
	defer s.close()

	dirPath := f.realpath(s, dir)
	infos, err := s.sftpClient.ReadDir(dirPath)
	if err != nil {
		return nil, wrapSftpError("list_dir", dirPath, err)
	}

	entries := make([]fs.Entry, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if name == "." || name == ".." {
			continue
		}
		hidden := strings.HasPrefix(name, ".")
		if !showHidden && hidden {
			continue
		}
		entries = append(entries, entryFromInfo(name, gopath.Join(dirPath, name), info))
	}

	fs.SortEntries(entries, mode)
	if parent := gopath.Dir(dirPath); parent != dirPath {
		entries = append([]fs.Entry{fs.ParentLink(parent)}, entries...)
	}
	return entries, nil
}

// StatEntry implements backend.Backend
func (f *Fs) StatEntry(path string) (fs.Entry, error) {
	s, err := f.connect("stat")
	if err != nil {
		return fs.Entry{}, err
	}
	defer s.close()

	normalized := f.realpath(s, path)
	info, err := s.sftpClient.Lstat(normalized)
	if err != nil {
		return fs.Entry{}, wrapSftpError("stat", normalized, err)
	}
	return entryFromInfo(gopath.Base(normalized), normalized, info), nil
}

// CreateDir implements backend.Backend
func (f *Fs) CreateDir(path string) error {
	s, err := f.connect("mkdir")
	if err != nil {
		return err
	}
	defer s.close()

	normalized := f.resolvePath(path)
	if err := s.sftpClient.Mkdir(normalized); err != nil {
		return wrapSftpError("mkdir", normalized, err)
	}
	if err := s.sftpClient.Chmod(normalized, dirMode); err != nil {
		fs.Debugf(f, "chmod %q failed: %v", normalized, err)
	}
	return nil
}

// RemovePath implements backend.Backend, recursing over directories.
func (f *Fs) RemovePath(path string) error {
	s, err := f.connect("remove")
	if err != nil {
		return err
	}
	defer s.close()

	normalized := f.realpath(s, path)
	return removeRecursive(s.sftpClient, normalized)
}

// MovePath implements backend.Backend using the remote rename primitive.
func (f *Fs) MovePath(src, dst string) (string, error) {
	s, err := f.connect("move")
	if err != nil {
		return "", err
	}
	defer s.close()

	srcPath := f.realpath(s, src)
	dstPath, err := resolveRemoteDestination(s.sftpClient, srcPath, f.resolvePath(dst))
	if err != nil {
		return "", err
	}
	if srcPath == dstPath {
		return "", fs.PreconditionError("move", "source and destination are the same")
	}
	if err := s.sftpClient.Rename(srcPath, dstPath); err != nil {
		return "", wrapSftpError("move", srcPath, err)
	}
	return dstPath, nil
}

// CopyPath implements backend.Backend, recursing over directories.
func (f *Fs) CopyPath(src, dst string) (string, error) {
	s, err := f.connect("copy")
	if err != nil {
		return "", err
	}
	defer s.close()

	srcPath := f.realpath(s, src)
	dstPath, err := resolveRemoteDestination(s.sftpClient, srcPath, f.resolvePath(dst))
	if err != nil {
		return "", err
	}
	if srcPath == dstPath {
		return "", fs.PreconditionError("copy", "source and destination are the same")
	}
	if err := copyRecursive(s.sftpClient, srcPath, dstPath); err != nil {
		return "", err
	}
	return dstPath, nil
}

// NormalizeExistingPath implements backend.Backend via the remote realpath.
func (f *Fs) NormalizeExistingPath(op, path string) (string, error) {
	s, err := f.connect(op)
	if err != nil {
		return "", err
	}
	defer s.close()
	return f.realpath(s, path), nil
}

// NormalizeNewPath implements backend.Backend. It resolves lexically
// against the connection root; naming a not-yet-existing path needs no
// session.
func (f *Fs) NormalizeNewPath(op, path string) (string, error) {
	return f.resolvePath(path), nil
}

// ReadFile implements backend.Backend
func (f *Fs) ReadFile(path string) ([]byte, error) {
	s, err := f.connect("read")
	if err != nil {
		return nil, err
	}
	defer s.close()

	normalized := f.realpath(s, path)
	file, err := s.sftpClient.Open(normalized)
	if err != nil {
		return nil, wrapSftpError("read", normalized, err)
	}
	defer func() {
		_ = file.Close()
	}()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fs.IOError("read", normalized, err)
	}
	return data, nil
}

// WriteFile implements backend.Backend
func (f *Fs) WriteFile(path string, data []byte) error {
	s, err := f.connect("write")
	if err != nil {
		return err
	}
	defer s.close()

	normalized := f.resolvePath(path)
	return writeRemoteFile(s.sftpClient, normalized, data)
}

// realpath canonicalizes through the server when it can, falling back to
// the lexical resolution.
func (f *Fs) realpath(s *session, path string) string {
	resolved := f.resolvePath(path)
	if real, err := s.sftpClient.RealPath(resolved); err == nil {
		return real
	}
	return resolved
}

func entryFromInfo(name, path string, info os.FileInfo) fs.Entry {
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

func entryType(info os.FileInfo) fs.EntryType {
	mode := info.Mode()
	switch {
	case mode.IsDir():
		return fs.EntryDirectory
	case mode&os.ModeSymlink != 0:
		return fs.EntrySymlink
	case mode.IsRegular():
		return fs.EntryFile
	}
	return fs.EntryOther
}

func resolveRemoteDestination(client *sftp.Client, srcPath, dstPath string) (string, error) {
	if info, err := client.Stat(dstPath); err == nil && info.IsDir() {
		dstPath = gopath.Join(dstPath, gopath.Base(srcPath))
	}
	return dstPath, nil
}

func removeRecursive(client *sftp.Client, path string) error {
	info, err := client.Lstat(path)
	if err != nil {
		return wrapSftpError("remove", path, err)
	}
	if info.IsDir() {
		infos, err := client.ReadDir(path)
		if err != nil {
			return wrapSftpError("remove", path, err)
		}
		for _, child := range infos {
			name := child.Name()
			if name == "." || name == ".." {
				continue
			}
			if err := removeRecursive(client, gopath.Join(path, name)); err != nil {
				return err
			}
		}
		if err := client.RemoveDirectory(path); err != nil {
			return wrapSftpError("remove", path, err)
		}
		return nil
	}
	if err := client.Remove(path); err != nil {
		return wrapSftpError("remove", path, err)
	}
	return nil
}

func copyRecursive(client *sftp.Client, src, dst string) error {
	info, err := client.Lstat(src)
	if err != nil {
		return wrapSftpError("copy", src, err)
	}
	if info.IsDir() {
		if err := client.Mkdir(dst); err != nil && !remoteExists(client, dst) {
			return wrapSftpError("copy", dst, err)
		}
		_ = client.Chmod(dst, dirMode)
		infos, err := client.ReadDir(src)
		if err != nil {
			return wrapSftpError("copy", src, err)
		}
		for _, child := range infos {
			name := child.Name()
			if name == "." || name == ".." {
				continue
			}
			if err := copyRecursive(client, gopath.Join(src, name), gopath.Join(dst, name)); err != nil {
				return err
			}
		}
		return nil
	}

	in, err := client.Open(src)
	if err != nil {
		return wrapSftpError("copy", src, err)
	}
	defer func() {
		_ = in.Close()
	}()
	out, err := client.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return wrapSftpError("copy", dst, err)
	}
	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		_ = out.Close()
		return fs.IOError("copy", dst, err)
	}
	if err := out.Close(); err != nil {
		return wrapSftpError("copy", dst, err)
	}
	_ = client.Chmod(dst, fileMode)
	return nil
}

func writeRemoteFile(client *sftp.Client, path string, data []byte) error {
	out, err := client.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return wrapSftpError("write", path, err)
	}
	if _, err := out.Write(data); err != nil {
		_ = out.Close()
		return fs.IOError("write", path, err)
	}
	if err := out.Close(); err != nil {
		return wrapSftpError("write", path, err)
	}
	_ = client.Chmod(path, fileMode)
	return nil
}

func remoteExists(client *sftp.Client, path string) bool {
	_, err := client.Stat(path)
	return err == nil
}

func wrapSftpError(op, path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return fs.NotFoundError(op, path)
	case os.IsPermission(err):
		return fs.PermissionError(op, path)
	}
	return fs.IOError(op, path, err)
}

// ClassifyError buckets a connection failure by keyword scan into
// auth/perm/path/network/unknown for the alert text.
func ClassifyError(err error) string {
	if err == nil {
		return "unknown"
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "auth"),
		strings.Contains(lower, "password"),
		strings.Contains(lower, "publickey"),
		strings.Contains(lower, "identit"),
		strings.Contains(lower, "agent"):
		return "auth"
	case strings.Contains(lower, "permission denied"):
		return "perm"
	case strings.Contains(lower, "not found"),
		strings.Contains(lower, "no such file"):
		return "path"
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "timed out"),
		strings.Contains(lower, "connection"),
		strings.Contains(lower, "refused"),
		strings.Contains(lower, "network"):
		return "network"
	}
	return "unknown"
}

var _ backend.Backend = (*Fs)(nil)
