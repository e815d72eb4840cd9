package fs

import "fmt"

// BackendKind discriminates the storage implementations.
type BackendKind int

// Backend kinds
const (
	BackendLocal BackendKind = iota
	BackendSftp
	BackendArchive
)

// String returns the backend family name
func (k BackendKind) String() string {
	switch k {
	case BackendSftp:
		return "sftp"
	case BackendArchive:
		return "archive"
	}
	return "local"
}

// SftpAuthMethod selects how an SFTP session authenticates.
type SftpAuthMethod int

// SFTP auth methods
const (
	SftpAuthAgent SftpAuthMethod = iota
	SftpAuthPassword
	SftpAuthKeyFile
)

// SftpAuth carries the credentials for one auth method.
type SftpAuth struct {
	Method     SftpAuthMethod
	Password   string
	KeyFile    string
	Passphrase string
}

// SftpConnInfo describes an SFTP endpoint and its root directory.
type SftpConnInfo struct {
	Host     string
	Port     int
	User     string
	Auth     SftpAuth
	RootPath string
}

// ArchiveConnInfo points at a tar container on the local filesystem.
type ArchiveConnInfo struct {
	ArchivePath string
}

// BackendSpec names a backend instance. Specs are comparable by String so
// panels and in-flight jobs can share backend instances.
type BackendSpec struct {
	Kind    BackendKind
	Sftp    *SftpConnInfo
	Archive *ArchiveConnInfo
}

// LocalSpec returns the spec for the process filesystem.
func LocalSpec() BackendSpec {
	return BackendSpec{Kind: BackendLocal}
}

// SftpSpec returns a spec for the given connection info.
func SftpSpec(info SftpConnInfo) BackendSpec {
	return BackendSpec{Kind: BackendSftp, Sftp: &info}
}

// ArchiveSpec returns a spec for the given tar container.
func ArchiveSpec(archivePath string) BackendSpec {
	return BackendSpec{Kind: BackendArchive, Archive: &ArchiveConnInfo{ArchivePath: archivePath}}
}

// String is stable per logical backend and doubles as the factory cache key.
func (s BackendSpec) String() string {
	switch s.Kind {
	case BackendSftp:
		if s.Sftp != nil {
			return fmt.Sprintf("sftp://%s@%s:%d%s", s.Sftp.User, s.Sftp.Host, s.Sftp.Port, s.Sftp.RootPath)
		}
		return "sftp://"
	case BackendArchive:
		if s.Archive != nil {
			return "archive://" + s.Archive.ArchivePath
		}
		return "archive://"
	}
	return "local"
}
