package sftp

import (
	"os"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigimon/vcmc/fs"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		msg  string
		want string
	}{
		{"ssh: unable to authenticate, attempted methods [none password]", "auth"},
		{"ssh: handshake failed: agent: connection refused", "auth"},
		{"open /data: permission denied", "perm"},
		{"file does not exist: no such file", "path"},
		{"dial tcp: i/o timeout", "network"},
		{"dial tcp 10.0.0.1:22: connection refused", "network"},
		{"something odd happened", "unknown"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyError(errors.New(tc.msg)), tc.msg)
	}
	assert.Equal(t, "unknown", ClassifyError(nil))
}

func TestResolvePathJoinsRoot(t *testing.T) {
	f := New(fs.SftpConnInfo{RootPath: "/srv/data"})
	assert.Equal(t, "/srv/data/sub/file.txt", f.resolvePath("sub/file.txt"))
	assert.Equal(t, "/abs/file.txt", f.resolvePath("/abs/file.txt"))
	assert.Equal(t, "/abs", f.resolvePath("/abs/x/.."))
}

func TestNormalizeNewPathIsLexical(t *testing.T) {
	f := New(fs.SftpConnInfo{RootPath: "/root"})
	got, err := f.NormalizeNewPath("write", "new/file.bin")
	require.NoError(t, err)
	assert.Equal(t, "/root/new/file.bin", got)
}

// smokeInfo builds connection info from the VCMC_SFTP_SMOKE_* environment;
// the round-trip test is skipped when it is absent.
func smokeInfo(t *testing.T) fs.SftpConnInfo {
	t.Helper()
	host := os.Getenv("VCMC_SFTP_SMOKE_HOST")
	if host == "" {
		t.Skip("VCMC_SFTP_SMOKE_HOST not set")
	}
	info := fs.SftpConnInfo{
		Host:     host,
		Port:     22,
		User:     os.Getenv("VCMC_SFTP_SMOKE_USER"),
		RootPath: os.Getenv("VCMC_SFTP_SMOKE_ROOT"),
	}
	if port := os.Getenv("VCMC_SFTP_SMOKE_PORT"); port != "" {
		parsed, err := strconv.Atoi(port)
		require.NoError(t, err)
		info.Port = parsed
	}
	if info.RootPath == "" {
		info.RootPath = "/"
	}
	switch os.Getenv("VCMC_SFTP_SMOKE_AUTH") {
	case "password":
		info.Auth = fs.SftpAuth{Method: fs.SftpAuthPassword, Password: os.Getenv("VCMC_SFTP_SMOKE_PASSWORD")}
	case "key":
		info.Auth = fs.SftpAuth{
			Method:     fs.SftpAuthKeyFile,
			KeyFile:    os.Getenv("VCMC_SFTP_SMOKE_KEY"),
			Passphrase: os.Getenv("VCMC_SFTP_SMOKE_PASSPHRASE"),
		}
	default:
		info.Auth = fs.SftpAuth{Method: fs.SftpAuthAgent}
	}
	return info
}

func TestSmokeRoundTrip(t *testing.T) {
	info := smokeInfo(t)
	f := New(info)

	dir, err := f.NormalizeNewPath("mkdir", "vcmc_sftp_smoke")
	require.NoError(t, err)
	require.NoError(t, f.CreateDir(dir))
	defer func() {
		_ = f.RemovePath(dir)
	}()

	file := dir + "/probe.txt"
	require.NoError(t, f.WriteFile(file, []byte("sftp round trip\n")))

	data, err := f.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "sftp round trip\n", string(data))

	entries, err := f.ListDir(dir, fs.SortName, true)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if !e.Virtual {
			names = append(names, e.Name)
		}
	}
	assert.Contains(t, names, "probe.txt")

	moved, err := f.MovePath(file, dir+"/probe2.txt")
	require.NoError(t, err)
	data, err = f.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, "sftp round trip\n", string(data))
}
