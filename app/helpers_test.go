package app

import (
	"archive/tar"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildTestTar(t *testing.T, path, member, content string) {
	t.Helper()
	file, err := os.Create(path)
	require.NoError(t, err)
	tw := tar.NewWriter(file)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     member,
		Typeflag: tar.TypeReg,
		Mode:     0644,
		Size:     int64(len(content)),
	}))
	_, err = tw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, file.Close())
}
