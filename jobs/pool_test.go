package jobs

import (
	"archive/tar"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gigimon/vcmc/backend/archive"
	_ "github.com/gigimon/vcmc/backend/local"
	"github.com/gigimon/vcmc/fs"
)

// collect drains updates for one job id until a terminal status arrives.
func collect(t *testing.T, updates <-chan Update, id uint64) []Update {
	t.Helper()
	var out []Update
	deadline := time.After(10 * time.Second)
	for {
		select {
		case u := <-updates:
			if u.ID != id {
				continue
			}
			out = append(out, u)
			if u.Status == StatusDone || u.Status == StatusFailed {
				return out
			}
		case <-deadline:
			t.Fatalf("timed out waiting for job %d", id)
		}
	}
}

func newTestPool(workers int) (*Pool, chan Update) {
	updates := make(chan Update, 64)
	pool := NewPool(workers, func(u Update) {
		updates <- u
	})
	return pool, updates
}

func TestMkdirJobLifecycle(t *testing.T) {
	dir := t.TempDir()
	pool, updates := newTestPool(1)
	defer pool.Close()

	target := filepath.Join(dir, "made")
	pool.Submit(Request{
		ID:            7,
		Kind:          KindMkdir,
		SourceBackend: fs.LocalSpec(),
		Source:        target,
	})

	got := collect(t, updates, 7)
	require.Len(t, got, 2)
	assert.Equal(t, StatusRunning, got[0].Status)
	assert.Equal(t, StatusDone, got[1].Status)
	assert.Equal(t, "mkdir done: "+target, got[1].Message)

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCopyJobReportsResolvedDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0644))
	dstDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(dstDir, 0755))

	pool, updates := newTestPool(2)
	defer pool.Close()

	pool.Submit(Request{
		ID:            1,
		Kind:          KindCopy,
		SourceBackend: fs.LocalSpec(),
		Source:        src,
		Destination:   dstDir,
	})

	got := collect(t, updates, 1)
	final := got[len(got)-1]
	require.Equal(t, StatusDone, final.Status)
	assert.Equal(t, filepath.Join(dstDir, "src.txt"), final.Destination)

	data, err := os.ReadFile(final.Destination)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestFailedJobMessageFormat(t *testing.T) {
	dir := t.TempDir()
	pool, updates := newTestPool(1)
	defer pool.Close()

	missing := filepath.Join(dir, "missing.txt")
	dst := filepath.Join(dir, "out.txt")
	pool.Submit(Request{
		ID:            2,
		Kind:          KindCopy,
		SourceBackend: fs.LocalSpec(),
		Source:        missing,
		Destination:   dst,
	})

	got := collect(t, updates, 2)
	final := got[len(got)-1]
	require.Equal(t, StatusFailed, final.Status)
	assert.Contains(t, final.Message, "copy failed: src="+missing)
	assert.Contains(t, final.Message, "dst="+dst)
	assert.Contains(t, final.Message, "reason=")
}

func TestDeleteFailureUsesDashForMissingDestination(t *testing.T) {
	dir := t.TempDir()
	pool, updates := newTestPool(1)
	defer pool.Close()

	pool.Submit(Request{
		ID:            3,
		Kind:          KindDelete,
		SourceBackend: fs.LocalSpec(),
		Source:        filepath.Join(dir, "missing"),
	})

	got := collect(t, updates, 3)
	final := got[len(got)-1]
	require.Equal(t, StatusFailed, final.Status)
	assert.Contains(t, final.Message, "dst=-")
}

func TestCrossBackendCopyOutOfArchive(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "bundle.tar")
	file, err := os.Create(archivePath)
	require.NoError(t, err)
	tw := tar.NewWriter(file)
	payload := "archive payload\n"
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "docs/readme.txt", Typeflag: tar.TypeReg, Mode: 0644, Size: int64(len(payload)),
	}))
	_, err = tw.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, file.Close())

	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(outDir, 0755))

	pool, updates := newTestPool(1)
	defer pool.Close()

	dstSpec := fs.LocalSpec()
	pool.Submit(Request{
		ID:                 4,
		Kind:               KindCopy,
		SourceBackend:      fs.ArchiveSpec(archivePath),
		DestinationBackend: &dstSpec,
		Source:             "/docs/readme.txt",
		Destination:        filepath.Join(outDir, "readme.out.txt"),
	})

	got := collect(t, updates, 4)
	final := got[len(got)-1]
	require.Equal(t, StatusDone, final.Status, "message: %s", final.Message)

	data, err := os.ReadFile(filepath.Join(outDir, "readme.out.txt"))
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
}

func TestSubmitReturnsBeforeJobCompletes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tree")
	require.NoError(t, os.MkdirAll(src, 0755))
	for i := 0; i < 200; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(src, fmt.Sprintf("f%03d.txt", i)), []byte("x"), 0644))
	}

	pool, updates := newTestPool(1)
	defer pool.Close()

	start := time.Now()
	pool.Submit(Request{
		ID:            5,
		Kind:          KindCopy,
		SourceBackend: fs.LocalSpec(),
		Source:        src,
		Destination:   filepath.Join(dir, "copy"),
	})
	elapsed := time.Since(start)
	assert.Less(t, elapsed, 100*time.Millisecond)

	got := collect(t, updates, 5)
	assert.Equal(t, StatusDone, got[len(got)-1].Status)
}

func TestRunningPrecedesTerminalStatus(t *testing.T) {
	dir := t.TempDir()
	pool, updates := newTestPool(2)
	defer pool.Close()

	for id := uint64(10); id < 14; id++ {
		pool.Submit(Request{
			ID:            id,
			Kind:          KindMkdir,
			SourceBackend: fs.LocalSpec(),
			Source:        filepath.Join(dir, "d", "x"), // parent missing: fails
		})
	}

	perJob := map[uint64][]Status{}
	deadline := time.After(10 * time.Second)
	for done := 0; done < 4; {
		select {
		case u := <-updates:
			perJob[u.ID] = append(perJob[u.ID], u.Status)
			if u.Status == StatusDone || u.Status == StatusFailed {
				done++
			}
		case <-deadline:
			t.Fatal("timed out waiting for batch")
		}
	}
	for id := uint64(10); id < 14; id++ {
		statuses := perJob[id]
		require.Len(t, statuses, 2)
		assert.Equal(t, StatusRunning, statuses[0])
		assert.Equal(t, StatusFailed, statuses[1])
	}
}
