// Package find drives the external fd finder and streams its results back
// to the event queue.
package find

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/gigimon/vcmc/fs"
)

const progressInterval = 150 * time.Millisecond

// Request describes one find run rooted at a panel's cwd.
type Request struct {
	ID            uint64
	Root          string
	Query         string
	Glob          bool
	Hidden        bool
	FollowSymlink bool
}

// Update is the progress/terminal report of a running find.
type Update struct {
	ID       uint64
	Query    string
	Done     bool
	Failed   bool
	Matches  int
	Entries  []fs.Entry
	ErrorMsg string
}

// Notify delivers an update to the event queue. Send failure means the
// receiver is gone; the driver stops on the next attempt.
type Notify func(Update) bool

// Input is the parsed form of the find prompt line.
type Input struct {
	Query         string
	Glob          bool
	Hidden        bool
	FollowSymlink bool
}

// ParseInput splits "<query> [flags]" from the find prompt. defaultHidden
// seeds the hidden flag from the panel's show-hidden state.
func ParseInput(raw string, defaultHidden bool) (Input, error) {
	tokens := strings.Fields(raw)
	if len(tokens) == 0 {
		return Input{}, errors.New("find query cannot be empty")
	}
	in := Input{Query: tokens[0], Hidden: defaultHidden}
	for _, token := range tokens[1:] {
		switch token {
		case "--glob", "-g":
			in.Glob = true
		case "--name":
			in.Glob = false
		case "--hidden", "-H":
			in.Hidden = true
		case "--no-hidden":
			in.Hidden = false
		case "--follow", "-L":
			in.FollowSymlink = true
		case "--no-follow":
			in.FollowSymlink = false
		default:
			return Input{}, errors.Errorf("unknown find option %q. Supported: --glob --hidden --follow", token)
		}
	}
	return in, nil
}

// Available reports whether fd can be spawned at all.
func Available() bool {
	cmd := exec.Command("fd", "--version")
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run() == nil
}

// Spawn starts the driver thread for one request.
func Spawn(req Request, notify Notify) {
	go func() {
		if err := run(req, notify); err != nil {
			notify(Update{
				ID:       req.ID,
				Query:    req.Query,
				Failed:   true,
				ErrorMsg: err.Error(),
			})
		}
	}()
}

func run(req Request, notify Notify) error {
	args := []string{"--absolute-path", "--color", "never", "--print0"}
	if req.Glob {
		args = append(args, "--glob")
	}
	if req.Hidden {
		args = append(args, "--hidden")
	}
	if req.FollowSymlink {
		args = append(args, "--follow")
	}
	args = append(args, "--", req.Query, req.Root)

	cmd := exec.Command("fd", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "failed to capture fd stdout")
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to start fd")
	}

	reader := bufio.NewReader(stdout)
	var entries []fs.Entry
	matches := 0
	lastProgress := time.Now().Add(-progressInterval)

	for {
		raw, err := reader.ReadBytes(0)
		if len(raw) > 0 && raw[len(raw)-1] == 0 {
			raw = raw[:len(raw)-1]
		}
		if len(raw) > 0 {
			path := string(raw)
			entries = append(entries, entryFromPath(path))
			matches++
			if time.Since(lastProgress) >= progressInterval {
				if !notify(Update{ID: req.ID, Query: req.Query, Matches: matches}) {
					_ = cmd.Process.Kill()
					_ = cmd.Wait()
					return nil
				}
				lastProgress = time.Now()
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = cmd.Wait()
			return errors.Wrap(err, "failed reading fd output")
		}
	}

	if err := cmd.Wait(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return errors.Wrapf(err, "fd exited")
		}
		return errors.Errorf("fd failed: %s", msg)
	}

	notify(Update{
		ID:      req.ID,
		Query:   req.Query,
		Done:    true,
		Matches: matches,
		Entries: entries,
	})
	return nil
}

// entryFromPath synthesizes a listing entry for one fd match without
// following symlinks.
func entryFromPath(path string) fs.Entry {
	name := filepath.Base(path)
	e := fs.Entry{
		Name:   name,
		Path:   path,
		Type:   fs.EntryOther,
		Hidden: strings.HasPrefix(name, "."),
	}
	info, err := os.Lstat(path)
	if err != nil {
		return e
	}
	mode := info.Mode()
	switch {
	case mode.IsDir():
		e.Type = fs.EntryDirectory
	case mode&os.ModeSymlink != 0:
		e.Type = fs.EntrySymlink
	case mode.IsRegular():
		e.Type = fs.EntryFile
		e.Size = info.Size()
		if mode.Perm()&0111 != 0 {
			e.Executable = true
		}
	}
	e.ModTime = info.ModTime()
	return e
}
