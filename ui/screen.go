// Package ui owns the terminal: screen setup and restore, the event pump
// feeding the reducer, and the renderer projecting app state to a frame.
package ui

import (
	"os"
	"os/exec"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"

	"github.com/gigimon/vcmc/fs"
)

// Screen wraps the tcell screen with restore bookkeeping.
type Screen struct {
	tcell.Screen
	restored bool
}

// InitScreen takes over the terminal: raw mode, alternate buffer, hidden
// cursor.
func InitScreen() (*Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, errors.Wrap(err, "couldn't allocate screen")
	}
	if err := s.Init(); err != nil {
		return nil, errors.Wrap(err, "couldn't enter raw mode")
	}
	s.HideCursor()
	s.Clear()
	return &Screen{Screen: s}, nil
}

// Restore gives the terminal back. Safe to call more than once.
func (s *Screen) Restore() {
	if s.restored {
		return
	}
	s.restored = true
	s.Fini()
}

// RunCommand suspends the screen, runs the child on the real terminal in
// dir, and resumes. Implements app.TerminalRunner.
func (s *Screen) RunCommand(dir, name string, args ...string) error {
	if err := s.Suspend(); err != nil {
		return errors.Wrap(err, "couldn't suspend screen")
	}
	defer func() {
		if err := s.Resume(); err != nil {
			fs.Errorf(nil, "couldn't resume screen: %v", err)
		}
	}()

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
