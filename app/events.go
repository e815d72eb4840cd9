package app

import (
	"github.com/gdamore/tcell/v2"

	"github.com/gigimon/vcmc/find"
	"github.com/gigimon/vcmc/jobs"
)

// EventKind tags the Event union.
type EventKind int

// Event kinds
const (
	EventKey EventKind = iota
	EventTick
	EventResize
	EventJob
	EventFind
)

// Event is the single tagged union every producer thread feeds into the
// reducer's queue: terminal input, ticks, resizes, job updates and find
// updates.
type Event struct {
	Kind   EventKind
	Key    *tcell.EventKey
	Width  int
	Height int
	Job    jobs.Update
	Find   find.Update
}

// KeyEvent wraps a terminal key event.
func KeyEvent(key *tcell.EventKey) Event {
	return Event{Kind: EventKey, Key: key}
}

// TickEvent is the periodic timer event.
func TickEvent() Event {
	return Event{Kind: EventTick}
}

// ResizeEvent reports a terminal geometry change.
func ResizeEvent(width, height int) Event {
	return Event{Kind: EventResize, Width: width, Height: height}
}

// JobEvent wraps a worker pool update.
func JobEvent(update jobs.Update) Event {
	return Event{Kind: EventJob, Job: update}
}

// FindEvent wraps a find driver update.
func FindEvent(update find.Update) Event {
	return Event{Kind: EventFind, Find: update}
}
