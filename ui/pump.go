package ui

import (
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/gigimon/vcmc/app"
)

// DefaultTickRate is the pump's timer period.
const DefaultTickRate = 150 * time.Millisecond

// StartEventPump forwards terminal events and periodic ticks into the
// sink. It runs until the screen is finalized or the sink reports the
// main loop is gone. Unrecognized terminal events are dropped.
func StartEventPump(screen *Screen, tickRate time.Duration, sink app.EventSink) {
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}

	go func() {
		ticker := time.NewTicker(tickRate)
		defer ticker.Stop()
		for range ticker.C {
			if !sink(app.TickEvent()) {
				return
			}
		}
	}()

	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				// screen finalized
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !sink(app.KeyEvent(ev)) {
					return
				}
			case *tcell.EventResize:
				w, h := ev.Size()
				if !sink(app.ResizeEvent(w, h)) {
					return
				}
			}
		}
	}()
}
