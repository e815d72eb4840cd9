// Package cmd implements the vcmc command line entry point.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gigimon/vcmc/app"
	"github.com/gigimon/vcmc/fs"
	"github.com/gigimon/vcmc/theme"
	"github.com/gigimon/vcmc/ui"

	// register the storage backends
	_ "github.com/gigimon/vcmc/backend/archive"
	_ "github.com/gigimon/vcmc/backend/local"
	_ "github.com/gigimon/vcmc/backend/sftp"
)

var (
	flagLeft       string
	flagRight      string
	flagShowHidden bool
	flagWorkers    int
	flagTickRate   time.Duration
	flagLogLevel   string
	flagLogFile    string
)

// Root is the top level command.
var Root = &cobra.Command{
	Use:   "vcmc",
	Short: "Dual-pane terminal file manager with local, SFTP and archive backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := Root.Flags()
	flags.StringVar(&flagLeft, "left", ".", "start directory of the left panel")
	flags.StringVar(&flagRight, "right", ".", "start directory of the right panel")
	flags.BoolVar(&flagShowHidden, "show-hidden", false, "show dotfiles in listings")
	flags.IntVar(&flagWorkers, "workers", 2, "job worker pool size")
	flags.DurationVar(&flagTickRate, "tick-rate", ui.DefaultTickRate, "UI tick interval")
	flags.StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, error)")
	flags.StringVar(&flagLogFile, "log-file", "", "append logs to this file")
}

// Main runs the root command and exits the process: 0 on a normal quit,
// non-zero when initialization fails.
func Main() {
	if err := Root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vcmc: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := fs.InitLog(flagLogLevel, flagLogFile); err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("vcmc needs an interactive terminal")
	}

	screen, err := ui.InitScreen()
	if err != nil {
		return err
	}
	defer screen.Restore()

	// the queue every producer feeds and the main loop drains
	events := make(chan app.Event, 1024)
	done := make(chan struct{})
	sink := func(ev app.Event) bool {
		select {
		case events <- ev:
			return true
		case <-done:
			return false
		}
	}

	a, err := app.Bootstrap(app.Config{
		LeftDir:    flagLeft,
		RightDir:   flagRight,
		ShowHidden: flagShowHidden,
		Workers:    flagWorkers,
		Runner:     screen,
		Sink:       sink,
	})
	if err != nil {
		return err
	}

	th := theme.LoadFromEnvironment()
	ui.StartEventPump(screen, flagTickRate, sink)

	if w, h := screen.Size(); w > 0 {
		a.OnEvent(app.ResizeEvent(w, h))
	}
	ui.Render(screen, a.State(), th)

	for a.Running() {
		ev := <-events
		if a.OnEvent(ev) {
			ui.Render(screen, a.State(), th)
		}
	}

	close(done)
	a.Shutdown()
	fs.Infof(nil, "vcmc shutdown complete")
	return nil
}
