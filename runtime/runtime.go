package runtime

import (
	"fmt"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"github.com/outsetrun/heartbeat/rtlog"
	"github.com/outsetrun/heartbeat/rtstats"
	"github.com/outsetrun/heartbeat/scheduler"
	"github.com/outsetrun/heartbeat/vertex"
)

// Launch initializes logging per cfg, runs root (and everything it
// transitively forks) to completion across cfg.Proc workers, then reports
// an rtstats summary if cfg.PView is set. It is the Go-native equivalent of
// the original's launch_scheduler, taking a cfg already built by ParseArgs
// or BindFlags. Launch releases root itself; the caller must not Release
// it first.
func Launch(cfg Config, root vertex.Vertex) error {
	configureLogging(cfg)

	if err := scheduler.LaunchWithTuning(cfg.Proc, cfg.DagFreq, cfg.SharingFreq, root); err != nil {
		wrapped := classifyInvariant(err)
		if ie, ok := wrapped.(*InvariantError); ok {
			// a bug, not a recoverable failure — matches the panic-based
			// framing spec.md §7 itself uses for these four cases.
			panic(ie)
		}
		return fmt.Errorf("runtime: launch: %w", wrapped)
	}

	if cfg.PView {
		printSummary(rtstats.Default.Snapshot())
	}
	return nil
}

func configureLogging(cfg Config) {
	out := os.Stderr
	if cfg.LogStdout {
		out = os.Stdout
	}
	level := logiface.LevelWarning
	switch {
	case cfg.LogPhases || cfg.LogMigration || cfg.LogLeafLoop:
		level = logiface.LevelDebug
	case cfg.LogThreads:
		level = logiface.LevelInformational
	}
	rtlog.SetLogger(stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(out)),
		stumpy.L.WithLevel(level),
	))
}

func printSummary(s rtstats.Snapshot) {
	fmt.Printf("promotions=%d steals=%d vertices_run=%d fuel_spent=%d\n",
		s.Promotions, s.Steals, s.VerticesRun, s.FuelSpent)
}
