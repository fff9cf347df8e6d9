// Package runtime ties the scheduler, vertex, and ambient (rtlog/rtstats)
// packages together into the module's external interface: Config/ParseArgs
// stand in for the original's initialize(argc, argv), and Launch starts the
// scheduler the way the original's launch_scheduler did.
package runtime

import (
	"github.com/spf13/pflag"
)

// Config holds the runtime knobs exposed at the command line: the
// heartbeat/steal-threshold tuning pair, the worker count, and the
// observability flags the original's initialize() recognized. The
// log_*/pview flags are observability only — per spec.md, none of them may
// change scheduling semantics.
type Config struct {
	DagFreq     int // heartbeat fuel grant per tick (spec's D)
	SharingFreq int // steal-serving weight threshold (spec's K)
	Proc        int // number of worker goroutines

	LogPhases    bool
	LogThreads   bool
	LogMigration bool
	LogLeafLoop  bool
	LogStdout    bool
	PView        bool
}

// DefaultConfig mirrors the original's compiled-in defaults: D=2048,
// K=2*D, and one worker per Proc.
func DefaultConfig() Config {
	return Config{
		DagFreq:     2048,
		SharingFreq: 4096,
		Proc:        1,
	}
}

// BindFlags registers the runtime's flags onto fs (so a client program can
// add its own domain flags to the same set before parsing) and returns a
// Config that is populated once fs.Parse has been called.
func BindFlags(fs *pflag.FlagSet) *Config {
	cfg := DefaultConfig()
	fs.IntVar(&cfg.DagFreq, "dag-freq", cfg.DagFreq, "heartbeat fuel grant per tick (D)")
	fs.IntVar(&cfg.SharingFreq, "sharing-freq", cfg.SharingFreq, "steal-serving weight threshold (K)")
	fs.IntVar(&cfg.Proc, "proc", cfg.Proc, "number of worker goroutines")
	fs.BoolVar(&cfg.LogPhases, "log-phases", cfg.LogPhases, "log scheduler phase transitions")
	fs.BoolVar(&cfg.LogThreads, "log-threads", cfg.LogThreads, "log per-worker lifecycle events")
	fs.BoolVar(&cfg.LogMigration, "log-migration", cfg.LogMigration, "log steal grants/rejections")
	fs.BoolVar(&cfg.LogLeafLoop, "log-leaf-loop", cfg.LogLeafLoop, "log parallel-loop leaf execution")
	fs.BoolVar(&cfg.LogStdout, "log-stdout", cfg.LogStdout, "write logs to stdout instead of stderr")
	fs.BoolVar(&cfg.PView, "pview", cfg.PView, "print an rtstats summary on exit")
	return &cfg
}

// ParseArgs parses args (ordinarily os.Args[1:]) into a Config, using a
// dedicated pflag.FlagSet so callers with no domain flags of their own
// don't need to build one via BindFlags themselves.
func ParseArgs(args []string) (Config, error) {
	fs := pflag.NewFlagSet("heartbeat", pflag.ContinueOnError)
	cfg := BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return *cfg, nil
}
