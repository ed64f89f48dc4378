package cmd

// Options holds the shared command-line options for the linksync CLI.
type Options struct {
	Verbosity   int
	MetricsFile string
	Format      string
	NoHistory   bool

	// Sync options
	All     bool
	DryRun  bool
	Workers int
	TUI     *bool // nil = auto-detect, true = force TUI, false = disable TUI

	// Listing options
	State string
	Limit int
	Issue int
	PR    int

	// Profiling options
	CPUProfile string // Write CPU profile to file
	MemProfile string // Write memory profile to file
	Trace      string // Write execution trace to file
}

// Option is a functional option for configuring Options.
type Option func(*Options)

// NewOptions creates a new Options with defaults and applies any provided options.
func NewOptions(opts ...Option) *Options {
	o := &Options{
		State: "all",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithFormat sets the output format (table, json, markdown).
func WithFormat(format string) Option {
	return func(o *Options) {
		o.Format = format
	}
}

// WithVerbosity sets the verbosity level.
func WithVerbosity(v int) Option {
	return func(o *Options) {
		o.Verbosity = v
	}
}

// WithWorkers sets the number of issues reconciled concurrently.
func WithWorkers(workers int) Option {
	return func(o *Options) {
		o.Workers = workers
	}
}

// WithDryRun reports transitions without writing them.
func WithDryRun(dryRun bool) Option {
	return func(o *Options) {
		o.DryRun = dryRun
	}
}

// WithTUI controls TUI mode (nil = auto-detect, true = force, false = disable).
func WithTUI(tui *bool) Option {
	return func(o *Options) {
		o.TUI = tui
	}
}

// WithMetricsFile sets where the metrics textfile is written on exit.
func WithMetricsFile(path string) Option {
	return func(o *Options) {
		o.MetricsFile = path
	}
}
