package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spiffcs/linksync/config"
	"github.com/spiffcs/linksync/internal/auth"
	"github.com/spiffcs/linksync/internal/ghclient"
	"github.com/spiffcs/linksync/internal/history"
	"github.com/spiffcs/linksync/internal/log"
	"github.com/spiffcs/linksync/internal/metrics"
	"github.com/spiffcs/linksync/internal/output"
	"github.com/spiffcs/linksync/internal/reconcile"
	"github.com/spiffcs/linksync/internal/service"
	"github.com/spiffcs/linksync/internal/tui"
)

// session bundles everything a command needs to talk to GitHub.
type session struct {
	opts     *Options
	cfg      *config.Config
	recorder *metrics.Recorder
	provider *auth.Provider
	client   *ghclient.Client
	profiler *Profiler

	useTUI  bool
	events  chan tui.Event
	tuiDone chan error
}

// setupSession starts profiling, configures logging, loads configuration and
// builds the token provider and client. The returned cleanup stops the TUI
// and profiler and writes the metrics file.
func setupSession(ctx context.Context, opts *Options, useTUI bool) (*session, func(), error) {
	profiler := NewProfiler(opts.CPUProfile, opts.MemProfile, opts.Trace)
	if err := profiler.Start(); err != nil {
		return nil, nil, err
	}

	// Logs would interleave with the TUI display.
	if useTUI {
		log.Initialize(opts.Verbosity, io.Discard)
	} else {
		log.Initialize(opts.Verbosity, os.Stderr)
	}

	cfg, err := config.Load()
	if err != nil {
		profiler.Stop()
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	env, err := config.LoadEnv(ctx, nil)
	if err != nil {
		profiler.Stop()
		return nil, nil, err
	}
	creds, err := cfg.Credentials(env)
	if err != nil {
		profiler.Stop()
		return nil, nil, err
	}

	recorder := metrics.New()
	apiURL := cfg.ResolvedAPIURL(env)
	provider := auth.NewProvider(creds,
		auth.WithBaseURL(apiURL),
		auth.WithTimeout(cfg.RequestTimeout),
		auth.WithObserver(recorder),
	)
	client, err := ghclient.NewClient(provider,
		ghclient.WithBaseURL(apiURL),
		ghclient.WithTimeout(cfg.RequestTimeout),
		ghclient.WithMaxRetries(cfg.MaxRetries),
		ghclient.WithObserver(recorder),
	)
	if err != nil {
		profiler.Stop()
		return nil, nil, err
	}
	log.Debug("session ready", "api", apiURL, "strategy", provider.Strategy().String())

	rt := &session{
		opts:     opts,
		cfg:      cfg,
		recorder: recorder,
		provider: provider,
		client:   client,
		profiler: profiler,
		useTUI:   useTUI,
	}
	return rt, rt.close, nil
}

func (rt *session) close() {
	rt.stopTUI()
	rt.profiler.Stop()

	if rt.opts.MetricsFile == "" {
		return
	}
	rt.recorder.SetRateLimitRemaining(rt.client.RateLimitStatus().Remaining)
	if err := rt.recorder.WriteTextfile(rt.opts.MetricsFile); err != nil {
		log.Error("failed to write metrics file", "path", rt.opts.MetricsFile, "error", err)
	}
}

// engine builds a reconciliation engine over the session's client.
func (rt *session) engine(extra ...reconcile.Option) *reconcile.Engine {
	workers := rt.cfg.Workers
	if rt.opts.Workers > 0 {
		workers = rt.opts.Workers
	}
	opts := []reconcile.Option{
		reconcile.WithFetchLimit(rt.cfg.FetchLimit),
		reconcile.WithWorkers(workers),
		reconcile.WithPacing(rt.cfg.PacingInterval),
		reconcile.WithDryRun(rt.opts.DryRun),
		reconcile.WithObserver(rt.recorder),
	}
	return reconcile.New(rt.client, append(opts, extra...)...)
}

func (rt *session) service(extra ...reconcile.Option) *service.SyncService {
	return service.New(rt.engine(extra...))
}

// format resolves --format against the configured default.
func (rt *session) format() (output.Format, error) {
	name := rt.opts.Format
	if name == "" {
		name = rt.cfg.DefaultFormat
	}
	return output.ParseFormat(name)
}

func (rt *session) formatter() (output.Formatter, error) {
	f, err := rt.format()
	if err != nil {
		return nil, err
	}
	return output.NewFormatter(f), nil
}

// startTUI initializes and starts the TUI goroutine if TUI mode is enabled.
func (rt *session) startTUI(tasks []tui.Task) {
	if !rt.useTUI {
		return
	}
	rt.events = make(chan tui.Event, 100)
	rt.tuiDone = make(chan error, 1)
	go func() {
		rt.tuiDone <- tui.Run(rt.events, tui.WithTasks(tasks))
	}()
}

// stopTUI closes the event channel and waits for the TUI to finish.
func (rt *session) stopTUI() {
	if rt.events == nil {
		return
	}
	close(rt.events)
	rt.events = nil
	if rt.tuiDone != nil {
		<-rt.tuiDone
	}
}

// sendEvent sends a task event to the TUI channel if it exists.
func (rt *session) sendEvent(task tui.TaskID, status tui.TaskStatus, opts ...tui.TaskEventOption) {
	tui.SendTaskEvent(rt.events, task, status, opts...)
}

// record appends runs to the local history. Failures are logged only.
func (rt *session) record(runs ...history.Run) {
	if rt.opts.NoHistory || len(runs) == 0 {
		return
	}
	store, err := history.NewStore()
	if err != nil {
		log.Warn("run history unavailable", "error", err)
		return
	}
	for _, run := range runs {
		if err := store.Append(run); err != nil {
			log.Warn("failed to record run", "path", store.Path(), "error", err)
			return
		}
	}
}

// authenticate acquires the first token up front so credential problems
// surface before any repository work starts.
func (rt *session) authenticate(ctx context.Context) error {
	rt.sendEvent(tui.TaskAuth, tui.StatusRunning)
	if _, err := rt.provider.Token(ctx); err != nil {
		rt.sendEvent(tui.TaskAuth, tui.StatusError, tui.WithError(err))
		return err
	}
	rt.sendEvent(tui.TaskAuth, tui.StatusComplete, tui.WithMessage(rt.provider.Strategy().String()))
	return nil
}
