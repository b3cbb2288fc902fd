package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/doridoridoriand/netwatch/internal/cli"
	"github.com/doridoridoriand/netwatch/internal/config"
	"github.com/doridoridoriand/netwatch/internal/control"
	"github.com/doridoridoriand/netwatch/internal/log"
	"github.com/doridoridoriand/netwatch/internal/metrics"
	"github.com/doridoridoriand/netwatch/internal/monitor"
	"github.com/doridoridoriand/netwatch/internal/probe"
	"github.com/doridoridoriand/netwatch/internal/scheduler"
	netsignal "github.com/doridoridoriand/netwatch/internal/signal"
	"github.com/doridoridoriand/netwatch/internal/state"
	"github.com/doridoridoriand/netwatch/internal/ui"
	"github.com/doridoridoriand/netwatch/internal/wakehold"
)

const version = "0.1.0"

// errQuit is returned when the user leaves the terminal UI.
var errQuit = errors.New("quit requested")

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var flags cli.Flags
	cmd := &cobra.Command{
		Use:          "netwatch [config-file]",
		Short:        "Watch internet connectivity and report when it drops or returns",
		Args:         cobra.MaximumNArgs(1),
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			cfg, err := config.NetwatchParser{}.LoadConfig(path, flags.Overrides())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, path)
		},
	}
	flags.Register(cmd.Flags())
	return cmd
}

func run(ctx context.Context, cfg *config.Config, path string) error {
	logger, err := newLogger(cfg.Global)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger.LogConfigLoad(true, path, nil)

	a, err := newApp(cfg, logger, appOptions{})
	if err != nil {
		logger.LogError("main", err, nil)
		return err
	}
	return a.run(ctx)
}

// newLogger keeps the terminal clean: with the TUI on, logs go only to
// log.file, or nowhere.
func newLogger(g config.GlobalOptions) (*log.Logger, error) {
	if !g.UIDisable && g.LogFile == "" {
		return log.Nop(), nil
	}
	logger, err := log.NewFileLogger(log.ParseLevel(g.LogLevel), g.LogFile)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return logger, nil
}

// appOptions replaces system collaborators, mainly in tests.
type appOptions struct {
	targets      []probe.Target
	availability netsignal.AvailabilityFunc
	hold         wakehold.Hold
}

type app struct {
	cfg      *config.Config
	logger   *log.Logger
	machine  *monitor.Machine
	metrics  *metrics.Metrics
	board    *ui.Board
	terminal *ui.Terminal
	router   http.Handler
}

func newApp(cfg *config.Config, logger *log.Logger, opts appOptions) (*app, error) {
	g := cfg.Global

	targets := opts.targets
	if targets == nil {
		var err error
		if targets, err = probe.TargetsFromConfig(cfg); err != nil {
			return nil, err
		}
	}

	hold := opts.hold
	if hold == nil {
		var err error
		if hold, err = wakehold.New(g.WakeHold, g.WakeHoldPath); err != nil {
			return nil, err
		}
	}

	availability := opts.availability
	if availability == nil {
		availability = netsignal.SystemAvailability(g.SignalGateway)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		board:   ui.NewBoard(),
	}

	checker := probe.NewChecker(targets, g.ProbeTimeout, logger.Named("probe"))
	for _, t := range targets {
		a.board.Register(t.Name, t.Address, t.Group)
	}
	checker.OnResult(func(t probe.Target, r probe.Result) {
		a.metrics.ObserveProbe(t.Name, t.Group, r.Success, r.RTT)
		a.board.Record(t.Name, r.Success, r.RTT, time.Now())
	})

	submit := func(ev state.Event) {
		a.machine.Submit(ev)
	}
	loop := scheduler.NewProbeLoop(checker, g.ProbeInterval, submit,
		scheduler.WithLogger(logger.Named("probe_loop")))
	backoff := scheduler.NewBackoff(checker, g.BackoffInitial, g.BackoffMax, submit,
		scheduler.WithLogger(logger.Named("backoff")),
		scheduler.WithAttemptHook(a.metrics.ObserveBackoffAttempt))
	watcher := netsignal.NewWatcher(availability, g.SignalPoll,
		netsignal.WithLogger(logger.Named("signal")))

	indicators := ui.Multi{ui.NewLogIndicator(logger.Named("status"))}
	if !g.UIDisable {
		a.terminal = ui.NewTerminal(g, a.board)
		indicators = append(indicators, a.terminal)
	}

	a.machine = monitor.New(monitor.Deps{
		Indicator: indicators,
		Probes:    loop,
		Backoff:   backoff,
		Signal:    watcher,
		WakeHold:  wakehold.NewGuard(hold, logger.Named("wakehold")),
		Observer:  a.metrics,
		Logger:    logger.Named("monitor"),
	})
	a.router = control.NewRouter(a.machine, a.metrics.Handler(), logger.Named("control"))
	return a, nil
}

func (a *app) run(ctx context.Context) error {
	defer a.machine.Close()
	if a.cfg.Global.AutoStart {
		a.machine.Start()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.machine.Run(gctx)
	})
	if listen := a.cfg.Global.ControlListen; listen != "" {
		g.Go(func() error {
			a.logger.Info("control API listening", map[string]interface{}{"addr": listen})
			return control.Serve(gctx, listen, a.router)
		})
	}
	if a.terminal != nil {
		g.Go(func() error {
			if err := a.terminal.Run(gctx, a.machine); err != nil {
				if errors.Is(err, context.Canceled) {
					return errQuit
				}
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}
