package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/sadopc/timebird/internal/config"
	"github.com/sadopc/timebird/internal/entries"
	"github.com/sadopc/timebird/internal/logging"
	"github.com/sadopc/timebird/internal/moneybird"
	"github.com/sadopc/timebird/internal/store"
	"github.com/sadopc/timebird/internal/timer"
	"github.com/sadopc/timebird/internal/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type options struct {
	configPath string
	dev        bool
	logLevel   string
}

func bindFlags(fs *pflag.FlagSet, o *options) {
	fs.StringVar(&o.configPath, "config", "", "path to the configuration file (default ~/.config/timebird/config.yaml)")
	fs.BoolVar(&o.dev, "dev", false, "use the development credential store")
	fs.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides the config file)")
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "timebird",
		Short:         "Track time and book it in Moneybird",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	bindFlags(cmd.Flags(), &opts)
	return cmd
}

func run(ctx context.Context, opts options) error {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return errors.New("timebird needs an interactive terminal")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer stop()

	conf, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := new(slog.LevelVar)
	level.Set(conf.Level())
	if opts.logLevel != "" {
		l, err := config.ParseLevel(opts.logLevel)
		if err != nil {
			return err
		}
		level.Set(l)
	}

	logPath, err := conf.LogPath()
	if err != nil {
		return fmt.Errorf("log path: %w", err)
	}
	log, logFile, err := logging.Open(logPath, level)
	if err != nil {
		return err
	}
	defer logFile.Close()

	dbPath, err := store.DefaultDBPath(opts.dev || conf.Development())
	if err != nil {
		return fmt.Errorf("finding store path: %w", err)
	}
	settings, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer settings.Close()

	client := moneybird.New(
		moneybird.WithBaseURL(conf.BaseURL),
		moneybird.WithTimeout(conf.RequestTimeout),
		moneybird.WithLogger(log.With("component", "moneybird")),
	)
	es := entries.New(settings, client,
		entries.WithPageSize(conf.PageSize),
		entries.WithLogger(log.With("component", "entries")),
	)
	indicator := tui.NewIndicator()
	t := timer.New(
		timer.WithIndicator(indicator),
		timer.WithLogger(log.With("component", "timer")),
	)
	defer t.Reset()

	log.Info("starting", "store", dbPath, "base_url", conf.BaseURL)

	app := tui.NewApp(ctx, tui.Services{
		Entries:   es,
		Timer:     t,
		Indicator: indicator,
		Log:       log,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	go watchConfig(ctx, opts, level, log, p)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// watchConfig pushes page size and log level changes into the running
// program. A --log-level flag keeps precedence over the file.
func watchConfig(ctx context.Context, opts options, level *slog.LevelVar, log *slog.Logger, p *tea.Program) {
	path := opts.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			log.Warn("config watcher disabled", "err", err)
			return
		}
	}

	w := config.NewWatcher(path, func(c *config.Config) {
		if opts.logLevel == "" {
			level.Set(c.Level())
		}
		p.Send(tui.ConfigReloadedMsg{PageSize: c.PageSize})
	}, config.WithWatchLogger(log.With("component", "config")))

	if err := w.Run(ctx); err != nil {
		log.Warn("config watcher stopped", "err", err)
	}
}
