package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/abelbrown/codesim/internal/api"
	"github.com/abelbrown/codesim/internal/compare"
	"github.com/abelbrown/codesim/internal/config"
	"github.com/abelbrown/codesim/internal/history"
	"github.com/abelbrown/codesim/internal/logging"
	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/otel"
)

// ringSize is how many recent events the debug overlay keeps.
const ringSize = 1000

// ownsTerminal marks commands that run the TUI. They log to a file and
// must not build a logger on the terminal: colour detection on stderr
// queries the terminal and blocks until it answers or times out.
const ownsTerminal = "codesim/owns-terminal"

// cli carries state shared by every subcommand.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:           "codesim",
		Short:         "Compare uploaded source files with a code similarity service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Annotations:   map[string]string{ownsTerminal: "true"},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runTUI(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default ~/.codesim/config.yaml)")
	flags.String("url", "", "analysis service base URL")
	flags.Duration("timeout", 0, "per-request timeout")
	flags.Float64("rate", 0, "max requests per second")
	flags.String("data-dir", "", "directory for history and logs")
	flags.String("log-level", "", "debug, info, warn or error")
	cobra.CheckErr(bindFlags(c.v, flags, map[string]string{
		"service.url":     "url",
		"service.timeout": "timeout",
		"service.rate":    "rate",
		"data_dir":        "data-dir",
		"log.level":       "log-level",
	}))

	root.AddCommand(
		c.tuiCmd(),
		c.listCmd(),
		c.uploadCmd(),
		c.compareCmd(),
		c.historyCmd(),
		c.eventsCmd(),
		c.configCmd(),
	)
	return root
}

// bindFlags maps config keys onto flags so a flag that was set wins over
// the file and the environment.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := fs.Lookup(name)
		if f == nil {
			return fmt.Errorf("flag --%s not defined", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return err
	}
	c.cfg = cfg
	if cmd.Annotations[ownsTerminal] == "" {
		logging.InitWriter(cmd.ErrOrStderr(), cfg.Log.Level)
	}
	return nil
}

// env is the wired set of components one command run uses.
type env struct {
	client  *api.Client
	runner  *compare.Runner
	history *history.Store // nil when the database could not be opened
	events  *otel.Logger
	ring    *otel.RingBuffer
	logFile *os.File
}

// open wires the client, event log, history and runner from the config.
// A broken history database is logged and skipped; everything else fails.
func (c *cli) open() (*env, error) {
	cfg := c.cfg
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	e := &env{ring: otel.NewRingBuffer(ringSize)}

	logPath := cfg.EventLogPath(time.Now())
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logging.Warn("event log unavailable", "path", logPath, "err", err)
		e.events = otel.NewNullLogger()
	} else {
		e.logFile = f
		e.events = otel.NewLogger(f)
	}
	e.events.SetRingBuffer(e.ring)
	e.events.Info(otel.KindStartup, "main", "codesim started")

	hist, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logging.Warn("history disabled", "path", cfg.HistoryPath(), "err", err)
		e.events.Error(otel.KindStoreError, "main", err)
	} else {
		e.history = hist
	}

	e.client = api.NewClient(cfg.Service.URL, api.Options{
		Timeout: cfg.Service.Timeout,
		Rate:    cfg.Service.Rate,
		Burst:   cfg.Service.Burst,
	})

	rc := compare.RunnerConfig{
		PageSize: cfg.Compare.PageSize,
		MaxPages: cfg.Compare.MaxPages,
		Logger:   e.events,
	}
	if e.history != nil {
		rc.Recorder = e.history
	}
	e.runner = compare.NewRunner(e.client, rc)
	return e, nil
}

func (e *env) Close() {
	e.events.Info(otel.KindShutdown, "main", "codesim stopped")
	e.events.Close()
	if e.logFile != nil {
		e.logFile.Close()
	}
	if e.history != nil {
		if err := e.history.Close(); err != nil {
			logging.Warn("close history", "err", err)
		}
	}
}

// filters reads --language and --min, falling back to the config.
func (c *cli) filters(cmd *cobra.Command) compare.Filters {
	f := compare.Filters{
		Language:      c.cfg.Compare.Language,
		MinSimilarity: c.cfg.Compare.MinSimilarity,
	}
	if cmd.Flags().Changed("language") {
		f.Language, _ = cmd.Flags().GetString("language")
	}
	if cmd.Flags().Changed("min") {
		f.MinSimilarity, _ = cmd.Flags().GetFloat64("min")
	}
	if l, ok := model.ParseLanguage(f.Language); ok {
		f.Language = string(l)
	}
	return f
}
