package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/codesim/internal/compare"
	"github.com/abelbrown/codesim/internal/library"
	"github.com/abelbrown/codesim/internal/logging"
	"github.com/abelbrown/codesim/internal/ui"
)

func (c *cli) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "tui",
		Short:       "Browse the library and run comparisons interactively (default)",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{ownsTerminal: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runTUI(cmd)
		},
	}
}

func (c *cli) runTUI(cmd *cobra.Command) error {
	// The TUI owns the terminal; diagnostics go to a file from here on.
	if err := logging.Init(c.cfg.DataDir, c.cfg.Log.Level); err != nil {
		return err
	}
	defer logging.Close()

	e, err := c.open()
	if err != nil {
		return err
	}
	defer e.Close()

	loader, err := library.NewLoader(e.client, c.cfg.Library.CachePages, e.events)
	if err != nil {
		return err
	}

	cmds := ui.NewCommands(ui.Backend{
		Ctx:     cmd.Context(),
		Loader:  loader,
		Runner:  e.runner,
		Sender:  e.client,
		History: e.history,
		Log:     e.events,
	})

	app := ui.NewApp(ui.AppConfig{
		Commands: cmds,
		PageSize: c.cfg.Library.PageSize,
		Filters: compare.Filters{
			Language:      c.cfg.Compare.Language,
			MinSimilarity: c.cfg.Compare.MinSimilarity,
		},
		Ring: e.ring,
		Log:  e.events,
	})

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := program.Run(); err != nil {
		logging.Error("program exited", "err", err)
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
