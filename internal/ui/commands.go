package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/codesim/internal/compare"
	"github.com/abelbrown/codesim/internal/history"
	"github.com/abelbrown/codesim/internal/library"
	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/otel"
	"github.com/abelbrown/codesim/internal/upload"
)

// Commands are the I/O entry points the App calls. Each returns a tea.Cmd
// whose result arrives as a message; the App never blocks on I/O.
// Nil fields disable the corresponding action.
type Commands struct {
	LoadPage   func(tag library.Tag, size int) tea.Cmd
	Run        func(req compare.Request) tea.Cmd
	Upload     func(paths []string, lang model.Language) tea.Cmd
	Restore    func() tea.Cmd
	Invalidate func()
}

// Backend is what NewCommands wires together. History and Sender may be
// nil.
type Backend struct {
	Ctx     context.Context // cancelled on shutdown
	Loader  *library.Loader
	Runner  *compare.Runner
	Sender  upload.Sender
	History *history.Store
	Log     *otel.Logger
}

// NewCommands builds Commands over real components.
func NewCommands(b Backend) Commands {
	ctx := b.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	cmds := Commands{
		LoadPage: func(tag library.Tag, size int) tea.Cmd {
			return func() tea.Msg {
				p, err := b.Loader.Load(ctx, tag.Page, size)
				return PageLoaded{Tag: tag, Page: p, Err: err}
			}
		},
		Run: func(req compare.Request) tea.Cmd {
			return func() tea.Msg {
				out, err := b.Runner.Run(ctx, req)
				return CompareFinished{Outcome: out, Err: err}
			}
		},
		Invalidate: b.Loader.Invalidate,
	}

	if b.Sender != nil {
		cmds.Upload = func(paths []string, lang model.Language) tea.Cmd {
			return func() tea.Msg {
				files, err := upload.Collect(ctx, paths, lang)
				if err != nil {
					b.Log.Error(otel.KindUploadError, "upload", err)
					return UploadFinished{Err: err}
				}
				msg, err := upload.Send(ctx, b.Sender, lang, files, b.Log)
				return UploadFinished{Message: msg, Count: len(files), Err: err}
			}
		}
	}

	if b.History != nil {
		cmds.Restore = func() tea.Cmd {
			return func() tea.Msg {
				run, err := b.History.LastSuccess(ctx)
				if err != nil {
					return OutcomeRestored{}
				}
				return OutcomeRestored{Outcome: run.Outcome(), OK: true}
			}
		}
	}
	return cmds
}
