package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/codesim/internal/compare"
	"github.com/abelbrown/codesim/internal/library"
	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/otel"
	"github.com/abelbrown/codesim/internal/paging"
	"github.com/abelbrown/codesim/internal/selection"
	"github.com/abelbrown/codesim/internal/upload"
)

type pane int

const (
	paneLibrary pane = iota
	paneResults
)

type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputLanguage
	inputThreshold
	inputUpload
)

// AppConfig configures NewApp.
type AppConfig struct {
	Commands Commands
	PageSize int
	Filters  compare.Filters
	Ring     *otel.RingBuffer // debug overlay source, optional
	Log      *otel.Logger     // optional
}

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT hold the client, loader or store. It issues
// Commands and receives results via messages.
type App struct {
	cmds Commands
	log  *otel.Logger
	ring *otel.RingBuffer

	view     library.View
	sel      selection.Set
	selector compare.Selector
	outcome  *compare.Outcome

	cursor       int
	resultCursor int
	focus        pane

	input     inputMode
	textInput textinput.Model

	spinner   spinner.Model
	spinning  bool
	uploading bool

	help help.Model
	keys keyMap

	err    error
	notice string

	debugVisible bool
	width        int
	height       int
	ready        bool
}

// NewApp creates an App. The first library page is requested by Init.
func NewApp(cfg AppConfig) App {
	ti := textinput.New()
	ti.CharLimit = 4096

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(StatusBarKey))

	filters := cfg.Filters
	if filters == (compare.Filters{}) {
		filters = compare.DefaultFilters()
	}

	view, _ := library.NewView(cfg.PageSize).Reload()

	return App{
		cmds:      cfg.Commands,
		log:       cfg.Log,
		ring:      cfg.Ring,
		view:      view,
		sel:       selection.New(),
		selector:  compare.NewSelector().WithFilters(filters),
		textInput: ti,
		spinner:   sp,
		help:      help.New(),
		keys:      defaultKeyMap(),
	}
}

// Init requests the first page and the last saved outcome.
func (a App) Init() tea.Cmd {
	var cmds []tea.Cmd
	if a.cmds.LoadPage != nil {
		cmds = append(cmds, a.cmds.LoadPage(a.view.Latest(), a.view.Size()), a.spinner.Tick)
	}
	if a.cmds.Restore != nil {
		cmds = append(cmds, a.cmds.Restore())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.ready = true
		return a, nil

	case tea.KeyMsg:
		if a.input != inputNone {
			return a.handleInputKey(msg)
		}
		return a.handleKeyMsg(msg)

	case spinner.TickMsg:
		if !a.busy() {
			a.spinning = false
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		a.spinning = true
		return a, cmd

	case PageLoaded:
		return a.handlePageLoaded(msg), nil

	case CompareFinished:
		a.selector = a.selector.Settle()
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		out := msg.Outcome
		a.outcome = &out
		a.resultCursor = 0
		a.err = nil
		return a, nil

	case UploadFinished:
		a.uploading = false
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.notice = msg.Message
		if a.cmds.Invalidate != nil {
			a.cmds.Invalidate()
		}
		return a.requestPage(a.view.Reload())

	case OutcomeRestored:
		if msg.OK && a.outcome == nil {
			out := msg.Outcome
			a.outcome = &out
		}
		return a, nil
	}

	return a, nil
}

func (a App) handlePageLoaded(msg PageLoaded) App {
	var err error
	if msg.Err != nil {
		a.view, err = a.view.Fail(msg.Tag, msg.Err)
		if err == nil {
			a.err = msg.Err
		}
	} else {
		a.view, err = a.view.Accept(msg.Tag, msg.Page)
		if err != nil && !errors.Is(err, library.ErrStale) {
			a.err = err
		}
	}
	if errors.Is(err, library.ErrStale) {
		a.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindPageStale, Comp: "ui", Page: msg.Tag.Page})
		return a
	}

	rows := a.view.Rows(a.sel)
	if a.cursor >= len(rows) {
		a.cursor = max(len(rows)-1, 0)
	}
	return a
}

// handleKeyMsg processes keyboard input outside text entry.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if otel.TraceEnabled() {
		a.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyPress, Comp: "ui", Msg: msg.String()})
	}

	// Clear any existing error or notice on key press
	a.err = nil
	a.notice = ""

	k := a.keys
	switch {
	case key.Matches(msg, k.Quit):
		return a, tea.Quit

	case key.Matches(msg, k.Debug):
		if a.ring != nil {
			a.debugVisible = !a.debugVisible
		}
		return a, nil

	case key.Matches(msg, k.Help):
		a.help.ShowAll = !a.help.ShowAll
		return a, nil

	case key.Matches(msg, k.Focus):
		if a.focus == paneLibrary {
			a.focus = paneResults
		} else {
			a.focus = paneLibrary
		}
		return a, nil

	case key.Matches(msg, k.Up):
		a.moveCursor(-1)
		return a, nil

	case key.Matches(msg, k.Down):
		a.moveCursor(1)
		return a, nil

	case key.Matches(msg, k.PrevPage):
		return a.navigate(-1)

	case key.Matches(msg, k.NextPage):
		return a.navigate(1)

	case key.Matches(msg, k.Toggle):
		rows := a.view.Rows(a.sel)
		if a.focus == paneLibrary && a.cursor < len(rows) {
			a.sel = a.sel.Toggle(rows[a.cursor].File)
		}
		return a, nil

	case key.Matches(msg, k.Clear):
		a.sel = a.sel.Clear()
		return a, nil

	case key.Matches(msg, k.Pairwise):
		a.selector = a.selector.Choose(compare.Pairwise)
		return a, nil

	case key.Matches(msg, k.All):
		a.selector = a.selector.Choose(compare.AgainstAll)
		return a, nil

	case key.Matches(msg, k.Batch):
		a.selector = a.selector.Choose(compare.Batch)
		return a, nil

	case key.Matches(msg, k.Run):
		return a.runComparison()

	case key.Matches(msg, k.Language):
		return a.startInput(inputLanguage, "language> ", "any", a.selector.Filters().Language)

	case key.Matches(msg, k.Threshold):
		current := strconv.FormatFloat(a.selector.Filters().Normalize().MinSimilarity, 'f', -1, 64)
		return a.startInput(inputThreshold, "min similarity> ", "1-100", current)

	case key.Matches(msg, k.Search):
		return a.startInput(inputSearch, "/", "file name", a.view.Query().Search)

	case key.Matches(msg, k.Sort):
		q := a.view.Query()
		q.SortBy = q.SortBy.Next()
		a.view = a.view.WithQuery(q)
		return a, nil

	case key.Matches(msg, k.Reverse):
		q := a.view.Query()
		q.Desc = !q.Desc
		a.view = a.view.WithQuery(q)
		return a, nil

	case key.Matches(msg, k.Upload):
		if a.cmds.Upload == nil || a.uploading {
			return a, nil
		}
		return a.startInput(inputUpload, "upload> ", "[LANG:] path/to/a.go path/to/b.go", "")

	case key.Matches(msg, k.Reload):
		if a.cmds.Invalidate != nil {
			a.cmds.Invalidate()
		}
		return a.requestPage(a.view.Reload())

	case msg.Type == tea.KeyEsc:
		q := a.view.Query()
		q.Search = ""
		a.view = a.view.WithQuery(q)
		return a, nil
	}

	return a, nil
}

func (a *App) moveCursor(delta int) {
	if a.focus == paneResults {
		n := 0
		if a.outcome != nil {
			n = len(a.outcome.Results)
		}
		a.resultCursor = clamp(a.resultCursor+delta, 0, max(n-1, 0))
		return
	}
	n := len(a.view.Rows(a.sel))
	a.cursor = clamp(a.cursor+delta, 0, max(n-1, 0))
}

// navigate moves the library by delta pages. Moving past either end is
// a no-op once a page is loaded.
func (a App) navigate(delta int) (tea.Model, tea.Cmd) {
	from := a.view.Origin()
	target := paging.RequestPage(from, delta)
	if a.view.Loaded() && target == from.Number {
		return a, nil
	}
	a.cursor = 0
	return a.requestPage(a.view.Navigate(delta))
}

func (a App) requestPage(view library.View, tag library.Tag) (tea.Model, tea.Cmd) {
	a.view = view
	if a.cmds.LoadPage == nil {
		return a, nil
	}
	spin := a.startSpinner()
	return a, tea.Batch(a.cmds.LoadPage(tag, view.Size()), spin)
}

func (a App) runComparison() (tea.Model, tea.Cmd) {
	next, req, err := a.selector.Begin(a.sel)
	if err != nil {
		a.err = err
		a.log.Emit(otel.Event{
			Level: otel.LevelWarn,
			Kind:  otel.KindCompareRejected,
			Comp:  "ui",
			Mode:  a.selector.Mode().String(),
			Count: a.sel.Size(),
			Err:   err.Error(),
		})
		return a, nil
	}
	if a.cmds.Run == nil {
		return a, nil
	}
	a.selector = next
	spin := a.startSpinner()
	return a, tea.Batch(a.cmds.Run(req), spin)
}

func (a App) startInput(mode inputMode, prompt, placeholder, value string) (tea.Model, tea.Cmd) {
	a.input = mode
	a.textInput.Prompt = prompt
	a.textInput.Placeholder = placeholder
	a.textInput.SetValue(value)
	a.textInput.CursorEnd()
	return a, a.textInput.Focus()
}

func (a App) stopInput() App {
	a.input = inputNone
	a.textInput.Blur()
	a.textInput.Reset()
	return a
}

// handleInputKey routes keys to the text input while one is open.
func (a App) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return a, tea.Quit
	case tea.KeyEsc:
		if a.input == inputSearch {
			q := a.view.Query()
			q.Search = ""
			a.view = a.view.WithQuery(q)
		}
		return a.stopInput(), nil
	case tea.KeyEnter:
		return a.commitInput()
	}

	var cmd tea.Cmd
	a.textInput, cmd = a.textInput.Update(msg)
	if a.input == inputSearch {
		q := a.view.Query()
		q.Search = a.textInput.Value()
		a.view = a.view.WithQuery(q)
		a.cursor = 0
	}
	return a, cmd
}

func (a App) commitInput() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(a.textInput.Value())
	mode := a.input
	a = a.stopInput()

	switch mode {
	case inputSearch:
		q := a.view.Query()
		q.Search = value
		a.view = a.view.WithQuery(q)

	case inputLanguage:
		if l, ok := model.ParseLanguage(value); ok {
			value = string(l)
		}
		f := a.selector.Filters()
		f.Language = value
		a.selector = a.selector.WithFilters(f)

	case inputThreshold:
		f := a.selector.Filters()
		if value == "" {
			f.MinSimilarity = compare.DefaultMinSimilarity
		} else {
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				a.err = fmt.Errorf("min similarity %q is not a number", value)
				return a, nil
			}
			f.MinSimilarity = v
		}
		if err := f.Normalize().Validate(); err != nil {
			a.err = &model.PreconditionError{Mode: a.selector.Mode().String(), Reason: err.Error()}
			return a, nil
		}
		a.selector = a.selector.WithFilters(f)

	case inputUpload:
		lang, paths, err := parseUploadInput(value)
		if err != nil {
			a.err = err
			return a, nil
		}
		a.uploading = true
		spin := a.startSpinner()
		return a, tea.Batch(a.cmds.Upload(paths, lang), spin)
	}
	return a, nil
}

// parseUploadInput reads "[LANG:] path..." and detects the language from
// the first path when no prefix is given.
func parseUploadInput(s string) (model.Language, []string, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", nil, &upload.InvalidFileError{Name: "(none)", Reason: "no files given"}
	}
	if prefix, ok := strings.CutSuffix(fields[0], ":"); ok {
		lang, known := model.ParseLanguage(prefix)
		if !known {
			return "", nil, &upload.InvalidFileError{Name: prefix, Reason: "unsupported language"}
		}
		if len(fields) == 1 {
			return "", nil, &upload.InvalidFileError{Name: "(none)", Reason: "no files given"}
		}
		return lang, fields[1:], nil
	}
	lang, ok := model.DetectLanguage(fields[0])
	if !ok {
		return "", nil, &upload.InvalidFileError{Name: fields[0], Reason: "cannot detect language; prefix with e.g. GO:"}
	}
	return lang, fields, nil
}

func (a App) busy() bool {
	return a.view.Loading() || a.selector.InFlight() || a.uploading
}

// startSpinner starts the tick loop unless it is already running.
func (a *App) startSpinner() tea.Cmd {
	if a.spinning {
		return nil
	}
	a.spinning = true
	return a.spinner.Tick
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.debugVisible {
		return debugOverlay(a.ring, a.width, a.height-1) + "\n" + debugStatusBar(a.width)
	}

	var footer []string
	if a.input != inputNone {
		footer = append(footer, InputBar.Width(a.width).Render(a.textInput.View()))
	}
	if a.err != nil {
		footer = append(footer, ErrorStyle.Width(a.width).Render("Error: "+a.err.Error()+" (press any key to dismiss)"))
	} else if a.notice != "" {
		footer = append(footer, NoticeStyle.Width(a.width).Render(a.notice))
	}
	footer = append(footer, a.help.View(a.keys))
	footer = append(footer, RenderStatusBar(a.statusText(), a.width))
	footerText := strings.Join(footer, "\n")

	contentHeight := a.height - lipgloss.Height(footerText)
	if contentHeight < 6 {
		contentHeight = 6
	}
	return a.renderPanes(contentHeight) + "\n" + footerText
}

func (a App) renderPanes(height int) string {
	const chrome = 2 // pane border

	if a.width >= 100 {
		leftWidth := a.width*55/100 - chrome
		rightWidth := a.width - leftWidth - 2*chrome
		left := a.renderLibraryPane(leftWidth, height-chrome)
		right := a.renderComparePane(rightWidth, height-chrome)
		return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	}

	w := a.width - chrome
	libHeight := (height - 2*chrome) / 2
	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderLibraryPane(w, libHeight),
		a.renderComparePane(w, height-2*chrome-libHeight),
	)
}

func (a App) renderLibraryPane(width, height int) string {
	title := "Library"
	if a.view.Loading() {
		title += " " + a.spinner.View()
	}
	q := a.view.Query()
	footer := fmt.Sprintf("%s · %d selected · sort %s", paging.Label(a.view.Page()), a.sel.Size(), q.SortBy)
	if q.Desc {
		footer += " ↓"
	}
	if q.Search != "" {
		footer += fmt.Sprintf(" · /%s", q.Search)
	}

	targetID := int64(-1)
	if t, ok := a.sel.Target(); ok {
		targetID = t.ID
	}
	body := RenderLibrary(a.view.Rows(a.sel), a.cursor, a.focus == paneLibrary, targetID, width, height-2)

	content := PaneTitle.Render(title) + "\n" + body
	content = lipgloss.PlaceVertical(height-1, lipgloss.Top, content)
	content += "\n" + MutedText.Render(truncateRunes(footer, width))

	border := PaneBorder
	if a.focus == paneLibrary {
		border = FocusedPaneBorder
	}
	return border.Width(width).Height(height).Render(content)
}

func (a App) renderComparePane(width, height int) string {
	panel := RenderComparePanel(a.selector, a.sel, a.spinner.View(), width)
	resultsHeight := height - lipgloss.Height(panel) - 3
	results := RenderOutcome(a.outcome, a.resultCursor, a.focus == paneResults, width, resultsHeight)

	content := PaneTitle.Render("Compare") + "\n" + panel + "\n\n" + PaneTitle.Render("Results") + "\n" + results

	border := PaneBorder
	if a.focus == paneResults {
		border = FocusedPaneBorder
	}
	return border.Width(width).Height(height).Render(content)
}

func (a App) statusText() string {
	parts := []string{a.selector.Mode().String(), fmt.Sprintf("%d selected", a.sel.Size())}
	if a.uploading {
		parts = append(parts, a.spinner.View()+" uploading")
	}
	return " " + strings.Join(parts, " · ") + " "
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Cursor returns the library cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Selection returns the current selection (for testing).
func (a App) Selection() selection.Set {
	return a.sel
}

// Outcome returns the displayed outcome, nil before any run (for testing).
func (a App) Outcome() *compare.Outcome {
	return a.outcome
}

// Err returns the error shown in the error bar (for testing).
func (a App) Err() error {
	return a.err
}
