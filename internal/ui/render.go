package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/codesim/internal/compare"
	"github.com/abelbrown/codesim/internal/library"
	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/score"
	"github.com/abelbrown/codesim/internal/selection"
)

// RenderLibrary renders the visible library rows. targetID marks the file
// that batch and against-all comparisons use as their target.
func RenderLibrary(rows []library.Row, cursor int, focused bool, targetID int64, width, height int) string {
	if len(rows) == 0 {
		return HelpStyle.Render("No files on this page. Press 'u' to upload or 'r' to reload.")
	}
	if height < 1 {
		height = 1
	}

	var b strings.Builder
	offset := calcScrollOffset(len(rows), cursor, height)
	for i := offset; i < len(rows) && i < offset+height; i++ {
		b.WriteString(renderFileLine(rows[i], focused && i == cursor, rows[i].File.ID == targetID, width))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// calcScrollOffset returns the first visible index that keeps cursor in a
// window of height lines.
func calcScrollOffset(total, cursor, height int) int {
	if total == 0 || cursor < 0 || height < 1 {
		return 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	if cursor >= height {
		return cursor - height + 1
	}
	return 0
}

func renderFileLine(row library.Row, atCursor, isTarget bool, width int) string {
	check := "[ ]"
	if row.Selected {
		check = "[x]"
	}
	marker := " "
	if isTarget && row.Selected {
		marker = "T"
	}

	lang := row.File.Language
	if lang == "" {
		lang = "?"
	}
	date := ""
	if !row.File.CreatedAt.IsZero() {
		date = row.File.CreatedAt.Format("2006-01-02")
	}

	nameWidth := width - 30
	if nameWidth < 12 {
		nameWidth = 12
	}
	name := truncateRunes(row.File.DisplayName(), nameWidth)

	if atCursor {
		plain := fmt.Sprintf("%s %s %-*s %-10s %s", check, marker, nameWidth, name, lang, date)
		return CursorRow.Render(plain)
	}

	checkStyled := check
	markerStyled := marker
	if row.Selected {
		checkStyled = SelectedMark.Render(check)
		markerStyled = SelectedMark.Render(marker)
	}
	pad := nameWidth - utf8.RuneCountInString(name)
	if pad < 0 {
		pad = 0
	}
	line := fmt.Sprintf("%s %s %s%s %s %s", checkStyled, markerStyled, name, strings.Repeat(" ", pad),
		LanguageBadge.Render(lang), MutedText.Render(date))
	return NormalRow.Render(line)
}

// RenderComparePanel renders the mode chooser, filters and run control.
func RenderComparePanel(sel compare.Selector, set selection.Set, spin string, width int) string {
	var lines []string

	var modes []string
	for i, m := range compare.Modes {
		label := fmt.Sprintf("%d %s", i+1, m)
		if m == sel.Mode() {
			modes = append(modes, ModeActive.Render(label))
		} else {
			modes = append(modes, ModeInactive.Render(label))
		}
	}
	lines = append(lines, strings.Join(modes, " "))
	lines = append(lines, MutedText.Render(truncateRunes(sel.Mode().Description(), width)))

	need := fmt.Sprintf("Needs %s, %d selected", sel.Mode().Precondition(), set.Size())
	if sel.Mode().CanRun(set.Size()) {
		lines = append(lines, SelectedMark.Render("✓ ")+need)
	} else {
		lines = append(lines, StatusBarText.Render("✗ ")+need)
	}

	if sel.Mode().UsesFilters() {
		f := sel.Filters().Normalize()
		lang := f.Language
		if lang == "" {
			lang = "any"
		}
		lines = append(lines, fmt.Sprintf("Language: %s   Min similarity: %s",
			lang, score.Format(f.MinSimilarity)))
	}

	switch {
	case sel.InFlight():
		lines = append(lines, spin+" Comparing...")
	case sel.Ready(set.Size()):
		lines = append(lines, RunReady.Render("▶ Compare"))
	default:
		lines = append(lines, RunDisabled.Render("▶ Compare"))
	}
	return strings.Join(lines, "\n")
}

// RenderOutcome renders the latest comparison outcome.
func RenderOutcome(out *compare.Outcome, cursor int, focused bool, width, height int) string {
	if out == nil {
		return MutedText.Render("No comparison yet. Select files and press enter.")
	}

	head := fmt.Sprintf("%s · run %s · %s", out.Mode, shortID(out.RunID), out.Duration().Round(time.Millisecond))
	lines := []string{MutedText.Render(truncateRunes(head, width))}

	if out.Mode == compare.Pairwise {
		tier := TierStyle(out.ScoreTier)
		lines = append(lines,
			"",
			"Similarity: "+tier.Render(score.Format(out.Score)),
			"Level:      "+tier.Render(out.ScoreTier.Label()),
		)
		return strings.Join(lines, "\n")
	}

	if len(out.Results) == 0 {
		lines = append(lines, "", "No files matched the filters.")
		return strings.Join(lines, "\n")
	}
	lines = append(lines, fmt.Sprintf("%d results", len(out.Results)))

	avail := height - len(lines)
	if avail < 1 {
		avail = 1
	}
	offset := calcScrollOffset(len(out.Results), cursor, avail)
	for i := offset; i < len(out.Results) && i < offset+avail; i++ {
		lines = append(lines, renderResultLine(out.Results[i], focused && i == cursor, width))
	}
	return strings.Join(lines, "\n")
}

func renderResultLine(r compare.Classified, atCursor bool, width int) string {
	nameWidth := width - 32
	if nameWidth < 10 {
		nameWidth = 10
	}
	name := truncateRunes(displayResultName(r.SimilarityResult), nameWidth)
	pct := fmt.Sprintf("%7s", score.Format(r.Similarity))
	label := fmt.Sprintf("%-9s", r.Tier.Label())

	if atCursor {
		return CursorRow.Render(fmt.Sprintf("%s %s %-*s %s", pct, label, nameWidth, name, r.Language))
	}
	tier := TierStyle(r.Tier)
	return fmt.Sprintf(" %s %s %s %s", tier.Render(pct), tier.Render(label), name, MutedText.Render(r.Language))
}

func displayResultName(r model.SimilarityResult) string {
	if strings.TrimSpace(r.FileName) == "" {
		return fmt.Sprintf("file #%d", r.FileID)
	}
	return r.FileName
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(left string, width int) string {
	keys := []string{
		StatusBarKey.Render("space") + StatusBarText.Render(":select"),
		StatusBarKey.Render("enter") + StatusBarText.Render(":compare"),
		StatusBarKey.Render("?") + StatusBarText.Render(":help"),
		StatusBarKey.Render("q") + StatusBarText.Render(":quit"),
	}
	keyHints := strings.Join(keys, " ")

	padding := width - lipgloss.Width(left) - lipgloss.Width(keyHints) - 2
	if padding < 0 {
		padding = 0
	}
	return StatusBar.Width(width).Render(left + strings.Repeat(" ", padding) + keyHints)
}

// truncateRunes shortens s to max runes, ending with an ellipsis.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
