package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/abelbrown/codesim/internal/compare"
	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/score"
)

// tierColors match the TUI palette and are indexed by Tier.Weight: red
// for near copies, green for unrelated code.
var tierColors = [...]*color.Color{
	nil,
	color.New(color.FgHiGreen),
	color.New(color.FgGreen),
	color.New(color.FgYellow),
	color.New(color.FgHiRed),
	color.New(color.FgRed, color.Bold),
}

var (
	muted = color.New(color.FgHiBlack).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

func paint(t score.Tier, s string) string {
	if c := tierColors[t.Weight()]; c != nil {
		return c.Sprint(s)
	}
	return s
}

func writeFiles(w io.Writer, files []model.CodeFile) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Language", "Uploaded")
	for _, f := range files {
		uploaded := ""
		if !f.CreatedAt.IsZero() {
			uploaded = f.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		if err := table.Append([]string{strconv.FormatInt(f.ID, 10), f.DisplayName(), f.Language, uploaded}); err != nil {
			return err
		}
	}
	return table.Render()
}

// writeOutcome prints a pairwise score or a ranked result table. f is
// what the run was filtered with; it only matters for ranked results.
func writeOutcome(w io.Writer, out compare.Outcome, f compare.Filters) error {
	fmt.Fprintf(w, "%s %s\n", bold(out.Mode.Description()), muted("run "+out.RunID))

	if out.Mode == compare.Pairwise {
		fmt.Fprintf(w, "Similarity: %s\nLevel:      %s\n",
			paint(out.ScoreTier, score.Format(out.Score)),
			paint(out.ScoreTier, out.ScoreTier.Label()))
		return nil
	}

	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No files matched the filters.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "File ID", "Name", "Language", "Similarity", "Level")
	for i, r := range out.Results {
		name := r.FileName
		if name == "" {
			name = fmt.Sprintf("file #%d", r.FileID)
		}
		err := table.Append([]string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(r.FileID, 10),
			name,
			r.Language,
			paint(r.Tier, score.Format(r.Similarity)),
			paint(r.Tier, r.Tier.Label()),
		})
		if err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w, summarize(out.Results, f.MinSimilarity))
	return nil
}

// summarize counts results per tier, highest first, and flags results
// under the threshold the service was asked to apply.
func summarize(results []compare.Classified, threshold float64) string {
	counts := map[score.Tier]int{}
	below := 0
	for _, r := range results {
		counts[r.Tier]++
		if !score.Passes(r.Similarity, threshold) {
			below++
		}
	}
	s := fmt.Sprintf("%d results", len(results))
	if threshold > 0 {
		s += " at min " + score.Format(threshold)
	}
	if below > 0 {
		s += " · " + color.New(color.FgMagenta).Sprintf("%d below threshold", below)
	}
	for _, t := range []score.Tier{score.VeryHigh, score.High, score.Medium, score.Low, score.VeryLow} {
		if n := counts[t]; n > 0 {
			s += fmt.Sprintf(" · %s %d", paint(t, t.Label()), n)
		}
	}
	return s
}
