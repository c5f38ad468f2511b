package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abelbrown/codesim/internal/compare"
	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/selection"
)

func (c *cli) compareCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run a similarity comparison",
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print the outcome as JSON")

	run := func(mode compare.Mode) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			sel, err := selectIDs(args)
			if err != nil {
				return err
			}
			filters := c.filters(cmd)
			req, err := compare.Build(mode, sel, filters)
			if err != nil {
				return err
			}

			e, err := c.open()
			if err != nil {
				return err
			}
			defer e.Close()

			out, err := e.runner.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(outcomeJSON(out))
			}
			return writeOutcome(cmd.OutOrStdout(), out, filters.Normalize())
		}
	}

	pair := &cobra.Command{
		Use:   "pair ID1 ID2",
		Short: compare.Pairwise.Description(),
		Args:  cobra.ExactArgs(2),
		RunE:  run(compare.Pairwise),
	}

	all := &cobra.Command{
		Use:     "all ID",
		Aliases: []string{"against-all"},
		Short:   compare.AgainstAll.Description(),
		Args:    cobra.ExactArgs(1),
		RunE:    run(compare.AgainstAll),
	}
	addFilterFlags(all)

	batch := &cobra.Command{
		Use:   "batch TARGET ID...",
		Short: compare.Batch.Description(),
		Args:  cobra.MinimumNArgs(2),
		RunE:  run(compare.Batch),
	}
	addFilterFlags(batch)

	cmd.AddCommand(pair, all, batch)
	return cmd
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("language", "l", "", "only compare against files in this language")
	cmd.Flags().Float64("min", 0, "minimum similarity percentage, 1-100 (default compare.min_similarity)")
}

// selectIDs builds a selection in argument order; the first id is the
// target.
func selectIDs(args []string) (selection.Set, error) {
	sel := selection.New()
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return sel, fmt.Errorf("invalid file id %q", a)
		}
		if sel.ContainsID(id) {
			return sel, fmt.Errorf("file id %d given twice", id)
		}
		sel = sel.Toggle(model.CodeFile{ID: id})
	}
	return sel, nil
}

type resultJSON struct {
	FileID     int64   `json:"fileId"`
	FileName   string  `json:"fileName"`
	Language   string  `json:"language"`
	Similarity float64 `json:"similarity"`
	Level      string  `json:"level"`
}

type runJSON struct {
	RunID   string       `json:"runId"`
	Mode    string       `json:"mode"`
	Score   *float64     `json:"score,omitempty"`
	Level   string       `json:"level,omitempty"`
	Results []resultJSON `json:"results,omitempty"`
}

func outcomeJSON(out compare.Outcome) runJSON {
	r := runJSON{RunID: out.RunID, Mode: out.Mode.String()}
	if out.Mode == compare.Pairwise {
		s := out.Score
		r.Score = &s
		r.Level = out.ScoreTier.Label()
		return r
	}
	r.Results = make([]resultJSON, len(out.Results))
	for i, res := range out.Results {
		r.Results[i] = resultJSON{
			FileID:     res.FileID,
			FileName:   res.FileName,
			Language:   res.Language,
			Similarity: res.Similarity,
			Level:      res.Tier.Label(),
		}
	}
	return r
}
