package compare

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/otel"
	"github.com/abelbrown/codesim/internal/paging"
	"github.com/abelbrown/codesim/internal/score"
)

const (
	// DefaultPageSize is the against-all page size when none is configured.
	DefaultPageSize = 200
	// DefaultMaxPages bounds against-all pagination.
	DefaultMaxPages = 500
)

// Service is the remote analysis service as seen by the runner.
// internal/api.Client implements it.
type Service interface {
	ComparePair(ctx context.Context, a, b int64) (float64, error)
	CompareAgainstAll(ctx context.Context, fileID int64, page, size int, f Filters) (model.Page[model.SimilarityResult], error)
	CompareBatch(ctx context.Context, targetID int64, otherIDs []int64, f Filters) ([]model.SimilarityResult, error)
}

// Recorder persists finished runs. runErr is nil on success.
type Recorder interface {
	Record(ctx context.Context, req Request, out Outcome, runErr error) error
}

// Classified is a service result paired with its tier.
type Classified struct {
	model.SimilarityResult
	Tier score.Tier
}

// Outcome is what a run hands back for presentation.
// Score and ScoreTier are set for pairwise runs; Results for the others.
type Outcome struct {
	RunID     string
	Mode      Mode
	Score     float64
	ScoreTier score.Tier
	Results   []Classified
	Pages     int // service calls made
	Started   time.Time
	Finished  time.Time
}

// Duration is how long the run took.
func (o Outcome) Duration() time.Duration {
	return o.Finished.Sub(o.Started)
}

// RunnerConfig tunes the runner. Zero values pick defaults.
type RunnerConfig struct {
	PageSize int          // against-all page size
	MaxPages int          // against-all page cap
	Logger   *otel.Logger // optional
	Recorder Recorder     // optional
}

// Runner executes comparison requests. It holds no per-run state, so one
// Runner can serve the TUI and CLI alike; the in-flight guard lives in
// Selector.
type Runner struct {
	svc      Service
	pageSize int
	maxPages int
	log      *otel.Logger
	rec      Recorder
	now      func() time.Time
}

// NewRunner creates a Runner over svc.
func NewRunner(svc Service, cfg RunnerConfig) *Runner {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	return &Runner{
		svc:      svc,
		pageSize: cfg.PageSize,
		maxPages: cfg.MaxPages,
		log:      cfg.Logger,
		rec:      cfg.Recorder,
		now:      time.Now,
	}
}

// Run sends req and classifies the response. Errors are one of
// *model.TransportError or *model.MalformedResponseError (wrapped) and are
// never retried here.
func (r *Runner) Run(ctx context.Context, req Request) (Outcome, error) {
	out := Outcome{RunID: uuid.NewString(), Mode: req.Mode(), Started: r.now()}
	r.log.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCompareStart, Comp: "compare",
		RunID: out.RunID, Mode: out.Mode.String()})

	var err error
	switch req := req.(type) {
	case PairwiseRequest:
		err = r.runPairwise(ctx, req, &out)
	case AgainstAllRequest:
		err = r.runAgainstAll(ctx, req, &out)
	case BatchRequest:
		err = r.runBatch(ctx, req, &out)
	default:
		err = fmt.Errorf("compare: unsupported request %T", req)
	}
	out.Finished = r.now()

	if err != nil {
		r.log.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindCompareError, Comp: "compare",
			RunID: out.RunID, Mode: out.Mode.String(), Dur: out.Duration(), Err: err.Error()})
		r.record(ctx, req, out, err)
		return Outcome{RunID: out.RunID, Mode: out.Mode, Started: out.Started, Finished: out.Finished}, err
	}

	r.log.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCompareComplete, Comp: "compare",
		RunID: out.RunID, Mode: out.Mode.String(), Dur: out.Duration(), Count: len(out.Results)})
	r.record(ctx, req, out, nil)
	return out, nil
}

func (r *Runner) record(ctx context.Context, req Request, out Outcome, runErr error) {
	if r.rec == nil {
		return
	}
	if err := r.rec.Record(context.WithoutCancel(ctx), req, out, runErr); err != nil {
		r.log.Error(otel.KindStoreError, "compare", err)
	}
}

func (r *Runner) runPairwise(ctx context.Context, req PairwiseRequest, out *Outcome) error {
	s, err := r.svc.ComparePair(ctx, req.A, req.B)
	out.Pages = 1
	if err != nil {
		return fmt.Errorf("compare pairwise %d/%d: %w", req.A, req.B, err)
	}
	tier, err := score.Classify(s)
	if err != nil {
		return fmt.Errorf("compare pairwise %d/%d: %w", req.A, req.B, err)
	}
	out.Score = s
	out.ScoreTier = tier
	return nil
}

// runAgainstAll walks every page of the service's result set and merges
// them, keeping the first occurrence of a file.
func (r *Runner) runAgainstAll(ctx context.Context, req AgainstAllRequest, out *Outcome) error {
	var merged []model.SimilarityResult
	seen := make(map[int64]bool)
	next := 0

	for {
		if out.Pages >= r.maxPages {
			return &model.MalformedResponseError{
				Op:     "compare against-all",
				Reason: fmt.Sprintf("result set did not end within %d pages", r.maxPages),
			}
		}
		page, err := r.svc.CompareAgainstAll(ctx, req.FileID, next, r.pageSize, req.Filters)
		out.Pages++
		if err != nil {
			return fmt.Errorf("compare against-all %d page %d: %w", req.FileID, next, err)
		}
		if err := page.Page.Validate(); err != nil {
			return &model.MalformedResponseError{Op: "compare against-all", Reason: "invalid page info", Err: err}
		}
		if page.Page.Number != next {
			return &model.MalformedResponseError{
				Op:     "compare against-all",
				Reason: fmt.Sprintf("asked for page %d, got page %d", next, page.Page.Number),
			}
		}
		r.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindComparePage, Comp: "compare",
			RunID: out.RunID, Page: next, Count: len(page.Content)})

		for _, res := range page.Content {
			if seen[res.FileID] {
				continue
			}
			seen[res.FileID] = true
			merged = append(merged, res)
		}

		if !paging.HasNext(page.Page) {
			break
		}
		next = paging.RequestPage(page.Page, 1)
	}

	results, err := classifyAll(merged)
	if err != nil {
		return fmt.Errorf("compare against-all %d: %w", req.FileID, err)
	}
	out.Results = results
	return nil
}

func (r *Runner) runBatch(ctx context.Context, req BatchRequest, out *Outcome) error {
	res, err := r.svc.CompareBatch(ctx, req.TargetID, req.OtherIDs, req.Filters)
	out.Pages = 1
	if err != nil {
		return fmt.Errorf("compare batch %d: %w", req.TargetID, err)
	}
	results, err := classifyAll(res)
	if err != nil {
		return fmt.Errorf("compare batch %d: %w", req.TargetID, err)
	}
	out.Results = results
	return nil
}

// classifyAll tiers every result and sorts by similarity, highest first.
func classifyAll(in []model.SimilarityResult) ([]Classified, error) {
	out := make([]Classified, 0, len(in))
	for _, res := range in {
		tier, err := score.Classify(res.Similarity)
		if err != nil {
			return nil, fmt.Errorf("file %d: %w", res.FileID, err)
		}
		out = append(out, Classified{SimilarityResult: res, Tier: tier})
	}
	SortResults(out)
	return out, nil
}

// SortResults orders by similarity descending, then file name, then ID.
func SortResults(results []Classified) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.FileName != b.FileName {
			return a.FileName < b.FileName
		}
		return a.FileID < b.FileID
	})
}
