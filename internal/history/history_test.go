package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/codesim/internal/compare"
	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/score"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func outcome(id string, mode compare.Mode, minutes int) compare.Outcome {
	return compare.Outcome{
		RunID:    id,
		Mode:     mode,
		Started:  base.Add(time.Duration(minutes) * time.Minute),
		Finished: base.Add(time.Duration(minutes)*time.Minute + 300*time.Millisecond),
	}
}

func TestRecordPairwise(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	out := outcome("run-1", compare.Pairwise, 0)
	out.Score = 64.5
	out.ScoreTier = score.High
	require.NoError(t, s.Record(ctx, compare.PairwiseRequest{A: 3, B: 8}, out, nil))

	run, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, compare.Pairwise, run.Mode)
	assert.Equal(t, int64(3), run.TargetID)
	assert.Equal(t, []int64{8}, run.OtherIDs)
	require.NotNil(t, run.Score)
	assert.Equal(t, 64.5, *run.Score)
	assert.True(t, run.StartedAt.Equal(out.Started))
	assert.False(t, run.Failed())

	restored := run.Outcome()
	assert.Equal(t, 64.5, restored.Score)
	assert.Equal(t, score.High, restored.ScoreTier)
}

func TestRecordBatchResults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	out := outcome("run-2", compare.Batch, 1)
	out.Results = []compare.Classified{
		{SimilarityResult: model.SimilarityResult{FileID: 4, FileName: "x.go", Language: "GO", Similarity: 91}, Tier: score.VeryHigh},
		{SimilarityResult: model.SimilarityResult{FileID: 5, FileName: "y.go", Language: "GO", Similarity: 12}, Tier: score.VeryLow},
	}
	req := compare.BatchRequest{TargetID: 1, OtherIDs: []int64{4, 5}, Filters: compare.Filters{Language: "GO", MinSimilarity: 10}}
	require.NoError(t, s.Record(ctx, req, out, nil))

	run, err := s.Get(ctx, "run-2")
	require.NoError(t, err)
	assert.Nil(t, run.Score)
	assert.Equal(t, []int64{4, 5}, run.OtherIDs)
	assert.Equal(t, compare.Filters{Language: "GO", MinSimilarity: 10}, run.Filters)
	assert.Equal(t, out.Results, run.Results)
}

func TestRecordFailure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	runErr := &model.TransportError{Op: "compare against-all", Status: 502, Message: "bad gateway"}
	req := compare.AgainstAllRequest{FileID: 9, Filters: compare.DefaultFilters()}
	require.NoError(t, s.Record(ctx, req, outcome("run-3", compare.AgainstAll, 2), runErr))

	run, err := s.Get(ctx, "run-3")
	require.NoError(t, err)
	assert.True(t, run.Failed())
	assert.Contains(t, run.Err, "bad gateway")
	assert.Empty(t, run.OtherIDs)
	assert.Empty(t, run.Results)
}

func TestRecentNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Record(ctx, compare.PairwiseRequest{A: 1, B: 2}, outcome(id, compare.Pairwise, i), nil))
	}

	runs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestLastSuccessSkipsFailures(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.LastSuccess(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Record(ctx, compare.PairwiseRequest{A: 1, B: 2}, outcome("ok", compare.Pairwise, 0), nil))
	require.NoError(t, s.Record(ctx, compare.PairwiseRequest{A: 1, B: 2}, outcome("bad", compare.Pairwise, 1), errors.New("timeout")))

	run, err := s.LastSuccess(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", run.ID)
}

func TestGetUnknown(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Record(ctx, compare.PairwiseRequest{A: 1, B: 2}, outcome("m", compare.Pairwise, 0), nil))
	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunnerRecordsThroughStore(t *testing.T) {
	s := openTestStore(t)
	svc := pairService{score: 33}
	r := compare.NewRunner(svc, compare.RunnerConfig{Recorder: s})

	out, err := r.Run(context.Background(), compare.PairwiseRequest{A: 1, B: 2})
	require.NoError(t, err)

	run, err := s.Get(context.Background(), out.RunID)
	require.NoError(t, err)
	require.NotNil(t, run.Score)
	assert.Equal(t, 33.0, *run.Score)
}

type pairService struct{ score float64 }

func (p pairService) ComparePair(context.Context, int64, int64) (float64, error) { return p.score, nil }

func (pairService) CompareAgainstAll(context.Context, int64, int, int, compare.Filters) (model.Page[model.SimilarityResult], error) {
	return model.Page[model.SimilarityResult]{}, errors.New("unused")
}

func (pairService) CompareBatch(context.Context, int64, []int64, compare.Filters) ([]model.SimilarityResult, error) {
	return nil, errors.New("unused")
}
