package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/codesim/internal/compare"
	"github.com/abelbrown/codesim/internal/config"
	"github.com/abelbrown/codesim/internal/logging"
	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/score"
	"github.com/abelbrown/codesim/internal/servicetest"
	"github.com/abelbrown/codesim/internal/upload"
)

// run executes codesim with args against a private home directory.
func run(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTerminalCommandsKeepLoggerOffStderr(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Cleanup(func() { logging.Logger = nil })

	c := &cli{v: config.New()}
	var errOut bytes.Buffer

	assert.Equal(t, "true", newRootCmd().Annotations[ownsTerminal])

	logging.Logger = nil
	tui := c.tuiCmd()
	tui.SetErr(&errOut)
	require.NoError(t, c.load(tui))
	assert.Nil(t, logging.Logger, "tui must not build a logger on the terminal")

	list := c.listCmd()
	list.SetErr(&errOut)
	require.NoError(t, c.load(list))
	require.NotNil(t, logging.Logger)
	logging.Warn("history disabled")
	assert.Contains(t, errOut.String(), "history disabled")
}

func setup(t *testing.T) (*servicetest.Service, string, []string) {
	t.Helper()
	svc := servicetest.New(t)
	home := t.TempDir()
	return svc, home, []string{"--url", svc.URL(), "--data-dir", filepath.Join(home, "data")}
}

func TestListShowsLibraryPage(t *testing.T) {
	svc, home, base := setup(t)
	svc.AddFile("alpha.go", model.Go)
	svc.AddFile("beta.py", model.Python)

	out, err := run(t, home, append(base, "list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "alpha.go")
	assert.Contains(t, out, "beta.py")
	assert.Contains(t, out, "Page 1 of 1 · 2 files")
}

func TestListEmptyLibrary(t *testing.T) {
	_, home, base := setup(t)
	out, err := run(t, home, append(base, "list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "No files uploaded yet.")
}

func TestListPagePastEndIsUsageError(t *testing.T) {
	svc, home, base := setup(t)
	svc.AddFile("only.go", model.Go)

	_, err := run(t, home, append(base, "list", "--page", "3")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "past the last page (1)")
	var mre *model.MalformedResponseError
	assert.False(t, errors.As(err, &mre), "caller mistake reported as malformed response: %v", err)
	assert.Equal(t, 1, svc.CallCount(servicetest.OpList), "only the first page is fetched")
}

func TestListSortsPage(t *testing.T) {
	svc, home, base := setup(t)
	svc.AddFile("beta.py", model.Python)
	svc.AddFile("alpha.go", model.Go)

	out, err := run(t, home, append(base, "list", "--sort", "name")...)
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "alpha.go"), strings.Index(out, "beta.py"))

	out, err = run(t, home, append(base, "list", "--sort", "language", "--desc")...)
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "beta.py"), strings.Index(out, "alpha.go"))

	_, err = run(t, home, append(base, "list", "--sort", "size")...)
	require.Error(t, err)
}

func TestComparePairRecordsHistory(t *testing.T) {
	svc, home, base := setup(t)
	a := svc.AddFile("a.go", model.Go)
	b := svc.AddFile("b.go", model.Go)
	svc.SetScore(a.ID, b.ID, 81.5)

	out, err := run(t, home, append(base, "compare", "pair", "1", "2")...)
	require.NoError(t, err)
	assert.Contains(t, out, "81.50%")
	assert.Contains(t, out, "Very High")

	out, err = run(t, home, append(base, "history")...)
	require.NoError(t, err)
	assert.Contains(t, out, "pairwise")
	assert.Contains(t, out, "81.50%")
}

func TestCompareRejectedBeforeAnyRequest(t *testing.T) {
	svc, home, base := setup(t)
	svc.AddFile("a.go", model.Go)

	_, err := run(t, home, append(base, "compare", "pair", "1", "1")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "given twice")

	_, err = run(t, home, append(base, "compare", "all", "1", "--min", "150")...)
	var pre *model.PreconditionError
	require.True(t, errors.As(err, &pre), "got %v", err)

	_, err = run(t, home, append(base, "compare", "all", "1", "--min", "0")...)
	require.True(t, errors.As(err, &pre), "explicit zero threshold: got %v", err)

	_, err = run(t, home, append(base, "compare", "pair", "x", "2")...)
	require.Error(t, err)

	assert.Empty(t, svc.Calls())
}

func TestCompareAllJSON(t *testing.T) {
	svc, home, base := setup(t)
	svc.AddFile("target.go", model.Go)
	svc.AddFile("near.go", model.Go)
	svc.AddFile("far.go", model.Go)
	svc.AddFile("other.py", model.Python)
	svc.SetScore(1, 2, 91)
	svc.SetScore(1, 3, 12)
	svc.SetScore(1, 4, 55)

	out, err := run(t, home, append(base, "compare", "all", "1", "--json", "--language", "go", "--min", "10")...)
	require.NoError(t, err)

	var got runJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "against-all", got.Mode)
	require.Len(t, got.Results, 2)
	assert.Equal(t, int64(2), got.Results[0].FileID)
	assert.Equal(t, "Very High", got.Results[0].Level)
	assert.Equal(t, int64(3), got.Results[1].FileID)

	calls := svc.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "GO", calls[0].Query["languageFilter"])
}

func TestCompareBatchTable(t *testing.T) {
	svc, home, base := setup(t)
	for _, name := range []string{"t.go", "a.go", "b.go"} {
		svc.AddFile(name, model.Go)
	}
	svc.SetScore(1, 2, 45)
	svc.SetScore(1, 3, 70)

	out, err := run(t, home, append(base, "compare", "batch", "1", "2", "3")...)
	require.NoError(t, err)
	assert.Contains(t, out, "70.00%")
	assert.Contains(t, out, "45.00%")
	assert.Contains(t, out, "2 results")
	assert.Less(t, strings.Index(out, "70.00%"), strings.Index(out, "45.00%"))
}

func TestCompareServiceError(t *testing.T) {
	svc, home, base := setup(t)
	svc.AddFile("a.go", model.Go)
	svc.AddFile("b.go", model.Go)
	svc.Respond(servicetest.OpPair, 500, `{"message":"analysis backend down"}`)

	_, err := run(t, home, append(base, "compare", "pair", "1", "2")...)
	var te *model.TransportError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, 500, te.Status)
	assert.Equal(t, "analysis backend down", te.Message)
}

func TestUploadCommand(t *testing.T) {
	svc, home, base := setup(t)
	dir := t.TempDir()
	for _, name := range []string{"a.rb", "b.rb"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("puts 1\n"), 0o644))
	}

	out, err := run(t, home, append(base, "upload", filepath.Join(dir, "a.rb"), filepath.Join(dir, "b.rb"))...)
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully uploaded 2 files")
	assert.Len(t, svc.Files(), 2)
}

func TestUploadRejectsWrongExtension(t *testing.T) {
	svc, home, base := setup(t)
	path := filepath.Join(t.TempDir(), "a.py")
	require.NoError(t, os.WriteFile(path, []byte("print(1)\n"), 0o644))

	_, err := run(t, home, append(base, "upload", "--language", "JAVA", path)...)
	var inv *upload.InvalidFileError
	require.True(t, errors.As(err, &inv), "got %v", err)
	assert.Zero(t, svc.CallCount(servicetest.OpUpload))
}

func TestUploadLanguage(t *testing.T) {
	lang, err := uploadLanguage("", "x/main.ts")
	require.NoError(t, err)
	assert.Equal(t, model.TypeScript, lang)

	lang, err = uploadLanguage("cpp", "a.cc")
	require.NoError(t, err)
	assert.Equal(t, model.Cpp, lang)

	_, err = uploadLanguage("", "README")
	assert.Error(t, err)
	_, err = uploadLanguage("COBOL", "a.cbl")
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	svc, home, base := setup(t)
	path := filepath.Join(home, "conf", "codesim.yaml")

	out, err := run(t, home, append(base, "config", "init", path)...)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	_, err = run(t, home, append(base, "config", "init", path)...)
	assert.Error(t, err, "second init should refuse to overwrite")

	out, err = run(t, home, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "config file: "+path)
	assert.Contains(t, out, svc.URL())
}

func TestEventsShowsCompareRun(t *testing.T) {
	svc, home, base := setup(t)
	svc.AddFile("a.go", model.Go)
	svc.AddFile("b.go", model.Go)
	svc.SetScore(1, 2, 30)

	_, err := run(t, home, append(base, "compare", "pair", "1", "2")...)
	require.NoError(t, err)

	out, err := run(t, home, append(base, "events", "--kind", "compare")...)
	require.NoError(t, err)
	assert.Contains(t, out, "compare.start")
	assert.Contains(t, out, "compare.complete")
	assert.NotContains(t, out, "sys.startup")
}

func TestSummarizeFlagsResultsBelowThreshold(t *testing.T) {
	results := []compare.Classified{
		{SimilarityResult: model.SimilarityResult{FileID: 2, Similarity: 72}, Tier: score.High},
		{SimilarityResult: model.SimilarityResult{FileID: 3, Similarity: 35}, Tier: score.Low},
	}

	s := summarize(results, 40)
	assert.Contains(t, s, "2 results at min 40.00%")
	assert.Contains(t, s, "1 below threshold")
	assert.Contains(t, s, "High 1")

	assert.NotContains(t, summarize(results, 10), "below threshold")
}

func TestReadTailLines(t *testing.T) {
	log := strings.Join([]string{
		`{"t":"2024-01-01T00:00:00Z","level":"info","kind":"page.loaded","comp":"library"}`,
		`not json`,
		`{"t":"2024-01-01T00:00:01Z","level":"error","kind":"compare.error","comp":"compare","err":"boom"}`,
		`{"t":"2024-01-01T00:00:02Z","level":"info","kind":"compare.start","comp":"compare"}`,
		`{"t":"2024-01-01T00:00:03Z","level":"info","kind":"compare.complete","comp":"compare","count":3}`,
	}, "\n")

	got := readTailLines(strings.NewReader(log), 2, eventFilter{kind: "compare"}.match)
	require.Len(t, got, 2)
	assert.Equal(t, "compare.start", got[0].ev.Kind)
	assert.Equal(t, "compare.complete", got[1].ev.Kind)

	got = readTailLines(strings.NewReader(log), 10, eventFilter{level: "warn"}.match)
	require.Len(t, got, 1)
	assert.Contains(t, formatEvent(got[0].ev), "err=boom")
}
