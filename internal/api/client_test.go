package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/abelbrown/codesim/internal/compare"
	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/servicetest"
	"github.com/abelbrown/codesim/internal/upload"
)

func newTestClient(url string) *Client {
	c := NewClient(url, Options{Timeout: 2 * time.Second})
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func TestListFiles(t *testing.T) {
	svc := servicetest.New(t)
	for _, name := range []string{"a.go", "b.go", "c.go"} {
		svc.AddFile(name, model.Go)
	}
	c := newTestClient(svc.URL())

	page, err := c.ListFiles(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "c.go", page.Content[0].FileName)
	assert.Equal(t, model.PageInfo{Number: 1, Size: 2, TotalElements: 3, TotalPages: 2}, page.Page)

	calls := svc.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "1", calls[0].Query["page"])
	assert.Equal(t, "2", calls[0].Query["size"])
}

func TestListFilesFlatSpringPage(t *testing.T) {
	svc := servicetest.New(t)
	svc.Respond(servicetest.OpList, http.StatusOK,
		`{"content":[{"id":7,"fileName":"x.py","language":"PYTHON"}],"number":0,"size":10,"totalElements":1,"totalPages":1}`)
	c := newTestClient(svc.URL())

	page, err := c.ListFiles(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, int64(7), page.Content[0].ID)
	assert.Equal(t, 1, page.Page.TotalPages)
}

func TestListFilesMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"no content", `{"page":{"number":0,"size":10,"totalElements":0,"totalPages":0}}`},
		{"no page info", `{"content":[]}`},
		{"inconsistent pages", `{"content":[],"page":{"number":0,"size":10,"totalElements":25,"totalPages":2}}`},
		{"number past end", `{"content":[],"page":{"number":4,"size":10,"totalElements":5,"totalPages":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := servicetest.New(t)
			svc.Respond(servicetest.OpList, http.StatusOK, tt.body)
			c := newTestClient(svc.URL())

			_, err := c.ListFiles(context.Background(), 0, 10)
			var mal *model.MalformedResponseError
			assert.ErrorAs(t, err, &mal)
		})
	}
}

func TestComparePair(t *testing.T) {
	svc := servicetest.New(t)
	a := svc.AddFile("a.java", model.Java)
	b := svc.AddFile("b.java", model.Java)
	svc.SetScore(a.ID, b.ID, 72.5)
	c := newTestClient(svc.URL())

	got, err := c.ComparePair(context.Background(), a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 72.5, got)
	assert.Equal(t, []int64{a.ID, b.ID}, svc.Calls()[0].IDs)
}

func TestComparePairNullScore(t *testing.T) {
	svc := servicetest.New(t)
	svc.Respond(servicetest.OpPair, http.StatusOK, `null`)
	c := newTestClient(svc.URL())

	_, err := c.ComparePair(context.Background(), 1, 2)
	var mal *model.MalformedResponseError
	assert.ErrorAs(t, err, &mal)
}

func TestServiceErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"status":"Not Found","message":"file 9 not found"}`, "file 9 not found"},
		{"error field", `{"error":"boom"}`, "boom"},
		{"plain text", "  internal failure \n", "internal failure"},
		{"json string", `"quota exceeded"`, "quota exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := servicetest.New(t)
			svc.Respond(servicetest.OpPair, http.StatusNotFound, tt.body)
			c := newTestClient(svc.URL())

			_, err := c.ComparePair(context.Background(), 1, 9)
			var te *model.TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, http.StatusNotFound, te.Status)
			assert.Equal(t, tt.want, te.Message)
		})
	}
}

func TestCompareAgainstAllSendsFilters(t *testing.T) {
	svc := servicetest.New(t)
	target := svc.AddFile("t.go", model.Go)
	g := svc.AddFile("g.go", model.Go)
	p := svc.AddFile("p.py", model.Python)
	svc.SetScore(target.ID, g.ID, 55)
	svc.SetScore(target.ID, p.ID, 90)
	c := newTestClient(svc.URL())

	page, err := c.CompareAgainstAll(context.Background(), target.ID, 0, 50,
		compare.Filters{Language: "GO", MinSimilarity: 10})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, g.ID, page.Content[0].FileID)

	call := svc.Calls()[0]
	assert.Equal(t, target.ID, call.FileID)
	assert.Equal(t, "GO", call.Query["languageFilter"])
	assert.Equal(t, "10", call.Query["minSimilarity"])
	assert.Equal(t, "50", call.Query["size"])
}

func TestCompareAgainstAllOmitsEmptyLanguage(t *testing.T) {
	svc := servicetest.New(t)
	target := svc.AddFile("t.go", model.Go)
	c := newTestClient(svc.URL())

	_, err := c.CompareAgainstAll(context.Background(), target.ID, 0, 10, compare.DefaultFilters())
	require.NoError(t, err)

	_, ok := svc.Calls()[0].Query["languageFilter"]
	assert.False(t, ok)
	assert.Equal(t, "1", svc.Calls()[0].Query["minSimilarity"])
}

func TestCompareBatch(t *testing.T) {
	svc := servicetest.New(t)
	target := svc.AddFile("t.rb", model.Ruby)
	x := svc.AddFile("x.rb", model.Ruby)
	y := svc.AddFile("y.rb", model.Ruby)
	svc.SetScore(target.ID, x.ID, 30)
	svc.SetScore(target.ID, y.ID, 5)
	c := newTestClient(svc.URL())

	results, err := c.CompareBatch(context.Background(), target.ID, []int64{x.ID, y.ID},
		compare.Filters{MinSimilarity: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, x.ID, results[0].FileID)
	assert.Equal(t, 30.0, results[0].Similarity)

	call := svc.Calls()[0]
	assert.Equal(t, target.ID, call.FileID)
	assert.Equal(t, []int64{x.ID, y.ID}, call.IDs)
}

func TestCompareBatchNull(t *testing.T) {
	svc := servicetest.New(t)
	svc.Respond(servicetest.OpBatch, http.StatusOK, `null`)
	c := newTestClient(svc.URL())

	_, err := c.CompareBatch(context.Background(), 1, []int64{2, 3}, compare.DefaultFilters())
	var mal *model.MalformedResponseError
	assert.ErrorAs(t, err, &mal)
}

func TestTimeoutIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, Options{Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := c.ComparePair(context.Background(), 1, 2)

	var te *model.TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.Status)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCancelledContext(t *testing.T) {
	svc := servicetest.New(t)
	c := newTestClient(svc.URL())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListFiles(ctx, 0, 10)
	var te *model.TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRateLimiterPacesRequests(t *testing.T) {
	svc := servicetest.New(t)
	a := svc.AddFile("a.go", model.Go)
	b := svc.AddFile("b.go", model.Go)
	c := newTestClient(svc.URL())
	c.limiter = rate.NewLimiter(rate.Every(50*time.Millisecond), 1)

	start := time.Now()
	for range 3 {
		_, err := c.ComparePair(context.Background(), a.ID, b.ID)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestUploadFiles(t *testing.T) {
	svc := servicetest.New(t)
	c := newTestClient(svc.URL())

	msg, err := c.UploadFiles(context.Background(), model.Python, []upload.File{
		{Name: "one.py", Data: []byte("print(1)")},
		{Name: "two.py", Data: []byte("print(2)")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Successfully uploaded 2 files", msg)

	files := svc.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "one.py", files[0].FileName)
	assert.Equal(t, "PYTHON", files[0].Language)
	assert.Equal(t, "print(2)", files[1].Content)
}

func TestUploadRejected(t *testing.T) {
	svc := servicetest.New(t)
	svc.Respond(servicetest.OpUpload, http.StatusBadRequest, `{"message":"Invalid file type"}`)
	c := newTestClient(svc.URL())

	_, err := c.UploadFiles(context.Background(), model.Go, []upload.File{{Name: "a.go", Data: []byte("x")}})
	var te *model.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Invalid file type", te.Message)
	assert.Empty(t, svc.Files())
}
