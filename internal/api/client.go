// Package api is the HTTP client for the code analysis service.
//
// Every call is paced by a rate limiter and bounded by the client timeout.
// Failures come back as *model.TransportError (network, timeout, non-2xx)
// or *model.MalformedResponseError (body does not match the contract).
// Nothing is retried here; retry policy belongs to the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/abelbrown/codesim/internal/compare"
	"github.com/abelbrown/codesim/internal/model"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 32 << 20

// Options configures a Client. Zero values pick defaults.
type Options struct {
	Timeout time.Duration // per request, default 30s
	Rate    float64       // requests per second, default 10
	Burst   int           // default 5
}

// Client talks to <baseURL>/api/code-files.
type Client struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

var _ compare.Service = (*Client)(nil)

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Rate <= 0 {
		opts.Rate = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/code-files",
		client:   &http.Client{Timeout: opts.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(opts.Rate), opts.Burst),
	}
}

// ListFiles returns one page of the file library.
func (c *Client) ListFiles(ctx context.Context, page, size int) (model.Page[model.CodeFile], error) {
	const op = "list files"
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var env pageEnvelope[model.CodeFile]
	if err := c.get(ctx, op, "/files", q, &env); err != nil {
		return model.Page[model.CodeFile]{}, err
	}
	return env.toPage(op)
}

// ComparePair returns the similarity of two files in [0, 100].
func (c *Client) ComparePair(ctx context.Context, a, b int64) (float64, error) {
	const op = "compare pairwise"
	q := url.Values{}
	q.Set("fileId1", strconv.FormatInt(a, 10))
	q.Set("fileId2", strconv.FormatInt(b, 10))

	var score *float64
	if err := c.get(ctx, op, "/compare", q, &score); err != nil {
		return 0, err
	}
	if score == nil {
		return 0, &model.MalformedResponseError{Op: op, Reason: "empty score"}
	}
	return *score, nil
}

// CompareAgainstAll returns one page of results for fileID against the
// whole corpus.
func (c *Client) CompareAgainstAll(ctx context.Context, fileID int64, page, size int, f compare.Filters) (model.Page[model.SimilarityResult], error) {
	const op = "compare against-all"
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	if f.Language != "" {
		q.Set("languageFilter", f.Language)
	}
	if f.MinSimilarity > 0 {
		q.Set("minSimilarity", strconv.FormatFloat(f.MinSimilarity, 'f', -1, 64))
	}

	var env pageEnvelope[model.SimilarityResult]
	if err := c.get(ctx, op, "/compare-all/"+strconv.FormatInt(fileID, 10), q, &env); err != nil {
		return model.Page[model.SimilarityResult]{}, err
	}
	return env.toPage(op)
}

// batchRequest is the JSON body of a batch comparison.
type batchRequest struct {
	TargetFileID   int64   `json:"targetFileId"`
	FileIDs        []int64 `json:"fileIds"`
	LanguageFilter string  `json:"languageFilter,omitempty"`
	MinSimilarity  float64 `json:"minSimilarity,omitempty"`
}

// CompareBatch compares targetID with each of otherIDs.
func (c *Client) CompareBatch(ctx context.Context, targetID int64, otherIDs []int64, f compare.Filters) ([]model.SimilarityResult, error) {
	const op = "compare batch"
	body, err := json.Marshal(batchRequest{
		TargetFileID:   targetID,
		FileIDs:        otherIDs,
		LanguageFilter: f.Language,
		MinSimilarity:  f.MinSimilarity,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/compare-batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var results *[]model.SimilarityResult
	if err := c.do(op, req, &results); err != nil {
		return nil, err
	}
	if results == nil {
		return nil, &model.MalformedResponseError{Op: op, Reason: "null result list"}
	}
	return *results, nil
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) error {
	u := c.endpoint + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(op, req, out)
}

// do sends req and decodes a 2xx JSON body into out. out may be nil to
// skip decoding.
func (c *Client) do(op string, req *http.Request, out any) error {
	body, err := c.send(op, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &model.MalformedResponseError{Op: op, Reason: "decode body", Err: err}
	}
	return nil
}

// send performs the round trip and returns the body of a 2xx response.
func (c *Client) send(op string, req *http.Request) ([]byte, error) {
	ctx := req.Context()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &model.TransportError{Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &model.TransportError{Op: op, Err: ctx.Err()}
		}
		return nil, &model.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &model.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &model.TransportError{Op: op, Status: resp.StatusCode, Message: serviceMessage(body)}
	}
	return body, nil
}

// serviceMessage pulls a human readable message out of an error body.
// JSON bodies are searched for the usual fields; anything else is
// returned as trimmed text.
func serviceMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		if root := gjson.ParseBytes(body); root.Type == gjson.String {
			return root.String()
		}
		for _, key := range []string{"message", "error", "detail"} {
			if v := gjson.GetBytes(body, key); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if r := []rune(msg); len(r) > 300 {
		msg = string(r[:297]) + "..."
	}
	return msg
}
