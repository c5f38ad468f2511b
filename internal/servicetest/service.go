// Package servicetest runs an in-process fake of the code analysis
// service for tests. Scores are canned; every request is recorded so
// tests can assert which calls were (or were not) made.
package servicetest

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/abelbrown/codesim/internal/model"
)

// Ops recorded by the fake.
const (
	OpList       = "list"
	OpUpload     = "upload"
	OpPair       = "pair"
	OpAgainstAll = "against-all"
	OpBatch      = "batch"
)

// Call is one recorded request.
type Call struct {
	Op     string
	Path   string
	Query  map[string]string
	FileID int64 // against-all target or batch target
	IDs    []int64
}

// canned is a response that replaces the next real one for an op.
type canned struct {
	status int
	body   string
}

// Service is the fake. Create with New.
type Service struct {
	mu     sync.Mutex
	files  []model.CodeFile
	nextID int64
	scores map[[2]int64]float64
	calls  []Call
	queued map[string][]canned
	delay  time.Duration

	srv *httptest.Server
}

// New starts a fake service that is shut down when t finishes.
func New(t testing.TB) *Service {
	t.Helper()
	s := &Service{
		nextID: 1,
		scores: make(map[[2]int64]float64),
		queued: make(map[string][]canned),
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the base URL to hand to api.NewClient.
func (s *Service) URL() string { return s.srv.URL }

func (s *Service) routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/code-files", func(r chi.Router) {
		r.Get("/files", s.listFiles)
		r.Post("/upload/batch", s.uploadBatch)
		r.Get("/compare", s.comparePair)
		r.Get("/compare-all/{id}", s.compareAll)
		r.Post("/compare-batch", s.compareBatch)
	})
	return r
}

// AddFile registers a file and returns it with its assigned id.
func (s *Service) AddFile(name string, lang model.Language) model.CodeFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(name, string(lang), "")
}

func (s *Service) addLocked(name, lang, content string) model.CodeFile {
	f := model.CodeFile{
		ID:        s.nextID,
		FileName:  name,
		Language:  lang,
		Content:   content,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, int(s.nextID), 0, time.UTC),
	}
	s.nextID++
	s.files = append(s.files, f)
	return f
}

// Files returns every registered file in id order.
func (s *Service) Files() []model.CodeFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CodeFile, len(s.files))
	copy(out, s.files)
	return out
}

// SetScore fixes the similarity between a and b in both directions.
// Unset pairs score 0.
func (s *Service) SetScore(a, b int64, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[[2]int64{a, b}] = score
	s.scores[[2]int64{b, a}] = score
}

// Respond makes the next request for op return status and body verbatim.
// Queued responses are consumed in order.
func (s *Service) Respond(op string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued[op] = append(s.queued[op], canned{status: status, body: body})
}

// SetDelay makes every handler sleep before answering.
func (s *Service) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Calls returns every recorded request.
func (s *Service) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount counts recorded requests for op. An empty op counts all.
func (s *Service) CallCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op == "" {
		return len(s.calls)
	}
	n := 0
	for _, c := range s.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// begin records the call and reports whether a canned response was sent.
func (s *Service) begin(w http.ResponseWriter, r *http.Request, c Call) bool {
	c.Path = r.URL.Path
	c.Query = make(map[string]string)
	for k := range r.URL.Query() {
		c.Query[k] = r.URL.Query().Get(k)
	}

	s.mu.Lock()
	s.calls = append(s.calls, c)
	delay := s.delay
	var next *canned
	if q := s.queued[c.Op]; len(q) > 0 {
		next = &q[0]
		s.queued[c.Op] = q[1:]
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return true
		}
	}
	if next == nil {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(next.status)
	_, _ = w.Write([]byte(next.body))
	return true
}

func (s *Service) listFiles(w http.ResponseWriter, r *http.Request) {
	if s.begin(w, r, Call{Op: OpList}) {
		return
	}
	page, size, err := pageParams(r, 10)
	if err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}

	s.mu.Lock()
	files := make([]model.CodeFile, len(s.files))
	copy(files, s.files)
	s.mu.Unlock()

	render.JSON(w, r, paginate(files, page, size))
}

func (s *Service) uploadBatch(w http.ResponseWriter, r *http.Request) {
	if s.begin(w, r, Call{Op: OpUpload}) {
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}
	lang, ok := model.ParseLanguage(r.FormValue("language"))
	if !ok {
		_ = render.Render(w, r, errBadRequest(fmt.Errorf("unsupported language %q", r.FormValue("language"))))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		_ = render.Render(w, r, errBadRequest(fmt.Errorf("no files")))
		return
	}

	contents := make([]string, len(headers))
	for i, h := range headers {
		body, err := readPart(h)
		if err != nil {
			_ = render.Render(w, r, errBadRequest(err))
			return
		}
		contents[i] = body
	}

	s.mu.Lock()
	for i, h := range headers {
		s.addLocked(h.Filename, string(lang), contents[i])
	}
	s.mu.Unlock()

	render.PlainText(w, r, fmt.Sprintf("Successfully uploaded %d files", len(headers)))
}

func readPart(h *multipart.FileHeader) (string, error) {
	f, err := h.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Service) comparePair(w http.ResponseWriter, r *http.Request) {
	a, errA := strconv.ParseInt(r.URL.Query().Get("fileId1"), 10, 64)
	b, errB := strconv.ParseInt(r.URL.Query().Get("fileId2"), 10, 64)
	if s.begin(w, r, Call{Op: OpPair, IDs: []int64{a, b}}) {
		return
	}
	if errA != nil || errB != nil {
		_ = render.Render(w, r, errBadRequest(fmt.Errorf("fileId1 and fileId2 are required")))
		return
	}

	s.mu.Lock()
	_, okA := s.findLocked(a)
	_, okB := s.findLocked(b)
	score := s.scores[[2]int64{a, b}]
	s.mu.Unlock()

	if !okA || !okB {
		_ = render.Render(w, r, errNotFound("file not found"))
		return
	}
	render.JSON(w, r, score)
}

func (s *Service) compareAll(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if s.begin(w, r, Call{Op: OpAgainstAll, FileID: id}) {
		return
	}
	if err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}
	page, size, err := pageParams(r, 20)
	if err != nil {
		_ = render.Render(w, r, errBadRequest(err))
		return
	}
	lang := r.URL.Query().Get("languageFilter")
	minSim := 0.0
	if v := r.URL.Query().Get("minSimilarity"); v != "" {
		if minSim, err = strconv.ParseFloat(v, 64); err != nil {
			_ = render.Render(w, r, errBadRequest(err))
			return
		}
	}

	s.mu.Lock()
	if _, ok := s.findLocked(id); !ok {
		s.mu.Unlock()
		_ = render.Render(w, r, errNotFound("file not found"))
		return
	}
	var results []model.SimilarityResult
	for _, f := range s.files {
		if f.ID == id {
			continue
		}
		if res, ok := s.resultLocked(id, f, lang, minSim); ok {
			results = append(results, res)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	render.JSON(w, r, paginate(results, page, size))
}

// BatchBody is the JSON body the fake expects on /compare-batch.
type BatchBody struct {
	TargetFileID   int64   `json:"targetFileId"`
	FileIDs        []int64 `json:"fileIds"`
	LanguageFilter string  `json:"languageFilter"`
	MinSimilarity  float64 `json:"minSimilarity"`
}

func (s *Service) compareBatch(w http.ResponseWriter, r *http.Request) {
	var body BatchBody
	decodeErr := render.DecodeJSON(r.Body, &body)
	if s.begin(w, r, Call{Op: OpBatch, FileID: body.TargetFileID, IDs: body.FileIDs}) {
		return
	}
	if decodeErr != nil {
		_ = render.Render(w, r, errBadRequest(decodeErr))
		return
	}

	s.mu.Lock()
	if _, ok := s.findLocked(body.TargetFileID); !ok {
		s.mu.Unlock()
		_ = render.Render(w, r, errNotFound("target file not found"))
		return
	}
	results := []model.SimilarityResult{}
	for _, id := range body.FileIDs {
		f, ok := s.findLocked(id)
		if !ok {
			continue
		}
		if res, ok := s.resultLocked(body.TargetFileID, f, body.LanguageFilter, body.MinSimilarity); ok {
			results = append(results, res)
		}
	}
	s.mu.Unlock()

	render.JSON(w, r, results)
}

func (s *Service) findLocked(id int64) (model.CodeFile, bool) {
	for _, f := range s.files {
		if f.ID == id {
			return f, true
		}
	}
	return model.CodeFile{}, false
}

func (s *Service) resultLocked(target int64, f model.CodeFile, lang string, minSim float64) (model.SimilarityResult, bool) {
	if lang != "" && f.Language != lang {
		return model.SimilarityResult{}, false
	}
	score := s.scores[[2]int64{target, f.ID}]
	if score < minSim {
		return model.SimilarityResult{}, false
	}
	return model.SimilarityResult{
		FileID:     f.ID,
		FileName:   f.FileName,
		Language:   f.Language,
		Similarity: score,
	}, true
}

func pageParams(r *http.Request, defSize int) (int, int, error) {
	page, size := 0, defSize
	var err error
	if v := r.URL.Query().Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil || page < 0 {
			return 0, 0, fmt.Errorf("bad page %q", v)
		}
	}
	if v := r.URL.Query().Get("size"); v != "" {
		if size, err = strconv.Atoi(v); err != nil || size <= 0 {
			return 0, 0, fmt.Errorf("bad size %q", v)
		}
	}
	return page, size, nil
}

func paginate[T any](all []T, page, size int) model.Page[T] {
	total := len(all)
	pages := (total + size - 1) / size
	start := page * size
	content := []T{}
	if start < total {
		end := min(start+size, total)
		content = append(content, all[start:end]...)
	}
	return model.Page[T]{
		Content: content,
		Page: model.PageInfo{
			Number:        page,
			Size:          size,
			TotalElements: total,
			TotalPages:    pages,
		},
	}
}

// errResponse renders service errors the way the real service does.
type errResponse struct {
	HTTPStatusCode int    `json:"-"`
	StatusText     string `json:"status"`
	Message        string `json:"message,omitempty"`
}

func (e *errResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func errBadRequest(err error) render.Renderer {
	return &errResponse{HTTPStatusCode: http.StatusBadRequest, StatusText: "Bad Request", Message: err.Error()}
}

func errNotFound(msg string) render.Renderer {
	return &errResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Not Found", Message: msg}
}
