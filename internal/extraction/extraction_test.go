package extraction_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/compliance"
	"github.com/JaimeStill/warden/internal/extraction"
	"github.com/JaimeStill/warden/internal/tasks"
	"github.com/JaimeStill/warden/pkg/broadcast"
	"github.com/JaimeStill/warden/pkg/devops"
	"github.com/JaimeStill/warden/pkg/lifecycle"
	"github.com/JaimeStill/warden/pkg/routes"
	"github.com/JaimeStill/warden/pkg/storage"
)

type mockClient struct {
	queryIDs func(ctx context.Context, tag, project string) ([]int, error)
	details  func(ctx context.Context, ids []int) ([]devops.WorkItem, error)
	comments func(ctx context.Context, id int) (string, error)
}

func (m *mockClient) QueryIDs(ctx context.Context, tag, project string) ([]int, error) {
	return m.queryIDs(ctx, tag, project)
}

func (m *mockClient) Details(ctx context.Context, ids []int) ([]devops.WorkItem, error) {
	return m.details(ctx, ids)
}

func (m *mockClient) Comments(ctx context.Context, id int) (string, error) {
	if m.comments == nil {
		return "", nil
	}
	return m.comments(ctx, id)
}

type mockTasks struct {
	mu      sync.Mutex
	upserts [][]compliance.Result
	err     error
}

func (m *mockTasks) Handler() *tasks.Handler        { return nil }
func (m *mockTasks) Init(ctx context.Context) error { return nil }

func (m *mockTasks) Upsert(ctx context.Context, results []compliance.Result) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.upserts = append(m.upserts, results)
	return len(results), nil
}

func (m *mockTasks) List(ctx context.Context, f tasks.Filters) ([]tasks.Task, error) {
	return nil, nil
}

func (m *mockTasks) Find(ctx context.Context, id int) (*tasks.Task, error) {
	return nil, tasks.ErrNotFound
}

func (m *mockTasks) calls() [][]compliance.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.upserts)
}

type recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *recorder) Notify(msg string) {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.messages)
}

type memArchive struct {
	mu    sync.Mutex
	blobs map[string][]byte
	err   error
}

func (m *memArchive) Start(lc *lifecycle.Coordinator) error { return nil }

func (m *memArchive) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.blobs == nil {
		m.blobs = map[string][]byte{}
	}
	m.blobs[key] = data
	return nil
}

func (m *memArchive) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

type fixture struct {
	client   *mockClient
	tasks    *mockTasks
	observer *recorder
	lc       *lifecycle.Coordinator
	rt       *extraction.Runtime
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		client: &mockClient{
			queryIDs: func(ctx context.Context, tag, project string) ([]int, error) { return nil, nil },
			details:  func(ctx context.Context, ids []int) ([]devops.WorkItem, error) { return items(ids...), nil },
		},
		tasks:    &mockTasks{},
		observer: &recorder{},
		lc:       lifecycle.New(),
	}
	f.rt = &extraction.Runtime{
		Client:    f.client,
		Tasks:     f.tasks,
		Rules:     compliance.DefaultRules(),
		Observer:  f.observer,
		Lifecycle: f.lc,
		Logger:    discard(),
		Project:   "Proj",
		TagFilter: "CoE",
	}
	t.Cleanup(func() { f.lc.Shutdown(5 * time.Second) })
	return f
}

func (f *fixture) runner(t *testing.T, cfg extraction.Config) extraction.Runner {
	t.Helper()
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	return extraction.New(f.rt, &cfg)
}

func items(ids ...int) []devops.WorkItem {
	out := make([]devops.WorkItem, len(ids))
	for i, id := range ids {
		out[i] = devops.WorkItem{
			ID: id,
			Fields: map[string]any{
				devops.FieldTitle:       "item",
				devops.FieldDescription: "<p>short</p>",
			},
		}
	}
	return out
}

func wait(t *testing.T, run *extraction.Run) {
	t.Helper()
	select {
	case <-run.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg extraction.Config
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.Workers != 4 || !cfg.Chunked() {
		t.Errorf("defaults = workers %d chunked %v", cfg.Workers, cfg.Chunked())
	}

	t.Setenv("TEST_WORKERS", "0")
	bad := extraction.Config{}
	if err := bad.Finalize(&extraction.Env{Workers: "TEST_WORKERS"}); err == nil {
		t.Error("Finalize() should reject zero workers")
	}
}

func TestRunNoItems(t *testing.T) {
	f := newFixture(t)
	detailsCalled := false
	f.client.details = func(ctx context.Context, ids []int) ([]devops.WorkItem, error) {
		detailsCalled = true
		return nil, nil
	}

	run, err := f.runner(t, extraction.Config{}).Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	wait(t, run)

	if run.Status() != extraction.StatusCompleted {
		t.Errorf("Status() = %s, want completed", run.Status())
	}
	if detailsCalled {
		t.Error("Details should not be called when no ids match")
	}
	if len(f.tasks.calls()) != 0 {
		t.Error("Upsert should not be called when no ids match")
	}

	want := []string{
		"Step 1/5: Starting client...",
		"Step 2/5: Fetching ids (tag CoE)...",
		"No items found",
	}
	if msgs := f.observer.all(); !slices.Equal(msgs, want) {
		t.Errorf("messages = %q, want %q", msgs, want)
	}
}

func TestRunPersistsBatchInDetailOrder(t *testing.T) {
	f := newFixture(t)
	f.client.queryIDs = func(ctx context.Context, tag, project string) ([]int, error) {
		if tag != "CoE" || project != "Proj" {
			t.Errorf("QueryIDs(%q, %q)", tag, project)
		}
		return []int{30, 20, 10}, nil
	}
	f.client.comments = func(ctx context.Context, id int) (string, error) {
		if id == 20 {
			return "see https://bkbrasil.sharepoint.com/doc", nil
		}
		return "", nil
	}

	run, err := f.runner(t, extraction.Config{Workers: 3}).Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	wait(t, run)

	if err := run.Err(); err != nil {
		t.Fatalf("run error = %v", err)
	}

	calls := f.tasks.calls()
	if len(calls) != 1 {
		t.Fatalf("Upsert calls = %d, want 1", len(calls))
	}

	batch := calls[0]
	gotIDs := []int{batch[0].ID, batch[1].ID, batch[2].ID}
	if !slices.Equal(gotIDs, []int{30, 20, 10}) {
		t.Errorf("batch ids = %v, want detail order", gotIDs)
	}
	if batch[1].Verdict != compliance.OK || batch[0].Verdict != compliance.NOK {
		t.Errorf("verdicts = %s %s, want NOK OK", batch[0].Verdict, batch[1].Verdict)
	}

	perItem := 0
	for _, m := range f.observer.all() {
		if strings.HasPrefix(m, "Step 4/5: Reading comments for task") {
			perItem++
			if !strings.HasSuffix(m, "/3") {
				t.Errorf("per item message %q lacks total", m)
			}
		}
	}
	if perItem != 3 {
		t.Errorf("per item messages = %d, want 3", perItem)
	}

	snap := run.Snapshot()
	if snap.Items != 3 || snap.Stored != 3 || snap.FinishedAt == nil {
		t.Errorf("Snapshot() = %+v", snap)
	}
}

func TestRunRemoteQueryErrorIsFatal(t *testing.T) {
	f := newFixture(t)
	f.client.queryIDs = func(ctx context.Context, tag, project string) ([]int, error) {
		return []int{1}, nil
	}
	f.client.details = func(ctx context.Context, ids []int) ([]devops.WorkItem, error) {
		return nil, &devops.RemoteQueryError{Op: "work item details", StatusCode: 500, Body: "boom"}
	}

	run, err := f.runner(t, extraction.Config{}).Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	wait(t, run)

	var rqe *devops.RemoteQueryError
	if !errors.As(run.Err(), &rqe) {
		t.Fatalf("Err() = %v, want RemoteQueryError", run.Err())
	}
	if run.Status() != extraction.StatusFailed {
		t.Errorf("Status() = %s, want failed", run.Status())
	}
	if len(f.tasks.calls()) != 0 {
		t.Error("Upsert should not be called after a failed details fetch")
	}

	msgs := f.observer.all()
	var failures []string
	for _, m := range msgs {
		if strings.HasPrefix(m, "Error: ") {
			failures = append(failures, m)
		}
	}
	if len(failures) != 1 {
		t.Fatalf("failure notifications = %q, want exactly one", failures)
	}
	if last := msgs[len(msgs)-1]; last != failures[0] || !strings.Contains(last, "boom") {
		t.Errorf("last message = %q, want the failure notification", last)
	}
	if want := "Error: work item details failed (status 500): boom"; failures[0] != want {
		t.Errorf("failure = %q, want %q", failures[0], want)
	}
}

func TestRunPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.client.queryIDs = func(ctx context.Context, tag, project string) ([]int, error) {
		return []int{1}, nil
	}
	f.tasks.err = errors.New("disk full")

	run, _ := f.runner(t, extraction.Config{}).Start()
	wait(t, run)

	if !errors.Is(run.Err(), extraction.ErrPipelineFailed) {
		t.Errorf("Err() = %v, want ErrPipelineFailed", run.Err())
	}
}

func TestRunRecoversPanic(t *testing.T) {
	f := newFixture(t)
	f.client.queryIDs = func(ctx context.Context, tag, project string) ([]int, error) {
		return []int{1}, nil
	}
	f.client.details = func(ctx context.Context, ids []int) ([]devops.WorkItem, error) {
		panic("unexpected payload")
	}

	run, _ := f.runner(t, extraction.Config{}).Start()
	wait(t, run)

	if !errors.Is(run.Err(), extraction.ErrPipelineFailed) {
		t.Errorf("Err() = %v, want ErrPipelineFailed", run.Err())
	}
}

func TestRunRecoversEnrichmentPanic(t *testing.T) {
	f := newFixture(t)
	f.client.queryIDs = func(ctx context.Context, tag, project string) ([]int, error) {
		return []int{1, 2, 3}, nil
	}
	f.client.comments = func(ctx context.Context, id int) (string, error) {
		if id == 2 {
			panic("bad comment payload")
		}
		return "", nil
	}

	run, _ := f.runner(t, extraction.Config{}).Start()
	wait(t, run)

	if !errors.Is(run.Err(), extraction.ErrPipelineFailed) {
		t.Fatalf("Err() = %v, want ErrPipelineFailed", run.Err())
	}
	if !strings.Contains(run.Err().Error(), "bad comment payload") {
		t.Errorf("Err() = %v, want the panic value", run.Err())
	}
	if run.Status() != extraction.StatusFailed {
		t.Errorf("Status() = %s, want failed", run.Status())
	}
	if len(f.tasks.calls()) != 0 {
		t.Error("Upsert should not be called after a failed enrichment")
	}

	msgs := f.observer.all()
	if last := msgs[len(msgs)-1]; !strings.HasPrefix(last, "Error: ") {
		t.Errorf("last message = %q, want failure notification", last)
	}
}

func TestRunChunksDetails(t *testing.T) {
	ids := make([]int, 450)
	for i := range ids {
		ids[i] = i + 1
	}

	tests := []struct {
		name    string
		chunked bool
		want    []int
	}{
		{"chunked", true, []int{200, 200, 50}},
		{"single call", false, []int{450}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var mu sync.Mutex
			var sizes []int

			f.client.queryIDs = func(ctx context.Context, tag, project string) ([]int, error) {
				return ids, nil
			}
			f.client.details = func(ctx context.Context, batch []int) ([]devops.WorkItem, error) {
				mu.Lock()
				sizes = append(sizes, len(batch))
				mu.Unlock()
				return items(batch...), nil
			}

			chunk := tt.chunked
			run, _ := f.runner(t, extraction.Config{ChunkDetails: &chunk}).Start()
			wait(t, run)

			if !slices.Equal(sizes, tt.want) {
				t.Errorf("Details sizes = %v, want %v", sizes, tt.want)
			}
		})
	}
}

func TestStartWhileRunning(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	f.client.queryIDs = func(ctx context.Context, tag, project string) ([]int, error) {
		close(entered)
		<-release
		return nil, nil
	}

	r := f.runner(t, extraction.Config{})
	if r.StatusText() != extraction.IdleStatus {
		t.Errorf("StatusText() = %q before any run", r.StatusText())
	}
	if _, err := r.Current(); !errors.Is(err, extraction.ErrNoRun) {
		t.Errorf("Current() error = %v, want ErrNoRun", err)
	}

	first, err := r.Start()
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-entered

	if _, err := r.Start(); !errors.Is(err, extraction.ErrRunInProgress) {
		t.Errorf("second Start() error = %v, want ErrRunInProgress", err)
	}
	if got := r.StatusText(); !strings.HasPrefix(got, "Step 2/5") {
		t.Errorf("StatusText() = %q during run", got)
	}

	close(release)
	wait(t, first)

	if r.StatusText() != extraction.IdleStatus {
		t.Errorf("StatusText() = %q after run", r.StatusText())
	}
	if _, err := r.Start(); err != nil {
		t.Errorf("Start() after completion error = %v", err)
	}
}

func TestArchiveReport(t *testing.T) {
	f := newFixture(t)
	archive := &memArchive{}
	f.rt.Archive = archive
	f.client.queryIDs = func(ctx context.Context, tag, project string) ([]int, error) {
		return []int{5}, nil
	}

	r := f.runner(t, extraction.Config{})
	run, _ := r.Start()
	wait(t, run)

	data, err := r.Report(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	var report extraction.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Run.ID != run.ID || len(report.Results) != 1 || report.Results[0].ID != 5 {
		t.Errorf("report = %+v", report)
	}
	if report.Run.Status != extraction.StatusCompleted || report.Run.FinishedAt == nil {
		t.Errorf("report run = %+v, want completed with finish time", report.Run)
	}

	if _, err := r.Report(context.Background(), uuid.New()); !errors.Is(err, extraction.ErrReportNotFound) {
		t.Errorf("Report(unknown) error = %v, want ErrReportNotFound", err)
	}
}

func TestArchiveFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t)
	f.rt.Archive = &memArchive{err: errors.New("unavailable")}
	f.client.queryIDs = func(ctx context.Context, tag, project string) ([]int, error) {
		return []int{5}, nil
	}

	run, _ := f.runner(t, extraction.Config{}).Start()
	wait(t, run)

	if run.Err() != nil {
		t.Errorf("Err() = %v, want nil", run.Err())
	}
}

func TestReportWithoutArchive(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t, extraction.Config{})
	if _, err := r.Report(context.Background(), uuid.New()); !errors.Is(err, extraction.ErrArchiveOff) {
		t.Errorf("Report() error = %v, want ErrArchiveOff", err)
	}
}

func TestHandler(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	f.client.queryIDs = func(ctx context.Context, tag, project string) ([]int, error) {
		<-release
		return nil, nil
	}

	r := f.runner(t, extraction.Config{})
	hub := broadcast.NewHub(8, discard())
	mux := http.NewServeMux()
	routes.Register(mux, extraction.NewHandler(r, hub, discard()).Routes())

	serve := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	if rec := serve("GET", "/runs/current"); rec.Code != http.StatusNotFound {
		t.Errorf("GET current before start = %d, want 404", rec.Code)
	}

	rec := serve("POST", "/runs")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST = %d, want 202", rec.Code)
	}

	var snap extraction.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Status != extraction.StatusRunning {
		t.Errorf("status = %s, want running", snap.Status)
	}

	if rec := serve("POST", "/runs"); rec.Code != http.StatusConflict {
		t.Errorf("second POST = %d, want 409", rec.Code)
	}
	if rec := serve("GET", "/runs/current"); rec.Code != http.StatusOK {
		t.Errorf("GET current = %d, want 200", rec.Code)
	}
	if rec := serve("GET", "/runs/not-a-uuid/report"); rec.Code != http.StatusBadRequest {
		t.Errorf("GET report = %d, want 400", rec.Code)
	}

	close(release)
}

func TestTriggerMiddleware(t *testing.T) {
	f := newFixture(t)
	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}

	r := f.runner(t, extraction.Config{})
	mux := http.NewServeMux()
	routes.Register(mux, extraction.NewHandler(r, broadcast.NewHub(1, discard()), discard(), deny).Routes())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/runs", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("POST = %d, want 401", rec.Code)
	}
	if _, err := r.Current(); !errors.Is(err, extraction.ErrNoRun) {
		t.Error("denied trigger should not start a run")
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/runs/current", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET current = %d, want 404 (middleware applies to trigger only)", rec.Code)
	}
}

func TestStartAfterShutdown(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t, extraction.Config{})

	if err := f.lc.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	_, err := r.Start()
	if !errors.Is(err, lifecycle.ErrShuttingDown) {
		t.Fatalf("Start() error = %v, want ErrShuttingDown", err)
	}
	if got := extraction.MapHTTPStatus(err); got != http.StatusServiceUnavailable {
		t.Errorf("MapHTTPStatus() = %d, want 503", got)
	}
	if _, err := r.Current(); !errors.Is(err, extraction.ErrNoRun) {
		t.Errorf("Current() error = %v, want ErrNoRun", err)
	}
	if len(f.observer.all()) != 0 {
		t.Errorf("messages = %v, want none", f.observer.all())
	}
}
