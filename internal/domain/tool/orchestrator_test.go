package tool_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"mashup-server/internal/domain/conversation"
	"mashup-server/internal/domain/search"
	"mashup-server/internal/domain/tool"
	"mashup-server/internal/infrastructure/metrics"
)

type mockProvider struct {
	searchFunc func(ctx context.Context, query string, sc search.Context) (*search.Response, error)
}

func (m *mockProvider) Search(ctx context.Context, query string, sc search.Context) (*search.Response, error) {
	return m.searchFunc(ctx, query, sc)
}

func (m *mockProvider) Available() bool { return true }

type mockStore struct {
	mu      sync.Mutex
	nextID  uint
	records map[uint]conversation.ToolCall

	addErr error
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[uint]conversation.ToolCall)}
}

func (m *mockStore) AddToolCall(_ context.Context, sessionID, toolType, inputData, status string) (uint, error) {
	if m.addErr != nil {
		return 0, m.addErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.records[m.nextID] = conversation.ToolCall{
		ID:        m.nextID,
		ToolType:  toolType,
		InputData: inputData,
		Status:    status,
	}
	return m.nextID, nil
}

func (m *mockStore) UpdateToolCall(_ context.Context, id uint, outputData, status, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("tool call %d not found", id)
	}
	rec.OutputData = outputData
	rec.Status = status
	rec.ErrorMessage = errorMessage
	m.records[id] = rec
	return nil
}

func (m *mockStore) ListToolCalls(_ context.Context, sessionID string, limit int) ([]conversation.ToolCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]conversation.ToolCall, 0, len(m.records))
	for id := uint(1); id <= m.nextID; id++ {
		if rec, ok := m.records[id]; ok {
			calls = append(calls, rec)
		}
	}
	return calls, nil
}

func okResponse(query string, urls ...string) *search.Response {
	resp := &search.Response{Query: query, ServiceAvailable: true}
	for i, u := range urls {
		resp.Results = append(resp.Results, search.Result{
			Title: fmt.Sprintf("result %d", i),
			URL:   u,
		})
	}
	resp.TotalResults = len(resp.Results)
	return resp
}

func TestExecuteSearch_ProviderErrorBecomesFailedResult(t *testing.T) {
	provider := &mockProvider{
		searchFunc: func(context.Context, string, search.Context) (*search.Response, error) {
			return nil, errors.New("connection refused")
		},
	}
	o := tool.NewOrchestrator(provider, nil, 3, time.Second, zerolog.Nop())

	result := o.ExecuteSearch(context.Background(), "s1", tool.Task{
		ToolType: tool.ToolTypeWebSearch,
		Query:    "jazz history",
	})

	if result.Status != tool.ExecutionStatusFailed {
		t.Fatalf("Status = %s, want %s", result.Status, tool.ExecutionStatusFailed)
	}
	if result.ErrorMessage != "connection refused" {
		t.Errorf("ErrorMessage = %q, want %q", result.ErrorMessage, "connection refused")
	}
	if result.Response != nil {
		t.Errorf("Response = %+v, want nil", result.Response)
	}
}

func TestExecuteSearch_Timeout(t *testing.T) {
	provider := &mockProvider{
		searchFunc: func(ctx context.Context, _ string, _ search.Context) (*search.Response, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	o := tool.NewOrchestrator(provider, nil, 3, 20*time.Millisecond, zerolog.Nop())

	result := o.ExecuteSearch(context.Background(), "s1", tool.Task{Query: "slow"})

	if result.Status != tool.ExecutionStatusTimeout {
		t.Fatalf("Status = %s, want %s", result.Status, tool.ExecutionStatusTimeout)
	}
	// The call never ran to completion, so no duration is reported.
	if result.ExecutionTime != 0 {
		t.Errorf("ExecutionTime = %s, want 0 on timeout", result.ExecutionTime)
	}
}

func TestExecuteSearch_PanicBecomesFailedResult(t *testing.T) {
	provider := &mockProvider{
		searchFunc: func(context.Context, string, search.Context) (*search.Response, error) {
			panic("boom")
		},
	}
	o := tool.NewOrchestrator(provider, nil, 3, time.Second, zerolog.Nop())

	result := o.ExecuteSearch(context.Background(), "s1", tool.Task{Query: "q"})

	if result.Status != tool.ExecutionStatusFailed {
		t.Fatalf("Status = %s, want %s", result.Status, tool.ExecutionStatusFailed)
	}
	if result.ErrorMessage == "" {
		t.Error("ErrorMessage is empty, want panic detail")
	}
}

func TestExecuteSearch_DegradedResponseBecomesFailedResult(t *testing.T) {
	provider := &mockProvider{
		searchFunc: func(_ context.Context, query string, _ search.Context) (*search.Response, error) {
			return search.Unavailable(query), nil
		},
	}
	o := tool.NewOrchestrator(provider, nil, 3, time.Second, zerolog.Nop())

	result := o.ExecuteSearch(context.Background(), "s1", tool.Task{Query: "q"})

	if result.Status != tool.ExecutionStatusFailed {
		t.Fatalf("Status = %s, want %s", result.Status, tool.ExecutionStatusFailed)
	}
}

func TestExecuteConcurrent_ResultsAlignWithTasks(t *testing.T) {
	provider := &mockProvider{
		searchFunc: func(_ context.Context, query string, _ search.Context) (*search.Response, error) {
			// Reverse the natural completion order.
			if query == "first" {
				time.Sleep(30 * time.Millisecond)
			}
			return okResponse(query, "https://example.com/"+query), nil
		},
	}
	o := tool.NewOrchestrator(provider, nil, 3, time.Second, zerolog.Nop())

	tasks := []tool.Task{
		{ToolType: tool.ToolTypeWebSearch, Query: "first"},
		{ToolType: tool.ToolTypeWebSearch, Query: "second"},
		{ToolType: tool.ToolTypeWebSearch, Query: "third"},
	}
	results := o.ExecuteConcurrent(context.Background(), "s1", tasks)

	if len(results) != len(tasks) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(tasks))
	}
	for i, task := range tasks {
		if results[i].Query != task.Query {
			t.Errorf("results[%d].Query = %q, want %q", i, results[i].Query, task.Query)
		}
		if results[i].Status != tool.ExecutionStatusCompleted {
			t.Errorf("results[%d].Status = %s, want %s", i, results[i].Status, tool.ExecutionStatusCompleted)
		}
	}
}

func TestExecuteConcurrent_RespectsConcurrencyLimit(t *testing.T) {
	var current, peak int32
	provider := &mockProvider{
		searchFunc: func(_ context.Context, query string, _ search.Context) (*search.Response, error) {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return okResponse(query), nil
		},
	}
	o := tool.NewOrchestrator(provider, nil, 2, time.Second, zerolog.Nop())

	tasks := make([]tool.Task, 6)
	for i := range tasks {
		tasks[i] = tool.Task{Query: fmt.Sprintf("q%d", i)}
	}
	o.ExecuteConcurrent(context.Background(), "s1", tasks)

	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestConcurrencyLimitHoldsAcrossOverlappingBatches(t *testing.T) {
	var current, peak int32
	provider := &mockProvider{
		searchFunc: func(_ context.Context, query string, _ search.Context) (*search.Response, error) {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return okResponse(query), nil
		},
	}
	o := tool.NewOrchestrator(provider, nil, 1, time.Second, zerolog.Nop())

	// The gate belongs to the orchestrator, not the batch: two batches
	// running at once must still share the single slot.
	var wg sync.WaitGroup
	for b := 0; b < 2; b++ {
		wg.Add(1)
		go func(b int) {
			defer wg.Done()
			o.ExecuteConcurrent(context.Background(), "s1", []tool.Task{
				{Query: fmt.Sprintf("batch%d-a", b)},
				{Query: fmt.Sprintf("batch%d-b", b)},
			})
		}(b)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&peak); got > 1 {
		t.Errorf("peak in-flight across overlapping batches = %d, want <= 1", got)
	}
}

func TestExecuteConcurrent_PartialFailure(t *testing.T) {
	provider := &mockProvider{
		searchFunc: func(_ context.Context, query string, _ search.Context) (*search.Response, error) {
			if query == "bad" {
				return nil, errors.New("upstream 500")
			}
			return okResponse(query, "https://example.com/"+query), nil
		},
	}
	o := tool.NewOrchestrator(provider, nil, 3, time.Second, zerolog.Nop())

	results := o.ExecuteConcurrent(context.Background(), "s1", []tool.Task{
		{Query: "good"},
		{Query: "bad"},
	})

	if results[0].Status != tool.ExecutionStatusCompleted {
		t.Errorf("results[0].Status = %s, want completed", results[0].Status)
	}
	if results[1].Status != tool.ExecutionStatusFailed {
		t.Errorf("results[1].Status = %s, want failed", results[1].Status)
	}
}

func TestSynthesize_DeduplicatesByURL(t *testing.T) {
	o := tool.NewOrchestrator(&mockProvider{}, nil, 3, time.Second, zerolog.Nop())

	results := []tool.CallResult{
		{
			Query:    "jazz",
			Status:   tool.ExecutionStatusCompleted,
			Response: okResponse("jazz", "https://a.example", "https://b.example"),
		},
		{
			Query:    "blues",
			Status:   tool.ExecutionStatusCompleted,
			Response: okResponse("blues", "https://b.example", "https://c.example"),
		},
		{
			Query:  "broken",
			Status: tool.ExecutionStatusFailed,
		},
	}

	synthesis := o.Synthesize(results)

	if synthesis.TotalResults != 3 {
		t.Errorf("TotalResults = %d, want 3", synthesis.TotalResults)
	}
	if synthesis.Successful != 2 {
		t.Errorf("Successful = %d, want 2", synthesis.Successful)
	}
	if synthesis.Failed != 1 {
		t.Errorf("Failed = %d, want 1", synthesis.Failed)
	}
	wantURLs := []string{"https://a.example", "https://b.example", "https://c.example"}
	for i, want := range wantURLs {
		if synthesis.Results[i].URL != want {
			t.Errorf("Results[%d].URL = %q, want %q", i, synthesis.Results[i].URL, want)
		}
	}
	if len(synthesis.Queries) != 2 {
		t.Errorf("len(Queries) = %d, want 2", len(synthesis.Queries))
	}
}

func TestSynthesize_CountsAndErrors(t *testing.T) {
	o := tool.NewOrchestrator(&mockProvider{}, nil, 3, time.Second, zerolog.Nop())

	synthesis := o.Synthesize([]tool.CallResult{
		{
			Query:    "jazz",
			Status:   tool.ExecutionStatusCompleted,
			Response: okResponse("jazz", "https://a.example", "https://a.example"),
		},
		{
			Query:        "blues",
			Status:       tool.ExecutionStatusFailed,
			ErrorMessage: "upstream 500",
		},
	})

	if synthesis.Successful != 1 || synthesis.Failed != 1 {
		t.Errorf("Successful/Failed = %d/%d, want 1/1", synthesis.Successful, synthesis.Failed)
	}
	if synthesis.TotalResults != 1 {
		t.Errorf("TotalResults = %d, want 1", synthesis.TotalResults)
	}
	if len(synthesis.Errors) != 1 || synthesis.Errors[0] != "upstream 500" {
		t.Errorf("Errors = %v, want [upstream 500]", synthesis.Errors)
	}
}

func TestExecuteGenreExploration_BuildsEducationalQueries(t *testing.T) {
	var mu sync.Mutex
	var queries []string
	provider := &mockProvider{
		searchFunc: func(_ context.Context, query string, _ search.Context) (*search.Response, error) {
			mu.Lock()
			queries = append(queries, query)
			mu.Unlock()
			return okResponse(query), nil
		},
	}
	o := tool.NewOrchestrator(provider, nil, 1, time.Second, zerolog.Nop())

	results, _ := o.ExecuteGenreExploration(context.Background(), "s1", []string{"jazz", "reggae"}, search.Context{})

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	wantQueries := map[string]string{
		"jazz":   "jazz music history cultural significance educational",
		"reggae": "reggae music history cultural significance educational",
	}
	for genre, wantQuery := range wantQueries {
		call, ok := results[genre]
		if !ok {
			t.Errorf("no result keyed by genre %q", genre)
			continue
		}
		if call.Query != wantQuery {
			t.Errorf("results[%q].Query = %q, want %q", genre, call.Query, wantQuery)
		}
	}
	for _, q := range queries {
		found := false
		for _, w := range wantQueries {
			if q == w {
				found = true
			}
		}
		if !found {
			t.Errorf("unexpected query %q", q)
		}
	}
}

func TestExecuteSearch_RecordsToolCallMetric(t *testing.T) {
	provider := &mockProvider{
		searchFunc: func(_ context.Context, query string, _ search.Context) (*search.Response, error) {
			return okResponse(query), nil
		},
	}
	o := tool.NewOrchestrator(provider, nil, 3, time.Second, zerolog.Nop())

	counter := metrics.ToolCallsTotal.WithLabelValues(string(tool.ToolTypeWebSearch), string(tool.ExecutionStatusCompleted))
	before := testutil.ToFloat64(counter)

	o.ExecuteSearch(context.Background(), "s1", tool.Task{
		ToolType: tool.ToolTypeWebSearch,
		Query:    "jazz history",
	})

	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("tool_calls_total delta = %v, want 1", got-before)
	}
}

func TestAuditTrail_RecordsTerminalStatus(t *testing.T) {
	store := newMockStore()
	provider := &mockProvider{
		searchFunc: func(_ context.Context, query string, _ search.Context) (*search.Response, error) {
			if query == "bad" {
				return nil, errors.New("boom")
			}
			return okResponse(query, "https://a.example"), nil
		},
	}
	o := tool.NewOrchestrator(provider, store, 3, time.Second, zerolog.Nop())

	o.ExecuteSearch(context.Background(), "s1", tool.Task{ToolType: tool.ToolTypeWebSearch, Query: "good"})
	o.ExecuteSearch(context.Background(), "s1", tool.Task{ToolType: tool.ToolTypeWebSearch, Query: "bad"})

	calls, err := store.ListToolCalls(context.Background(), "s1", 0)
	if err != nil {
		t.Fatalf("ListToolCalls: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("len(calls) = %d, want 2", len(calls))
	}
	for _, call := range calls {
		if call.Status == string(tool.ExecutionStatusPending) {
			t.Errorf("call %d left in pending state", call.ID)
		}
	}
	if calls[0].Status != string(tool.ExecutionStatusCompleted) {
		t.Errorf("calls[0].Status = %s, want completed", calls[0].Status)
	}
	if calls[1].Status != string(tool.ExecutionStatusFailed) {
		t.Errorf("calls[1].Status = %s, want failed", calls[1].Status)
	}
	if calls[1].ErrorMessage != "boom" {
		t.Errorf("calls[1].ErrorMessage = %q, want %q", calls[1].ErrorMessage, "boom")
	}
}

func TestAuditTrail_StoreFailureDoesNotBlockCall(t *testing.T) {
	store := newMockStore()
	store.addErr = errors.New("db down")
	provider := &mockProvider{
		searchFunc: func(_ context.Context, query string, _ search.Context) (*search.Response, error) {
			return okResponse(query), nil
		},
	}
	o := tool.NewOrchestrator(provider, store, 3, time.Second, zerolog.Nop())

	result := o.ExecuteSearch(context.Background(), "s1", tool.Task{Query: "q"})
	if result.Status != tool.ExecutionStatusCompleted {
		t.Errorf("Status = %s, want completed", result.Status)
	}
}

func TestStatistics(t *testing.T) {
	store := newMockStore()
	calls := []struct {
		toolType string
		status   tool.ExecutionStatus
	}{
		{"web_search", tool.ExecutionStatusCompleted},
		{"web_search", tool.ExecutionStatusCompleted},
		{"genre_exploration", tool.ExecutionStatusFailed},
		{"cultural_research", tool.ExecutionStatusTimeout},
	}
	for _, c := range calls {
		id, err := store.AddToolCall(context.Background(), "s1", c.toolType, "{}", string(tool.ExecutionStatusPending))
		if err != nil {
			t.Fatalf("AddToolCall: %v", err)
		}
		if err := store.UpdateToolCall(context.Background(), id, "", string(c.status), ""); err != nil {
			t.Fatalf("UpdateToolCall: %v", err)
		}
	}

	o := tool.NewOrchestrator(&mockProvider{}, store, 3, time.Second, zerolog.Nop())
	stats, err := o.Statistics(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}

	if stats.TotalCalls != 4 {
		t.Errorf("TotalCalls = %d, want 4", stats.TotalCalls)
	}
	if stats.SuccessRate != 50.0 {
		t.Errorf("SuccessRate = %v, want 50.0", stats.SuccessRate)
	}
	if stats.ByStatus["completed"] != 2 || stats.ByStatus["failed"] != 1 || stats.ByStatus["timeout"] != 1 {
		t.Errorf("ByStatus = %v", stats.ByStatus)
	}
	if stats.ByToolType["web_search"] != 2 {
		t.Errorf("ByToolType = %v", stats.ByToolType)
	}
}

func TestStatistics_NoStore(t *testing.T) {
	o := tool.NewOrchestrator(&mockProvider{}, nil, 3, time.Second, zerolog.Nop())
	if _, err := o.Statistics(context.Background(), "s1"); !errors.Is(err, tool.ErrNoStore) {
		t.Errorf("err = %v, want ErrNoStore", err)
	}
}
