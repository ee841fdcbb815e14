// Package tool coordinates concurrent research tool calls during a
// conversation. The orchestrator never returns an error for a tool failure:
// timeouts, provider errors, and panics all surface as terminal CallResults
// so a partial research round still produces a usable response.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mashup-server/internal/domain/conversation"
	"mashup-server/internal/domain/search"
	"mashup-server/internal/infrastructure/metrics"
)

// ErrNoStore is returned by Statistics when no audit store is configured.
var ErrNoStore = errors.New("tool call store not configured")

const (
	defaultMaxConcurrent = 3
	defaultCallTimeout   = 30 * time.Second
)

// Query templates for the research helpers.
const (
	genreQueryTemplate    = "%s music history cultural significance educational"
	culturalQueryTemplate = "%s music culture history significance"
)

// Orchestrator fans research queries out to the search provider under a
// bounded concurrency gate and records every call in the audit store. The
// gate is shared by every entry point, so the in-flight bound holds across
// overlapping batches.
type Orchestrator struct {
	provider    search.Provider
	store       conversation.ToolCallStore
	gate        chan struct{}
	callTimeout time.Duration
	logger      zerolog.Logger
}

// NewOrchestrator constructs an orchestrator. The store may be nil, which
// disables the audit trail and statistics. Non-positive limits fall back to
// the defaults.
func NewOrchestrator(provider search.Provider, store conversation.ToolCallStore, maxConcurrent int, callTimeout time.Duration, logger zerolog.Logger) *Orchestrator {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &Orchestrator{
		provider:    provider,
		store:       store,
		gate:        make(chan struct{}, maxConcurrent),
		callTimeout: callTimeout,
		logger:      logger.With().Str("component", "tool_orchestrator").Logger(),
	}
}

// ExecuteSearch runs a single search call. It holds a slot on the shared
// concurrency gate for the duration of the call, and applies the per-call
// timeout. ExecutionTime is left zero on timeout: the call never ran to
// completion, so there is no meaningful duration to report.
func (o *Orchestrator) ExecuteSearch(ctx context.Context, sessionID string, task Task) CallResult {
	o.gate <- struct{}{}
	defer func() { <-o.gate }()

	started := time.Now()
	recordID := o.recordPending(ctx, sessionID, task)

	result := o.runSearch(ctx, task)
	elapsed := time.Since(started)
	if result.Status != ExecutionStatusTimeout {
		result.ExecutionTime = elapsed
	}

	o.recordOutcome(ctx, recordID, result)
	metrics.RecordToolCall(string(task.ToolType), string(result.Status), elapsed.Seconds())
	o.logger.Debug().
		Str("session_id", sessionID).
		Str("tool_type", string(task.ToolType)).
		Str("status", string(result.Status)).
		Dur("execution_time", result.ExecutionTime).
		Msg("tool call finished")
	return result
}

// ExecuteConcurrent fans the tasks out. Each task acquires the shared gate
// inside ExecuteSearch, so the bound is per orchestrator, not per batch. The
// returned slice is index-aligned with tasks regardless of completion order.
func (o *Orchestrator) ExecuteConcurrent(ctx context.Context, sessionID string, tasks []Task) []CallResult {
	results := make([]CallResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			results[i] = o.ExecuteSearch(ctx, sessionID, task)
		}(i, task)
	}
	wg.Wait()
	return results
}

// ExecuteGenreExploration issues one educational history query per genre and
// synthesizes the responses. Results are keyed back to their originating
// genre so callers do not have to parse the templated query.
func (o *Orchestrator) ExecuteGenreExploration(ctx context.Context, sessionID string, genres []string, sc search.Context) (map[string]CallResult, SynthesisResult) {
	return o.runKeyedBatch(ctx, sessionID, ToolTypeGenreExploration, genreQueryTemplate, genres, sc)
}

// ExecuteCulturalResearch issues one significance query per cultural element
// and synthesizes the responses, keyed by element.
func (o *Orchestrator) ExecuteCulturalResearch(ctx context.Context, sessionID string, elements []string, sc search.Context) (map[string]CallResult, SynthesisResult) {
	return o.runKeyedBatch(ctx, sessionID, ToolTypeCulturalResearch, culturalQueryTemplate, elements, sc)
}

func (o *Orchestrator) runKeyedBatch(ctx context.Context, sessionID string, toolType ToolType, template string, keys []string, sc search.Context) (map[string]CallResult, SynthesisResult) {
	tasks := make([]Task, 0, len(keys))
	for _, key := range keys {
		tasks = append(tasks, Task{
			ToolType: toolType,
			Query:    fmt.Sprintf(template, key),
			Context:  sc,
		})
	}
	results := o.ExecuteConcurrent(ctx, sessionID, tasks)

	byKey := make(map[string]CallResult, len(keys))
	for i, key := range keys {
		byKey[key] = results[i]
	}
	return byKey, o.Synthesize(results)
}

// Synthesize merges successful call payloads, deduplicating by result URL.
// First occurrence wins so the ordering of results is preserved.
func (o *Orchestrator) Synthesize(results []CallResult) SynthesisResult {
	synthesis := SynthesisResult{}
	seen := make(map[string]bool)

	for _, r := range results {
		if !r.Succeeded() {
			synthesis.Failed++
			if r.ErrorMessage != "" {
				synthesis.Errors = append(synthesis.Errors, r.ErrorMessage)
			}
			continue
		}
		synthesis.Successful++
		synthesis.Queries = append(synthesis.Queries, r.Query)
		for _, item := range r.Response.Results {
			if item.URL != "" && seen[item.URL] {
				continue
			}
			if item.URL != "" {
				seen[item.URL] = true
			}
			synthesis.Results = append(synthesis.Results, item)
		}
	}
	synthesis.TotalResults = len(synthesis.Results)
	synthesis.Summary = summarize(synthesis)
	return synthesis
}

// Statistics aggregates the session's audit trail into per-status and
// per-tool counts with an overall success rate.
func (o *Orchestrator) Statistics(ctx context.Context, sessionID string) (*Statistics, error) {
	if o.store == nil {
		return nil, ErrNoStore
	}
	calls, err := o.store.ListToolCalls(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("list tool calls: %w", err)
	}

	stats := &Statistics{
		TotalCalls: len(calls),
		ByStatus:   make(map[string]int),
		ByToolType: make(map[string]int),
	}
	completed := 0
	for _, call := range calls {
		stats.ByStatus[call.Status]++
		stats.ByToolType[call.ToolType]++
		if call.Status == string(ExecutionStatusCompleted) {
			completed++
		}
	}
	if stats.TotalCalls > 0 {
		stats.SuccessRate = float64(completed) / float64(stats.TotalCalls) * 100
	}
	return stats, nil
}

// runSearch performs one provider call, converting timeouts, errors, and
// panics into terminal statuses.
func (o *Orchestrator) runSearch(ctx context.Context, task Task) (result CallResult) {
	result = CallResult{ToolType: task.ToolType, Query: task.Query}

	defer func() {
		if rec := recover(); rec != nil {
			result.Status = ExecutionStatusFailed
			result.ErrorMessage = fmt.Sprintf("tool panicked: %v", rec)
			result.Response = nil
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	resp, err := o.provider.Search(callCtx, task.Query, task.Context)
	switch {
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		result.Status = ExecutionStatusTimeout
		result.ErrorMessage = fmt.Sprintf("tool call exceeded %s", o.callTimeout)
	case err != nil:
		result.Status = ExecutionStatusFailed
		result.ErrorMessage = err.Error()
	default:
		result.Status = ExecutionStatusCompleted
		result.Response = resp
		if resp != nil && resp.Error != "" {
			result.Status = ExecutionStatusFailed
			result.ErrorMessage = resp.Error
		}
	}
	return result
}

// recordPending writes the audit row before dispatch. Audit failures are
// logged and ignored so they never block the call itself.
func (o *Orchestrator) recordPending(ctx context.Context, sessionID string, task Task) uint {
	if o.store == nil {
		return 0
	}
	input, err := json.Marshal(map[string]any{
		"query":   task.Query,
		"context": task.Context,
	})
	if err != nil {
		o.logger.Warn().Err(err).Msg("marshal tool call input")
		return 0
	}
	id, err := o.store.AddToolCall(ctx, sessionID, string(task.ToolType), string(input), string(ExecutionStatusPending))
	if err != nil {
		o.logger.Warn().Err(err).Str("session_id", sessionID).Msg("record tool call")
		return 0
	}
	return id
}

func (o *Orchestrator) recordOutcome(ctx context.Context, recordID uint, result CallResult) {
	if o.store == nil || recordID == 0 {
		return
	}
	var output string
	if result.Response != nil {
		if raw, err := json.Marshal(result.Response); err == nil {
			output = string(raw)
		}
	}
	if err := o.store.UpdateToolCall(ctx, recordID, output, string(result.Status), result.ErrorMessage); err != nil {
		o.logger.Warn().Err(err).Uint("tool_call_id", recordID).Msg("update tool call")
	}
}

func summarize(s SynthesisResult) string {
	if len(s.Queries) == 0 {
		return "no research results were gathered"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "gathered %d results across %d queries", s.TotalResults, len(s.Queries))
	if s.Failed > 0 {
		fmt.Fprintf(&sb, " (%d calls failed)", s.Failed)
	}
	return sb.String()
}
