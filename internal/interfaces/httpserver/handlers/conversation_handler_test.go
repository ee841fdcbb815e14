package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mashup-server/internal/domain/agent"
	"mashup-server/internal/domain/conversation"
	"mashup-server/internal/domain/llm"
	"mashup-server/internal/domain/tool"
	"mashup-server/internal/infrastructure/queue"
	"mashup-server/internal/interfaces/httpserver/handlers"
)

type memStore struct {
	conv *conversation.Conversation
	msgs []conversation.Message
}

func (m *memStore) GetOrCreate(_ context.Context, sessionID string, metadata map[string]string) (*conversation.Conversation, error) {
	if m.conv == nil {
		m.conv = conversation.NewConversation(sessionID, metadata)
	}
	return m.conv, nil
}

func (m *memStore) Get(context.Context, string) (*conversation.Conversation, error) {
	return m.conv, nil
}

func (m *memStore) UpdatePhase(_ context.Context, _ string, phase conversation.Phase) error {
	m.conv.Phase = phase
	return nil
}

func (m *memStore) AppendMessage(_ context.Context, _ string, role conversation.Role, content string) error {
	m.msgs = append(m.msgs, conversation.Message{Role: role, Content: content, Sequence: len(m.msgs) + 1})
	return nil
}

func (m *memStore) ListMessages(_ context.Context, _ string, limit, offset int) ([]conversation.Message, error) {
	msgs := m.msgs
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (m *memStore) Summary(_ context.Context, sessionID string) (*conversation.Summary, error) {
	if m.conv == nil {
		return nil, errors.New("conversation not found")
	}
	return &conversation.Summary{
		SessionID:    sessionID,
		Phase:        m.conv.Phase,
		MessageCount: len(m.msgs),
	}, nil
}

func (m *memStore) AddToolCall(context.Context, string, string, string, string) (uint, error) {
	return 0, nil
}

func (m *memStore) UpdateToolCall(context.Context, uint, string, string, string) error {
	return nil
}

func (m *memStore) ListToolCalls(context.Context, string, int) ([]conversation.ToolCall, error) {
	return nil, nil
}

func (m *memStore) CreateMashup(context.Context, string, *conversation.Mashup) error {
	return nil
}

func (m *memStore) ListMashups(context.Context, string) ([]conversation.Mashup, error) {
	return nil, nil
}

type stubLLM struct{}

func (stubLLM) CreateChatCompletion(context.Context, llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	return &llm.ChatCompletionResponse{
		Choices: []llm.ChatCompletionChoice{
			{Message: llm.ChatMessage{Role: "assistant", Content: "Welcome aboard!"}},
		},
	}, nil
}

type stubQueue struct {
	enqueued []string
	err      error
}

func (q *stubQueue) Enqueue(_ context.Context, sessionID string) (uint, error) {
	if q.err != nil {
		return 0, q.err
	}
	q.enqueued = append(q.enqueued, sessionID)
	return uint(len(q.enqueued)), nil
}

func (q *stubQueue) Dequeue(context.Context) (*queue.Task, error) { return nil, nil }

func (q *stubQueue) MarkProcessing(context.Context, uint) error { return nil }

func (q *stubQueue) MarkCompleted(context.Context, uint) error { return nil }

func (q *stubQueue) MarkFailed(context.Context, uint, error) error { return nil }

func (q *stubQueue) GetQueueDepth(context.Context) (int64, error) { return 0, nil }

func newTestRouter(store *memStore, taskQueue *stubQueue) *gin.Engine {
	gin.SetMode(gin.TestMode)

	a := agent.New(agent.Config{
		Repository:  store,
		LLMProvider: stubLLM{},
		Model:       "test-model",
		Logger:      zerolog.Nop(),
	})
	orch := tool.NewOrchestrator(nil, nil, 3, time.Second, zerolog.Nop())
	provider := handlers.NewProvider(a, orch, store, taskQueue, zerolog.Nop())

	engine := gin.New()
	v1 := engine.Group("/v1")
	v1.POST("/conversations", provider.Conversation.Create)
	v1.POST("/conversations/:session_id/messages", provider.Conversation.ProcessMessage)
	v1.GET("/conversations/:session_id", provider.Conversation.Get)
	v1.GET("/conversations/:session_id/messages", provider.Conversation.ListMessages)
	v1.GET("/conversations/:session_id/tools/stats", provider.Conversation.ToolStats)
	v1.POST("/conversations/:session_id/generate", provider.Mashup.Generate)
	v1.GET("/conversations/:session_id/mashups", provider.Mashup.List)
	return engine
}

func TestCreateConversation_MintsSessionID(t *testing.T) {
	store := &memStore{}
	router := newTestRouter(store, &stubQueue{})

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations", strings.NewReader(`{"metadata":{"skill_level":"beginner"}}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	sessionID, _ := resp["session_id"].(string)
	if !strings.HasPrefix(sessionID, "sess_") {
		t.Errorf("session_id = %q, want sess_ prefix", sessionID)
	}
	if resp["phase"] != "initial" {
		t.Errorf("phase = %v, want initial", resp["phase"])
	}
}

func TestProcessMessage_OK(t *testing.T) {
	store := &memStore{}
	router := newTestRouter(store, &stubQueue{})

	body := `{"message": "I want to explore different music genres"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/s1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["phase"] != "initial" {
		t.Errorf("phase = %v, want initial", resp["phase"])
	}
	if resp["phase_transition"] != true {
		t.Errorf("phase_transition = %v, want true", resp["phase_transition"])
	}
	if resp["new_phase"] != "genre_exploration" {
		t.Errorf("new_phase = %v, want genre_exploration", resp["new_phase"])
	}
}

func TestProcessMessage_MissingMessage(t *testing.T) {
	router := newTestRouter(&memStore{}, &stubQueue{})

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/s1/messages", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetConversation_Summary(t *testing.T) {
	store := &memStore{
		conv: &conversation.Conversation{SessionID: "s1", Phase: conversation.PhaseCulturalResearch},
		msgs: []conversation.Message{{Role: conversation.RoleUser, Content: "hi", Sequence: 1}},
	}
	router := newTestRouter(store, &stubQueue{})

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/s1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["phase"] != "cultural_research" {
		t.Errorf("phase = %v, want cultural_research", resp["phase"])
	}
	if resp["message_count"] != float64(1) {
		t.Errorf("message_count = %v, want 1", resp["message_count"])
	}
}

func TestToolStats_DisabledWithoutStore(t *testing.T) {
	router := newTestRouter(&memStore{}, &stubQueue{})

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/s1/tools/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}

func TestGenerate_RequiresReadyPhase(t *testing.T) {
	store := &memStore{
		conv: &conversation.Conversation{SessionID: "s1", Phase: conversation.PhaseGenreExploration},
	}
	q := &stubQueue{}
	router := newTestRouter(store, q)

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/s1/generate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if len(q.enqueued) != 0 {
		t.Errorf("enqueued = %v, want empty", q.enqueued)
	}
}

func TestGenerate_QueuesTask(t *testing.T) {
	store := &memStore{
		conv: &conversation.Conversation{SessionID: "s1", Phase: conversation.PhaseReadyForGeneration},
	}
	q := &stubQueue{}
	router := newTestRouter(store, q)

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations/s1/generate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	if len(q.enqueued) != 1 || q.enqueued[0] != "s1" {
		t.Errorf("enqueued = %v, want [s1]", q.enqueued)
	}
}
