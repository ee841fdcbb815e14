package websearch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"mashup-server/internal/domain/search"
	"mashup-server/internal/infrastructure/websearch"
)

type fakeTavily struct {
	lastQuery string
	results   []map[string]interface{}
}

func (f *fakeTavily) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.lastQuery, _ = body["query"].(string)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"results": f.results})
	}
}

func newClient(t *testing.T, backend *fakeTavily) *websearch.Client {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)
	return websearch.NewClient(websearch.Config{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		MaxResults: 5,
	}, zerolog.Nop())
}

func TestSearch_EnhancesQueryWithContext(t *testing.T) {
	backend := &fakeTavily{}
	client := newClient(t, backend)

	_, err := client.Search(context.Background(), "jazz history", search.Context{
		SkillLevel:       "beginner",
		Genres:           []string{"jazz", "blues", "rock"},
		CulturalElements: []string{"heritage"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	for _, want := range []string{
		"jazz history",
		"music theory basics",
		"cultural significance heritage",
		"jazz music history",
		"blues music history",
		"educational content",
		"music education",
	} {
		if !strings.Contains(backend.lastQuery, want) {
			t.Errorf("enhanced query missing %q: %q", want, backend.lastQuery)
		}
	}
	// Only the first two genres feed the query.
	if strings.Contains(backend.lastQuery, "rock music history") {
		t.Errorf("enhanced query includes third genre: %q", backend.lastQuery)
	}
}

func TestSearch_FiltersNonEducationalResults(t *testing.T) {
	backend := &fakeTavily{
		results: []map[string]interface{}{
			{
				"title":   "History of Jazz - Wikipedia",
				"url":     "https://en.wikipedia.org/wiki/Jazz",
				"content": "Jazz is a music genre that originated in New Orleans.",
			},
			{
				"title":   "Buy cheap concert tickets",
				"url":     "https://tickets.example.com/jazz",
				"content": "Best prices on tickets.",
			},
			{
				"title": "Untitled",
				"url":   "",
			},
		},
	}
	client := newClient(t, backend)

	resp, err := client.Search(context.Background(), "jazz", search.Context{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if resp.TotalResults != 1 {
		t.Fatalf("TotalResults = %d, want 1", resp.TotalResults)
	}
	if resp.Results[0].URL != "https://en.wikipedia.org/wiki/Jazz" {
		t.Errorf("Results[0].URL = %q", resp.Results[0].URL)
	}
	if !resp.ServiceAvailable {
		t.Error("ServiceAvailable = false, want true")
	}
}

func TestSearch_RanksEducationalDomainsFirst(t *testing.T) {
	backend := &fakeTavily{
		results: []map[string]interface{}{
			{
				"title":   "A short jazz lesson",
				"url":     "http://blog.example.com/jazz-lesson",
				"content": "lesson notes",
			},
			{
				"title":   "Jazz history and cultural significance",
				"url":     "https://www.britannica.com/art/jazz",
				"content": strings.Repeat("Jazz emerged from blues and ragtime traditions. ", 20),
			},
		},
	}
	client := newClient(t, backend)

	resp, err := client.Search(context.Background(), "jazz", search.Context{Genres: []string{"jazz"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(resp.Results))
	}
	if !strings.Contains(resp.Results[0].URL, "britannica.com") {
		t.Errorf("Results[0].URL = %q, want britannica first", resp.Results[0].URL)
	}
	if resp.Results[0].Relevance <= resp.Results[1].Relevance {
		t.Errorf("Relevance not descending: %v then %v", resp.Results[0].Relevance, resp.Results[1].Relevance)
	}
}

func TestSearch_UnavailableWithoutAPIKey(t *testing.T) {
	client := websearch.NewClient(websearch.Config{BaseURL: "http://localhost:0"}, zerolog.Nop())

	if client.Available() {
		t.Error("Available() = true, want false")
	}

	resp, err := client.Search(context.Background(), "jazz", search.Context{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.ServiceAvailable {
		t.Error("ServiceAvailable = true, want false")
	}
	if resp.Error == "" {
		t.Error("Error is empty, want unavailable notice")
	}
	if len(resp.Results) != 0 {
		t.Errorf("len(Results) = %d, want 0", len(resp.Results))
	}
}

func TestSearch_BackendErrorSurfacesAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := websearch.NewClient(websearch.Config{BaseURL: srv.URL, APIKey: "k"}, zerolog.Nop())
	if _, err := client.Search(context.Background(), "jazz", search.Context{}); err == nil {
		t.Fatal("Search returned nil error, want backend failure")
	}
}
