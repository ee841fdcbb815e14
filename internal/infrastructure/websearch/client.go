// Package websearch is the Tavily-backed implementation of the search
// provider, specialised for educational music content: queries are enriched
// with the session's learning context and raw hits are filtered and scored
// for educational value before they reach the orchestrator.
package websearch

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"mashup-server/internal/domain/search"
)

const minQualityScore = 0.3

var whitespaceRE = regexp.MustCompile(`\s+`)

var educationalDomains = []string{
	".edu", ".org", "wikipedia.org", "britannica.com",
	"khanacademy.org", "musictheory.net", "teoria.com",
}

var educationalKeywords = []string{
	"music theory", "musical", "education", "learn", "tutorial",
	"lesson", "guide", "history", "cultural", "traditional",
	"academic", "scholarly", "research", "study",
}

var inappropriateKeywords = []string{"adult", "explicit", "inappropriate", "nsfw"}

// Config tunes the search client.
type Config struct {
	BaseURL     string
	APIKey      string
	SearchDepth string
	MaxResults  int
}

// Client implements search.Provider against the Tavily REST API.
type Client struct {
	httpClient  *resty.Client
	apiKey      string
	searchDepth string
	maxResults  int
	logger      zerolog.Logger
}

// NewClient constructs the search client. With an empty API key the client
// stays constructible but reports itself unavailable.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.SearchDepth == "" {
		cfg.SearchDepth = "basic"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	return &Client{
		httpClient: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetHeader("Content-Type", "application/json").
			SetTimeout(30 * time.Second),
		apiKey:      cfg.APIKey,
		searchDepth: cfg.SearchDepth,
		maxResults:  cfg.MaxResults,
		logger:      logger.With().Str("component", "websearch").Logger(),
	}
}

// Available reports whether the backend is configured.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

// Search runs one educational content search. A missing backend degrades to
// an explicit unavailable response rather than an error.
func (c *Client) Search(ctx context.Context, query string, sc search.Context) (*search.Response, error) {
	enhanced := enhanceQuery(query, sc)
	if !c.Available() {
		resp := search.Unavailable(query)
		resp.EnhancedQuery = enhanced
		return resp, nil
	}

	var payload tavilyResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(tavilyRequest{
			APIKey:      c.apiKey,
			Query:       enhanced,
			SearchDepth: c.searchDepth,
			MaxResults:  c.maxResults,
		}).
		SetResult(&payload).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search api error: %s", resp.Status())
	}

	filtered := filterResults(payload.Results, sc)
	c.logger.Debug().
		Str("query", query).
		Int("raw", len(payload.Results)).
		Int("filtered", len(filtered)).
		Msg("search results filtered")

	return &search.Response{
		Query:            query,
		EnhancedQuery:    enhanced,
		Results:          filtered,
		TotalResults:     len(filtered),
		ServiceAvailable: true,
	}, nil
}

// enhanceQuery appends skill-level, cultural, and genre cues plus an
// educational focus to the raw query.
func enhanceQuery(query string, sc search.Context) string {
	parts := []string{query}

	switch strings.ToLower(sc.SkillLevel) {
	case "beginner":
		parts = append(parts, "music theory basics")
	case "advanced":
		parts = append(parts, "advanced music theory")
	}

	for i, element := range sc.CulturalElements {
		if i >= 2 {
			break
		}
		parts = append(parts, "cultural significance "+element)
	}
	for i, genre := range sc.Genres {
		if i >= 2 {
			break
		}
		parts = append(parts, genre+" music history")
	}

	parts = append(parts, "educational content", "music education")
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(strings.Join(parts, " "), " "))
}

// filterResults drops invalid, non-educational, and low-quality hits, then
// orders the survivors by relevance.
func filterResults(raw []tavilyResult, sc search.Context) []search.Result {
	var filtered []search.Result
	for _, r := range raw {
		if r.Title == "" || r.URL == "" {
			continue
		}
		if !isEducational(r) {
			continue
		}
		quality := sourceQuality(r)
		if quality < minQualityScore {
			continue
		}
		filtered = append(filtered, search.Result{
			Title:     r.Title,
			URL:       r.URL,
			Snippet:   r.Content,
			Relevance: quality + contextAlignment(r, sc),
		})
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Relevance > filtered[j].Relevance
	})
	return filtered
}

func isEducational(r tavilyResult) bool {
	url := strings.ToLower(r.URL)
	for _, domain := range educationalDomains {
		if strings.Contains(url, domain) {
			return true
		}
	}

	text := strings.ToLower(r.Title + " " + r.Content)
	for _, keyword := range inappropriateKeywords {
		if strings.Contains(text, keyword) {
			return false
		}
	}
	for _, keyword := range educationalKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// sourceQuality scores a hit between 0 and 1 from domain reputation, content
// length, title shape, and transport.
func sourceQuality(r tavilyResult) float64 {
	score := 0.5

	url := strings.ToLower(r.URL)
	for _, domain := range educationalDomains {
		if strings.Contains(url, domain) {
			score += 0.3
			break
		}
	}

	switch {
	case len(r.Content) > 500:
		score += 0.1
	case len(r.Content) > 200:
		score += 0.05
	}

	if len(r.Title) > 10 && len(r.Title) < 100 {
		score += 0.05
	}
	if strings.HasPrefix(url, "https://") {
		score += 0.05
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

var (
	beginnerAlignment = []string{"basic", "beginner", "introduction", "fundamental"}
	advancedAlignment = []string{"advanced", "complex", "sophisticated", "expert"}
)

func contextAlignment(r tavilyResult, sc search.Context) float64 {
	text := strings.ToLower(r.Title + " " + r.Content)
	alignment := 0.0

	var cues []string
	switch strings.ToLower(sc.SkillLevel) {
	case "beginner", "basic":
		cues = beginnerAlignment
	case "intermediate", "advanced":
		cues = advancedAlignment
	}
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			alignment += 0.2
			break
		}
	}

	for _, genre := range sc.Genres {
		if strings.Contains(text, strings.ToLower(genre)) {
			alignment += 0.15
		}
	}
	return alignment
}

// Ensure interface compliance.
var _ search.Provider = (*Client)(nil)
