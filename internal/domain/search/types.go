// Package search defines the contract for the external web-search backend
// consumed by the tool orchestrator.
package search

import "context"

// Provider is the external search collaborator. Implementations must tolerate
// being unavailable: expected failure modes are reported through the Error
// field of Response, not by panicking.
type Provider interface {
	// Search runs one query enhanced with the supplied context and returns
	// ranked results. A non-nil error indicates the call itself failed
	// (transport error, timeout); a Response with a non-empty Error field
	// indicates the backend answered but could not serve the query.
	Search(ctx context.Context, query string, sc Context) (*Response, error)

	// Available reports whether the backend is configured and reachable
	// enough to attempt searches at all.
	Available() bool
}

// Context carries conversation signals used to enhance queries.
type Context struct {
	SkillLevel       string   `json:"skill_level,omitempty"`
	Genres           []string `json:"genres,omitempty"`
	CulturalElements []string `json:"cultural_elements,omitempty"`
}

// Result is one ranked search hit.
type Result struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Snippet   string  `json:"snippet,omitempty"`
	Relevance float64 `json:"relevance,omitempty"`
}

// Response is the structured outcome of one search call.
type Response struct {
	Query            string   `json:"query"`
	EnhancedQuery    string   `json:"enhanced_query"`
	Results          []Result `json:"results"`
	TotalResults     int      `json:"total_results"`
	ServiceAvailable bool     `json:"service_available"`
	Error            string   `json:"error,omitempty"`
}

// Unavailable builds the degraded response used when the backend cannot be
// exercised at all.
func Unavailable(query string) *Response {
	return &Response{
		Query:            query,
		EnhancedQuery:    query,
		Results:          []Result{},
		ServiceAvailable: false,
		Error:            "web search service not available",
	}
}
