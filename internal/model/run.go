package model

import "time"

// RunStatus is the stage a pipeline run is in.
type RunStatus string

const (
	RunStatusIdle              RunStatus = "idle"
	RunStatusGeneratingQueries RunStatus = "generating_queries"
	RunStatusSearching         RunStatus = "searching"
	RunStatusDirectParsing     RunStatus = "direct_parsing"
	RunStatusFetchingURL       RunStatus = "fetching_url"
	RunStatusPageParsing       RunStatus = "page_parsing"
	RunStatusAggregating       RunStatus = "aggregating"
	RunStatusSucceeded         RunStatus = "succeeded"
	RunStatusPartialSuccess    RunStatus = "partial_success"
	RunStatusNoResults         RunStatus = "no_results"
	RunStatusFailed            RunStatus = "failed"
)

// Terminal reports whether the status ends a run.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusPartialSuccess, RunStatusNoResults, RunStatusFailed:
		return true
	default:
		return false
	}
}

// QueryReport summarizes what happened for one search query.
type QueryReport struct {
	Query         string   `json:"query"`
	SearchResults int      `json:"search_results"`
	SnippetParsed bool     `json:"snippet_parsed"`
	URLs          []string `json:"urls,omitempty"`
	Fallbacks     int      `json:"fallbacks"`
	Candidates    int      `json:"candidates"`
	Errors        []string `json:"errors,omitempty"`
}

// RunState is the full observable state of one pipeline run. The
// orchestrator owns it while the run is active and returns it to the caller.
type RunState struct {
	ID          string             `json:"id"`
	User        string             `json:"user,omitempty"`
	Persona     string             `json:"persona"`
	Status      RunStatus          `json:"status"`
	Queries     []string           `json:"queries"`
	Reports     []QueryReport      `json:"reports"`
	Candidates  []ContactCandidate `json:"-"`
	Results     ResultSet          `json:"results"`
	Message     string             `json:"message,omitempty"`
	Error       string             `json:"error,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is active.
func (s *RunState) Duration() time.Duration {
	if s.CompletedAt.IsZero() {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}
