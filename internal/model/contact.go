package model

import "time"

// Unknown is the placeholder used for contact fields the model did not return.
const Unknown = "Unknown"

// Source labels assigned when a parsed entry does not name its own source.
const (
	SourceLinkedIn      = "LinkedIn"
	SourceWebSearch     = "Web Search"
	SourceSearchResults = "Search Results"
)

// MaxResults caps the number of contacts kept per run.
const MaxResults = 10

// ContactCandidate is a contact record extracted by the language model.
// It is a candidate only: nothing about it has been verified.
type ContactCandidate struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Company    string `json:"company"`
	Title      string `json:"title"`
	Confidence int    `json:"confidence"`
	Source     string `json:"source"`
}

// ResultSet is the aggregated, email-unique output of a run in
// first-occurrence order.
type ResultSet []ContactCandidate

// Emails returns the email of each result in order.
func (rs ResultSet) Emails() []string {
	out := make([]string, len(rs))
	for i, c := range rs {
		out[i] = c.Email
	}
	return out
}

// HistoryEntry records a completed run for display.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Persona     string    `json:"persona"`
	Timestamp   time.Time `json:"timestamp"`
	ResultCount int       `json:"result_count"`
}
