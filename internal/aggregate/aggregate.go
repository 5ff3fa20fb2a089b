// Package aggregate merges contact candidates into a result set and keeps a
// bounded run history.
package aggregate

import (
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Aggregate dedupes candidates by exact email, keeping the first occurrence,
// and truncates to limit. A non-positive limit uses model.MaxResults.
func Aggregate(candidates []model.ContactCandidate, limit int) model.ResultSet {
	if limit <= 0 {
		limit = model.MaxResults
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make(model.ResultSet, 0, min(len(candidates), limit))
	for _, c := range candidates {
		if _, dup := seen[c.Email]; dup {
			continue
		}
		seen[c.Email] = struct{}{}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out
}

// NewEntry builds the history entry for a completed run.
func NewEntry(persona string, results model.ResultSet, now time.Time) model.HistoryEntry {
	return model.HistoryEntry{
		ID:          uuid.NewString(),
		Persona:     persona,
		Timestamp:   now,
		ResultCount: len(results),
	}
}
