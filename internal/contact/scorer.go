package contact

import (
	"math/rand/v2"
	"sync"
)

// Origin is where the text handed to the parser came from.
type Origin string

// Text origins.
const (
	OriginSnippet Origin = "snippet"
	OriginPage    Origin = "page"
)

// Band returns the inclusive confidence range for the origin.
func (o Origin) Band() (lo, hi int) {
	if o == OriginPage {
		return 70, 95
	}
	return 60, 80
}

// Scorer assigns a confidence to a parsed contact.
type Scorer interface {
	Score(origin Origin) int
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(origin Origin) int

// Score implements Scorer.
func (f ScorerFunc) Score(origin Origin) int { return f(origin) }

// RandomScorer draws uniformly from the origin's band. It is a placeholder
// signal, not a calibrated probability.
type RandomScorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomScorer creates a RandomScorer. A nil rng uses a randomly seeded
// PCG source.
func NewRandomScorer(rng *rand.Rand) *RandomScorer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomScorer{rng: rng}
}

// Score implements Scorer.
func (s *RandomScorer) Score(origin Origin) int {
	lo, hi := origin.Band()
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.IntN(hi-lo+1)
}

// FixedScorer returns a constant per origin.
type FixedScorer struct {
	Snippet int
	Page    int
}

// Score implements Scorer.
func (s FixedScorer) Score(origin Origin) int {
	if origin == OriginPage {
		return s.Page
	}
	return s.Snippet
}
