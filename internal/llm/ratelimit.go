package llm

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/resilience"
)

// AdaptiveLimiter wraps a rate.Limiter that backs off on rate-limit errors.
// On success it raises the rate by 20% (up to 2x initial); on a 429 it
// halves the rate (down to initial/4).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	initialRate rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive limiter starting at initialRate.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	if burst < 1 {
		burst = 1
	}
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		initialRate: initialRate,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setLocked(min(a.currentRate*1.2, a.initialRate*2))
}

// OnRateLimit halves the rate, down to initial/4.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setLocked(max(a.currentRate*0.5, a.initialRate/4))
	zap.L().Warn("llm: reducing request rate after rate limit",
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

func (a *AdaptiveLimiter) setLocked(r rate.Limit) {
	a.currentRate = r
	a.limiter.SetLimit(r)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// RateLimited throttles a Generator shared across sessions.
type RateLimited struct {
	next    Generator
	limiter *AdaptiveLimiter
}

// NewRateLimited wraps next with a limiter of rps requests per second. A
// non-positive rps returns next unchanged.
func NewRateLimited(next Generator, rps float64, burst int) Generator {
	if rps <= 0 {
		return next
	}
	return &RateLimited{next: next, limiter: NewAdaptiveLimiter(rate.Limit(rps), burst)}
}

// GenerateText implements Generator.
func (r *RateLimited) GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "llm: rate limiter wait")
	}
	text, err := r.next.GenerateText(ctx, prompt, maxTokens)
	switch {
	case err == nil:
		r.limiter.OnSuccess()
	case resilience.IsRateLimited(err):
		r.limiter.OnRateLimit()
	}
	return text, err
}

// Observed records call metrics for the wrapped Generator.
type Observed struct {
	next    Generator
	service string
}

// NewObserved wraps next, labelling its calls with service.
func NewObserved(next Generator, service string) *Observed {
	return &Observed{next: next, service: service}
}

// GenerateText implements Generator.
func (o *Observed) GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error) {
	start := time.Now()
	text, err := o.next.GenerateText(ctx, prompt, maxTokens)
	metrics.ObserveCall(o.service, start, err)
	return text, err
}
