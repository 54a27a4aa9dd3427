package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/Fantasim/btcconnect/internal/api/httputil"
	"github.com/Fantasim/btcconnect/internal/config"
)

// PromptLimiter is a token bucket shared by every endpoint that can open a
// wallet popup. Requests over the limit fail fast instead of queueing prompts.
type PromptLimiter struct {
	limiter    *rate.Limiter
	onThrottle func(path string)
}

// NewPromptLimiter allows rps prompts per second with the given burst.
// onThrottle, if non-nil, is told about every refused request.
func NewPromptLimiter(rps, burst int, onThrottle func(path string)) *PromptLimiter {
	slog.Debug("prompt limiter created", "rps", rps, "burst", burst)
	return &PromptLimiter{
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		onThrottle: onThrottle,
	}
}

// Limit is the middleware. Refused requests get 429 with Retry-After.
func (p *PromptLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := p.limiter.Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			slog.Warn("wallet prompt throttled",
				"path", r.URL.Path,
				"retryAfter", delay.String(),
				"remoteAddr", r.RemoteAddr,
			)
			if p.onThrottle != nil {
				p.onThrottle(r.URL.Path)
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(delay)))
			httputil.Error(w, http.StatusTooManyRequests, config.ErrorRateLimited, config.ErrRateLimited.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
