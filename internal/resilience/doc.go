// Package resilience groups the fault tolerance helpers used around the
// session store, the document database connection and the LLM advisor.
//
//   - circuitbreaker wraps github.com/sony/gobreaker. The anonymous session
//     resolver runs store calls through a breaker so an unhealthy store makes
//     resolution fail open instead of stalling every request.
//   - retry implements exponential backoff with jitter for startup
//     connections and advisor calls.
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.SessionStoreConfig())
//	sess, err := circuitbreaker.Do(cb, func() (*entity.AnonymousSession, error) {
//	    return repo.Get(ctx, id)
//	})
//
//	err := retry.WithBackoff(ctx, retry.AIAPIConfig(), func() error {
//	    return callAdvisor()
//	})
package resilience
