// Package usagelimit decides whether an anonymous session may use a
// rate-limited feature.
//
// The limiter is a pure function of the session's usage counters and a limits
// map. It never mutates state, so the same check serves as a pre-flight gate
// (deny before doing work) and as an informational report of remaining quota
// attached to successful responses.
//
// Limits apply per session lifetime, not per day.
package usagelimit
