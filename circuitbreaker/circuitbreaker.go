// Package circuitbreaker trips a provider offline after consecutive
// upstream failures so a dead lyrics source stops eating request time.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"lrcsync-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// State is the breaker position.
type State int

const (
	StateClosed   State = iota // upstream healthy, requests flow
	StateOpen                  // upstream tripped, requests blocked
	StateHalfOpen              // one trial request in flight
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrCircuitOpen is returned to callers while the breaker blocks requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds the trip and recovery knobs for one breaker.
type Config struct {
	Name            string        // used in log lines
	Threshold       int           // consecutive failures before tripping
	Cooldown        time.Duration // time blocked before a trial request
	HalfOpenTimeout time.Duration // how long a trial may run before re-tripping
}

// CircuitBreaker tracks consecutive failures against one upstream.
type CircuitBreaker struct {
	name            string
	threshold       int
	cooldown        time.Duration
	halfOpenTimeout time.Duration

	mu          sync.RWMutex
	state       State
	failures    int
	lastFailure time.Time // also marks when the breaker tripped
	trialStart  time.Time // when the half-open trial began
}

// New creates a breaker, filling in defaults for any zero Config field.
func New(cfg Config) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.HalfOpenTimeout <= 0 {
		cfg.HalfOpenTimeout = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	return &CircuitBreaker{
		name:            cfg.Name,
		threshold:       cfg.Threshold,
		cooldown:        cfg.Cooldown,
		halfOpenTimeout: cfg.HalfOpenTimeout,
		state:           StateClosed,
	}
}

// Allow reports whether a request may proceed, advancing the state
// machine as a side effect: an expired cooldown moves OPEN to HALF-OPEN
// (admitting one trial), and an expired trial moves HALF-OPEN back to
// OPEN.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.cooldown {
			return false
		}
		cb.state = StateHalfOpen
		cb.trialStart = time.Now()
		log.Infof("%s Cooldown passed, transitioning to HALF-OPEN", logcolors.CircuitBreakerPrefix(cb.name))
		return true

	case StateHalfOpen:
		if time.Since(cb.trialStart) >= cb.halfOpenTimeout {
			cb.trip("Trial request timed out")
			return false
		}
		// A trial is already in flight; everyone else waits.
		return false

	default:
		return true
	}
}

// RecordSuccess clears the failure streak. A successful half-open trial
// closes the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateClosed
		cb.failures = 0
		log.Infof("%s Trial request succeeded, transitioning to CLOSED", logcolors.CircuitBreakerPrefix(cb.name))
	case StateClosed:
		cb.failures = 0
	}
}

// RecordFailure extends the failure streak, tripping the breaker once
// the streak reaches the threshold. A failed half-open trial re-trips
// immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	switch cb.state {
	case StateHalfOpen:
		cb.trip("Trial request failed")

	case StateClosed:
		if cb.failures == cb.warnAt() {
			log.Warnf("%s High failure rate: %d/%d consecutive failures",
				logcolors.CircuitBreakerPrefix(cb.name), cb.failures, cb.threshold)
		}
		if cb.failures >= cb.threshold {
			cb.trip("Threshold reached")
		}
	}
}

// trip moves the breaker to OPEN. Callers hold the lock.
func (cb *CircuitBreaker) trip(reason string) {
	cb.state = StateOpen
	cb.lastFailure = time.Now()
	log.Warnf("%s %s (%d failures), transitioning to OPEN (cooldown: %v)",
		logcolors.CircuitBreakerPrefix(cb.name), reason, cb.failures, cb.cooldown)
}

// warnAt is the streak length that triggers an early warning, 60% of
// the threshold but never below 2. Callers hold the lock.
func (cb *CircuitBreaker) warnAt() int {
	w := (cb.threshold * 3) / 5
	if w < 2 {
		w = 2
	}
	return w
}

// State returns the current breaker position.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// Stats returns the state, failure streak, and last failure time in one
// consistent snapshot.
func (cb *CircuitBreaker) Stats() (state State, failures int, lastFailure time.Time) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state, cb.failures, cb.lastFailure
}

// TimeUntilRetry reports how long until the breaker next admits a
// request: remaining cooldown when OPEN, remaining trial window when
// HALF-OPEN, zero when CLOSED.
func (cb *CircuitBreaker) TimeUntilRetry() time.Duration {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	var remaining time.Duration
	switch cb.state {
	case StateOpen:
		remaining = cb.cooldown - time.Since(cb.lastFailure)
	case StateHalfOpen:
		remaining = cb.halfOpenTimeout - time.Since(cb.trialStart)
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset forces the breaker back to CLOSED, clearing all failure state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.lastFailure = time.Time{}
	cb.trialStart = time.Time{}
	log.Infof("%s Manually reset to CLOSED", logcolors.CircuitBreakerPrefix(cb.name))
}
