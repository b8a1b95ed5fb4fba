package activation

import "errors"

// Sentinel causes surfaced from a method execution (spec.md §7).
var (
	// ErrMethodNotRegistered means a plan named a method the engine has
	// no registered body for — a wiring bug in the host, not a runtime
	// condition a user edit can trigger.
	ErrMethodNotRegistered = errors.New("activation: method not registered")

	// ErrUpstreamFailed marks an output whose method was never invoked
	// because an input along the plan's edges already carries an error
	// (spec.md §4.D transitive propagation).
	ErrUpstreamFailed = errors.New("activation: upstream method failed")
)
