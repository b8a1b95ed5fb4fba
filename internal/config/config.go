// Package config loads the options a ConstraintSystem is built with
// (spec.md §6 configuration options table). Values come from an
// optional YAML file and can be overridden in memory; there is no
// database tier — the core keeps no persisted state (spec.md §6:
// "Persisted state: none").
package config

import (
	"strconv"
	"sync"

	"github.com/corewave/dataflow/internal/planner"
)

// Config holds the options recognized by the core, plus a generic
// key/value overlay so a caller can stash extra host-specific settings
// without widening this struct.
type Config struct {
	// ThreadPoolSize: 0 = cooperative mode; >0 = parallel pool of that
	// size (spec.md §6 `thread_pool_size`).
	ThreadPoolSize int `yaml:"thread_pool_size"`

	// MaxJournalEntries caps undo depth; 0 means unbounded (spec.md §6
	// `max_journal_entries`).
	MaxJournalEntries int `yaml:"max_journal_entries"`

	// DefaultStay is the initial stay strength for freshly declared
	// variables (spec.md §6 `default_stay`).
	DefaultStay int64 `yaml:"default_stay"`

	// EmitOk controls whether a variable recovering from Error fires an
	// additional Ok event (spec.md §6 `emit_ok`).
	EmitOk bool `yaml:"emit_ok"`

	// OverconstrainedPolicy resolves spec.md §9's open question: "strict"
	// (default) requires a method that reads every pinned variable
	// without writing any of them; "no_output_satisfies" additionally
	// accepts a zero-output method.
	OverconstrainedPolicy string `yaml:"overconstrained_policy"`

	mu     sync.RWMutex
	values map[string]string
}

// Default returns the zero-configuration defaults: cooperative mode,
// unbounded journal, stay 0, no Ok events, strict overconstrained
// policy.
func Default() Config {
	return Config{OverconstrainedPolicy: "strict"}
}

// Policy resolves the configured policy name to the planner's enum,
// defaulting to PolicyStrict for an empty or unrecognized name.
func (c *Config) Policy() planner.OverconstrainedPolicy {
	if c.OverconstrainedPolicy == "no_output_satisfies" {
		return planner.PolicyNoOutputSatisfies
	}
	return planner.PolicyStrict
}

// Get retrieves an overlay value by key.
func (c *Config) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.values == nil {
		return "", false
	}
	v, ok := c.values[key]
	return v, ok
}

// Set stores an overlay value, also updating the matching struct field
// when key names one of the recognized options.
func (c *Config) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string]string)
	}
	c.values[key] = value

	switch key {
	case "thread_pool_size":
		if n, err := strconv.Atoi(value); err == nil {
			c.ThreadPoolSize = n
		}
	case "max_journal_entries":
		if n, err := strconv.Atoi(value); err == nil {
			c.MaxJournalEntries = n
		}
	case "default_stay":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			c.DefaultStay = n
		}
	case "emit_ok":
		if b, err := strconv.ParseBool(value); err == nil {
			c.EmitOk = b
		}
	case "overconstrained_policy":
		c.OverconstrainedPolicy = value
	}
}
