package config

import "fmt"

// ValidationResult contains the results of configuration validation.
// Separates errors (blocking issues) from warnings (non-blocking issues).
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// IsValid returns true if there are no validation errors.
func (vr *ValidationResult) IsValid() bool { return len(vr.Errors) == 0 }

// HasWarnings returns true if there are any validation warnings.
func (vr *ValidationResult) HasWarnings() bool { return len(vr.Warnings) > 0 }

func (vr *ValidationResult) AddError(msg string)   { vr.Errors = append(vr.Errors, msg) }
func (vr *ValidationResult) AddWarning(msg string) { vr.Warnings = append(vr.Warnings, msg) }

// Merge combines multiple validation results into a single result.
func (vr *ValidationResult) Merge(other ValidationResult) {
	vr.Errors = append(vr.Errors, other.Errors...)
	vr.Warnings = append(vr.Warnings, other.Warnings...)
}

// ValidateThreadPoolSize checks that a thread_pool_size is non-negative.
// 0 is valid — it selects cooperative mode.
func ValidateThreadPoolSize(n int) ValidationResult {
	result := ValidationResult{}
	if n < 0 {
		result.AddError(fmt.Sprintf("thread_pool_size %d is invalid: must be >= 0 (0 = cooperative mode)", n))
	}
	return result
}

// ValidateMaxJournalEntries checks that a max_journal_entries is
// non-negative. 0 is valid — it means unbounded.
func ValidateMaxJournalEntries(n int) ValidationResult {
	result := ValidationResult{}
	if n < 0 {
		result.AddError(fmt.Sprintf("max_journal_entries %d is invalid: must be >= 0 (0 = unbounded)", n))
	}
	return result
}

// ValidateOverconstrainedPolicy checks that a policy name is one this
// build recognizes, warning (not failing) on an unrecognized name since
// Config.Policy already falls back to PolicyStrict for it.
func ValidateOverconstrainedPolicy(name string) ValidationResult {
	result := ValidationResult{}
	switch name {
	case "", "strict", "no_output_satisfies":
	default:
		result.AddWarning(fmt.Sprintf("overconstrained_policy %q is not recognized, falling back to strict", name))
	}
	return result
}

// ValidateConfig validates an entire configuration object, aggregating
// results from every field-level validator.
func ValidateConfig(cfg *Config) ValidationResult {
	result := ValidationResult{}
	result.Merge(ValidateThreadPoolSize(cfg.ThreadPoolSize))
	result.Merge(ValidateMaxJournalEntries(cfg.MaxJournalEntries))
	result.Merge(ValidateOverconstrainedPolicy(cfg.OverconstrainedPolicy))
	return result
}
