package models

import "time"

// RuleSeverity is metadata on a rule, not on its result.
type RuleSeverity string

const (
	SeverityCritical RuleSeverity = "critical"
	SeverityWarning  RuleSeverity = "warning"
	SeverityInfo     RuleSeverity = "info"
)

// ValidationError blocks the operation it was raised for.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationWarning is informational and never blocks.
type ValidationWarning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult is transient, never persisted.
type ValidationResult struct {
	IsValid  bool                `json:"isValid"`
	Errors   []ValidationError   `json:"errors"`
	Warnings []ValidationWarning `json:"warnings"`
}

// NewValidationResult returns an empty, valid result.
func NewValidationResult() ValidationResult {
	return ValidationResult{IsValid: true, Errors: []ValidationError{}, Warnings: []ValidationWarning{}}
}

// AddError appends an error and flips the result invalid.
func (r *ValidationResult) AddError(field, code, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Code: code, Message: message})
	r.IsValid = false
}

// AddWarning appends a warning.
func (r *ValidationResult) AddWarning(field, code, message string) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Code: code, Message: message})
}

// Merge folds another result into the receiver.
func (r *ValidationResult) Merge(other ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	if !other.IsValid {
		r.IsValid = false
	}
}

// ErrorMessages returns the human-readable error strings.
func (r ValidationResult) ErrorMessages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

// WarningMessages returns the human-readable warning strings.
func (r ValidationResult) WarningMessages() []string {
	msgs := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		msgs = append(msgs, w.Message)
	}
	return msgs
}

// IntegrityStatus summarises a DataIntegrityReport.
type IntegrityStatus string

const (
	IntegrityStatusValid    IntegrityStatus = "valid"
	IntegrityStatusWarnings IntegrityStatus = "warnings"
	IntegrityStatusErrors   IntegrityStatus = "errors"
)

// RuleOutcome is the result of one rule inside an integrity report.
type RuleOutcome struct {
	Rule        string           `json:"rule"`
	Description string           `json:"description"`
	Severity    RuleSeverity     `json:"severity"`
	Passed      bool             `json:"passed"`
	Result      ValidationResult `json:"result"`
}

// DataIntegrityReport tallies every registered rule against one application.
type DataIntegrityReport struct {
	ApplicationID   string          `json:"applicationId"`
	GeneratedAt     time.Time       `json:"generatedAt"`
	ChecksPassed    int             `json:"checksPassed"`
	ChecksFailed    int             `json:"checksFailed"`
	ChecksWarned    int             `json:"checksWarned"`
	RuleOutcomes    []RuleOutcome   `json:"ruleOutcomes"`
	OverallStatus   IntegrityStatus `json:"overallStatus"`
	Recommendations []string        `json:"recommendations"`
}
