package models

import (
	"strings"
)

// Severity levels reported by the backend
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Record statuses
const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
)

// StatusAll and SourceAll disable the corresponding server-side filter
const (
	StatusAll = "all"
	SourceAll = "all"
)

// NormalizeStatus maps a navigation status to its canonical form. "" means
// all; ok is false for anything outside all/open/resolved.
func NormalizeStatus(status string) (string, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "":
		return StatusAll, true
	case StatusAll, StatusOpen, StatusResolved:
		return status, true
	}
	return status, false
}

// ErrorRecord is one error as served by GET /api/errors
type ErrorRecord struct {
	ID                int64      `json:"id"`
	ErrorType         string     `json:"error_type"`
	AffectedComponent string     `json:"affected_component"`
	Message           string     `json:"message"`
	Severity          string     `json:"severity"`
	Status            string     `json:"status"`
	Source            string     `json:"source"`
	InwiseID          string     `json:"inwise_id,omitempty"`
	Timestamp         Timestamp  `json:"timestamp"`
	StackTrace        string     `json:"stack_trace,omitempty"`
	Environment       string     `json:"environment"`
	Impact            string     `json:"impact,omitempty"`
	Resolution        string     `json:"resolution,omitempty"`
	ResolutionTime    *Timestamp `json:"resolution_time,omitempty"`
}

// IsResolved reports whether the record is closed
func (e ErrorRecord) IsResolved() bool {
	return e.Status == StatusResolved
}

// HasResolution reports whether resolution details are attached
func (e ErrorRecord) HasResolution() bool {
	return e.Resolution != ""
}

// Consistent reports whether the status agrees with the resolution fields:
// resolved iff both resolution text and resolution time are present.
func (e ErrorRecord) Consistent() bool {
	hasBoth := e.Resolution != "" && e.ResolutionTime != nil && !e.ResolutionTime.IsZero()
	return e.IsResolved() == hasBoth
}

// ResolveRequest body for POST /api/errors/:id/resolve
type ResolveRequest struct {
	Resolution string `json:"resolution"`
}

// ActionResponse is the generic {status, message} reply of mutating endpoints
type ActionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	ErrorID int64  `json:"error_id,omitempty"`
}

// Succeeded reports whether the backend acknowledged the action
func (r *ActionResponse) Succeeded() bool {
	return r.Status == "success"
}

// SyncRequest body for POST /api/sync
type SyncRequest struct {
	Force bool `json:"force"`
}

// SyncResponse reply of POST /api/sync
type SyncResponse struct {
	Status      string `json:"status,omitempty"`
	Message     string `json:"message,omitempty"`
	ErrorsCount int    `json:"errors_count,omitempty"`
}

// ErrorStats reply of GET /api/errors/stats
type ErrorStats struct {
	TotalErrors        int     `json:"total_errors"`
	HighSeverityOpen   int     `json:"high_severity_open"`
	MediumSeverityOpen int     `json:"medium_severity_open"`
	LowSeverityOpen    int     `json:"low_severity_open"`
	ResolutionRate     float64 `json:"resolution_rate"`
	InwiseErrors       int     `json:"inwise_errors"`
	ManualErrors       int     `json:"manual_errors"`
}

// ErrorReport request payload for manually logging an error
type ErrorReport struct {
	ErrorType         string `json:"error_type"`
	Message           string `json:"message"`
	StackTrace        string `json:"stack_trace,omitempty"`
	Environment       string `json:"environment,omitempty"`
	Severity          string `json:"severity,omitempty"`
	AffectedComponent string `json:"affected_component,omitempty"`
	Impact            string `json:"impact,omitempty"`
}

// Normalize trims whitespace from input fields and lowercases severity
func (r *ErrorReport) Normalize() {
	r.ErrorType = strings.TrimSpace(r.ErrorType)
	r.Message = strings.TrimSpace(r.Message)
	r.StackTrace = strings.TrimSpace(r.StackTrace)
	r.Environment = strings.TrimSpace(r.Environment)
	r.Severity = strings.ToLower(strings.TrimSpace(r.Severity))
	r.AffectedComponent = strings.TrimSpace(r.AffectedComponent)
	r.Impact = strings.TrimSpace(r.Impact)
	if r.Severity == "" {
		r.Severity = SeverityMedium
	}
}

// ValidSeverity reports whether s is one of the known severity levels
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}
