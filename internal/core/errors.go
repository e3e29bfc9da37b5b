package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions. Each category maps
// to exactly one disposition: some are returned to the model as tool-result
// strings, some are surfaced to the human supervisor, some are structured
// results rather than raised at all.
type ErrorCategory string

const (
	ErrCatSecurity           ErrorCategory = "security"            // path escape, protected path
	ErrCatResourceLimit      ErrorCategory = "resource_limit"       // file too large, too many writes
	ErrCatApprovalPending    ErrorCategory = "approval_pending"     // write funneled to human approval
	ErrCatTransport          ErrorCategory = "transport"            // model client / network failure
	ErrCatToolMalformed      ErrorCategory = "tool_malformed"       // tool call missing a required field
	ErrCatTruncation         ErrorCategory = "truncation"           // max-token stop with discarded tool calls
	ErrCatPhaseTransition    ErrorCategory = "phase_transition"     // unassigned tasks, dependency cycle
	ErrCatMergeConflict      ErrorCategory = "merge_conflict"       // VCS merge produced conflicts
	ErrCatVCS                ErrorCategory = "vcs"                  // not a repo, dirty main, wrong branch
	ErrCatDrift              ErrorCategory = "drift"                // completion claim violates task constraints
	ErrCatCheckpointCorrupt  ErrorCategory = "checkpoint_corrupt"   // unreadable checkpoint/state file
	ErrCatValidation         ErrorCategory = "validation"           // generic invalid input
	ErrCatNotFound           ErrorCategory = "not_found"            // resource not found
	ErrCatInternal           ErrorCategory = "internal"             // unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target by category and code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrSecurity creates a security error (path escape, protected path). The
// file mediator returns these as tool-result error strings; they never kill
// the session.
func ErrSecurity(code, message string) *DomainError {
	return &DomainError{Category: ErrCatSecurity, Code: code, Message: message}
}

// ErrResourceLimit creates a resource-limit error (oversized file, too many
// writes this turn). Returned as a tool-result error string.
func ErrResourceLimit(code, message string) *DomainError {
	return &DomainError{Category: ErrCatResourceLimit, Code: code, Message: message}
}

// ErrApprovalPending creates an error representing a write funneled to
// human approval rather than rejected outright.
func ErrApprovalPending(approvalID, path string) *DomainError {
	return &DomainError{
		Category: ErrCatApprovalPending,
		Code:     "APPROVAL_PENDING",
		Message:  fmt.Sprintf("Pending approval [%s]: write to %s", approvalID, path),
		Details:  map[string]interface{}{"approval_id": approvalID, "path": path},
	}
}

// ErrTransport creates a model/transport error. These bubble up and cancel
// the session; resumption relies on the on-disk log and resumable state.
func ErrTransport(message string) *DomainError {
	return &DomainError{Category: ErrCatTransport, Code: "MODEL_TRANSPORT", Message: message, Retryable: true}
}

// ErrToolMalformed creates a tool-call-malformed error (missing required
// field). Returned as an error string to the model; the turn continues.
func ErrToolMalformed(tool, message string) *DomainError {
	return &DomainError{
		Category: ErrCatToolMalformed,
		Code:     "TOOL_CALL_MALFORMED",
		Message:  message,
		Details:  map[string]interface{}{"tool": tool},
	}
}

// ErrTruncation creates a max-token-truncation error.
func ErrTruncation(message string) *DomainError {
	return &DomainError{Category: ErrCatTruncation, Code: "MAX_TOKEN_TRUNCATION", Message: message}
}

// ErrPhaseTransition creates a phase-transition-precondition error (an
// unassigned task, a dependency cycle). The phase controller aborts the
// transition and surfaces this to the supervisor.
func ErrPhaseTransition(code, message string) *DomainError {
	return &DomainError{Category: ErrCatPhaseTransition, Code: code, Message: message}
}

// ErrMergeConflict creates a merge-conflict error, carrying the conflicted
// file list. The VCS adapter returns this as a structured result, not a
// raised error; the constructor exists for callers that need the
// errors.As-compatible shape.
func ErrMergeConflict(branch string, files []string) *DomainError {
	return &DomainError{
		Category: ErrCatMergeConflict,
		Code:     "MERGE_CONFLICT",
		Message:  fmt.Sprintf("merging %s produced %d conflicted file(s)", branch, len(files)),
		Details:  map[string]interface{}{"branch": branch, "files": files},
	}
}

// ErrVCS creates a VCS hard error (not a repo, dirty main, wrong branch).
// Surfaced to the supervisor; the session is never started.
func ErrVCS(code, message string) *DomainError {
	return &DomainError{Category: ErrCatVCS, Code: code, Message: message}
}

// ErrDrift creates a drift-detected error. The executor reverts affected
// tasks and injects the message into the same loop so the agent can react.
func ErrDrift(taskID, message string) *DomainError {
	return &DomainError{
		Category: ErrCatDrift,
		Code:     "DRIFT_DETECTED",
		Message:  message,
		Details:  map[string]interface{}{"task_id": taskID},
	}
}

// ErrCheckpointCorrupt creates a checkpoint/state corruption error. Callers
// treat this as "no state" and start fresh for that subsystem.
func ErrCheckpointCorrupt(message string, cause error) *DomainError {
	return &DomainError{Category: ErrCatCheckpointCorrupt, Code: "CHECKPOINT_CORRUPT", Message: message, Cause: cause}
}

// ErrValidation creates a generic validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{Category: ErrCatValidation, Code: code, Message: message}
}

// ErrNotFound creates a not-found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category: ErrCatNotFound,
		Code:     "NOT_FOUND",
		Message:  fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrInternal creates an unexpected internal error.
func ErrInternal(message string, cause error) *DomainError {
	return &DomainError{Category: ErrCatInternal, Code: "INTERNAL", Message: message, Cause: cause}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category, defaulting to internal for
// errors that are not a *DomainError.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}
