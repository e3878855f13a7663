package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

type ErrorCode string

const (
	// Model invocation
	ErrCodeConfiguration    ErrorCode = "CONFIGURATION_FAILURE"
	ErrCodeRateLimited      ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeTransientService ErrorCode = "TRANSIENT_SERVICE_FAILURE"
	ErrCodeValidation       ErrorCode = "VALIDATION_FAILURE"
	ErrCodeServiceFailure   ErrorCode = "SERVICE_FAILURE"
	ErrCodeLLMTimeout       ErrorCode = "LLM_TIMEOUT"

	// Collaborators
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeResourceNotFound   ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeQueryFailed        ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeSearchQueryFailed  ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeReportWriteFailed  ErrorCode = "REPORT_WRITE_FAILED"
	ErrCodePromptRender       ErrorCode = "PROMPT_RENDER_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// WithMetadata returns a copy of e carrying the extra key. The receiver is left untouched.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	cp := *e
	cp.Metadata = make(map[string]interface{}, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		cp.Metadata[k] = v
	}
	cp.Metadata[key] = value
	return &cp
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		Cause:     cause,
	}
}

func NewConfigurationError(details string) *StandardError {
	return newError(ErrCodeConfiguration, "Model service is not configured", details, false, nil)
}

func NewRateLimitExceededError(attempts int, cause error) *StandardError {
	return newError(ErrCodeRateLimited,
		fmt.Sprintf("Rate limit exceeded after %d attempts", attempts),
		causeText(cause), false, cause)
}

func NewTransientServiceError(attempts int, cause error) *StandardError {
	return newError(ErrCodeTransientService,
		fmt.Sprintf("Server error after %d attempts", attempts),
		causeText(cause), false, cause)
}

func NewValidationError(details string, cause error) *StandardError {
	return newError(ErrCodeValidation, "Model response failed validation", details, false, cause)
}

func NewServiceFailureError(cause error) *StandardError {
	return newError(ErrCodeServiceFailure, "Model service error", causeText(cause), false, cause)
}

func NewLLMTimeoutError(timeout time.Duration, cause error) *StandardError {
	return newError(ErrCodeLLMTimeout, "Model call timed out",
		fmt.Sprintf("attempt exceeded %s", timeout), false, cause)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false, nil)
}

func NewResourceNotFoundError(resource string, id interface{}) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("%s not found", resource),
		fmt.Sprintf("id: %v", id), false, nil)
}

func NewQueryFailedError(operation string, cause error) *StandardError {
	return newError(ErrCodeQueryFailed, "Database query failed",
		fmt.Sprintf("operation: %s, error: %s", operation, causeText(cause)), true, cause)
}

func NewSearchQueryFailedError(index string, cause error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query failed",
		fmt.Sprintf("index: %s, error: %s", index, causeText(cause)), true, cause)
}

func NewNotificationFailedError(channel string, cause error) *StandardError {
	return newError(ErrCodeNotificationFailed, "Notification send failed",
		fmt.Sprintf("channel: %s, error: %s", channel, causeText(cause)), true, cause)
}

func NewReportWriteError(path string, cause error) *StandardError {
	return newError(ErrCodeReportWriteFailed, "Report write failed",
		fmt.Sprintf("path: %s, error: %s", path, causeText(cause)), false, cause)
}

func NewPromptRenderError(details string, cause error) *StandardError {
	return newError(ErrCodePromptRender, "Prompt rendering failed", details, false, cause)
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// CodeOf returns the code of the first StandardError in err's chain, or
// ErrCodeInternal when err carries none.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// IsClassified reports whether err belongs to the model-invocation taxonomy.
func IsClassified(err error) bool {
	switch CodeOf(err) {
	case ErrCodeConfiguration, ErrCodeRateLimited, ErrCodeTransientService,
		ErrCodeValidation, ErrCodeServiceFailure, ErrCodeLLMTimeout,
		ErrCodePromptRender, ErrCodeInvalidInput:
		return true
	}
	return false
}

func IsRateLimit(err error) bool     { return CodeOf(err) == ErrCodeRateLimited }
func IsTransient(err error) bool     { return CodeOf(err) == ErrCodeTransientService }
func IsValidation(err error) bool    { return CodeOf(err) == ErrCodeValidation }
func IsConfiguration(err error) bool { return CodeOf(err) == ErrCodeConfiguration }
func IsNotFound(err error) bool      { return CodeOf(err) == ErrCodeResourceNotFound }

// IsServiceFailure covers the unclassified catch-all and its timeout sub-kind.
func IsServiceFailure(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeServiceFailure || code == ErrCodeLLMTimeout
}

func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeRateLimited, ErrCodeTransientService, ErrCodeServiceFailure:
		return http.StatusServiceUnavailable
	case ErrCodeValidation:
		return http.StatusBadGateway
	case ErrCodeLLMTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeResourceNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// GetRetryCount is the number of job retries a Zeebe worker requests for code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRateLimited, ErrCodeTransientService:
		return 3
	case ErrCodeQueryFailed, ErrCodeSearchQueryFailed, ErrCodeNotificationFailed:
		return 2
	default:
		return 0
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func ConvertToBPMNError(err *StandardError) *BPMNError {
	retries := GetRetryCount(err.Code)
	return &BPMNError{
		Code:           string(err.Code),
		Message:        err.Message,
		Details:        err.Details,
		Retryable:      retries > 0,
		Retries:        retries,
		ErrorVariables: err.Metadata,
	}
}
