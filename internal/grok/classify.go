package grok

import (
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type failureKind int

const (
	failureOther failureKind = iota
	failureRateLimit
	failureTransient
)

func (k failureKind) String() string {
	switch k {
	case failureRateLimit:
		return "rate_limit"
	case failureTransient:
		return "transient"
	default:
		return "other"
	}
}

var transientStatuses = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// classify sorts a transport error into rate-limit, transient or other.
// An HTTP status carried by the client error decides; message text is only
// consulted when no status is available.
func classify(err error) failureKind {
	if status := statusOf(err); status != 0 {
		switch {
		case status == http.StatusTooManyRequests:
			return failureRateLimit
		case transientStatuses[status]:
			return failureTransient
		default:
			return failureOther
		}
	}
	return classifyText(err.Error())
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func classifyText(msg string) failureKind {
	msg = strings.ToLower(msg)
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") {
		return failureRateLimit
	}
	for _, code := range []string{"500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return failureTransient
		}
	}
	return failureOther
}
