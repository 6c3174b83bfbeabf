package model

import (
	"errors"
	"fmt"
)

// PublishErrorCode classifies publisher failures. Transient network errors and
// rate limits are retry-eligible; the rest require operator action.
type PublishErrorCode string

const (
	PublishErrAuthExpired        PublishErrorCode = "auth_expired"
	PublishErrRateLimited        PublishErrorCode = "rate_limited"
	PublishErrValidationRejected PublishErrorCode = "validation_rejected"
	PublishErrTransientNetwork   PublishErrorCode = "transient_network"
	PublishErrUnknown            PublishErrorCode = "unknown"
)

// PublishError is the typed failure returned by a platform publisher.
type PublishError struct {
	Code     PublishErrorCode
	Platform string
	Message  string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Platform, e.Message, e.Code)
}

// Retryable reports whether the failure is worth re-attempting as-is.
func (e *PublishError) Retryable() bool {
	return e.Code == PublishErrRateLimited || e.Code == PublishErrTransientNetwork
}

// NewPublishError builds a typed publish error for a platform.
func NewPublishError(platform string, code PublishErrorCode, message string) *PublishError {
	return &PublishError{Code: code, Platform: platform, Message: message}
}

// AsPublishError coerces any error into a PublishError; errors the publishers
// did not classify come back as unknown.
func AsPublishError(platform string, err error) *PublishError {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe
	}
	return &PublishError{Code: PublishErrUnknown, Platform: platform, Message: err.Error()}
}
