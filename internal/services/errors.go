package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"google.golang.org/api/googleapi"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrRateLimited   = errors.New("rate limited")
	ErrNotReady      = errors.New("stream not ready")
	ErrTransient     = errors.New("transient failure")
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

var (
	notReadyPattern  = regexp.MustCompile(`(?i)(not\s+ready|invalid\s+transition|ingest[a-z ]*(missing|inactive|not\s+found)|stream\s+is\s+inactive|redundant\s+transition)`)
	rateLimitPattern = regexp.MustCompile(`(?i)(rate\s*limit|quota|too\s+many\s+requests|user\s+requests\s+exceed)`)
	notFoundPattern  = regexp.MustCompile(`(?i)(not\s+found|no\s+longer\s+exists|404)`)
)

// Classify maps an arbitrary error onto one of the sentinel markers. Errors
// already tagged by Wrap pass through unchanged; typed API errors are mapped by
// HTTP status first, then the message patterns act as a fallback for providers
// that only surface text.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, marker := range []error{ErrNotFound, ErrRateLimited, ErrNotReady, ErrConfiguration, ErrValidation, ErrTransient} {
		if errors.Is(err, marker) {
			return marker
		}
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusTooManyRequests:
			return ErrRateLimited
		case http.StatusForbidden:
			if rateLimitPattern.MatchString(apiErr.Error()) {
				return ErrRateLimited
			}
			return ErrConfiguration
		case http.StatusUnauthorized:
			return ErrConfiguration
		case http.StatusBadRequest:
			if notReadyPattern.MatchString(apiErr.Error()) {
				return ErrNotReady
			}
			return ErrValidation
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTransient
	}
	text := err.Error()
	switch {
	case rateLimitPattern.MatchString(text):
		return ErrRateLimited
	case notReadyPattern.MatchString(text):
		return ErrNotReady
	case notFoundPattern.MatchString(text):
		return ErrNotFound
	default:
		return ErrTransient
	}
}

// IsNotFound reports whether the error classifies as a missing remote resource.
func IsNotFound(err error) bool { return errors.Is(Classify(err), ErrNotFound) }

// IsRateLimited reports whether the error classifies as API quota exhaustion.
func IsRateLimited(err error) bool { return errors.Is(Classify(err), ErrRateLimited) }

// IsNotReady reports whether the error indicates the ingest is not yet receiving data.
func IsNotReady(err error) bool { return errors.Is(Classify(err), ErrNotReady) }

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
