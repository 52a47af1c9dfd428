package lookup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"marquee/internal/services"
)

// Failure taxonomy. Rate limits and unavailability are transient; auth and
// blocked requests are permanent for the current run.
var (
	ErrRateLimited = fmt.Errorf("rate limited: %w", services.ErrTransient)
	ErrUnavailable = fmt.Errorf("service unavailable: %w", services.ErrTransient)
	ErrAuth        = fmt.Errorf("credentials rejected: %w", services.ErrPermanent)
	ErrBlocked     = fmt.Errorf("request rejected: %w", services.ErrPermanent)
)

// Class is the retry classification of a lookup failure.
type Class string

const (
	ClassNone        Class = ""
	ClassRateLimited Class = "rate_limited"
	ClassUnavailable Class = "unavailable"
	ClassPermanent   Class = "permanent"
	ClassCancelled   Class = "cancelled"
)

// Classify maps any error returned by a client to its retry class.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, context.Canceled):
		return ClassCancelled
	case errors.Is(err, ErrRateLimited):
		return ClassRateLimited
	case errors.Is(err, ErrUnavailable):
		return ClassUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return ClassUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassUnavailable
	}
	return ClassPermanent
}

// retryAfterError decorates a rate-limit failure with the server's hint.
type retryAfterError struct {
	err   error
	after time.Duration
}

func (e *retryAfterError) Error() string { return e.err.Error() }
func (e *retryAfterError) Unwrap() error { return e.err }

// RetryAfter returns the server-provided wait hint carried by err, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var ra *retryAfterError
	if errors.As(err, &ra) && ra.after > 0 {
		return ra.after, true
	}
	return 0, false
}

// StatusError classifies a non-200 HTTP status.
func StatusError(service, operation string, status int, detail string, header http.Header) error {
	var marker error
	switch {
	case status == http.StatusTooManyRequests:
		marker = ErrRateLimited
	case status >= 500:
		marker = ErrUnavailable
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		marker = ErrAuth
	default:
		marker = ErrBlocked
	}
	msg := fmt.Sprintf("status %d", status)
	if detail = strings.TrimSpace(detail); detail != "" {
		msg += " " + truncate(detail, 200)
	}
	err := services.Wrap(marker, service, operation, msg, nil)
	if marker == ErrRateLimited {
		if after := parseRetryAfter(header); after > 0 {
			return &retryAfterError{err: err, after: after}
		}
	}
	return err
}

// TransportError classifies a failure to complete the HTTP exchange.
func TransportError(service, operation string, err error) error {
	if errors.Is(err, context.Canceled) {
		return services.Wrap(services.ErrTransient, service, operation, "cancelled", err)
	}
	return services.Wrap(ErrUnavailable, service, operation, "request failed", err)
}

func parseRetryAfter(header http.Header) time.Duration {
	if header == nil {
		return 0
	}
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
