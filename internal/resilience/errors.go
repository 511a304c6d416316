// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorType represents different types of errors for handling strategies
type ErrorType int

const (
	ErrorTypeUnknown            ErrorType = iota
	ErrorTypeTransient                    // Temporary network issues
	ErrorTypePermanent                    // Invalid credentials, bad model name
	ErrorTypeTimeout                      // Per-call deadline hit
	ErrorTypeRateLimit                    // Backend rate limiting
	ErrorTypeServiceUnavailable           // Backend down or overloaded
	ErrorTypeMalformedResponse            // Backend answered with no usable label
	ErrorTypeCanceled                     // Caller gave up
)

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeUnknown:
		return "Unknown"
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypePermanent:
		return "Permanent"
	case ErrorTypeTimeout:
		return "Timeout"
	case ErrorTypeRateLimit:
		return "RateLimit"
	case ErrorTypeServiceUnavailable:
		return "ServiceUnavailable"
	case ErrorTypeMalformedResponse:
		return "MalformedResponse"
	case ErrorTypeCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(et))
	}
}

// ClassifiedError wraps an error with type information
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Original == nil {
		return e.Type.String()
	}
	return e.Original.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError categorizes an error for appropriate handling.
// Remote classifier calls fail in a handful of ways; only the ones that can
// go away on their own are retryable.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.Canceled) {
		return &ClassifiedError{Original: err, Type: ErrorTypeCanceled, Retryable: false}
	}
	if errors.Is(err, context.DeadlineExceeded) || isTimeoutError(err) {
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTimeout,
			Message:   fmt.Sprintf("Timeout error: %v", err),
			Retryable: true,
		}
	}
	if isNetworkError(err) {
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTransient,
			Message:   fmt.Sprintf("Network error: %v", err),
			Retryable: true,
		}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeRateLimit,
			Message:   fmt.Sprintf("Rate limit exceeded: %v", err),
			Retryable: true,
		}

	case strings.Contains(errStr, "503") || strings.Contains(errStr, "502") || strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "529") || strings.Contains(errStr, "overloaded") ||
		strings.Contains(errStr, "service unavailable") || strings.Contains(errStr, "internal server error"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeServiceUnavailable,
			Message:   fmt.Sprintf("Service unavailable: %v", err),
			Retryable: true,
		}

	case strings.Contains(errStr, "401") || strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "invalid api key") || strings.Contains(errStr, "model not found"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypePermanent,
			Message:   fmt.Sprintf("Authentication/configuration error: %v", err),
			Retryable: false,
		}
	}

	return &ClassifiedError{
		Original:  err,
		Type:      ErrorTypeUnknown,
		Message:   fmt.Sprintf("Unknown error: %v", err),
		Retryable: false,
	}
}

// isNetworkError checks if an error is network-related
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypePermanent,
		Message:   message,
		Retryable: false,
	}
}

// malformedExcerptRunes bounds how much of a bad answer goes in the message
const malformedExcerptRunes = 80

// NewMalformedResponseError marks a backend answer that could not be parsed.
// These are retried: sampling can produce a usable answer on the next call.
func NewMalformedResponseError(response string) *ClassifiedError {
	if r := []rune(response); len(r) > malformedExcerptRunes {
		response = string(r[:malformedExcerptRunes]) + "..."
	}
	return &ClassifiedError{
		Type:      ErrorTypeMalformedResponse,
		Message:   fmt.Sprintf("malformed response: %q", response),
		Retryable: true,
	}
}
