package api

import "fmt"

// RequestError represents an HTTP request error
type RequestError struct {
	Endpoint      string
	Ticker        string
	StatusCode    int
	Message       string
	OriginalError error
}

func (e *RequestError) Error() string {
	if e.OriginalError != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.OriginalError)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.OriginalError
}

// AccessError represents a rejected request (401/403), usually a stale crumb
type AccessError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *AccessError) Error() string {
	return e.Message
}

// RateLimitError represents a rate limit error
type RateLimitError struct {
	Endpoint   string
	Message    string
	RetryAfter string
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// NotFoundError means the provider has no data for the symbol
type NotFoundError struct {
	Endpoint string
	Ticker   string
	Detail   string
}

func (e *NotFoundError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("no %s data for %s: %s", e.Endpoint, e.Ticker, e.Detail)
	}
	return fmt.Sprintf("no %s data for %s", e.Endpoint, e.Ticker)
}
