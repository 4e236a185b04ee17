package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/kingrea/contract-wizard/internal/config"
)

// Describe turns an error into the one-line message shown in the error banner.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "Your session has expired. Update the API token and try again."
	case errors.Is(err, config.ErrNotConfigured):
		return "The contract service is not configured. Set api.base_url in .contractwizard/config.yaml."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The contract service did not respond in time. Please try again."
	case errors.As(err, &apiErr):
		return describeStatus(apiErr)
	case errors.As(err, &netErr) && netErr.Timeout():
		return "The contract service did not respond in time. Please try again."
	case errors.As(err, &urlErr):
		return "Could not reach the contract service. Check your connection and try again."
	}
	return err.Error()
}

func describeStatus(e *Error) string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return "You are not signed in, or your token is invalid."
	case http.StatusForbidden:
		return "You do not have permission to do that."
	case http.StatusNotFound:
		return "That item no longer exists."
	case http.StatusTooManyRequests:
		if e.Message != "" && e.Message != http.StatusText(e.StatusCode) {
			return e.Message
		}
		return "AI usage limit reached. Try again later."
	}
	if e.StatusCode >= 500 {
		return "The contract service is having trouble. Please try again."
	}
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.StatusCode)
}
