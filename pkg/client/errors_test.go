package client

import (
	"errors"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{"client error should not retry", ErrorClassClient, false},
		{"server error should retry", ErrorClassServer, true},
		{"rate limit should retry", ErrorClassRateLimit, true},
		{"network error should retry", ErrorClassNetwork, true},
		{"empty error class should not retry", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := shouldRetry(tt.errorClass); result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorClass
	}{
		{200, ""},
		{204, ""},
		{304, ""},
		{400, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.expected {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				Operation:  "ListUsers",
				StatusCode: 500,
				ErrorClass: ErrorClassServer,
				Message:    "internal server error",
				Err:        errors.New("connection reset"),
			},
			expected: "ListUsers: server error (status 500): internal server error: connection reset",
		},
		{
			name: "error without wrapped error",
			apiError: &APIError{
				Operation:  "ListUsers",
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "not found",
			},
			expected: "ListUsers: client error (status 404): not found",
		},
		{
			name: "network error without status",
			apiError: &APIError{
				Operation:  "ListUsers",
				ErrorClass: ErrorClassNetwork,
				Err:        errors.New("dial tcp: connection refused"),
			},
			expected: "ListUsers: network error: dial tcp: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.apiError.Error(); result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying")
	err := error(&APIError{Operation: "Op", ErrorClass: ErrorClassNetwork, Err: underlying})

	if !errors.Is(err, underlying) {
		t.Error("errors.Is should find the wrapped error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("errors.As should find *APIError")
	}
	if !apiErr.Retryable() {
		t.Error("network errors should be retryable")
	}
	if (&APIError{ErrorClass: ErrorClassClient}).Retryable() {
		t.Error("client errors should not be retryable")
	}
}
