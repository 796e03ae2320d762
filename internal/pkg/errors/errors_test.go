package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New(CodeValidation, "invalid input"),
			want: "VALIDATION_ERROR: invalid input",
		},
		{
			name: "with wrapped error",
			err:  Wrap(CodeInternal, "something failed", errors.New("underlying")),
			want: "INTERNAL_ERROR: something failed: underlying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeInternal, "wrapped", underlying)

	if unwrapped := err.Unwrap(); unwrapped != underlying {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, underlying)
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is should see the wrapped error")
	}
}

func TestAppError_HTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeInvalidRequest, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeTooLarge, http.StatusRequestEntityTooLarge},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeInternal, http.StatusInternalServerError},
		{CodeConfig, http.StatusInternalServerError},
		{CodeMetrics, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test")
			if status := err.HTTPStatus(); status != tt.status {
				t.Errorf("HTTPStatus() = %d, want %d", status, tt.status)
			}
		})
	}
}

func TestAppError_WithDetail(t *testing.T) {
	err := New(CodeValidation, "invalid").
		WithDetail("field", "original").
		WithDetail("reason", "negative")

	if err.Details["field"] != "original" {
		t.Errorf("Details[field] = %s, want original", err.Details["field"])
	}
	if err.Details["reason"] != "negative" {
		t.Errorf("Details[reason] = %s, want negative", err.Details["reason"])
	}
}

func TestConvenienceConstructors(t *testing.T) {
	underlying := errors.New("cause")

	tests := []struct {
		name string
		err  *AppError
		code string
	}{
		{"ValidationError", ValidationError("bad"), CodeValidation},
		{"InvalidRequestError", InvalidRequestError("bad body"), CodeInvalidRequest},
		{"NotFoundError", NotFoundError("document"), CodeNotFound},
		{"InternalError", InternalError("failed", underlying), CodeInternal},
		{"ConfigError", ConfigError("bad config", underlying), CodeConfig},
		{"DictionaryError", DictionaryError("bad dictionary", underlying), CodeDictionary},
		{"FixtureError", FixtureError("bad fixture", underlying), CodeFixture},
		{"RegressionError", RegressionError("ndcg dropped"), CodeRegression},
		{"MetricsError", MetricsError("sink down", underlying), CodeMetrics},
		{"ServiceUnavailableError", ServiceUnavailableError("redis"), CodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
		})
	}

	if msg := NotFoundError("document").Message; msg != "document not found" {
		t.Errorf("Message = %s, want 'document not found'", msg)
	}
	if got := RateLimitedError(3).Details["retry_after"]; got != "3" {
		t.Errorf("retry_after = %s, want 3", got)
	}
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", ValidationError("bad"))

	if !IsValidation(wrapped) {
		t.Error("IsValidation should see through fmt.Errorf wrapping")
	}
	if IsNotFound(wrapped) {
		t.Error("IsNotFound(validation) = true, want false")
	}
	if !IsRegression(RegressionError("drop")) {
		t.Error("IsRegression(RegressionError) = false, want true")
	}
	if IsNotFound(errors.New("standard error")) {
		t.Error("IsNotFound(standard error) = true, want false")
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantError  string
	}{
		{"validation", ValidationError("query too long"), http.StatusBadRequest, CodeValidation, "query too long"},
		{"internal app error", InternalError("db broke", errors.New("secret")), http.StatusInternalServerError, CodeInternal, "internal server error"},
		{"plain error", errors.New("secret detail"), http.StatusInternalServerError, CodeInternal, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
			if resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
		})
	}
}
