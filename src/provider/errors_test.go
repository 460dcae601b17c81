package provider

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{status: 401, want: KindUnauthorized},
		{status: 403, want: KindForbidden},
		{status: 404, want: KindNotFound},
		{status: 429, want: KindUnclassified},
		{status: 500, want: KindUnclassified},
		{status: 502, want: KindUnclassified},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			if got := KindForStatus(tt.status); got != tt.want {
				t.Errorf("KindForStatus(%d) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestFetchError_Is(t *testing.T) {
	tests := []struct {
		name   string
		kind   ErrorKind
		target error
	}{
		{name: "unauthorized", kind: KindUnauthorized, target: ErrUnauthorized},
		{name: "forbidden", kind: KindForbidden, target: ErrForbidden},
		{name: "not found", kind: KindNotFound, target: ErrNotFound},
		{name: "network", kind: KindNetworkFailure, target: ErrNetworkFailure},
		{name: "unclassified", kind: KindUnclassified, target: ErrUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fmt.Errorf("page 2: %w", &FetchError{Kind: tt.kind, Op: "list builds"})

			if !errors.Is(err, tt.target) {
				t.Errorf("errors.Is(err, %v) = false, want true", tt.target)
			}
			if Classify(err) != tt.kind {
				t.Errorf("Classify() = %v, want %v", Classify(err), tt.kind)
			}
		})
	}
}

func TestFetchError_Error(t *testing.T) {
	err := &FetchError{
		Kind:       KindNotFound,
		Op:         "list builds",
		StatusCode: 404,
		Err:        errors.New("no such pipeline"),
	}

	got := err.Error()
	for _, want := range []string{"list builds", "not found", "status 404", "no such pipeline"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, should contain %q", got, want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: KindNone},
		{name: "bare sentinel", err: ErrForbidden, want: KindForbidden},
		{name: "wrapped sentinel", err: fmt.Errorf("x: %w", ErrNetworkFailure), want: KindNetworkFailure},
		{name: "generic error", err: errors.New("boom"), want: KindUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapError_FetchErrors(t *testing.T) {
	tests := []struct {
		name        string
		kind        ErrorKind
		wantMessage string
		wantHint    string
	}{
		{name: "unauthorized", kind: KindUnauthorized, wantMessage: "Invalid API token", wantHint: "BUILDKITE_API_TOKEN"},
		{name: "forbidden", kind: KindForbidden, wantMessage: "Access denied", wantHint: "read_builds"},
		{name: "not found", kind: KindNotFound, wantMessage: "Pipeline not found", wantHint: "BUILDKITE_PIPELINE"},
		{name: "network", kind: KindNetworkFailure, wantMessage: "Failed to reach", wantHint: "network connection"},
		{name: "unclassified", kind: KindUnclassified, wantMessage: "Failed to fetch builds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := &FetchError{Kind: tt.kind, Op: "list builds"}
			wrapped := WrapError(orig)

			userErr, ok := wrapped.(*UserError)
			if !ok {
				t.Fatalf("WrapError() returned %T, want *UserError", wrapped)
			}
			if !strings.Contains(userErr.Message, tt.wantMessage) {
				t.Errorf("Message = %q, should contain %q", userErr.Message, tt.wantMessage)
			}
			if tt.wantHint != "" && !strings.Contains(userErr.Hint, tt.wantHint) {
				t.Errorf("Hint = %q, should contain %q", userErr.Hint, tt.wantHint)
			}
			if Classify(wrapped) != tt.kind {
				t.Errorf("Classify(wrapped) = %v, want %v", Classify(wrapped), tt.kind)
			}
		})
	}
}

func TestWrapError_InvalidURL(t *testing.T) {
	err := fmt.Errorf("%w: https://invalid.com", ErrInvalidURL)
	wrapped := WrapError(err)

	userErr, ok := wrapped.(*UserError)
	if !ok {
		t.Fatalf("WrapError() returned %T, want *UserError", wrapped)
	}
	if userErr.Message != "Invalid build URL" {
		t.Errorf("Message = %q, want %q", userErr.Message, "Invalid build URL")
	}
	if !errors.Is(wrapped, ErrInvalidURL) {
		t.Error("errors.Is(wrapped, ErrInvalidURL) = false, want true")
	}
}

func TestWrapError_Passthrough(t *testing.T) {
	if WrapError(nil) != nil {
		t.Error("WrapError(nil) should be nil")
	}

	plain := errors.New("something went wrong")
	if got := WrapError(plain); got != plain {
		t.Errorf("WrapError() = %v, want original error", got)
	}
}

func TestUserError_Error(t *testing.T) {
	userErr := &UserError{
		Message: "Something went wrong",
		Hint:    "Try doing this instead",
		Err:     errors.New("original error"),
	}

	got := userErr.Error()
	msgIdx := strings.Index(got, "Something went wrong")
	hintIdx := strings.Index(got, "Hint: Try doing this instead")
	errIdx := strings.Index(got, "Details: original error")

	if msgIdx != 0 {
		t.Errorf("Message should be at start, found at index %d", msgIdx)
	}
	if hintIdx <= msgIdx {
		t.Errorf("Hint should come after Message, got hint at %d", hintIdx)
	}
	if errIdx <= hintIdx {
		t.Errorf("Details should come after Hint, got details at %d, hint at %d", errIdx, hintIdx)
	}
}
