package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrProviderUnavailable, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("openai").
		WithAgent("agent-1")

	if GetErrorCode(err) != ErrProviderUnavailable {
		t.Fatalf("expected code %s, got %s", ErrProviderUnavailable, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestGetErrorCode_Wrapped(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrCredentialNotFound, "no key").WithProvider("gemini")
	wrapped := fmt.Errorf("run aborted: %w", inner)

	if GetErrorCode(wrapped) != ErrCredentialNotFound {
		t.Fatalf("expected code to survive wrapping, got %s", GetErrorCode(wrapped))
	}
	if !IsCode(wrapped, ErrCredentialNotFound) {
		t.Fatalf("expected IsCode to match through wrapping")
	}
}
