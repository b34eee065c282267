package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestGuardErrorIs(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", &GuardError{Code: CodeSessionMismatch})

	if !errors.Is(wrapped, ErrSessionMismatch) {
		t.Errorf("Expected wrapped error to match ErrSessionMismatch")
	}
	if errors.Is(wrapped, ErrAlreadyCompleted) {
		t.Errorf("Expected wrapped error not to match ErrAlreadyCompleted")
	}

	var ge *GuardError
	if !errors.As(wrapped, &ge) || ge.Code != CodeSessionMismatch {
		t.Errorf("Expected errors.As to extract code %s, got %v", CodeSessionMismatch, ge)
	}
}

func TestGuardErrorMessages(t *testing.T) {
	cases := map[*GuardError]string{
		ErrResponseNotFound: "response not found",
		ErrAlreadyCompleted: "response already completed",
		ErrResponseExpired:  "response is no longer accepting answers",
	}
	for err, expected := range cases {
		if err.Error() != expected {
			t.Errorf("Expected '%s', got '%s'", expected, err.Error())
		}
	}
}

func TestTreeError(t *testing.T) {
	err := NewTreeError("q1", "option %q not found on parent", "Yes")

	if !errors.Is(err, ErrMalformedTree) {
		t.Errorf("Expected tree error to match ErrMalformedTree")
	}

	expected := `MALFORMED_TREE: question q1: option "Yes" not found on parent`
	if err.Error() != expected {
		t.Errorf("Expected '%s', got '%s'", expected, err.Error())
	}

	rootless := NewTreeError("", "empty")
	if rootless.Error() != "MALFORMED_TREE: empty" {
		t.Errorf("Unexpected message '%s'", rootless.Error())
	}
}
