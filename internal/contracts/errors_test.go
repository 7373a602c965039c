package contracts

import (
	"errors"
	"fmt"
	"testing"
)

func TestFetchErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	fe := NewFetchError("realtime snapshot", cause)

	if !errors.Is(fe, cause) {
		t.Error("FetchError should unwrap to its cause")
	}
	if !IsFetchError(fe) {
		t.Error("IsFetchError(fe) = false")
	}
	if !IsFetchError(fmt.Errorf("guard: %w", fe)) {
		t.Error("IsFetchError should see through wrapping")
	}
	if IsFetchError(cause) {
		t.Error("IsFetchError matched a plain error")
	}

	want := "fetch realtime snapshot: connection refused"
	if fe.Error() != want {
		t.Errorf("Error() = %q, want %q", fe.Error(), want)
	}
}
