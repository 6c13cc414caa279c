package genai

import (
	"errors"
	"fmt"
	"testing"
)

func TestUserSafeMessageDistinguishesFailures(t *testing.T) {
	unavailable := &ErrProviderUnavailable{Err: fmt.Errorf("connection refused")}
	if got := UserSafeMessage(unavailable); got != MsgUnavailable {
		t.Errorf("unavailable error mapped to %q", got)
	}

	malformed := &ErrInvalidResponse{Err: fmt.Errorf("empty response")}
	if got := UserSafeMessage(malformed); got != MsgMalformed {
		t.Errorf("malformed error mapped to %q", got)
	}

	wrapped := fmt.Errorf("generate: %w", &ErrInvalidResponse{Err: errors.New("bad JSON")})
	if got := UserSafeMessage(wrapped); got != MsgMalformed {
		t.Errorf("wrapped malformed error mapped to %q", got)
	}

	if got := UserSafeMessage(errors.New("anything else")); got != MsgUnavailable {
		t.Errorf("generic error mapped to %q", got)
	}
}
