package tracing

import (
	"errors"
	"testing"
)

func TestSafeErrorRedactsSecrets(t *testing.T) {
	err := SafeError(errors.New("dial failed: password=hunter2 host=db"))
	if err.Error() != "dial failed: password=[redacted] host=db" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if SafeError(nil) != nil {
		t.Fatal("expected nil")
	}
}
