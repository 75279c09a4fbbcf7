package ui

import "testing"

func TestDisableColor(t *testing.T) {
	if got := Success("ok"); got == "ok" {
		t.Fatalf("expected styled output, got %q", got)
	}

	DisableColor()

	if got := Success("ok"); got != "ok" {
		t.Errorf("expected plain output, got %q", got)
	}
	if got := Bold("a") + Warn("b") + Error("c"); got != "abc" {
		t.Errorf("expected plain output, got %q", got)
	}
}
