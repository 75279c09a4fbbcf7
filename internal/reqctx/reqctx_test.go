package reqctx

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWithItem(t *testing.T) {
	ctx := WithItem(context.Background(), 3, "https://site/p1")
	ic := FromContext(ctx)

	if ic.WorkerID != 3 || ic.URL != "https://site/p1" {
		t.Errorf("unexpected item context: %+v", ic)
	}
	if len(ic.ItemID) != 16 {
		t.Errorf("expected 16 hex chars, got %q", ic.ItemID)
	}
	if other := FromContext(WithItem(context.Background(), 3, "x")); other.ItemID == ic.ItemID {
		t.Error("item IDs should be unique")
	}
}

func TestFromContext_Missing(t *testing.T) {
	ic := FromContext(context.Background())
	if ic.ItemID != "unknown" || ic.WorkerID != -1 {
		t.Errorf("unexpected placeholder: %+v", ic)
	}
}

func TestNewItemError(t *testing.T) {
	base := errors.New("boom")
	ctx := WithItem(context.Background(), 1, "https://site/p1")
	err := NewItemError(ctx, base)

	if !errors.Is(err, base) {
		t.Error("ItemError should unwrap to the original error")
	}
	if !strings.Contains(err.Error(), "https://site/p1") {
		t.Errorf("error should mention the URL: %v", err)
	}
}
