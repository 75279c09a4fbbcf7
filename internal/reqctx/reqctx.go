package reqctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type key int

const itemKey key = 0

// ItemContext identifies the work item a goroutine is processing
type ItemContext struct {
	ItemID    string
	WorkerID  int
	URL       string
	StartTime time.Time
}

// WithItem attaches a fresh ItemContext for url to ctx
func WithItem(ctx context.Context, workerID int, url string) context.Context {
	return context.WithValue(ctx, itemKey, &ItemContext{
		ItemID:    generateID(),
		WorkerID:  workerID,
		URL:       url,
		StartTime: time.Now(),
	})
}

// FromContext returns the ItemContext of ctx, or a placeholder when none is set
func FromContext(ctx context.Context) *ItemContext {
	if ic, ok := ctx.Value(itemKey).(*ItemContext); ok {
		return ic
	}
	return &ItemContext{
		ItemID:    "unknown",
		WorkerID:  -1,
		StartTime: time.Now(),
	}
}

// Logger returns the global logger annotated with the item's fields
func Logger(ctx context.Context) zerolog.Logger {
	ic := FromContext(ctx)
	return log.With().
		Str("item_id", ic.ItemID).
		Int("worker_id", ic.WorkerID).
		Str("url", ic.URL).
		Logger()
}

func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// ItemError wraps an error with the item it occurred on
type ItemError struct {
	ItemID string
	URL    string
	Err    error
}

// Error implements the error interface
func (e *ItemError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.ItemID, e.URL, e.Err)
}

// Unwrap returns the underlying error
func (e *ItemError) Unwrap() error {
	return e.Err
}

// NewItemError creates a new ItemError from context
func NewItemError(ctx context.Context, err error) error {
	ic := FromContext(ctx)
	return &ItemError{
		ItemID: ic.ItemID,
		URL:    ic.URL,
		Err:    err,
	}
}
