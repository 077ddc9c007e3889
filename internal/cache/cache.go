package cache

import (
	"context"
)

// ProcessedCache remembers which inbound message IDs the monitor has already
// handled. Entries expire after a TTL so the cache stays bounded; the
// persisted audit log remains the durable duplicate guard.
type ProcessedCache interface {
	MarkProcessed(ctx context.Context, id string)
	IsProcessed(ctx context.Context, id string) bool
	Size() int
	Reset()
	Close()
}
