package interfaces

import (
	"context"
)

// DomainGate answers whether a sender's domain is allowed for auto-reply.
// The implementation caches the allow-list in process; a stale cache is
// refreshed wholesale from persistence.
type DomainGate interface {
	IsAllowed(ctx context.Context, domain string) bool
	Refresh(ctx context.Context) error
	Reset()
}
