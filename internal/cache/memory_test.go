package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCache_MarkAndCheck(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Close()
	ctx := context.Background()

	assert.False(t, c.IsProcessed(ctx, "msg-1"))

	c.MarkProcessed(ctx, "msg-1")
	assert.True(t, c.IsProcessed(ctx, "msg-1"))
	assert.False(t, c.IsProcessed(ctx, "msg-2"))
	assert.Equal(t, 1, c.Size())
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(50 * time.Millisecond)
	defer c.Close()
	ctx := context.Background()

	c.MarkProcessed(ctx, "msg-1")
	assert.True(t, c.IsProcessed(ctx, "msg-1"))

	time.Sleep(80 * time.Millisecond)
	assert.False(t, c.IsProcessed(ctx, "msg-1"))
}

func TestMemoryCache_Reset(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Close()
	ctx := context.Background()

	c.MarkProcessed(ctx, "msg-1")
	c.MarkProcessed(ctx, "msg-2")
	assert.Equal(t, 2, c.Size())

	c.Reset()
	assert.Equal(t, 0, c.Size())
	assert.False(t, c.IsProcessed(ctx, "msg-1"))
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	c.Close()
	c.Close()
}
