package cache

import (
	"context"
	"encoding/json"
	"time"
)

// DefaultTTL is how long an entry stays valid unless the store is told otherwise.
const DefaultTTL = 5 * time.Minute

// Cache is a best-effort key/value store. Implementations swallow their own
// failures: a broken cache behaves like an empty one.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
	Clear(ctx context.Context)
}

// GetJSON decodes the entry stored under key into a T.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var out T
	data, ok := c.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false
	}
	return out, true
}

// SetJSON encodes v and stores it under key. Values that cannot be encoded
// are not stored.
func SetJSON(ctx context.Context, c Cache, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, data)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Nop) Set(context.Context, string, []byte)        {}
func (Nop) Clear(context.Context)                      {}
