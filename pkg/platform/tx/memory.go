package tx

import (
	"context"
	"sync"
)

type memoryKey struct{}

// MemoryRunner serialises in-memory units of work behind a coarse lock.
// Writers are exclusive, readers share. Calls made with a context that is
// already inside a unit of work run inline so service methods can compose.
//
// There is no rollback: writes made before fn returns an error stay applied.
// Atomicity therefore rests on the in-memory stores, whose writes cannot fail
// once the service has validated its inputs, and on services doing every
// check before their first write.
type MemoryRunner struct {
	mu sync.RWMutex
}

func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inMemoryTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(context.WithValue(ctx, memoryKey{}, true))
}

func (r *MemoryRunner) RunReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inMemoryTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(context.WithValue(ctx, memoryKey{}, true))
}

func inMemoryTx(ctx context.Context) bool {
	v, _ := ctx.Value(memoryKey{}).(bool)
	return v
}
