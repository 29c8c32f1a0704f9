package snake

import (
	"context"
	"sync/atomic"
)

// CancellationToken is a cooperative cancellation flag shared between an
// interactive caller and a running optimization. The flag starts set; clearing
// it asks the optimizer to stop at the next evaluation.
type CancellationToken struct {
	active atomic.Bool
}

// NewCancellationToken returns an active token.
func NewCancellationToken() *CancellationToken {
	t := &CancellationToken{}
	t.active.Store(true)
	return t
}

// Cancel clears the flag. Safe to call from any goroutine, any number of times.
func (t *CancellationToken) Cancel() {
	t.active.Store(false)
}

// Active reports whether the run may continue. A nil token is always active.
func (t *CancellationToken) Active() bool {
	if t == nil {
		return true
	}
	return t.active.Load()
}

// Bind cancels the token when ctx is done. The returned stop function
// detaches the token from ctx.
func (t *CancellationToken) Bind(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, t.Cancel)
}
