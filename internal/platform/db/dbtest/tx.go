// Package dbtest holds test doubles for the db package.
package dbtest

import (
	"context"
	"sync"
)

// TxRunner runs fn directly. When fn fails, the OnRollback hooks run in
// reverse order so in-memory repositories can discard what fn wrote.
type TxRunner struct {
	mu         sync.Mutex
	Runs       int
	RolledBack int
	OnRollback []func()
	// Before, when set, runs at the start of every transaction and may
	// register rollback hooks.
	Before func(tx *TxRunner)
}

func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	r.Runs++
	r.OnRollback = nil
	before := r.Before
	r.mu.Unlock()

	if before != nil {
		before(r)
	}
	if err := fn(ctx); err != nil {
		r.mu.Lock()
		hooks := r.OnRollback
		r.RolledBack++
		r.mu.Unlock()
		for i := len(hooks) - 1; i >= 0; i-- {
			hooks[i]()
		}
		return err
	}
	return nil
}

// Track registers a rollback hook.
func (r *TxRunner) Track(undo func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.OnRollback = append(r.OnRollback, undo)
}
