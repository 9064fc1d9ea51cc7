// Package runlock keeps two rebuild runs from touching the plan-change store at once.
package runlock

import (
	"context"
	"errors"
)

const RebuildLockKey = "relayplan:plan-rebuild"

var ErrRunInProgress = errors.New("plan_rebuild_in_progress")

// Guard grants exclusive use of the plan rebuild across processes. Acquire
// returns a token that must be handed back to Release.
type Guard interface {
	Acquire(ctx context.Context) (string, error)
	Release(ctx context.Context, token string) error
}

// NoopGuard always grants the lock.
type NoopGuard struct{}

func (NoopGuard) Acquire(context.Context) (string, error) { return "", nil }

func (NoopGuard) Release(context.Context, string) error { return nil }
