// Package context carries correlation identifiers for logs and spans.
package context

import "context"

type runIDKey struct{}
type relayIDKey struct{}
type actorKey struct{}

type actor struct {
	kind string
	id   string
}

func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey{}, runID)
}

func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(runIDKey{}).(string)
	return v
}

func WithRelayID(ctx context.Context, relayID string) context.Context {
	if relayID == "" {
		return ctx
	}
	return context.WithValue(ctx, relayIDKey{}, relayID)
}

func RelayIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(relayIDKey{}).(string)
	return v
}

func WithActor(ctx context.Context, kind, id string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor{kind: kind, id: id})
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	a, _ := ctx.Value(actorKey{}).(actor)
	return a.kind, a.id
}
