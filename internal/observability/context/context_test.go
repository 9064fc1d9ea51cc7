package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationRoundTrip(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithRelayID(ctx, "relay-1")
	ctx = WithActor(ctx, "system", "planrebuild")

	assert.Equal(t, "run-1", RunIDFromContext(ctx))
	assert.Equal(t, "relay-1", RelayIDFromContext(ctx))
	kind, id := ActorFromContext(ctx)
	assert.Equal(t, "system", kind)
	assert.Equal(t, "planrebuild", id)
}

func TestEmptyValuesAreNotStored(t *testing.T) {
	ctx := WithRelayID(WithRunID(context.Background(), ""), "")

	assert.Empty(t, RunIDFromContext(ctx))
	assert.Empty(t, RelayIDFromContext(ctx))
}
