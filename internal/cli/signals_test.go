package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunContext_Timeout(t *testing.T) {
	ctx, cancel := newRunContext(10*time.Millisecond, &bytes.Buffer{}, "test")
	defer cancel()

	select {
	case <-ctx.Done():
		assert.True(t, errors.Is(ctx.Err(), context.DeadlineExceeded))
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled by the timeout")
	}
}

func TestNewRunContext_NoTimeout(t *testing.T) {
	ctx, cancel := newRunContext(0, &bytes.Buffer{}, "test")

	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)
	require.NoError(t, ctx.Err())

	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
