package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

func TestLease_AcquireRelease(t *testing.T) {
	mr, client := newMiniredisClient(t)
	ctx := context.Background()

	lease := NewLease(client, logging.NewNopLogger(), "7", time.Second)
	assert.Equal(t, "anbase:lock:run:7", lease.Key())

	require.NoError(t, lease.Acquire(ctx))
	assert.True(t, mr.Exists(lease.Key()))

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists(lease.Key()))
}

func TestLease_Contention(t *testing.T) {
	_, client := newMiniredisClient(t)
	ctx := context.Background()

	first := NewLease(client, logging.NewNopLogger(), "run", time.Second)
	second := NewLease(client, logging.NewNopLogger(), "run", time.Second)

	require.NoError(t, first.Acquire(ctx))
	err := second.Acquire(ctx)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))

	require.NoError(t, first.Release(ctx))
	require.NoError(t, second.Acquire(ctx))
	require.NoError(t, second.Release(ctx))
}

func TestLease_ReleaseNotHeld(t *testing.T) {
	mr, client := newMiniredisClient(t)
	ctx := context.Background()

	lease := NewLease(client, logging.NewNopLogger(), "run", time.Minute)
	require.NoError(t, lease.Acquire(ctx))
	mr.Del(lease.Key())

	err := lease.Release(ctx)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))
}

func TestLease_Extend(t *testing.T) {
	mr, client := newMiniredisClient(t)
	ctx := context.Background()

	lease := NewLease(client, logging.NewNopLogger(), "run", time.Minute)
	require.NoError(t, lease.Acquire(ctx))
	defer lease.Release(ctx)

	ok, err := lease.Extend(ctx, 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Minute, mr.TTL(lease.Key()))
}

//Personal.AI order the ending
