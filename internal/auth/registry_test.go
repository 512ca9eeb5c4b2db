package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistryPutResolve(t *testing.T) {
	registry := NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, registry.Put(ctx, "sid-1", 42, time.Minute))

	userID, found, err := registry.Resolve(ctx, "sid-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(42), userID)
}

func TestMemoryRegistryUnknownSID(t *testing.T) {
	registry := NewMemoryRegistry()

	_, found, err := registry.Resolve(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryRegistryRevoke(t *testing.T) {
	registry := NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, registry.Put(ctx, "sid-1", 42, time.Minute))
	require.NoError(t, registry.Revoke(ctx, "sid-1"))

	_, found, err := registry.Resolve(ctx, "sid-1")
	require.NoError(t, err)
	assert.False(t, found, "revoked session must resolve as anonymous")

	// 存在しないセッションの失効も成功する
	require.NoError(t, registry.Revoke(ctx, "sid-1"))
}

func TestMemoryRegistryExpiry(t *testing.T) {
	registry := NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, registry.Put(ctx, "sid-1", 42, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, found, err := registry.Resolve(ctx, "sid-1")
	require.NoError(t, err)
	assert.False(t, found, "expired session must resolve as anonymous")
}
