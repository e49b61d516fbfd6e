package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilClientIsNoop(t *testing.T) {
	var c *Client
	ctx := context.Background()

	require.NoError(t, c.BlacklistToken(ctx, "token", time.Minute))
	revoked, err := c.IsTokenBlacklisted(ctx, "token")
	require.NoError(t, err)
	assert.False(t, revoked)

	var dest map[string]int
	hit, err := c.GetJSON(ctx, "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	assert.NoError(t, c.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(ctx))
}

func TestBlacklistKey(t *testing.T) {
	key := blacklistKey("eyJhbGciOiJIUzI1NiJ9.payload.signature")
	assert.True(t, strings.HasPrefix(key, blacklistPrefix))
	assert.Len(t, key, len(blacklistPrefix)+64)
	assert.Equal(t, key, blacklistKey("eyJhbGciOiJIUzI1NiJ9.payload.signature"))
	assert.NotEqual(t, key, blacklistKey("other"))
}
