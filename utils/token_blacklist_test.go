package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlacklistInMemory(t *testing.T) {
	SetRedisClient(nil)
	ctx := context.Background()

	BlacklistToken(ctx, "tok-a", time.Now().Add(time.Minute))
	assert.True(t, IsTokenBlacklisted(ctx, "tok-a"))
	assert.False(t, IsTokenBlacklisted(ctx, "tok-b"))

	// already expired tokens need no revocation
	BlacklistToken(ctx, "tok-c", time.Now().Add(-time.Minute))
	assert.False(t, IsTokenBlacklisted(ctx, "tok-c"))
}

func TestBlacklistRedis(t *testing.T) {
	mr := withMiniRedis(t)
	ctx := context.Background()

	BlacklistToken(ctx, "tok-r", time.Now().Add(time.Minute))
	assert.True(t, mr.Exists(blacklistPrefix+"tok-r"))
	assert.True(t, IsTokenBlacklisted(ctx, "tok-r"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, IsTokenBlacklisted(ctx, "tok-r"))
}
