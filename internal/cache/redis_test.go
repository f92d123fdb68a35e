package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Monkestation/Veyra-Vet/internal/models"
)

func newTestCache(t *testing.T) (*VerificationCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewVerificationCache(rdb, 10*time.Minute), mr
}

func TestInitRedis_EmptyAddr(t *testing.T) {
	t.Parallel()
	assert.Nil(t, InitRedis(""))
}

func TestInitRedis_Unreachable(t *testing.T) {
	t.Parallel()
	assert.Nil(t, InitRedis("127.0.0.1:1"), "unreachable redis degrades to no cache")
}

func TestInitRedis_URLForm(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := InitRedis("redis://" + mr.Addr())
	require.NotNil(t, client)
	t.Cleanup(func() { client.Close() })
}

func TestVerificationCache_RoundTrip(t *testing.T) {
	t.Parallel()

	c, mr := newTestCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "somekey")
	assert.False(t, ok)

	v := &models.Verification{
		DiscordID:     "user-1",
		Ckey:          "somekey",
		VerifiedFlags: models.VerifiedFlags{AgeVetted: true, VettedBy: "admin-1"},
	}
	c.Set(ctx, "somekey", v)

	got, ok := c.Get(ctx, "somekey")
	require.True(t, ok)
	assert.Equal(t, v.DiscordID, got.DiscordID)
	assert.True(t, got.VerifiedFlags.AgeVetted)

	require.True(t, mr.Exists("veyra:verification:somekey"))
}

func TestVerificationCache_TTLExpiry(t *testing.T) {
	t.Parallel()

	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "somekey", &models.Verification{Ckey: "somekey"})
	mr.FastForward(11 * time.Minute)

	_, ok := c.Get(ctx, "somekey")
	assert.False(t, ok)
}

func TestVerificationCache_Invalidate(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "somekey", &models.Verification{Ckey: "somekey"})
	c.Invalidate(ctx, "somekey")

	_, ok := c.Get(ctx, "somekey")
	assert.False(t, ok)
}

func TestVerificationCache_NilSafety(t *testing.T) {
	t.Parallel()

	var c *VerificationCache
	ctx := context.Background()

	// Every method is a no-op without a backing client.
	c.Set(ctx, "somekey", &models.Verification{})
	c.Invalidate(ctx, "somekey")
	_, ok := c.Get(ctx, "somekey")
	assert.False(t, ok)

	assert.Nil(t, NewVerificationCache(nil, time.Minute))
}
