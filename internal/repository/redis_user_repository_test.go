package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/jwt-auth/internal/domain"
	"github.com/authgate/jwt-auth/internal/repository"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisUserStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	store := repository.NewRedisUserStore(client, "test:")

	alice := &domain.User{Username: "alice", PasswordHash: "hash-a", Active: true}
	require.NoError(t, store.Create(ctx, alice))
	assert.Equal(t, int64(1), alice.ID)
	assert.False(t, alice.CreatedAt.IsZero())

	bob := &domain.User{Username: "bob", PasswordHash: "hash-b", Active: false}
	require.NoError(t, store.Create(ctx, bob))
	assert.Equal(t, int64(2), bob.ID)

	found, err := store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.GetID())
	assert.Equal(t, "alice", found.GetUsername())
	assert.Equal(t, "hash-a", found.GetPassword())
	assert.True(t, found.IsActive())

	found, err = store.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, found.IsActive())

	exists, err := store.ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRedisUserStore_Missing(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	store := repository.NewRedisUserStore(client, "test:")

	_, err := store.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)

	exists, err := store.ExistsByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisUserStore_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	store := repository.NewRedisUserStore(client, "test:")

	require.NoError(t, store.Create(ctx, &domain.User{Username: "alice", PasswordHash: "h1", Active: true}))
	err := store.Create(ctx, &domain.User{Username: "alice", PasswordHash: "h2", Active: true})
	assert.ErrorIs(t, err, repository.ErrUsernameTaken)

	found, err := store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "h1", found.GetPassword())
}

func TestRedisUserStore_PrefixIsolation(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	tenantA := repository.NewRedisUserStore(client, "a:")
	tenantB := repository.NewRedisUserStore(client, "b:")

	require.NoError(t, tenantA.Create(ctx, &domain.User{Username: "alice", PasswordHash: "h", Active: true}))

	exists, err := tenantB.ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.True(t, mr.Exists("a:user:alice"))
}

func TestRedisUserStore_IncompleteRecordIsNotFound(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	store := repository.NewRedisUserStore(client, "test:")

	mr.HSet("test:user:pending", "username", "pending")

	_, err := store.FindByUsername(ctx, "pending")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
	exists, err := store.ExistsByUsername(ctx, "pending")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisUserStore_CreateReplacesIncompleteRecord(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	store := repository.NewRedisUserStore(client, "test:")

	mr.HSet("test:user:pending", "username", "pending")
	mr.HSet("test:user:pending", "stale", "left over")

	user := &domain.User{Username: "pending", PasswordHash: "hash-p", Active: true}
	require.NoError(t, store.Create(ctx, user))

	found, err := store.FindByUsername(ctx, "pending")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.GetID())
	assert.Equal(t, "hash-p", found.GetPassword())
	assert.Empty(t, mr.HGet("test:user:pending", "stale"))

	err = store.Create(ctx, &domain.User{Username: "pending", PasswordHash: "other"})
	assert.ErrorIs(t, err, repository.ErrUsernameTaken)
}

func TestRedisUserStore_ConcurrentCreateSameUsername(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	store := repository.NewRedisUserStore(client, "test:")

	const writers = 8
	results := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- store.Create(ctx, &domain.User{Username: "racer", PasswordHash: fmt.Sprintf("hash-%d", i), Active: true})
		}(i)
	}
	wg.Wait()
	close(results)

	created := 0
	for err := range results {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrUsernameTaken)
	}
	assert.Equal(t, 1, created)

	exists, err := store.ExistsByUsername(ctx, "racer")
	require.NoError(t, err)
	assert.True(t, exists)
}
