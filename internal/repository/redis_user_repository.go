package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/authgate/jwt-auth/internal/domain"
)

const (
	fieldID        = "id"
	fieldUsername  = "username"
	fieldPassword  = "password_hash"
	fieldActive    = "active"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

type redisUserStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisUserStore returns a store keeping one hash per user under prefix.
func NewRedisUserStore(client redis.UniversalClient, prefix string) UserStore {
	return &redisUserStore{client: client, prefix: prefix}
}

func (r *redisUserStore) userKey(username string) string {
	return r.prefix + "user:" + username
}

func (r *redisUserStore) seqKey() string {
	return r.prefix + "user:seq"
}

func (r *redisUserStore) Create(ctx context.Context, user *domain.User) error {
	const maxRetries = 4
	key := r.userKey(user.Username)

	for i := 0; i < maxRetries; i++ {
		var (
			id  int64
			now time.Time
		)

		// The id field marks a complete record. The whole hash is written in one
		// MULTI/EXEC, so a crash never leaves a claimed name without a user.
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			taken, err := tx.HExists(ctx, key, fieldID).Result()
			if err != nil {
				return err
			}
			if taken {
				return ErrUsernameTaken
			}

			id, err = r.client.Incr(ctx, r.seqKey()).Result()
			if err != nil {
				return fmt.Errorf("allocate user id: %w", err)
			}

			now = time.Now().UTC()
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.HSet(ctx, key,
					fieldID, id,
					fieldUsername, user.Username,
					fieldPassword, user.PasswordHash,
					fieldActive, strconv.FormatBool(user.Active),
					fieldCreatedAt, now.Format(time.RFC3339Nano),
					fieldUpdatedAt, now.Format(time.RFC3339Nano),
				)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrUsernameTaken) {
				return err
			}
			return fmt.Errorf("store user: %w", err)
		}

		user.ID = id
		user.CreatedAt = now
		user.UpdatedAt = now
		return nil
	}

	return fmt.Errorf("store user: %w", redis.TxFailedErr)
}

func (r *redisUserStore) FindByUsername(ctx context.Context, username string) (domain.Identity, error) {
	fields, err := r.client.HGetAll(ctx, r.userKey(username)).Result()
	if err != nil {
		return nil, err
	}
	// A hash without an id is not a user, e.g. a claim left by an older writer.
	if _, ok := fields[fieldID]; !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return decodeUser(fields)
}

func (r *redisUserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	exists, err := r.client.HExists(ctx, r.userKey(username), fieldID).Result()
	if err != nil {
		return false, err
	}
	return exists, nil
}

func decodeUser(fields map[string]string) (*domain.User, error) {
	id, err := strconv.ParseInt(fields[fieldID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode user id: %w", err)
	}
	active, err := strconv.ParseBool(fields[fieldActive])
	if err != nil {
		return nil, fmt.Errorf("decode user active flag: %w", err)
	}
	user := &domain.User{
		ID:           id,
		Username:     fields[fieldUsername],
		PasswordHash: fields[fieldPassword],
		Active:       active,
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt]); err == nil {
		user.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt]); err == nil {
		user.UpdatedAt = ts
	}
	return user, nil
}
