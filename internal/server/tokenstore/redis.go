package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key the store writes.
const DefaultRedisPrefix = "tk:"

// maxTxRetries bounds optimistic transactions that lose a WATCH race.
const maxTxRetries = 5

// keepUntil pushes the expiry of an index key out to deadline, never
// shortening it. Index keys then vanish once the last token they list does.
const keepUntilLua = `
local function keep_until(key, deadline, now)
  local ttl = redis.call("PTTL", key)
  if ttl < 0 or tonumber(now) + ttl < tonumber(deadline) then
    redis.call("PEXPIREAT", key, deadline)
  end
end
`

// KEYS: token key, user set, expiry index.
// ARGV: token, id, uid, exp ms, created ms, deadline ms, now ms, prune bound ms.
const saveTokenScript = keepUntilLua + `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return -1
end
redis.call("HSET", KEYS[1], "id", ARGV[2], "uid", ARGV[3], "exp", ARGV[4], "created", ARGV[5])
redis.call("PEXPIREAT", KEYS[1], ARGV[6])
redis.call("SADD", KEYS[2], ARGV[1])
keep_until(KEYS[2], ARGV[6], ARGV[7])
redis.call("ZADD", KEYS[3], ARGV[4], ARGV[1])
redis.call("ZREMRANGEBYSCORE", KEYS[3], "-inf", ARGV[8])
keep_until(KEYS[3], ARGV[6], ARGV[7])
return 1
`

// KEYS: token key, user set, expiry index. ARGV: token, expected uid.
const deleteTokenScript = `
local uid = redis.call("HGET", KEYS[1], "uid")
if not uid then
  return 0
end
if uid ~= ARGV[2] then
  return -2
end
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
redis.call("ZREM", KEYS[3], ARGV[1])
return 1
`

// KEYS: old key, old user set, expiry index, new key, new user set.
// ARGV: old token, expected old uid, new token, id, uid, exp ms, created ms,
// deadline ms, now ms, prune bound ms.
const replaceTokenScript = keepUntilLua + `
local uid = redis.call("HGET", KEYS[1], "uid")
if not uid then
  return 0
end
if uid ~= ARGV[2] then
  return -2
end
if redis.call("EXISTS", KEYS[4]) == 1 then
  return -1
end
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
redis.call("ZREM", KEYS[3], ARGV[1])
redis.call("HSET", KEYS[4], "id", ARGV[4], "uid", ARGV[5], "exp", ARGV[6], "created", ARGV[7])
redis.call("PEXPIREAT", KEYS[4], ARGV[8])
redis.call("SADD", KEYS[5], ARGV[3])
keep_until(KEYS[5], ARGV[8], ARGV[9])
redis.call("ZADD", KEYS[3], ARGV[6], ARGV[3])
redis.call("ZREMRANGEBYSCORE", KEYS[3], "-inf", ARGV[10])
keep_until(KEYS[3], ARGV[8], ARGV[9])
return 1
`

var (
	saveTokenLua    = redis.NewScript(saveTokenScript)
	deleteTokenLua  = redis.NewScript(deleteTokenScript)
	replaceTokenLua = redis.NewScript(replaceTokenScript)
)

// errOwnerChanged means the record under a token key no longer belongs to the
// user read before the script ran.
var errOwnerChanged = errors.New("refresh token owner changed")

// RedisStore keeps each refresh token in a hash keyed by its value, a per-user
// set for logout-all and a sorted expiry index for the sweep. Token keys
// outlive ExpiresAt by grace so an expired token is still reported as expired
// rather than unknown. The user set and the index expire with the last token
// they hold, so nothing leaks when the sweep is off.
//
// Scripts only touch keys passed in KEYS. Multi-key operations span users, so
// the store needs a single Redis node or a sentinel failover client, not a
// cluster.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	grace  time.Duration
	now    func() time.Time
}

func NewRedisStore(rdb *redis.Client, prefix string, grace time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if grace < 0 {
		grace = 0
	}
	return &RedisStore{rdb: rdb, prefix: prefix, grace: grace, now: time.Now}
}

func (s *RedisStore) tokenKey(t string) string { return s.prefix + "rt:" + t }
func (s *RedisStore) userKey(id string) string { return s.prefix + "rt:user:" + id }
func (s *RedisStore) expiryKey() string        { return s.prefix + "rt:expiry" }

func prepare(token *models.RefreshToken) {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
}

func (s *RedisStore) deadline(t *models.RefreshToken) int64 {
	return t.ExpiresAt.Add(s.grace).UnixMilli()
}

// pruneBound is the highest expiry whose token key Redis has already dropped.
func (s *RedisStore) pruneBound(now time.Time) int64 {
	return now.Add(-s.grace).UnixMilli()
}

func (s *RedisStore) Save(ctx context.Context, token *models.RefreshToken) error {
	prepare(token)
	now := s.now()

	n, err := saveTokenLua.Run(ctx, s.rdb,
		[]string{s.tokenKey(token.Token), s.userKey(token.UserID), s.expiryKey()},
		token.Token,
		token.ID,
		token.UserID,
		token.ExpiresAt.UnixMilli(),
		token.CreatedAt.UnixMilli(),
		s.deadline(token),
		now.UnixMilli(),
		s.pruneBound(now),
	).Int64()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if n == -1 {
		return common.ErrorAlreadyExists
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	fields, err := s.rdb.HGetAll(ctx, s.tokenKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}

	exp, err := strconv.ParseInt(fields["exp"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt refresh token record: %w", err)
	}
	created, err := strconv.ParseInt(fields["created"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt refresh token record: %w", err)
	}

	return &models.RefreshToken{
		ID:        fields["id"],
		UserID:    fields["uid"],
		Token:     token,
		ExpiresAt: time.UnixMilli(exp).UTC(),
		CreatedAt: time.UnixMilli(created).UTC(),
	}, nil
}

// owner reads the user a token belongs to, so that scripts can be handed the
// user set key up front.
func (s *RedisStore) owner(ctx context.Context, token string) (string, error) {
	uid, err := s.rdb.HGet(ctx, s.tokenKey(token), "uid").Result()
	if errors.Is(err, redis.Nil) {
		return "", common.ErrorNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis error: %w", err)
	}
	return uid, nil
}

// withOwner runs fn with the current owner of token and retries when the
// record changed hands in between.
func (s *RedisStore) withOwner(ctx context.Context, token string, fn func(uid string) error) error {
	for range maxTxRetries {
		uid, err := s.owner(ctx, token)
		if err != nil {
			return err
		}
		if err := fn(uid); !errors.Is(err, errOwnerChanged) {
			return err
		}
	}
	return fmt.Errorf("redis error: %w", errOwnerChanged)
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.withOwner(ctx, token, func(uid string) error {
		n, err := deleteTokenLua.Run(ctx, s.rdb,
			[]string{s.tokenKey(token), s.userKey(uid), s.expiryKey()},
			token, uid,
		).Int64()
		if err != nil {
			return fmt.Errorf("redis error: %w", err)
		}
		switch n {
		case 0:
			return common.ErrorNotFound
		case -2:
			return errOwnerChanged
		}
		return nil
	})
}

func (s *RedisStore) Replace(ctx context.Context, oldToken string, next *models.RefreshToken) error {
	prepare(next)

	return s.withOwner(ctx, oldToken, func(uid string) error {
		now := s.now()
		n, err := replaceTokenLua.Run(ctx, s.rdb,
			[]string{
				s.tokenKey(oldToken),
				s.userKey(uid),
				s.expiryKey(),
				s.tokenKey(next.Token),
				s.userKey(next.UserID),
			},
			oldToken,
			uid,
			next.Token,
			next.ID,
			next.UserID,
			next.ExpiresAt.UnixMilli(),
			next.CreatedAt.UnixMilli(),
			s.deadline(next),
			now.UnixMilli(),
			s.pruneBound(now),
		).Int64()
		if err != nil {
			return fmt.Errorf("redis error: %w", err)
		}

		switch n {
		case 0:
			return common.ErrorNotFound
		case -1:
			return common.ErrorAlreadyExists
		case -2:
			return errOwnerChanged
		}
		return nil
	})
}

// watch runs fn in an optimistic transaction on keys, retrying lost races.
func (s *RedisStore) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for range maxTxRetries {
		err := s.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return redis.TxFailedErr
}

func (s *RedisStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	userKey := s.userKey(userID)
	var deleted int64

	err := s.watch(ctx, func(tx *redis.Tx) error {
		tokens, err := tx.SMembers(ctx, userKey).Result()
		if err != nil {
			return err
		}

		dels := make([]*redis.IntCmd, 0, len(tokens))
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, t := range tokens {
				dels = append(dels, pipe.Del(ctx, s.tokenKey(t)))
			}
			if len(tokens) > 0 {
				pipe.ZRem(ctx, s.expiryKey(), toMembers(tokens)...)
			}
			pipe.Del(ctx, userKey)
			return nil
		})
		if err != nil {
			return err
		}

		deleted = 0
		for _, d := range dels {
			deleted += d.Val()
		}
		return nil
	}, userKey)
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return deleted, nil
}

// DeleteExpired removes tokens whose expiry is at or before now, even when
// their keys are still inside the grace period.
func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64

	err := s.watch(ctx, func(tx *redis.Tx) error {
		tokens, err := tx.ZRangeByScore(ctx, s.expiryKey(), &redis.ZRangeBy{
			Min: "-inf",
			Max: strconv.FormatInt(now.UnixMilli(), 10),
		}).Result()
		if err != nil {
			return err
		}
		if len(tokens) == 0 {
			deleted = 0
			return nil
		}

		owners := make(map[string]string, len(tokens))
		for _, t := range tokens {
			uid, err := tx.HGet(ctx, s.tokenKey(t), "uid").Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return err
			}
			owners[t] = uid
		}

		dels := make([]*redis.IntCmd, 0, len(owners))
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for t, uid := range owners {
				dels = append(dels, pipe.Del(ctx, s.tokenKey(t)))
				pipe.SRem(ctx, s.userKey(uid), t)
			}
			pipe.ZRem(ctx, s.expiryKey(), toMembers(tokens)...)
			return nil
		})
		if err != nil {
			return err
		}

		deleted = 0
		for _, d := range dels {
			deleted += d.Val()
		}
		return nil
	}, s.expiryKey())
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return deleted, nil
}

func toMembers(tokens []string) []any {
	members := make([]any, len(tokens))
	for i, t := range tokens {
		members[i] = t
	}
	return members
}
