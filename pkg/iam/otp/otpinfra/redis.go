package otpinfra

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kyfplatform/kyf-api/pkg/errx"
	"github.com/kyfplatform/kyf-api/pkg/iam/otp"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements otp.Store on Redis. Challenges live as hashes with
// a key TTL matching their expiry, so expired challenges vanish without a
// sweeper. Consume runs as a Lua script for per-channel atomicity.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed challenge store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func challengeKey(channel kernel.Channel) string {
	return fmt.Sprintf("otp:challenge:%s", channel.String())
}

// consumeScript: compare-and-delete in one atomic unit. Returns
// {status, attempts_remaining}.
var consumeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return {'none', 0}
end
local stored = redis.call('HGET', KEYS[1], 'code')
if stored == ARGV[1] then
	redis.call('DEL', KEYS[1])
	return {'ok', 0}
end
local remaining = redis.call('HINCRBY', KEYS[1], 'attempts', -1)
if remaining <= 0 then
	redis.call('DEL', KEYS[1])
	return {'locked', 0}
end
return {'mismatch', remaining}
`)

// Put stores the challenge, replacing any live one for the channel.
func (s *RedisStore) Put(ctx context.Context, challenge *otp.Challenge) error {
	key := challengeKey(challenge.Channel)
	ttl := time.Until(challenge.ExpiresAt)
	if ttl <= 0 {
		return otp.ErrGenerationFailed().WithDetail("reason", "challenge already expired")
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"id", challenge.ID,
		"code", challenge.Code,
		"attempts", challenge.AttemptsRemaining,
		"created_at", challenge.CreatedAt.Unix(),
		"expires_at", challenge.ExpiresAt.Unix(),
	)
	pipe.PExpire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errx.Wrap(err, "failed to store OTP challenge", errx.TypeInternal)
	}
	return nil
}

// Peek returns the live challenge, or nil when none exists.
func (s *RedisStore) Peek(ctx context.Context, channel kernel.Channel) (*otp.Challenge, error) {
	fields, err := s.rdb.HGetAll(ctx, challengeKey(channel)).Result()
	if err != nil {
		return nil, errx.Wrap(err, "failed to read OTP challenge", errx.TypeInternal)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	attempts, _ := strconv.Atoi(fields["attempts"])
	createdAt, _ := strconv.ParseInt(fields["created_at"], 10, 64)
	expiresAt, _ := strconv.ParseInt(fields["expires_at"], 10, 64)

	return &otp.Challenge{
		ID:                fields["id"],
		Channel:           channel,
		Code:              fields["code"],
		CreatedAt:         time.Unix(createdAt, 0),
		ExpiresAt:         time.Unix(expiresAt, 0),
		AttemptsRemaining: attempts,
	}, nil
}

// Consume runs the atomic read-check-decrement-or-delete unit.
func (s *RedisStore) Consume(ctx context.Context, channel kernel.Channel, code string) (otp.ConsumeResult, error) {
	raw, err := consumeScript.Run(ctx, s.rdb, []string{challengeKey(channel)}, code).Result()
	if err != nil {
		return otp.ConsumeResult{}, errx.Wrap(err, "failed to consume OTP challenge", errx.TypeInternal)
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 2 {
		return otp.ConsumeResult{}, errx.New("unexpected consume script reply", errx.TypeInternal)
	}

	status, _ := reply[0].(string)
	remaining, _ := reply[1].(int64)

	switch status {
	case "ok":
		return otp.ConsumeResult{Status: otp.ConsumeOK}, nil
	case "none":
		return otp.ConsumeResult{Status: otp.ConsumeNoChallenge}, nil
	case "locked":
		return otp.ConsumeResult{Status: otp.ConsumeLocked}, nil
	case "mismatch":
		return otp.ConsumeResult{Status: otp.ConsumeMismatch, AttemptsRemaining: int(remaining)}, nil
	default:
		return otp.ConsumeResult{}, errx.New("unexpected consume status", errx.TypeInternal)
	}
}

// Delete removes the live challenge, if any.
func (s *RedisStore) Delete(ctx context.Context, channel kernel.Channel) error {
	if err := s.rdb.Del(ctx, challengeKey(channel)).Err(); err != nil {
		return errx.Wrap(err, "failed to delete OTP challenge", errx.TypeInternal)
	}
	return nil
}
