package ratelimit

import (
	"context"
	"errors"
	"strconv"

	redis "github.com/redis/go-redis/v9"
)

// The script refills and consumes atomically. Redis TIME is the clock
// so every instance sees the same bucket state.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local now = redis.call("TIME")
local nowMs = now[1] * 1000 + math.floor(now[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])

if tokens == nil then
  tokens = burst
else
  local delta = nowMs - ts
  if delta < 0 then
    delta = 0
  end
  tokens = math.min(burst, tokens + (delta / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HMSET", KEYS[1], "tokens", tokens, "ts", nowMs)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens)}
`

type redisLimiter struct {
	client *redis.Client
	script *redis.Script
}

func newRedisLimiter(client *redis.Client) *redisLimiter {
	return &redisLimiter{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

func (l *redisLimiter) Allow(ctx context.Context, key string, rate float64, burst int) (*Result, error) {
	if err := validate(key, rate, burst); err != nil {
		return nil, err
	}

	reply, err := l.script.Run(
		ctx,
		l.client,
		[]string{key},
		rate,
		burst,
		bucketTTL(rate, burst).Milliseconds(),
	).Slice()
	if err != nil {
		return nil, err
	}
	if len(reply) != 2 {
		return nil, errors.New("unexpected token bucket reply")
	}

	allowed, ok := reply[0].(int64)
	raw, rawOK := reply[1].(string)
	if !ok || !rawOK {
		return nil, errors.New("unexpected token bucket reply")
	}
	tokens, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}

	return newResult(allowed == 1, tokens, rate, burst), nil
}
