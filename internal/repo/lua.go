package repo

import (
	"github.com/redis/go-redis/v9"
)

// scriptAcquire admits one request into a fixed window when it still has
// capacity. The key expires with the window, which is the reset.
var scriptAcquire = redis.NewScript(`
-- KEYS[1] = window counter key
-- ARGV[1] = window_ms
-- ARGV[2] = limit

local window = tonumber(ARGV[1])
local limit  = tonumber(ARGV[2])

local cnt = tonumber(redis.call('GET', KEYS[1]) or '0')
local ttl = redis.call('PTTL', KEYS[1])

if cnt >= limit then
  if ttl < 0 then
    ttl = window
  end
  return {0, cnt, ttl}
end

cnt = redis.call('INCR', KEYS[1])
if cnt == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], window)
  ttl = window
end

return {1, cnt, ttl}
`)

// scriptIncr advances a window counter unconditionally.
var scriptIncr = redis.NewScript(`
local cnt = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if cnt == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {cnt, ttl}
`)
