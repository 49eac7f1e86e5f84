package jobqueue

import "github.com/redis/go-redis/v9"

// upsertScript stores a job and (re)schedules it unless the same delivery
// was already sent.
// KEYS[1] = job hash, KEYS[2] = delayed, KEYS[3] = failed, KEYS[4] = sent marker
// ARGV[1] = id, ARGV[2] = payload, ARGV[3] = score, ARGV[4] = version
var upsertScript = redis.NewScript(`
if redis.call('GET', KEYS[4]) == ARGV[4] then return 0 end
redis.call('HSET', KEYS[1], 'data', ARGV[2], 'version', ARGV[4])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
redis.call('ZREM', KEYS[3], ARGV[1])
return 1
`)

// claimScript returns abandoned active jobs to the delayed set, then moves
// due jobs to the active set.
// KEYS[1] = delayed, KEYS[2] = active
// ARGV[1] = now, ARGV[2] = stale cutoff, ARGV[3] = limit
var claimScript = redis.NewScript(`
local stale = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[2])
for _, id in ipairs(stale) do
    redis.call('ZREM', KEYS[2], id)
    if not redis.call('ZSCORE', KEYS[1], id) then
        redis.call('ZADD', KEYS[1], ARGV[1], id)
    end
end
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[3]))
for _, id in ipairs(ids) do
    redis.call('ZREM', KEYS[1], id)
    redis.call('ZADD', KEYS[2], ARGV[1], id)
end
return ids
`)

// completeScript records a delivery. The job survives only if it was
// rescheduled to a different version while it was running.
// KEYS[1] = job hash, KEYS[2] = active, KEYS[3] = delayed, KEYS[4] = sent marker
// ARGV[1] = id, ARGV[2] = version, ARGV[3] = marker ttl ms
var completeScript = redis.NewScript(`
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('SET', KEYS[4], ARGV[2], 'PX', ARGV[3])
local pending = redis.call('ZSCORE', KEYS[3], ARGV[1])
if pending and redis.call('HGET', KEYS[1], 'version') == ARGV[2] then
    redis.call('ZREM', KEYS[3], ARGV[1])
    pending = false
end
if not pending then redis.call('DEL', KEYS[1]) end
return 1
`)

// failScript records a failed attempt. A job that was removed or
// rescheduled to another version in the meantime is left alone.
// KEYS[1] = job hash, KEYS[2] = active, KEYS[3] = delayed, KEYS[4] = failed
// ARGV[1] = id, ARGV[2] = payload, ARGV[3] = version, ARGV[4] = dead, ARGV[5] = score
var failScript = redis.NewScript(`
redis.call('ZREM', KEYS[2], ARGV[1])
if redis.call('HGET', KEYS[1], 'version') ~= ARGV[3] then return 0 end
redis.call('HSET', KEYS[1], 'data', ARGV[2])
if ARGV[4] == '1' then
    redis.call('ZREM', KEYS[3], ARGV[1])
    redis.call('ZADD', KEYS[4], ARGV[5], ARGV[1])
else
    redis.call('ZADD', KEYS[3], ARGV[5], ARGV[1])
end
return 1
`)

// markSentScript sets the sent marker unless it already holds the version.
// KEYS[1] = sent marker
// ARGV[1] = version, ARGV[2] = ttl ms
var markSentScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

// compareAndDeleteScript deletes KEYS[1] only while it holds ARGV[1].
var compareAndDeleteScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)
