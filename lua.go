package chronicle

const luaAppendEvents = `
	-- Atomically assign global sequence numbers and append events,
	-- guarded by the entity's expected version
	-- KEYS[1] = entity event list key
	-- KEYS[2] = global event list key
	-- KEYS[3] = global sequence counter key
	-- ARGV[1] = expected entity version (-1 disables the check)
	-- ARGV[2] = recorded-at timestamp (RFC 3339)
	-- ARGV[3..N] = event data (JSON)
	-- Returns: {1, firstSequence} on success,
	--          {0, currentVersion, missedEvents} on conflict

	local expected = tonumber(ARGV[1])
	local current = redis.call('LLEN', KEYS[1])

	if expected >= 0 and expected ~= current then
		if expected < current then
			local missed = redis.call('LRANGE', KEYS[1], expected, -1)
			return {0, current, missed}
		end
		return {0, current, {}}
	end

	local first = 0
	for i = 3, #ARGV do
		local ev = cjson.decode(ARGV[i])
		local seq = redis.call('INCR', KEYS[3])
		if first == 0 then
			first = seq
		end
		ev['sequence'] = seq
		ev['recorded_at'] = ARGV[2]
		local enc = cjson.encode(ev)
		redis.call('RPUSH', KEYS[1], enc)
		redis.call('RPUSH', KEYS[2], enc)
	end

	return {1, first}
	`
