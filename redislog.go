package chronicle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLog is an EventLog backed by Redis or Valkey. Sequence assignment
// and storage happen inside a single Lua script, making each append
// atomic with respect to all others across processes
type RedisLog struct {
	client       *redis.Client
	hub          *Hub
	appendEvents *redis.Script
	prefix       string
}

const (
	RedisConnectTimeout = 5 * time.Second

	eventsSuffix = ":events"
	seqSuffix    = ":seq"
)

// ErrUnexpectedLuaResult indicates a Lua script returned a shape the
// client does not understand
var ErrUnexpectedLuaResult = errors.New("unexpected result from Lua script")

// NewRedisLog connects to Redis and returns a log rooted at cfg.Prefix.
// Appended events are published to hub when one is provided
func NewRedisLog(cfg RedisConfig, hub *Hub) (*RedisLog, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(
		context.Background(), RedisConnectTimeout,
	)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}

	return &RedisLog{
		client:       client,
		hub:          hub,
		appendEvents: redis.NewScript(luaAppendEvents),
		prefix:       cfg.Prefix,
	}, nil
}

func (l *RedisLog) Close() error {
	return l.client.Close()
}

func (l *RedisLog) Append(
	ctx context.Context, id ID, atVersion int64, evs []*Event,
) error {
	if len(evs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	keys := []string{l.entityKey(id), l.allKey(), l.seqKey()}
	args := []any{atVersion, now.Format(time.RFC3339Nano)}

	for _, ev := range evs {
		ev.EntityID = id
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		args = append(args, string(data))
	}

	result, err := l.appendEvents.Run(ctx, l.client, keys, args...).Result()
	if err != nil {
		return err
	}

	res, ok := result.([]any)
	if !ok || len(res) < 2 {
		return ErrUnexpectedLuaResult
	}

	if res[0].(int64) == 0 {
		return l.conflictFromResult(res, atVersion)
	}

	first := res[1].(int64)
	for i, ev := range evs {
		ev.Sequence = first + int64(i)
		ev.RecordedAt = now
	}

	if l.hub != nil {
		l.hub.Publish(evs...)
	}
	return nil
}

func (l *RedisLog) EventsFor(ctx context.Context, id ID) ([]*Event, error) {
	items, err := l.client.LRange(ctx, l.entityKey(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return unmarshalEvents(items)
}

func (l *RedisLog) AllEvents(ctx context.Context) ([]*Event, error) {
	items, err := l.client.LRange(ctx, l.allKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return unmarshalEvents(items)
}

func (l *RedisLog) Len(ctx context.Context) (int64, error) {
	return l.client.LLen(ctx, l.allKey()).Result()
}

func (l *RedisLog) conflictFromResult(res []any, expected int64) error {
	if len(res) < 3 {
		return ErrUnexpectedLuaResult
	}

	actual := res[1].(int64)
	raw, ok := res[2].([]any)
	if !ok {
		return ErrUnexpectedLuaResult
	}

	missed := make([]string, 0, len(raw))
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			return ErrUnexpectedLuaResult
		}
		missed = append(missed, str)
	}

	newEvents, err := unmarshalEvents(missed)
	if err != nil {
		return err
	}

	return &VersionConflictError{
		NewEvents:       newEvents,
		ExpectedVersion: expected,
		ActualVersion:   actual,
	}
}

func (l *RedisLog) entityKey(id ID) string {
	return fmt.Sprintf("%s:%s%s", l.prefix, id, eventsSuffix)
}

func (l *RedisLog) allKey() string {
	return l.prefix + eventsSuffix
}

func (l *RedisLog) seqKey() string {
	return l.prefix + seqSuffix
}

func unmarshalEvents(items []string) ([]*Event, error) {
	events := make([]*Event, 0, len(items))
	for _, item := range items {
		ev := &Event{}
		if err := json.Unmarshal([]byte(item), ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
