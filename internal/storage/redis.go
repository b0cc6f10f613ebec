package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one hash per task at <prefix>:<id> and the collection
// membership in the set <prefix>:ids.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	log    *slog.Logger
}

func OpenRedis(ctx context.Context, addr, password string, db int, prefix string, logger *slog.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedis(rdb, prefix, logger), nil
}

func NewRedis(rdb *redis.Client, prefix string, logger *slog.Logger) *RedisStore {
	if prefix == "" {
		prefix = DefaultCollection
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RedisStore{rdb: rdb, prefix: prefix, log: logger}
}

func (s *RedisStore) idsKey() string {
	return s.prefix + ":ids"
}

func (s *RedisStore) taskKey(id string) string {
	return s.prefix + ":" + id
}

func (s *RedisStore) LoadAll(ctx context.Context) ([]Task, error) {
	ids, err := s.rdb.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	sort.Strings(ids)

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.taskKey(id))
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("loading tasks: %w", err)
		}
	}

	tasks := make([]Task, 0, len(ids))
	for i, id := range ids {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			continue
		}
		tasks = append(tasks, Task{
			ID:       id,
			Text:     fields["text"],
			Done:     fields["done"] == "1",
			Priority: Priority(fields["priority"]).Normalize(),
		})
	}
	s.log.Debug("loaded tasks", "count", len(tasks))
	return tasks, nil
}

func (s *RedisStore) Save(ctx context.Context, t *Task) error {
	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}
	done := "0"
	if t.Done {
		done = "1"
	}
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, s.taskKey(id), "text", t.Text, "done", done, "priority", t.Priority.String())
	pipe.SAdd(ctx, s.idsKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving task %s: %w", id, err)
	}
	t.ID = id
	s.log.Debug("saved task", "id", id)
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, t Task) error {
	if t.ID == "" {
		return nil
	}
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, s.taskKey(t.ID))
	pipe.SRem(ctx, s.idsKey(), t.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting task %s: %w", t.ID, err)
	}
	s.log.Debug("deleted task", "id", t.ID)
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
