package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lastDispatchKey     = "notify:last-dispatch"
	waitingVersionKey   = "sw:waiting"
	activeVersionKey    = "sw:active"
	installDismissedKey = "install:dismissed-at"
)

// StateStore persists the small cross-session state shared by the page and
// worker contexts: the dispatch rate-limit timestamp, the worker's waiting
// and active generation slots, and the install-prompt dismissal timestamp.
// Absent values are not errors — they read back as zero values.
type StateStore interface {
	LastDispatch(ctx context.Context) (time.Time, error)
	SetLastDispatch(ctx context.Context, t time.Time) error

	WaitingVersion(ctx context.Context) (int, bool, error)
	SetWaitingVersion(ctx context.Context, version int) error
	ClearWaitingVersion(ctx context.Context) error

	ActiveVersion(ctx context.Context) (int, bool, error)
	SetActiveVersion(ctx context.Context, version int) error

	InstallDismissedAt(ctx context.Context) (time.Time, error)
	SetInstallDismissedAt(ctx context.Context, t time.Time) error
}

type stateStore struct {
	client *redis.Client
}

// NewStateStore creates a Redis-backed StateStore.
func NewStateStore(client *redis.Client) StateStore {
	return &stateStore{client: client}
}

func (s *stateStore) getTime(ctx context.Context, key string) (time.Time, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("redis get %s: %w", key, err)
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp at %s: %w", key, err)
	}
	return t, nil
}

func (s *stateStore) setTime(ctx context.Context, key string, t time.Time) error {
	if err := s.client.Set(ctx, key, t.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *stateStore) getVersion(ctx context.Context, key string) (int, bool, error) {
	v, err := s.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *stateStore) LastDispatch(ctx context.Context) (time.Time, error) {
	return s.getTime(ctx, lastDispatchKey)
}

func (s *stateStore) SetLastDispatch(ctx context.Context, t time.Time) error {
	return s.setTime(ctx, lastDispatchKey, t)
}

func (s *stateStore) WaitingVersion(ctx context.Context) (int, bool, error) {
	return s.getVersion(ctx, waitingVersionKey)
}

func (s *stateStore) SetWaitingVersion(ctx context.Context, version int) error {
	if err := s.client.Set(ctx, waitingVersionKey, version, 0).Err(); err != nil {
		return fmt.Errorf("redis set waiting version: %w", err)
	}
	return nil
}

func (s *stateStore) ClearWaitingVersion(ctx context.Context) error {
	if err := s.client.Del(ctx, waitingVersionKey).Err(); err != nil {
		return fmt.Errorf("redis clear waiting version: %w", err)
	}
	return nil
}

func (s *stateStore) ActiveVersion(ctx context.Context) (int, bool, error) {
	return s.getVersion(ctx, activeVersionKey)
}

func (s *stateStore) SetActiveVersion(ctx context.Context, version int) error {
	if err := s.client.Set(ctx, activeVersionKey, version, 0).Err(); err != nil {
		return fmt.Errorf("redis set active version: %w", err)
	}
	return nil
}

func (s *stateStore) InstallDismissedAt(ctx context.Context) (time.Time, error) {
	return s.getTime(ctx, installDismissedKey)
}

func (s *stateStore) SetInstallDismissedAt(ctx context.Context, t time.Time) error {
	return s.setTime(ctx, installDismissedKey, t)
}
