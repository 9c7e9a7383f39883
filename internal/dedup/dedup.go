// Copyright (c) 2026 Das ELB Hotel & Restaurant
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dedup provides message deduplication and the poll lock, both backed
// by Redis. The seen-filter prevents a message from entering the pipeline
// twice when poll windows overlap; the poll lock keeps concurrent triggers
// (interval timer, manual API trigger, bulk import) from running the mailbox
// fetch at the same time.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long we remember a seen message ID. The database is
	// the durable dedup layer; Redis just absorbs the hot path.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces dedup keys in Redis.
	keyPrefix = "concierge:seen:"

	// pollLockKey is the single mutex guarding mailbox polling.
	pollLockKey = "concierge:poll:lock"

	// pollLockTTL caps how long a crashed poller can hold the lock.
	pollLockTTL = 10 * time.Minute
)

// Filter tracks which message IDs have already been processed.
type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFilter creates a dedup filter backed by Redis.
func NewFilter(rdb *redis.Client) *Filter {
	return &Filter{
		rdb: rdb,
		ttl: DefaultTTL,
	}
}

// IsNew returns true if the message ID has NOT been seen before.
// If true, the message is marked as seen atomically (SETNX).
func (f *Filter) IsNew(ctx context.Context, messageID string) (bool, error) {
	key := fmt.Sprintf("%s%s", keyPrefix, messageID)

	set, err := f.rdb.SetNX(ctx, key, 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}

	return set, nil
}

// PollLock is a best-effort distributed mutex around mailbox polling.
type PollLock struct {
	rdb *redis.Client
}

// NewPollLock creates the poll lock.
func NewPollLock(rdb *redis.Client) *PollLock {
	return &PollLock{rdb: rdb}
}

// TryAcquire attempts to take the lock. It returns true when this caller now
// holds it; false means another poll cycle is in flight.
func (l *PollLock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, pollLockKey, 1, pollLockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("poll lock SETNX: %w", err)
	}
	return ok, nil
}

// Release frees the lock.
func (l *PollLock) Release(ctx context.Context) error {
	if err := l.rdb.Del(ctx, pollLockKey).Err(); err != nil {
		return fmt.Errorf("poll lock DEL: %w", err)
	}
	return nil
}
