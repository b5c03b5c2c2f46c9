// Package cache holds the read-through record cache that lets stock reads
// keep working while the remote store is unreachable. Every successful
// online read refreshes the cached copy; the offline store wrapper serves
// from it when the link is down.
package cache

import (
	"context"
	"time"

	"dukapos/backend/internal/store"
)

type RecordCache interface {
	Get(ctx context.Context, table string, id string) (store.Record, bool, error)
	Set(ctx context.Context, table string, id string, rec store.Record, ttl time.Duration) error
}

type NoopRecordCache struct{}

func (NoopRecordCache) Get(context.Context, string, string) (store.Record, bool, error) {
	return nil, false, nil
}

func (NoopRecordCache) Set(context.Context, string, string, store.Record, time.Duration) error {
	return nil
}
