package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"dukapos/backend/internal/kv"
	"dukapos/backend/internal/store"
	"dukapos/backend/internal/xid"
)

type OpType string

const (
	OpInsert OpType = "insert"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

// QueueKey is the fixed local-storage slot the queue persists under.
const QueueKey = "pos_offline_queue"

// Operation is one pending mutation against the remote store. Update and
// delete target the record named by the payload's "id" key.
type Operation struct {
	ID        string       `json:"id"`
	Type      OpType       `json:"type"`
	Table     string       `json:"table"`
	Payload   store.Record `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type SyncResult struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// Queue is the durable FIFO of operations not yet confirmed against the
// remote store. The full list is persisted on every change; an operation
// leaves the queue only after its remote dispatch succeeded, so replay is
// at-least-once (a crash mid-sync may redeliver).
type Queue struct {
	kv  kv.Store
	key string
}

func NewQueue(kvStore kv.Store, key string) *Queue {
	if key == "" {
		key = QueueKey
	}
	return &Queue{kv: kvStore, key: key}
}

// Add assigns a fresh identifier and timestamp, appends the operation to
// the persisted list, and returns the new identifier.
func (q *Queue) Add(ctx context.Context, typ OpType, table string, payload store.Record) (string, error) {
	switch typ {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return "", fmt.Errorf("%w: operation type %q", store.ErrInvalidOperation, typ)
	}
	if !store.AllowedTable(table) {
		return "", fmt.Errorf("%w: %q", store.ErrUnknownTable, table)
	}

	ops, err := q.load(ctx)
	if err != nil {
		return "", err
	}

	op := Operation{
		ID:        xid.New("op"),
		Type:      typ,
		Table:     table,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	ops = append(ops, op)
	if err := q.save(ctx, ops); err != nil {
		return "", err
	}
	return op.ID, nil
}

// GetAll returns the queued operations in insertion order.
func (q *Queue) GetAll(ctx context.Context) ([]Operation, error) {
	return q.load(ctx)
}

// Remove persists the list with the given operation filtered out. It is
// the only path that shrinks the queue outside of Clear.
func (q *Queue) Remove(ctx context.Context, id string) error {
	ops, err := q.load(ctx)
	if err != nil {
		return err
	}

	kept := make([]Operation, 0, len(ops))
	for _, op := range ops {
		if op.ID != id {
			kept = append(kept, op)
		}
	}
	return q.save(ctx, kept)
}

func (q *Queue) Clear(ctx context.Context) error {
	return q.kv.Delete(ctx, q.key)
}

func (q *Queue) Count(ctx context.Context) (int, error) {
	ops, err := q.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(ops), nil
}

// Sync replays queued operations against the remote store in insertion
// order, each dispatch awaited before the next. A successful dispatch
// removes the operation; a failed one is left in place for the next pass
// and counted. Dispatch failures are never returned as errors.
func (q *Queue) Sync(ctx context.Context, st store.RecordStore) (SyncResult, error) {
	ops, err := q.load(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	var result SyncResult
	for _, op := range ops {
		if err := dispatch(ctx, st, op); err != nil {
			log.Printf("[offline-queue] replay failed id=%s table=%s type=%s: %v", op.ID, op.Table, op.Type, err)
			result.Failed++
			continue
		}
		if err := q.Remove(ctx, op.ID); err != nil {
			// The mutation landed; keeping the entry just means one
			// redundant idempotent replay next pass.
			log.Printf("[offline-queue] WARN: failed to remove replayed op id=%s: %v", op.ID, err)
		}
		result.Success++
	}
	return result, nil
}

func dispatch(ctx context.Context, st store.RecordStore, op Operation) error {
	switch op.Type {
	case OpInsert:
		return st.Insert(ctx, op.Table, op.Payload)
	case OpUpdate:
		id, _ := op.Payload["id"].(string)
		if id == "" {
			return fmt.Errorf("%w: update payload has no id", store.ErrInvalidOperation)
		}
		patch := make(store.Record, len(op.Payload))
		for k, v := range op.Payload {
			if k != "id" {
				patch[k] = v
			}
		}
		return st.Update(ctx, op.Table, id, patch)
	case OpDelete:
		id, _ := op.Payload["id"].(string)
		if id == "" {
			return fmt.Errorf("%w: delete payload has no id", store.ErrInvalidOperation)
		}
		return st.Delete(ctx, op.Table, store.Filter{"id": id})
	default:
		return fmt.Errorf("%w: operation type %q", store.ErrInvalidOperation, op.Type)
	}
}

func (q *Queue) load(ctx context.Context) ([]Operation, error) {
	raw, ok, err := q.kv.Read(ctx, q.key)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []Operation{}, nil
	}

	var ops []Operation
	if err := json.Unmarshal([]byte(raw), &ops); err != nil {
		return nil, fmt.Errorf("corrupt offline queue: %w", err)
	}
	return ops, nil
}

func (q *Queue) save(ctx context.Context, ops []Operation) error {
	payload, err := json.Marshal(ops)
	if err != nil {
		return err
	}
	return q.kv.Write(ctx, q.key, string(payload))
}
