// Package inventory holds the stock consistency engine: availability
// checks before a line is added to a cart, atomic stock decrements at
// checkout with rollback on partial failure, and restoration when a sale
// is voided.
package inventory

import (
	"dukapos/backend/internal/store"
)

type Engine struct {
	store store.RecordStore
}

func NewEngine(st store.RecordStore) *Engine {
	return &Engine{store: st}
}
