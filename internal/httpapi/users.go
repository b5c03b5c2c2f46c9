package httpapi

import (
	"context"

	"dukapos/backend/internal/domain"
	"dukapos/backend/internal/store"
)

// RecordUserStore adapts the generic record store to the UserStore the
// auth manager expects.
type RecordUserStore struct {
	store store.RecordStore
}

func NewRecordUserStore(st store.RecordStore) *RecordUserStore {
	return &RecordUserStore{store: st}
}

func (s *RecordUserStore) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	records, err := s.store.List(ctx, store.TableUsers, nil)
	if err != nil {
		return nil, err
	}
	users := make([]domain.UserAccount, 0, len(records))
	for _, rec := range records {
		users = append(users, domain.UserFromRecord(rec))
	}
	return users, nil
}

func (s *RecordUserStore) UpdateUserPassword(ctx context.Context, username string, password string) error {
	rec, err := s.store.Get(ctx, store.TableUsers, store.Filter{"username": username})
	if err != nil {
		return err
	}
	id, _ := rec["id"].(string)
	if id == "" {
		return store.ErrNotFound
	}
	return s.store.Update(ctx, store.TableUsers, id, store.Record{"password": password})
}
