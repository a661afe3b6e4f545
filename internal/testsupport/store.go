package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"stagehand/internal/config"
	"stagehand/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewAction persists a fresh action for tests and returns it.
func NewAction(t testing.TB, st *store.Store, broadcastID string, kind store.ActionKind, at time.Time) *store.Action {
	t.Helper()

	action := &store.Action{
		ID:          uuid.NewString(),
		BroadcastID: broadcastID,
		Kind:        kind,
		At:          at,
	}
	if err := st.UpsertAction(context.Background(), action); err != nil {
		t.Fatalf("store.UpsertAction: %v", err)
	}
	return action
}
