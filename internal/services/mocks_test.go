package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	return db, mock
}

// claimQueryPattern pins the shape of the inventory claim select: oldest
// ready row first with the id as tie-break, locked with SKIP LOCKED so
// concurrent claims take distinct rows instead of blocking.
const claimQueryPattern = `(?s)SELECT id, email, password, profile_name, profile_pin, package_type, status, created_at, updated_at.*FROM inventory.*WHERE status = 'ready' AND package_type = \$1.*ORDER BY created_at, id.*LIMIT 1.*FOR UPDATE SKIP LOCKED`

// fakeSender records broadcast deliveries and can fail selected users.
type fakeSender struct {
	mu       sync.Mutex
	messages []string
	photos   []string
	failFor  map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: make(map[string]bool)}
}

func (f *fakeSender) SendMessage(_ context.Context, userID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[userID] {
		return assert.AnError
	}
	f.messages = append(f.messages, userID)
	return nil
}

func (f *fakeSender) SendPhoto(_ context.Context, userID, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[userID] {
		return assert.AnError
	}
	f.photos = append(f.photos, userID)
	return nil
}
