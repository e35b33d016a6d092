package directory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/JaimeStill/missive/internal/directory"
)

type fakeDirectory struct {
	users map[uuid.UUID]directory.User
	calls int
}

func (f *fakeDirectory) Find(_ context.Context, id uuid.UUID) (*directory.User, error) {
	f.calls++
	u, ok := f.users[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &u, nil
}

func TestResolve(t *testing.T) {
	known := uuid.New()
	unknown := uuid.New()

	dir := &fakeDirectory{users: map[uuid.UUID]directory.User{
		known: {ID: known, DisplayName: "Ada Lovelace", Email: "ada@example.com"},
	}}

	got := directory.Resolve(context.Background(), dir, known, unknown, known)

	assert.Equal(t, 2, dir.calls)
	assert.Equal(t, "Ada Lovelace", got[known].DisplayName)
	assert.Equal(t, directory.User{ID: unknown}, got[unknown])
}
