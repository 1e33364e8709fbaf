package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mvolkov/accmarket-bot/internal/model"
	"github.com/mvolkov/accmarket-bot/internal/store"
)

type nopChat struct{}

func (nopChat) Append(ctx context.Context, body string) error { return nil }
func (nopChat) FetchRecent(ctx context.Context, limit int) ([]string, error) {
	return nil, nil
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	st := store.New(nopChat{}, zap.NewNop(), 42, 0)
	return NewRegistry(st, zap.NewNop(), 42)
}

func TestRootAdminPresentByDefault(t *testing.T) {
	r := newRegistry(t)

	assert.True(t, r.IsAdmin(42))
	assert.False(t, r.IsAdmin(7))
	assert.Equal(t, []int64{42}, r.List())
}

func TestAddAdmin(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	assert.True(t, r.Add(ctx, 7))
	assert.True(t, r.IsAdmin(7))

	// Повторное добавление — no-op.
	assert.False(t, r.Add(ctx, 7))
	assert.False(t, r.Add(ctx, 42))
	assert.Len(t, r.List(), 2)
}

func TestRemoveAdmin(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	require.True(t, r.Add(ctx, 7))
	require.NoError(t, r.Remove(ctx, 7))
	assert.False(t, r.IsAdmin(7))

	err := r.Remove(ctx, 7)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRootAdminProtected(t *testing.T) {
	r := newRegistry(t)

	err := r.Remove(context.Background(), 42)
	assert.ErrorIs(t, err, model.ErrProtectedAdmin)
	assert.True(t, r.IsAdmin(42))
}
