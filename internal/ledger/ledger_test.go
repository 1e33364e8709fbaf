package ledger

import (
	"context"
	"errors"
	"strings"
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

func newEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	st := store.New(nopChat{}, zap.NewNop(), 42, 0)
	st.EnsureUser(1, "user", "User", "")
	return NewEngine(st, zap.NewNop()), st
}

func TestCreditDebit(t *testing.T) {
	e, _ := newEngine(t)

	require.NoError(t, e.Credit(1, 1000))
	require.NoError(t, e.Debit(1, 300))

	balance, err := e.Balance(1)
	require.NoError(t, err)
	assert.Equal(t, int64(700), balance)
}

func TestCreditUnknownUser(t *testing.T) {
	e, _ := newEngine(t)

	err := e.Credit(99, 100)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTransactionIDsUnique(t *testing.T) {
	// Быстрые повторные операции одного пользователя в пределах одной
	// секунды не должны давать одинаковые идентификаторы.
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewTransactionID(model.KindPurchase, 1)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		assert.True(t, strings.HasPrefix(id, "PUR_1_"))
	}
}

func TestRecordAppends(t *testing.T) {
	e, s := newEngine(t)

	tr, err := e.Record(1, 500, model.KindFundDeposit, "Payment via UTR: 123456789012")
	require.NoError(t, err)
	assert.Equal(t, "completed", tr.Status)

	s.View(func(st *model.State) {
		require.Len(t, st.Transactions, 1)
		assert.Equal(t, tr.ID, st.Transactions[0].ID)
	})
}

func TestAdjustCreditsAndRecords(t *testing.T) {
	e, s := newEngine(t)

	require.NoError(t, e.Adjust(context.Background(), 1, 2500, "manual top-up"))

	balance, err := e.Balance(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), balance)

	s.View(func(st *model.State) {
		require.Len(t, st.Transactions, 1)
		assert.Equal(t, model.KindAdminAdjustment, st.Transactions[0].Kind)
	})
}

func TestAdjustUnknownUserNoRecord(t *testing.T) {
	e, s := newEngine(t)

	err := e.Adjust(context.Background(), 77, 100, "nope")
	require.True(t, errors.Is(err, model.ErrNotFound))

	s.View(func(st *model.State) {
		assert.Empty(t, st.Transactions)
	})
}

func TestHistoryNewestFirst(t *testing.T) {
	e, _ := newEngine(t)

	_, err := e.Record(1, 100, model.KindFundDeposit, "first")
	require.NoError(t, err)
	_, err = e.Record(1, 200, model.KindPurchase, "second")
	require.NoError(t, err)

	history := e.HistoryFor(1, 10)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Details)
	assert.Equal(t, "first", history[1].Details)

	assert.Len(t, e.HistoryFor(1, 1), 1)
	assert.Empty(t, e.HistoryFor(2, 10))
}
