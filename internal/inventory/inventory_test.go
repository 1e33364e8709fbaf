package inventory

import (
	"context"
	"fmt"
	"sync"
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

func newEngine(t *testing.T, price int64) (*Engine, *store.Store) {
	t.Helper()
	st := store.New(nopChat{}, zap.NewNop(), 42, 0)
	return NewEngine(st, zap.NewNop(), price), st
}

func addItems(t *testing.T, e *Engine, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		_, err := e.Add(context.Background(), fmt.Sprintf("acc%d", i), "pw", "mail@test", 42)
		require.NoError(t, err)
	}
}

func TestAddDuplicateRejected(t *testing.T) {
	e, _ := newEngine(t, 500)
	ctx := context.Background()

	_, err := e.Add(ctx, "acc1", "pw", "m", 42)
	require.NoError(t, err)

	_, err = e.Add(ctx, "acc1", "other", "m", 42)
	assert.ErrorIs(t, err, model.ErrDuplicateItem)
}

func TestAddRejectsPreviouslySoldCredential(t *testing.T) {
	e, s := newEngine(t, 500)
	ctx := context.Background()

	// Учётные данные когда-то были проданы, сама позиция утрачена.
	require.NoError(t, s.Update(func(st *model.State) error {
		st.UsedCredentials["acc_old"] = struct{}{}
		return nil
	}))

	_, err := e.Add(ctx, "acc_old", "pw", "m", 42)
	assert.ErrorIs(t, err, model.ErrDuplicateItem)
}

func TestListAvailableFIFO(t *testing.T) {
	e, _ := newEngine(t, 500)
	addItems(t, e, 3)

	items := e.ListAvailable(2)
	require.Len(t, items, 2)
	assert.Equal(t, "acc1", items[0].Username)
	assert.Equal(t, "acc2", items[1].Username)
	assert.Equal(t, 3, e.Available())
}

// Сценарий A: склад из трёх позиций, цена 5, баланс 12.
func TestPurchaseScenario(t *testing.T) {
	e, s := newEngine(t, 5)
	ctx := context.Background()
	addItems(t, e, 3)

	s.EnsureUser(100, "buyer", "Buyer", "")
	require.NoError(t, s.Update(func(st *model.State) error {
		st.User(100).Balance = 12
		return nil
	}))

	sold, total, err := e.Purchase(ctx, 100, 2)
	require.NoError(t, err)
	require.Len(t, sold, 2)
	assert.Equal(t, "acc1", sold[0].Username)
	assert.Equal(t, "acc2", sold[1].Username)
	assert.Equal(t, int64(10), total)
	assert.Equal(t, 1, e.Available())

	s.View(func(st *model.State) {
		u := st.User(100)
		assert.Equal(t, int64(2), u.Balance)
		assert.Equal(t, int64(10), u.TotalSpent)
		assert.Equal(t, 2, u.TotalPurchases)

		require.Len(t, st.Transactions, 1)
		assert.Equal(t, model.KindPurchase, st.Transactions[0].Kind)
		assert.Equal(t, int64(10), st.Transactions[0].Amount)

		assert.Contains(t, st.UsedCredentials, "acc1")
		assert.Contains(t, st.UsedCredentials, "acc2")
	})

	// Сценарий B: на складе осталась одна позиция.
	_, _, err = e.Purchase(ctx, 100, 3)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	s.View(func(st *model.State) {
		assert.Equal(t, int64(2), st.User(100).Balance)
		assert.Len(t, st.Transactions, 1)
	})
	assert.Equal(t, 1, e.Available())
}

func TestPurchaseInsufficientFundsNoMutation(t *testing.T) {
	e, s := newEngine(t, 500)
	ctx := context.Background()
	addItems(t, e, 2)

	s.EnsureUser(100, "buyer", "Buyer", "")

	_, _, err := e.Purchase(ctx, 100, 1)
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)

	assert.Equal(t, 2, e.Available())
	s.View(func(st *model.State) {
		assert.Empty(t, st.Transactions)
		assert.Empty(t, st.UsedCredentials)
	})
}

func TestPurchaseUnknownUser(t *testing.T) {
	e, _ := newEngine(t, 500)
	addItems(t, e, 1)

	_, _, err := e.Purchase(context.Background(), 777, 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

// Параллельные покупки не должны продать одну позицию дважды.
func TestConcurrentPurchases(t *testing.T) {
	const (
		buyers   = 8
		quantity = 2
		stock    = 10 // меньше, чем buyers*quantity
	)

	e, s := newEngine(t, 1)
	ctx := context.Background()
	addItems(t, e, stock)

	for i := 0; i < buyers; i++ {
		id := int64(1000 + i)
		s.EnsureUser(id, fmt.Sprintf("u%d", i), "U", "")
		require.NoError(t, s.Update(func(st *model.State) error {
			st.User(id).Balance = 1000
			return nil
		}))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		soldTotal int
		succeeded int
	)
	for i := 0; i < buyers; i++ {
		id := int64(1000 + i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sold, _, err := e.Purchase(ctx, id, quantity)
			if err != nil {
				return
			}
			mu.Lock()
			soldTotal += len(sold)
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, stock, soldTotal)
	assert.Equal(t, 0, e.Available())

	// Каждая позиция продана ровно один раз.
	s.View(func(st *model.State) {
		ownersSeen := map[int]int64{}
		for _, it := range st.Stock {
			require.True(t, it.IsSold)
			require.NotNil(t, it.SoldTo)
			ownersSeen[it.ID] = *it.SoldTo
		}
		assert.Len(t, ownersSeen, stock)
	})
}

func TestSetPrice(t *testing.T) {
	e, _ := newEngine(t, 500)
	ctx := context.Background()

	assert.Equal(t, int64(500), e.Price())

	require.NoError(t, e.SetPrice(ctx, 700))
	assert.Equal(t, int64(700), e.Price())

	err := e.SetPrice(ctx, -1)
	assert.ErrorIs(t, err, model.ErrValidation)
}
