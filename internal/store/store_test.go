package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mvolkov/accmarket-bot/internal/codec"
	"github.com/mvolkov/accmarket-bot/internal/model"
)

const rootAdmin = int64(42)

// stubChat — канал хранения в памяти для тестов.
type stubChat struct {
	bodies    []string // новые первыми
	appendErr error
	fetchErr  error
	appended  []string
}

func (s *stubChat) Append(ctx context.Context, body string) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, body)
	s.bodies = append([]string{body}, s.bodies...)
	return nil
}

func (s *stubChat) FetchRecent(ctx context.Context, limit int) ([]string, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if len(s.bodies) > limit {
		return s.bodies[:limit], nil
	}
	return s.bodies, nil
}

func encodeState(t *testing.T, st *model.State) string {
	t.Helper()
	body, err := codec.New().Encode(st)
	require.NoError(t, err)
	return body
}

func TestLoadEmptyChannelGivesDefaultState(t *testing.T) {
	s := New(&stubChat{}, zap.NewNop(), rootAdmin, 0)
	s.Load(context.Background())

	s.View(func(st *model.State) {
		assert.Equal(t, []int64{rootAdmin}, st.Admins)
		assert.Empty(t, st.Users)
		assert.Empty(t, st.Stock)
	})
}

func TestLoadPicksNewestValidSnapshot(t *testing.T) {
	older := model.NewState(rootAdmin)
	older.EnsureUser(1, "old", "Old", "")

	newer := model.NewState(rootAdmin)
	newer.EnsureUser(1, "new", "New", "")
	newer.EnsureUser(2, "second", "Second", "")

	chat := &stubChat{bodies: []string{
		"👤 NEW USER REGISTERED\nUser ID: 1", // не снапшот
		encodeState(t, newer),
		encodeState(t, older),
	}}

	s := New(chat, zap.NewNop(), rootAdmin, 0)
	s.Load(context.Background())

	s.View(func(st *model.State) {
		assert.Len(t, st.Users, 2)
		assert.Equal(t, "new", st.Users[1].Username)
	})
}

func TestLoadSkipsCorruptedSnapshot(t *testing.T) {
	valid := model.NewState(rootAdmin)
	valid.EnsureUser(7, "seven", "Seven", "")

	chat := &stubChat{bodies: []string{
		codec.TagLine + "\nTime: x\n\n***garbage***",
		encodeState(t, valid),
	}}

	s := New(chat, zap.NewNop(), rootAdmin, 0)
	s.Load(context.Background())

	s.View(func(st *model.State) {
		require.Len(t, st.Users, 1)
		assert.Equal(t, "seven", st.Users[7].Username)
	})
}

func TestLoadFetchFailureNotFatal(t *testing.T) {
	chat := &stubChat{fetchErr: &model.PersistenceError{Op: "fetch", Err: errors.New("network down")}}

	s := New(chat, zap.NewNop(), rootAdmin, 0)
	s.Load(context.Background())

	s.View(func(st *model.State) {
		assert.Equal(t, []int64{rootAdmin}, st.Admins)
	})
}

func TestLoadReinsertsRootAdmin(t *testing.T) {
	// Устаревший снапшот, где корневого администратора нет.
	stale := model.NewState(999)

	chat := &stubChat{bodies: []string{encodeState(t, stale)}}

	s := New(chat, zap.NewNop(), rootAdmin, 0)
	s.Load(context.Background())

	s.View(func(st *model.State) {
		assert.True(t, st.IsAdmin(rootAdmin))
		assert.True(t, st.IsAdmin(999))
	})
}

func TestSaveAppendsSnapshot(t *testing.T) {
	chat := &stubChat{}
	s := New(chat, zap.NewNop(), rootAdmin, 0)

	require.NoError(t, s.Update(func(st *model.State) error {
		st.EnsureUser(5, "five", "Five", "")
		return nil
	}))
	require.NoError(t, s.Save(context.Background()))

	require.Len(t, chat.appended, 1)
	assert.True(t, codec.IsSnapshot(chat.appended[0]))

	decoded, err := codec.New().Decode(chat.appended[0])
	require.NoError(t, err)
	assert.Contains(t, decoded.Users, int64(5))
}

func TestSaveFailureKeepsState(t *testing.T) {
	chat := &stubChat{appendErr: &model.PersistenceError{Op: "append", Err: errors.New("timeout")}}
	s := New(chat, zap.NewNop(), rootAdmin, 0)

	require.NoError(t, s.Update(func(st *model.State) error {
		st.EnsureUser(5, "five", "Five", "")
		return nil
	}))

	err := s.Save(context.Background())
	require.Error(t, err)

	var perr *model.PersistenceError
	assert.ErrorAs(t, err, &perr)

	// Мутация не откатилась.
	s.View(func(st *model.State) {
		assert.Contains(t, st.Users, int64(5))
	})
}

func TestEnsureUserCreatesOnce(t *testing.T) {
	s := New(&stubChat{}, zap.NewNop(), rootAdmin, 0)

	assert.True(t, s.EnsureUser(1, "u", "F", "L"))
	assert.False(t, s.EnsureUser(1, "u", "F", "L"))
}

func TestStats(t *testing.T) {
	s := New(&stubChat{}, zap.NewNop(), rootAdmin, 0)

	require.NoError(t, s.Update(func(st *model.State) error {
		st.EnsureUser(1, "a", "A", "")
		st.User(1).Balance = 700
		st.Stock = append(st.Stock,
			&model.StockItem{ID: 1, Username: "x"},
			&model.StockItem{ID: 2, Username: "y", IsSold: true},
		)
		st.Transactions = append(st.Transactions, &model.Transaction{
			ID: "PUR_1_0_abcd", UserID: 1, Amount: 500, Kind: model.KindPurchase,
		})
		return nil
	}))

	stats := s.Stats()
	assert.Equal(t, 1, stats.Users)
	assert.Equal(t, int64(700), stats.TotalBalance)
	assert.Equal(t, int64(500), stats.TotalSales)
	assert.Equal(t, 2, stats.TotalStock)
	assert.Equal(t, 1, stats.SoldStock)
	assert.Equal(t, 1, stats.AvailableStock)
	assert.Equal(t, 1, stats.Admins)
}
