// Package ledger ведёт балансы и журнал операций.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mvolkov/accmarket-bot/internal/model"
	"github.com/mvolkov/accmarket-bot/internal/store"
)

var kindPrefixes = map[model.TransactionKind]string{
	model.KindPurchase:        "PUR",
	model.KindFundDeposit:     "PAY",
	model.KindAdminAdjustment: "ADJ",
}

// NewTransactionID генерирует идентификатор записи журнала. Пара
// (пользователь, секунда) сама по себе уникальность не гарантирует,
// поэтому добавляется случайный суффикс.
func NewTransactionID(kind model.TransactionKind, userID int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%d_%s", kindPrefixes[kind], userID, time.Now().Unix(), suffix)
}

// NewTransaction собирает завершённую запись журнала.
func NewTransaction(userID, amount int64, kind model.TransactionKind, details string) *model.Transaction {
	now := time.Now()
	return &model.Transaction{
		ID:          NewTransactionID(kind, userID),
		UserID:      userID,
		Amount:      amount,
		Kind:        kind,
		Status:      "completed",
		Details:     details,
		CreatedAt:   now,
		CompletedAt: now,
	}
}

// Engine выполняет операции над балансами поверх общего хранилища.
type Engine struct {
	store  *store.Store
	logger *zap.Logger
}

// NewEngine создаёт движок журнала.
func NewEngine(st *store.Store, logger *zap.Logger) *Engine {
	return &Engine{store: st, logger: logger}
}

// Credit увеличивает баланс пользователя.
func (e *Engine) Credit(userID, amount int64) error {
	return e.store.Update(func(st *model.State) error {
		u := st.User(userID)
		if u == nil {
			return model.ErrNotFound
		}
		u.Balance += amount
		return nil
	})
}

// Debit уменьшает баланс пользователя. Достаточность средств здесь не
// проверяется: составные операции проверяют её сами до списания.
func (e *Engine) Debit(userID, amount int64) error {
	return e.store.Update(func(st *model.State) error {
		u := st.User(userID)
		if u == nil {
			return model.ErrNotFound
		}
		u.Balance -= amount
		return nil
	})
}

// Record добавляет запись журнала.
func (e *Engine) Record(userID, amount int64, kind model.TransactionKind, details string) (*model.Transaction, error) {
	tr := NewTransaction(userID, amount, kind, details)
	err := e.store.Update(func(st *model.State) error {
		if st.User(userID) == nil {
			return model.ErrNotFound
		}
		st.Transactions = append(st.Transactions, tr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// Adjust — административная корректировка: изменение баланса и запись
// журнала одной операцией, затем снапшот.
func (e *Engine) Adjust(ctx context.Context, userID, delta int64, details string) error {
	err := e.store.Update(func(st *model.State) error {
		u := st.User(userID)
		if u == nil {
			return model.ErrNotFound
		}
		u.Balance += delta
		st.Transactions = append(st.Transactions,
			NewTransaction(userID, delta, model.KindAdminAdjustment, details))
		return nil
	})
	if err != nil {
		return err
	}

	if err := e.store.Save(ctx); err != nil {
		e.logger.Warn("snapshot after adjustment failed", zap.Error(err))
	}
	return nil
}

// HistoryFor возвращает копии последних записей журнала пользователя,
// новые первыми.
func (e *Engine) HistoryFor(userID int64, limit int) []model.Transaction {
	var history []model.Transaction
	e.store.View(func(st *model.State) {
		for i := len(st.Transactions) - 1; i >= 0 && len(history) < limit; i-- {
			if st.Transactions[i].UserID == userID {
				history = append(history, *st.Transactions[i])
			}
		}
	})
	return history
}

// Balance возвращает баланс пользователя.
func (e *Engine) Balance(userID int64) (int64, error) {
	var balance int64
	err := e.store.Update(func(st *model.State) error {
		u := st.User(userID)
		if u == nil {
			return model.ErrNotFound
		}
		balance = u.Balance
		return nil
	})
	return balance, err
}
