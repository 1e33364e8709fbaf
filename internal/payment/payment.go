// Package payment ведёт жизненный цикл платежей.
//
// Машина состояний: pending → pending_reference → verified. Конечные
// состояния verified и rejected; назад переходов нет.
package payment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mvolkov/accmarket-bot/internal/ledger"
	"github.com/mvolkov/accmarket-bot/internal/model"
	"github.com/mvolkov/accmarket-bot/internal/store"
)

// Engine выполняет операции с платежами поверх общего хранилища.
type Engine struct {
	store  *store.Store
	logger *zap.Logger
}

// NewEngine создаёт движок платежей.
func NewEngine(st *store.Store, logger *zap.Logger) *Engine {
	return &Engine{store: st, logger: logger}
}

// NewPaymentID генерирует идентификатор платежа для пользователя.
func NewPaymentID(userID int64) string {
	return fmt.Sprintf("PAY_%d_%d", userID, time.Now().Unix())
}

// Create заводит платёж в статусе pending. Идентификатор задаёт
// вызывающая сторона; занятый идентификатор — её ошибка.
func (e *Engine) Create(ctx context.Context, paymentID string, userID int64) (*model.Payment, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("%w: empty payment id", model.ErrValidation)
	}

	var created *model.Payment
	err := e.store.Update(func(st *model.State) error {
		if st.User(userID) == nil {
			return model.ErrNotFound
		}
		if st.Payment(paymentID) != nil {
			return model.ErrPaymentExists
		}
		created = &model.Payment{
			ID:        paymentID,
			UserID:    userID,
			Status:    model.PaymentStatusPending,
			CreatedAt: time.Now(),
		}
		st.Payments = append(st.Payments, created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.saveSnapshot(ctx)
	return created, nil
}

// AttachReference сохраняет присланный плательщиком код подтверждения и
// переводит платёж в pending_reference. Допустимо только из pending и
// pending_reference.
func (e *Engine) AttachReference(ctx context.Context, paymentID, reference string) error {
	err := e.store.Update(func(st *model.State) error {
		p := st.Payment(paymentID)
		if p == nil || p.Status.Terminal() {
			return model.ErrNotFound
		}
		p.Reference = reference
		p.Status = model.PaymentStatusPendingReference
		return nil
	})
	if err != nil {
		return err
	}

	e.saveSnapshot(ctx)
	return nil
}

// Verify подтверждает платёж: фиксирует сумму, зачисляет её на баланс и
// пишет запись журнала. Повторное подтверждение и неизвестный платёж
// отклоняются как ErrNotFound — двойного зачисления не бывает.
func (e *Engine) Verify(ctx context.Context, paymentID string, amount int64, verifiedBy int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", model.ErrValidation)
	}

	err := e.store.Update(func(st *model.State) error {
		p := st.Payment(paymentID)
		if p == nil || p.Status.Terminal() {
			return model.ErrNotFound
		}
		u := st.User(p.UserID)
		if u == nil {
			return model.ErrNotFound
		}

		now := time.Now()
		p.Amount = &amount
		p.Status = model.PaymentStatusVerified
		p.VerifiedAt = &now
		p.VerifiedBy = verifiedBy

		u.Balance += amount

		reference := p.Reference
		if reference == "" {
			reference = "N/A"
		}
		details := fmt.Sprintf("Payment via UTR: %s", reference)
		st.Transactions = append(st.Transactions,
			ledger.NewTransaction(p.UserID, amount, model.KindFundDeposit, details))
		return nil
	})
	if err != nil {
		return err
	}

	e.saveSnapshot(ctx)
	return nil
}

// Reject переводит неподтверждённый платёж в конечный статус rejected.
func (e *Engine) Reject(ctx context.Context, paymentID string, rejectedBy int64) error {
	err := e.store.Update(func(st *model.State) error {
		p := st.Payment(paymentID)
		if p == nil || p.Status.Terminal() {
			return model.ErrNotFound
		}
		now := time.Now()
		p.Status = model.PaymentStatusRejected
		p.VerifiedAt = &now
		p.VerifiedBy = rejectedBy
		return nil
	})
	if err != nil {
		return err
	}

	e.saveSnapshot(ctx)
	return nil
}

// ExpireStale отклоняет платежи, висящие без подтверждения дольше
// maxAge, и возвращает их число. Вызывается периодически.
func (e *Engine) ExpireStale(ctx context.Context, maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	var expired int
	_ = e.store.Update(func(st *model.State) error {
		for _, p := range st.Payments {
			if p.Status.Terminal() || !p.CreatedAt.Before(cutoff) {
				continue
			}
			p.Status = model.PaymentStatusRejected
			expired++
		}
		return nil
	})

	if expired > 0 {
		e.logger.Info("expired stale payments", zap.Int("count", expired))
		e.saveSnapshot(ctx)
	}
	return expired
}

// PendingFor возвращает самый свежий неподтверждённый платёж
// пользователя или nil.
func (e *Engine) PendingFor(userID int64) *model.Payment {
	var pending *model.Payment
	e.store.View(func(st *model.State) {
		for i := len(st.Payments) - 1; i >= 0; i-- {
			p := st.Payments[i]
			if p.UserID == userID && !p.Status.Terminal() {
				copied := *p
				pending = &copied
				return
			}
		}
	})
	return pending
}

// Get возвращает копию платежа.
func (e *Engine) Get(paymentID string) (*model.Payment, error) {
	var found *model.Payment
	e.store.View(func(st *model.State) {
		if p := st.Payment(paymentID); p != nil {
			copied := *p
			found = &copied
		}
	})
	if found == nil {
		return nil, model.ErrNotFound
	}
	return found, nil
}

func (e *Engine) saveSnapshot(ctx context.Context) {
	if err := e.store.Save(ctx); err != nil {
		e.logger.Warn("snapshot after payment change failed", zap.Error(err))
	}
}
