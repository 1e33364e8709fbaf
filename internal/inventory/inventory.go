// Package inventory управляет складом аккаунтов и покупками.
package inventory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mvolkov/accmarket-bot/internal/ledger"
	"github.com/mvolkov/accmarket-bot/internal/model"
	"github.com/mvolkov/accmarket-bot/internal/store"
)

// Engine выполняет операции со складом поверх общего хранилища.
type Engine struct {
	store        *store.Store
	logger       *zap.Logger
	defaultPrice int64
}

// NewEngine создаёт движок склада. defaultPrice действует, пока цена не
// установлена администратором.
func NewEngine(st *store.Store, logger *zap.Logger, defaultPrice int64) *Engine {
	return &Engine{store: st, logger: logger, defaultPrice: defaultPrice}
}

func (e *Engine) price(st *model.State) int64 {
	if p, ok := st.Settings[model.PriceKey]; ok && p > 0 {
		return p
	}
	return e.defaultPrice
}

// Price возвращает текущую цену аккаунта.
func (e *Engine) Price() int64 {
	var price int64
	e.store.View(func(st *model.State) {
		price = e.price(st)
	})
	return price
}

// SetPrice устанавливает цену аккаунта и сохраняет снапшот.
func (e *Engine) SetPrice(ctx context.Context, price int64) error {
	if price <= 0 {
		return fmt.Errorf("%w: price must be positive", model.ErrValidation)
	}
	err := e.store.Update(func(st *model.State) error {
		st.Settings[model.PriceKey] = price
		return nil
	})
	if err != nil {
		return err
	}
	e.saveSnapshot(ctx)
	return nil
}

// Add добавляет позицию на склад. Дубликат основного учётного имени
// среди непроданных позиций и ранее выданных данных отклоняется.
func (e *Engine) Add(ctx context.Context, username, password, email string, addedBy int64) (*model.StockItem, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", model.ErrValidation)
	}

	var item *model.StockItem
	err := e.store.Update(func(st *model.State) error {
		if _, used := st.UsedCredentials[username]; used {
			return model.ErrDuplicateItem
		}
		for _, it := range st.Stock {
			if !it.IsSold && it.Username == username {
				return model.ErrDuplicateItem
			}
		}
		item = &model.StockItem{
			ID:        len(st.Stock) + 1,
			Username:  username,
			Password:  password,
			Email:     email,
			AddedBy:   addedBy,
			AddedDate: time.Now(),
		}
		st.Stock = append(st.Stock, item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.saveSnapshot(ctx)
	return item, nil
}

// Available возвращает число непроданных позиций.
func (e *Engine) Available() int {
	var n int
	e.store.View(func(st *model.State) {
		n = len(st.AvailableStock())
	})
	return n
}

// ListAvailable возвращает копии первых limit непроданных позиций в
// порядке добавления.
func (e *Engine) ListAvailable(limit int) []model.StockItem {
	var items []model.StockItem
	e.store.View(func(st *model.State) {
		for _, it := range st.AvailableStock() {
			if len(items) == limit {
				break
			}
			items = append(items, *it)
		}
	})
	return items
}

// Purchase атомарно продаёт quantity самых старых позиций пользователю:
// проверка склада, проверка средств, пометка проданных, списание и
// запись журнала происходят под одной блокировкой. При любой ошибке
// состояние не меняется.
func (e *Engine) Purchase(ctx context.Context, userID int64, quantity int) ([]model.StockItem, int64, error) {
	if quantity <= 0 {
		return nil, 0, fmt.Errorf("%w: quantity must be positive", model.ErrValidation)
	}

	var (
		sold  []model.StockItem
		total int64
	)
	err := e.store.Update(func(st *model.State) error {
		user := st.User(userID)
		if user == nil {
			return model.ErrNotFound
		}

		available := st.AvailableStock()
		if len(available) < quantity {
			return model.ErrInsufficientStock
		}

		price := e.price(st)
		total = int64(quantity) * price
		if user.Balance < total {
			return model.ErrInsufficientFunds
		}

		now := time.Now()
		for i := 0; i < quantity; i++ {
			it := available[i]
			it.IsSold = true
			it.SoldTo = &userID
			it.SoldDate = &now
			st.UsedCredentials[it.Username] = struct{}{}
			// Наружу уходят копии: учётные данные одноразовые.
			sold = append(sold, *it)
		}

		user.Balance -= total
		user.TotalSpent += total
		user.TotalPurchases += quantity

		details := fmt.Sprintf("Purchased %d accounts @ %d each", quantity, price)
		st.Transactions = append(st.Transactions,
			ledger.NewTransaction(userID, total, model.KindPurchase, details))
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	e.saveSnapshot(ctx)
	return sold, total, nil
}

func (e *Engine) saveSnapshot(ctx context.Context) {
	if err := e.store.Save(ctx); err != nil {
		e.logger.Warn("snapshot after inventory change failed", zap.Error(err))
	}
}
