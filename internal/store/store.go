// Package store владеет изменяемым состоянием и его загрузкой и
// сохранением через канал хранения.
package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mvolkov/accmarket-bot/internal/chatstore"
	"github.com/mvolkov/accmarket-bot/internal/codec"
	"github.com/mvolkov/accmarket-bot/internal/model"
)

// DefaultScanLimit — сколько последних объектов канала просматривается
// при поиске снапшота.
const DefaultScanLimit = 50

// Store — единственный владелец model.State. Все составные операции
// движков выполняются внутри Update под одной блокировкой.
type Store struct {
	mu        sync.Mutex
	state     *model.State
	codec     *codec.Codec
	chat      chatstore.ChatStore
	logger    *zap.Logger
	rootAdmin int64
	scanLimit int
}

// New создаёт хранилище с пустым состоянием. Load подменяет его
// содержимым последнего валидного снапшота.
func New(chat chatstore.ChatStore, logger *zap.Logger, rootAdmin int64, scanLimit int) *Store {
	if scanLimit <= 0 {
		scanLimit = DefaultScanLimit
	}
	return &Store{
		state:     model.NewState(rootAdmin),
		codec:     codec.New(),
		chat:      chat,
		logger:    logger,
		rootAdmin: rootAdmin,
		scanLimit: scanLimit,
	}
}

// Load ищет самый свежий валидный снапшот и накладывает его на пустое
// состояние. Отсутствие снапшота и ошибки декодирования не фатальны:
// хранилище остаётся с пустым состоянием.
func (s *Store) Load(ctx context.Context) {
	bodies, err := s.chat.FetchRecent(ctx, s.scanLimit)
	if err != nil {
		s.logger.Warn("fetch snapshots failed, starting with empty state", zap.Error(err))
		return
	}

	for _, body := range bodies {
		if !codec.IsSnapshot(body) {
			continue
		}
		decoded, err := s.codec.Decode(body)
		if err != nil {
			// Повреждённый снапшот пропускается в пользу более старого.
			s.logger.Warn("skipping corrupted snapshot", zap.Error(err))
			continue
		}

		s.mu.Lock()
		s.state = s.merge(decoded)
		s.mu.Unlock()
		s.logger.Info("state loaded from snapshot",
			zap.Int("users", len(decoded.Users)),
			zap.Int("stock", len(decoded.Stock)))
		return
	}

	s.logger.Info("no snapshot found, starting with empty state")
}

// merge накладывает декодированное состояние на пустое: присутствующие
// поля побеждают, nil-коллекции заменяются пустыми, корневой
// администратор возвращается в список безусловно.
func (s *Store) merge(decoded *model.State) *model.State {
	st := model.NewState(s.rootAdmin)
	if decoded.Users != nil {
		st.Users = decoded.Users
	}
	if decoded.Stock != nil {
		st.Stock = decoded.Stock
	}
	if decoded.Transactions != nil {
		st.Transactions = decoded.Transactions
	}
	if decoded.Payments != nil {
		st.Payments = decoded.Payments
	}
	if decoded.Settings != nil {
		st.Settings = decoded.Settings
	}
	if decoded.UsedCredentials != nil {
		st.UsedCredentials = decoded.UsedCredentials
	}
	if len(decoded.Admins) > 0 {
		st.Admins = decoded.Admins
	}
	// Защита от устаревшего снапшота без корневого администратора.
	if !st.IsAdmin(s.rootAdmin) {
		st.Admins = append(st.Admins, s.rootAdmin)
	}
	return st
}

// Save кодирует текущее состояние и дописывает снапшот в канал. Сбой —
// это деградация до работы в памяти: вызвавшая сохранение мутация не
// откатывается.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	body, err := s.codec.Encode(s.state)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("encode snapshot failed", zap.Error(err))
		return err
	}

	if err := s.chat.Append(ctx, body); err != nil {
		s.logger.Error("save snapshot failed, state kept in memory", zap.Error(err))
		return err
	}
	return nil
}

// Update выполняет fn над состоянием под блокировкой. Ошибка fn означает,
// что мутация не произошла.
func (s *Store) Update(fn func(st *model.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// View выполняет fn над состоянием под блокировкой без намерения менять
// его.
func (s *Store) View(fn func(st *model.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// EnsureUser создаёт пользователя при первом обращении. Возвращает true,
// если пользователь новый.
func (s *Store) EnsureUser(id int64, username, firstName, lastName string) bool {
	var created bool
	_ = s.Update(func(st *model.State) error {
		created = st.EnsureUser(id, username, firstName, lastName)
		return nil
	})
	return created
}

// Touch обновляет время последней активности пользователя.
func (s *Store) Touch(id int64) {
	_ = s.Update(func(st *model.State) error {
		if u := st.User(id); u != nil {
			u.LastActive = time.Now()
		}
		return nil
	})
}

// Stats — сводка по состоянию для административных поверхностей.
type Stats struct {
	Users          int   `json:"users"`
	TotalBalance   int64 `json:"total_balance"`
	TotalSales     int64 `json:"total_sales"`
	TotalStock     int   `json:"total_stock"`
	SoldStock      int   `json:"sold_stock"`
	AvailableStock int   `json:"available_stock"`
	Admins         int   `json:"admins"`
	Transactions   int   `json:"transactions"`
}

// Stats собирает сводку под блокировкой.
func (s *Store) Stats() Stats {
	var stats Stats
	s.View(func(st *model.State) {
		stats.Users = len(st.Users)
		for _, u := range st.Users {
			stats.TotalBalance += u.Balance
		}
		for _, tr := range st.Transactions {
			if tr.Kind == model.KindPurchase {
				stats.TotalSales += tr.Amount
			}
		}
		stats.TotalStock = len(st.Stock)
		for _, it := range st.Stock {
			if it.IsSold {
				stats.SoldStock++
			}
		}
		stats.AvailableStock = stats.TotalStock - stats.SoldStock
		stats.Admins = len(st.Admins)
		stats.Transactions = len(st.Transactions)
	})
	return stats
}
