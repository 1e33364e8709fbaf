// Package model содержит доменные сущности магазина аккаунтов.
package model

import "time"

// User представляет пользователя бота. Создаётся один раз при первом
// обращении и никогда не удаляется.
type User struct {
	ID             int64     `json:"user_id"`
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Balance        int64     `json:"balance"`
	TotalSpent     int64     `json:"total_spent"`
	TotalPurchases int       `json:"total_purchases"`
	JoinDate       time.Time `json:"join_date"`
	LastActive     time.Time `json:"last_active"`
}

// StockItem описывает позицию склада: учётные данные одного аккаунта.
// После продажи позиция терминальна — повторно не продаётся и не
// возвращается на склад.
type StockItem struct {
	ID        int        `json:"id"`
	Username  string     `json:"username"`
	Password  string     `json:"password"`
	Email     string     `json:"email"`
	AddedBy   int64      `json:"added_by"`
	AddedDate time.Time  `json:"added_date"`
	SoldTo    *int64     `json:"sold_to"`
	SoldDate  *time.Time `json:"sold_date"`
	IsSold    bool       `json:"is_sold"`
}

// PaymentStatus описывает статус платежа.
type PaymentStatus string

const (
	PaymentStatusPending          PaymentStatus = "pending"
	PaymentStatusPendingReference PaymentStatus = "pending_reference"
	PaymentStatusVerified         PaymentStatus = "verified"
	PaymentStatusRejected         PaymentStatus = "rejected"
)

// Terminal сообщает, является ли статус конечным. Платёж из конечного
// статуса не переводится ни в какой другой.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusVerified || s == PaymentStatusRejected
}

// Payment описывает платёж пользователя. Сумма неизвестна до
// подтверждения администратором; Reference — банковский код (UTR),
// присланный плательщиком.
type Payment struct {
	ID         string        `json:"payment_id"`
	UserID     int64         `json:"user_id"`
	Amount     *int64        `json:"amount"`
	Reference  string        `json:"reference"`
	Status     PaymentStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	VerifiedAt *time.Time    `json:"verified_at"`
	VerifiedBy int64         `json:"verified_by"`
}

// TransactionKind описывает тип операции в журнале.
type TransactionKind string

const (
	KindPurchase        TransactionKind = "purchase"
	KindFundDeposit     TransactionKind = "fund_deposit"
	KindAdminAdjustment TransactionKind = "admin_adjustment"
)

// Transaction — запись журнала операций. После создания не изменяется.
type Transaction struct {
	ID          string          `json:"transaction_id"`
	UserID      int64           `json:"user_id"`
	Amount      int64           `json:"amount"`
	Kind        TransactionKind `json:"kind"`
	Status      string          `json:"status"`
	Details     string          `json:"details"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt time.Time       `json:"completed_at"`
}

// PriceKey — ключ цены аккаунта в карте настроек.
const PriceKey = "account_price"

// State — агрегат всего изменяемого состояния. Им единолично владеет
// store.Store; движки работают с ним только внутри его блокировки.
type State struct {
	Users           map[int64]*User
	Stock           []*StockItem
	Transactions    []*Transaction
	Payments        []*Payment
	Settings        map[string]int64
	UsedCredentials map[string]struct{}
	Admins          []int64
}

// NewState создаёт пустое состояние с единственным корневым
// администратором.
func NewState(rootAdmin int64) *State {
	return &State{
		Users:           map[int64]*User{},
		Stock:           []*StockItem{},
		Transactions:    []*Transaction{},
		Payments:        []*Payment{},
		Settings:        map[string]int64{},
		UsedCredentials: map[string]struct{}{},
		Admins:          []int64{rootAdmin},
	}
}

// User возвращает пользователя по идентификатору или nil.
func (s *State) User(id int64) *User {
	return s.Users[id]
}

// EnsureUser создаёт пользователя, если его ещё нет. Возвращает true,
// если пользователь был создан.
func (s *State) EnsureUser(id int64, username, firstName, lastName string) bool {
	if _, ok := s.Users[id]; ok {
		return false
	}
	now := time.Now()
	s.Users[id] = &User{
		ID:         id,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		JoinDate:   now,
		LastActive: now,
	}
	return true
}

// AvailableStock возвращает непроданные позиции в порядке добавления.
func (s *State) AvailableStock() []*StockItem {
	var available []*StockItem
	for _, it := range s.Stock {
		if !it.IsSold {
			available = append(available, it)
		}
	}
	return available
}

// Payment возвращает платёж по идентификатору или nil.
func (s *State) Payment(id string) *Payment {
	for _, p := range s.Payments {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// IsAdmin проверяет членство в списке администраторов.
func (s *State) IsAdmin(id int64) bool {
	for _, a := range s.Admins {
		if a == id {
			return true
		}
	}
	return false
}
