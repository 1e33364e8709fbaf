package model

import (
	"errors"
	"fmt"
)

// ErrNotFound возвращается, если пользователь, платёж или позиция склада
// не найдены.
var (
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized возвращается при попытке выполнить административную
	// операцию без членства в списке администраторов.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation возвращается при некорректных аргументах операции.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientFunds возвращается при покупке на сумму больше баланса.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientStock возвращается, если на складе меньше позиций,
	// чем запрошено.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicateItem возвращается при добавлении позиции с уже
	// существующими учётными данными.
	ErrDuplicateItem = errors.New("duplicate stock item")
	// ErrProtectedAdmin возвращается при попытке удалить корневого
	// администратора.
	ErrProtectedAdmin = errors.New("root admin is protected")
	// ErrPaymentExists возвращается при создании платежа с занятым
	// идентификатором.
	ErrPaymentExists = errors.New("payment already exists")
)

// DecodeError сообщает о повреждённом снапшоте. Загрузка при такой
// ошибке откатывается к пустому состоянию и не фатальна.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode snapshot: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode snapshot: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// PersistenceError сообщает о недоступности канала хранения. Операция,
// вызвавшая сохранение, при этом не откатывается.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("chat store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
