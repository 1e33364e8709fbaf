// Package chatstore предоставляет доступ к каналу хранения снапшотов.
//
// Канал append-only: объекты только дописываются, история никогда не
// удаляется. Реализация поверх Telegram использует закреплённое
// сообщение как указатель на самый свежий снапшот; файловая реализация
// хранит полный журнал и служит для локального запуска и тестов.
package chatstore

import "context"

// ChatStore описывает контракт канала хранения. FetchRecent возвращает
// тела последних объектов, самые новые первыми.
type ChatStore interface {
	Append(ctx context.Context, body string) error
	FetchRecent(ctx context.Context, limit int) ([]string, error)
}
