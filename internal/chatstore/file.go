package chatstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mvolkov/accmarket-bot/internal/model"
)

// FileStore — файловая реализация канала хранения: журнал строк JSON,
// по одной на объект. Используется при локальном запуске без Telegram.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

// NewFileStore создаёт журнал по указанному пути.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Append дописывает объект в конец журнала.
func (s *FileStore) Append(ctx context.Context, body string) error {
	if err := ctx.Err(); err != nil {
		return &model.PersistenceError{Op: "append", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return &model.PersistenceError{Op: "append", Err: err}
	}
	defer f.Close()

	line, err := json.Marshal(body)
	if err != nil {
		return &model.PersistenceError{Op: "append", Err: err}
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return &model.PersistenceError{Op: "append", Err: err}
	}
	return nil
}

// FetchRecent возвращает последние limit объектов, новые первыми.
func (s *FileStore) FetchRecent(ctx context.Context, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &model.PersistenceError{Op: "fetch", Err: err}
	}
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &model.PersistenceError{Op: "fetch", Err: err}
	}
	defer f.Close()

	var bodies []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var body string
		if err := json.Unmarshal(scanner.Bytes(), &body); err != nil {
			// Оборванная запись в конце журнала пропускается.
			continue
		}
		bodies = append(bodies, body)
	}
	if err := scanner.Err(); err != nil {
		return nil, &model.PersistenceError{Op: "fetch", Err: err}
	}

	if len(bodies) > limit {
		bodies = bodies[len(bodies)-limit:]
	}
	// Журнал хранится от старых к новым, наружу отдаём наоборот.
	for i, j := 0, len(bodies)-1; i < j; i, j = i+1, j-1 {
		bodies[i], bodies[j] = bodies[j], bodies[i]
	}
	return bodies, nil
}
