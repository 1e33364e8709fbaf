// Package admin ведёт список администраторов.
package admin

import (
	"context"

	"go.uber.org/zap"

	"github.com/mvolkov/accmarket-bot/internal/model"
	"github.com/mvolkov/accmarket-bot/internal/store"
)

// Registry управляет списком администраторов. Корневой администратор
// присутствует всегда и не может быть удалён.
type Registry struct {
	store  *store.Store
	logger *zap.Logger
	rootID int64
}

// NewRegistry создаёт реестр администраторов.
func NewRegistry(st *store.Store, logger *zap.Logger, rootID int64) *Registry {
	return &Registry{store: st, logger: logger, rootID: rootID}
}

// RootID возвращает идентификатор корневого администратора.
func (r *Registry) RootID() int64 { return r.rootID }

// IsAdmin проверяет членство в списке администраторов.
func (r *Registry) IsAdmin(id int64) bool {
	var ok bool
	r.store.View(func(st *model.State) {
		ok = st.IsAdmin(id)
	})
	return ok
}

// Add добавляет администратора. Возвращает false, если он уже в списке.
func (r *Registry) Add(ctx context.Context, id int64) bool {
	var added bool
	_ = r.store.Update(func(st *model.State) error {
		if st.IsAdmin(id) {
			return nil
		}
		st.Admins = append(st.Admins, id)
		added = true
		return nil
	})
	if added {
		r.saveSnapshot(ctx)
	}
	return added
}

// Remove удаляет администратора. Корневой защищён от удаления.
func (r *Registry) Remove(ctx context.Context, id int64) error {
	if id == r.rootID {
		return model.ErrProtectedAdmin
	}

	err := r.store.Update(func(st *model.State) error {
		for i, a := range st.Admins {
			if a == id {
				st.Admins = append(st.Admins[:i], st.Admins[i+1:]...)
				return nil
			}
		}
		return model.ErrNotFound
	})
	if err != nil {
		return err
	}

	r.saveSnapshot(ctx)
	return nil
}

// List возвращает копию списка администраторов.
func (r *Registry) List() []int64 {
	var admins []int64
	r.store.View(func(st *model.State) {
		admins = append(admins, st.Admins...)
	})
	return admins
}

func (r *Registry) saveSnapshot(ctx context.Context) {
	if err := r.store.Save(ctx); err != nil {
		r.logger.Warn("snapshot after admin change failed", zap.Error(err))
	}
}
