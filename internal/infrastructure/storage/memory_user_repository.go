package storage

import (
	"context"
	"errors"
	"sync"

	"bioscan-bot/internal/domain/entity"
	"bioscan-bot/internal/domain/port"
)

// MemoryUserRepository in-memory хранилище диалогов
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[int64]entity.User
}

// NewMemoryUserRepository создаёт пустое хранилище
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[int64]entity.User),
	}
}

// Get возвращает копию пользователя; изменения видны только после Save.
func (r *MemoryUserRepository) Get(_ context.Context, userID, chatID int64) (*entity.User, error) {
	r.mu.RLock()
	user, exists := r.users[userID]
	r.mu.RUnlock()
	if exists {
		return &user, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Повторная проверка: пользователя могли завести параллельно.
	if user, exists := r.users[userID]; exists {
		return &user, nil
	}
	fresh := entity.NewUser(userID, chatID)
	r.users[userID] = *fresh
	return fresh, nil
}

// Save сохраняет пользователя
func (r *MemoryUserRepository) Save(_ context.Context, user *entity.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	r.mu.Lock()
	r.users[user.ID] = *user
	r.mu.Unlock()
	return nil
}

var _ port.UserRepository = (*MemoryUserRepository)(nil)
