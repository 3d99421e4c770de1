package port

import (
	"context"

	"bioscan-bot/internal/domain/entity"
)

// UserRepository хранит состояние диалога пользователей
type UserRepository interface {
	// Get возвращает копию пользователя, заводит нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.User, error)

	// Save сохраняет состояние и выбранный модуль
	Save(ctx context.Context, user *entity.User) error
}
