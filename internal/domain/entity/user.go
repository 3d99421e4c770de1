package entity

// UserState состояние пользователя в диалоге
type UserState string

const (
	StateMainMenu         UserState = "main_menu"         // В главном меню
	StateAwaitingImages   UserState = "awaiting_images"   // Накопление снимков для модуля
	StateAwaitingFeatures UserState = "awaiting_features" // Ожидание 30 табличных признаков
	StateProcessing       UserState = "processing"        // Идёт анализ
)

// User представляет пользователя бота
type User struct {
	ID     int64     // Telegram User ID
	ChatID int64     // Telegram Chat ID
	State  UserState // Текущее состояние пользователя
	Domain Domain    // Выбранный модуль, пусто в главном меню
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
	if state == StateMainMenu {
		u.Domain = ""
	}
}

// SelectDomain переводит пользователя к загрузке снимков выбранного модуля
func (u *User) SelectDomain(domain Domain) {
	u.Domain = domain
	u.State = StateAwaitingImages
}
