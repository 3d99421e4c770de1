package app

import (
	"context"

	"bioscan-bot/internal/domain/entity"
	"bioscan-bot/internal/domain/port"
)

type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *UserService) update(ctx context.Context, userID, chatID int64, apply func(*entity.User)) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	apply(user)
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserService) SetState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	return s.update(ctx, userID, chatID, func(u *entity.User) { u.SetState(state) })
}

// BeginAnalysis выбирает модуль и ждёт снимки.
func (s *UserService) BeginAnalysis(ctx context.Context, userID, chatID int64, domain entity.Domain) (*entity.User, error) {
	return s.update(ctx, userID, chatID, func(u *entity.User) { u.SelectDomain(domain) })
}

// BeginFeatureInput ждёт табличные признаки опухоли.
func (s *UserService) BeginFeatureInput(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.update(ctx, userID, chatID, func(u *entity.User) {
		u.Domain = entity.DomainTumor
		u.State = entity.StateAwaitingFeatures
	})
}

func (s *UserService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateMainMenu)
}
