package port

import (
	"context"

	"bioscan-bot/internal/domain/entity"
)

// ReportRepository интерфейс истории отчётов
type ReportRepository interface {
	// Save сохраняет отчёт
	Save(ctx context.Context, report *entity.AnalysisReport) error

	// ListByUser возвращает последние отчёты пользователя, новые первыми
	ListByUser(ctx context.Context, userID int64, limit int) ([]entity.AnalysisReport, error)
}
