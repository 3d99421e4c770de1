package port

import (
	"context"

	"bioscan-bot/internal/domain/entity"
)

// Image загруженный снимок
type Image struct {
	ID   string // имя файла или file id, попадает в SourceImageID детекций
	Data []byte
}

// CellDetector интерфейс внешней модели детекции / сегментации
type CellDetector interface {
	// Detect прогоняет снимок через модель модуля и возвращает детекции
	Detect(ctx context.Context, domain entity.Domain, img Image) ([]entity.Detection, error)
}
