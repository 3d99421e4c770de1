//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"bioscan-bot/internal/domain/entity"
	"bioscan-bot/internal/domain/port"
)

// ErrGoCVDisabled возвращается сборкой без тега gocv.
var ErrGoCVDisabled = errors.New("gocv build tag is not enabled")

// YOLODetector заглушка для сборки без OpenCV
type YOLODetector struct{}

// NewYOLODetector возвращает ошибку: без gocv локальный инференс недоступен.
func NewYOLODetector(cfg Config) (*YOLODetector, error) {
	return nil, ErrGoCVDisabled
}

// Close ничего не делает.
func (d *YOLODetector) Close() error { return nil }

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *YOLODetector) Detect(ctx context.Context, domain entity.Domain, img port.Image) ([]entity.Detection, error) {
	return nil, ErrGoCVDisabled
}

var _ port.CellDetector = (*YOLODetector)(nil)
