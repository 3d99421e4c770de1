package app

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"bioscan-bot/internal/domain/entity"
	"bioscan-bot/internal/domain/port"
)

var ErrPredictorNotConfigured = errors.New("tumor predictor is not configured")

// TumorService классифицирует опухоль по 30 табличным признакам.
type TumorService struct {
	scaler    *entity.Scaler
	predictor port.TumorPredictor
	logger    *zap.Logger
}

// NewTumorService создаёт сервис с параметрами стандартизации из артефакта модели.
func NewTumorService(scaler *entity.Scaler, predictor port.TumorPredictor, logger *zap.Logger) *TumorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TumorService{scaler: scaler, predictor: predictor, logger: logger}
}

// Classify проверяет вектор, стандартизует его и спрашивает модель.
// На невалидном входе модель не вызывается, возвращается *entity.ValidationError.
func (s *TumorService) Classify(ctx context.Context, features []float64) (*entity.TumorReport, error) {
	if err := entity.ValidateFeatures(features); err != nil {
		return nil, err
	}
	if s.predictor == nil || s.scaler == nil {
		return nil, ErrPredictorNotConfigured
	}

	standardized, err := s.scaler.Transform(features)
	if err != nil {
		return nil, err
	}

	p, err := s.predictor.Predict(ctx, standardized)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return nil, fmt.Errorf("predictor returned invalid probability %v", p)
	}

	report := entity.NewTumorReport(p)
	s.logger.Info("tumor classified", zap.Float64("probability", p), zap.Stringer("class", report.Class))
	return &report, nil
}
