package port

import "context"

// TumorPredictor интерфейс табличного классификатора (ANN)
type TumorPredictor interface {
	// Predict получает стандартизованный вектор и возвращает вероятность злокачественности
	Predict(ctx context.Context, standardized []float64) (float64, error)
}
