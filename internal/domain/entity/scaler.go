package entity

import "fmt"

// Scaler параметры стандартизации признаков (zero mean, unit variance).
// Подбираются один раз по эталонному датасету и поставляются вместе с моделью.
type Scaler struct {
	Mean  []float64 `yaml:"mean"`
	Scale []float64 `yaml:"scale"`
}

// Validate проверяет согласованность параметров.
func (s *Scaler) Validate() error {
	if len(s.Mean) != FeatureCount || len(s.Scale) != FeatureCount {
		return fmt.Errorf("scaler expects %d features, got mean=%d scale=%d", FeatureCount, len(s.Mean), len(s.Scale))
	}
	for i, sc := range s.Scale {
		if sc == 0 {
			return fmt.Errorf("scaler: zero scale for %s", FeatureNames[i])
		}
	}
	return nil
}

// Transform возвращает стандартизованную копию вектора.
func (s *Scaler) Transform(features []float64) ([]float64, error) {
	if len(features) != len(s.Mean) || len(features) != len(s.Scale) {
		return nil, fmt.Errorf("scaler: expected %d features, got %d", len(s.Mean), len(features))
	}
	out := make([]float64, len(features))
	for i, v := range features {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}
