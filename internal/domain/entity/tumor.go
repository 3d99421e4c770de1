package entity

import (
	"fmt"
	"math"
)

// FeatureCount длина табличного вектора признаков опухоли.
const FeatureCount = 30

// FeatureNames порядок признаков совпадает со столбцами эталонного датасета.
var FeatureNames = [FeatureCount]string{
	"radius_mean", "texture_mean", "perimeter_mean", "area_mean", "smoothness_mean",
	"compactness_mean", "concavity_mean", "concave_points_mean", "symmetry_mean", "fractal_dimension_mean",
	"radius_se", "texture_se", "perimeter_se", "area_se", "smoothness_se",
	"compactness_se", "concavity_se", "concave_points_se", "symmetry_se", "fractal_dimension_se",
	"radius_worst", "texture_worst", "perimeter_worst", "area_worst", "smoothness_worst",
	"compactness_worst", "concavity_worst", "concave_points_worst", "symmetry_worst", "fractal_dimension_worst",
}

// ValidationError некорректный входной вектор признаков
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid features: " + e.Reason
	}
	return fmt.Sprintf("invalid feature %s: %s", e.Field, e.Reason)
}

// ValidateFeatures проверяет длину вектора и конечность каждого значения.
func ValidateFeatures(features []float64) error {
	if len(features) != FeatureCount {
		return &ValidationError{Reason: fmt.Sprintf("expected %d values, got %d", FeatureCount, len(features))}
	}
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{Field: FeatureNames[i], Reason: fmt.Sprintf("value %v is not finite", v)}
		}
	}
	return nil
}

// TumorClass итог бинарной классификации
type TumorClass int

const (
	TumorBenign    TumorClass = 0
	TumorMalignant TumorClass = 1
)

func (c TumorClass) String() string {
	if c == TumorMalignant {
		return "Malignant"
	}
	return "Benign"
}

// MalignantThreshold вероятность строго выше порога означает злокачественную опухоль.
const MalignantThreshold = 0.5

// ClassifyProbability переводит вероятность модели в класс.
func ClassifyProbability(p float64) TumorClass {
	if p > MalignantThreshold {
		return TumorMalignant
	}
	return TumorBenign
}

const (
	adviceMalignant = "Immediate medical consultation is recommended. This prediction is AI-based and for educational purposes only."
	adviceBenign    = "Although classified as Benign, it is not guaranteed to be completely safe. Regular checkups and professional assessment are advised."
)

// TumorReport результат классификации по табличным признакам
type TumorReport struct {
	Class       TumorClass `json:"class"`
	Probability float64    `json:"probability"`
	Advice      string     `json:"advice"`
	Advisory    string     `json:"advisory"`
}

// NewTumorReport строит отчёт по вероятности злокачественности.
func NewTumorReport(p float64) TumorReport {
	class := ClassifyProbability(p)
	advice := adviceBenign
	if class == TumorMalignant {
		advice = adviceMalignant
	}
	return TumorReport{Class: class, Probability: p, Advice: advice, Advisory: Advisory}
}
