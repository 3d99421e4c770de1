package vision

import "bioscan-bot/internal/domain/entity"

// Config настройки локального детектора
type Config struct {
	ModelPaths    map[entity.Domain]string // ONNX-модель для каждого модуля
	InputSize     int                      // сторона квадратного входа сети
	MinConfidence float64
	NMSThreshold  float64
}

// DefaultConfig возвращает настройки, совпадающие с умолчаниями YOLOv8.
func DefaultConfig() Config {
	return Config{
		ModelPaths:    map[entity.Domain]string{},
		InputSize:     640,
		MinConfidence: 0.25,
		NMSThreshold:  0.45,
	}
}
