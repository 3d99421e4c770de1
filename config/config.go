package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string

	DetectorBackend  string // "http" или "gocv"
	BloodModelPath   string
	MalariaModelPath string
	TumorModelPath   string
	InferenceURL     string
	ANNURL           string
	InferenceTimeout time.Duration

	ScalerPath       string // YAML-артефакт стандартизации
	ReferenceDataset string // CSV для подбора стандартизации, если артефакта нет

	DBPath           string
	InferenceWorkers int
	MinConfidence    float64
	MaxBatch         int
	HistoryLimit     int
	LogLevel         string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		DetectorBackend:  getEnv("DETECTOR_BACKEND", "http"),
		BloodModelPath:   getEnv("BLOOD_MODEL_PATH", "./models/blood_cells.onnx"),
		MalariaModelPath: getEnv("MALARIA_MODEL_PATH", "./models/malaria_cells.onnx"),
		TumorModelPath:   getEnv("TUMOR_MODEL_PATH", "./models/breast_cancer_seg.onnx"),
		InferenceURL:     getEnv("INFERENCE_URL", "http://localhost:5000"),
		ANNURL:           getEnv("ANN_URL", "http://localhost:5001"),
		InferenceTimeout: getEnvAsDuration("INFERENCE_TIMEOUT", 30*time.Second),
		ScalerPath:       getEnv("SCALER_PATH", "./models/scaler.yaml"),
		ReferenceDataset: getEnv("REFERENCE_DATASET", "./dataset/breast-cancer.csv"),
		DBPath:           getEnv("DB_PATH", "./bioscan.db"),
		InferenceWorkers: getEnvAsInt("INFERENCE_WORKERS", 4),
		MinConfidence:    getEnvAsFloat("MIN_CONFIDENCE", 0.25),
		MaxBatch:         getEnvAsInt("MAX_BATCH", 20),
		HistoryLimit:     getEnvAsInt("HISTORY_LIMIT", 5),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
