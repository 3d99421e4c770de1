package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bioscan-bot/config"
	telegram "bioscan-bot/internal/api"
	app "bioscan-bot/internal/application"
	"bioscan-bot/internal/container"
	"bioscan-bot/internal/domain/entity"
	"bioscan-bot/internal/domain/port"
	"bioscan-bot/internal/infrastructure/ml"
	"bioscan-bot/internal/infrastructure/storage"
	"bioscan-bot/internal/infrastructure/vision"
	"bioscan-bot/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.TelegramToken == "" {
		logger.Fatal("TELEGRAM_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	detector, closeDetector := newDetector(ctx, cfg, logger)
	defer closeDetector()

	predictor := ml.NewHTTPPredictor(cfg.ANNURL, cfg.InferenceTimeout)
	if err := healthCheck(ctx, predictor.CheckHealth); err != nil {
		logger.Warn("ANN service is not reachable", zap.String("url", cfg.ANNURL), zap.Error(err))
	}

	// Без стандартизации табличная классификация отключается, анализ снимков продолжает работать
	var scaler *entity.Scaler
	if s, err := ml.LoadOrFitScaler(cfg.ScalerPath, cfg.ReferenceDataset); err != nil {
		logger.Warn("scaler unavailable, /features disabled", zap.Error(err))
	} else {
		scaler = s
	}

	db, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer db.Close()

	appContainer := container.New(container.Deps{
		Users:     storage.NewMemoryUserRepository(),
		Reports:   storage.NewSQLiteReportRepository(db),
		Detector:  detector,
		Predictor: predictor,
		Scaler:    scaler,
		Analysis: app.AnalysisOptions{
			Workers:       cfg.InferenceWorkers,
			MinConfidence: cfg.MinConfidence,
			MaxBatch:      cfg.MaxBatch,
		},
		HistoryLimit: cfg.HistoryLimit,
		Logger:       logger,
	})

	bot, err := telegram.NewBot(cfg.TelegramToken, appContainer, logger.Named("telegram"))
	if err != nil {
		logger.Fatal("create bot", zap.Error(err))
	}

	logger.Info("bot is running", zap.String("detector", cfg.DetectorBackend))
	if err := bot.Run(ctx); err != nil {
		logger.Error("bot stopped", zap.Error(err))
	}
}

// newDetector собирает детектор выбранного бэкенда.
func newDetector(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.CellDetector, func()) {
	if cfg.DetectorBackend == "gocv" {
		vcfg := vision.DefaultConfig()
		vcfg.ModelPaths = map[entity.Domain]string{
			entity.DomainBlood:   cfg.BloodModelPath,
			entity.DomainMalaria: cfg.MalariaModelPath,
			entity.DomainTumor:   cfg.TumorModelPath,
		}
		vcfg.MinConfidence = cfg.MinConfidence

		detector, err := vision.NewYOLODetector(vcfg)
		if err != nil {
			logger.Fatal("load YOLO models", zap.Error(err))
		}
		return detector, func() { _ = detector.Close() }
	}

	detector := ml.NewHTTPDetector(cfg.InferenceURL, cfg.InferenceTimeout)
	if err := healthCheck(ctx, detector.CheckHealth); err != nil {
		logger.Warn("inference service is not reachable", zap.String("url", cfg.InferenceURL), zap.Error(err))
	}
	return detector, func() {}
}

func healthCheck(ctx context.Context, check func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return check(ctx)
}
