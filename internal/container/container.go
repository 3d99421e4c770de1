package container

import (
	"go.uber.org/zap"

	app "bioscan-bot/internal/application"
	"bioscan-bot/internal/domain/entity"
	"bioscan-bot/internal/domain/port"
)

type Container struct {
	UserService     *app.UserService
	AnalysisService *app.AnalysisService
	TumorService    *app.TumorService
	HistoryLimit    int
}

// Deps внешние зависимости сервисов.
type Deps struct {
	Users        port.UserRepository
	Reports      port.ReportRepository // nil отключает историю
	Detector     port.CellDetector
	Predictor    port.TumorPredictor
	Scaler       *entity.Scaler
	Analysis     app.AnalysisOptions
	HistoryLimit int
	Logger       *zap.Logger
}

func New(deps Deps) *Container {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	userService := app.NewUserService(deps.Users)
	analysisService := app.NewAnalysisService(userService, deps.Detector, deps.Reports, deps.Analysis, logger.Named("analysis"))
	tumorService := app.NewTumorService(deps.Scaler, deps.Predictor, logger.Named("tumor"))

	historyLimit := deps.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 5
	}

	return &Container{
		UserService:     userService,
		AnalysisService: analysisService,
		TumorService:    tumorService,
		HistoryLimit:    historyLimit,
	}
}
