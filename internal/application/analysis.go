package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bioscan-bot/internal/domain/entity"
	"bioscan-bot/internal/domain/port"
)

var (
	ErrDetectorNotConfigured = errors.New("detector is not configured")
	ErrEmptyBatch            = errors.New("no images in batch")
	ErrNotAwaitingImages     = errors.New("no analysis module selected")
	ErrBatchFull             = errors.New("batch is full")
)

// AnalysisOptions параметры пакетного анализа
type AnalysisOptions struct {
	Workers       int     // параллельных вызовов детектора
	MinConfidence float64 // детекции ниже порога не учитываются
	MaxBatch      int     // снимков в одной пачке
}

// DefaultAnalysisOptions возвращает умолчания.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{Workers: 4, MinConfidence: 0.25, MaxBatch: 20}
}

// AnalysisService копит снимки пользователя, прогоняет их через детектор и строит отчёт.
type AnalysisService struct {
	users    *UserService
	detector port.CellDetector
	reports  port.ReportRepository
	opts     AnalysisOptions
	logger   *zap.Logger

	now   func() time.Time
	newID func() string

	mu      sync.Mutex
	pending map[int64][]port.Image
}

// NewAnalysisService создаёт сервис; reports может быть nil, тогда история не ведётся.
func NewAnalysisService(users *UserService, detector port.CellDetector, reports port.ReportRepository, opts AnalysisOptions, logger *zap.Logger) *AnalysisService {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = DefaultAnalysisOptions().MaxBatch
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{
		users:    users,
		detector: detector,
		reports:  reports,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
		pending:  make(map[int64][]port.Image),
	}
}

// Analyze прогоняет пачку снимков одного модуля и возвращает отчёт.
// Детектор вызывается параллельно, но детекции сливаются в порядке снимков.
func (s *AnalysisService) Analyze(ctx context.Context, domain entity.Domain, images []port.Image) (*entity.AnalysisReport, error) {
	if s.detector == nil {
		return nil, ErrDetectorNotConfigured
	}
	if len(images) == 0 {
		return nil, ErrEmptyBatch
	}

	perImage := make([][]entity.Detection, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			dets, err := s.detector.Detect(gctx, domain, img)
			if err != nil {
				return fmt.Errorf("detect %s: %w", img.ID, err)
			}
			perImage[i] = dets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []entity.Detection
	for _, dets := range perImage {
		merged = append(merged, dets...)
	}
	merged = entity.ScoreFilter(s.opts.MinConfidence)(merged)

	counts := entity.Aggregate(domain, merged)
	triage := entity.Triage(counts)

	s.logger.Info("batch analyzed",
		zap.String("domain", string(domain)),
		zap.Int("images", len(images)),
		zap.Int("detections", counts.Total()),
		zap.String("status", string(triage.Status)),
	)

	return &entity.AnalysisReport{
		ID:         s.newID(),
		Domain:     domain,
		ImageCount: len(images),
		Counts:     counts,
		Triage:     triage,
		CreatedAt:  s.now(),
	}, nil
}

// AcceptImage добавляет снимок в пачку пользователя и возвращает её размер.
func (s *AnalysisService) AcceptImage(ctx context.Context, userID, chatID int64, img port.Image) (int, error) {
	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		return 0, err
	}
	if user.State != entity.StateAwaitingImages || user.Domain == "" {
		return 0, ErrNotAwaitingImages
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending[userID]) >= s.opts.MaxBatch {
		return len(s.pending[userID]), ErrBatchFull
	}
	s.pending[userID] = append(s.pending[userID], img)
	return len(s.pending[userID]), nil
}

// PendingCount возвращает число накопленных снимков.
func (s *AnalysisService) PendingCount(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending[userID])
}

// Discard сбрасывает накопленную пачку.
func (s *AnalysisService) Discard(userID int64) {
	s.mu.Lock()
	delete(s.pending, userID)
	s.mu.Unlock()
}

// Finish анализирует накопленную пачку, сохраняет отчёт в историю и возвращает пользователя в меню.
func (s *AnalysisService) Finish(ctx context.Context, userID, chatID int64) (*entity.AnalysisReport, error) {
	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if user.State != entity.StateAwaitingImages || user.Domain == "" {
		return nil, ErrNotAwaitingImages
	}
	domain := user.Domain

	s.mu.Lock()
	images := s.pending[userID]
	s.mu.Unlock()
	if len(images) == 0 {
		return nil, ErrEmptyBatch
	}

	if _, err := s.users.SetState(ctx, userID, chatID, entity.StateProcessing); err != nil {
		return nil, err
	}
	s.Discard(userID)

	report, err := s.Analyze(ctx, domain, images)
	if _, stateErr := s.users.SetState(ctx, userID, chatID, entity.StateMainMenu); stateErr != nil {
		s.logger.Warn("reset user state", zap.Int64("user_id", userID), zap.Error(stateErr))
	}
	if err != nil {
		return nil, err
	}
	report.UserID = userID

	if s.reports != nil {
		if err := s.reports.Save(ctx, report); err != nil {
			s.logger.Warn("save report", zap.String("report_id", report.ID), zap.Error(err))
		}
	}
	return report, nil
}

// History возвращает последние отчёты пользователя.
func (s *AnalysisService) History(ctx context.Context, userID int64, limit int) ([]entity.AnalysisReport, error) {
	if s.reports == nil {
		return nil, nil
	}
	return s.reports.ListByUser(ctx, userID, limit)
}
