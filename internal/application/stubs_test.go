package app

import (
	"context"
	"errors"
	"sync"

	"bioscan-bot/internal/domain/entity"
	"bioscan-bot/internal/domain/port"
)

// stubDetector возвращает заранее заданные детекции по id снимка.
type stubDetector struct {
	mu     sync.Mutex
	byID   map[string][]entity.Detection
	failID string
	calls  int
}

func (d *stubDetector) Detect(_ context.Context, _ entity.Domain, img port.Image) ([]entity.Detection, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if img.ID == d.failID {
		return nil, errors.New("model crashed")
	}
	return d.byID[img.ID], nil
}

type stubPredictor struct {
	probability float64
	err         error
	calls       int
	got         []float64
}

func (p *stubPredictor) Predict(_ context.Context, standardized []float64) (float64, error) {
	p.calls++
	p.got = standardized
	return p.probability, p.err
}

// memoryReports простая история отчётов для тестов сервиса.
type memoryReports struct {
	saved []entity.AnalysisReport
	err   error
}

func (r *memoryReports) Save(_ context.Context, report *entity.AnalysisReport) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, *report)
	return nil
}

func (r *memoryReports) ListByUser(_ context.Context, userID int64, limit int) ([]entity.AnalysisReport, error) {
	var out []entity.AnalysisReport
	for i := len(r.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if r.saved[i].UserID == userID {
			out = append(out, r.saved[i])
		}
	}
	return out, nil
}

func dets(imageID string, classIDs ...int) []entity.Detection {
	out := make([]entity.Detection, 0, len(classIDs))
	for _, id := range classIDs {
		out = append(out, entity.Detection{ClassID: id, Confidence: 0.9, SourceImageID: imageID})
	}
	return out
}
