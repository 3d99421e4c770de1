package app

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bioscan-bot/internal/domain/entity"
	"bioscan-bot/internal/domain/port"
	"bioscan-bot/internal/infrastructure/storage"
)

func newAnalysisService(det port.CellDetector, reports port.ReportRepository) (*AnalysisService, *UserService) {
	users := NewUserService(storage.NewMemoryUserRepository())
	svc := NewAnalysisService(users, det, reports, DefaultAnalysisOptions(), nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return "report-1" }
	return svc, users
}

func TestAnalysisService_AnalyzeBlood(t *testing.T) {
	det := &stubDetector{byID: map[string][]entity.Detection{
		"a.jpg": dets("a.jpg", 0, 0, 0, 0, 1),
		"b.jpg": dets("b.jpg", 0, 0, 0, 0, 1, 5),
	}}
	svc, _ := newAnalysisService(det, nil)

	report, err := svc.Analyze(context.Background(), entity.DomainBlood, []port.Image{{ID: "a.jpg"}, {ID: "b.jpg"}})
	require.NoError(t, err)
	require.Equal(t, "report-1", report.ID)
	require.Equal(t, 2, report.ImageCount)
	require.Equal(t, 8, report.Counts.Count(entity.CategoryRBC))
	require.Equal(t, 2, report.Counts.Count(entity.CategoryWBC))
	require.Equal(t, []string{"a.jpg", "b.jpg"}, report.Counts.Images)
	require.Equal(t, 4.0, report.Triage.Value)
	require.Equal(t, entity.StatusBloodNormal, report.Triage.Status)
	require.Equal(t, 2, det.calls)
}

func TestAnalysisService_AnalyzeKeepsImageOrder(t *testing.T) {
	byID := map[string][]entity.Detection{}
	images := make([]port.Image, 12)
	for i := range images {
		id := fmt.Sprintf("img-%02d", i)
		images[i] = port.Image{ID: id}
		byID[id] = dets(id, i%2)
	}
	svc, _ := newAnalysisService(&stubDetector{byID: byID}, nil)

	first, err := svc.Analyze(context.Background(), entity.DomainMalaria, images)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := svc.Analyze(context.Background(), entity.DomainMalaria, images)
		require.NoError(t, err)
		require.Equal(t, first.Counts, again.Counts)
	}
	require.Equal(t, "img-00", first.Counts.Images[0])
	require.Equal(t, "img-11", first.Counts.Images[11])
	require.Equal(t, entity.StatusSevere, first.Triage.Status)
}

func TestAnalysisService_AnalyzeFiltersLowConfidence(t *testing.T) {
	det := &stubDetector{byID: map[string][]entity.Detection{
		"x": {
			{ClassID: 0, Confidence: 0.1, SourceImageID: "x"},
			{ClassID: 1, Confidence: 0.8, SourceImageID: "x"},
		},
	}}
	svc, _ := newAnalysisService(det, nil)

	report, err := svc.Analyze(context.Background(), entity.DomainMalaria, []port.Image{{ID: "x"}})
	require.NoError(t, err)
	require.Equal(t, 0, report.Counts.Count(entity.CategoryInfected))
	require.Equal(t, 1, report.Counts.Count(entity.CategoryUninfected))
	require.Equal(t, entity.StatusHealthy, report.Triage.Status)
}

func TestAnalysisService_AnalyzeErrors(t *testing.T) {
	svc, _ := newAnalysisService(nil, nil)
	_, err := svc.Analyze(context.Background(), entity.DomainBlood, []port.Image{{ID: "a"}})
	require.ErrorIs(t, err, ErrDetectorNotConfigured)

	svc, _ = newAnalysisService(&stubDetector{}, nil)
	_, err = svc.Analyze(context.Background(), entity.DomainBlood, nil)
	require.ErrorIs(t, err, ErrEmptyBatch)

	svc, _ = newAnalysisService(&stubDetector{failID: "bad.jpg"}, nil)
	_, err = svc.Analyze(context.Background(), entity.DomainBlood, []port.Image{{ID: "ok.jpg"}, {ID: "bad.jpg"}})
	require.ErrorContains(t, err, "detect bad.jpg")
}

func TestAnalysisService_NoDetections(t *testing.T) {
	svc, _ := newAnalysisService(&stubDetector{}, nil)

	report, err := svc.Analyze(context.Background(), entity.DomainBlood, []port.Image{{ID: "empty.jpg"}})
	require.NoError(t, err)
	require.True(t, math.IsInf(report.Triage.Value, 1))
	require.Equal(t, entity.StatusBloodHigh, report.Triage.Status)
}

func TestAnalysisService_BatchFlow(t *testing.T) {
	det := &stubDetector{byID: map[string][]entity.Detection{
		"s1": dets("s1", 0, 1, 1, 1, 1),
		"s2": dets("s2", 1, 1, 1, 1, 1),
	}}
	reports := &memoryReports{}
	svc, users := newAnalysisService(det, reports)
	ctx := context.Background()

	_, err := svc.AcceptImage(ctx, 1, 10, port.Image{ID: "s1"})
	require.ErrorIs(t, err, ErrNotAwaitingImages)

	_, err = users.BeginAnalysis(ctx, 1, 10, entity.DomainMalaria)
	require.NoError(t, err)

	_, err = svc.Finish(ctx, 1, 10)
	require.ErrorIs(t, err, ErrEmptyBatch)

	n, err := svc.AcceptImage(ctx, 1, 10, port.Image{ID: "s1"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, err = svc.AcceptImage(ctx, 1, 10, port.Image{ID: "s2"})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 2, svc.PendingCount(1))

	report, err := svc.Finish(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), report.UserID)
	require.Equal(t, entity.DomainMalaria, report.Domain)
	require.InDelta(t, 10.0, report.Triage.Value, 1e-9)
	require.Equal(t, entity.StatusModerate, report.Triage.Status)
	require.Equal(t, 0, svc.PendingCount(1))

	user, err := users.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)

	history, err := svc.History(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "report-1", history[0].ID)
}

func TestAnalysisService_FinishFailureResetsUser(t *testing.T) {
	svc, users := newAnalysisService(&stubDetector{failID: "s1"}, &memoryReports{})
	ctx := context.Background()

	_, err := users.BeginAnalysis(ctx, 1, 10, entity.DomainBlood)
	require.NoError(t, err)
	_, err = svc.AcceptImage(ctx, 1, 10, port.Image{ID: "s1"})
	require.NoError(t, err)

	_, err = svc.Finish(ctx, 1, 10)
	require.Error(t, err)

	user, err := users.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
	require.Equal(t, 0, svc.PendingCount(1))
}

func TestAnalysisService_BatchFull(t *testing.T) {
	users := NewUserService(storage.NewMemoryUserRepository())
	svc := NewAnalysisService(users, &stubDetector{}, nil, AnalysisOptions{Workers: 1, MaxBatch: 1}, nil)
	ctx := context.Background()

	_, err := users.BeginAnalysis(ctx, 1, 10, entity.DomainTumor)
	require.NoError(t, err)
	_, err = svc.AcceptImage(ctx, 1, 10, port.Image{ID: "a"})
	require.NoError(t, err)
	n, err := svc.AcceptImage(ctx, 1, 10, port.Image{ID: "b"})
	require.ErrorIs(t, err, ErrBatchFull)
	require.Equal(t, 1, n)

	svc.Discard(1)
	require.Equal(t, 0, svc.PendingCount(1))
}

func TestAnalysisService_HistoryWithoutRepository(t *testing.T) {
	svc, _ := newAnalysisService(&stubDetector{}, nil)
	history, err := svc.History(context.Background(), 1, 5)
	require.NoError(t, err)
	require.Empty(t, history)
}
