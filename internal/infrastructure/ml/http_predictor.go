package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bioscan-bot/internal/domain/port"
)

// HTTPPredictor обращается к сервису с табличной ANN-моделью
type HTTPPredictor struct {
	annURL string
	client *http.Client
}

// NewHTTPPredictor создаёт адаптер к ANN-сервису
func NewHTTPPredictor(annURL string, timeout time.Duration) *HTTPPredictor {
	return &HTTPPredictor{
		annURL: strings.TrimRight(annURL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// Predict отправляет уже стандартизованный вектор и возвращает вероятность
func (p *HTTPPredictor) Predict(ctx context.Context, standardized []float64) (float64, error) {
	payload, err := json.Marshal(map[string][]float64{"features": standardized})
	if err != nil {
		return 0, fmt.Errorf("encode features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.annURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("prediction failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Probability *float64 `json:"probability"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if result.Probability == nil {
		return 0, errors.New("response has no probability")
	}
	return *result.Probability, nil
}

// CheckHealth проверяет доступность ANN-сервиса
func (p *HTTPPredictor) CheckHealth(ctx context.Context) error {
	return checkHealth(ctx, p.client, p.annURL+"/health")
}

var _ port.TumorPredictor = (*HTTPPredictor)(nil)
