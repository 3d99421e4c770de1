package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"bioscan-bot/internal/domain/entity"
	"bioscan-bot/internal/domain/port"
)

// HTTPDetector выполняет инференс через внешний Python-сервис с моделями YOLO
type HTTPDetector struct {
	inferenceURL string
	client       *http.Client
}

// NewHTTPDetector создаёт адаптер к сервису инференса
func NewHTTPDetector(inferenceURL string, timeout time.Duration) *HTTPDetector {
	return &HTTPDetector{
		inferenceURL: strings.TrimRight(inferenceURL, "/"),
		client:       &http.Client{Timeout: timeout},
	}
}

type detectionDTO struct {
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
}

// Detect отправляет снимок и имя модуля, возвращает детекции с привязкой к снимку
func (d *HTTPDetector) Detect(ctx context.Context, domain entity.Domain, img port.Image) ([]entity.Detection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("domain", string(domain)); err != nil {
		return nil, fmt.Errorf("write domain field: %w", err)
	}
	part, err := writer.CreateFormFile("file", img.ID)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.inferenceURL+"/detect", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Detections []detectionDTO `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	detections := make([]entity.Detection, 0, len(result.Detections))
	for _, det := range result.Detections {
		detections = append(detections, entity.Detection{
			ClassID:       det.ClassID,
			Confidence:    det.Confidence,
			SourceImageID: img.ID,
		})
	}
	return detections, nil
}

// CheckHealth проверяет доступность сервиса инференса
func (d *HTTPDetector) CheckHealth(ctx context.Context) error {
	return checkHealth(ctx, d.client, d.inferenceURL+"/health")
}

func checkHealth(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ml service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

var _ port.CellDetector = (*HTTPDetector)(nil)
