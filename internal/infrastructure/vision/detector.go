//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"bioscan-bot/internal/domain/entity"
	"bioscan-bot/internal/domain/port"
)

// YOLODetector прогоняет снимки через экспортированные в ONNX модели YOLOv8.
// Для каждого модуля своя сеть; gocv.Net не потокобезопасна, поэтому доступ к сети под мьютексом.
type YOLODetector struct {
	cfg  Config
	mu   sync.Mutex
	nets map[entity.Domain]gocv.Net
}

// NewYOLODetector загружает сети всех модулей, для которых указан путь к модели.
func NewYOLODetector(cfg Config) (*YOLODetector, error) {
	d := &YOLODetector{cfg: cfg, nets: make(map[entity.Domain]gocv.Net)}
	for domain, path := range cfg.ModelPaths {
		if path == "" {
			continue
		}
		net := gocv.ReadNetFromONNX(path)
		if net.Empty() {
			d.Close()
			return nil, fmt.Errorf("failed to load %s model from %s", domain, path)
		}
		if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
			d.Close()
			return nil, fmt.Errorf("set backend for %s model: %w", domain, err)
		}
		if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
			d.Close()
			return nil, fmt.Errorf("set target for %s model: %w", domain, err)
		}
		d.nets[domain] = net
	}
	return d, nil
}

// Close освобождает сети.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for domain, net := range d.nets {
		net.Close()
		delete(d.nets, domain)
	}
	return nil
}

// Detect декодирует снимок и возвращает детекции после порога уверенности и NMS.
func (d *YOLODetector) Detect(ctx context.Context, domain entity.Domain, img port.Image) ([]entity.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(img.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", img.ID, err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("empty image")
	}

	size := d.cfg.InputSize
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	net, ok := d.nets[domain]
	if !ok {
		d.mu.Unlock()
		return nil, fmt.Errorf("no model configured for domain %s", domain)
	}
	net.SetInput(blob, "")
	out := net.Forward("")
	d.mu.Unlock()
	defer out.Close()

	return d.decode(out, domain, img.ID, mat.Cols(), mat.Rows())
}

// decode разбирает выход YOLOv8 формы [1, 4+nc(+коэффициенты масок), N].
// Учитываются только строки классов модуля, коэффициенты масок сегментации игнорируются.
func (d *YOLODetector) decode(out gocv.Mat, domain entity.Domain, imageID string, width, height int) ([]entity.Detection, error) {
	dims := out.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	rows, anchors := dims[1], dims[2]
	classes := len(domain.Categories())
	if rows < 4+classes {
		return nil, fmt.Errorf("output has %d rows, need at least %d", rows, 4+classes)
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	at := func(row, col int) float32 { return data[row*anchors+col] }

	sx := float32(width) / float32(d.cfg.InputSize)
	sy := float32(height) / float32(d.cfg.InputSize)

	var (
		boxes   []image.Rectangle
		scores  []float32
		classID []int
	)
	for i := 0; i < anchors; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < classes; c++ {
			if s := at(4+c, i); s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || float64(bestScore) < d.cfg.MinConfidence {
			continue
		}

		cx, cy, w, h := at(0, i)*sx, at(1, i)*sy, at(2, i)*sx, at(3, i)*sy
		boxes = append(boxes, image.Rect(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)))
		scores = append(scores, bestScore)
		classID = append(classID, best)
	}
	if len(boxes) == 0 {
		return []entity.Detection{}, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, float32(d.cfg.MinConfidence), float32(d.cfg.NMSThreshold))
	detections := make([]entity.Detection, 0, len(keep))
	for _, idx := range keep {
		detections = append(detections, entity.Detection{
			ClassID:       classID[idx],
			Confidence:    float64(scores[idx]),
			SourceImageID: imageID,
		})
	}
	return detections, nil
}

var _ port.CellDetector = (*YOLODetector)(nil)
