package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"gopkg.in/yaml.v3"

	"bioscan-bot/internal/domain/entity"
)

// В эталонном CSV первые два столбца: id и diagnosis.
const featureColumnOffset = 2

// FitScaler подбирает среднее и стандартное отклонение (по генеральной совокупности)
// для каждого из 30 признаков эталонного датасета.
func FitScaler(r io.Reader) (*entity.Scaler, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([][]float64, entity.FeatureCount)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if len(record) < featureColumnOffset+entity.FeatureCount {
			return nil, fmt.Errorf("line %d: expected at least %d columns, got %d", line, featureColumnOffset+entity.FeatureCount, len(record))
		}
		for i := 0; i < entity.FeatureCount; i++ {
			raw := strings.TrimSpace(record[featureColumnOffset+i])
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, %s: %w", line, entity.FeatureNames[i], err)
			}
			columns[i] = append(columns[i], v)
		}
	}
	if len(columns[0]) == 0 {
		return nil, errors.New("reference dataset has no rows")
	}

	scaler := &entity.Scaler{
		Mean:  make([]float64, entity.FeatureCount),
		Scale: make([]float64, entity.FeatureCount),
	}
	for i, col := range columns {
		mean, err := stats.Mean(col)
		if err != nil {
			return nil, fmt.Errorf("mean of %s: %w", entity.FeatureNames[i], err)
		}
		sd, err := stats.StandardDeviationPopulation(col)
		if err != nil {
			return nil, fmt.Errorf("std of %s: %w", entity.FeatureNames[i], err)
		}
		// Постоянный признак не масштабируется.
		if sd == 0 {
			sd = 1
		}
		scaler.Mean[i] = mean
		scaler.Scale[i] = sd
	}
	return scaler, nil
}

// SaveScaler записывает артефакт стандартизации в YAML.
func SaveScaler(path string, scaler *entity.Scaler) error {
	data, err := yaml.Marshal(scaler)
	if err != nil {
		return fmt.Errorf("marshal scaler: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write scaler: %w", err)
	}
	return nil
}

// LoadScaler читает артефакт стандартизации из YAML.
func LoadScaler(path string) (*entity.Scaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler: %w", err)
	}
	var scaler entity.Scaler
	if err := yaml.Unmarshal(data, &scaler); err != nil {
		return nil, fmt.Errorf("unmarshal scaler: %w", err)
	}
	if err := scaler.Validate(); err != nil {
		return nil, err
	}
	return &scaler, nil
}

// LoadOrFitScaler читает готовый артефакт, а если его нет, подбирает параметры
// по эталонному датасету и сохраняет результат.
func LoadOrFitScaler(artifactPath, datasetPath string) (*entity.Scaler, error) {
	scaler, err := LoadScaler(artifactPath)
	if err == nil {
		return scaler, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	f, err := os.Open(datasetPath)
	if err != nil {
		return nil, fmt.Errorf("open reference dataset: %w", err)
	}
	defer f.Close()

	scaler, err = FitScaler(f)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	if err := SaveScaler(artifactPath, scaler); err != nil {
		return nil, err
	}
	return scaler, nil
}
