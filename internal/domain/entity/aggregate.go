package entity

// AggregateCounts итог свёртки детекций по категориям
type AggregateCounts struct {
	Domain      Domain                      `json:"domain"`
	Counts      map[Category]int            `json:"counts"`
	Confidences map[Category][]float64      `json:"confidences"`
	Images      []string                    `json:"images"`    // изображения в порядке первого появления
	PerImage    map[string]map[Category]int `json:"per_image"` // счётчики по каждому изображению
}

// Aggregate сворачивает детекции модуля в счётчики по категориям.
// Неизвестные class id и некорректная уверенность молча пропускаются.
func Aggregate(domain Domain, detections []Detection) AggregateCounts {
	cats := domain.Categories()
	agg := AggregateCounts{
		Domain:      domain,
		Counts:      make(map[Category]int, len(cats)),
		Confidences: make(map[Category][]float64, len(cats)),
		Images:      []string{},
		PerImage:    make(map[string]map[Category]int),
	}
	for _, c := range cats {
		agg.Counts[c] = 0
		agg.Confidences[c] = []float64{}
	}

	for _, d := range detections {
		cat, ok := domain.Category(d.ClassID)
		if !ok || !d.ValidConfidence() {
			continue
		}
		agg.Counts[cat]++
		agg.Confidences[cat] = append(agg.Confidences[cat], d.Confidence)

		perImage, seen := agg.PerImage[d.SourceImageID]
		if !seen {
			perImage = make(map[Category]int, len(cats))
			for _, c := range cats {
				perImage[c] = 0
			}
			agg.PerImage[d.SourceImageID] = perImage
			agg.Images = append(agg.Images, d.SourceImageID)
		}
		perImage[cat]++
	}

	return agg
}

// Count возвращает счётчик категории.
func (a AggregateCounts) Count(c Category) int {
	return a.Counts[c]
}

// Total возвращает число учтённых детекций.
func (a AggregateCounts) Total() int {
	total := 0
	for _, n := range a.Counts {
		total += n
	}
	return total
}

// MeanConfidence средняя уверенность по категории, 0 если детекций нет.
func (a AggregateCounts) MeanConfidence(c Category) float64 {
	confs := a.Confidences[c]
	if len(confs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range confs {
		sum += v
	}
	return sum / float64(len(confs))
}
