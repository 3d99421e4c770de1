package entity

import (
	"fmt"
	"math"
)

// Domain диагностический модуль
type Domain string

const (
	DomainBlood   Domain = "blood"   // эритроциты / лейкоциты
	DomainMalaria Domain = "malaria" // заражённые / здоровые клетки
	DomainTumor   Domain = "tumor"   // сегментация УЗИ молочной железы
)

// Category категория обнаруженного объекта
type Category string

const (
	CategoryRBC        Category = "RBC"
	CategoryWBC        Category = "WBC"
	CategoryInfected   Category = "Infected"
	CategoryUninfected Category = "Uninfected"
	CategoryNormal     Category = "Normal"
	CategoryBenign     Category = "Benign"
	CategoryMalignant  Category = "Malignant"
)

// Индекс в срезе совпадает с class id модели.
var domainCategories = map[Domain][]Category{
	DomainBlood:   {CategoryRBC, CategoryWBC},
	DomainMalaria: {CategoryInfected, CategoryUninfected},
	DomainTumor:   {CategoryNormal, CategoryBenign, CategoryMalignant},
}

// Domains возвращает все поддерживаемые модули в стабильном порядке.
func Domains() []Domain {
	return []Domain{DomainBlood, DomainMalaria, DomainTumor}
}

// ParseDomain разбирает имя модуля.
func ParseDomain(s string) (Domain, error) {
	d := Domain(s)
	if _, ok := domainCategories[d]; !ok {
		return "", fmt.Errorf("unknown domain %q", s)
	}
	return d, nil
}

// Categories возвращает категории модуля, упорядоченные по class id.
func (d Domain) Categories() []Category {
	cats := domainCategories[d]
	out := make([]Category, len(cats))
	copy(out, cats)
	return out
}

// Category сопоставляет class id модели с категорией модуля.
func (d Domain) Category(classID int) (Category, bool) {
	cats := domainCategories[d]
	if classID < 0 || classID >= len(cats) {
		return "", false
	}
	return cats[classID], true
}

// Detection один распознанный объект на одном изображении
type Detection struct {
	ClassID       int     // class id модели
	Confidence    float64 // уверенность в [0, 1]
	SourceImageID string  // изображение, на котором найден объект
}

// ValidConfidence сообщает, лежит ли уверенность в [0, 1].
func (d Detection) ValidConfidence() bool {
	return !math.IsNaN(d.Confidence) && d.Confidence >= 0 && d.Confidence <= 1
}

// Postprocessor фильтрует или изменяет список детекций.
type Postprocessor func([]Detection) []Detection

// ScoreFilter отбрасывает детекции с уверенностью ниже порога.
func ScoreFilter(threshold float64) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Confidence >= threshold {
				out = append(out, d)
			}
		}
		return out
	}
}
