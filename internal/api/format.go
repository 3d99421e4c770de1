package telegram

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"bioscan-bot/internal/domain/entity"
)

var domainTitles = map[entity.Domain]string{
	entity.DomainBlood:   "🩸 Blood cell detection",
	entity.DomainMalaria: "🦠 Malarial cell detection",
	entity.DomainTumor:   "🎗️ Breast ultrasound segmentation",
}

var severityIcons = map[entity.Severity]string{
	entity.SeverityOK:       "✅",
	entity.SeverityInfo:     "ℹ️",
	entity.SeverityWarning:  "⚠️",
	entity.SeverityCritical: "❌",
}

// formatValue печатает отношение или процент; +Inf выводится как ∞.
func formatValue(v float64) string {
	if math.IsInf(v, 1) {
		return "∞"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatAnalysisReport текст отчёта по пачке снимков
func FormatAnalysisReport(r *entity.AnalysisReport) string {
	var b strings.Builder
	counts := r.Counts
	fmt.Fprintf(&b, "%s\nImages analyzed: %d\n\n", domainTitles[r.Domain], r.ImageCount)

	for _, c := range r.Domain.Categories() {
		n := counts.Count(c)
		if n == 0 {
			fmt.Fprintf(&b, "%s: 0\n", c)
			continue
		}
		fmt.Fprintf(&b, "%s: %d (mean confidence %.2f)\n", c, n, counts.MeanConfidence(c))
	}

	if len(counts.Images) > 1 {
		b.WriteString("\nPer image:\n")
		for _, img := range counts.Images {
			parts := make([]string, 0, len(counts.PerImage[img]))
			for _, c := range r.Domain.Categories() {
				parts = append(parts, fmt.Sprintf("%s %d", c, counts.PerImage[img][c]))
			}
			fmt.Fprintf(&b, "• %s: %s\n", img, strings.Join(parts, ", "))
		}
	}

	b.WriteString("\n")
	t := r.Triage
	switch r.Domain {
	case entity.DomainBlood:
		fmt.Fprintf(&b, "RBC/WBC ratio: %s\n", formatValue(t.Value))
		if counts.Total() == 0 {
			b.WriteString("No cells were detected in this batch.\n")
		}
	case entity.DomainMalaria:
		infected := counts.Count(entity.CategoryInfected)
		total := infected + counts.Count(entity.CategoryUninfected)
		fmt.Fprintf(&b, "Infected cells: %d/%d = %s%%\n", infected, total, formatValue(t.Value))
	case entity.DomainTumor:
		fmt.Fprintf(&b, "Malignant share of tumor regions: %s%%\n", formatValue(t.Value))
	}
	fmt.Fprintf(&b, "%s Status: %s\n\n%s", severityIcons[t.Severity], t.Status, t.Advisory)
	return b.String()
}

// FormatTumorReport текст результата табличной классификации
func FormatTumorReport(r *entity.TumorReport) string {
	icon := "🟢"
	if r.Class == entity.TumorMalignant {
		icon = "🔴"
	}
	return fmt.Sprintf("%s Predicted tumor type: %s (p=%.3f)\n\n⚠️ %s\n\n%s", icon, r.Class, r.Probability, r.Advice, r.Advisory)
}

// FormatHistory краткий список последних отчётов
func FormatHistory(reports []entity.AnalysisReport) string {
	if len(reports) == 0 {
		return "No reports yet. Choose a module with /blood, /malaria or /tumor."
	}
	var b strings.Builder
	b.WriteString("Recent reports:\n")
	for _, r := range reports {
		fmt.Fprintf(&b, "%s %s · %s · %d image(s) · %s (%s)\n",
			severityIcons[r.Triage.Severity], r.CreatedAt.Format("2006-01-02 15:04"), r.Domain, r.ImageCount,
			r.Triage.Status, formatValue(r.Triage.Value))
	}
	return strings.TrimRight(b.String(), "\n")
}

// ParseFeatures разбирает числа, разделённые запятыми, точками с запятой или пробелами.
// Количество и конечность значений проверяет сервис классификации.
func ParseFeatures(text string) ([]float64, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	values := make([]float64, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			field := fmt.Sprintf("#%d", i+1)
			if i < entity.FeatureCount {
				field = entity.FeatureNames[i]
			}
			return nil, &entity.ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a number", f)}
		}
		values = append(values, v)
	}
	return values, nil
}
