package entity

import "math"

// Status человекочитаемый итог триажа
type Status string

const (
	StatusBloodNormal Status = "normal range"
	StatusBloodLow    Status = "relatively low RBC vs WBC — possible anemia indicator"
	StatusBloodHigh   Status = "relatively high RBC vs WBC — within safe range, recommend re-sampling"

	StatusNoCells  Status = "no cells detected"
	StatusHealthy  Status = "Healthy"
	StatusMild     Status = "Mild / Monitor"
	StatusModerate Status = "Moderate / Consult Doctor"
	StatusSevere   Status = "Severe / Seek Medical Attention"

	StatusNoTumorRegions Status = "no tumor regions detected"
	StatusBenignRegions  Status = "benign regions only"
	StatusMalignant      Status = "malignant regions detected"
)

// Severity уровень важности статуса для отображения
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Unit единица измерения значения отчёта
type Unit string

const (
	UnitRatio   Unit = "ratio"
	UnitPercent Unit = "percent"
)

// Advisory прикладывается к каждому отчёту.
const Advisory = "Disclaimer: this is an AI-generated result for educational/demo purposes. " +
	"It does not replace real medical advice or diagnosis."

// Пороги триажа.
const (
	bloodRatioLow  = 4.0
	bloodRatioHigh = 10.0

	malariaHealthyMax  = 1.0
	malariaMildMax     = 5.0
	malariaModerateMax = 20.0
)

// TriageReport результат триажа
type TriageReport struct {
	Domain   Domain   `json:"domain"`
	Value    float64  `json:"value"` // отношение или процент, может быть +Inf
	Unit     Unit     `json:"unit"`
	Status   Status   `json:"status"`
	Severity Severity `json:"severity"`
	Advisory string   `json:"advisory"`
}

// BloodRatioTriage оценивает отношение RBC/WBC.
// При wbc == 0 отношение равно +Inf, в том числе когда клеток нет вовсе.
func BloodRatioTriage(rbc, wbc int) TriageReport {
	ratio := math.Inf(1)
	if wbc > 0 {
		ratio = float64(rbc) / float64(wbc)
	}

	report := TriageReport{Domain: DomainBlood, Value: ratio, Unit: UnitRatio, Advisory: Advisory}
	switch {
	case ratio >= bloodRatioLow && ratio <= bloodRatioHigh:
		report.Status, report.Severity = StatusBloodNormal, SeverityOK
	case ratio < bloodRatioLow:
		report.Status, report.Severity = StatusBloodLow, SeverityWarning
	default:
		report.Status, report.Severity = StatusBloodHigh, SeverityInfo
	}
	return report
}

// MalariaTriage оценивает долю заражённых клеток в процентах.
// Верхняя граница каждого интервала включается в него.
func MalariaTriage(infected, uninfected int) TriageReport {
	report := TriageReport{Domain: DomainMalaria, Unit: UnitPercent, Advisory: Advisory}

	total := infected + uninfected
	if total <= 0 {
		report.Status, report.Severity = StatusNoCells, SeverityInfo
		return report
	}

	pct := float64(infected) / float64(total) * 100
	report.Value = pct
	switch {
	case pct <= malariaHealthyMax:
		report.Status, report.Severity = StatusHealthy, SeverityOK
	case pct <= malariaMildMax:
		report.Status, report.Severity = StatusMild, SeverityInfo
	case pct <= malariaModerateMax:
		report.Status, report.Severity = StatusModerate, SeverityWarning
	default:
		report.Status, report.Severity = StatusSevere, SeverityCritical
	}
	return report
}

// TumorRegionTriage сводка сегментации: доля злокачественных областей среди опухолевых.
func TumorRegionTriage(benign, malignant int) TriageReport {
	report := TriageReport{Domain: DomainTumor, Unit: UnitPercent, Advisory: Advisory}

	total := benign + malignant
	if total <= 0 {
		report.Status, report.Severity = StatusNoTumorRegions, SeverityOK
		return report
	}

	report.Value = float64(malignant) / float64(total) * 100
	if malignant > 0 {
		report.Status, report.Severity = StatusMalignant, SeverityCritical
	} else {
		report.Status, report.Severity = StatusBenignRegions, SeverityWarning
	}
	return report
}

// Triage выбирает правило по модулю агрегата.
func Triage(a AggregateCounts) TriageReport {
	switch a.Domain {
	case DomainBlood:
		return BloodRatioTriage(a.Count(CategoryRBC), a.Count(CategoryWBC))
	case DomainMalaria:
		return MalariaTriage(a.Count(CategoryInfected), a.Count(CategoryUninfected))
	case DomainTumor:
		return TumorRegionTriage(a.Count(CategoryBenign), a.Count(CategoryMalignant))
	default:
		return TriageReport{Domain: a.Domain, Status: StatusNoCells, Severity: SeverityInfo, Advisory: Advisory}
	}
}
