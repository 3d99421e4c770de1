package entity

import "time"

// AnalysisReport итог анализа одной пачки снимков
type AnalysisReport struct {
	ID         string          `json:"id"`
	UserID     int64           `json:"user_id"`
	Domain     Domain          `json:"domain"`
	ImageCount int             `json:"image_count"`
	Counts     AggregateCounts `json:"counts"`
	Triage     TriageReport    `json:"triage"`
	CreatedAt  time.Time       `json:"created_at"`
}
