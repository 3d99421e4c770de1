package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"bioscan-bot/internal/domain/entity"
	"bioscan-bot/internal/domain/port"
)

// SQLiteReportRepository история отчётов в sqlite
type SQLiteReportRepository struct {
	db *sql.DB
}

// NewSQLiteReportRepository создаёт репозиторий поверх открытой базы
func NewSQLiteReportRepository(db *sql.DB) *SQLiteReportRepository {
	return &SQLiteReportRepository{db: db}
}

// Save сохраняет отчёт. Значение хранится текстом, чтобы не терять +Inf.
func (r *SQLiteReportRepository) Save(ctx context.Context, report *entity.AnalysisReport) error {
	counts, err := json.Marshal(report.Counts)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO reports (id, user_id, domain, image_count, value, unit, status, severity, counts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ID, report.UserID, string(report.Domain), report.ImageCount,
		strconv.FormatFloat(report.Triage.Value, 'g', -1, 64),
		string(report.Triage.Unit), string(report.Triage.Status), string(report.Triage.Severity),
		string(counts), report.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// ListByUser возвращает последние отчёты пользователя, новые первыми
func (r *SQLiteReportRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]entity.AnalysisReport, error) {
	if limit <= 0 {
		limit = 1
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, domain, image_count, value, unit, status, severity, counts, created_at
		FROM reports WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []entity.AnalysisReport
	for rows.Next() {
		var (
			rep                     entity.AnalysisReport
			domain, value, unit     string
			status, severity, count string
			createdAt               int64
		)
		if err := rows.Scan(&rep.ID, &rep.UserID, &domain, &rep.ImageCount, &value, &unit, &status, &severity, &count, &createdAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}

		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("parse value of report %s: %w", rep.ID, err)
		}
		if err := json.Unmarshal([]byte(count), &rep.Counts); err != nil {
			return nil, fmt.Errorf("decode counts of report %s: %w", rep.ID, err)
		}

		rep.Domain = entity.Domain(domain)
		rep.CreatedAt = time.Unix(0, createdAt)
		rep.Triage = entity.TriageReport{
			Domain:   rep.Domain,
			Value:    v,
			Unit:     entity.Unit(unit),
			Status:   entity.Status(status),
			Severity: entity.Severity(severity),
			Advisory: entity.Advisory,
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

var _ port.ReportRepository = (*SQLiteReportRepository)(nil)
