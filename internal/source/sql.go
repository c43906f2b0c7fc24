package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/opsdash/bonus-engine/internal/bonus"
)

// sqlSource reads novelty rows from a relational store. The novedades table
// layout is owned by the HR feed; this side only reads it.
type sqlSource struct {
	db     *sql.DB
	rebind func(query string) string
	// Year/month extraction differs by dialect; the backend constructors
	// supply these with '?' placeholders.
	yearsQuery  string
	monthsQuery string
	nowValue    func() time.Time
}

// passthrough keeps '?' placeholders (sqlite).
func passthrough(query string) string { return query }

// dollarBind rewrites '?' placeholders to $1..$n (postgres).
func dollarBind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const deductionColumns = `id, codigo_empleado, codigo_factor, fecha_inicio_novedad, fecha_fin_novedad, observaciones`

// Deductions returns the rows for a query window. The month filter embeds
// the same three-way overlap test the calculator uses, so a record that
// starts in January and ends in February shows up in both months.
func (s *sqlSource) Deductions(ctx context.Context, userCode string, year, month int) ([]bonus.DeductionRecord, error) {
	query := `SELECT ` + deductionColumns + ` FROM novedades WHERE codigo_empleado = ?`
	args := []any{userCode}

	switch {
	case year != 0 && month != 0:
		monthStart, monthEnd := bonus.MonthBounds(year, month)
		today := s.nowValue()
		query += ` AND (
			(fecha_inicio_novedad >= ? AND fecha_inicio_novedad <= ?) OR
			(COALESCE(fecha_fin_novedad, ?) >= ? AND COALESCE(fecha_fin_novedad, ?) <= ?) OR
			(fecha_inicio_novedad <= ? AND (fecha_fin_novedad IS NULL OR fecha_fin_novedad >= ?))
		)`
		args = append(args,
			monthStart, monthEnd,
			today, monthStart, today, monthEnd,
			monthEnd, monthStart,
		)
	case year != 0:
		yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		yearEnd := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
		query += ` AND fecha_inicio_novedad >= ? AND fecha_inicio_novedad < ?`
		args = append(args, yearStart, yearEnd)
	}

	query += ` ORDER BY fecha_inicio_novedad DESC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query novedades: %w", err)
	}
	defer rows.Close()

	var records []bonus.DeductionRecord
	for rows.Next() {
		var (
			rec   bonus.DeductionRecord
			end   sql.NullTime
			notes sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.EmployeeCode, &rec.RuleCode, &rec.StartDate, &end, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan novedad row: %w", err)
		}
		if end.Valid {
			t := end.Time
			rec.EndDate = &t
		}
		rec.Notes = notes.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read novedades: %w", err)
	}
	return records, nil
}

// Years lists the distinct years holding records for a user, newest first.
func (s *sqlSource) Years(ctx context.Context, userCode string) ([]int, error) {
	return s.queryInts(ctx, s.rebind(s.yearsQuery), userCode)
}

// Months lists the distinct months with records for a user and year.
func (s *sqlSource) Months(ctx context.Context, userCode string, year int) ([]int, error) {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	return s.queryInts(ctx, s.rebind(s.monthsQuery), userCode, yearStart, yearEnd)
}

func (s *sqlSource) queryInts(ctx context.Context, query string, args ...any) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query novedades: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan novedad row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *sqlSource) Close() error {
	return s.db.Close()
}
