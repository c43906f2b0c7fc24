package source

import (
	"fmt"
	"time"

	"database/sql"

	_ "github.com/lib/pq"
)

// NewPostgres opens the production novelty feed. The table already exists on
// that side; this source only reads it.
func NewPostgres(dsn string) (*sqlSource, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &sqlSource{
		db:     db,
		rebind: dollarBind,
		yearsQuery: `SELECT DISTINCT EXTRACT(YEAR FROM fecha_inicio_novedad)::int AS y
			FROM novedades WHERE codigo_empleado = ? ORDER BY y DESC`,
		monthsQuery: `SELECT DISTINCT EXTRACT(MONTH FROM fecha_inicio_novedad)::int AS m
			FROM novedades WHERE codigo_empleado = ? AND fecha_inicio_novedad >= ? AND fecha_inicio_novedad < ?
			ORDER BY m ASC`,
		nowValue: time.Now,
	}, nil
}
