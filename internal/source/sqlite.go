package source

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS novedades (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	codigo_empleado TEXT NOT NULL,
	codigo_factor TEXT NOT NULL,
	fecha_inicio_novedad DATETIME NOT NULL,
	fecha_fin_novedad DATETIME,
	observaciones TEXT
);
CREATE INDEX IF NOT EXISTS idx_novedades_empleado_fecha
	ON novedades(codigo_empleado, fecha_inicio_novedad);
`

// NewSQLite opens (and if needed creates) a local novelty store. Used for
// development and seeded demo environments; use ":memory:" in tests.
func NewSQLite(path string) (*sqlSource, error) {
	if path == "" {
		path = "novedades.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return &sqlSource{
		db:     db,
		rebind: passthrough,
		yearsQuery: `SELECT DISTINCT CAST(strftime('%Y', fecha_inicio_novedad) AS INTEGER) AS y
			FROM novedades WHERE codigo_empleado = ? ORDER BY y DESC`,
		monthsQuery: `SELECT DISTINCT CAST(strftime('%m', fecha_inicio_novedad) AS INTEGER) AS m
			FROM novedades WHERE codigo_empleado = ? AND fecha_inicio_novedad >= ? AND fecha_inicio_novedad < ?
			ORDER BY m ASC`,
		nowValue: time.Now,
	}, nil
}
