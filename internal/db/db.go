package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// hasTable reports whether schema.table exists. Fare files are optional in GTFS,
// so importers only create the tables a feed ships.
func hasTable(ctx context.Context, db *sql.DB, schema, table string) (bool, error) {
	q := `SELECT EXISTS (
          SELECT 1 FROM information_schema.tables
          WHERE table_schema = $1 AND table_name = $2)`
	var ok bool
	if err := db.QueryRowContext(ctx, q, schema, table).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// hasColumns returns a map of requested column names to existence for the given table.
func hasColumns(ctx context.Context, db *sql.DB, schema, table string, cols ...string) (map[string]bool, error) {
	res := make(map[string]bool, len(cols))
	if len(cols) == 0 {
		return res, nil
	}
	// Initialize to false
	for _, c := range cols {
		res[c] = false
	}
	q := `SELECT column_name FROM information_schema.columns
          WHERE table_schema = $1 AND table_name = $2 AND column_name = ANY($3)`
	rows, err := db.QueryContext(ctx, q, schema, table, cols)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		res[name] = true
	}
	return res, rows.Err()
}

// textColumn selects col as text, or an empty string literal when the column is missing.
func textColumn(present map[string]bool, col string) string {
	if !present[col] {
		return "''"
	}
	return "COALESCE(" + col + "::text, '')"
}

// parseDaySeconds parses HH:MM:SS possibly with hours >= 24.
func parseDaySeconds(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	sec := 0
	if len(parts) > 2 {
		sec, _ = strconv.Atoi(parts[2])
	}
	total := h*3600 + m*60 + sec
	if total < 0 {
		total = 0
	}
	return total
}

// parseSeconds reads a duration column that importers store either as integer
// seconds or as an interval rendered HH:MM:SS. Empty yields def.
func parseSeconds(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if strings.Contains(s, ":") {
		return parseDaySeconds(s)
	}
	return parseInt(s, def)
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func parseFloat(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

// parseTransfers maps fare_attributes.transfers to a count; -1 means unlimited.
// Both the numeric GTFS values and importer enum labels are accepted.
func parseTransfers(s string) int {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "0", "no_transfers", "none":
		return 0
	case "1", "one_transfer":
		return 1
	case "2", "two_transfers":
		return 2
	}
	return -1
}

func parsePaymentMethod(s string) int {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "before_boarding":
		return 1
	}
	return 0
}
