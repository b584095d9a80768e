package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoImport is returned when no successful import matches the city.
var ErrNoImport = errors.New("no successful import")

// Import is one row of public.latest_successful_imports.
type Import struct {
	DBName     string
	ImportedAt time.Time
}

// LatestImport returns the newest successful import whose db_name contains city,
// case-insensitively. meta must be connected to the cluster's meta database.
func LatestImport(ctx context.Context, meta *sql.DB, city string) (Import, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Import{}, fmt.Errorf("city is required")
	}
	q := `
SELECT db_name, imported_at
FROM public.latest_successful_imports
WHERE db_name ILIKE '%' || $1 || '%'
ORDER BY imported_at DESC
LIMIT 1`
	var name sql.NullString
	var at sql.NullTime
	if err := meta.QueryRowContext(ctx, q, city).Scan(&name, &at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Import{}, fmt.Errorf("%w for city like %q", ErrNoImport, city)
		}
		return Import{}, fmt.Errorf("query latest import: %w", err)
	}
	if !name.Valid || name.String == "" {
		return Import{}, fmt.Errorf("%w: empty db_name for city like %q", ErrNoImport, city)
	}
	return Import{DBName: name.String, ImportedAt: at.Time}, nil
}

// ResolveFeedDSN picks the DSN of the feed database to load fares from. Without a
// city the base DSN is used as is; otherwise the latest import is resolved through
// the meta database on the same cluster.
func ResolveFeedDSN(ctx context.Context, baseDSN, city string) (string, Import, error) {
	if city == "" {
		name, err := DBName(baseDSN)
		if err != nil {
			return "", Import{}, err
		}
		return baseDSN, Import{DBName: name}, nil
	}
	metaDSN, err := WithDBName(baseDSN, MetaDatabase)
	if err != nil {
		return "", Import{}, fmt.Errorf("meta DSN: %w", err)
	}
	meta, err := Open(metaDSN)
	if err != nil {
		return "", Import{}, fmt.Errorf("open meta db: %w", err)
	}
	defer meta.Close()
	if err := Ping(ctx, meta); err != nil {
		return "", Import{}, fmt.Errorf("ping meta db: %w", err)
	}
	imp, err := LatestImport(ctx, meta, city)
	if err != nil {
		return "", Import{}, err
	}
	dsn, err := WithDBName(baseDSN, imp.DBName)
	if err != nil {
		return "", Import{}, fmt.Errorf("compose DSN: %w", err)
	}
	return dsn, imp, nil
}
