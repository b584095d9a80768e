package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"transit-fares/internal/fares"
	"transit-fares/internal/faresv2"
	"transit-fares/internal/gtfs"
)

const schema = "public"

// Catalogs is everything the fare service needs from one feed database.
type Catalogs struct {
	V1 fares.Catalog
	V2 faresv2.Catalog
}

// Rules counts loaded rules: legacy rule sets, v2 leg rules and v2 transfer rules.
func (c Catalogs) Rules() (v1, v2Legs, v2Transfers int) {
	for _, rs := range c.V1 {
		v1 += len(rs)
	}
	return v1, len(c.V2.LegRules), len(c.V2.TransferRules)
}

// LoadCatalogs reads every fare table of the feed database and scopes ids with feedID.
// Legacy fares are priced as the regular fare type; reduced types are derived by
// regional pricers. Missing tables load as empty.
func LoadCatalogs(ctx context.Context, db *sql.DB, feedID string) (Catalogs, error) {
	attrs, err := FetchFareAttributes(ctx, db)
	if err != nil {
		return Catalogs{}, err
	}
	rules, err := FetchFareRules(ctx, db)
	if err != nil {
		return Catalogs{}, err
	}
	products, err := FetchFareProducts(ctx, db)
	if err != nil {
		return Catalogs{}, err
	}
	legRules, err := FetchFareLegRules(ctx, db)
	if err != nil {
		return Catalogs{}, err
	}
	transferRules, err := FetchFareTransferRules(ctx, db)
	if err != nil {
		return Catalogs{}, err
	}
	areas, err := FetchStopAreas(ctx, db)
	if err != nil {
		return Catalogs{}, err
	}
	networks, err := FetchRouteNetworks(ctx, db)
	if err != nil {
		return Catalogs{}, err
	}

	c := Catalogs{
		V1: fares.Catalog{},
		V2: faresv2.BuildCatalog(feedID, products, legRules, transferRules, areas, networks),
	}
	if rs := fares.BuildRuleSets(feedID, attrs, rules); len(rs) > 0 {
		c.V1[fares.Regular] = rs
	}
	return c, nil
}

// queryTable runs q against table when it exists, calling scan once per row.
func queryTable(ctx context.Context, db *sql.DB, table, q string, scan func(*sql.Rows) error) error {
	ok, err := hasTable(ctx, db, schema, table)
	if err != nil {
		return fmt.Errorf("introspect %s: %w", table, err)
	}
	if !ok {
		return nil
	}
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan %s: %w", table, err)
		}
	}
	return rows.Err()
}

func FetchFareAttributes(ctx context.Context, db *sql.DB) ([]gtfs.FareAttribute, error) {
	cols, err := hasColumns(ctx, db, schema, "fare_attributes", "agency_id", "transfer_duration", "journey_duration")
	if err != nil {
		return nil, fmt.Errorf("introspect fare_attributes columns: %w", err)
	}
	q := fmt.Sprintf(`SELECT fare_id, price::text, currency_type,
                             COALESCE(payment_method::text, ''), COALESCE(transfers::text, ''),
                             %s, %s, %s
                      FROM fare_attributes ORDER BY fare_id`,
		textColumn(cols, "agency_id"), textColumn(cols, "transfer_duration"), textColumn(cols, "journey_duration"))

	var out []gtfs.FareAttribute
	err = queryTable(ctx, db, "fare_attributes", q, func(rows *sql.Rows) error {
		var a gtfs.FareAttribute
		var price, payment, transfers, transferDur, journeyDur string
		if err := rows.Scan(&a.FareID, &price, &a.CurrencyType, &payment, &transfers, &a.AgencyID, &transferDur, &journeyDur); err != nil {
			return err
		}
		a.Price = parseFloat(price, 0)
		a.PaymentMethod = parsePaymentMethod(payment)
		a.Transfers = parseTransfers(transfers)
		a.TransferDuration = parseSeconds(transferDur, -1)
		a.JourneyDuration = parseSeconds(journeyDur, -1)
		out = append(out, a)
		return nil
	})
	return out, err
}

func FetchFareRules(ctx context.Context, db *sql.DB) ([]gtfs.FareRule, error) {
	// trip_id is an experimental extension most importers drop
	cols, err := hasColumns(ctx, db, schema, "fare_rules", "trip_id")
	if err != nil {
		return nil, fmt.Errorf("introspect fare_rules columns: %w", err)
	}
	q := fmt.Sprintf(`SELECT fare_id, COALESCE(route_id, ''), COALESCE(origin_id, ''),
                             COALESCE(destination_id, ''), COALESCE(contains_id, ''), %s
                      FROM fare_rules`, textColumn(cols, "trip_id"))

	var out []gtfs.FareRule
	err = queryTable(ctx, db, "fare_rules", q, func(rows *sql.Rows) error {
		var r gtfs.FareRule
		if err := rows.Scan(&r.FareID, &r.RouteID, &r.OriginID, &r.DestinationID, &r.ContainsID, &r.TripID); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

func FetchFareProducts(ctx context.Context, db *sql.DB) ([]gtfs.FareProduct, error) {
	cols, err := hasColumns(ctx, db, schema, "fare_products", "fare_product_name", "rider_category_id", "fare_media_id", "duration")
	if err != nil {
		return nil, fmt.Errorf("introspect fare_products columns: %w", err)
	}
	q := fmt.Sprintf(`SELECT fare_product_id, %s, amount::text, currency, %s, %s, %s
                      FROM fare_products ORDER BY fare_product_id`,
		textColumn(cols, "fare_product_name"), textColumn(cols, "duration"),
		textColumn(cols, "rider_category_id"), textColumn(cols, "fare_media_id"))

	var out []gtfs.FareProduct
	err = queryTable(ctx, db, "fare_products", q, func(rows *sql.Rows) error {
		var p gtfs.FareProduct
		var amount, duration string
		if err := rows.Scan(&p.FareProductID, &p.FareProductName, &amount, &p.Currency, &duration, &p.RiderCategoryID, &p.FareMediaID); err != nil {
			return err
		}
		p.Amount = parseFloat(amount, 0)
		p.DurationSeconds = parseSeconds(duration, 0)
		out = append(out, p)
		return nil
	})
	return out, err
}

func FetchFareLegRules(ctx context.Context, db *sql.DB) ([]gtfs.FareLegRule, error) {
	cols, err := hasColumns(ctx, db, schema, "fare_leg_rules",
		"leg_group_id", "network_id", "from_area_id", "to_area_id", "distance_type", "min_distance", "max_distance")
	if err != nil {
		return nil, fmt.Errorf("introspect fare_leg_rules columns: %w", err)
	}
	q := fmt.Sprintf(`SELECT %s, %s, %s, %s, fare_product_id, %s, %s, %s FROM fare_leg_rules`,
		textColumn(cols, "leg_group_id"), textColumn(cols, "network_id"),
		textColumn(cols, "from_area_id"), textColumn(cols, "to_area_id"),
		textColumn(cols, "distance_type"), textColumn(cols, "min_distance"), textColumn(cols, "max_distance"))

	var out []gtfs.FareLegRule
	err = queryTable(ctx, db, "fare_leg_rules", q, func(rows *sql.Rows) error {
		var r gtfs.FareLegRule
		var distType, minDist, maxDist string
		if err := rows.Scan(&r.LegGroupID, &r.NetworkID, &r.FromAreaID, &r.ToAreaID, &r.FareProductID, &distType, &minDist, &maxDist); err != nil {
			return err
		}
		r.DistanceType = parseDistanceType(distType)
		r.MinDistance = parseFloat(minDist, -1)
		r.MaxDistance = parseFloat(maxDist, -1)
		out = append(out, r)
		return nil
	})
	return out, err
}

func FetchFareTransferRules(ctx context.Context, db *sql.DB) ([]gtfs.FareTransferRule, error) {
	cols, err := hasColumns(ctx, db, schema, "fare_transfer_rules",
		"from_leg_group_id", "to_leg_group_id", "transfer_count", "duration_limit", "fare_transfer_type", "fare_product_id")
	if err != nil {
		return nil, fmt.Errorf("introspect fare_transfer_rules columns: %w", err)
	}
	q := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, %s FROM fare_transfer_rules`,
		textColumn(cols, "from_leg_group_id"), textColumn(cols, "to_leg_group_id"),
		textColumn(cols, "transfer_count"), textColumn(cols, "duration_limit"),
		textColumn(cols, "fare_transfer_type"), textColumn(cols, "fare_product_id"))

	var out []gtfs.FareTransferRule
	err = queryTable(ctx, db, "fare_transfer_rules", q, func(rows *sql.Rows) error {
		var r gtfs.FareTransferRule
		var count, limit, kind string
		if err := rows.Scan(&r.FromLegGroupID, &r.ToLegGroupID, &count, &limit, &kind, &r.FareProductID); err != nil {
			return err
		}
		r.TransferCount = parseInt(count, -1)
		r.DurationLimit = time.Duration(parseSeconds(limit, 0)) * time.Second
		r.FareTransferType = parseInt(kind, 0)
		out = append(out, r)
		return nil
	})
	return out, err
}

func FetchStopAreas(ctx context.Context, db *sql.DB) ([]gtfs.StopArea, error) {
	var out []gtfs.StopArea
	err := queryTable(ctx, db, "stop_areas", `SELECT area_id, stop_id FROM stop_areas`, func(rows *sql.Rows) error {
		var a gtfs.StopArea
		if err := rows.Scan(&a.AreaID, &a.StopID); err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out, err
}

func FetchRouteNetworks(ctx context.Context, db *sql.DB) ([]gtfs.RouteNetwork, error) {
	var out []gtfs.RouteNetwork
	err := queryTable(ctx, db, "route_networks", `SELECT network_id, route_id FROM route_networks`, func(rows *sql.Rows) error {
		var n gtfs.RouteNetwork
		if err := rows.Scan(&n.NetworkID, &n.RouteID); err != nil {
			return err
		}
		out = append(out, n)
		return nil
	})
	return out, err
}

// parseDistanceType maps fare_leg_rules.distance_type, accepting importer enum labels.
func parseDistanceType(s string) int {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "0", "stops":
		return gtfs.DistanceStops
	case "1", "linear_distance", "distance":
		return gtfs.DistanceLinear
	}
	return gtfs.DistanceNone
}
