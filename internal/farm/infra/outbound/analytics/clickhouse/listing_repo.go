package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
)

// ListingAnalyticsRepo implementa ListingAnalyticsRepository para ClickHouse.
type ListingAnalyticsRepo struct {
	db *sql.DB
}

// NewListingAnalyticsRepo abre la conexión y comprueba que responde.
func NewListingAnalyticsRepo(ctx context.Context, addr string, dbName string) (*ListingAnalyticsRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
	})

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &ListingAnalyticsRepo{db: conn}, nil
}

// LogBatch inserta un lote de entradas. ClickHouse funciona mejor con inserciones en lotes.
func (r *ListingAnalyticsRepo) LogBatch(ctx context.Context, entries []farmDomain.ListingLog) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO listing_queries (search, category, price_tier, delivery,
		min_rating, sort, with_cursor, result_count, has_more, success, duration_ms, requested_at)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.Search,
			e.Category,
			e.PriceTier,
			e.Delivery,
			e.MinRating,
			e.Sort,
			boolToUInt8(e.WithCursor),
			uint32(e.ResultCount),
			boolToUInt8(e.HasMore),
			boolToUInt8(e.Success),
			uint32(e.Duration.Milliseconds()),
			e.RequestedAt,
		); err != nil {
			// Si un registro falla, se descarta el lote completo.
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for listing log: %w", err)
		}
	}

	return tx.Commit()
}

// TopSearches devuelve los términos más buscados en el intervalo.
func (r *ListingAnalyticsRepo) TopSearches(ctx context.Context, start, end time.Time, limit int) ([]farmDomain.SearchTermCount, error) {
	query := `
		SELECT lower(search) AS term, count() AS hits, avg(result_count) AS avg_results
		FROM listing_queries
		WHERE requested_at BETWEEN ? AND ? AND search != ''
		GROUP BY term
		ORDER BY hits DESC, term
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, start, end, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []farmDomain.SearchTermCount
	for rows.Next() {
		var c farmDomain.SearchTermCount
		var hits uint64
		if err := rows.Scan(&c.Term, &hits, &c.AvgResults); err != nil {
			return nil, err
		}
		c.Hits = int(hits)
		out = append(out, c)
	}
	return out, rows.Err()
}

// InitSchema crea la tabla si no existe. Se particiona por mes y se ordena
// por los campos que más se consultan.
func (r *ListingAnalyticsRepo) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS listing_queries (
			search       String,
			category     LowCardinality(String),
			price_tier   LowCardinality(String),
			delivery     LowCardinality(String),
			min_rating   Float64,
			sort         LowCardinality(String),
			with_cursor  UInt8,
			result_count UInt32,
			has_more     UInt8,
			success      UInt8,
			duration_ms  UInt32,
			requested_at DateTime64(3)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(requested_at)
		ORDER BY (sort, category, requested_at);
	`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// Close cierra la conexión.
func (r *ListingAnalyticsRepo) Close() error {
	return r.db.Close()
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Verificación estática de la interfaz.
var _ farmDomain.ListingAnalyticsRepository = (*ListingAnalyticsRepo)(nil)
