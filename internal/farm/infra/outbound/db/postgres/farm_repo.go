package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedPostgres "github.com/davicafu/csamarket/internal/shared/infra/platform/db/postgres"
	"github.com/davicafu/csamarket/internal/shared/infra/platform/db/sqlcriteria"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
)

const uniqueViolation = "23505"

var farmColumns = sqlcriteria.Columns{
	farmDomain.FieldID:              {Name: "id"},
	farmDomain.FieldUserID:          {Name: "user_id"},
	farmDomain.FieldName:            {Name: "name"},
	farmDomain.FieldCity:            {Name: "city"},
	farmDomain.FieldState:           {Name: "state"},
	farmDomain.FieldDescription:     {Name: "description"},
	farmDomain.FieldCategories:      {Name: "categories", Kind: sqlcriteria.List},
	farmDomain.FieldDeliveryOptions: {Name: "delivery_options", Kind: sqlcriteria.List},
	farmDomain.FieldPricePerWeek:    {Name: "price_per_week"},
	farmDomain.FieldRating:          {Name: "rating"},
	farmDomain.FieldGeohash:         {Name: "geohash"},
	farmDomain.FieldCreatedAt:       {Name: "created_at"},
}

const farmSelect = `SELECT id, user_id, name, description, address, city, state, zip_code,
	latitude, longitude, geohash, image_urls, categories, delivery_options,
	price_per_week, rating, created_at, updated_at FROM farms`

type FarmRepoPostgres struct {
	db *sql.DB
}

func NewFarmRepoPostgres(db *sql.DB) *FarmRepoPostgres {
	return &FarmRepoPostgres{db: db}
}

// ------------------ CRUD + Outbox ------------------

// Create inserta la granja y su evento en una transacción.
func (r *FarmRepoPostgres) Create(ctx context.Context, f *farmDomain.Farm, evt sharedDomain.OutboxEvent) (err error) {
	lists, err := encodeLists(f)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO farms (id, user_id, name, description, address, city, state, zip_code,
			latitude, longitude, geohash, image_urls, categories, delivery_options,
			price_per_week, rating, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		f.ID, f.UserID, f.Name, f.Description, f.Address, f.City, f.State, f.ZipCode,
		f.Latitude, f.Longitude, f.Geohash, lists[0], lists[1], lists[2],
		f.PricePerWeek, f.Rating, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return farmDomain.ErrFarmAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	if err = sharedPostgres.InsertOutboxTx(ctx, tx, evt); err != nil {
		return fmt.Errorf("failed to insert outbox: %w", err)
	}

	return tx.Commit()
}

// Update actualiza la granja y crea el evento en una transacción.
func (r *FarmRepoPostgres) Update(ctx context.Context, f *farmDomain.Farm, evt sharedDomain.OutboxEvent) (err error) {
	lists, err := encodeLists(f)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE farms SET name=$1, description=$2, address=$3, city=$4, state=$5, zip_code=$6,
			latitude=$7, longitude=$8, geohash=$9, image_urls=$10, categories=$11, delivery_options=$12,
			price_per_week=$13, rating=$14, updated_at=$15
		 WHERE id=$16`,
		f.Name, f.Description, f.Address, f.City, f.State, f.ZipCode,
		f.Latitude, f.Longitude, f.Geohash, lists[0], lists[1], lists[2],
		f.PricePerWeek, f.Rating, f.UpdatedAt, f.ID,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		err = farmDomain.ErrFarmNotFound
		return err
	}

	if err = sharedPostgres.InsertOutboxTx(ctx, tx, evt); err != nil {
		return fmt.Errorf("failed to insert outbox: %w", err)
	}

	return tx.Commit()
}

// DeleteByID elimina la granja y crea el evento en una transacción.
func (r *FarmRepoPostgres) DeleteByID(ctx context.Context, id string, evt sharedDomain.OutboxEvent) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM farms WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		err = farmDomain.ErrFarmNotFound
		return err
	}

	if err = sharedPostgres.InsertOutboxTx(ctx, tx, evt); err != nil {
		return fmt.Errorf("failed to insert outbox: %w", err)
	}

	return tx.Commit()
}

// ------------------ Lectura ------------------

func (r *FarmRepoPostgres) GetByID(ctx context.Context, id string) (*farmDomain.Farm, error) {
	f, err := scanFarm(r.db.QueryRowContext(ctx, farmSelect+` WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, farmDomain.ErrFarmNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// ListPage traduce criterios neutrales y seek a SQL para Postgres ($1, $2...).
func (r *FarmRepoPostgres) ListPage(ctx context.Context, criteria sharedDomain.Criteria, seek sharedQuery.Seek) ([]*farmDomain.Farm, error) {
	b := sqlcriteria.New(sqlcriteria.Postgres, farmColumns)
	query, err := b.SelectPage(farmSelect, criteria, seek)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, b.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	farms := make([]*farmDomain.Farm, 0, seek.Limit)
	for rows.Next() {
		f, err := scanFarm(rows)
		if err != nil {
			return nil, err
		}
		farms = append(farms, f)
	}
	return farms, rows.Err()
}

// ------------------ Helpers ------------------

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFarm(s scanner) (*farmDomain.Farm, error) {
	var f farmDomain.Farm
	var imageURLs, categories, delivery []byte
	var price, rating sql.NullFloat64

	if err := s.Scan(&f.ID, &f.UserID, &f.Name, &f.Description, &f.Address, &f.City, &f.State, &f.ZipCode,
		&f.Latitude, &f.Longitude, &f.Geohash, &imageURLs, &categories, &delivery,
		&price, &rating, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}

	for _, l := range []struct {
		raw []byte
		dst *[]string
	}{{imageURLs, &f.ImageURLs}, {categories, &f.Categories}, {delivery, &f.DeliveryOptions}} {
		if err := json.Unmarshal(l.raw, l.dst); err != nil {
			return nil, fmt.Errorf("invalid JSON list in farm %s: %w", f.ID, err)
		}
		if *l.dst == nil {
			*l.dst = []string{}
		}
	}

	if price.Valid {
		f.PricePerWeek = &price.Float64
	}
	if rating.Valid {
		f.Rating = &rating.Float64
	}
	f.CreatedAt = f.CreatedAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	return &f, nil
}

// encodeLists serializa imageUrls, categories y deliveryOptions, en ese orden.
func encodeLists(f *farmDomain.Farm) ([3][]byte, error) {
	var out [3][]byte
	for i, l := range [][]string{f.ImageURLs, f.Categories, f.DeliveryOptions} {
		if l == nil {
			l = []string{}
		}
		b, err := json.Marshal(l)
		if err != nil {
			return out, fmt.Errorf("failed to marshal farm list: %w", err)
		}
		out[i] = b
	}
	return out, nil
}

// ------------------ Inicialización ------------------

// InitPostgres crea la tabla farms, sus índices y la tabla outbox.
// name usa la collation "C" para que el orden por nombre sea binario y estable.
func InitPostgres(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS farms (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT COLLATE "C" NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		zip_code TEXT NOT NULL DEFAULT '',
		latitude TEXT NOT NULL DEFAULT '',
		longitude TEXT NOT NULL DEFAULT '',
		geohash TEXT NOT NULL DEFAULT '',
		image_urls JSONB NOT NULL DEFAULT '[]',
		categories JSONB NOT NULL DEFAULT '[]',
		delivery_options JSONB NOT NULL DEFAULT '[]',
		price_per_week DOUBLE PRECISION,
		rating DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
		`CREATE INDEX IF NOT EXISTS idx_farms_created ON farms (created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_farms_user ON farms (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_farms_geohash ON farms (geohash text_pattern_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return sharedPostgres.InitOutbox(ctx, db)
}

// Verificación en tiempo de compilación.
var _ farmDomain.FarmRepository = (*FarmRepoPostgres)(nil)
