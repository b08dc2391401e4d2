package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	"github.com/davicafu/csamarket/internal/shared/infra/platform/db/sqlcriteria"
	sharedSQLite "github.com/davicafu/csamarket/internal/shared/infra/platform/db/sqlite"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
)

// farmColumns es la lista blanca de campos que se pueden filtrar u ordenar.
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

type FarmRepoSQLite struct {
	db *sql.DB
}

func NewFarmRepoSQLite(db *sql.DB) *FarmRepoSQLite {
	return &FarmRepoSQLite{db: db}
}

// ------------------ Métodos ------------------

// Create inserta la granja y su evento en una transacción.
func (r *FarmRepoSQLite) Create(ctx context.Context, f *farmDomain.Farm, evt sharedDomain.OutboxEvent) (err error) {
	lists, err := encodeLists(f)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
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
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		f.ID, f.UserID, f.Name, f.Description, f.Address, f.City, f.State, f.ZipCode,
		f.Latitude, f.Longitude, f.Geohash, lists[0], lists[1], lists[2],
		f.PricePerWeek, f.Rating,
		sqlcriteria.FormatSQLiteTime(f.CreatedAt), sqlcriteria.FormatSQLiteTime(f.UpdatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return farmDomain.ErrFarmAlreadyExists
		}
		return err
	}

	if err = sharedSQLite.InsertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// Update actualiza la granja y crea el evento en una transacción.
// El propietario y la fecha de creación no cambian.
func (r *FarmRepoSQLite) Update(ctx context.Context, f *farmDomain.Farm, evt sharedDomain.OutboxEvent) (err error) {
	lists, err := encodeLists(f)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE farms SET name=?, description=?, address=?, city=?, state=?, zip_code=?,
			latitude=?, longitude=?, geohash=?, image_urls=?, categories=?, delivery_options=?,
			price_per_week=?, rating=?, updated_at=?
		 WHERE id=?`,
		f.Name, f.Description, f.Address, f.City, f.State, f.ZipCode,
		f.Latitude, f.Longitude, f.Geohash, lists[0], lists[1], lists[2],
		f.PricePerWeek, f.Rating, sqlcriteria.FormatSQLiteTime(f.UpdatedAt), f.ID,
	)
	if err != nil {
		return err
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		err = farmDomain.ErrFarmNotFound
		return err
	}

	if err = sharedSQLite.InsertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteByID elimina la granja y crea el evento en una transacción.
func (r *FarmRepoSQLite) DeleteByID(ctx context.Context, id string, evt sharedDomain.OutboxEvent) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM farms WHERE id=?`, id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		err = farmDomain.ErrFarmNotFound
		return err
	}

	if err = sharedSQLite.InsertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *FarmRepoSQLite) GetByID(ctx context.Context, id string) (*farmDomain.Farm, error) {
	row := r.db.QueryRowContext(ctx, farmSelect+` WHERE id = ?`, id)
	f, err := scanFarm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, farmDomain.ErrFarmNotFound
		}
		return nil, err
	}
	return f, nil
}

// ListPage traduce criterios y seek a una única consulta SQL.
func (r *FarmRepoSQLite) ListPage(ctx context.Context, criteria sharedDomain.Criteria, seek sharedQuery.Seek) ([]*farmDomain.Farm, error) {
	b := sqlcriteria.New(sqlcriteria.SQLite, farmColumns)
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
	var imageURLs, categories, delivery, createdAt, updatedAt string
	var price, rating sql.NullFloat64

	if err := s.Scan(&f.ID, &f.UserID, &f.Name, &f.Description, &f.Address, &f.City, &f.State, &f.ZipCode,
		&f.Latitude, &f.Longitude, &f.Geohash, &imageURLs, &categories, &delivery,
		&price, &rating, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	for _, l := range []struct {
		raw string
		dst *[]string
	}{{imageURLs, &f.ImageURLs}, {categories, &f.Categories}, {delivery, &f.DeliveryOptions}} {
		if err := json.Unmarshal([]byte(l.raw), l.dst); err != nil {
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

	var err error
	if f.CreatedAt, err = sqlcriteria.ParseSQLiteTime(createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at in farm %s: %w", f.ID, err)
	}
	if f.UpdatedAt, err = sqlcriteria.ParseSQLiteTime(updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at in farm %s: %w", f.ID, err)
	}
	return &f, nil
}

// encodeLists serializa imageUrls, categories y deliveryOptions, en ese orden.
func encodeLists(f *farmDomain.Farm) ([3]string, error) {
	var out [3]string
	for i, l := range [][]string{f.ImageURLs, f.Categories, f.DeliveryOptions} {
		if l == nil {
			l = []string{}
		}
		b, err := json.Marshal(l)
		if err != nil {
			return out, fmt.Errorf("failed to marshal farm list: %w", err)
		}
		out[i] = string(b)
	}
	return out, nil
}

func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

// ------------------ Inicialización de DB ------------------

// InitSQLite crea la tabla farms, sus índices y la tabla outbox.
func InitSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS farms (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            city TEXT NOT NULL DEFAULT '',
            state TEXT NOT NULL DEFAULT '',
            zip_code TEXT NOT NULL DEFAULT '',
            latitude TEXT NOT NULL DEFAULT '',
            longitude TEXT NOT NULL DEFAULT '',
            geohash TEXT NOT NULL DEFAULT '',
            image_urls TEXT NOT NULL DEFAULT '[]',
            categories TEXT NOT NULL DEFAULT '[]',
            delivery_options TEXT NOT NULL DEFAULT '[]',
            price_per_week REAL,
            rating REAL,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_farms_created ON farms (created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_farms_user ON farms (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_farms_geohash ON farms (geohash)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return sharedSQLite.InitOutbox(ctx, db)
}

// Verificación en tiempo de compilación.
var _ farmDomain.FarmRepository = (*FarmRepoSQLite)(nil)
