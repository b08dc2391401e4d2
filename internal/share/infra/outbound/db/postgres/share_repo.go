package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	shareDomain "github.com/davicafu/csamarket/internal/share/domain"
	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	sharedPostgres "github.com/davicafu/csamarket/internal/shared/infra/platform/db/postgres"
	"github.com/davicafu/csamarket/internal/shared/infra/platform/db/sqlcriteria"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
)

const uniqueViolation = "23505"

var shareColumns = sqlcriteria.Columns{
	shareDomain.FieldID:        {Name: "id"},
	shareDomain.FieldFarmID:    {Name: "farm_id"},
	shareDomain.FieldAvailable: {Name: "available"},
	shareDomain.FieldCreatedAt: {Name: "created_at"},
}

const shareSelect = `SELECT id, farm_id, name, description, price, frequency, available,
	start_date, end_date, max_subscribers, current_subscribers, created_at, updated_at FROM csa_shares`

type ShareRepoPostgres struct {
	db *sql.DB
}

func NewShareRepoPostgres(db *sql.DB) *ShareRepoPostgres {
	return &ShareRepoPostgres{db: db}
}

// ------------------ CRUD + Outbox ------------------

func (r *ShareRepoPostgres) withTx(ctx context.Context, evt sharedDomain.OutboxEvent, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = sharedPostgres.InsertOutboxTx(ctx, tx, evt); err != nil {
		return fmt.Errorf("failed to insert outbox: %w", err)
	}
	return tx.Commit()
}

func (r *ShareRepoPostgres) Create(ctx context.Context, s *shareDomain.Share, evt sharedDomain.OutboxEvent) error {
	return r.withTx(ctx, evt, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO csa_shares (id, farm_id, name, description, price, frequency, available,
				start_date, end_date, max_subscribers, current_subscribers, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			s.ID, s.FarmID, s.Name, s.Description, s.Price, string(s.Frequency), s.Available,
			s.StartDate, s.EndDate, s.MaxSubscribers, s.CurrentSubscribers, s.CreatedAt, s.UpdatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return shareDomain.ErrShareAlreadyExists
			}
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

func (r *ShareRepoPostgres) Update(ctx context.Context, s *shareDomain.Share, evt sharedDomain.OutboxEvent) error {
	return r.withTx(ctx, evt, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE csa_shares SET name=$1, description=$2, price=$3, frequency=$4, available=$5,
				start_date=$6, end_date=$7, max_subscribers=$8, current_subscribers=$9, updated_at=$10
			 WHERE id=$11`,
			s.Name, s.Description, s.Price, string(s.Frequency), s.Available,
			s.StartDate, s.EndDate, s.MaxSubscribers, s.CurrentSubscribers, s.UpdatedAt, s.ID,
		)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return shareDomain.ErrShareNotFound
		}
		return nil
	})
}

func (r *ShareRepoPostgres) DeleteByID(ctx context.Context, id string, evt sharedDomain.OutboxEvent) error {
	return r.withTx(ctx, evt, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM csa_shares WHERE id=$1`, id)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return shareDomain.ErrShareNotFound
		}
		return nil
	})
}

// ------------------ Lectura ------------------

func (r *ShareRepoPostgres) GetByID(ctx context.Context, id string) (*shareDomain.Share, error) {
	s, err := scanShare(r.db.QueryRowContext(ctx, shareSelect+` WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shareDomain.ErrShareNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *ShareRepoPostgres) ListPage(ctx context.Context, criteria sharedDomain.Criteria, seek sharedQuery.Seek) ([]*shareDomain.Share, error) {
	b := sqlcriteria.New(sqlcriteria.Postgres, shareColumns)
	query, err := b.SelectPage(shareSelect, criteria, seek)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, b.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shares := make([]*shareDomain.Share, 0, seek.Limit)
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanShare(sc scanner) (*shareDomain.Share, error) {
	var s shareDomain.Share
	var frequency string
	var start, end sql.NullTime
	var max sql.NullInt64

	if err := sc.Scan(&s.ID, &s.FarmID, &s.Name, &s.Description, &s.Price, &frequency, &s.Available,
		&start, &end, &max, &s.CurrentSubscribers, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Frequency = shareDomain.Frequency(frequency)
	if start.Valid {
		t := start.Time.UTC()
		s.StartDate = &t
	}
	if end.Valid {
		t := end.Time.UTC()
		s.EndDate = &t
	}
	if max.Valid {
		m := int(max.Int64)
		s.MaxSubscribers = &m
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

// ------------------ Inicialización ------------------

// InitPostgres crea csa_shares, subscriptions y la tabla outbox.
func InitPostgres(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS csa_shares (
		id TEXT PRIMARY KEY,
		farm_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price BIGINT NOT NULL CHECK (price >= 0),
		frequency TEXT NOT NULL,
		available BOOLEAN NOT NULL DEFAULT TRUE,
		start_date TIMESTAMPTZ,
		end_date TIMESTAMPTZ,
		max_subscribers INTEGER,
		current_subscribers INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
		`CREATE INDEX IF NOT EXISTS idx_shares_created ON csa_shares (created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_shares_farm ON csa_shares (farm_id)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		share_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_share ON subscriptions (share_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return sharedPostgres.InitOutbox(ctx, db)
}

var _ shareDomain.ShareRepository = (*ShareRepoPostgres)(nil)
