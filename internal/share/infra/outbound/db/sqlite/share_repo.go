package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	shareDomain "github.com/davicafu/csamarket/internal/share/domain"
	sharedDomain "github.com/davicafu/csamarket/internal/shared/domain"
	"github.com/davicafu/csamarket/internal/shared/infra/platform/db/sqlcriteria"
	sharedSQLite "github.com/davicafu/csamarket/internal/shared/infra/platform/db/sqlite"
	sharedQuery "github.com/davicafu/csamarket/internal/shared/infra/platform/query"
)

var shareColumns = sqlcriteria.Columns{
	shareDomain.FieldID:        {Name: "id"},
	shareDomain.FieldFarmID:    {Name: "farm_id"},
	shareDomain.FieldAvailable: {Name: "available"},
	shareDomain.FieldCreatedAt: {Name: "created_at"},
}

const shareSelect = `SELECT id, farm_id, name, description, price, frequency, available,
	start_date, end_date, max_subscribers, current_subscribers, created_at, updated_at FROM csa_shares`

type ShareRepoSQLite struct {
	db *sql.DB
}

func NewShareRepoSQLite(db *sql.DB) *ShareRepoSQLite {
	return &ShareRepoSQLite{db: db}
}

// withTx ejecuta fn y el alta del evento en la misma transacción.
func (r *ShareRepoSQLite) withTx(ctx context.Context, evt sharedDomain.OutboxEvent, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = sharedSQLite.InsertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *ShareRepoSQLite) Create(ctx context.Context, s *shareDomain.Share, evt sharedDomain.OutboxEvent) error {
	return r.withTx(ctx, evt, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO csa_shares (id, farm_id, name, description, price, frequency, available,
				start_date, end_date, max_subscribers, current_subscribers, created_at, updated_at)
			 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			s.ID, s.FarmID, s.Name, s.Description, s.Price, string(s.Frequency), boolInt(s.Available),
			nullTime(s.StartDate), nullTime(s.EndDate), s.MaxSubscribers, s.CurrentSubscribers,
			sqlcriteria.FormatSQLiteTime(s.CreatedAt), sqlcriteria.FormatSQLiteTime(s.UpdatedAt),
		)
		if isConstraintViolation(err) {
			return shareDomain.ErrShareAlreadyExists
		}
		return err
	})
}

func (r *ShareRepoSQLite) Update(ctx context.Context, s *shareDomain.Share, evt sharedDomain.OutboxEvent) error {
	return r.withTx(ctx, evt, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE csa_shares SET name=?, description=?, price=?, frequency=?, available=?,
				start_date=?, end_date=?, max_subscribers=?, current_subscribers=?, updated_at=?
			 WHERE id=?`,
			s.Name, s.Description, s.Price, string(s.Frequency), boolInt(s.Available),
			nullTime(s.StartDate), nullTime(s.EndDate), s.MaxSubscribers, s.CurrentSubscribers,
			sqlcriteria.FormatSQLiteTime(s.UpdatedAt), s.ID,
		)
		if err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return shareDomain.ErrShareNotFound
		}
		return nil
	})
}

func (r *ShareRepoSQLite) DeleteByID(ctx context.Context, id string, evt sharedDomain.OutboxEvent) error {
	return r.withTx(ctx, evt, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM csa_shares WHERE id=?`, id)
		if err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return shareDomain.ErrShareNotFound
		}
		return nil
	})
}

func (r *ShareRepoSQLite) GetByID(ctx context.Context, id string) (*shareDomain.Share, error) {
	s, err := scanShare(r.db.QueryRowContext(ctx, shareSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shareDomain.ErrShareNotFound
	}
	return s, err
}

func (r *ShareRepoSQLite) ListPage(ctx context.Context, criteria sharedDomain.Criteria, seek sharedQuery.Seek) ([]*shareDomain.Share, error) {
	b := sqlcriteria.New(sqlcriteria.SQLite, shareColumns)
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

// ------------------ Helpers ------------------

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanShare(sc scanner) (*shareDomain.Share, error) {
	var s shareDomain.Share
	var frequency, createdAt, updatedAt string
	var start, end sql.NullString
	var max sql.NullInt64

	if err := sc.Scan(&s.ID, &s.FarmID, &s.Name, &s.Description, &s.Price, &frequency, &s.Available,
		&start, &end, &max, &s.CurrentSubscribers, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	s.Frequency = shareDomain.Frequency(frequency)
	if max.Valid {
		m := int(max.Int64)
		s.MaxSubscribers = &m
	}

	var err error
	if s.StartDate, err = parseNullTime(start); err != nil {
		return nil, fmt.Errorf("invalid start_date in share %s: %w", s.ID, err)
	}
	if s.EndDate, err = parseNullTime(end); err != nil {
		return nil, fmt.Errorf("invalid end_date in share %s: %w", s.ID, err)
	}
	if s.CreatedAt, err = sqlcriteria.ParseSQLiteTime(createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at in share %s: %w", s.ID, err)
	}
	if s.UpdatedAt, err = sqlcriteria.ParseSQLiteTime(updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at in share %s: %w", s.ID, err)
	}
	return &s, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: sqlcriteria.FormatSQLiteTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := sqlcriteria.ParseSQLiteTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
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

// InitSQLite crea csa_shares, subscriptions y la tabla outbox.
func InitSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS csa_shares (
            id TEXT PRIMARY KEY,
            farm_id TEXT NOT NULL,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            price INTEGER NOT NULL,
            frequency TEXT NOT NULL,
            available INTEGER NOT NULL DEFAULT 1,
            start_date TEXT,
            end_date TEXT,
            max_subscribers INTEGER,
            current_subscribers INTEGER NOT NULL DEFAULT 0,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_shares_created ON csa_shares (created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_shares_farm ON csa_shares (farm_id)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            share_id TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'active',
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_share ON subscriptions (share_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return sharedSQLite.InitOutbox(ctx, db)
}

var _ shareDomain.ShareRepository = (*ShareRepoSQLite)(nil)
