package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sm8ta/webike_rental_microservice/internal/config"
	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pressly/goose"
)

var _ ports.EntityStore = (*DocumentRepository)(nil)

// DocumentRepository stores every entity kind as JSONB rows of one table,
// keyed by (kind, id) with ids drawn from a BIGSERIAL.
type DocumentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Connect opens the pool and verifies connectivity with a ping.
func Connect(ctx context.Context, cfg *config.DB) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

func Migrate(db *sqlx.DB, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db.DB, dir)
}

type documentRow struct {
	ID   int64  `db:"id"`
	Data []byte `db:"data"`
}

func (r *DocumentRepository) Get(ctx context.Context, kind domain.Kind, id int64) (*domain.Document, error) {
	query := `SELECT id, data FROM entities WHERE kind = $1 AND id = $2`

	var row documentRow
	if err := r.db.GetContext(ctx, &row, query, kind, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
		}
		return nil, wrapError(err)
	}
	return &domain.Document{Kind: kind, ID: row.ID, Data: row.Data}, nil
}

func (r *DocumentRepository) Put(ctx context.Context, doc *domain.Document) error {
	if doc.ID == 0 {
		query := `INSERT INTO entities (kind, data) VALUES ($1, $2::jsonb) RETURNING id`
		if err := r.db.QueryRowxContext(ctx, query, doc.Kind, string(doc.Data)).Scan(&doc.ID); err != nil {
			return wrapError(err)
		}
		return nil
	}

	query := `INSERT INTO entities (kind, id, data) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (kind, id) DO UPDATE SET data = EXCLUDED.data, updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.ExecContext(ctx, query, doc.Kind, doc.ID, string(doc.Data)); err != nil {
		return wrapError(err)
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, kind domain.Kind, id int64) error {
	query := `DELETE FROM entities WHERE kind = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, kind, id)
	if err != nil {
		return wrapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wrapError(err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}

// Query fetches one row past the limit to learn whether more remain.
func (r *DocumentRepository) Query(ctx context.Context, q domain.Query) ([]*domain.Document, bool, error) {
	var sb strings.Builder
	args := []interface{}{q.Kind}
	sb.WriteString(`SELECT id, data FROM entities WHERE kind = $1`)
	if q.Filter != nil {
		args = append(args, q.Filter.Field, fmt.Sprint(q.Filter.Value))
		sb.WriteString(` AND data->>$2 = $3`)
	}
	sb.WriteString(` ORDER BY id`)
	if q.Limit > 0 {
		args = append(args, q.Limit+1)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}
	args = append(args, q.Offset)
	fmt.Fprintf(&sb, ` OFFSET $%d`, len(args))

	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, false, wrapError(err)
	}

	more := false
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
		more = true
	}

	docs := make([]*domain.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, &domain.Document{Kind: q.Kind, ID: row.ID, Data: row.Data})
	}
	return docs, more, nil
}

func wrapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", domain.ErrDuplicate, pqErr.Constraint)
		case "22P02", "23502":
			return fmt.Errorf("%w: %s", domain.ErrBadRequest, pqErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
