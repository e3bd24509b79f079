package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second

	DefaultDocumentName = "default"
)

// PostgresStore keeps the whole Document in a single JSONB row. The row lock
// taken by SELECT ... FOR UPDATE is the critical section for mutations.
type PostgresStore struct {
	pool *pgxpool.Pool
	name string
	log  *zap.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, name string, log *zap.Logger) *PostgresStore {
	if name == "" {
		name = DefaultDocumentName
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresStore{pool: pool, name: name, log: log.With(zap.String("document", name))}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS inventory_documents (
				name       TEXT PRIMARY KEY,
				body       JSONB NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`)
		return err
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.pool.Ping(ctx)
	})
}

func (s *PostgresStore) View(ctx context.Context) (Document, error) {
	var raw []byte
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `
			SELECT body
			FROM inventory_documents
			WHERE name = $1
		`, s.name).Scan(&raw)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return emptyDocument(), nil
	}
	if err != nil {
		return Document{}, err
	}
	return s.decode(raw), nil
}

func (s *PostgresStore) Update(ctx context.Context, fn func(doc *Document) error) error {
	var rejected error

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		_, err = tx.Exec(ctx, `
			INSERT INTO inventory_documents (name, body)
			VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING
		`, s.name, `{"products":[],"sales":[],"rentals":[]}`)
		if err != nil {
			return err
		}

		var raw []byte
		err = tx.QueryRow(ctx, `
			SELECT body
			FROM inventory_documents
			WHERE name = $1
			FOR UPDATE
		`, s.name).Scan(&raw)
		if err != nil {
			return err
		}

		doc := s.decode(raw)
		if err := fn(&doc); err != nil {
			rejected = err
			return nil
		}

		body, err := encodeDocument(doc)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE inventory_documents
			SET body = $2, updated_at = now()
			WHERE name = $1
		`, s.name, string(body))
		if err != nil {
			return err
		}
		return tx.Commit(ctx)
	})

	if rejected != nil {
		return rejected
	}
	if err != nil {
		s.log.Error("inventory commit failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

func (s *PostgresStore) decode(raw []byte) Document {
	doc, err := decodeDocument(raw)
	if err != nil {
		s.log.Error("stored inventory corrupt, using empty inventory", zap.Error(err))
		return emptyDocument()
	}
	return doc
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
