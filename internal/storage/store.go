// Package storage persists leads, interactions, scoring criteria and the sales
// pipeline in PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
)

type Store struct {
	db     *sqlx.DB
	logger logger.Logger
}

func New(db *sqlx.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "storage"}),
	}
}

// get loads one row into dest and maps sql.ErrNoRows to RESOURCE_NOT_FOUND.
func (s *Store) get(ctx context.Context, q sqlx.QueryerContext, dest interface{}, resource string, id int64, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, q, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewResourceNotFoundError(resource, id)
	}
	if err != nil {
		return apperrors.NewQueryFailedError("get "+resource, err)
	}
	return nil
}

func (s *Store) selectAll(ctx context.Context, dest interface{}, op string, query string, args ...interface{}) error {
	if err := s.db.SelectContext(ctx, dest, query, args...); err != nil {
		return apperrors.NewQueryFailedError(op, err)
	}
	return nil
}

// WithTx runs fn inside a transaction and commits when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.NewQueryFailedError("begin transaction", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("Rollback failed", map[string]interface{}{"error": rbErr.Error()})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewQueryFailedError("commit transaction", err)
	}
	return nil
}
