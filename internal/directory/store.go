package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shared-board/backend/internal/model"
)

// Store is a Directory backed by SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Resolve returns the id bound to name, binding a fresh one if needed.
func (s *Store) Resolve(ctx context.Context, name string) (model.BoardID, error) {
	if err := model.ValidateName(name); err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO boards (name, board_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insert, name, string(model.NewBoardID()), time.Now()); err != nil {
		return "", fmt.Errorf("failed to bind board name: %w", err)
	}

	var id string
	if err := tx.QueryRowContext(ctx, `SELECT board_id FROM boards WHERE name = ?`, name).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to read board id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit board name: %w", err)
	}

	return model.BoardID(id), nil
}

// Lookup returns the id bound to name.
func (s *Store) Lookup(ctx context.Context, name string) (model.BoardID, error) {
	if err := model.ValidateName(name); err != nil {
		return "", err
	}

	var id string
	err := s.db.QueryRowContext(ctx, `SELECT board_id FROM boards WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrBoardNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up board: %w", err)
	}

	return model.BoardID(id), nil
}

// Deregister removes the name bound to id.
func (s *Store) Deregister(ctx context.Context, id model.BoardID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE board_id = ?`, string(id)); err != nil {
		return fmt.Errorf("failed to release board: %w", err)
	}
	return nil
}
