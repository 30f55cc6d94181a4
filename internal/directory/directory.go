// Package directory is the naming layer that maps board names to board ids.
package directory

import (
	"context"

	"github.com/shared-board/backend/internal/model"
)

// Directory maps caller-chosen board names to opaque board ids.
type Directory interface {
	// Resolve returns the id bound to name, binding a fresh one if needed.
	Resolve(ctx context.Context, name string) (model.BoardID, error)

	// Lookup returns the id bound to name or model.ErrBoardNotFound.
	Lookup(ctx context.Context, name string) (model.BoardID, error)

	// Deregister releases whatever name is bound to id. Releasing an
	// unbound id is not an error.
	Deregister(ctx context.Context, id model.BoardID) error
}
