package directory

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shared-board/backend/internal/db"
	"github.com/shared-board/backend/internal/model"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return NewStore(database)
}

func TestStore_ResolveIsStable(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.Resolve(ctx, "general")
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := store.Resolve(ctx, "general")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := store.Resolve(ctx, "random")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestStore_ResolveConcurrent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	const callers = 20
	ids := make([]model.BoardID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := store.Resolve(ctx, "busy")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestStore_DeregisterFreesName(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	id, err := store.Resolve(ctx, "general")
	require.NoError(t, err)

	require.NoError(t, store.Deregister(ctx, id))
	require.NoError(t, store.Deregister(ctx, id), "releasing twice is not an error")

	_, err = store.Lookup(ctx, "general")
	assert.ErrorIs(t, err, model.ErrBoardNotFound)

	fresh, err := store.Resolve(ctx, "general")
	require.NoError(t, err)
	assert.NotEqual(t, id, fresh)
}

func TestStore_RejectsBadNames(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Resolve(ctx, "")
	assert.ErrorIs(t, err, model.ErrNameRequired)

	_, err = store.Resolve(ctx, "a/b")
	assert.ErrorIs(t, err, model.ErrInvalidName)

	_, err = store.Lookup(ctx, strings.Repeat("x", model.MaxNameLength+1))
	assert.ErrorIs(t, err, model.ErrInvalidName)
}

func TestStoreBindingProperty(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	validName := gen.AlphaString().SuchThat(func(s string) bool {
		return len(s) > 0 && len(s) <= model.MaxNameLength
	})

	properties.Property("resolved names look up to the same id until released", prop.ForAll(
		func(name string) bool {
			id, err := store.Resolve(ctx, name)
			if err != nil {
				return false
			}
			found, err := store.Lookup(ctx, name)
			if err != nil || found != id {
				return false
			}
			if err := store.Deregister(ctx, id); err != nil {
				return false
			}
			_, err = store.Lookup(ctx, name)
			return err == model.ErrBoardNotFound
		},
		validName,
	))

	properties.TestingRun(t)
}
