package member

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry_ResolveOrCreate(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry()

	profile := Profile{FirstName: "Ada", Surname: "Lovelace", Email: "ada@example.com", Country: "UK"}

	ref, err := registry.ResolveOrCreate(ctx, profile)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ref)

	stored, err := registry.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "Ada", stored.FirstName)
}

func TestMemoryRegistry_ResolveIsIdempotentByEmail(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry()

	first, err := registry.ResolveOrCreate(ctx, Profile{FirstName: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	// Same email resolves to the same member; stored details are kept.
	second, err := registry.ResolveOrCreate(ctx, Profile{FirstName: "Augusta", Email: "ADA@example.com "})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := registry.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "Ada", stored.FirstName)
}

func TestMemoryRegistry_EmptyEmail(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry()

	_, err := registry.ResolveOrCreate(ctx, Profile{FirstName: "Ada"})
	assert.ErrorIs(t, err, ErrEmptyEmail)

	_, err = registry.IsUniqueIdentifier(ctx, Profile{Email: "   "}, 0)
	assert.ErrorIs(t, err, ErrEmptyEmail)
}

func TestMemoryRegistry_IsUniqueIdentifier(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry()

	ref, err := registry.ResolveOrCreate(ctx, Profile{Email: "ada@example.com"})
	require.NoError(t, err)

	// Free email is unique for anyone.
	unique, err := registry.IsUniqueIdentifier(ctx, Profile{Email: "new@example.com"}, 0)
	require.NoError(t, err)
	assert.True(t, unique)

	// Taken email is not unique for an anonymous checkout.
	unique, err = registry.IsUniqueIdentifier(ctx, Profile{Email: "ada@example.com"}, 0)
	require.NoError(t, err)
	assert.False(t, unique)

	// The owner's own email counts as free.
	unique, err = registry.IsUniqueIdentifier(ctx, Profile{Email: "ada@example.com"}, ref)
	require.NoError(t, err)
	assert.True(t, unique)

	// Another member may not take it.
	other, err := registry.ResolveOrCreate(ctx, Profile{Email: "grace@example.com"})
	require.NoError(t, err)
	unique, err = registry.IsUniqueIdentifier(ctx, Profile{Email: "ada@example.com"}, other)
	require.NoError(t, err)
	assert.False(t, unique)
}

func TestMemoryRegistry_GetUnknownRef(t *testing.T) {
	registry := NewMemoryRegistry()

	_, err := registry.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRegistry_ConcurrentResolve(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry()

	var wg sync.WaitGroup
	refs := make([]int64, 50)
	for i := range refs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref, err := registry.ResolveOrCreate(ctx, Profile{Email: "ada@example.com"})
			assert.NoError(t, err)
			refs[i] = ref
		}(i)
	}
	wg.Wait()

	for _, ref := range refs {
		assert.Equal(t, refs[0], ref)
	}
}
