package settings

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// fakeDB serves setting_journals rows from a map and counts queries, so tests
// can tell a cache hit from a database round trip.
type fakeDB struct {
	mappings map[string]int64
	queries  int
}

func (d *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (d *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (d *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	d.queries++
	key := args[0].(string) + "/" + args[1].(string)
	id, ok := d.mappings[key]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: id}
}

type fakeRow struct {
	value int64
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.value
	return nil
}

func newCachedResolver(t *testing.T, db *fakeDB) *Resolver {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewResolver(db, client)
}

func TestResolveAccountReadsThroughCache(t *testing.T) {
	db := &fakeDB{mappings: map[string]int64{"transfer item/inventory in distribution": 210}}
	resolver := newCachedResolver(t, db)
	ctx := context.Background()

	id, err := resolver.ResolveAccount(ctx, "transfer item", "inventory in distribution")
	require.NoError(t, err)
	require.Equal(t, int64(210), id)
	require.Equal(t, 1, db.queries)

	// Second lookup is served from the cache.
	id, err = resolver.ResolveAccount(ctx, "transfer item", "inventory in distribution")
	require.NoError(t, err)
	require.Equal(t, int64(210), id)
	require.Equal(t, 1, db.queries)
}

func TestInvalidateDropsCachedMapping(t *testing.T) {
	db := &fakeDB{mappings: map[string]int64{"transfer item/inventory in distribution": 210}}
	resolver := newCachedResolver(t, db)
	ctx := context.Background()

	_, err := resolver.ResolveAccount(ctx, "transfer item", "inventory in distribution")
	require.NoError(t, err)

	db.mappings["transfer item/inventory in distribution"] = 310
	require.NoError(t, resolver.Invalidate(ctx, "transfer item", "inventory in distribution"))

	id, err := resolver.ResolveAccount(ctx, "transfer item", "inventory in distribution")
	require.NoError(t, err)
	require.Equal(t, int64(310), id)
	require.Equal(t, 2, db.queries)
}

func TestResolveAccountMissingMapping(t *testing.T) {
	resolver := newCachedResolver(t, &fakeDB{mappings: map[string]int64{}})
	_, err := resolver.ResolveAccount(context.Background(), "transfer item", "difference stock expenses")
	require.ErrorIs(t, err, ErrMappingNotFound)
}

func TestResolveAccountWithoutCache(t *testing.T) {
	db := &fakeDB{mappings: map[string]int64{"transfer item/inventory in distribution": 210}}
	resolver := NewResolver(db, nil)
	ctx := context.Background()

	for range 2 {
		id, err := resolver.ResolveAccount(ctx, "transfer item", "inventory in distribution")
		require.NoError(t, err)
		require.Equal(t, int64(210), id)
	}
	require.Equal(t, 2, db.queries)
}

func TestResolveAccountRequiresKey(t *testing.T) {
	resolver := NewResolver(&fakeDB{}, nil)
	_, err := resolver.ResolveAccount(context.Background(), "", "inventory in distribution")
	require.Error(t, err)
}
