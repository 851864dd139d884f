package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// ErrMappingNotFound indicates there is no account configured for the key.
var ErrMappingNotFound = errors.New("settings: journal mapping not found")

const cacheTTL = 10 * time.Minute

// DB is the pgx subset used by the resolver; satisfied by a pool or a tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Resolver resolves setting-journal mappings, with a Redis read-through cache.
// The cache client may be nil; resolution then always hits the database.
type Resolver struct {
	pool  DB
	cache *redis.Client
}

// NewResolver constructs a Resolver.
func NewResolver(pool DB, cache *redis.Client) *Resolver {
	return &Resolver{pool: pool, cache: cache}
}

// ResolveAccount returns the chart_of_account_id configured for (feature, name).
func (r *Resolver) ResolveAccount(ctx context.Context, feature, name string) (int64, error) {
	if feature == "" || name == "" {
		return 0, errors.New("settings: feature and name required")
	}
	key := cacheKey(feature, name)
	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, key).Int64(); err == nil {
			return cached, nil
		}
	}
	var accountID int64
	err := r.pool.QueryRow(ctx,
		`SELECT chart_of_account_id FROM setting_journals WHERE feature = $1 AND name = $2`,
		feature, name).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrMappingNotFound
		}
		return 0, err
	}
	if r.cache != nil {
		_ = r.cache.Set(ctx, key, strconv.FormatInt(accountID, 10), cacheTTL).Err()
	}
	return accountID, nil
}

// Invalidate drops the cached mapping, used after a mapping is re-configured.
func (r *Resolver) Invalidate(ctx context.Context, feature, name string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Del(ctx, cacheKey(feature, name)).Err()
}

func cacheKey(feature, name string) string {
	return fmt.Sprintf("settings:journal:%s:%s", feature, name)
}
