package repository

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// DefaultScope is used when a repository is created without a scope
const DefaultScope = "default"

// ClientTokenModel is the Bun model for client scoped token slots.
type ClientTokenModel struct {
	bun.BaseModel `bun:"table:client_tokens"`

	Scope     string    `bun:"scope,pk"`
	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// TokenRepository implements authflow.Store on top of a SQL table. Each
// client gets its own scope so several visitors can share one database.
type TokenRepository struct {
	db    bun.IDB
	scope string
	now   func() time.Time
}

// TokenRepositoryOption customizes a TokenRepository
type TokenRepositoryOption func(*TokenRepository)

// WithScope sets the client scope
func WithScope(scope string) TokenRepositoryOption {
	return func(r *TokenRepository) {
		if scope != "" {
			r.scope = scope
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) TokenRepositoryOption {
	return func(r *TokenRepository) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewTokenRepository creates a new repository.
func NewTokenRepository(db bun.IDB, opts ...TokenRepositoryOption) *TokenRepository {
	r := &TokenRepository{
		db:    db,
		scope: DefaultScope,
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Scope returns the client scope
func (r *TokenRepository) Scope() string {
	return r.scope
}

// WithTx returns a copy of the repository bound to tx
func (r *TokenRepository) WithTx(tx bun.IDB) *TokenRepository {
	clone := *r
	clone.db = tx
	return &clone
}

// CreateTable creates the client_tokens table if needed
func (r *TokenRepository) CreateTable(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*ClientTokenModel)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create client_tokens table")
	}
	return nil
}

// Get implements authflow.Store.
func (r *TokenRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var model ClientTokenModel
	err := r.db.NewSelect().
		Model(&model).
		Where("? = ?", bun.Ident("scope"), r.scope).
		Where("? = ?", bun.Ident("key"), key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read client token").
			WithMetadata(map[string]any{"scope": r.scope, "key": key})
	}
	return model.Value, true, nil
}

// Set implements authflow.Store.
func (r *TokenRepository) Set(ctx context.Context, key, value string) error {
	model := &ClientTokenModel{
		Scope:     r.scope,
		Key:       key,
		Value:     value,
		UpdatedAt: r.now(),
	}

	_, err := r.db.NewInsert().
		Model(model).
		On("CONFLICT (scope, key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write client token").
			WithMetadata(map[string]any{"scope": r.scope, "key": key})
	}
	return nil
}

// Remove implements authflow.Store. Removing a missing key is not an error.
func (r *TokenRepository) Remove(ctx context.Context, key string) error {
	_, err := r.db.NewDelete().
		Model((*ClientTokenModel)(nil)).
		Where("? = ?", bun.Ident("scope"), r.scope).
		Where("? = ?", bun.Ident("key"), key).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove client token").
			WithMetadata(map[string]any{"scope": r.scope, "key": key})
	}
	return nil
}

// Purge removes every slot of the scope older than before
func (r *TokenRepository) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*ClientTokenModel)(nil)).
		Where("? = ?", bun.Ident("scope"), r.scope).
		Where("? < ?", bun.Ident("updated_at"), before).
		Exec(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to purge client tokens")
	}
	return res.RowsAffected()
}
