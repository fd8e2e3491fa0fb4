package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// Manager hands out token repositories sharing one database
type Manager struct {
	db *bun.DB
}

func NewRepositoryManager(db *bun.DB) *Manager {
	return &Manager{db: db}
}

func (m Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}
	return nil
}

func (m Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// Migrate creates the tables the repositories need
func (m Manager) Migrate(ctx context.Context) error {
	return NewTokenRepository(m.db).CreateTable(ctx)
}

func (m Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// Tokens returns the token store of a client scope
func (m Manager) Tokens(scope string) *TokenRepository {
	return NewTokenRepository(m.db, WithScope(scope))
}
