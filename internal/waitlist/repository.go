// Package waitlist implements the waitlist signup API: email registration,
// referral code validation and generation, and signup event publication.
package waitlist

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// Entry is one waitlist signup.
type Entry struct {
	ID        string
	Email     string
	UsedCode  *string
	CreatedAt time.Time
}

// ReferralCode is one referral code row.
type ReferralCode struct {
	Code    string
	OwnerID string
	Uses    int
}

// NewPool creates a pgx connection pool and verifies connectivity.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(databaseURL string) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	d, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Repository runs waitlist queries against Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a repository over an established pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping verifies database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// EmailExists reports whether an email is already on the waitlist.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM waitlist WHERE email = $1)`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

// InsertEntry inserts a waitlist signup and returns the stored row.
func (r *Repository) InsertEntry(ctx context.Context, email string, usedCode *string) (Entry, error) {
	var e Entry
	err := r.pool.QueryRow(ctx,
		`INSERT INTO waitlist (email, used_code) VALUES ($1, $2)
		 RETURNING id, email, used_code, created_at`,
		email, usedCode,
	).Scan(&e.ID, &e.Email, &e.UsedCode, &e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("insert waitlist entry: %w", err)
	}
	return e, nil
}

// GetReferralCode looks up a referral code. ErrNotFound when absent.
func (r *Repository) GetReferralCode(ctx context.Context, code string) (ReferralCode, error) {
	var rc ReferralCode
	err := r.pool.QueryRow(ctx,
		`SELECT code, owner_waitlist_id, uses FROM referral_codes WHERE code = $1`, code,
	).Scan(&rc.Code, &rc.OwnerID, &rc.Uses)
	if errors.Is(err, pgx.ErrNoRows) {
		return ReferralCode{}, ErrNotFound
	}
	if err != nil {
		return ReferralCode{}, fmt.Errorf("get referral code: %w", err)
	}
	return rc, nil
}

// CodeExists reports whether a referral code is already taken.
func (r *Repository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM referral_codes WHERE code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check referral code: %w", err)
	}
	return exists, nil
}

// IncrementReferralUses bumps a referral code's use counter.
func (r *Repository) IncrementReferralUses(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE referral_codes SET uses = uses + 1 WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("increment referral uses: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertReferralCode stores a freshly generated code for a waitlist entry.
func (r *Repository) InsertReferralCode(ctx context.Context, code, ownerID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO referral_codes (code, owner_waitlist_id, uses) VALUES ($1, $2, 0)`,
		code, ownerID)
	if err != nil {
		return fmt.Errorf("insert referral code: %w", err)
	}
	return nil
}
