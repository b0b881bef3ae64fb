package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/cartermitchell13/flow-seo/core"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed schema/postgres/schema.sql
var postgresSchema string

// PostgresStore is the managed network backend, used in production. It
// implements the same CredentialStore contract as SQLiteStore.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := &PostgresStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) initSchema() error {
	_, err := s.db.Exec(postgresSchema)
	return err
}

func (s *PostgresStore) UpsertSiteAuthorization(ctx context.Context, siteID, accessToken string) error {
	query := `
		INSERT INTO site_authorizations (site_id, access_token, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (site_id) DO UPDATE SET
			access_token = excluded.access_token,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, siteID, accessToken, time.Now().Unix())
	return err
}

func (s *PostgresStore) UpsertUserAuthorization(ctx context.Context, userID, accessToken string) error {
	query := `
		INSERT INTO user_authorizations (user_id, access_token, created_at)
		VALUES ($1, $2, $3)
	`
	_, err := s.db.ExecContext(ctx, query, userID, accessToken, time.Now().Unix())
	return err
}

func (s *PostgresStore) AccessTokenBySite(ctx context.Context, siteID string) (string, error) {
	query := `SELECT access_token FROM site_authorizations WHERE site_id = $1`

	var token string
	err := s.db.QueryRowContext(ctx, query, siteID).Scan(&token)
	if err == sql.ErrNoRows {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	return token, nil
}

func (s *PostgresStore) AccessTokenByUser(ctx context.Context, userID string) (string, error) {
	query := `
		SELECT access_token FROM user_authorizations
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT 1
	`

	var token string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&token)
	if err == sql.ErrNoRows {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	return token, nil
}

func (s *PostgresStore) SaveAPIKey(ctx context.Context, userID, siteID string, provider core.AIProvider, encryptedKey string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	keyQuery := `
		INSERT INTO api_keys (user_id, site_id, provider, encrypted_key, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, site_id, provider) DO UPDATE SET
			encrypted_key = excluded.encrypted_key,
			created_at = excluded.created_at
	`
	_, err = tx.ExecContext(ctx, keyQuery, userID, siteID, string(provider), encryptedKey, time.Now().Unix())
	if err != nil {
		return err
	}

	selectionQuery := `
		INSERT INTO provider_selections (user_id, site_id, provider)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, site_id) DO UPDATE SET
			provider = excluded.provider
	`
	_, err = tx.ExecContext(ctx, selectionQuery, userID, siteID, string(provider))
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) APIKey(ctx context.Context, userID, siteID string, provider core.AIProvider) (string, error) {
	query := `
		SELECT encrypted_key FROM api_keys
		WHERE user_id = $1 AND site_id = $2 AND provider = $3
	`

	var encryptedKey string
	err := s.db.QueryRowContext(ctx, query, userID, siteID, string(provider)).Scan(&encryptedKey)
	if err == sql.ErrNoRows {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	return encryptedKey, nil
}

func (s *PostgresStore) DeleteAPIKey(ctx context.Context, userID, siteID string, provider core.AIProvider) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM api_keys WHERE user_id = $1 AND site_id = $2 AND provider = $3`,
		userID, siteID, string(provider),
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM provider_selections WHERE user_id = $1 AND site_id = $2 AND provider = $3`,
		userID, siteID, string(provider),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) SelectedProvider(ctx context.Context, userID, siteID string) (core.AIProvider, error) {
	query := `
		SELECT provider FROM provider_selections
		WHERE user_id = $1 AND site_id = $2
	`

	var provider string
	err := s.db.QueryRowContext(ctx, query, userID, siteID).Scan(&provider)
	if err == sql.ErrNoRows {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	return core.AIProvider(provider), nil
}
