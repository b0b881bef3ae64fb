package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/cartermitchell13/flow-seo/core"

	_ "modernc.org/sqlite"
)

//go:embed schema/sqlite/schema.sql
var sqliteSchema string

// SQLiteStore is the embedded file-based backend, used for local
// development and tests.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// initSchema is idempotent; it runs on every construction.
func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(sqliteSchema)
	return err
}

func (s *SQLiteStore) UpsertSiteAuthorization(ctx context.Context, siteID, accessToken string) error {
	query := `
		INSERT INTO site_authorizations (site_id, access_token, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (site_id) DO UPDATE SET
			access_token = excluded.access_token,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, siteID, accessToken, time.Now().Unix())
	return err
}

func (s *SQLiteStore) UpsertUserAuthorization(ctx context.Context, userID, accessToken string) error {
	query := `
		INSERT INTO user_authorizations (user_id, access_token, created_at)
		VALUES (?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, userID, accessToken, time.Now().Unix())
	return err
}

func (s *SQLiteStore) AccessTokenBySite(ctx context.Context, siteID string) (string, error) {
	query := `SELECT access_token FROM site_authorizations WHERE site_id = ?`

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

func (s *SQLiteStore) AccessTokenByUser(ctx context.Context, userID string) (string, error) {
	// Repeated logins accumulate rows; the latest insert wins.
	query := `
		SELECT access_token FROM user_authorizations
		WHERE user_id = ?
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

func (s *SQLiteStore) SaveAPIKey(ctx context.Context, userID, siteID string, provider core.AIProvider, encryptedKey string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	keyQuery := `
		INSERT INTO api_keys (user_id, site_id, provider, encrypted_key, created_at)
		VALUES (?, ?, ?, ?, ?)
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
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, site_id) DO UPDATE SET
			provider = excluded.provider
	`
	_, err = tx.ExecContext(ctx, selectionQuery, userID, siteID, string(provider))
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) APIKey(ctx context.Context, userID, siteID string, provider core.AIProvider) (string, error) {
	query := `
		SELECT encrypted_key FROM api_keys
		WHERE user_id = ? AND site_id = ? AND provider = ?
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

func (s *SQLiteStore) DeleteAPIKey(ctx context.Context, userID, siteID string, provider core.AIProvider) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM api_keys WHERE user_id = ? AND site_id = ? AND provider = ?`,
		userID, siteID, string(provider),
	)
	if err != nil {
		return err
	}

	// No selection may point at a key that no longer exists.
	_, err = tx.ExecContext(ctx,
		`DELETE FROM provider_selections WHERE user_id = ? AND site_id = ? AND provider = ?`,
		userID, siteID, string(provider),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) SelectedProvider(ctx context.Context, userID, siteID string) (core.AIProvider, error) {
	query := `
		SELECT provider FROM provider_selections
		WHERE user_id = ? AND site_id = ?
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
