package store

import (
	"database/sql"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// GetToken retrieves the stored OAuth token for a provider.
func (db *DB) GetToken(provider string) (*oauth2.Token, error) {
	row := db.QueryRow(`
		SELECT access_token, refresh_token, expires_at
		FROM provider_tokens
		WHERE provider = ?
	`, provider)

	var tok oauth2.Token
	var expiresAt int64
	err := row.Scan(&tok.AccessToken, &tok.RefreshToken, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}

	tok.Expiry = time.Unix(expiresAt, 0)
	return &tok, nil
}

// SaveToken stores or updates a provider's OAuth token.
func (db *DB) SaveToken(provider string, tok *oauth2.Token) error {
	_, err := db.execRetry(`
		INSERT INTO provider_tokens (provider, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, provider, tok.AccessToken, tok.RefreshToken, tok.Expiry.Unix())
	return err
}
