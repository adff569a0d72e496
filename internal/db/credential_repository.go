package db

import (
	"database/sql"
	"fmt"
	"time"

	"outreach-server/internal/models"
	"outreach-server/pkg/utils"

	"github.com/google/uuid"
)

// CredentialRepository defines the interface for OAuth credential storage
type CredentialRepository interface {
	GetByUserID(userID string) (*models.Credential, error)
	GetByEmail(email string) (*models.Credential, error)
	Upsert(cred *models.Credential) error
	UpdateAccessToken(userID, accessToken string, expiresAt int64) error
	ExpireAccessToken(userID string) error
}

// credentialRepository implements CredentialRepository over sqlite.
// Refresh tokens are encrypted at rest with AES-256-GCM when a key is set.
type credentialRepository struct {
	db            *sql.DB
	encryptionKey string
}

// NewCredentialRepository creates a new CredentialRepository. An empty
// encryption key stores refresh tokens in plaintext.
func NewCredentialRepository(db *sql.DB, encryptionKey string) CredentialRepository {
	return &credentialRepository{db: db, encryptionKey: encryptionKey}
}

func (r *credentialRepository) encryptRefreshToken(token string) (string, error) {
	if r.encryptionKey == "" {
		return token, nil
	}
	return utils.EncryptToken(token, r.encryptionKey)
}

func (r *credentialRepository) decryptRefreshToken(stored string) (string, error) {
	if r.encryptionKey == "" {
		return stored, nil
	}
	return utils.DecryptToken(stored, r.encryptionKey)
}

// GetByUserID retrieves a credential by user id
func (r *credentialRepository) GetByUserID(userID string) (*models.Credential, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}
	return r.getOne("id = ?", userID)
}

// GetByEmail retrieves a credential by the user's email
func (r *credentialRepository) GetByEmail(email string) (*models.Credential, error) {
	if email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}
	return r.getOne("email = ?", email)
}

func (r *credentialRepository) getOne(where string, arg interface{}) (*models.Credential, error) {
	query := `
		SELECT id, email, name, access_token, refresh_token, token_expires_at, created_at, updated_at
		FROM users
		WHERE ` + where

	cred := &models.Credential{}
	var name, accessToken, refreshToken sql.NullString
	err := r.db.QueryRow(query, arg).Scan(
		&cred.UserID,
		&cred.Email,
		&name,
		&accessToken,
		&refreshToken,
		&cred.TokenExpiresAt,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	cred.Name = name.String
	cred.AccessToken = accessToken.String

	decrypted, err := r.decryptRefreshToken(refreshToken.String)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}
	cred.RefreshToken = decrypted

	return cred, nil
}

// Upsert inserts or updates a credential keyed by email. Concurrent writers
// are allowed; last write wins since tokens are monotonically refreshed. An
// existing refresh token is preserved when the new credential carries none
// (Google only returns it on the first consent).
func (r *credentialRepository) Upsert(cred *models.Credential) error {
	if cred == nil {
		return fmt.Errorf("credential cannot be nil")
	}
	if cred.Email == "" {
		return fmt.Errorf("credential email is required")
	}

	if cred.UserID == "" {
		cred.UserID = uuid.New().String()
	}

	now := time.Now().Unix()
	if cred.CreatedAt == 0 {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	encryptedRefresh, err := r.encryptRefreshToken(cred.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	query := `
		INSERT INTO users (id, email, name, access_token, refresh_token, token_expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			name = excluded.name,
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token != '' THEN excluded.refresh_token ELSE users.refresh_token END,
			token_expires_at = excluded.token_expires_at,
			updated_at = excluded.updated_at
	`

	_, err = r.db.Exec(query,
		cred.UserID,
		cred.Email,
		cred.Name,
		cred.AccessToken,
		encryptedRefresh,
		cred.TokenExpiresAt,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}

	// The row keeps its original id on conflict; read it back so callers see
	// the persisted user id
	stored, err := r.GetByEmail(cred.Email)
	if err != nil {
		return err
	}
	cred.UserID = stored.UserID

	return nil
}

// UpdateAccessToken stores a freshly refreshed access token and its expiry
func (r *credentialRepository) UpdateAccessToken(userID, accessToken string, expiresAt int64) error {
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}

	result, err := r.db.Exec(
		"UPDATE users SET access_token = ?, token_expires_at = ?, updated_at = ? WHERE id = ?",
		accessToken, expiresAt, time.Now().Unix(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update access token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCredentialNotFound
	}

	return nil
}

// ExpireAccessToken invalidates the stored access token so the next
// scheduler cycle refreshes before sending. Used after a 401 from the mail
// API despite an apparently fresh token.
func (r *credentialRepository) ExpireAccessToken(userID string) error {
	return r.UpdateAccessToken(userID, "", 0)
}
