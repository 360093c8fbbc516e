package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository persists staff identities and refresh tokens.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpsertStaff ensures a staff record exists with the given role.
func (r *Repository) UpsertStaff(ctx context.Context, staffID, name, role string) error {
	if staffID == "" {
		return errors.New("staff id required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO staff (staff_id, name, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (staff_id) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role
	`, staffID, name, role)
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, staffID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (staff_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, staffID, token, expiresAt)
	return err
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}

// RefreshTokenActive reports whether the token is stored, unrevoked and unexpired.
func (r *Repository) RefreshTokenActive(ctx context.Context, token string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM refresh_tokens
		WHERE token = $1 AND revoked = FALSE AND expires_at > NOW()
	`, token).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
