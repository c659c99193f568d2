package identityinfra

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/kyfplatform/kyf-api/pkg/errx"
	"github.com/kyfplatform/kyf-api/pkg/iam/identity"
	"github.com/kyfplatform/kyf-api/pkg/kernel"
)

// PostgresIdentityStore implements identity.Store against the users and
// admins tables.
type PostgresIdentityStore struct {
	db *sqlx.DB
}

// NewPostgresIdentityStore creates a new store instance.
func NewPostgresIdentityStore(db *sqlx.DB) identity.Store {
	return &PostgresIdentityStore{db: db}
}

type userRow struct {
	ID            string         `db:"id"`
	Email         sql.NullString `db:"email"`
	Phone         sql.NullString `db:"phone"`
	Username      sql.NullString `db:"username"`
	City          sql.NullString `db:"city"`
	IsAdmin       bool           `db:"is_admin"`
	IsExpert      bool           `db:"is_expert"`
	IsActive      bool           `db:"is_active"`
	IsMFAEnabled  bool           `db:"is_mfa_enabled"`
	MFASecretHash sql.NullString `db:"mfa_secret_hash"`
	RefreshToken  sql.NullString `db:"refresh_token"`
}

func (r userRow) toDomain() *identity.Record {
	return &identity.Record{
		ID:            kernel.NewUserID(r.ID),
		Email:         r.Email.String,
		Phone:         r.Phone.String,
		Username:      r.Username.String,
		City:          r.City.String,
		IsAdmin:       r.IsAdmin,
		IsExpert:      r.IsExpert,
		IsActive:      r.IsActive,
		IsMFAEnabled:  r.IsMFAEnabled,
		MFASecretHash: r.MFASecretHash.String,
		RefreshToken:  r.RefreshToken.String,
	}
}

const userColumns = `id, email, phone, username, city, is_admin, is_expert,
		is_active, is_mfa_enabled, mfa_secret_hash, refresh_token`

// FindByID looks up a user by id.
func (s *PostgresIdentityStore) FindByID(ctx context.Context, id kernel.UserID) (*identity.Record, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	err := s.db.GetContext(ctx, &row, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identity.ErrSubjectNotFound().WithDetail("user_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find user by id", errx.TypeInternal)
	}
	return row.toDomain(), nil
}

// FindByChannel looks up a user by email address or phone number.
func (s *PostgresIdentityStore) FindByChannel(ctx context.Context, channel kernel.Channel) (*identity.Record, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 OR phone = $1`
	err := s.db.GetContext(ctx, &row, query, channel.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identity.ErrSubjectNotFound().WithDetail("channel", channel.String())
		}
		return nil, errx.Wrap(err, "failed to find user by channel", errx.TypeInternal)
	}
	return row.toDomain(), nil
}

// FindAdminByID looks up an administrator entry by user id.
func (s *PostgresIdentityStore) FindAdminByID(ctx context.Context, id kernel.UserID) (*identity.AdminRecord, error) {
	var admin identity.AdminRecord
	query := `SELECT id, email, role, created_at FROM admins WHERE id = $1`
	err := s.db.GetContext(ctx, &admin, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identity.ErrAdminNotFound().WithDetail("user_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find admin by id", errx.TypeInternal)
	}
	return &admin, nil
}

// MarkChannelVerified stamps the verification time on whichever channel
// column matches the contact.
func (s *PostgresIdentityStore) MarkChannelVerified(ctx context.Context, channel kernel.Channel) error {
	query := `
		UPDATE users SET
			email_verified_at = CASE WHEN email = $1 THEN NOW() ELSE email_verified_at END,
			phone_verified_at = CASE WHEN phone = $1 THEN NOW() ELSE phone_verified_at END
		WHERE email = $1 OR phone = $1`

	result, err := s.db.ExecContext(ctx, query, channel.String())
	if err != nil {
		return errx.Wrap(err, "failed to mark channel verified", errx.TypeInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rows == 0 {
		return identity.ErrSubjectNotFound().WithDetail("channel", channel.String())
	}
	return nil
}

// SaveRefreshToken overwrites the user's single refresh-token slot. The
// previous token, and with it any other device's session, stops refreshing.
func (s *PostgresIdentityStore) SaveRefreshToken(ctx context.Context, id kernel.UserID, token string) error {
	query := `UPDATE users SET refresh_token = $2 WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id.String(), token)
	if err != nil {
		return errx.Wrap(err, "failed to save refresh token", errx.TypeInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rows == 0 {
		return identity.ErrSubjectNotFound().WithDetail("user_id", id.String())
	}
	return nil
}
