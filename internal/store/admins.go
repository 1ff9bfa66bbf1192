package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/cpctprep/internal/model"
)

// CreateAdmin stores a new admin account. Usernames are unique.
func (s *Store) CreateAdmin(ctx context.Context, a model.Admin) (model.Admin, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admins (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.Username, a.PasswordHash, formatTime(a.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return model.Admin{}, ErrConflict
		}
		return model.Admin{}, err
	}
	return a, nil
}

// GetAdminByUsername loads an admin account.
func (s *Store) GetAdminByUsername(ctx context.Context, username string) (model.Admin, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at, last_login FROM admins WHERE username = ?`, username)
	var a model.Admin
	var createdAt string
	var lastLogin sql.NullString
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &createdAt, &lastLogin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Admin{}, ErrNotFound
		}
		return model.Admin{}, err
	}
	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Admin{}, err
	}
	if lastLogin.Valid {
		t, err := parseTime(lastLogin.String)
		if err != nil {
			return model.Admin{}, err
		}
		a.LastLogin = &t
	}
	return a, nil
}

// SetAdminLastLogin records a successful login.
func (s *Store) SetAdminLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE admins SET last_login = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
