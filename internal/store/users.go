// Package store holds the reference server's SQL queries. Every function takes
// the database handle explicitly; lookups that find nothing return nil, nil.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/msds/internal/model"
)

const userColumns = `id, username, password_hash,
	first_name, last_name, gender, dob, rank, contact, address, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	u := &model.User{}
	p := &u.Profile
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash,
		&p.FirstName, &p.LastName, &p.Gender, &p.DOB, &p.Rank, &p.Contact, &p.Address, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser creates a new user with the given profile.
func CreateUser(ctx context.Context, db *sql.DB, username, passwordHash string, profile model.AccountInfo) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, first_name, last_name, gender, dob, rank, contact, address)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		username, passwordHash,
		profile.FirstName, profile.LastName, profile.Gender, profile.DOB, profile.Rank, profile.Contact, profile.Address,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns a user by username.
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all users ordered by ID.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateProfile replaces a user's personnel record.
func UpdateProfile(ctx context.Context, db *sql.DB, id int64, profile model.AccountInfo) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, gender = ?, dob = ?, rank = ?, contact = ?, address = ?
		 WHERE id = ?`,
		profile.FirstName, profile.LastName, profile.Gender, profile.DOB, profile.Rank, profile.Contact, profile.Address, id,
	)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser removes a user together with their sessions and holdings.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}
