package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/msds/internal/model"
	"github.com/erazemk/msds/internal/store"
)

// SeedData describes users, catalog items and holdings to load into a
// database. Example:
//
//	[[items]]
//	name = "Rope"
//
//	[[users]]
//	username = "alice"
//	password = "correct-horse"
//
//	[users.profile]
//	first_name = "Ana"
//	rank = "Sergeant"
//
//	[[users.inventory]]
//	item = "Rope"
//	quantity = "2"
type SeedData struct {
	Items []SeedItem `toml:"items"`
	Users []SeedUser `toml:"users"`
}

// SeedItem is a catalog entry.
type SeedItem struct {
	Name string `toml:"name"`
}

// SeedUser is an account with its profile and holdings.
type SeedUser struct {
	Username  string            `toml:"username"`
	Password  string            `toml:"password"`
	Profile   model.AccountInfo `toml:"profile"`
	Inventory []SeedHolding     `toml:"inventory"`
}

// SeedHolding is one inventory line.
type SeedHolding struct {
	Item     string `toml:"item"`
	Quantity string `toml:"quantity"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*SeedData, error) {
	var data SeedData
	md, err := toml.DecodeFile(path, &data)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("reading seed file: unknown key %s", undecoded[0])
	}
	return &data, nil
}

// Seed loads data into the database. Items are added to the catalog and users
// that do not exist yet are created. Existing users keep their password but
// get the seeded profile. Holdings are set for every seeded user. It returns
// the number of users created.
func Seed(ctx context.Context, db *sql.DB, data *SeedData) (int, error) {
	for _, item := range data.Items {
		if item.Name == "" {
			return 0, fmt.Errorf("seed item with empty name")
		}
		if _, err := store.CreateItem(ctx, db, item.Name); err != nil {
			return 0, err
		}
	}

	created := 0
	for _, u := range data.Users {
		user, err := store.GetUserByUsername(ctx, db, u.Username)
		if err != nil {
			return created, err
		}

		if user != nil {
			if err := store.UpdateProfile(ctx, db, user.ID, u.Profile); err != nil {
				return created, fmt.Errorf("seeding user %s: %w", u.Username, err)
			}
			slog.Info("seed user exists, profile updated", "user", u.Username)
		} else {
			user, err = CreateUser(ctx, db, u.Username, u.Password, u.Profile)
			if err != nil {
				return created, fmt.Errorf("seeding user %s: %w", u.Username, err)
			}
			created++
		}

		for _, h := range u.Inventory {
			if err := store.SetHolding(ctx, db, user.ID, h.Item, model.Quantity(h.Quantity)); err != nil {
				return created, fmt.Errorf("seeding holding %s for %s: %w", h.Item, u.Username, err)
			}
		}
	}
	return created, nil
}

// CreateUser hashes password with bcrypt and creates the user.
func CreateUser(ctx context.Context, db *sql.DB, username, password string, profile model.AccountInfo) (*model.User, error) {
	if username == "" {
		return nil, fmt.Errorf("username must not be empty")
	}
	if err := model.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return store.CreateUser(ctx, db, username, string(hash), profile)
}

// SetPassword replaces a user's password with the bcrypt hash of password.
func SetPassword(ctx context.Context, db *sql.DB, userID int64, password string) error {
	if err := model.ValidatePassword(password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	return store.UpdateUserPassword(ctx, db, userID, string(hash))
}

// GeneratePassword creates a random password of the given length.
func GeneratePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
