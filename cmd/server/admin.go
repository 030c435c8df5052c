package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/erazemk/msds/internal/db"
	"github.com/erazemk/msds/internal/model"
	"github.com/erazemk/msds/internal/server"
	"github.com/erazemk/msds/internal/store"
)

// adminCommand runs one maintenance subcommand against an existing database.
type adminCommand func(args []string, out io.Writer) error

var adminCommands = map[string]adminCommand{
	"users":    cmdUsers,
	"passwd":   cmdPasswd,
	"deluser":  cmdDeleteUser,
	"items":    cmdItems,
	"holding":  cmdHolding,
	"requests": cmdRequests,
	"logs":     cmdLogs,
}

const timeFormat = "2006-01-02 15:04:05"

func newAdminFlags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet("msds-server "+name, flag.ContinueOnError)
	dbPath := new(string)
	fs.StringVar(dbPath, "db", "msds.sqlite3", "SQLite database path")
	fs.StringVar(dbPath, "d", "msds.sqlite3", "SQLite database path")
	return fs, dbPath
}

// withDatabase opens an existing database for fn. It never creates one.
func withDatabase(path string, fn func(ctx context.Context, database *sql.DB) error) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	database, err := db.Open(path)
	if err != nil {
		return err
	}
	defer database.Close()

	return fn(context.Background(), database)
}

func cmdUsers(args []string, out io.Writer) error {
	fs, dbPath := newAdminFlags("users")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withDatabase(*dbPath, func(ctx context.Context, database *sql.DB) error {
		return listUsers(ctx, database, out)
	})
}

func cmdPasswd(args []string, out io.Writer) error {
	fs, dbPath := newAdminFlags("passwd")
	username := fs.String("user", "", "account to reset")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withDatabase(*dbPath, func(ctx context.Context, database *sql.DB) error {
		return resetPassword(ctx, database, out, *username)
	})
}

func cmdDeleteUser(args []string, out io.Writer) error {
	fs, dbPath := newAdminFlags("deluser")
	username := fs.String("user", "", "account to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withDatabase(*dbPath, func(ctx context.Context, database *sql.DB) error {
		return deleteUser(ctx, database, out, *username)
	})
}

func cmdItems(args []string, out io.Writer) error {
	fs, dbPath := newAdminFlags("items")
	remove := fs.String("remove", "", "remove this item from the catalog")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withDatabase(*dbPath, func(ctx context.Context, database *sql.DB) error {
		if *remove != "" {
			return removeItem(ctx, database, out, *remove)
		}
		return listItems(ctx, database, out)
	})
}

func cmdHolding(args []string, out io.Writer) error {
	fs, dbPath := newAdminFlags("holding")
	username := fs.String("user", "", "account holding the item")
	item := fs.String("item", "", "item name")
	quantity := fs.String("qty", "", "quantity to set")
	remove := fs.Bool("remove", false, "remove the holding")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withDatabase(*dbPath, func(ctx context.Context, database *sql.DB) error {
		return setHolding(ctx, database, out, *username, *item, model.Quantity(*quantity), *remove)
	})
}

func cmdRequests(args []string, out io.Writer) error {
	fs, dbPath := newAdminFlags("requests")
	username := fs.String("user", "", "only this account's requests")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withDatabase(*dbPath, func(ctx context.Context, database *sql.DB) error {
		return listRequests(ctx, database, out, *username)
	})
}

func cmdLogs(args []string, out io.Writer) error {
	fs, dbPath := newAdminFlags("logs")
	username := fs.String("user", "", "account whose activity to show")
	limit := fs.Int("n", 0, "show at most this many entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withDatabase(*dbPath, func(ctx context.Context, database *sql.DB) error {
		return listLogs(ctx, database, out, *username, *limit)
	})
}

func lookupUser(ctx context.Context, database *sql.DB, username string) (*model.User, error) {
	if username == "" {
		return nil, errors.New("-user is required")
	}
	user, err := store.GetUserByUsername(ctx, database, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("no such user: %s", username)
	}
	return user, nil
}

func listUsers(ctx context.Context, database *sql.DB, out io.Writer) error {
	users, err := store.ListUsers(ctx, database)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tNAME\tRANK\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Profile.FullName(), u.Profile.Rank, u.CreatedAt.Format(timeFormat))
	}
	return tw.Flush()
}

func resetPassword(ctx context.Context, database *sql.DB, out io.Writer, username string) error {
	user, err := lookupUser(ctx, database, username)
	if err != nil {
		return err
	}

	password, err := server.GeneratePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}
	if err := server.SetPassword(ctx, database, user.ID, password); err != nil {
		return err
	}

	fmt.Fprintf(out, "New password for %s: %s\n", user.Username, password)
	return nil
}

func deleteUser(ctx context.Context, database *sql.DB, out io.Writer, username string) error {
	user, err := lookupUser(ctx, database, username)
	if err != nil {
		return err
	}
	if err := store.DeleteUser(ctx, database, user.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted user %s.\n", user.Username)
	return nil
}

func listItems(ctx context.Context, database *sql.DB, out io.Writer) error {
	items, err := store.ListItems(ctx, database)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tADDED")
	for _, item := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", item.ID, item.Name, item.CreatedAt.Format(timeFormat))
	}
	return tw.Flush()
}

func removeItem(ctx context.Context, database *sql.DB, out io.Writer, name string) error {
	item, err := store.GetItemByName(ctx, database, name)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("no such item: %s", name)
	}
	if err := store.DeleteItem(ctx, database, item.Name); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %s from the catalog.\n", item.Name)
	return nil
}

// setHolding sets or removes one holding and prints the user's inventory.
func setHolding(ctx context.Context, database *sql.DB, out io.Writer, username, item string, quantity model.Quantity, remove bool) error {
	user, err := lookupUser(ctx, database, username)
	if err != nil {
		return err
	}
	if item == "" {
		return errors.New("-item is required")
	}

	switch {
	case remove:
		err = store.RemoveHolding(ctx, database, user.ID, item)
	case quantity == "":
		return errors.New("-qty or -remove is required")
	default:
		err = store.SetHolding(ctx, database, user.ID, item, quantity)
	}
	if err != nil {
		return err
	}

	items, err := store.ListInventory(ctx, database, user.Username)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s holds: %s\n", user.Username, model.SummarizeInventory(items))
	return nil
}

func listRequests(ctx context.Context, database *sql.DB, out io.Writer, username string) error {
	requests, err := store.ListRequests(ctx, database, username)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tITEM\tQUANTITY\tREQUESTED")
	for _, r := range requests {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Username, r.ItemName, r.Quantity, r.RequestedAt.Format(timeFormat))
	}
	return tw.Flush()
}

func listLogs(ctx context.Context, database *sql.DB, out io.Writer, username string, limit int) error {
	if username == "" {
		return errors.New("-user is required")
	}
	logs, err := store.ListActivityLogs(ctx, database, username, limit)
	if err != nil {
		return err
	}

	for _, l := range logs {
		fmt.Fprintf(out, "%s  %s\n", l.CreatedAt.Format(timeFormat), l.Description)
	}
	return nil
}
