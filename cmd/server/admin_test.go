package main

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/msds/internal/db"
	"github.com/erazemk/msds/internal/model"
	"github.com/erazemk/msds/internal/server"
	"github.com/erazemk/msds/internal/store"
)

func seedAdminDB(t *testing.T, database *sql.DB) *model.User {
	t.Helper()
	ctx := context.Background()

	user, err := server.CreateUser(ctx, database, "alice", "correct-horse", model.AccountInfo{
		FirstName: "Ana", LastName: "Novak", Rank: "Sergeant",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	store.CreateItem(ctx, database, "Rope")
	store.CreateItem(ctx, database, "Tent")
	if err := store.SetHolding(ctx, database, user.ID, "Rope", "2"); err != nil {
		t.Fatalf("SetHolding: %v", err)
	}
	store.CreateRequest(ctx, database, "alice", "Rope", "3")
	store.AddActivityLog(ctx, database, "alice", "Logged In")
	store.AddActivityLog(ctx, database, "alice", "Accessed home page")
	return user
}

func TestListUsers(t *testing.T) {
	database := db.NewTestDB(t)
	seedAdminDB(t, database)

	var out bytes.Buffer
	if err := listUsers(context.Background(), database, &out); err != nil {
		t.Fatalf("listUsers: %v", err)
	}
	for _, want := range []string{"USERNAME", "alice", "Ana Novak", "Sergeant"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestResetPassword(t *testing.T) {
	database := db.NewTestDB(t)
	user := seedAdminDB(t, database)
	ctx := context.Background()

	var out bytes.Buffer
	if err := resetPassword(ctx, database, &out, "alice"); err != nil {
		t.Fatalf("resetPassword: %v", err)
	}
	line := strings.TrimSpace(out.String())
	password := line[strings.LastIndex(line, " ")+1:]

	got, _ := store.GetUser(ctx, database, user.ID)
	if err := bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte(password)); err != nil {
		t.Errorf("printed password does not match stored hash: %v", err)
	}

	if err := resetPassword(ctx, database, &out, "bob"); err == nil {
		t.Error("expected error for unknown user")
	}
	if err := resetPassword(ctx, database, &out, ""); err == nil {
		t.Error("expected error without -user")
	}
}

func TestDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	seedAdminDB(t, database)
	ctx := context.Background()

	var out bytes.Buffer
	if err := deleteUser(ctx, database, &out, "alice"); err != nil {
		t.Fatalf("deleteUser: %v", err)
	}
	if u, _ := store.GetUserByUsername(ctx, database, "alice"); u != nil {
		t.Error("expected user to be deleted")
	}
	items, _ := store.ListInventory(ctx, database, "alice")
	if len(items) != 0 {
		t.Errorf("expected holdings to be deleted, got %v", items)
	}
}

func TestItemsCommands(t *testing.T) {
	database := db.NewTestDB(t)
	seedAdminDB(t, database)
	ctx := context.Background()

	var out bytes.Buffer
	if err := listItems(ctx, database, &out); err != nil {
		t.Fatalf("listItems: %v", err)
	}
	if !strings.Contains(out.String(), "Rope") || !strings.Contains(out.String(), "Tent") {
		t.Errorf("unexpected items output:\n%s", out.String())
	}

	if err := removeItem(ctx, database, &out, "Tent"); err != nil {
		t.Fatalf("removeItem: %v", err)
	}
	if item, _ := store.GetItemByName(ctx, database, "Tent"); item != nil {
		t.Error("expected Tent to be removed")
	}
	if err := removeItem(ctx, database, &out, "Unicorn"); err == nil {
		t.Error("expected error for unknown item")
	}
}

func TestSetHolding(t *testing.T) {
	database := db.NewTestDB(t)
	seedAdminDB(t, database)
	ctx := context.Background()

	var out bytes.Buffer
	if err := setHolding(ctx, database, &out, "alice", "Tent", "1", false); err != nil {
		t.Fatalf("setHolding: %v", err)
	}
	if got := out.String(); got != "alice holds: Rope:2 Tent:1\n" {
		t.Errorf("unexpected output %q", got)
	}

	out.Reset()
	if err := setHolding(ctx, database, &out, "alice", "Rope", "", true); err != nil {
		t.Fatalf("removing holding: %v", err)
	}
	if got := out.String(); got != "alice holds: Tent:1\n" {
		t.Errorf("unexpected output %q", got)
	}

	if err := setHolding(ctx, database, &out, "alice", "Rope", "", false); err == nil {
		t.Error("expected error without -qty or -remove")
	}
	if err := setHolding(ctx, database, &out, "alice", "", "1", false); err == nil {
		t.Error("expected error without -item")
	}
}

func TestListRequestsAndLogs(t *testing.T) {
	database := db.NewTestDB(t)
	seedAdminDB(t, database)
	ctx := context.Background()

	var out bytes.Buffer
	if err := listRequests(ctx, database, &out, ""); err != nil {
		t.Fatalf("listRequests: %v", err)
	}
	if !strings.Contains(out.String(), "alice") || !strings.Contains(out.String(), "Rope") {
		t.Errorf("unexpected requests output:\n%s", out.String())
	}

	out.Reset()
	if err := listRequests(ctx, database, &out, "bob"); err != nil {
		t.Fatalf("listRequests: %v", err)
	}
	if strings.Contains(out.String(), "alice") {
		t.Errorf("expected only bob's requests:\n%s", out.String())
	}

	out.Reset()
	if err := listLogs(ctx, database, &out, "alice", 1); err != nil {
		t.Fatalf("listLogs: %v", err)
	}
	if !strings.Contains(out.String(), "Logged In") || strings.Contains(out.String(), "home page") {
		t.Errorf("expected only the first entry:\n%s", out.String())
	}
	if err := listLogs(ctx, database, &out, "", 0); err == nil {
		t.Error("expected error without -user")
	}
}

func TestAdminCommandOnFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msds.sqlite3")
	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.EnsureSchema(context.Background(), database); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	seedAdminDB(t, database)
	database.Close()

	var out bytes.Buffer
	if err := adminCommands["logs"]([]string{"-d", path, "-user", "alice"}, &out); err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(out.String(), "Accessed home page") {
		t.Errorf("unexpected logs output:\n%s", out.String())
	}

	missing := filepath.Join(t.TempDir(), "missing.sqlite3")
	if err := adminCommands["users"]([]string{"-db", missing}, &out); err == nil {
		t.Error("expected error for missing database")
	}
}
