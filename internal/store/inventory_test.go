package store

import (
	"context"
	"testing"

	"github.com/erazemk/msds/internal/db"
	"github.com/erazemk/msds/internal/model"
)

func TestListInventoryOrder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "alice", "hash", model.AccountInfo{})

	SetHolding(ctx, database, user.ID, "Tent", "1")
	SetHolding(ctx, database, user.ID, "Rope", "2")
	SetHolding(ctx, database, user.ID, "Water", "1.50")

	// Updating keeps the original position.
	if err := SetHolding(ctx, database, user.ID, "Tent", "3"); err != nil {
		t.Fatalf("SetHolding: %v", err)
	}

	items, err := ListInventory(ctx, database, "alice")
	if err != nil {
		t.Fatalf("ListInventory: %v", err)
	}
	want := []model.InventoryItem{
		{Name: "Tent", Quantity: "3"},
		{Name: "Rope", Quantity: "2"},
		{Name: "Water", Quantity: "1.50"},
	}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("item %d: expected %v, got %v", i, want[i], items[i])
		}
	}
}

func TestListInventoryEmpty(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "alice", "hash", model.AccountInfo{})

	items, err := ListInventory(ctx, database, "alice")
	if err != nil {
		t.Fatalf("ListInventory: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", items)
	}
}

func TestInventoryPerUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice, _ := CreateUser(ctx, database, "alice", "hash", model.AccountInfo{})
	bob, _ := CreateUser(ctx, database, "bob", "hash", model.AccountInfo{})

	SetHolding(ctx, database, alice.ID, "Rope", "2")
	SetHolding(ctx, database, bob.ID, "Tent", "1")

	items, _ := ListInventory(ctx, database, "bob")
	if len(items) != 1 || items[0].Name != "Tent" {
		t.Errorf("unexpected inventory for bob: %v", items)
	}
}

func TestRemoveHolding(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "alice", "hash", model.AccountInfo{})
	SetHolding(ctx, database, user.ID, "Rope", "2")

	if err := RemoveHolding(ctx, database, user.ID, "Rope"); err != nil {
		t.Fatalf("RemoveHolding: %v", err)
	}
	items, _ := ListInventory(ctx, database, "alice")
	if len(items) != 0 {
		t.Errorf("expected no holdings, got %v", items)
	}
}

func TestSetHoldingRejectsEmptyName(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "alice", "hash", model.AccountInfo{})
	if err := SetHolding(ctx, database, user.ID, "", "1"); err == nil {
		t.Error("expected error for empty item name")
	}
}
