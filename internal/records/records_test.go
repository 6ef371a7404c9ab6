package records

import (
	"context"
	"testing"

	"scanpos/internal/domain"
	"scanpos/internal/store/memory"
)

func TestMissingBlobsReadAsEmptyCollections(t *testing.T) {
	recs := New(memory.New())
	ctx := context.Background()

	items, err := recs.Inventory(ctx)
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil inventory, got %#v", items)
	}

	removed, err := recs.RemovedBarcodes(ctx)
	if err != nil {
		t.Fatalf("removed barcodes: %v", err)
	}
	if removed == nil || len(removed) != 0 {
		t.Fatalf("expected empty non-nil tombstone set, got %#v", removed)
	}

	bills, err := recs.Bills(ctx)
	if err != nil {
		t.Fatalf("bills: %v", err)
	}
	if len(bills) != 0 {
		t.Fatalf("expected no bills, got %d", len(bills))
	}
}

func TestCommitDeleteWritesBothCollections(t *testing.T) {
	recs := New(memory.New())
	ctx := context.Background()

	inventory := []domain.InventoryItem{{Barcode: "1", Name: "A", Quantity: 1, Price: 1}}
	if err := recs.CommitDelete(ctx, inventory, []string{"555"}); err != nil {
		t.Fatalf("commit delete: %v", err)
	}

	gotItems, err := recs.Inventory(ctx)
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if len(gotItems) != 1 || gotItems[0].Barcode != "1" {
		t.Fatalf("unexpected inventory: %+v", gotItems)
	}

	gotRemoved, err := recs.RemovedBarcodes(ctx)
	if err != nil {
		t.Fatalf("removed barcodes: %v", err)
	}
	if len(gotRemoved) != 1 || gotRemoved[0] != "555" {
		t.Fatalf("unexpected tombstones: %+v", gotRemoved)
	}
}

func TestUserStoreRoundTrip(t *testing.T) {
	recs := New(memory.New())
	ctx := context.Background()

	user := domain.UserAccount{Username: "admin", Password: "hash", Role: "admin", Active: true}
	if err := recs.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := recs.CreateUser(ctx, user); err == nil {
		t.Fatalf("expected duplicate user to be rejected")
	}

	if err := recs.UpdateUserPassword(ctx, "admin", "newhash"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	users, err := recs.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 || users[0].Password != "newhash" {
		t.Fatalf("unexpected users: %+v", users)
	}

	if err := recs.UpdateUserPassword(ctx, "ghost", "x"); err == nil {
		t.Fatalf("expected unknown user to fail")
	}
}
