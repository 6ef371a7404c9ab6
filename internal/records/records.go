// Package records maps the named JSON blobs of the persisted layout onto
// typed collections. A missing blob reads as an empty collection; the write
// side always serializes the full collection back, matching the
// load-everything/store-everything model the rest of the system assumes.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"scanpos/internal/domain"
	"scanpos/internal/store"
)

type Records struct {
	blobs store.Blobs
}

func New(blobs store.Blobs) *Records {
	return &Records{blobs: blobs}
}

func (r *Records) Inventory(ctx context.Context) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	if err := r.load(ctx, store.KeyInventory, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.InventoryItem{}
	}
	return items, nil
}

func (r *Records) SaveInventory(ctx context.Context, items []domain.InventoryItem) error {
	return r.save(ctx, store.KeyInventory, items)
}

func (r *Records) RemovedBarcodes(ctx context.Context) ([]string, error) {
	var barcodes []string
	if err := r.load(ctx, store.KeyRemovedBarcodes, &barcodes); err != nil {
		return nil, err
	}
	if barcodes == nil {
		barcodes = []string{}
	}
	return barcodes, nil
}

func (r *Records) SaveRemovedBarcodes(ctx context.Context, barcodes []string) error {
	return r.save(ctx, store.KeyRemovedBarcodes, barcodes)
}

func (r *Records) Bills(ctx context.Context) ([]domain.Bill, error) {
	var bills []domain.Bill
	if err := r.load(ctx, store.KeyBills, &bills); err != nil {
		return nil, err
	}
	if bills == nil {
		bills = []domain.Bill{}
	}
	return bills, nil
}

func (r *Records) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := r.load(ctx, store.KeyCategories, &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (r *Records) SaveCategories(ctx context.Context, categories []string) error {
	return r.save(ctx, store.KeyCategories, categories)
}

// CommitCheckout writes the decremented inventory and the extended bill
// history as a single multi-key commit.
func (r *Records) CommitCheckout(ctx context.Context, inventory []domain.InventoryItem, bills []domain.Bill) error {
	inventoryJSON, err := json.Marshal(inventory)
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	billsJSON, err := json.Marshal(bills)
	if err != nil {
		return fmt.Errorf("encode bills: %w", err)
	}
	return r.blobs.SetMulti(ctx, map[string][]byte{
		store.KeyInventory: inventoryJSON,
		store.KeyBills:     billsJSON,
	})
}

// CommitDelete writes the shrunk inventory and the grown tombstone set as one
// unit, preserving the invariant that a barcode never appears in both.
func (r *Records) CommitDelete(ctx context.Context, inventory []domain.InventoryItem, removed []string) error {
	inventoryJSON, err := json.Marshal(inventory)
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	removedJSON, err := json.Marshal(removed)
	if err != nil {
		return fmt.Errorf("encode removed barcodes: %w", err)
	}
	return r.blobs.SetMulti(ctx, map[string][]byte{
		store.KeyInventory:       inventoryJSON,
		store.KeyRemovedBarcodes: removedJSON,
	})
}

// CommitUpsert behaves like CommitDelete in reverse: a tombstone-clearing
// insert updates both collections together.
func (r *Records) CommitUpsert(ctx context.Context, inventory []domain.InventoryItem, removed []string) error {
	return r.CommitDelete(ctx, inventory, removed)
}

func (r *Records) Users(ctx context.Context) ([]domain.UserAccount, error) {
	var users []domain.UserAccount
	if err := r.load(ctx, store.KeyUsers, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.UserAccount{}
	}
	return users, nil
}

func (r *Records) SaveUsers(ctx context.Context, users []domain.UserAccount) error {
	return r.save(ctx, store.KeyUsers, users)
}

func (r *Records) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	return r.Users(ctx)
}

func (r *Records) CreateUser(ctx context.Context, user domain.UserAccount) error {
	users, err := r.Users(ctx)
	if err != nil {
		return err
	}
	for _, existing := range users {
		if existing.Username == user.Username {
			return fmt.Errorf("user %s already exists", user.Username)
		}
	}
	return r.SaveUsers(ctx, append(users, user))
}

func (r *Records) UpdateUserPassword(ctx context.Context, username string, password string) error {
	users, err := r.Users(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].Username == username {
			users[i].Password = password
			return r.SaveUsers(ctx, users)
		}
	}
	return fmt.Errorf("user %s: %w", username, store.ErrNotFound)
}

func (r *Records) load(ctx context.Context, key string, dest any) error {
	data, err := r.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *Records) save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.blobs.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
