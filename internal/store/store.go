package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyBill         = errors.New("bill has no items")
	ErrValidation        = errors.New("invalid input")
)

// Persisted collection keys. The key names and the JSON array shapes stored
// under them are a compatibility surface and must not change.
const (
	KeyInventory       = "inventory"
	KeyRemovedBarcodes = "removedBarcodes"
	KeyBills           = "bills"
	KeyCategories      = "categories"
	KeyUsers           = "users"
)

// Blobs is the persisted record store: named JSON blobs with whole-value
// get/set. Get returns ErrNotFound for a key that was never written.
//
// SetMulti commits every entry as one unit so multi-collection mutations
// (checkout's inventory decrement plus bill append) have no window where only
// one collection is updated. Implementations back this with a transaction or
// equivalent; the file store's rename pass is best effort and documented as
// such.
type Blobs interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMulti(ctx context.Context, values map[string][]byte) error
}
