package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"scanpos/internal/cache"
	"scanpos/internal/domain"
	"scanpos/internal/records"
	"scanpos/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// ImageStore persists product photos and hands back the reference stored on
// the inventory record.
type ImageStore interface {
	Save(barcode string, data []byte) (string, error)
	Delete(imageRef string) error
}

type Service struct {
	records     *records.Records
	images      ImageStore
	reportCache cache.ReportCache
	reportTTL   time.Duration

	// mu serializes every ledger and bill-history mutation. The record store
	// is whole-collection read-modify-write, so overlapping writers would
	// silently drop each other's changes without it.
	mu sync.Mutex

	sessMu   sync.RWMutex
	sessions map[string]*domain.Session
}

func New(recs *records.Records, images ImageStore, reportCache cache.ReportCache, reportTTL time.Duration) *Service {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if reportTTL <= 0 {
		reportTTL = time.Minute
	}

	return &Service{
		records:     recs,
		images:      images,
		reportCache: reportCache,
		reportTTL:   reportTTL,
		sessions:    make(map[string]*domain.Session),
	}
}

func (s *Service) ListInventory(ctx context.Context) (domain.InventoryListResponse, error) {
	items, err := s.records.Inventory(ctx)
	if err != nil {
		return domain.InventoryListResponse{}, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})

	listed := make([]domain.InventoryListItem, 0, len(items))
	for _, item := range items {
		listed = append(listed, domain.InventoryListItem{
			InventoryItem: item,
			LowStock:      item.Quantity <= domain.LowStockThreshold,
		})
	}
	return domain.InventoryListResponse{Items: listed}, nil
}

func (s *Service) GetItem(ctx context.Context, barcode string) (domain.InventoryItem, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.InventoryItem{}, store.ErrValidation
	}

	items, err := s.records.Inventory(ctx)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	for _, item := range items {
		if item.Barcode == barcode {
			return item, nil
		}
	}
	return domain.InventoryItem{}, store.ErrNotFound
}

// WasRemoved reports whether the barcode is tombstoned. Deleted products stay
// on this list until the barcode is added back through the add-item flow.
func (s *Service) WasRemoved(ctx context.Context, barcode string) (bool, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return false, fmt.Errorf("%w: barcode is required", store.ErrValidation)
	}

	removed, err := s.records.RemovedBarcodes(ctx)
	if err != nil {
		return false, err
	}
	for _, tombstoned := range removed {
		if tombstoned == barcode {
			return true, nil
		}
	}
	return false, nil
}

// ResolveScan classifies a decoded barcode for the add-item flow: a known
// ledger record returns the record for merge-on-rescan, a tombstoned barcode
// is reported as removed so the caller treats it as brand new, and anything
// else is simply unknown.
func (s *Service) ResolveScan(ctx context.Context, scan domain.ScanResult) (domain.ScanLookupResponse, error) {
	barcode := strings.TrimSpace(scan.Data)
	if barcode == "" {
		return domain.ScanLookupResponse{}, fmt.Errorf("%w: empty scan payload", store.ErrValidation)
	}

	wasRemoved, err := s.WasRemoved(ctx, barcode)
	if err != nil {
		return domain.ScanLookupResponse{}, err
	}
	if wasRemoved {
		return domain.ScanLookupResponse{Barcode: barcode, Known: false, WasRemoved: true}, nil
	}

	items, err := s.records.Inventory(ctx)
	if err != nil {
		return domain.ScanLookupResponse{}, err
	}
	for i := range items {
		if items[i].Barcode == barcode {
			return domain.ScanLookupResponse{Barcode: barcode, Known: true, Item: &items[i]}, nil
		}
	}
	return domain.ScanLookupResponse{Barcode: barcode}, nil
}

// UpsertItem applies the add-item form. A barcode with a live ledger record
// merges: quantity adds, name/price/category overwrite, the image changes
// only when a new one is supplied. A tombstoned barcode re-enters as a brand
// new record and its tombstone is cleared in the same commit.
func (s *Service) UpsertItem(ctx context.Context, req domain.UpsertItemRequest) (domain.InventoryItem, error) {
	barcode := strings.TrimSpace(req.Barcode)
	name := strings.TrimSpace(req.Name)
	category := strings.TrimSpace(req.Category)
	if barcode == "" || name == "" {
		return domain.InventoryItem{}, fmt.Errorf("%w: barcode and name are required", store.ErrValidation)
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(req.Quantity))
	if err != nil || quantity < 1 {
		return domain.InventoryItem{}, fmt.Errorf("%w: quantity must be a positive integer", store.ErrValidation)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(req.Price), 64)
	if err != nil || price <= 0 {
		return domain.InventoryItem{}, fmt.Errorf("%w: price must be a positive number", store.ErrValidation)
	}

	var imageURI string
	if req.ImageData != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageData)
		if err != nil {
			return domain.InventoryItem{}, fmt.Errorf("%w: image data is not valid base64", store.ErrValidation)
		}
		if s.images == nil {
			return domain.InventoryItem{}, fmt.Errorf("%w: image storage is not configured", store.ErrValidation)
		}
		imageURI, err = s.images.Save(barcode, data)
		if err != nil {
			return domain.InventoryItem{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.records.Inventory(ctx)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	removed, err := s.records.RemovedBarcodes(ctx)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	wasRemoved := false
	kept := removed[:0]
	for _, tombstoned := range removed {
		if tombstoned == barcode {
			wasRemoved = true
			continue
		}
		kept = append(kept, tombstoned)
	}
	removed = kept

	var saved domain.InventoryItem
	merged := false
	if !wasRemoved {
		for i := range items {
			if items[i].Barcode != barcode {
				continue
			}
			items[i].Quantity += quantity
			items[i].Name = name
			items[i].Price = price
			items[i].Category = category
			if imageURI != "" {
				items[i].ImageURI = imageURI
			}
			saved = items[i]
			merged = true
			break
		}
	}
	if !merged {
		saved = domain.InventoryItem{
			Barcode:  barcode,
			Name:     name,
			Quantity: quantity,
			Price:    price,
			Category: category,
			ImageURI: imageURI,
		}
		items = append(items, saved)
	}

	if err := s.records.CommitUpsert(ctx, items, removed); err != nil {
		return domain.InventoryItem{}, err
	}

	if category != "" {
		if err := s.recordCategory(ctx, category); err != nil {
			log.Printf("[service] WARN: failed to record category %q: %v", category, err)
		}
	}

	return saved, nil
}

func (s *Service) EditItem(ctx context.Context, barcode string, req domain.EditItemRequest) (domain.InventoryItem, error) {
	barcode = strings.TrimSpace(barcode)
	name := strings.TrimSpace(req.Name)
	if barcode == "" || name == "" {
		return domain.InventoryItem{}, fmt.Errorf("%w: barcode and name are required", store.ErrValidation)
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(req.Quantity))
	if err != nil || quantity < 0 {
		return domain.InventoryItem{}, fmt.Errorf("%w: quantity must be a non-negative integer", store.ErrValidation)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(req.Price), 64)
	if err != nil || price < 0 {
		return domain.InventoryItem{}, fmt.Errorf("%w: price must be a non-negative number", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.records.Inventory(ctx)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	for i := range items {
		if items[i].Barcode != barcode {
			continue
		}
		items[i].Name = name
		items[i].Quantity = quantity
		items[i].Price = price
		if err := s.records.SaveInventory(ctx, items); err != nil {
			return domain.InventoryItem{}, err
		}
		return items[i], nil
	}
	return domain.InventoryItem{}, store.ErrNotFound
}

// DeleteItem removes the ledger record and tombstones its barcode so the next
// scan of the same code is treated as a brand new product.
func (s *Service) DeleteItem(ctx context.Context, barcode string) error {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.deleteLocked(ctx, []string{barcode})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return store.ErrNotFound
	}
	return nil
}

// BulkDelete removes every listed barcode that has a ledger record and
// tombstones it. Unknown barcodes are skipped rather than failing the batch.
func (s *Service) BulkDelete(ctx context.Context, req domain.BulkDeleteRequest) (int, error) {
	barcodes := make([]string, 0, len(req.Barcodes))
	for _, barcode := range req.Barcodes {
		barcode = strings.TrimSpace(barcode)
		if barcode != "" {
			barcodes = append(barcodes, barcode)
		}
	}
	if len(barcodes) == 0 {
		return 0, fmt.Errorf("%w: no barcodes given", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteLocked(ctx, barcodes)
}

// deleteLocked removes the given barcodes from the ledger and adds a
// tombstone for each record actually deleted. Callers hold s.mu.
func (s *Service) deleteLocked(ctx context.Context, barcodes []string) (int, error) {
	items, err := s.records.Inventory(ctx)
	if err != nil {
		return 0, err
	}
	removed, err := s.records.RemovedBarcodes(ctx)
	if err != nil {
		return 0, err
	}

	doomed := make(map[string]bool, len(barcodes))
	for _, barcode := range barcodes {
		doomed[barcode] = true
	}

	tombstoned := make(map[string]bool, len(removed))
	for _, barcode := range removed {
		tombstoned[barcode] = true
	}

	kept := items[:0]
	var images []string
	deleted := 0
	for _, item := range items {
		if !doomed[item.Barcode] {
			kept = append(kept, item)
			continue
		}
		deleted++
		if item.ImageURI != "" {
			images = append(images, item.ImageURI)
		}
		if !tombstoned[item.Barcode] {
			removed = append(removed, item.Barcode)
			tombstoned[item.Barcode] = true
		}
	}
	if deleted == 0 {
		return 0, nil
	}

	if err := s.records.CommitDelete(ctx, kept, removed); err != nil {
		return 0, err
	}

	if s.images != nil {
		for _, ref := range images {
			if err := s.images.Delete(ref); err != nil {
				log.Printf("[service] WARN: failed to delete image %s: %v", ref, err)
			}
		}
	}
	return deleted, nil
}

func (s *Service) ListCategories(ctx context.Context) (domain.CategoryListResponse, error) {
	categories, err := s.records.Categories(ctx)
	if err != nil {
		return domain.CategoryListResponse{}, err
	}
	sort.Strings(categories)
	return domain.CategoryListResponse{Categories: categories}, nil
}

func (s *Service) AddCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: category name is required", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordCategory(ctx, name)
}

// RemoveCategory drops the name from the category list. Items already tagged
// with it keep their tag; the list only feeds the add-item picker.
func (s *Service) RemoveCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: category name is required", store.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	categories, err := s.records.Categories(ctx)
	if err != nil {
		return err
	}
	kept := categories[:0]
	found := false
	for _, existing := range categories {
		if existing == name {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return store.ErrNotFound
	}
	return s.records.SaveCategories(ctx, kept)
}

func (s *Service) recordCategory(ctx context.Context, category string) error {
	categories, err := s.records.Categories(ctx)
	if err != nil {
		return err
	}
	for _, existing := range categories {
		if existing == category {
			return nil
		}
	}
	return s.records.SaveCategories(ctx, append(categories, category))
}
