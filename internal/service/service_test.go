package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"scanpos/internal/domain"
	"scanpos/internal/records"
	"scanpos/internal/store"
	"scanpos/internal/store/memory"
)

func newTestService() *Service {
	return New(records.New(memory.New()), nil, nil, time.Minute)
}

func addItem(t *testing.T, svc *Service, barcode, name, quantity, price, category string) domain.InventoryItem {
	t.Helper()
	item, err := svc.UpsertItem(context.Background(), domain.UpsertItemRequest{
		Barcode:  barcode,
		Name:     name,
		Quantity: quantity,
		Price:    price,
		Category: category,
	})
	if err != nil {
		t.Fatalf("upsert %s failed: %v", barcode, err)
	}
	return item
}

func TestUpsertMergesQuantityAndOverwritesFields(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "8901234", "Soap", "10", "2.00", "Toiletries")
	merged, err := svc.UpsertItem(ctx, domain.UpsertItemRequest{
		Barcode:  "8901234",
		Name:     "Soap Bar",
		Quantity: "5",
		Price:    "2.50",
		Category: "Bath",
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	if merged.Quantity != 15 {
		t.Fatalf("expected merged quantity 15, got %d", merged.Quantity)
	}
	if merged.Name != "Soap Bar" || merged.Price != 2.50 || merged.Category != "Bath" {
		t.Fatalf("expected name/price/category overwritten, got %+v", merged)
	}

	list, err := svc.ListInventory(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("expected a single ledger record, got %d", len(list.Items))
	}
}

func TestUpsertRejectsBadInput(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := []domain.UpsertItemRequest{
		{Barcode: "", Name: "Soap", Quantity: "1", Price: "1.00"},
		{Barcode: "123", Name: "", Quantity: "1", Price: "1.00"},
		{Barcode: "123", Name: "Soap", Quantity: "0", Price: "1.00"},
		{Barcode: "123", Name: "Soap", Quantity: "abc", Price: "1.00"},
		{Barcode: "123", Name: "Soap", Quantity: "1", Price: "-1"},
	}
	for i, req := range cases {
		if _, err := svc.UpsertItem(ctx, req); !errors.Is(err, store.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestDeleteTombstonesAndReAddStartsFresh(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "555", "Shampoo", "8", "4.00", "")
	if err := svc.DeleteItem(ctx, "555"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	scan, err := svc.ResolveScan(ctx, domain.ScanResult{Data: "555"})
	if err != nil {
		t.Fatalf("resolve scan failed: %v", err)
	}
	if scan.Known || !scan.WasRemoved {
		t.Fatalf("expected tombstoned barcode to resolve as removed, got %+v", scan)
	}

	// Re-adding a tombstoned barcode must not merge with the old record.
	readded := addItem(t, svc, "555", "Shampoo", "3", "4.00", "")
	if readded.Quantity != 3 {
		t.Fatalf("expected fresh quantity 3 after re-add, got %d", readded.Quantity)
	}

	scan, err = svc.ResolveScan(ctx, domain.ScanResult{Data: "555"})
	if err != nil {
		t.Fatalf("resolve scan failed: %v", err)
	}
	if !scan.Known || scan.WasRemoved {
		t.Fatalf("expected tombstone cleared after re-add, got %+v", scan)
	}
}

func TestBulkDeleteSkipsUnknownBarcodes(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "1", "A", "1", "1.00", "")
	addItem(t, svc, "2", "B", "1", "1.00", "")

	deleted, err := svc.BulkDelete(ctx, domain.BulkDeleteRequest{Barcodes: []string{"1", "2", "999"}})
	if err != nil {
		t.Fatalf("bulk delete failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deletions, got %d", deleted)
	}

	list, err := svc.ListInventory(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list.Items) != 0 {
		t.Fatalf("expected empty ledger, got %d items", len(list.Items))
	}

	for _, barcode := range []string{"1", "2"} {
		scan, err := svc.ResolveScan(ctx, domain.ScanResult{Data: barcode})
		if err != nil {
			t.Fatalf("resolve scan failed: %v", err)
		}
		if !scan.WasRemoved {
			t.Fatalf("expected %s tombstoned after bulk delete", barcode)
		}
	}
}

func TestDeleteUnknownBarcodeReturnsNotFound(t *testing.T) {
	svc := newTestService()

	if err := svc.DeleteItem(context.Background(), "999"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEditItemReplacesFields(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "777", "Tea", "4", "3.00", "")
	edited, err := svc.EditItem(ctx, "777", domain.EditItemRequest{Name: "Green Tea", Quantity: "9", Price: "3.50"})
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if edited.Name != "Green Tea" || edited.Quantity != 9 || edited.Price != 3.50 {
		t.Fatalf("unexpected edited item: %+v", edited)
	}

	if _, err := svc.EditItem(ctx, "999", domain.EditItemRequest{Name: "X", Quantity: "1", Price: "1"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown barcode, got %v", err)
	}
}

func TestLowStockFlag(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "low", "Low", "5", "1.00", "")
	addItem(t, svc, "high", "High", "6", "1.00", "")

	list, err := svc.ListInventory(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, item := range list.Items {
		switch item.Barcode {
		case "low":
			if !item.LowStock {
				t.Fatalf("expected low stock flag at quantity 5")
			}
		case "high":
			if item.LowStock {
				t.Fatalf("did not expect low stock flag at quantity 6")
			}
		}
	}
}

func TestCategoriesAccumulateWithoutDuplicates(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "1", "A", "1", "1.00", "Snacks")
	addItem(t, svc, "2", "B", "1", "1.00", "Drinks")
	addItem(t, svc, "3", "C", "1", "1.00", "Snacks")

	resp, err := svc.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories failed: %v", err)
	}
	if len(resp.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %v", resp.Categories)
	}
}

func TestListInventorySortsByName(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "3", "zucchini", "1", "1.00", "")
	addItem(t, svc, "1", "Bread", "1", "1.00", "")
	addItem(t, svc, "2", "apples", "1", "1.00", "")

	list, err := svc.ListInventory(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	got := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		got = append(got, item.Name)
	}
	want := []string{"apples", "Bread", "zucchini"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestWasRemovedTracksTombstones(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "555", "Shampoo", "2", "4.00", "")
	removed, err := svc.WasRemoved(ctx, "555")
	if err != nil || removed {
		t.Fatalf("expected live barcode not removed, got %v (err %v)", removed, err)
	}

	if err := svc.DeleteItem(ctx, "555"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	removed, err = svc.WasRemoved(ctx, "555")
	if err != nil || !removed {
		t.Fatalf("expected deleted barcode tombstoned, got %v (err %v)", removed, err)
	}
}

func TestAddAndRemoveCategory(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if err := svc.AddCategory(ctx, "Drinks"); err != nil {
		t.Fatalf("add category failed: %v", err)
	}
	// Adding the same name again is a no-op, not a duplicate.
	if err := svc.AddCategory(ctx, "Drinks"); err != nil {
		t.Fatalf("re-add category failed: %v", err)
	}

	resp, err := svc.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories failed: %v", err)
	}
	if len(resp.Categories) != 1 || resp.Categories[0] != "Drinks" {
		t.Fatalf("unexpected categories: %+v", resp.Categories)
	}

	if err := svc.RemoveCategory(ctx, "Drinks"); err != nil {
		t.Fatalf("remove category failed: %v", err)
	}
	if err := svc.RemoveCategory(ctx, "Drinks"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found removing missing category, got %v", err)
	}
}

func TestAddLineIncrementsAndCapsAtLedgerQuantity(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "123", "Chips", "2", "1.50", "")
	session := svc.CreateSession(ctx)

	if _, err := svc.AddLine(ctx, session.ID, "123"); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	updated, err := svc.AddLine(ctx, session.ID, "123")
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if len(updated.Lines) != 1 || updated.Lines[0].Quantity != 2 {
		t.Fatalf("expected a single line at quantity 2, got %+v", updated.Lines)
	}

	if _, err := svc.AddLine(ctx, session.ID, "123"); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock beyond ledger quantity, got %v", err)
	}
}

func TestAddLineUnknownAndOutOfStock(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	session := svc.CreateSession(ctx)

	if _, err := svc.AddLine(ctx, session.ID, "999"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown barcode, got %v", err)
	}

	addItem(t, svc, "empty", "Empty", "1", "1.00", "")
	if _, err := svc.EditItem(ctx, "empty", domain.EditItemRequest{Name: "Empty", Quantity: "0", Price: "1.00"}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if _, err := svc.AddLine(ctx, session.ID, "empty"); !errors.Is(err, store.ErrOutOfStock) {
		t.Fatalf("expected out of stock at zero quantity, got %v", err)
	}
}

func TestSetLineQuantityZeroRemovesLine(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "123", "Chips", "5", "1.50", "")
	session := svc.CreateSession(ctx)
	if _, err := svc.AddLine(ctx, session.ID, "123"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	updated, err := svc.SetLineQuantity(ctx, session.ID, "123", 0)
	if err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if len(updated.Lines) != 0 || updated.Total != 0 {
		t.Fatalf("expected empty session after removing last line, got %+v", updated)
	}
}

func TestCheckoutDecrementsLedgerAndAppendsBill(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "8901234", "Soap", "10", "2.00", "")
	session := svc.CreateSession(ctx)
	for i := 0; i < 3; i++ {
		if _, err := svc.AddLine(ctx, session.ID, "8901234"); err != nil {
			t.Fatalf("add %d failed: %v", i, err)
		}
	}

	current, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if len(current.Lines) != 1 || current.Lines[0].Quantity != 3 || current.Lines[0].Total != 6.00 {
		t.Fatalf("expected one line {qty 3, total 6.00}, got %+v", current.Lines)
	}

	bill, err := svc.Checkout(ctx, session.ID, domain.CheckoutRequest{PaymentMethod: domain.PaymentCash})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if bill.Total != 6.00 {
		t.Fatalf("expected bill total 6.00, got %v", bill.Total)
	}

	item, err := svc.GetItem(ctx, "8901234")
	if err != nil {
		t.Fatalf("get item failed: %v", err)
	}
	if item.Quantity != 7 {
		t.Fatalf("expected ledger quantity 7 after checkout, got %d", item.Quantity)
	}

	history, err := svc.ListBills(ctx)
	if err != nil {
		t.Fatalf("list bills failed: %v", err)
	}
	if len(history.Bills) != 1 || history.Bills[0].ID != bill.ID {
		t.Fatalf("expected exactly the new bill in history, got %+v", history.Bills)
	}

	// The session is gone once its bill exists.
	if _, err := svc.GetSession(ctx, session.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected session discarded after checkout, got %v", err)
	}
}

func TestConcurrentCheckoutsProduceOneBill(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "1", "A", "5", "1.00", "")
	session := svc.CreateSession(ctx)
	if _, err := svc.AddLine(ctx, session.ID, "1"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	const attempts = 4
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Checkout(ctx, session.ID, domain.CheckoutRequest{})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, store.ErrNotFound):
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one checkout to win, got %d", succeeded)
	}

	history, err := svc.ListBills(ctx)
	if err != nil {
		t.Fatalf("list bills failed: %v", err)
	}
	if len(history.Bills) != 1 {
		t.Fatalf("expected a single bill, got %d", len(history.Bills))
	}

	item, err := svc.GetItem(ctx, "1")
	if err != nil {
		t.Fatalf("get item failed: %v", err)
	}
	if item.Quantity != 4 {
		t.Fatalf("expected stock deducted once to 4, got %d", item.Quantity)
	}
}

func TestCheckoutEmptySessionFails(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	session := svc.CreateSession(ctx)
	if _, err := svc.Checkout(ctx, session.ID, domain.CheckoutRequest{}); !errors.Is(err, store.ErrEmptyBill) {
		t.Fatalf("expected empty bill error, got %v", err)
	}
}

func TestCheckoutRejectsUnsupportedPaymentMethod(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "1", "A", "1", "1.00", "")
	session := svc.CreateSession(ctx)
	if _, err := svc.AddLine(ctx, session.ID, "1"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if _, err := svc.Checkout(ctx, session.ID, domain.CheckoutRequest{PaymentMethod: "Barter"}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckoutRevalidatesAgainstCurrentLedger(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "1", "A", "3", "1.00", "")
	session := svc.CreateSession(ctx)
	for i := 0; i < 3; i++ {
		if _, err := svc.AddLine(ctx, session.ID, "1"); err != nil {
			t.Fatalf("add %d failed: %v", i, err)
		}
	}

	// The ledger shrinks between the last scan and checkout.
	if _, err := svc.EditItem(ctx, "1", domain.EditItemRequest{Name: "A", Quantity: "1", Price: "1.00"}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	if _, err := svc.Checkout(ctx, session.ID, domain.CheckoutRequest{}); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock at checkout, got %v", err)
	}

	// The failed checkout consumed nothing.
	item, err := svc.GetItem(ctx, "1")
	if err != nil {
		t.Fatalf("get item failed: %v", err)
	}
	if item.Quantity != 1 {
		t.Fatalf("expected ledger untouched at quantity 1, got %d", item.Quantity)
	}
	if _, err := svc.GetSession(ctx, session.ID); err != nil {
		t.Fatalf("expected session kept after failed checkout, got %v", err)
	}
}

func TestSalesReportAggregatesDailyBucket(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "1", "Soap", "20", "2.00", "")
	for _, lines := range []int{3, 2} {
		session := svc.CreateSession(ctx)
		for i := 0; i < lines; i++ {
			if _, err := svc.AddLine(ctx, session.ID, "1"); err != nil {
				t.Fatalf("add failed: %v", err)
			}
		}
		if _, err := svc.Checkout(ctx, session.ID, domain.CheckoutRequest{}); err != nil {
			t.Fatalf("checkout failed: %v", err)
		}
	}

	report, err := svc.SalesReport(ctx, domain.PeriodDaily, time.Now())
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if report.TotalSales != 10.00 {
		t.Fatalf("expected total sales 10.00, got %v", report.TotalSales)
	}
	if report.TotalItems != 5 {
		t.Fatalf("expected 5 items sold, got %d", report.TotalItems)
	}
	if len(report.Items) != 1 || report.Items[0].Quantity != 5 || report.Items[0].TotalSales != 10.00 {
		t.Fatalf("unexpected report items: %+v", report.Items)
	}

	// Reports are read-only: a second run over the same history is identical.
	again, err := svc.SalesReport(ctx, domain.PeriodDaily, time.Now())
	if err != nil {
		t.Fatalf("second report failed: %v", err)
	}
	if again.TotalSales != report.TotalSales || again.TotalItems != report.TotalItems {
		t.Fatalf("expected identical report on re-run, got %+v then %+v", report, again)
	}
}

func TestSalesReportBucketsExcludeOtherPeriods(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addItem(t, svc, "1", "Soap", "10", "2.00", "")
	session := svc.CreateSession(ctx)
	if _, err := svc.AddLine(ctx, session.ID, "1"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := svc.Checkout(ctx, session.ID, domain.CheckoutRequest{}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	lastYear := time.Now().AddDate(-1, 0, 0)
	report, err := svc.SalesReport(ctx, domain.PeriodYearly, lastYear)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if report.TotalSales != 0 || report.TotalItems != 0 || len(report.Items) != 0 {
		t.Fatalf("expected empty report for last year, got %+v", report)
	}
}

func TestSalesReportRejectsUnknownPeriod(t *testing.T) {
	svc := newTestService()

	if _, err := svc.SalesReport(context.Background(), domain.ReportPeriod("hourly"), time.Now()); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWeeklyBucketStartsOnSunday(t *testing.T) {
	// Wednesday 2024-07-17.
	ref := time.Date(2024, 7, 17, 15, 0, 0, 0, time.UTC)
	from, to := periodBounds(domain.PeriodWeekly, ref)

	if from.Weekday() != time.Sunday {
		t.Fatalf("expected week to start on Sunday, got %s", from.Weekday())
	}
	if !from.Equal(time.Date(2024, 7, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected week start %s", from)
	}
	if !to.Equal(time.Date(2024, 7, 21, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected week end %s", to)
	}
}
