package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"scanpos/internal/domain"
	"scanpos/internal/store"
	"scanpos/internal/xid"
)

// Billing sessions are transient: lines live in memory until checkout turns
// them into an immutable bill, and an abandoned session simply evaporates
// with the process. Only checkout touches the persisted ledger.

func (s *Service) CreateSession(_ context.Context) domain.Session {
	session := &domain.Session{
		ID:        uuid.NewString(),
		Lines:     []domain.BillItem{},
		CreatedAt: time.Now(),
	}

	s.sessMu.Lock()
	s.sessions[session.ID] = session
	s.sessMu.Unlock()

	return *session
}

func (s *Service) GetSession(_ context.Context, sessionID string) (domain.Session, error) {
	s.sessMu.RLock()
	defer s.sessMu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, store.ErrNotFound
	}
	return snapshotSession(session), nil
}

// AddLine scans one unit of a product into the session. The first scan of a
// barcode opens a line at quantity 1; each repeat scan increments it. The
// line quantity can never exceed what the ledger holds.
func (s *Service) AddLine(ctx context.Context, sessionID string, barcode string) (domain.Session, error) {
	item, err := s.GetItem(ctx, barcode)
	if err != nil {
		return domain.Session{}, err
	}
	if item.Quantity <= 0 {
		return domain.Session{}, fmt.Errorf("%w: %s", store.ErrOutOfStock, item.Name)
	}

	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, store.ErrNotFound
	}

	for i := range session.Lines {
		if session.Lines[i].ID != item.Barcode {
			continue
		}
		if session.Lines[i].Quantity+1 > item.Quantity {
			return domain.Session{}, fmt.Errorf("%w: only %d units of %s available", store.ErrInsufficientStock, item.Quantity, item.Name)
		}
		session.Lines[i].Quantity++
		session.Lines[i].Total = round2(float64(session.Lines[i].Quantity) * session.Lines[i].Price)
		recalcSession(session)
		return snapshotSession(session), nil
	}

	session.Lines = append(session.Lines, domain.BillItem{
		ID:       item.Barcode,
		Name:     item.Name,
		Quantity: 1,
		Price:    item.Price,
		Total:    round2(item.Price),
		Image:    item.ImageURI,
	})
	recalcSession(session)
	return snapshotSession(session), nil
}

// SetLineQuantity replaces a line's quantity. Zero or less removes the line;
// anything above the ledger quantity is rejected.
func (s *Service) SetLineQuantity(ctx context.Context, sessionID string, barcode string, quantity int) (domain.Session, error) {
	if quantity <= 0 {
		return s.RemoveLine(ctx, sessionID, barcode)
	}

	item, err := s.GetItem(ctx, barcode)
	if err != nil {
		return domain.Session{}, err
	}
	if quantity > item.Quantity {
		return domain.Session{}, fmt.Errorf("%w: only %d units of %s available", store.ErrInsufficientStock, item.Quantity, item.Name)
	}

	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, store.ErrNotFound
	}
	for i := range session.Lines {
		if session.Lines[i].ID != barcode {
			continue
		}
		session.Lines[i].Quantity = quantity
		session.Lines[i].Total = round2(float64(quantity) * session.Lines[i].Price)
		recalcSession(session)
		return snapshotSession(session), nil
	}
	return domain.Session{}, store.ErrNotFound
}

func (s *Service) RemoveLine(_ context.Context, sessionID string, barcode string) (domain.Session, error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, store.ErrNotFound
	}

	kept := session.Lines[:0]
	for _, line := range session.Lines {
		if line.ID != barcode {
			kept = append(kept, line)
		}
	}
	session.Lines = kept
	recalcSession(session)
	return snapshotSession(session), nil
}

// Checkout turns the session into a bill: every line is re-validated against
// the current ledger, the ledger is decremented and the bill appended in one
// commit, and the session is discarded. A failed checkout leaves both the
// ledger and the session untouched.
func (s *Service) Checkout(ctx context.Context, sessionID string, req domain.CheckoutRequest) (domain.Bill, error) {
	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = domain.PaymentCash
	}
	if !isSupportedPaymentMethod(paymentMethod) {
		return domain.Bill{}, fmt.Errorf("%w: unsupported payment method %q", store.ErrValidation, paymentMethod)
	}

	// Claim the session before touching the ledger. Removing it from the
	// registry here means concurrent checkouts of the same session see it as
	// gone instead of each producing a bill; any failure below puts it back.
	s.sessMu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		s.sessMu.Unlock()
		return domain.Bill{}, store.ErrNotFound
	}
	lines := snapshotSession(session).Lines
	if len(lines) == 0 {
		s.sessMu.Unlock()
		return domain.Bill{}, store.ErrEmptyBill
	}
	delete(s.sessions, sessionID)
	s.sessMu.Unlock()

	restore := func() {
		s.sessMu.Lock()
		s.sessions[sessionID] = session
		s.sessMu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.records.Inventory(ctx)
	if err != nil {
		restore()
		return domain.Bill{}, err
	}

	byBarcode := make(map[string]int, len(items))
	for i, item := range items {
		byBarcode[item.Barcode] = i
	}

	total := 0.0
	for _, line := range lines {
		idx, exists := byBarcode[line.ID]
		if !exists {
			restore()
			return domain.Bill{}, fmt.Errorf("%w: %s", store.ErrNotFound, line.ID)
		}
		if line.Quantity > items[idx].Quantity {
			restore()
			return domain.Bill{}, fmt.Errorf("%w: only %d units of %s available", store.ErrInsufficientStock, items[idx].Quantity, items[idx].Name)
		}
		total += line.Total
	}
	for _, line := range lines {
		items[byBarcode[line.ID]].Quantity -= line.Quantity
	}

	bill := domain.Bill{
		ID:            xid.New("bill"),
		Items:         lines,
		Total:         round2(total),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		Timestamp:     time.Now().UnixMilli(),
		PaymentMethod: paymentMethod,
	}

	bills, err := s.records.Bills(ctx)
	if err != nil {
		restore()
		return domain.Bill{}, err
	}
	bills = append(bills, bill)

	if err := s.records.CommitCheckout(ctx, items, bills); err != nil {
		restore()
		return domain.Bill{}, err
	}

	return bill, nil
}

func (s *Service) GetBill(ctx context.Context, billID string) (domain.Bill, error) {
	bills, err := s.records.Bills(ctx)
	if err != nil {
		return domain.Bill{}, err
	}
	for _, bill := range bills {
		if bill.ID == billID {
			return bill, nil
		}
	}
	return domain.Bill{}, store.ErrNotFound
}

// ListBills returns the checkout history, most recent first.
func (s *Service) ListBills(ctx context.Context) (domain.BillListResponse, error) {
	bills, err := s.records.Bills(ctx)
	if err != nil {
		return domain.BillListResponse{}, err
	}
	sort.SliceStable(bills, func(i, j int) bool {
		return bills[i].Timestamp > bills[j].Timestamp
	})
	return domain.BillListResponse{Bills: bills}, nil
}

func isSupportedPaymentMethod(method string) bool {
	for _, supported := range domain.PaymentMethods {
		if method == supported {
			return true
		}
	}
	return false
}

func recalcSession(session *domain.Session) {
	total := 0.0
	for _, line := range session.Lines {
		total += line.Total
	}
	session.Total = round2(total)
}

func snapshotSession(session *domain.Session) domain.Session {
	out := *session
	out.Lines = make([]domain.BillItem, len(session.Lines))
	copy(out.Lines, session.Lines)
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
