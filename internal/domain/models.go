package domain

import "time"

// InventoryItem is one ledger record, keyed by barcode. The JSON field names
// mirror the persisted `inventory` array layout and must not change.
type InventoryItem struct {
	Barcode  string  `json:"barcode"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Category string  `json:"category,omitempty"`
	ImageURI string  `json:"imageUri,omitempty"`
}

// LowStockThreshold marks ledger records that the inventory list flags for
// restocking.
const LowStockThreshold = 5

// BillItem is a line on a bill. ID is the barcode of the billed item.
// Total is always Quantity * Price rounded to cents.
type BillItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Total    float64 `json:"total"`
	Image    string  `json:"image,omitempty"`
}

// Bill is an immutable checkout record. Timestamp is epoch milliseconds to
// match the persisted `bills` array layout.
type Bill struct {
	ID            string     `json:"id"`
	Items         []BillItem `json:"items"`
	Total         float64    `json:"total"`
	CustomerName  string     `json:"customerName"`
	Timestamp     int64      `json:"timestamp"`
	PaymentMethod string     `json:"paymentMethod"`
}

// Time converts the bill's millisecond timestamp to a time.Time in the local
// calendar, which is what report bucketing operates on.
func (b Bill) Time() time.Time {
	return time.UnixMilli(b.Timestamp)
}

const (
	PaymentCash       = "Cash"
	PaymentCreditCard = "Credit Card"
	PaymentDebitCard  = "Debit Card"
	PaymentUPI        = "UPI"
)

// PaymentMethods lists the accepted values for Bill.PaymentMethod.
var PaymentMethods = []string{PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentUPI}

// UpsertItemRequest carries the add-item form. Quantity and price arrive as
// strings because the form fields are free text; parsing and validation happen
// in the service.
type UpsertItemRequest struct {
	Barcode  string `json:"barcode"`
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
	Category string `json:"category"`
	// ImageData is an optional base64 JPEG captured for the product. When
	// present it replaces any stored image for the barcode.
	ImageData string `json:"image_data,omitempty"`
}

type EditItemRequest struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

type BulkDeleteRequest struct {
	Barcodes []string `json:"barcodes"`
}

type CategoryRequest struct {
	Name string `json:"name"`
}

type InventoryListItem struct {
	InventoryItem
	LowStock bool `json:"low_stock"`
}

type InventoryListResponse struct {
	Items []InventoryListItem `json:"items"`
}

// ScanResult is what a barcode source emits on a successful decode.
type ScanResult struct {
	Data      string `json:"data"`
	Symbology string `json:"symbology"`
}

// ScanLookupResponse tells the caller whether a scanned barcode resolves to an
// existing ledger record or should be entered as a brand-new product. A
// tombstoned barcode always resolves to new.
type ScanLookupResponse struct {
	Barcode    string         `json:"barcode"`
	Known      bool           `json:"known"`
	WasRemoved bool           `json:"was_removed"`
	Item       *InventoryItem `json:"item,omitempty"`
}

type CategoryListResponse struct {
	Categories []string `json:"categories"`
}

// Session is a transient in-progress bill. Lines keep insertion order and are
// never persisted; only the Bill produced at checkout is.
type Session struct {
	ID        string     `json:"id"`
	Lines     []BillItem `json:"lines"`
	Total     float64    `json:"total"`
	CreatedAt time.Time  `json:"created_at"`
}

type AddLineRequest struct {
	Barcode string `json:"barcode"`
}

type SetLineQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequest struct {
	CustomerName  string `json:"customerName"`
	PaymentMethod string `json:"paymentMethod"`
}

type BillListResponse struct {
	Bills []Bill `json:"bills"`
}

// ReportPeriod selects the calendar bucket for a sales report.
type ReportPeriod string

const (
	PeriodDaily   ReportPeriod = "daily"
	PeriodWeekly  ReportPeriod = "weekly"
	PeriodMonthly ReportPeriod = "monthly"
	PeriodYearly  ReportPeriod = "yearly"
)

// ReportItem is one product's aggregate across every bill in the bucket.
type ReportItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	TotalSales float64 `json:"totalSales"`
}

type SalesReport struct {
	Period     string       `json:"period"`
	TotalSales float64      `json:"totalSales"`
	TotalItems int          `json:"totalItems"`
	Items      []ReportItem `json:"items"`
}

// ShareResponse carries the handle produced by the print/share sink.
type ShareResponse struct {
	FileName string `json:"file_name"`
	URI      string `json:"uri"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is the persistence model for auth credentials, stored under the
// `users` blob key.
type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
