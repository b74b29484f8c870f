package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Offline clients send prices as JSON numbers and expect them back the same way.
	decimal.MarshalJSONWithoutQuotes = true
}

// Record is implemented by every synchronised entity.
type Record interface {
	Key() int64
	Modified() time.Time
	Touch(now time.Time)
}

// Meta is the bookkeeping shared by every tenant-owned list entity.
// UpdatedAt is the modification marker; IsDeleted marks a tombstone.
type Meta struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" validate:"required"`
	IsDeleted bool      `json:"is_deleted"`
}

func (m *Meta) Modified() time.Time { return m.UpdatedAt }
func (m *Meta) Deleted() bool       { return m.IsDeleted }

// Touch stamps the record with the server's write time.
func (m *Meta) Touch(now time.Time) {
	m.UpdatedAt = now
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
}

type Product struct {
	ID            int64           `json:"id" validate:"gt=0"`
	Name          string          `json:"name" validate:"required,max=255,nonul"`
	CategoryID    int64           `json:"category_id" validate:"gte=0"`
	Description   string          `json:"description" validate:"nonul"`
	PurchasePrice decimal.Decimal `json:"purchase_price" validate:"gte=0,lte=9999999999.99"`
	SellingPrice  decimal.Decimal `json:"selling_price" validate:"gte=0,lte=9999999999.99"`
	Stock         int             `json:"stock" validate:"gte=-2147483648,lte=2147483647"`
	ReorderLevel  int             `json:"reorder_level" validate:"gte=0,lte=2147483647"`
	Unit          string          `json:"unit" validate:"max=50,nonul"`
	Barcode       string          `json:"barcode" validate:"max=100,nonul"`
	Meta
}

func (p *Product) Key() int64 { return p.ID }

type Category struct {
	ID          int64  `json:"id" validate:"gt=0"`
	Name        string `json:"name" validate:"required,max=255,nonul"`
	Description string `json:"description" validate:"nonul"`
	Meta
}

func (c *Category) Key() int64 { return c.ID }

type Supplier struct {
	ID            int64   `json:"id" validate:"gt=0"`
	Name          string  `json:"name" validate:"required,max=255,nonul"`
	ContactPerson string  `json:"contact_person" validate:"max=255,nonul"`
	Phone         string  `json:"phone" validate:"max=50,nonul"`
	Email         string  `json:"email" validate:"omitempty,email,max=255,nonul"`
	Address       string  `json:"address" validate:"nonul"`
	PaymentTerms  string  `json:"payment_terms" validate:"nonul"`
	ProductIDs    []int64 `json:"product_ids" validate:"dive,gt=0"`
	Meta
}

func (s *Supplier) Key() int64 { return s.ID }

// LineItem is one row of a sale or purchase. Items are owned by their
// document and always replaced as a whole.
type LineItem struct {
	ProductID   int64           `json:"product_id" validate:"gt=0"`
	ProductName string          `json:"product_name" validate:"required,nonul"`
	Quantity    int             `json:"quantity" validate:"gt=0,lte=2147483647"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
}

func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type LineItems []LineItem

func (items LineItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Value stores the items as a single JSON document.
func (items LineItems) Value() (driver.Value, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(items)
}

func (items *LineItems) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*items = LineItems{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("line items: unsupported source type")
	}
	return json.Unmarshal(data, items)
}

type Sale struct {
	ID            int64     `json:"id" validate:"gt=0"`
	Date          time.Time `json:"date" validate:"required"`
	InvoiceNumber string    `json:"invoice_number" validate:"required,max=100,nonul"`
	Customer      string    `json:"customer" validate:"max=255,nonul"`
	Items         LineItems `json:"items" validate:"dive"`
	PaymentMethod string    `json:"payment_method" validate:"required,max=50,nonul"`
	Notes         string    `json:"notes" validate:"nonul"`
	Meta
}

func (s *Sale) Key() int64 { return s.ID }

type Purchase struct {
	ID              int64     `json:"id" validate:"gt=0"`
	Date            time.Time `json:"date" validate:"required"`
	ReferenceNumber string    `json:"reference_number" validate:"required,max=100,nonul"`
	SupplierID      int64     `json:"supplier_id" validate:"gte=0"`
	Items           LineItems `json:"items" validate:"dive"`
	PaymentMethod   string    `json:"payment_method" validate:"required,max=50,nonul"`
	Notes           string    `json:"notes" validate:"nonul"`
	Meta
}

func (p *Purchase) Key() int64 { return p.ID }

const (
	AdjustmentAdd    = "add"
	AdjustmentRemove = "remove"
)

// Adjustment is a manual stock correction.
type Adjustment struct {
	ID        int64     `json:"id" validate:"gt=0"`
	Date      time.Time `json:"date" validate:"required"`
	ProductID int64     `json:"product_id" validate:"gt=0"`
	Type      string    `json:"type" validate:"required,oneof=add remove,nonul"`
	Quantity  int       `json:"quantity" validate:"gt=0,lte=2147483647"`
	Reason    string    `json:"reason" validate:"required,nonul"`
	User      string    `json:"user" validate:"required,max=255,nonul"`
	Meta
}

func (a *Adjustment) Key() int64 { return a.ID }

// Activity is an audit trail entry.
type Activity struct {
	ID       int64     `json:"id" validate:"gt=0"`
	Date     time.Time `json:"date" validate:"required"`
	Activity string    `json:"activity" validate:"required,max=255,nonul"`
	User     string    `json:"user" validate:"required,max=255,nonul"`
	Details  string    `json:"details" validate:"nonul"`
	Meta
}

func (a *Activity) Key() int64 { return a.ID }

// Settings is the per-tenant singleton. It has no id of its own: the tenant is the key.
type Settings struct {
	BusinessName      string          `json:"business_name" validate:"required,max=255,nonul"`
	Currency          string          `json:"currency" validate:"required,len=3,nonul"`
	TaxRate           decimal.Decimal `json:"tax_rate" validate:"gte=0,lte=100"`
	LowStockThreshold int             `json:"low_stock_threshold" validate:"gte=0,lte=2147483647"`
	InvoicePrefix     string          `json:"invoice_prefix" validate:"required,max=10,nonul"`
	PurchasePrefix    string          `json:"purchase_prefix" validate:"required,max=10,nonul"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" validate:"required"`
}

func (s *Settings) Key() int64          { return 0 }
func (s *Settings) Modified() time.Time { return s.UpdatedAt }

func (s *Settings) Touch(now time.Time) {
	s.UpdatedAt = now
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
}

// DefaultSettings mirrors what a freshly installed client starts with.
func DefaultSettings() Settings {
	return Settings{
		BusinessName:      "StockMaster UG",
		Currency:          "UGX",
		TaxRate:           decimal.NewFromInt(18),
		LowStockThreshold: 5,
		InvoicePrefix:     "INV",
		PurchasePrefix:    "PUR",
	}
}
