package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountKind distinguishes the supported discount shapes.
type DiscountKind string

const (
	// DiscountPercentage reduces the order total by a percentage.
	DiscountPercentage DiscountKind = "PERCENTAGE"
	// DiscountRemoveService waives the service charge entirely.
	DiscountRemoveService DiscountKind = "REMOVE_SERVICE"
)

// PaymentMethod is the tender type used to settle an order.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "EFECTIVO"
	PaymentCard     PaymentMethod = "TARJETA"
	PaymentTransfer PaymentMethod = "TRANSFERENCIA"
)

// CompanyInfo is the header block printed at the top of every document.
type CompanyInfo struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
}

// ReceiptItem is one order line as captured at payment time.
type ReceiptItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Notes     string          `json:"notes,omitempty"`
}

// Discount is an adjustment applied to an order before payment.
type Discount struct {
	Kind       DiscountKind    `json:"kind"`
	Percentage decimal.Decimal `json:"percentage,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason,omitempty"`
	Authorizer string          `json:"authorizer,omitempty"`
}

// Payment records how an order, or one part of a split order, was settled.
type Payment struct {
	Method   PaymentMethod   `json:"method"`
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
	Received decimal.Decimal `json:"received,omitempty"`
	Change   decimal.Decimal `json:"change,omitempty"`
}

// SplitPart is one share of a split bill. Consolidated receipts print
// every part on a single ticket.
type SplitPart struct {
	Label   string          `json:"label,omitempty"`
	Method  PaymentMethod   `json:"method"`
	Amount  decimal.Decimal `json:"amount"`
	Items   []ReceiptItem   `json:"items,omitempty"`
}

// ReceiptDocument is the immutable snapshot a customer receipt is
// rendered from. Amounts arrive precomputed; rendering never mutates
// or re-derives monetary values.
type ReceiptDocument struct {
	Company       CompanyInfo     `json:"company"`
	ReceiptNumber int64           `json:"receipt_number"`
	Table         string          `json:"table,omitempty"`
	Waiter        string          `json:"waiter,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Currency      string          `json:"currency"`
	Items         []ReceiptItem   `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ServiceCharge decimal.Decimal `json:"service_charge"`
	Discount      *Discount       `json:"discount,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Payment       *Payment        `json:"payment,omitempty"`
	Splits        []SplitPart     `json:"splits,omitempty"`
}

// ClosureOrder is one settled order inside a daily closure report.
type ClosureOrder struct {
	Number    int64           `json:"number"`
	Table     string          `json:"table,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Currency  string          `json:"currency"`
	Method    PaymentMethod   `json:"method"`
	Total     decimal.Decimal `json:"total"`
	Items     []ReceiptItem   `json:"items,omitempty"`
}

// Expense is a cash outflow recorded during the business day.
type Expense struct {
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
}

// ClosureDocument is the end-of-day cash reconciliation report.
// Drawer amounts are counted per currency; the USD fields stay zero
// for CRC-only days. GeneratedAt stamps the report footer and is
// filled at print time when the caller leaves it empty.
type ClosureDocument struct {
	Company        CompanyInfo     `json:"company"`
	Date           time.Time       `json:"date"`
	GeneratedAt    time.Time       `json:"generated_at,omitempty"`
	OpeningCash    decimal.Decimal `json:"opening_cash"`
	ClosingCash    decimal.Decimal `json:"closing_cash"`
	OpeningCashUSD decimal.Decimal `json:"opening_cash_usd"`
	ClosingCashUSD decimal.Decimal `json:"closing_cash_usd"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	Orders         []ClosureOrder  `json:"orders"`
	Expenses       []Expense       `json:"expenses,omitempty"`
}
