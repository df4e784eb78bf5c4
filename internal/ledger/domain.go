package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and sheet format of ledger dates.
const DateLayout = "2006-01-02"

// Header lists the ledger columns in sheet order.
var Header = []string{
	"Entry_ID",
	"DATE",
	"PARTICULARS",
	"Voucher_BillNo",
	"RECEIPTS_Quantity",
	"RECEIPTS_Amount",
	"ISSUED_Quantity",
	"ISSUED_Amount",
	"BALANCE_Quantity",
	"BALANCE_Amount",
}

// Date is a calendar date without time-of-day.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in t's location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD, RFC 3339 and RFC 1123 timestamps.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, time.RFC3339, time.RFC1123} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t), nil
		}
	}
	return Date{}, fmt.Errorf("ledger: invalid date %q", s)
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON renders the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON parses a quoted date string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("ledger: date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Draft carries every ledger column except the store-assigned id.
type Draft struct {
	Date             Date            `json:"DATE"`
	Particulars      string          `json:"PARTICULARS"`
	VoucherBillNo    string          `json:"Voucher_BillNo"`
	ReceiptsQuantity int64           `json:"RECEIPTS_Quantity"`
	ReceiptsAmount   decimal.Decimal `json:"RECEIPTS_Amount"`
	IssuedQuantity   int64           `json:"ISSUED_Quantity"`
	IssuedAmount     decimal.Decimal `json:"ISSUED_Amount"`
	BalanceQuantity  int64           `json:"BALANCE_Quantity"`
	BalanceAmount    decimal.Decimal `json:"BALANCE_Amount"`
}

// Entry is one persisted ledger row.
type Entry struct {
	ID int64 `json:"Entry_ID" validate:"required"`
	Draft
}

// Row renders the entry in Header order for spreadsheet output.
func (e Entry) Row() []any {
	return []any{
		e.ID,
		e.Date.String(),
		e.Particulars,
		e.VoucherBillNo,
		e.ReceiptsQuantity,
		e.ReceiptsAmount.InexactFloat64(),
		e.IssuedQuantity,
		e.IssuedAmount.InexactFloat64(),
		e.BalanceQuantity,
		e.BalanceAmount.InexactFloat64(),
	}
}

// Receipt opens a ledger row for a newly received document. Nothing has
// been issued yet, so balances mirror receipts.
func Receipt(date Date, particulars, billNo string, quantity int64, amount decimal.Decimal) Draft {
	return Draft{
		Date:             date,
		Particulars:      particulars,
		VoucherBillNo:    billNo,
		ReceiptsQuantity: quantity,
		ReceiptsAmount:   amount,
		IssuedQuantity:   0,
		IssuedAmount:     decimal.Zero,
		BalanceQuantity:  quantity,
		BalanceAmount:    amount,
	}
}

// Patch names the columns an update overwrites. Nil fields, whether
// omitted or sent as null, leave the stored value alone.
type Patch struct {
	ID               int64            `json:"Entry_ID" validate:"required"`
	Date             *Date            `json:"DATE"`
	Particulars      *string          `json:"PARTICULARS"`
	VoucherBillNo    *string          `json:"Voucher_BillNo"`
	ReceiptsQuantity *int64           `json:"RECEIPTS_Quantity"`
	ReceiptsAmount   *decimal.Decimal `json:"RECEIPTS_Amount"`
	IssuedQuantity   *int64           `json:"ISSUED_Quantity"`
	IssuedAmount     *decimal.Decimal `json:"ISSUED_Amount"`
	BalanceQuantity  *int64           `json:"BALANCE_Quantity"`
	BalanceAmount    *decimal.Decimal `json:"BALANCE_Amount"`
}

// PatchFrom names every column of e.
func PatchFrom(e Entry) Patch {
	d := e.Draft
	return Patch{
		ID:               e.ID,
		Date:             &d.Date,
		Particulars:      &d.Particulars,
		VoucherBillNo:    &d.VoucherBillNo,
		ReceiptsQuantity: &d.ReceiptsQuantity,
		ReceiptsAmount:   &d.ReceiptsAmount,
		IssuedQuantity:   &d.IssuedQuantity,
		IssuedAmount:     &d.IssuedAmount,
		BalanceQuantity:  &d.BalanceQuantity,
		BalanceAmount:    &d.BalanceAmount,
	}
}

// Empty reports whether the patch names no column.
func (p Patch) Empty() bool {
	return p.Date == nil && p.Particulars == nil && p.VoucherBillNo == nil &&
		p.ReceiptsQuantity == nil && p.ReceiptsAmount == nil &&
		p.IssuedQuantity == nil && p.IssuedAmount == nil &&
		p.BalanceQuantity == nil && p.BalanceAmount == nil
}

// Apply returns d with the named columns replaced.
func (p Patch) Apply(d Draft) Draft {
	if p.Date != nil {
		d.Date = *p.Date
	}
	if p.Particulars != nil {
		d.Particulars = *p.Particulars
	}
	if p.VoucherBillNo != nil {
		d.VoucherBillNo = *p.VoucherBillNo
	}
	if p.ReceiptsQuantity != nil {
		d.ReceiptsQuantity = *p.ReceiptsQuantity
	}
	if p.ReceiptsAmount != nil {
		d.ReceiptsAmount = *p.ReceiptsAmount
	}
	if p.IssuedQuantity != nil {
		d.IssuedQuantity = *p.IssuedQuantity
	}
	if p.IssuedAmount != nil {
		d.IssuedAmount = *p.IssuedAmount
	}
	if p.BalanceQuantity != nil {
		d.BalanceQuantity = *p.BalanceQuantity
	}
	if p.BalanceAmount != nil {
		d.BalanceAmount = *p.BalanceAmount
	}
	return d
}

// Document is one uploaded file.
type Document struct {
	Filename string
	MimeType string
	Open     func() (io.ReadCloser, error)
}

// Read returns the full document content.
func (d Document) Read() ([]byte, error) {
	if d.Open == nil {
		return nil, fmt.Errorf("ledger: document %q has no content", d.Filename)
	}
	rc, err := d.Open()
	if err != nil {
		return nil, fmt.Errorf("ledger: open %q: %w", d.Filename, err)
	}
	defer func() {
		_ = rc.Close()
	}()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("ledger: read %q: %w", d.Filename, err)
	}
	return buf.Bytes(), nil
}
