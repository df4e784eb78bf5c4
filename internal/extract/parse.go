package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Field defaults applied when the backend omits a value.
const (
	DefaultDescription = "Processed File"
	DefaultBillNo      = "N/A"
)

// Outcome tells which parsing branch produced a Result.
type Outcome int

const (
	// Structured means the backend text was a JSON object.
	Structured Outcome = iota + 1
	// Freeform means the whole text became the description.
	Freeform
)

func (o Outcome) String() string {
	switch o {
	case Structured:
		return "structured"
	case Freeform:
		return "freeform"
	default:
		return "unknown"
	}
}

// Fields are the financial values read from one document.
type Fields struct {
	Description string
	BillNo      string
	Quantity    int64
	Amount      decimal.Decimal
}

// DefaultFields returns the values used when nothing was extracted.
func DefaultFields() Fields {
	return Fields{
		Description: DefaultDescription,
		BillNo:      DefaultBillNo,
		Quantity:    0,
		Amount:      decimal.Zero,
	}
}

// Result is the parsed backend response.
type Result struct {
	Fields  Fields
	Outcome Outcome
	Raw     string
}

// Parse turns backend text into Fields. Text that is a JSON object is read
// field by field; anything else becomes the description.
func Parse(text string) Result {
	body := unfence(strings.TrimSpace(text))
	if strings.HasPrefix(body, "{") {
		var obj map[string]any
		dec := json.NewDecoder(strings.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&obj); err == nil {
			return Result{Fields: fromObject(obj), Outcome: Structured, Raw: text}
		}
	}
	fields := DefaultFields()
	fields.Description = text
	return Result{Fields: fields, Outcome: Freeform, Raw: text}
}

// unfence strips a surrounding ``` or ```json markdown block.
func unfence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := s[3 : len(s)-3]
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 && !strings.ContainsAny(inner[:nl], "{}") {
		inner = inner[nl+1:]
	}
	return strings.TrimSpace(inner)
}

func fromObject(obj map[string]any) Fields {
	fields := DefaultFields()
	if v, ok := present(obj, "description"); ok {
		fields.Description = text(v)
	}
	if v, ok := present(obj, "bill_no"); ok {
		fields.BillNo = text(v)
	}
	if v, ok := present(obj, "quantity"); ok {
		if q, ok := quantity(v); ok {
			fields.Quantity = q
		}
	}
	if v, ok := present(obj, "amount"); ok {
		if d, err := number(v); err == nil {
			fields.Amount = d
		}
	}
	return fields
}

// maxQuantity is the largest value the INTEGER quantity columns hold.
var maxQuantity = decimal.NewFromInt(math.MaxInt32)

// quantity truncates v to a whole count clamped at zero. Counts beyond
// maxQuantity are uncoercible.
func quantity(v any) (int64, bool) {
	d, err := number(v)
	if err != nil {
		return 0, false
	}
	d = d.Truncate(0)
	if d.IsNegative() {
		return 0, true
	}
	if d.GreaterThan(maxQuantity) {
		return 0, false
	}
	return d.IntPart(), true
}

func present(obj map[string]any, key string) (any, bool) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// number coerces JSON numbers and numeric strings such as "$1,250.50".
func number(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case json.Number:
		return decimal.NewFromString(t.String())
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, fmt.Errorf("extract: non-finite number")
		}
		return decimal.NewFromFloat(t), nil
	case bool:
		return decimal.Zero, fmt.Errorf("extract: boolean is not a number")
	case string:
		cleaned := strings.Map(func(r rune) rune {
			switch {
			case r >= '0' && r <= '9', r == '.', r == '-', r == '+':
				return r
			default:
				return -1
			}
		}, t)
		if cleaned == "" {
			return decimal.Zero, fmt.Errorf("extract: %q is not a number", t)
		}
		if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
			return decimal.Zero, fmt.Errorf("extract: %q is not a number", t)
		}
		return decimal.NewFromString(cleaned)
	default:
		return decimal.Zero, fmt.Errorf("extract: unsupported value %T", v)
	}
}
