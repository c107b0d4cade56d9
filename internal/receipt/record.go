package receipt

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Placeholder is printed for an empty text field
const Placeholder = "-"

// Store is the shop identity printed in the header
type Store struct {
	Name    string `yaml:"name" json:"name"`
	Address string `yaml:"address" json:"address"`
	Phone   string `yaml:"phone" json:"phone"`
}

// LineItem is one sold article on a kios receipt
type LineItem struct {
	Name     string `yaml:"nama" json:"nama"`
	Quantity int64  `yaml:"qty" json:"qty"`
	Price    int64  `yaml:"harga" json:"harga"`
}

// Subtotal is always derived from quantity and unit price. It saturates
// instead of wrapping on absurd inputs.
func (it LineItem) Subtotal() int64 {
	return mulSat(it.Quantity, it.Price)
}

// Record holds the field values of one receipt. Values are strings,
// numbers, or the line item list stored under "items".
type Record map[string]any

// Int reads a currency or count field. Absent or non-numeric values read as 0;
// strings are parsed from their leading digits.
func (r Record) Int(key string) int64 {
	return toInt(r[key])
}

// Text reads a text field, returning Placeholder when empty
func (r Record) Text(key string) string {
	return r.TextOr(key, Placeholder)
}

// TextOr reads a text field, returning def when empty
func (r Record) TextOr(key, def string) string {
	if s := toText(r[key]); s != "" {
		return s
	}
	return def
}

// Has reports whether the field holds a non-empty value
func (r Record) Has(key string) bool {
	return toText(r[key]) != ""
}

// Items returns the line items, coercing decoded maps from YAML or JSON
func (r Record) Items() []LineItem {
	switch v := r["items"].(type) {
	case []LineItem:
		out := make([]LineItem, len(v))
		for i, it := range v {
			out[i] = LineItem{Name: it.Name, Quantity: nonNegative(it.Quantity), Price: nonNegative(it.Price)}
		}
		return out
	case []any:
		out := make([]LineItem, 0, len(v))
		for _, raw := range v {
			switch m := raw.(type) {
			case map[string]any:
				out = append(out, itemFromMap(m))
			case LineItem:
				out = append(out, LineItem{Name: m.Name, Quantity: nonNegative(m.Quantity), Price: nonNegative(m.Price)})
			}
		}
		return out
	case []map[string]any:
		out := make([]LineItem, 0, len(v))
		for _, m := range v {
			out = append(out, itemFromMap(m))
		}
		return out
	}
	return nil
}

// Clone returns a shallow copy with its own item slice
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	if _, ok := r["items"]; ok {
		out["items"] = r.Items()
	}
	return out
}

func itemFromMap(m map[string]any) LineItem {
	return LineItem{
		Name:     toText(m["nama"]),
		Quantity: nonNegative(toInt(m["qty"])),
		Price:    nonNegative(toInt(m["harga"])),
	}
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

func toInt(v any) int64 {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		if n > math.MaxInt64 {
			return 0
		}
		return int64(n)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		return leadingInt(n.String())
	case string:
		return leadingInt(n)
	}
	return 0
}

func floatToInt(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

// leadingInt parses an optional sign and the digits that follow it,
// ignoring anything after them ("12.5" and "12abc" both read as 12).
func leadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func toText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return strconv.FormatInt(toInt(s), 10)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

func mulSat(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	neg := (a < 0) != (b < 0)
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return math.MaxInt64
	}
	p := a * b
	if p/b != a {
		if neg {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return p
}

func addSat(a, b int64) int64 {
	s := a + b
	switch {
	case a > 0 && b > 0 && s < 0:
		return math.MaxInt64
	case a < 0 && b < 0 && s >= 0:
		return math.MinInt64
	}
	return s
}

func subSat(a, b int64) int64 {
	if b == math.MinInt64 {
		if a >= 0 {
			return math.MaxInt64
		}
		return a - b
	}
	return addSat(a, -b)
}

// sum adds amounts, saturating at the int64 bounds
func sum(vals ...int64) int64 {
	var t int64
	for _, v := range vals {
		t = addSat(t, v)
	}
	return t
}
