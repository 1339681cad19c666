package validation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// canonicalValue renders one cell in a form stable across both engines.
// The two sides hand back different Go types for the same logical value
// (SQLite NUMERIC as int64 or text, the target's DECIMAL as a byte string,
// DATETIME2 as time.Time against SQLite's stored text), so everything
// numeric funnels through one decimal representation before comparison.
func canonicalValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "1"
		}
		return "0"
	case int64:
		return decimal.NewFromInt(val).String()
	case float64:
		return canonicalDecimal(decimal.NewFromFloat(val))
	case time.Time:
		return canonicalTime(val)
	case []byte:
		if d, err := decimal.NewFromString(string(val)); err == nil {
			return canonicalDecimal(d)
		}
		return "0x" + hex.EncodeToString(val)
	case string:
		if d, err := decimal.NewFromString(val); err == nil {
			return canonicalDecimal(d)
		}
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// canonicalDecimal strips insignificant trailing zeros: 12.3400 and 12.34
// are the same value and must hash the same.
func canonicalDecimal(d decimal.Decimal) string {
	if d.IsZero() {
		return "0"
	}
	s := d.String()
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}

// canonicalTime matches the text form SQLite conventionally stores, with
// sub-second digits only when present.
func canonicalTime(t time.Time) string {
	s := t.UTC().Format("2006-01-02 15:04:05.999999999")
	return s
}

// canonicalRow joins the cells of one row with a separator no value
// produces on its own.
func canonicalRow(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = canonicalValue(v)
	}
	return strings.Join(parts, "\x1f")
}

// hashRows canonicalizes each sampled row, sorts the canonical forms to
// neutralize sampling order, concatenates and hashes. Two equal samples
// hash identically regardless of the order either side returned them in.
func hashRows(rows [][]any) string {
	canonical := make([]string, len(rows))
	for i, row := range rows {
		canonical[i] = canonicalRow(row)
	}
	sort.Strings(canonical)

	h := sha256.New()
	for _, row := range canonical {
		h.Write([]byte(row))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
