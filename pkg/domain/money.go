package domain

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	dErrors "claimdesk/pkg/domain-errors"
)

// maxCents keeps amounts inside NUMERIC(14,2).
const maxCents = 999_999_999_999_99

// Amount is a non-negative monetary value in cents. It encodes as a JSON number
// with two fractional digits and maps to NUMERIC(14,2).
type Amount int64

// String renders the decimal form, e.g. "120.50".
func (a Amount) String() string {
	return fmt.Sprintf("%d.%02d", int64(a)/100, int64(a)%100)
}

// ParseAmount parses a plain decimal with at most two fractional digits.
// Signs, exponents and negative values are rejected.
func ParseAmount(s string, field string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || !allDigits(whole) || (hasFrac && (frac == "" || len(frac) > 2 || !allDigits(frac))) {
		return 0, dErrors.New(dErrors.CodeValidation, field+" must be a non-negative amount with at most two decimals")
	}
	if len(whole) > 12 {
		return 0, dErrors.New(dErrors.CodeValidation, field+" is too large")
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, field+" is too large")
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)
	total := units*100 + cents
	if total > maxCents {
		return 0, dErrors.New(dErrors.CodeValidation, field+" is too large")
	}
	return Amount(total), nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MarshalJSON encodes as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" {
		return dErrors.New(dErrors.CodeValidation, "value must not be null")
	}
	v, err := ParseAmount(raw, "value")
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Value implements driver.Valuer using the decimal text form.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (a *Amount) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case int64:
		*a = Amount(v * 100)
		return nil
	case float64:
		raw = strconv.FormatFloat(v, 'f', 2, 64)
	default:
		return fmt.Errorf("scan amount: unsupported type %T", src)
	}
	v, err := ParseAmount(raw, "amount")
	if err != nil {
		return fmt.Errorf("scan amount %q: %w", raw, err)
	}
	*a = v
	return nil
}
