package core

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a decimal string to a signed amount rounded to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted, an optional
// leading sign is honoured and the third decimal place is rounded half-up.
// Zero is rejected: a ledger row always moves money.
//
//	ParseAmount("-12,345") -> -12.35, nil
func ParseAmount(s string) (float64, error) {
	cents, err := ParseAmountToCents(s)
	if err != nil {
		return 0, err
	}
	return float64(cents) / 100.0, nil
}

// ParseAmountToCents is ParseAmount without the final conversion.
func ParseAmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	sign := int64(1)
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64-1 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents == 0 {
		return 0, ErrInvalidAmount
	}
	return sign * cents, nil
}

// FormatAmount renders an amount with two decimals.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// AmountText holds an amount as typed by the user. It decodes from either
// a JSON string or a JSON number so forms and scripts can both post it.
type AmountText string

func (a *AmountText) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return ErrInvalidAmount
	}
	*a = AmountText(n.String())
	return nil
}
