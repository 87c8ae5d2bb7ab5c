package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Amounts are stored platform-wide in the gateway minor unit (paise).
// Conversion to rupees happens only when formatting for humans.

// ToMinorUnit converts whole rupees to paise.
func ToMinorUnit(rupees int64) int64 {
	return rupees * 100
}

// FromMinorUnit converts paise to whole rupees, truncating.
func FromMinorUnit(paise int64) int64 {
	return paise / 100
}

// FormatINR renders a paise amount as a rupee string with thousand
// separators in the Indian grouping (12,34,567.89).
func FormatINR(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	rupees := paise / 100
	frac := paise % 100
	return fmt.Sprintf("%s₹%s.%02d", sign, formatIndianGrouping(rupees), frac)
}

// ParseINRToMinor parses "₹1,234.50" or "1234.5" into paise.
func ParseINRToMinor(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimPrefix(strings.ToLower(s), "rs")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("invalid amount")
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	rupees, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount: %w", err)
	}
	paise := rupees * 100
	if hasFrac {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		p, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount: %w", err)
		}
		if rupees < 0 {
			paise -= p
		} else {
			paise += p
		}
	}
	return paise, nil
}

func formatIndianGrouping(n int64) string {
	str := strconv.FormatInt(n, 10)
	if len(str) <= 3 {
		return str
	}
	head := str[:len(str)-3]
	tail := str[len(str)-3:]
	var out strings.Builder
	for i, c := range head {
		if i != 0 && (len(head)-i)%2 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}
	return out.String() + "," + tail
}
