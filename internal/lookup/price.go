package lookup

// Price fields arrive in two textual shapes: a whole-number field ("799",
// "1,234") and a formatted currency string ("$1,234.56") whose digits carry
// the cents inline. Both normalize to whole minor-currency units; cents are
// truncated, not rounded.

// parseWholePrice strips everything but digits and reads the remainder
// as-is. Returns 0 when no digits remain (price unavailable).
func parseWholePrice(s string) int64 {
	return digitsValue(stripNonDigits(s))
}

// parseFormattedPrice strips everything but digits and divides by 100 when
// more than two digits remain, since the source appends the fractional part
// to the integer part ("1,234.56" -> "123456" -> 1234).
func parseFormattedPrice(s string) int64 {
	d := stripNonDigits(s)
	v := digitsValue(d)
	if len(d) > 2 {
		return v / 100
	}
	return v
}

func stripNonDigits(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func digitsValue(d string) int64 {
	// Cap the digits we honor; anything longer is garbage input, not a price.
	if len(d) > 15 {
		return 0
	}
	var v int64
	for i := 0; i < len(d); i++ {
		v = v*10 + int64(d[i]-'0')
	}
	return v
}
