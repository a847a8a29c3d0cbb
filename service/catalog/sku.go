package catalog

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

func abbreviate(s, fallback string, n int) string {
	var b strings.Builder
	written := 0
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		if written >= n {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			written++
		}
	}
	if written == 0 {
		return fallback
	}
	return b.String()
}

// ProductSKU builds NAM-1234 from the product name and a random suffix.
func ProductSKU(name string, rnd func(int) int) string {
	prefix := abbreviate(name, "PRD", 3)
	for utf8.RuneCountInString(prefix) < 3 {
		prefix += "X"
	}
	return fmt.Sprintf("%s-%04d", prefix, rnd(10000))
}

// VariantSKU builds BASE-SIZ-COL-NN where BASE is the parent SKU up to its first dash.
func VariantSKU(parentSKU, size, color string, rnd func(int) int) string {
	base := strings.Split(parentSKU, "-")[0]
	return fmt.Sprintf("%s-%s-%s-%02d", base, abbreviate(size, "UNI", 3), abbreviate(color, "DEF", 3), rnd(100))
}
