package answer

import (
	"sort"
	"strings"
)

// FlagEmoji converts a two-letter ISO code to its flag emoji by mapping each
// letter onto the Unicode regional indicator block. Invalid input yields "".
func FlagEmoji(code string) string {
	if len(code) != 2 {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(code) {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(r - 'A' + 0x1F1E6)
	}
	return b.String()
}

// BuildHeader renders the country availability table shown above every
// answer: one row per detected code, sorted, marked with whether any
// retrieved chunk carried that jurisdiction. An empty code set yields "".
func BuildHeader(codes []string, found map[string]bool) string {
	if len(codes) == 0 {
		return ""
	}

	sorted := make([]string, len(codes))
	copy(sorted, codes)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString("# Country Detection\n\n")
	b.WriteString("| Detected in Query | Document Available |\n")
	b.WriteString("|:-----------------:|:------------------:|\n")
	for _, code := range sorted {
		icon := "❌"
		if found[code] {
			icon = "✅"
		}
		b.WriteString("| " + FlagEmoji(code) + " (" + code + ") | " + icon + " |\n")
	}
	b.WriteString("\n---\n\n")
	return b.String()
}
