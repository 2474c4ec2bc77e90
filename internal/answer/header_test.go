package answer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagEmoji(t *testing.T) {
	assert.Equal(t, "🇨🇭", FlagEmoji("CH"))
	assert.Equal(t, "🇫🇷", FlagEmoji("FR"))
	assert.Equal(t, "🇺🇸", FlagEmoji("us"))
	assert.Empty(t, FlagEmoji("CHE"))
	assert.Empty(t, FlagEmoji(""))
	assert.Empty(t, FlagEmoji("C1"))
}

func TestBuildHeader(t *testing.T) {
	got := BuildHeader([]string{"FR", "CH"}, map[string]bool{"CH": true})

	assert.True(t, strings.HasPrefix(got, "# Country Detection\n\n"))
	assert.Contains(t, got, "| Detected in Query | Document Available |")
	assert.Contains(t, got, "| 🇨🇭 (CH) | ✅ |")
	assert.Contains(t, got, "| 🇫🇷 (FR) | ❌ |")
	assert.True(t, strings.HasSuffix(got, "\n---\n\n"))

	// Rows are sorted by code regardless of detection order.
	assert.Less(t, strings.Index(got, "(CH)"), strings.Index(got, "(FR)"))
}

func TestBuildHeader_EachCodeOnce(t *testing.T) {
	got := BuildHeader([]string{"CH", "FR", "DE"}, map[string]bool{"CH": true, "FR": true, "DE": true})
	assert.Equal(t, 1, strings.Count(got, "(CH)"))
	assert.Equal(t, 1, strings.Count(got, "(FR)"))
	assert.Equal(t, 1, strings.Count(got, "(DE)"))
}

func TestBuildHeader_Empty(t *testing.T) {
	assert.Empty(t, BuildHeader(nil, nil))
}
