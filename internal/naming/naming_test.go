package naming

import (
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", "Untitled"},
		{"a//b::c", "a_b_c"},
		{"__lead__", "lead"},
		{"My Plan", "My_Plan"},
		{`a\b*c?d"e<f>g|h`, "a_b_c_d_e_f_g_h"},
		{"nul\x00byte", "nul_byte"},
		{"   ", "Untitled"},
		{"___", "Untitled"},
		{"회의 노트", "회의_노트"},
		{"keep-dashes.and.dots", "keep-dashes.and.dots"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Sanitize(tc.in), "Sanitize(%q)", tc.in)
	}
}

func TestSanitize_LongTitleTruncated(t *testing.T) {
	title := strings.Repeat("x", 250)
	got := Sanitize(title)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxBaseLength)
	assert.False(t, strings.HasSuffix(got, "_"))
}

func TestSanitize_TruncationTrimsTrailingUnderscore(t *testing.T) {
	// Rune 100 lands on a separator, which must not survive the cut.
	title := strings.Repeat("a", 99) + " tail"
	got := Sanitize(title)
	assert.Equal(t, strings.Repeat("a", 99), got)
}

func TestSanitize_CountsRunesNotBytes(t *testing.T) {
	title := strings.Repeat("가", 150)
	got := Sanitize(title)
	require.True(t, utf8.ValidString(got))
	assert.Equal(t, MaxBaseLength, utf8.RuneCountInString(got))
}

func TestAllocate_FreeBaseKept(t *testing.T) {
	got := Allocate(func(string) bool { return false }, "Plan", time.Now)
	assert.Equal(t, "Plan", got)
}

func TestAllocate_ProbesSequentially(t *testing.T) {
	taken := map[string]bool{"Plan": true, "Plan_1": true}
	got := Allocate(func(id string) bool { return taken[id] }, "Plan", time.Now)
	assert.Equal(t, "Plan_2", got)
}

func TestAllocate_FallsBackToTimestamp(t *testing.T) {
	fixed := time.UnixMilli(1700000000123)
	probes := 0
	got := Allocate(func(string) bool {
		probes++
		return true
	}, "Plan", func() time.Time { return fixed })

	assert.Equal(t, "Plan_"+strconv.FormatInt(fixed.UnixMilli(), 10), got)
	// Base plus MaxProbes numbered candidates; the fallback is not checked.
	assert.Equal(t, MaxProbes+1, probes)
}
