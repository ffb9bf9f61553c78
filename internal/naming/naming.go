// Package naming turns document titles into file-system safe ids and
// resolves id collisions inside a documents directory.
package naming

import (
	"strconv"
	"strings"
	"time"
)

const (
	// MaxBaseLength is the rune limit applied to a sanitized title.
	MaxBaseLength = 100

	// MaxProbes is how many numbered suffixes Allocate tries before it falls
	// back to a timestamp suffix.
	MaxProbes = 1000

	untitled = "Untitled"
)

// Sanitize maps an arbitrary title to a non-empty base id.
// "My Plan: v2?" -> "My_Plan_v2"
func Sanitize(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if unsafeRune(r) {
			r = '_'
		}
		b.WriteRune(r)
	}
	s := strings.Trim(b.String(), "_")
	s = collapseUnderscores(s)

	if s == "" {
		return untitled
	}

	if runes := []rune(s); len(runes) > MaxBaseLength {
		s = strings.TrimRight(string(runes[:MaxBaseLength]), "_")
	}
	return s
}

func unsafeRune(r rune) bool {
	switch r {
	case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0, ' ':
		return true
	}
	return false
}

func collapseUnderscores(s string) string {
	if !strings.Contains(s, "__") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	prev := false
	for _, r := range s {
		if r == '_' {
			if prev {
				continue
			}
			prev = true
		} else {
			prev = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Allocate returns base if exists reports it free, otherwise the first free
// base_N for N in 1..MaxProbes. When every probe is taken it returns
// base_<epoch millis> without checking it; that id is unique in practice but
// not guaranteed.
func Allocate(exists func(id string) bool, base string, now func() time.Time) string {
	if !exists(base) {
		return base
	}
	for i := 1; i <= MaxProbes; i++ {
		candidate := base + "_" + strconv.Itoa(i)
		if !exists(candidate) {
			return candidate
		}
	}
	return base + "_" + strconv.FormatInt(now().UnixMilli(), 10)
}
