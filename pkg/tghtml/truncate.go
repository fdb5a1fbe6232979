package tghtml

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageLen is Telegram's hard message size limit in bytes.
const MaxMessageLen = 4096

const truncationMark = "\n\n...(内容已截断)"

// Truncate cuts s so that the result fits within limit bytes, appending a
// truncation marker. The cut backs off to the nearest preceding newline when
// one lies within 500 bytes of the cut point, which avoids splitting a tag
// or a word mid-way.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		limit = MaxMessageLen
	}
	if len(s) <= limit {
		return s
	}

	cut := limit - 100
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	t := s[:cut]
	if i := strings.LastIndexByte(t, '\n'); i > limit-500 {
		t = t[:i]
	}
	return t + truncationMark
}
