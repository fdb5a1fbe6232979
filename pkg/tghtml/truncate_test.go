package tghtml

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateShortInputUnchanged(t *testing.T) {
	s := "short message"
	if got := Truncate(s, MaxMessageLen); got != s {
		t.Fatalf("short input was modified: %q", got)
	}
}

func TestTruncateFitsLimit(t *testing.T) {
	s := strings.Repeat("a", 5000)
	got := Truncate(s, MaxMessageLen)
	if len(got) > MaxMessageLen {
		t.Fatalf("result is %d bytes, limit %d", len(got), MaxMessageLen)
	}
	if !strings.HasSuffix(got, truncationMark) {
		t.Fatalf("missing truncation marker: %q", got[len(got)-30:])
	}
}

func TestTruncateBacksOffToNewline(t *testing.T) {
	s := strings.Repeat("x", 3990) + "\n" + strings.Repeat("y", 1000)
	got := Truncate(s, MaxMessageLen)
	if strings.Contains(got, "y") {
		t.Fatalf("cut should have backed off to the newline before the y-run")
	}
	if !strings.HasSuffix(got, truncationMark) {
		t.Fatalf("missing truncation marker")
	}
}

func TestTruncateKeepsUTF8Valid(t *testing.T) {
	s := strings.Repeat("消息内容", 500) // 6000 bytes of multibyte runes
	for _, limit := range []int{4096, 4097, 4098, 5000} {
		got := Truncate(s, limit)
		if !utf8.ValidString(got) {
			t.Fatalf("limit %d produced invalid UTF-8", limit)
		}
		if len(got) > limit {
			t.Fatalf("limit %d: result is %d bytes", limit, len(got))
		}
	}
}

func TestTruncateZeroLimitUsesDefault(t *testing.T) {
	s := strings.Repeat("b", 6000)
	got := Truncate(s, 0)
	if len(got) > MaxMessageLen {
		t.Fatalf("result is %d bytes, want <= %d", len(got), MaxMessageLen)
	}
}
