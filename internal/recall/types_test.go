package recall

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSnippet(t *testing.T) {
	short := "small decision"
	if got := snippet(short); got != short {
		t.Errorf("snippet(short) = %q, want unchanged", got)
	}

	long := strings.Repeat("a", snippetLen+50)
	if got := snippet(long); len(got) != snippetLen {
		t.Errorf("snippet(ascii) len = %d, want %d", len(got), snippetLen)
	}

	// 3-byte runes so the byte cap lands mid-rune.
	cjk := strings.Repeat("日", snippetLen)
	got := snippet(cjk)
	if !utf8.ValidString(got) {
		t.Errorf("snippet(cjk) = %q, not valid UTF-8", got)
	}
	if len(got) > snippetLen {
		t.Errorf("snippet(cjk) len = %d, want <= %d", len(got), snippetLen)
	}
	if !strings.HasPrefix(cjk, got) {
		t.Error("snippet(cjk) is not a prefix of the input")
	}
}
