package tghtml

import (
	"strings"
	"testing"
)

func TestConvert(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"escapes structural chars", "a < b & c > d", "a &lt; b &amp; c &gt; d"},
		{"heading becomes bold", "# Release Notes", "<b>Release Notes</b>"},
		{"deep heading", "### Fixes", "<b>Fixes</b>"},
		{"bold stars", "**important**", "<b>important</b>"},
		{"bold underscores", "__important__", "<b>important</b>"},
		{"italic stars", "*note*", "<i>note</i>"},
		{"italic underscores", "some _note_ here", "some <i>note</i> here"},
		{"bold not half-matched as italic", "x **y** z", "x <b>y</b> z"},
		{"link", "[docs](https://example.com/a)", `<a href="https://example.com/a">docs</a>`},
		{"link with ampersand", "[q](https://e.com/?a=1&b=2)", `<a href="https://e.com/?a=1&amp;b=2">q</a>`},
		{"inline code kept literal", "run `a < b`", "run <code>a &lt; b</code>"},
		{"bullet", "- first\n- second", "• first\n• second"},
		{"sub bullet", "- top\n  - nested", "• top\n  ◦ nested"},
		{"numbered list", "1. one\n2. two", "• one\n• two"},
		{"horizontal rule dropped", "above\n\n---\n\nbelow", "above\n\nbelow"},
		{"blank runs collapsed", "a\n\n\n\n\nb", "a\n\nb"},
		{"unterminated bold left alone", "**broken", "**broken"},
		{"unterminated code left alone", "`broken", "`broken"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Convert(tc.in); got != tc.want {
				t.Fatalf("Convert(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestConvertFencedBlock(t *testing.T) {
	in := "before\n```go\nif a < b {\n\treturn\n}\n```\nafter"
	got := Convert(in)

	want := "before\n<pre>if a &lt; b {\n\treturn\n}</pre>\nafter"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestConvertCodeNotStyled(t *testing.T) {
	// Markdown syntax inside code must come out literally, not as tags.
	got := Convert("`**bold** and [x](y)`")
	want := "<code>**bold** and [x](y)</code>"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestConvertNeverEmitsRawAngleBrackets(t *testing.T) {
	inputs := []string{
		"<script>alert(1)</script>",
		"generics: Map<K, V> usage",
		"# <b>sneaky</b>",
		"- item with <unclosed",
	}
	for _, in := range inputs {
		out := Convert(in)
		stripped := out
		for _, tag := range []string{"<b>", "</b>", "<i>", "</i>", "<a href=", "</a>", "<code>", "</code>", "<pre>", "</pre>", `">`} {
			stripped = strings.ReplaceAll(stripped, tag, "")
		}
		if strings.ContainsAny(stripped, "<>") {
			t.Fatalf("Convert(%q) leaked raw angle bracket: %q", in, out)
		}
	}
}

func TestEscape(t *testing.T) {
	if got := Escape(`<a href="x">&`); got != `&lt;a href="x"&gt;&amp;` {
		t.Fatalf("Escape = %q", got)
	}
}
