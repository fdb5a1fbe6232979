// Package tghtml converts lightweight Markdown into the restricted HTML
// dialect accepted by Telegram's HTML parse mode.
//
// The converter guarantees that arbitrary input can never break message
// rendering: structural characters from the source text are escaped before
// any tag is synthesized, and code content is carried through placeholders
// so it displays literally. Nested emphasis (bold inside italic and the
// reverse) is converted best-effort; it is a known limitation, not a bug.
package tghtml

import (
	"fmt"
	"regexp"
	"strings"
)

// doc is the value threaded through the conversion pipeline.
// Each stage returns a new doc; none mutates shared state.
type doc struct {
	text   string
	fenced []string
	inline []string
}

var stages = []func(doc) doc{
	extractFenced,
	extractInline,
	escapeText,
	renderTags,
	restoreCode,
	tidy,
}

// Convert renders Markdown as Telegram HTML.
func Convert(md string) string {
	d := doc{text: md}
	for _, stage := range stages {
		d = stage(d)
	}
	return d.text
}

var (
	fencedRe = regexp.MustCompile("(?s)```[a-zA-Z0-9_+.-]*\n?(.*?)```")
	inlineRe = regexp.MustCompile("`([^`\n]+)`")

	hrRe      = regexp.MustCompile(`(?m)^[ \t]*(?:-{3,}|\*{3,}|_{3,})[ \t]*\n?`)
	headingRe = regexp.MustCompile(`(?m)^#{1,6}[ \t]+(.+)$`)

	boldStarRe    = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	boldUnderRe   = regexp.MustCompile(`__([^_\n]+)__`)
	italicStarRe  = regexp.MustCompile(`\*([^*\n]+)\*`)
	italicUnderRe = regexp.MustCompile(`\b_([^_\n]+)_\b`)

	linkRe = regexp.MustCompile(`\[([^\]\n]+)\]\(([^)\s]+)\)`)

	subBulletRe = regexp.MustCompile(`(?m)^(?:[ ]{2,}|\t+)[-*][ \t]+`)
	bulletRe    = regexp.MustCompile(`(?m)^[-*][ \t]+`)
	numberedRe  = regexp.MustCompile(`(?m)^\d+\.[ \t]+`)

	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// escaper covers the three characters Telegram treats as structure.
var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape makes plain text safe for inclusion in an HTML-mode message.
func Escape(s string) string { return escaper.Replace(s) }

func fencedToken(i int) string { return fmt.Sprintf("\x00PRE%d\x00", i) }
func inlineToken(i int) string { return fmt.Sprintf("\x00CODE%d\x00", i) }

// extractFenced pulls ``` blocks out of the text verbatim. The placeholder
// bytes cannot occur in valid input, so later stages never touch the code.
func extractFenced(d doc) doc {
	d.text = fencedRe.ReplaceAllStringFunc(d.text, func(m string) string {
		body := fencedRe.FindStringSubmatch(m)[1]
		d.fenced = append(d.fenced, body)
		return fencedToken(len(d.fenced) - 1)
	})
	return d
}

func extractInline(d doc) doc {
	d.text = inlineRe.ReplaceAllStringFunc(d.text, func(m string) string {
		body := inlineRe.FindStringSubmatch(m)[1]
		d.inline = append(d.inline, body)
		return inlineToken(len(d.inline) - 1)
	})
	return d
}

// escapeText must run before any tag synthesis so that source text can never
// be mistaken for markup. Code placeholders are escaped separately on
// re-insertion.
func escapeText(d doc) doc {
	d.text = escaper.Replace(d.text)
	return d
}

// renderTags synthesizes Telegram tags from the Markdown that remains.
// Every open tag is emitted together with its close in one replacement, so
// the output can never contain an unterminated tag. Double-delimiter
// emphasis is consumed before the single forms so `**x**` never half-matches
// as italic.
func renderTags(d doc) doc {
	t := d.text

	t = hrRe.ReplaceAllString(t, "")
	t = headingRe.ReplaceAllString(t, "<b>$1</b>")

	t = boldStarRe.ReplaceAllString(t, "<b>$1</b>")
	t = boldUnderRe.ReplaceAllString(t, "<b>$1</b>")
	t = italicStarRe.ReplaceAllString(t, "<i>$1</i>")
	t = italicUnderRe.ReplaceAllString(t, "<i>$1</i>")

	t = linkRe.ReplaceAllStringFunc(t, func(m string) string {
		sub := linkRe.FindStringSubmatch(m)
		href := strings.ReplaceAll(sub[2], `"`, "&quot;")
		return `<a href="` + href + `">` + sub[1] + `</a>`
	})

	// Sub-bullets before top-level ones: the top-level pattern would also
	// match the marker of an indented line once its indent is consumed.
	t = subBulletRe.ReplaceAllString(t, "  ◦ ")
	t = bulletRe.ReplaceAllString(t, "• ")
	t = numberedRe.ReplaceAllString(t, "• ")

	d.text = t
	return d
}

func restoreCode(d doc) doc {
	t := d.text
	for i, body := range d.fenced {
		block := "<pre>" + escaper.Replace(strings.Trim(body, "\n")) + "</pre>"
		t = strings.Replace(t, fencedToken(i), block, 1)
	}
	for i, body := range d.inline {
		t = strings.Replace(t, inlineToken(i), "<code>"+escaper.Replace(body)+"</code>", 1)
	}
	d.text = t
	return d
}

func tidy(d doc) doc {
	d.text = strings.TrimSpace(blankRunRe.ReplaceAllString(d.text, "\n\n"))
	return d
}
