package engine

import (
	"bytes"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// verbatimTypes are nodes whose text must survive byte for byte when they
// span lines: whitespace inside them is content, not layout.
var verbatimTypes = map[string]bool{
	"template_string": true,
	"string":          true,
	"comment":         true,
	"jsx_text":        true,
	"regex":           true,
}

type span struct{ start, end int }

type line struct {
	start, end int // end excludes the newline
	newline    bool
	indentEnd  int // first byte after leading blanks
	contentEnd int // first byte of trailing whitespace
}

func (l line) blank() bool { return l.indentEnd == l.contentEnd }

// layout rewrites a parsed source: indentation is converted to the configured
// style, trailing whitespace is dropped, runs of blank lines are collapsed to
// one, leading blank lines are removed, the output ends in exactly one
// newline, and string quotes are normalised where no escaping is involved.
// Only lines overlapping the configured range are touched.
type layout struct {
	src      []byte
	opts     Options
	verbatim []span
	quotes   map[int]byte
	rs, re   int
}

func newLayout(src []byte, root *sitter.Node, opts Options) *layout {
	l := &layout{src: src, opts: opts, quotes: map[int]byte{}, rs: opts.RangeStart, re: opts.RangeEnd}
	if l.re < 0 || l.re > len(src) {
		l.re = len(src)
	}
	if l.rs > len(src) {
		l.rs = len(src)
	}
	if root != nil {
		l.collect(root)
	}
	return l
}

func (l *layout) collect(n *sitter.Node) {
	start, end := int(n.StartByte()), int(n.EndByte())
	if verbatimTypes[n.Type()] && bytes.IndexByte(l.src[start:end], '\n') >= 0 {
		l.verbatim = append(l.verbatim, span{start, end})
	}
	if n.Type() == "string" && n.IsNamed() {
		l.quote(n, start, end)
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		l.collect(n.Child(i))
	}
}

// quote records delimiter swaps for a string literal whose body contains no
// quote characters, so the swap cannot change its value.
func (l *layout) quote(n *sitter.Node, start, end int) {
	if p := n.Parent(); p != nil && strings.HasPrefix(p.Type(), "jsx_") {
		return
	}
	if start < l.rs || end > l.re || end-start < 2 {
		return
	}
	raw := l.src[start:end]
	q := raw[0]
	if (q != '"' && q != '\'') || raw[len(raw)-1] != q {
		return
	}
	body := raw[1 : len(raw)-1]
	if bytes.ContainsAny(body, "'\"\n") {
		return
	}
	want := byte('"')
	if l.opts.SingleQuote {
		want = '\''
	}
	if q != want {
		l.quotes[start] = want
		l.quotes[end-1] = want
	}
}

// inVerbatim reports whether offset lies strictly inside a verbatim span.
func (l *layout) inVerbatim(off int) bool {
	for _, s := range l.verbatim {
		if s.start < off && off < s.end {
			return true
		}
	}
	return false
}

// continues reports whether a verbatim span runs through the newline at off.
func (l *layout) continues(off int) bool {
	for _, s := range l.verbatim {
		if s.start <= off && off < s.end {
			return true
		}
	}
	return false
}

func (l *layout) inRange(ln line) bool {
	return ln.start < l.re && ln.end >= l.rs || (ln.start == ln.end && ln.start == l.rs)
}

func splitLines(src []byte) []line {
	var lines []line
	start := 0
	for start <= len(src) {
		end := bytes.IndexByte(src[start:], '\n')
		ln := line{start: start}
		if end < 0 {
			ln.end = len(src)
		} else {
			ln.end = start + end
			ln.newline = true
		}
		ln.indentEnd = ln.start
		for ln.indentEnd < ln.end && (src[ln.indentEnd] == ' ' || src[ln.indentEnd] == '\t') {
			ln.indentEnd++
		}
		ln.contentEnd = ln.end
		for ln.contentEnd > ln.indentEnd && isBlank(src[ln.contentEnd-1]) {
			ln.contentEnd--
		}
		if ln.newline || ln.start < ln.end {
			lines = append(lines, ln)
		}
		if !ln.newline {
			break
		}
		start = ln.end + 1
	}
	return lines
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v'
}

func indentWidth(lead []byte, tabWidth int) int {
	w := 0
	for _, c := range lead {
		if c == '\t' {
			w += tabWidth
		} else {
			w++
		}
	}
	return w
}

func (l *layout) indent(lead []byte) string {
	w := indentWidth(lead, l.opts.TabWidth)
	if l.opts.UseTabs {
		return strings.Repeat("\t", w/l.opts.TabWidth) + strings.Repeat(" ", w%l.opts.TabWidth)
	}
	return strings.Repeat(" ", w)
}

// run lays out the source and translates cursor (-1 for none) into the
// output.
func (l *layout) run(cursor int) (string, int) {
	var b strings.Builder
	b.Grow(len(l.src))
	mapped := -1
	if cursor > len(l.src) {
		cursor = len(l.src)
	}
	pendingBlank := false
	flush := func() {
		if pendingBlank {
			b.WriteByte('\n')
			pendingBlank = false
		}
	}
	touchesEOF := l.re >= len(l.src)
	for _, ln := range splitLines(l.src) {
		owns := cursor >= ln.start && (cursor < ln.end || cursor == ln.end && (ln.newline || ln.end == len(l.src)))
		if !l.inRange(ln) {
			flush()
			if owns {
				mapped = b.Len() + cursor - ln.start
			}
			b.Write(l.src[ln.start:ln.end])
			if ln.newline {
				b.WriteByte('\n')
			}
			continue
		}
		protectedStart := l.inVerbatim(ln.start)
		protectedEnd := ln.newline && l.continues(ln.end)
		if ln.blank() && !protectedStart && !protectedEnd {
			if owns {
				mapped = b.Len()
			}
			if b.Len() > 0 {
				pendingBlank = true
			}
			continue
		}
		flush()
		lineStart := b.Len()
		lead := l.indent(l.src[ln.start:ln.indentEnd])
		if protectedStart {
			lead = string(l.src[ln.start:ln.indentEnd])
		}
		b.WriteString(lead)
		for i := ln.indentEnd; i < ln.contentEnd; i++ {
			if q, ok := l.quotes[i]; ok {
				b.WriteByte(q)
			} else {
				b.WriteByte(l.src[i])
			}
		}
		trailing := ""
		if protectedEnd {
			trailing = string(l.src[ln.contentEnd:ln.end])
			b.WriteString(trailing)
		}
		if owns {
			switch {
			case cursor < ln.indentEnd:
				mapped = lineStart + min(cursor-ln.start, len(lead))
			case cursor < ln.contentEnd:
				mapped = lineStart + len(lead) + cursor - ln.indentEnd
			default:
				mapped = lineStart + len(lead) + ln.contentEnd - ln.indentEnd + min(cursor-ln.contentEnd, len(trailing))
			}
		}
		if ln.newline || touchesEOF {
			b.WriteByte('\n')
		}
	}
	if !touchesEOF {
		flush()
	}
	out := b.String()
	switch {
	case cursor < 0:
		mapped = -1
	case mapped < 0 || mapped > len(out):
		mapped = len(out)
	}
	return out, mapped
}
