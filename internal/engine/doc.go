package engine

import (
	"fmt"
	"strings"
)

// DocKind identifies a node of the intermediate layout document.
type DocKind int

const (
	DocText DocKind = iota
	DocConcat
	DocIndent
	DocHardline
)

// Doc is the intermediate layout document engines print before rendering
// text. Only the built-in shapes are used: text, concat, indent and hardline.
type Doc struct {
	Kind  DocKind
	Text  string
	Parts []*Doc
}

func text(s string) *Doc       { return &Doc{Kind: DocText, Text: s} }
func concat(parts ...*Doc) *Doc { return &Doc{Kind: DocConcat, Parts: parts} }
func indent(d *Doc) *Doc        { return &Doc{Kind: DocIndent, Parts: []*Doc{d}} }

var hardline = &Doc{Kind: DocHardline}

// docFromText builds a document out of already laid-out text: one text part
// per line, wrapped in as many indents as its leading whitespace spans.
func docFromText(s string, tabWidth int) *Doc {
	if tabWidth <= 0 {
		tabWidth = 2
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	parts := make([]*Doc, 0, 2*len(lines))
	for _, line := range lines {
		content := strings.TrimLeft(line, " \t")
		if content != "" {
			lead := line[:len(line)-len(content)]
			width := indentWidth([]byte(lead), tabWidth)
			d := text(strings.Repeat(" ", width%tabWidth) + content)
			for i := 0; i < width/tabWidth; i++ {
				d = indent(d)
			}
			parts = append(parts, d)
		}
		parts = append(parts, hardline)
	}
	return concat(parts...)
}

// RenderDoc renders doc in builder syntax, e.g.
//
//	concat([
//	  indent("x;"),
//	  hardline
//	])
func RenderDoc(doc *Doc) string {
	var b strings.Builder
	renderDoc(&b, doc, 0)
	b.WriteByte('\n')
	return b.String()
}

func renderDoc(b *strings.Builder, d *Doc, depth int) {
	if d == nil {
		b.WriteString(`""`)
		return
	}
	switch d.Kind {
	case DocText:
		fmt.Fprintf(b, "%q", d.Text)
	case DocHardline:
		b.WriteString("hardline")
	case DocIndent:
		b.WriteString("indent(")
		for _, p := range d.Parts {
			renderDoc(b, p, depth)
		}
		b.WriteString(")")
	case DocConcat:
		if len(d.Parts) == 0 {
			b.WriteString("concat([])")
			return
		}
		pad := strings.Repeat("  ", depth+1)
		b.WriteString("concat([\n")
		for i, p := range d.Parts {
			b.WriteString(pad)
			renderDoc(b, p, depth+1)
			if i < len(d.Parts)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString("])")
	}
}
