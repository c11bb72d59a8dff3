package engine

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// normalizeAST prints the tree one node per line, indented by depth. Layout
// is dropped: whitespace between tokens never shows up, string literals are
// printed by value regardless of their quotes, and comments lose trailing
// whitespace on each line.
func normalizeAST(root *sitter.Node, src []byte) string {
	var b strings.Builder
	var walk func(n *sitter.Node, depth int)
	walk = func(n *sitter.Node, depth int) {
		pad := strings.Repeat("  ", depth)
		switch typ := n.Type(); {
		case typ == "string" && n.IsNamed():
			fmt.Fprintf(&b, "%sstring %q\n", pad, unquote(n.Content(src)))
			return
		case typ == "comment":
			fmt.Fprintf(&b, "%scomment %q\n", pad, trimLineEnds(n.Content(src)))
			return
		case n.ChildCount() == 0:
			if n.IsNamed() {
				fmt.Fprintf(&b, "%s%s %q\n", pad, typ, n.Content(src))
			} else {
				fmt.Fprintf(&b, "%s%q\n", pad, n.Content(src))
			}
			return
		}
		fmt.Fprintf(&b, "%s%s\n", pad, n.Type())
		// Template literal text between substitutions is not a node of its own.
		gaps := n.Type() == "template_string"
		prev := n.StartByte()
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if gaps && c.StartByte() > prev {
				fmt.Fprintf(&b, "%s  template_chars %q\n", pad, string(src[prev:c.StartByte()]))
			}
			walk(c, depth+1)
			prev = c.EndByte()
		}
	}
	walk(root, 0)
	return b.String()
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func trimLineEnds(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r\f\v")
	}
	return strings.Join(lines, "\n")
}
