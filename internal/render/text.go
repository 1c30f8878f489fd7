package render

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TerminalLine makes provider text safe to print on one terminal line:
// control characters, including escape sequence introducers, are dropped
// and line breaks become spaces.
func TerminalLine(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, s)
}

// TerminalText is TerminalLine for multi-line bodies: newlines and tabs are
// kept, carriage returns dropped.
func TerminalText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, s)
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// HTMLToText flattens an HTML body for the terminal. Scripts, styles and
// head content are skipped, block elements break lines and links keep
// their target in parentheses.
func HTMLToText(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return TerminalText(src)
	}

	var b strings.Builder
	walk(&b, doc)

	lines := strings.Split(b.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	out := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return TerminalText(strings.TrimSpace(out))
}

func walk(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		writeCollapsed(b, n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Head, atom.Title:
			return
		case atom.Br:
			b.WriteString("\n")
			return
		case atom.Li:
			newline(b)
			b.WriteString("• ")
		case atom.P, atom.Div, atom.Tr, atom.Table, atom.Ul, atom.Ol,
			atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
			atom.Blockquote, atom.Pre, atom.Hr:
			newline(b)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(b, c)
	}

	if n.Type != html.ElementNode {
		return
	}
	switch n.DataAtom {
	case atom.A:
		href := attr(n, "href")
		if href != "" && !strings.HasPrefix(href, "#") && href != textOf(n) {
			b.WriteString(" (" + href + ")")
		}
	case atom.P, atom.Div, atom.Table, atom.Ul, atom.Ol,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Pre:
		b.WriteString("\n")
	case atom.Td, atom.Th:
		b.WriteString(" ")
	}
}

func writeCollapsed(b *strings.Builder, s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" && !endsWithSpace(b) {
			b.WriteString(" ")
		}
		return
	}
	if unicode.IsSpace(rune(s[0])) && !endsWithSpace(b) {
		b.WriteString(" ")
	}
	b.WriteString(strings.Join(fields, " "))
	if unicode.IsSpace(rune(s[len(s)-1])) {
		b.WriteString(" ")
	}
}

func newline(b *strings.Builder) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}
}

func endsWithSpace(b *strings.Builder) bool {
	s := b.String()
	return s == "" || strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\n")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.TrimSpace(b.String())
}
