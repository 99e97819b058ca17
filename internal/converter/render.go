package converter

import (
	"bytes"
	"errors"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxNesting bounds element depth during rendering.
const maxNesting = 256

// hardBreak marks a <br> inside inline text until the paragraph is flushed.
const hardBreak = "\x00"

var (
	errTooDeep    = errors.New("document nested too deeply")
	blankLineRuns = regexp.MustCompile(`\n{3,}`)
)

// render converts the subtree rooted at root to Markdown.
func render(root *html.Node, base *url.URL) (string, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	r := &renderer{base: base, md: md}
	if err := r.blocks(root, 0); err != nil {
		return "", err
	}
	r.flush()
	if err := md.Build(); err != nil {
		return "", err
	}

	out := blankLineRuns.ReplaceAllString(buf.String(), "\n\n")
	out = strings.TrimSpace(out)
	if out == "" {
		return "", nil
	}
	return out + "\n", nil
}

type renderer struct {
	base   *url.URL
	md     *markdown.Markdown
	inline strings.Builder
}

// flush emits pending inline text as a paragraph.
func (r *renderer) flush() {
	text := cleanInline(r.inline.String())
	r.inline.Reset()
	if text == "" {
		return
	}
	r.md.PlainText(text)
	r.md.PlainText("")
}

// blocks renders the children of n as block content.
func (r *renderer) blocks(n *html.Node, depth int) error {
	if depth > maxNesting {
		return errTooDeep
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := r.block(c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) block(n *html.Node, depth int) error {
	switch n.Type {
	case html.TextNode:
		r.inline.WriteString(n.Data)
		return nil
	case html.ElementNode:
	case html.DocumentNode:
		return r.blocks(n, depth)
	default:
		return nil
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		r.flush()
		text, err := r.inlineText(n, depth)
		if err != nil {
			return err
		}
		r.heading(n.DataAtom, cleanInline(strings.ReplaceAll(text, hardBreak, " ")))
	case atom.Html, atom.Body, atom.Main, atom.Article, atom.Section, atom.Div, atom.P,
		atom.Figure, atom.Figcaption, atom.Dl, atom.Dt, atom.Dd, atom.Details, atom.Summary:
		r.flush()
		if err := r.blocks(n, depth); err != nil {
			return err
		}
		r.flush()
	case atom.Head, atom.Script, atom.Style, atom.Noscript, atom.Template:
	case atom.Ul, atom.Ol:
		r.flush()
		list, err := r.list(n, "", depth)
		if err != nil {
			return err
		}
		if list != "" {
			r.md.PlainText(list)
			r.md.PlainText("")
		}
	case atom.Pre:
		r.flush()
		r.md.PlainText(fencedCode(strings.TrimRight(textContent(n), "\n"), codeLanguage(n)))
		r.md.PlainText("")
	case atom.Table:
		r.flush()
		if err := r.table(n, depth); err != nil {
			return err
		}
	case atom.Blockquote:
		r.flush()
		quote, err := r.blockquote(n, depth)
		if err != nil {
			return err
		}
		if quote != "" {
			r.md.PlainText(quote)
			r.md.PlainText("")
		}
	case atom.Hr:
		r.flush()
		r.md.HorizontalRule()
		r.md.PlainText("")
	default:
		text, err := r.inlineNode(n, depth)
		if err != nil {
			return err
		}
		r.inline.WriteString(text)
	}
	return nil
}

func (r *renderer) heading(level atom.Atom, text string) {
	if text == "" {
		return
	}
	switch level {
	case atom.H1:
		r.md.H1(text)
	case atom.H2:
		r.md.H2(text)
	case atom.H3:
		r.md.H3(text)
	case atom.H4:
		r.md.H4(text)
	case atom.H5:
		r.md.H5(text)
	default:
		r.md.H6(text)
	}
	r.md.PlainText("")
}

// inlineText renders the children of n as inline Markdown.
func (r *renderer) inlineText(n *html.Node, depth int) (string, error) {
	if depth > maxNesting {
		return "", errTooDeep
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s, err := r.inlineNode(c, depth+1)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func (r *renderer) inlineNode(n *html.Node, depth int) (string, error) {
	switch n.Type {
	case html.TextNode:
		return n.Data, nil
	case html.ElementNode:
	default:
		return "", nil
	}

	switch n.DataAtom {
	case atom.Br:
		return hardBreak, nil
	case atom.Script, atom.Style, atom.Noscript, atom.Template:
		return "", nil
	case atom.Code, atom.Kbd, atom.Samp, atom.Tt:
		code := collapseSpace(textContent(n))
		if code == "" {
			return "", nil
		}
		return inlineCode(code), nil
	case atom.Img:
		src := resolveRef(r.base, attr(n, "src"))
		if src == "" {
			return "", nil
		}
		return markdown.Image(collapseSpace(attr(n, "alt")), src), nil
	}

	inner, err := r.inlineText(n, depth)
	if err != nil {
		return "", err
	}

	switch n.DataAtom {
	case atom.Strong, atom.B:
		return wrapInline(inner, markdown.Bold), nil
	case atom.Em, atom.I:
		return wrapInline(inner, markdown.Italic), nil
	case atom.Del, atom.S, atom.Strike:
		return wrapInline(inner, markdown.Strikethrough), nil
	case atom.A:
		return r.link(n, inner), nil
	default:
		return inner, nil
	}
}

func (r *renderer) link(n *html.Node, inner string) string {
	text := cleanInline(strings.ReplaceAll(inner, hardBreak, " "))
	href, ok := resolveLink(r.base, attr(n, "href"))
	if !ok {
		return inner
	}
	if text == "" {
		text = href
	}
	return keepEdgeSpace(inner, markdown.Link(text, href))
}

// wrapInline applies a Markdown emphasis helper to trimmed text, keeping
// surrounding spaces outside the markers.
func wrapInline(inner string, wrap func(string) string) string {
	text := cleanInline(strings.ReplaceAll(inner, hardBreak, " "))
	if text == "" {
		return inner
	}
	return keepEdgeSpace(inner, wrap(text))
}

// keepEdgeSpace surrounds out with a space wherever inner had one, so
// "see<b> this </b>now" does not glue words together.
func keepEdgeSpace(inner, out string) string {
	if startsWithSpace(inner) {
		out = " " + out
	}
	if endsWithSpace(inner) {
		out += " "
	}
	return out
}

// list renders a ul or ol. Lines after an item's first line, including
// nested lists, are indented to the item's content column.
func (r *renderer) list(n *html.Node, indent string, depth int) (string, error) {
	if depth > maxNesting {
		return "", errTooDeep
	}
	ordered := n.DataAtom == atom.Ol
	index := 1
	if start, err := strconv.Atoi(attr(n, "start")); err == nil && ordered {
		index = start
	}

	var items []string
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}

		marker := "- "
		if ordered {
			marker = strconv.Itoa(index) + ". "
			index++
		}
		body, err := r.listItem(li, indent+strings.Repeat(" ", len(marker)), depth+1)
		if err != nil {
			return "", err
		}
		items = append(items, indent+marker+body)
	}
	return strings.Join(items, "\n"), nil
}

// itemPart is one piece of a list item: a paragraph, a rendered block, or
// a nested list that already carries its own indentation.
type itemPart struct {
	text   string
	nested bool
}

// listItem renders the content of li. The first line is returned bare for
// the caller to put after the marker; later lines get contIndent.
func (r *renderer) listItem(li *html.Node, contIndent string, depth int) (string, error) {
	var (
		parts []itemPart
		text  strings.Builder
	)
	flushText := func() {
		if t := cleanInline(text.String()); t != "" {
			parts = append(parts, itemPart{text: t})
		}
		text.Reset()
	}

	for c := li.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.ElementNode && (c.DataAtom == atom.Ul || c.DataAtom == atom.Ol):
			flushText()
			sub, err := r.list(c, contIndent, depth+1)
			if err != nil {
				return "", err
			}
			if sub != "" {
				parts = append(parts, itemPart{text: sub, nested: true})
			}
		case c.Type == html.ElementNode && isBlockAtom(c.DataAtom):
			flushText()
			block, err := r.detached(func(sub *renderer) error {
				return sub.block(c, depth+1)
			})
			if err != nil {
				return "", err
			}
			if block != "" {
				parts = append(parts, itemPart{text: block})
			}
		default:
			s, err := r.inlineNode(c, depth+1)
			if err != nil {
				return "", err
			}
			text.WriteString(s)
		}
	}
	flushText()

	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			if p.nested {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
		if p.nested {
			b.WriteString(p.text)
			continue
		}
		for j, line := range strings.Split(p.text, "\n") {
			switch {
			case j > 0 && line == "":
				b.WriteString("\n")
			case j > 0:
				b.WriteString("\n" + contIndent + line)
			case i > 0:
				b.WriteString(contIndent + line)
			default:
				b.WriteString(line)
			}
		}
	}
	return b.String(), nil
}

// table renders a GFM table. The first row is the header.
func (r *renderer) table(n *html.Node, depth int) error {
	var rows [][]string
	for _, tr := range tableRows(n) {
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
				continue
			}
			text, err := r.inlineText(c, depth+1)
			if err != nil {
				return err
			}
			cells = append(cells, tableCell(text))
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	for i := range rows {
		for len(rows[i]) < width {
			rows[i] = append(rows[i], "")
		}
	}

	r.md.CustomTable(markdown.TableSet{Header: rows[0], Rows: rows[1:]}, markdown.TableOptions{})
	r.md.PlainText("")
	return nil
}

// tableRows returns the tr elements of a table in order, skipping rows of
// nested tables.
func tableRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				rows = append(rows, c)
			case atom.Thead, atom.Tbody, atom.Tfoot:
				walk(c)
			}
		}
	}
	walk(table)
	return rows
}

func tableCell(text string) string {
	text = cleanInline(strings.ReplaceAll(text, hardBreak, " "))
	return strings.ReplaceAll(text, "|", `\|`)
}

// blockquote renders n with a fresh renderer and prefixes every line with "> ".
func (r *renderer) blockquote(n *html.Node, depth int) (string, error) {
	inner, err := r.detached(func(sub *renderer) error {
		return sub.blocks(n, depth)
	})
	if err != nil || inner == "" {
		return "", err
	}
	lines := strings.Split(inner, "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = ">"
			continue
		}
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n"), nil
}

// detached runs fn against a fresh renderer and returns its trimmed
// Markdown, for blocks that are indented or prefixed after rendering.
func (r *renderer) detached(fn func(sub *renderer) error) (string, error) {
	sub := &renderer{base: r.base, md: markdown.NewMarkdown(io.Discard)}
	if err := fn(sub); err != nil {
		return "", err
	}
	sub.flush()
	return strings.TrimSpace(blankLineRuns.ReplaceAllString(sub.md.String(), "\n\n")), nil
}

// fencedCode returns code as a fenced block. The fence is one backtick
// longer than the longest backtick run in code, and never shorter than three.
func fencedCode(code, lang string) string {
	fence := strings.Repeat("`", max(3, longestRun(code, '`')+1))
	return fence + lang + "\n" + code + "\n" + fence
}

// inlineCode returns code as a code span. Code containing backticks gets
// a longer delimiter and a space on each side, which Markdown strips.
func inlineCode(code string) string {
	n := longestRun(code, '`')
	if n == 0 {
		return markdown.Code(code)
	}
	delim := strings.Repeat("`", n+1)
	return delim + " " + code + " " + delim
}

// longestRun returns the length of the longest run of c in s.
func longestRun(s string, c byte) int {
	longest, run := 0, 0
	for i := range len(s) {
		if s[i] != c {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	return longest
}

// codeLanguage reads the fence language from a language-* or lang-* class
// on the pre element or its code child.
func codeLanguage(pre *html.Node) string {
	nodes := []*html.Node{pre}
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Code {
			nodes = append(nodes, c)
		}
	}
	for _, n := range nodes {
		for _, class := range strings.Fields(attr(n, "class")) {
			for _, prefix := range []string{"language-", "lang-"} {
				if lang, ok := strings.CutPrefix(class, prefix); ok && lang != "" {
					return lang
				}
			}
		}
	}
	return ""
}

// textContent returns the concatenated text of n's subtree.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Br {
			b.WriteByte('\n')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isBlockAtom(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Pre, atom.Table, atom.Blockquote,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	default:
		return false
	}
}

// cleanInline collapses whitespace runs and turns hard-break markers into
// Markdown line breaks.
func cleanInline(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	parts := strings.Split(s, hardBreak)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.TrimSpace(strings.Join(parts, "  \n"))
}

func startsWithSpace(s string) bool {
	return s != "" && strings.ContainsRune(" \t\r\n", rune(s[0]))
}

func endsWithSpace(s string) bool {
	return s != "" && strings.ContainsRune(" \t\r\n", rune(s[len(s)-1]))
}
