package reader

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ErrNoContent = errors.New("no readable content")

// Extractor obtiene el texto legible de una página HTML.
type Extractor interface {
	Extract(page string) (string, error)
}

// TextExtractor localiza el bloque principal del artículo y devuelve su texto,
// un nodo de texto por línea.
type TextExtractor struct {
	// MinArticleChars es la puntuación mínima para preferir un contenedor de párrafos sobre <body>.
	MinArticleChars int
}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{MinArticleChars: 200}
}

var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Aside:    true,
	atom.Form:     true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Button:   true,
	atom.Template: true,
}

func (e *TextExtractor) Extract(page string) (string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", err
	}

	root := e.contentRoot(doc)
	if root == nil {
		return "", ErrNoContent
	}

	var lines []string
	collectText(root, &lines)
	if len(lines) == 0 {
		return "", ErrNoContent
	}
	return strings.Join(lines, "\n"), nil
}

// contentRoot prefiere <article>/<main>; si no, el contenedor con más texto en <p>.
func (e *TextExtractor) contentRoot(doc *html.Node) *html.Node {
	if n := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Article || n.DataAtom == atom.Main || attr(n, "role") == "main"
	}); n != nil {
		return n
	}

	scores := make(map[*html.Node]int)
	walk(doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && skipped[n.DataAtom] {
			return false
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.P && n.Parent != nil {
			scores[n.Parent] += utf8.RuneCountInString(strings.TrimSpace(textOf(n)))
		}
		return true
	})
	var (
		best      *html.Node
		bestScore int
	)
	for n, s := range scores {
		if s > bestScore {
			best, bestScore = n, s
		}
	}
	if best != nil && bestScore >= e.MinArticleChars {
		return best
	}
	return findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.Body })
}

func collectText(n *html.Node, lines *[]string) {
	if n.Type == html.ElementNode && skipped[n.DataAtom] {
		return
	}
	if n.Type == html.TextNode {
		if line := cleanLine(n.Data); line != "" {
			*lines = append(*lines, line)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}

// cleanLine recorta cada línea interna y las une con un espacio.
func cleanLine(s string) string {
	parts := strings.Split(s, "\n")
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func textOf(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if c.Type == html.ElementNode && match(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Truncate corta s a un máximo de limit runas.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
