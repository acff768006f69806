// Package parser queries rendered listing pages.
package parser

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/html"

	"github.com/aluiziolira/go-scrape-rentals/config"
)

// DefaultCacheSize bounds the number of compiled expressions kept around.
const DefaultCacheSize = 128

// ErrNotFound reports that no strategy of a field matched.
type ErrNotFound struct {
	Field string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("no node matched %q", e.Field)
}

type compiled struct {
	css   goquery.Matcher
	xpath *xpath.Expr
}

// Compiler parses pages and compiles selector strategies, caching the
// compiled expressions across pages.
type Compiler struct {
	cache *lru.Cache[string, *compiled]
}

// NewCompiler returns a compiler holding at most size compiled expressions.
func NewCompiler(size int) (*Compiler, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *compiled](size)
	if err != nil {
		return nil, fmt.Errorf("create selector cache: %w", err)
	}
	return &Compiler{cache: cache}, nil
}

func (c *Compiler) compile(st config.Strategy) (*compiled, error) {
	key := st.String()
	if hit, ok := c.cache.Get(key); ok {
		return hit, nil
	}

	out := &compiled{}
	switch st.Kind {
	case config.KindCSS:
		sel, err := cascadia.Compile(st.Expr)
		if err != nil {
			return nil, fmt.Errorf("compile css %q: %w", st.Expr, err)
		}
		out.css = sel
	case config.KindXPath:
		expr, err := xpath.Compile(st.Expr)
		if err != nil {
			return nil, fmt.Errorf("compile xpath %q: %w", st.Expr, err)
		}
		out.xpath = expr
	default:
		return nil, fmt.Errorf("unsupported selector kind %q", st.Kind)
	}

	c.cache.Add(key, out)
	return out, nil
}

// Parse builds a Document from the markup of the page found at pageURL.
func (c *Compiler) Parse(pageURL, markup string) (*Document, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse page markup: %w", err)
	}
	return &Document{URL: base, doc: doc, compiler: c}, nil
}

// Document is a parsed snapshot of one page.
type Document struct {
	URL *url.URL

	doc      *goquery.Document
	compiler *Compiler
	order    map[*html.Node]int
}

// Root is the selection holding the document node.
func (d *Document) Root() *goquery.Selection {
	return d.doc.Selection
}

// All returns the nodes under scope matched by the first strategy that
// matches anything, in document order. No match yields an empty selection.
func (d *Document) All(scope *goquery.Selection, field string, strategies []config.Strategy) (*goquery.Selection, error) {
	for _, st := range strategies {
		m, err := d.compiler.compile(st)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		found := d.match(scope, m)
		if found.Length() > 0 {
			return found, nil
		}
	}
	return scope.FindNodes(), nil
}

// First returns the first node All would return, or ErrNotFound.
func (d *Document) First(scope *goquery.Selection, field string, strategies []config.Strategy) (*goquery.Selection, error) {
	found, err := d.All(scope, field, strategies)
	if err != nil {
		return nil, err
	}
	if found.Length() == 0 {
		return nil, ErrNotFound{Field: field}
	}
	return found.First(), nil
}

// Resolve turns an href found on the page into an absolute URL.
func (d *Document) Resolve(href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	return d.URL.ResolveReference(ref).String(), nil
}

func (d *Document) match(scope *goquery.Selection, m *compiled) *goquery.Selection {
	if m.css != nil {
		return scope.FindMatcher(m.css)
	}

	var nodes []*html.Node
	for _, n := range scope.Nodes {
		nodes = append(nodes, htmlquery.QuerySelectorAll(n, m.xpath)...)
	}
	d.sortByPosition(nodes)
	return d.doc.Selection.FindNodes(nodes...)
}

// sortByPosition orders nodes as they appear in the document.
func (d *Document) sortByPosition(nodes []*html.Node) {
	if d.order == nil {
		d.order = make(map[*html.Node]int)
		var walk func(*html.Node)
		walk = func(n *html.Node) {
			d.order[n] = len(d.order)
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
		for _, root := range d.doc.Selection.Nodes {
			walk(root)
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return d.order[nodes[i]] < d.order[nodes[j]]
	})
}
