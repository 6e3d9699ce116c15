package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Unit is one piece of rendered text in document order.
// Block is the element that delimited it; Emphasis is set when all of its
// text sits inside an inline emphasis element.
type Unit struct {
	Text     string
	Block    string
	Emphasis string
}

// HasTag reports whether the unit was produced by one of tags.
func (u Unit) HasTag(tags map[string]bool) bool {
	return tags[u.Block] || (u.Emphasis != "" && tags[u.Emphasis])
}

var blockTags = map[string]bool{
	"html": true, "body": true, "main": true, "header": true, "footer": true, "nav": true,
	"section": true, "article": true, "aside": true, "div": true, "p": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "dl": true, "dt": true, "dd": true,
	"table": true, "thead": true, "tbody": true, "tfoot": true, "tr": true, "td": true, "th": true,
	"blockquote": true, "pre": true, "figure": true, "figcaption": true, "hr": true,
	"form": true, "fieldset": true, "address": true,
}

var skipTags = map[string]bool{
	"head": true, "script": true, "style": true, "noscript": true,
	"template": true, "iframe": true, "svg": true,
}

var emphasisTags = map[string]bool{
	"strong": true, "b": true, "em": true, "i": true, "u": true, "mark": true,
}

// Walk streams the rendered text of sel as units, in document order.
// It stops as soon as fn returns false.
func Walk(sel *goquery.Selection, fn func(Unit) bool) {
	walkSplit(sel, nil, fn)
}

// walkSplit is Walk with a split rule: an emphasis element that opens a unit
// is emitted on its own when split accepts its tag and text, so
// "<p><strong>Onsdag</strong> Kalops</p>" yields "Onsdag" and "Kalops".
func walkSplit(sel *goquery.Selection, split func(tag, text string) bool, fn func(Unit) bool) {
	f := &flattener{fn: fn, split: split}
	for _, n := range sel.Nodes {
		f.walk(n, "", "")
		if f.stopped {
			return
		}
	}
	f.flush()
}

// Flatten collects every unit of sel.
func Flatten(sel *goquery.Selection) []Unit {
	var units []Unit
	Walk(sel, func(u Unit) bool {
		units = append(units, u)
		return true
	})
	return units
}

type flattener struct {
	fn      func(Unit) bool
	split   func(tag, text string) bool
	stopped bool

	buf     strings.Builder
	block   string
	emph    string
	allEmph bool
}

func (f *flattener) walk(n *html.Node, block, emph string) {
	if f.stopped {
		return
	}
	switch n.Type {
	case html.TextNode:
		f.text(n.Data, block, emph)
		return
	case html.ElementNode:
		tag := n.Data
		if skipTags[tag] {
			return
		}
		if tag == "br" {
			f.flush()
			return
		}
		if blockTags[tag] {
			f.flush()
			for c := n.FirstChild; c != nil && !f.stopped; c = c.NextSibling {
				f.walk(c, tag, "")
			}
			f.flush()
			return
		}
		if emph == "" && emphasisTags[tag] {
			if f.split != nil && f.buf.Len() == 0 {
				for c := n.FirstChild; c != nil && !f.stopped; c = c.NextSibling {
					f.walk(c, block, tag)
				}
				if f.split(tag, f.pending()) {
					f.flush()
				}
				return
			}
			emph = tag
		}
	case html.DocumentNode:
	default:
		return
	}
	for c := n.FirstChild; c != nil && !f.stopped; c = c.NextSibling {
		f.walk(c, block, emph)
	}
}

func (f *flattener) text(data, block, emph string) {
	if strings.TrimSpace(data) == "" {
		if f.buf.Len() > 0 {
			f.buf.WriteByte(' ')
		}
		return
	}
	if f.buf.Len() == 0 {
		f.block = block
		f.emph = emph
		f.allEmph = emph != ""
	} else if emph == "" {
		f.allEmph = false
	}
	f.buf.WriteString(data)
}

func (f *flattener) pending() string {
	return strings.Join(strings.Fields(f.buf.String()), " ")
}

func (f *flattener) flush() {
	if f.stopped {
		return
	}
	text := f.pending()
	f.buf.Reset()
	if text == "" {
		return
	}
	u := Unit{Text: text, Block: f.block}
	if f.allEmph {
		u.Emphasis = f.emph
	}
	if !f.fn(u) {
		f.stopped = true
	}
}
