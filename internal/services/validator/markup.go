package validator

import (
	"bytes"
	"encoding/json"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// markupFacts is a second, independent derivation of page facts straight
// from the token stream. It shares no code with the content analyzer.
type markupFacts struct {
	title       string
	ogSiteName  string
	words       int
	images      int
	h1          int
	text        string
	hrefs       map[string]bool
	schemaTypes []string
	raw         string
}

func scanMarkup(b []byte) markupFacts {
	mf := markupFacts{
		hrefs: make(map[string]bool),
		raw:   strings.ToLower(string(b)),
	}
	var (
		z          = html.NewTokenizer(bytes.NewReader(b))
		skip       int
		foreign    int
		inTitle    bool
		titleSeen  bool
		inJSONLD   bool
		title      strings.Builder
		text       strings.Builder
		schemaSeen = make(map[string]bool)
	)
	addType := func(t string) {
		t = strings.TrimSpace(t)
		if i := strings.LastIndexAny(t, "/#"); i >= 0 {
			t = t[i+1:]
		}
		if t != "" && !schemaSeen[t] {
			schemaSeen[t] = true
			mf.schemaTypes = append(mf.schemaTypes, t)
		}
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			mf.title = collapse(title.String())
			mf.text = strings.ToLower(text.String())
			return mf

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if it := attr(tok, "itemtype"); it != "" {
				for _, t := range strings.Fields(it) {
					addType(t)
				}
			}
			start := tt == html.StartTagToken
			switch tok.DataAtom {
			case atom.Script:
				if start {
					skip++
					inJSONLD = strings.EqualFold(attr(tok, "type"), "application/ld+json")
				}
			case atom.Style, atom.Noscript, atom.Template:
				if start {
					skip++
				}
			case atom.Title:
				if start && !titleSeen {
					inTitle = true
				}
			case atom.Svg, atom.Math:
				if start {
					foreign++
				}
			case atom.Img:
				mf.images++
			case atom.Image:
				// HTML parsers rewrite <image> to <img> outside svg and math.
				if foreign == 0 {
					mf.images++
				}
			case atom.H1:
				mf.h1++
			case atom.A:
				if href := normalizeLink(attr(tok, "href")); href != "" {
					mf.hrefs[href] = true
				}
			case atom.Meta:
				if strings.EqualFold(attr(tok, "property"), "og:site_name") {
					mf.ogSiteName = collapse(attr(tok, "content"))
				}
			}

		case html.EndTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				if skip > 0 {
					skip--
				}
				inJSONLD = false
			case atom.Svg, atom.Math:
				if foreign > 0 {
					foreign--
				}
			case atom.Title:
				if inTitle {
					inTitle = false
					titleSeen = true
				}
			}

		case html.TextToken:
			switch {
			case inJSONLD:
				for _, t := range jsonLDTypes(z.Text()) {
					addType(t)
				}
			case skip > 0:
			case inTitle:
				title.Write(z.Text())
			default:
				chunk := string(z.Text())
				mf.words += len(strings.Fields(chunk))
				text.WriteString(chunk)
				text.WriteByte(' ')
			}
		}
	}
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// jsonLDTypes returns every @type in a JSON-LD block, including nested
// objects and @graph members.
func jsonLDTypes(b []byte) []string {
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil
	}
	var out []string
	var walk func(v any)
	walk = func(v any) {
		switch x := v.(type) {
		case []any:
			for _, e := range x {
				walk(e)
			}
		case map[string]any:
			switch t := x["@type"].(type) {
			case string:
				out = append(out, t)
			case []any:
				for _, e := range t {
					if s, ok := e.(string); ok {
						out = append(out, s)
					}
				}
			}
			for k, e := range x {
				if k != "@type" {
					walk(e)
				}
			}
		}
	}
	walk(doc)
	return out
}

func normalizeLink(href string) string {
	href = strings.ToLower(strings.TrimSpace(href))
	href = strings.TrimSuffix(href, "/")
	return href
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
