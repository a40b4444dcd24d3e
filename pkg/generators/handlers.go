package generators

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/ohler55/ojg/oj"

	"github.com/pactplan/pactplan/pkg/pathexp"
)

// ContentTypeHandler applies generators to one body representation.
// ApplyKey is a no-op when the path does not address a location in the
// content; ProcessBody applies a whole set and renders the result.
type ContentTypeHandler interface {
	ProcessBody(gens []KeyedGenerator, ctx map[string]any, vm VariantMatcher) ([]byte, error)
	ApplyKey(path pathexp.DocPath, gen Generator, ctx map[string]any, vm VariantMatcher)
}

// JSONHandler applies generators to a decoded JSON value.
type JSONHandler struct {
	Value any
}

// NewJSONHandler parses a JSON body.
func NewJSONHandler(body []byte) (*JSONHandler, error) {
	value, err := oj.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("json parse error - %s", err)
	}
	return &JSONHandler{Value: value}, nil
}

func (h *JSONHandler) ApplyKey(path pathexp.DocPath, gen Generator, ctx map[string]any, vm VariantMatcher) {
	h.Value = ApplyJSON(h.Value, path, gen, ctx, vm)
}

func (h *JSONHandler) ProcessBody(gens []KeyedGenerator, ctx map[string]any, vm VariantMatcher) ([]byte, error) {
	for _, kg := range gens {
		path, err := pathexp.Parse(kg.Key)
		if err != nil {
			continue
		}
		h.ApplyKey(path, kg.Generator, ctx, vm)
	}
	return []byte(oj.JSON(h.Value, &canonical)), nil
}

// XMLHandler applies generators to an XML document. Paths address elements
// by tag ("$.root.child[1]"), attributes by "@name" fields and text nodes
// by "#text" fields; namespaced tags match their "prefix:local" form.
type XMLHandler struct {
	Doc *etree.Document
}

// NewXMLHandler parses an XML body.
func NewXMLHandler(body []byte) (*XMLHandler, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("xml parse error - %s", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("xml parse error - no root element")
	}
	return &XMLHandler{Doc: doc}, nil
}

func (h *XMLHandler) ApplyKey(path pathexp.DocPath, gen Generator, ctx map[string]any, vm VariantMatcher) {
	tokens := path.Tokens()
	if len(tokens) < 2 || tokens[0].Kind != pathexp.Root {
		return
	}
	tokens = tokens[1:]

	// The first field names the document root.
	root := h.Doc.Root()
	if !tagMatches(tokens[0], root) {
		return
	}
	elems := []*etree.Element{root}
	tokens = tokens[1:]

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		switch {
		case token.Kind == pathexp.Field && strings.HasPrefix(token.Name, "@"):
			if i == len(tokens)-1 {
				h.applyAttr(elems, token.Name[1:], gen, ctx)
			}
			return
		case token.Kind == pathexp.Field && token.Name == "#text":
			if i == len(tokens)-1 {
				h.applyText(elems, gen, ctx)
			}
			return
		case token.Kind == pathexp.Field || token.Kind == pathexp.Star:
			var next []*etree.Element
			for _, e := range elems {
				for _, child := range e.ChildElements() {
					if tagMatches(token, child) {
						next = append(next, child)
					}
				}
			}
			elems = next
		case token.Kind == pathexp.Index:
			if token.Index < 0 || token.Index >= len(elems) {
				return
			}
			elems = elems[token.Index : token.Index+1]
		case token.Kind == pathexp.StarIndex:
			// All selected elements stay selected.
		}
		if len(elems) == 0 {
			return
		}
	}
	h.applyText(elems, gen, ctx)
}

func (h *XMLHandler) applyAttr(elems []*etree.Element, name string, gen Generator, ctx map[string]any) {
	for _, e := range elems {
		attr := e.SelectAttr(name)
		original := ""
		if attr != nil {
			original = attr.Value
		}
		if generated, err := gen.GenerateString(original, ctx); err == nil {
			e.CreateAttr(name, generated)
		}
	}
}

// applyText replaces the text content of each element, creating a text
// node when the element has none.
func (h *XMLHandler) applyText(elems []*etree.Element, gen Generator, ctx map[string]any) {
	for _, e := range elems {
		if generated, err := gen.GenerateString(e.Text(), ctx); err == nil {
			e.SetText(generated)
		}
	}
}

func tagMatches(token pathexp.Token, e *etree.Element) bool {
	if token.Kind == pathexp.Star {
		return true
	}
	if token.Kind != pathexp.Field {
		return false
	}
	if e.Space != "" && token.Name == e.Space+":"+e.Tag {
		return true
	}
	return token.Name == e.Tag
}

func (h *XMLHandler) ProcessBody(gens []KeyedGenerator, ctx map[string]any, vm VariantMatcher) ([]byte, error) {
	for _, kg := range gens {
		path, err := pathexp.Parse(kg.Key)
		if err != nil {
			continue
		}
		h.ApplyKey(path, kg.Generator, ctx, vm)
	}
	return h.Doc.WriteToBytes()
}

// QueryPair is one form-urlencoded key/value pair. Order is preserved so
// repeated keys keep their positions.
type QueryPair struct {
	Key   string
	Value string
}

// FormURLEncodedHandler applies generators to form-urlencoded pairs. A
// path "$.name" addresses every occurrence of the key; "$.name[n]"
// addresses the n-th occurrence only.
type FormURLEncodedHandler struct {
	Pairs []QueryPair
}

// NewFormURLEncodedHandler parses a form-urlencoded body, preserving pair
// order.
func NewFormURLEncodedHandler(body []byte) (*FormURLEncodedHandler, error) {
	h := &FormURLEncodedHandler{}
	for _, part := range strings.Split(string(body), "&") {
		if part == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("form parse error - %s", err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("form parse error - %s", err)
		}
		h.Pairs = append(h.Pairs, QueryPair{Key: key, Value: value})
	}
	return h, nil
}

func (h *FormURLEncodedHandler) ApplyKey(path pathexp.DocPath, gen Generator, ctx map[string]any, vm VariantMatcher) {
	tokens := path.Tokens()
	if len(tokens) < 2 || tokens[0].Kind != pathexp.Root || tokens[1].Kind != pathexp.Field {
		return
	}
	name := tokens[1].Name
	occurrence := -1
	if len(tokens) == 3 && tokens[2].Kind == pathexp.Index {
		occurrence = tokens[2].Index
	} else if len(tokens) != 2 {
		return
	}

	seen := 0
	for i := range h.Pairs {
		if h.Pairs[i].Key != name {
			continue
		}
		if occurrence < 0 || occurrence == seen {
			if generated, err := gen.GenerateString(h.Pairs[i].Value, ctx); err == nil {
				h.Pairs[i].Value = generated
			}
		}
		seen++
	}
}

func (h *FormURLEncodedHandler) ProcessBody(gens []KeyedGenerator, ctx map[string]any, vm VariantMatcher) ([]byte, error) {
	for _, kg := range gens {
		path, err := pathexp.Parse(kg.Key)
		if err != nil {
			continue
		}
		h.ApplyKey(path, kg.Generator, ctx, vm)
	}
	return []byte(h.Encode()), nil
}

// Encode renders the pairs in order using form encoding.
func (h *FormURLEncodedHandler) Encode() string {
	parts := make([]string, 0, len(h.Pairs))
	for _, p := range h.Pairs {
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(parts, "&")
}
