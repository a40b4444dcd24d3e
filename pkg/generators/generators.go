// Package generators implements value generators: replacing example values
// in interaction contents with generated ones (random values, provider
// state lookups, mock server URLs) at verification time.
package generators

import (
	"hash/fnv"
	"reflect"
	"sort"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"

	"github.com/pactplan/pactplan/pkg/matchingrules"
)

// Kind names a generator variant.
type Kind string

const (
	RandomInt         Kind = "RandomInt"
	UUID              Kind = "Uuid"
	RandomDecimal     Kind = "RandomDecimal"
	RandomHexadecimal Kind = "RandomHexadecimal"
	RandomString      Kind = "RandomString"
	Regex             Kind = "Regex"
	Date              Kind = "Date"
	Time              Kind = "Time"
	DateTime          Kind = "DateTime"
	RandomBoolean     Kind = "RandomBoolean"
	ProviderState     Kind = "ProviderState"
	MockServerURL     Kind = "MockServerURL"
	ArrayContains     Kind = "ArrayContains"
)

// TestMode selects which side of the interaction is being verified.
// Generators only fire in the modes they are meaningful for.
type TestMode int

const (
	// ConsumerMode is consumer verification against the mock server.
	ConsumerMode TestMode = iota
	// ProviderMode is provider verification with real state.
	ProviderMode
)

// Generator describes one value generator. Only the fields relevant to the
// Kind are populated.
type Generator struct {
	Kind Kind

	// Min and Max bound RandomInt.
	Min int
	Max int
	// Digits sizes RandomDecimal and RandomHexadecimal output.
	Digits int
	// Size is the RandomString length.
	Size int
	// Format holds the UUID format name or the date/time pattern
	// (java-style simple date format, translated when generating).
	Format string
	// Regex is the pattern for Regex generation and the capture pattern
	// for MockServerURL substitution.
	Regex string
	// Expression is the ProviderState template ("${id}/items").
	Expression string
	// DataType coerces the ProviderState result.
	DataType DataType
	// Example is the example URL a MockServerURL generator rewrites.
	Example string
	// Variants holds ArrayContains expected element variants.
	Variants []Variant
}

// Variant is one ArrayContains expected element: the rules that find it in
// the actual list and the generators to apply once found.
type Variant struct {
	Index      int
	Rules      *matchingrules.Category
	Generators map[string]Generator
}

// CorrespondsToMode reports whether the generator should fire in the given
// mode. MockServerURL only makes sense while the mock server runs
// (consumer side); ProviderState only when real state exists (provider
// side). Everything else fires in both modes.
func (g Generator) CorrespondsToMode(mode TestMode) bool {
	switch g.Kind {
	case MockServerURL:
		return mode == ConsumerMode
	case ProviderState:
		return mode == ProviderMode
	default:
		return true
	}
}

// Equal reports structural equality with another generator.
func (g Generator) Equal(other Generator) bool {
	return reflect.DeepEqual(g, other)
}

// Hash returns a stable structural hash of the generator.
func (g Generator) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(oj.JSON(g.toJSON(), &canonical)))
	return h.Sum64()
}

// Category names the interaction part a generator applies to.
type Category string

const (
	CategoryMethod   Category = "method"
	CategoryPath     Category = "path"
	CategoryHeader   Category = "header"
	CategoryQuery    Category = "query"
	CategoryBody     Category = "body"
	CategoryStatus   Category = "status"
	CategoryMetadata Category = "metadata"
)

// Generators maps interaction parts to generators keyed by sub-path
// ("$.a.b" for bodies, header or parameter names for headers and query).
type Generators struct {
	categories map[Category]map[string]Generator
}

// New returns an empty generator set.
func New() *Generators {
	return &Generators{categories: map[Category]map[string]Generator{}}
}

// Add registers a generator for a category and sub-key.
func (g *Generators) Add(category Category, key string, gen Generator) {
	if g.categories == nil {
		g.categories = map[Category]map[string]Generator{}
	}
	m, ok := g.categories[category]
	if !ok {
		m = map[string]Generator{}
		g.categories[category] = m
	}
	m[key] = gen
}

// Remove deletes the generator at a category and sub-key, if any.
func (g *Generators) Remove(category Category, key string) {
	if g == nil {
		return
	}
	delete(g.categories[category], key)
}

// RemoveWhere deletes every generator in a category whose key satisfies
// pred.
func (g *Generators) RemoveWhere(category Category, pred func(key string) bool) {
	if g == nil {
		return
	}
	for key := range g.categories[category] {
		if pred(key) {
			delete(g.categories[category], key)
		}
	}
}

// IsEmpty reports whether no generator is registered.
func (g *Generators) IsEmpty() bool {
	if g == nil {
		return true
	}
	for _, m := range g.categories {
		if len(m) > 0 {
			return false
		}
	}
	return true
}

// Lookup returns the generator at a category and exact sub-key.
func (g *Generators) Lookup(category Category, key string) (Generator, bool) {
	if g == nil {
		return Generator{}, false
	}
	gen, ok := g.categories[category][key]
	return gen, ok
}

// ForCategory returns the generators of one category with keys sorted, as
// an ordered list of key/generator pairs.
func (g *Generators) ForCategory(category Category) []KeyedGenerator {
	if g == nil {
		return nil
	}
	m := g.categories[category]
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]KeyedGenerator, 0, len(keys))
	for _, key := range keys {
		out = append(out, KeyedGenerator{Key: key, Generator: m[key]})
	}
	return out
}

// ForMode returns a copy of one category holding only the generators that
// fire in the given mode, keys sorted.
func (g *Generators) ForMode(category Category, mode TestMode) []KeyedGenerator {
	all := g.ForCategory(category)
	out := make([]KeyedGenerator, 0, len(all))
	for _, kg := range all {
		if kg.Generator.CorrespondsToMode(mode) {
			out = append(out, kg)
		}
	}
	return out
}

// KeyedGenerator pairs a generator with its sub-key.
type KeyedGenerator struct {
	Key       string
	Generator Generator
}

// Clone returns a deep copy of the generator set.
func (g *Generators) Clone() *Generators {
	if g == nil {
		return nil
	}
	out := New()
	for category, m := range g.categories {
		for key, gen := range m {
			out.Add(category, key, gen)
		}
	}
	return out
}

// Equal reports structural equality with another generator set.
func (g *Generators) Equal(other *Generators) bool {
	switch {
	case g.IsEmpty() && other.IsEmpty():
		return true
	case g == nil || other == nil:
		return false
	default:
		return reflect.DeepEqual(g.prune(), other.prune())
	}
}

func (g *Generators) prune() map[Category]map[string]Generator {
	out := map[Category]map[string]Generator{}
	for category, m := range g.categories {
		if len(m) > 0 {
			out[category] = m
		}
	}
	return out
}

var canonical = ojg.Options{Sort: true}
