// Package pathexp implements document path expressions used to address
// locations inside interaction contents ("$.a.b[2]", "$.headers['X-Test']",
// "$.items[*]"). Paths are immutable values; all builder methods return a
// new path, so a DocPath can safely be used as a map key via String().
package pathexp

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind identifies a single path token.
type TokenKind int

const (
	// Root is the leading "$".
	Root TokenKind = iota
	// Field is a named segment ("a" in "$.a").
	Field
	// Index is a numeric segment ("[2]").
	Index
	// Star matches any single named segment ("$.*").
	Star
	// StarIndex matches any single index ("$[*]").
	StarIndex
)

// Token is one segment of a DocPath.
type Token struct {
	Kind  TokenKind
	Name  string
	Index int
}

// String returns the plain segment form of the token, as used when matching
// against string slices ("$", "a", "2", "*").
func (t Token) String() string {
	switch t.Kind {
	case Root:
		return "$"
	case Field:
		return t.Name
	case Index:
		return strconv.Itoa(t.Index)
	default:
		return "*"
	}
}

// DocPath is a parsed path expression. The zero value is the empty path.
type DocPath struct {
	tokens []Token
	str    string
}

// NewRoot returns the path "$".
func NewRoot() DocPath {
	return DocPath{tokens: []Token{{Kind: Root}}, str: "$"}
}

// Parse parses a path expression. The expression must start with "$" and
// consist of ".name", ".*", "[n]", "[*]" or "['quoted name']" tokens.
func Parse(expr string) (DocPath, error) {
	if expr == "" {
		return DocPath{}, nil
	}
	p := &parser{input: expr}
	if err := p.run(); err != nil {
		return DocPath{}, fmt.Errorf("invalid path expression %q: %w", expr, err)
	}
	return newDocPath(p.tokens), nil
}

// MustParse is Parse for expressions known valid at compile time. It panics
// on a parse error.
func MustParse(expr string) DocPath {
	p, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func newDocPath(tokens []Token) DocPath {
	return DocPath{tokens: tokens, str: render(tokens)}
}

// String returns the canonical expression form. Field names that need
// quoting render in bracket form ("$['#text']").
func (p DocPath) String() string {
	return p.str
}

// Tokens returns a copy of the token list.
func (p DocPath) Tokens() []Token {
	out := make([]Token, len(p.tokens))
	copy(out, p.tokens)
	return out
}

// Len returns the number of tokens, including the root.
func (p DocPath) Len() int {
	return len(p.tokens)
}

// IsEmpty reports whether the path has no tokens at all.
func (p DocPath) IsEmpty() bool {
	return len(p.tokens) == 0
}

// IsRoot reports whether the path is exactly "$".
func (p DocPath) IsRoot() bool {
	return len(p.tokens) == 1 && p.tokens[0].Kind == Root
}

// Last returns the final token. Calling Last on an empty path returns a
// zero token.
func (p DocPath) Last() Token {
	if len(p.tokens) == 0 {
		return Token{}
	}
	return p.tokens[len(p.tokens)-1]
}

// Join returns a new path with a field token appended.
func (p DocPath) Join(field string) DocPath {
	return p.push(Token{Kind: Field, Name: field})
}

// JoinIndex returns a new path with an index token appended.
func (p DocPath) JoinIndex(i int) DocPath {
	return p.push(Token{Kind: Index, Index: i})
}

// JoinStar returns a new path with a "*" field wildcard appended.
func (p DocPath) JoinStar() DocPath {
	return p.push(Token{Kind: Star})
}

// JoinStarIndex returns a new path with a "[*]" index wildcard appended.
func (p DocPath) JoinStarIndex() DocPath {
	return p.push(Token{Kind: StarIndex})
}

func (p DocPath) push(t Token) DocPath {
	tokens := make([]Token, 0, len(p.tokens)+1)
	tokens = append(tokens, p.tokens...)
	tokens = append(tokens, t)
	return newDocPath(tokens)
}

// Parent returns the path with the final token removed. The parent of the
// root (or of an empty path) is the empty path.
func (p DocPath) Parent() DocPath {
	if len(p.tokens) <= 1 {
		return DocPath{}
	}
	tokens := make([]Token, len(p.tokens)-1)
	copy(tokens, p.tokens[:len(p.tokens)-1])
	return newDocPath(tokens)
}

// Segments returns the plain segment forms of all tokens ("$", "a", "2").
func (p DocPath) Segments() []string {
	out := make([]string, len(p.tokens))
	for i, t := range p.tokens {
		out[i] = t.String()
	}
	return out
}

// MatchesPathExactly reports whether the path matches the given concrete
// segment list token for token, with wildcards matching any single segment.
func (p DocPath) MatchesPathExactly(segments []string) bool {
	if len(p.tokens) != len(segments) {
		return false
	}
	for i, t := range p.tokens {
		if tokenWeight(t, segments[i]) == 0 {
			return false
		}
	}
	return true
}

// CalcPathWeight scores the path against a concrete segment list for
// best-matcher selection. The weight is the product of per-token scores
// (2 for an exact token, 1 for a wildcard, 0 for a mismatch); a path longer
// than the segment list scores 0. The second return value is the number of
// path tokens, used as a tie-breaker by callers.
func (p DocPath) CalcPathWeight(segments []string) (int, int) {
	if len(p.tokens) == 0 || len(p.tokens) > len(segments) {
		return 0, len(p.tokens)
	}
	weight := 1
	for i, t := range p.tokens {
		w := tokenWeight(t, segments[i])
		if w == 0 {
			return 0, len(p.tokens)
		}
		weight *= w
	}
	return weight, len(p.tokens)
}

func tokenWeight(t Token, segment string) int {
	switch t.Kind {
	case Root:
		if segment == "$" {
			return 2
		}
	case Field:
		if segment == t.Name {
			return 2
		}
	case Index:
		if segment == strconv.Itoa(t.Index) {
			return 2
		}
	case Star:
		return 1
	case StarIndex:
		if _, err := strconv.Atoi(segment); err == nil {
			return 1
		}
		if segment == "*" {
			return 1
		}
	}
	return 0
}

func render(tokens []Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		switch t.Kind {
		case Root:
			sb.WriteByte('$')
		case Field:
			if fieldNeedsQuoting(t.Name) {
				sb.WriteString("['")
				sb.WriteString(t.Name)
				sb.WriteString("']")
			} else {
				sb.WriteByte('.')
				sb.WriteString(t.Name)
			}
		case Index:
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(t.Index))
			sb.WriteByte(']')
		case Star:
			sb.WriteString(".*")
		case StarIndex:
			sb.WriteString("[*]")
		}
	}
	return sb.String()
}

// fieldNeedsQuoting reports whether a field name must render in bracket
// form. Letters, digits, '_', '-' and ':' (namespaced XML tags) stay plain.
func fieldNeedsQuoting(name string) bool {
	if name == "" || name == "*" {
		return true
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == ':':
		default:
			return true
		}
	}
	return false
}

type parser struct {
	input  string
	pos    int
	tokens []Token
}

func (p *parser) run() error {
	if p.input[0] != '$' {
		return fmt.Errorf("expected path to start with '$'")
	}
	p.tokens = append(p.tokens, Token{Kind: Root})
	p.pos = 1
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case '.':
			p.pos++
			if err := p.field(); err != nil {
				return err
			}
		case '[':
			p.pos++
			if err := p.bracket(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected character %q at offset %d", p.input[p.pos], p.pos)
		}
	}
	return nil
}

func (p *parser) field() error {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != '.' && p.input[p.pos] != '[' {
		p.pos++
	}
	name := p.input[start:p.pos]
	if name == "" {
		return fmt.Errorf("empty field name at offset %d", start)
	}
	if name == "*" {
		p.tokens = append(p.tokens, Token{Kind: Star})
		return nil
	}
	p.tokens = append(p.tokens, Token{Kind: Field, Name: name})
	return nil
}

func (p *parser) bracket() error {
	if p.pos >= len(p.input) {
		return fmt.Errorf("unterminated '[' at end of expression")
	}
	switch c := p.input[p.pos]; {
	case c == '*':
		p.pos++
		if err := p.close(); err != nil {
			return err
		}
		p.tokens = append(p.tokens, Token{Kind: StarIndex})
	case c == '\'' || c == '"':
		p.pos++
		end := strings.IndexByte(p.input[p.pos:], c)
		if end < 0 {
			return fmt.Errorf("unterminated quoted field at offset %d", p.pos-1)
		}
		name := p.input[p.pos : p.pos+end]
		if name == "" {
			return fmt.Errorf("empty quoted field at offset %d", p.pos-1)
		}
		p.pos += end + 1
		if err := p.close(); err != nil {
			return err
		}
		p.tokens = append(p.tokens, Token{Kind: Field, Name: name})
	case c >= '0' && c <= '9':
		start := p.pos
		for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
			p.pos++
		}
		idx, err := strconv.Atoi(p.input[start:p.pos])
		if err != nil {
			return err
		}
		if err := p.close(); err != nil {
			return err
		}
		p.tokens = append(p.tokens, Token{Kind: Index, Index: idx})
	default:
		return fmt.Errorf("unexpected character %q inside brackets at offset %d", c, p.pos)
	}
	return nil
}

func (p *parser) close() error {
	if p.pos >= len(p.input) || p.input[p.pos] != ']' {
		return fmt.Errorf("expected ']' at offset %d", p.pos)
	}
	p.pos++
	return nil
}
