package generators

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lucasjones/reggen"

	"github.com/pactplan/pactplan/pkg/matchingrules"
	"github.com/pactplan/pactplan/pkg/pathexp"
)

// VariantMatcher finds the ArrayContains variant matching a list element,
// if any. The default implementation checks the variant rules against the
// element; a no-op implementation disables ArrayContains generation.
type VariantMatcher interface {
	FindMatchingVariant(value any, variants []Variant) (Variant, bool)
}

// DefaultVariantMatcher matches elements against variant rules; the first
// matching variant in list order wins.
type DefaultVariantMatcher struct{}

func (DefaultVariantMatcher) FindMatchingVariant(value any, variants []Variant) (Variant, bool) {
	for _, v := range variants {
		if matchingrules.VariantMatches(matchingrules.Variant{Index: v.Index, Rules: v.Rules}, value) {
			return v, true
		}
	}
	return Variant{}, false
}

// NoopVariantMatcher never matches, disabling ArrayContains generation.
type NoopVariantMatcher struct{}

func (NoopVariantMatcher) FindMatchingVariant(any, []Variant) (Variant, bool) {
	return Variant{}, false
}

// GenerateString produces a string value from the generator. The original
// value feeds generators that transform rather than invent (MockServerURL,
// ProviderState lookups).
func (g Generator) GenerateString(original string, ctx map[string]any) (string, error) {
	switch g.Kind {
	case RandomInt:
		return strconv.Itoa(g.randomInt()), nil
	case UUID:
		return formatUUID(uuid.New(), g.Format)
	case RandomDecimal:
		return generateDecimal(g.Digits), nil
	case RandomHexadecimal:
		return generateHexadecimal(g.Digits), nil
	case RandomString:
		return generateASCIIString(g.Size), nil
	case Regex:
		return reggen.Generate(stripAnchors(g.Regex), 10)
	case Date:
		return time.Now().Format(layoutOrDefault(g.Format, "2006-01-02")), nil
	case Time:
		return time.Now().Format(layoutOrDefault(g.Format, "15:04:05")), nil
	case DateTime:
		return time.Now().Format(layoutOrDefault(g.Format, "2006-01-02T15:04:05")), nil
	case RandomBoolean:
		return strconv.FormatBool(rand.Intn(2) == 1), nil
	case ProviderState:
		value, err := resolveExpression(g.Expression, ctx)
		if err != nil {
			return "", err
		}
		return valueToString(value), nil
	case MockServerURL:
		return g.mockServerURL(original, ctx)
	case ArrayContains:
		return "", fmt.Errorf("ArrayContains generators can only be applied to lists")
	default:
		return "", fmt.Errorf("unknown generator type %q", g.Kind)
	}
}

// GenerateUint16 produces a numeric value for status codes.
func (g Generator) GenerateUint16(original uint16, ctx map[string]any) (uint16, error) {
	switch g.Kind {
	case RandomInt:
		n := g.randomInt()
		if n < 0 || n > 65535 {
			return 0, fmt.Errorf("generated value %d is out of range for a status code", n)
		}
		return uint16(n), nil
	case ProviderState:
		value, err := resolveExpression(g.Expression, ctx)
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseUint(valueToString(value), 10, 16)
		if err != nil {
			return 0, fmt.Errorf("provider state value %v is not a status code", value)
		}
		return uint16(n), nil
	default:
		s, err := g.GenerateString(strconv.Itoa(int(original)), ctx)
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("generator %q did not produce a status code: %w", g.Kind, err)
		}
		return uint16(n), nil
	}
}

// GenerateJSON produces a decoded JSON value, preserving the natural type
// of the generator (numbers stay numbers).
func (g Generator) GenerateJSON(original any, ctx map[string]any, vm VariantMatcher) (any, error) {
	switch g.Kind {
	case RandomInt:
		return int64(g.randomInt()), nil
	case RandomDecimal:
		s := generateDecimal(g.Digits)
		if s == "" {
			return float64(0), nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	case RandomBoolean:
		return rand.Intn(2) == 1, nil
	case ProviderState:
		value, err := resolveExpression(g.Expression, ctx)
		if err != nil {
			return nil, err
		}
		if g.DataType != "" {
			return g.DataType.Coerce(valueToString(value))
		}
		return coerceLike(value, original), nil
	case ArrayContains:
		return g.generateArray(original, ctx, vm)
	default:
		s, err := g.GenerateString(valueToString(original), ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func (g Generator) generateArray(original any, ctx map[string]any, vm VariantMatcher) (any, error) {
	list, ok := original.([]any)
	if !ok {
		return nil, fmt.Errorf("ArrayContains generators can only be applied to lists")
	}
	if vm == nil {
		vm = NoopVariantMatcher{}
	}
	out := make([]any, len(list))
	for i, element := range list {
		out[i] = element
		variant, found := vm.FindMatchingVariant(element, g.Variants)
		if !found {
			continue
		}
		for _, key := range sortedKeys(variant.Generators) {
			path, err := pathexp.Parse(key)
			if err != nil {
				continue
			}
			out[i] = applyJSONPath(out[i], path.Tokens(), variant.Generators[key], ctx, vm)
		}
	}
	return out, nil
}

func (g Generator) randomInt() int {
	if g.Max <= g.Min {
		return g.Min
	}
	return g.Min + rand.Intn(g.Max-g.Min+1)
}

func (g Generator) mockServerURL(original string, ctx map[string]any) (string, error) {
	details, ok := ctx["mockServer"].(map[string]any)
	if !ok {
		return "", fmt.Errorf("MockServerURL generator can only be applied with the mock server context")
	}
	base, ok := details["url"].(string)
	if !ok {
		base, ok = details["href"].(string)
	}
	if !ok {
		return "", fmt.Errorf("mock server context does not contain a URL")
	}
	example := g.Example
	if example == "" {
		example = original
	}
	re, err := regexp.Compile(g.Regex)
	if err != nil {
		return "", fmt.Errorf("'%s' is not a valid regular expression - %s", g.Regex, err)
	}
	captures := re.FindStringSubmatch(example)
	if len(captures) < 2 {
		return "", fmt.Errorf("can not generate a URL, regex '%s' did not match the example '%s'", g.Regex, example)
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(captures[1], "/"), nil
}

// ApplyJSON applies a generator to the location a path addresses inside a
// decoded JSON value, returning the updated value. Locations the path does
// not address are left untouched.
func ApplyJSON(value any, path pathexp.DocPath, gen Generator, ctx map[string]any, vm VariantMatcher) any {
	return applyJSONPath(value, path.Tokens(), gen, ctx, vm)
}

func applyJSONPath(value any, tokens []pathexp.Token, gen Generator, ctx map[string]any, vm VariantMatcher) any {
	if len(tokens) == 0 {
		generated, err := gen.GenerateJSON(value, ctx, vm)
		if err != nil {
			return value
		}
		return generated
	}
	token := tokens[0]
	rest := tokens[1:]
	switch token.Kind {
	case pathexp.Root:
		return applyJSONPath(value, rest, gen, ctx, vm)
	case pathexp.Field:
		obj, ok := value.(map[string]any)
		if !ok {
			return value
		}
		if _, present := obj[token.Name]; !present {
			return value
		}
		obj[token.Name] = applyJSONPath(obj[token.Name], rest, gen, ctx, vm)
		return obj
	case pathexp.Index:
		arr, ok := value.([]any)
		if !ok || token.Index < 0 || token.Index >= len(arr) {
			return value
		}
		arr[token.Index] = applyJSONPath(arr[token.Index], rest, gen, ctx, vm)
		return arr
	case pathexp.Star:
		obj, ok := value.(map[string]any)
		if !ok {
			return value
		}
		for key := range obj {
			obj[key] = applyJSONPath(obj[key], rest, gen, ctx, vm)
		}
		return obj
	case pathexp.StarIndex:
		arr, ok := value.([]any)
		if !ok {
			return value
		}
		for i := range arr {
			arr[i] = applyJSONPath(arr[i], rest, gen, ctx, vm)
		}
		return arr
	default:
		return value
	}
}

const decimalDigits = "0123456789"
const hexDigits = "0123456789abcdef"
const asciiChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// generateDecimal produces a random decimal string with the given total
// number of digits. Two or more digits include a decimal point that is
// never first or last; a leading zero forces the "0.x" form.
func generateDecimal(digits int) string {
	switch {
	case digits <= 0:
		return ""
	case digits == 1:
		return string(decimalDigits[rand.Intn(len(decimalDigits))])
	default:
		buf := make([]byte, digits)
		for i := range buf {
			buf[i] = decimalDigits[rand.Intn(len(decimalDigits))]
		}
		pos := 1 + rand.Intn(digits-1)
		if buf[0] == '0' {
			pos = 1
		}
		return string(buf[:pos]) + "." + string(buf[pos:])
	}
}

func generateHexadecimal(digits int) string {
	if digits <= 0 {
		return ""
	}
	buf := make([]byte, digits)
	for i := range buf {
		buf[i] = hexDigits[rand.Intn(len(hexDigits))]
	}
	return string(buf)
}

func generateASCIIString(size int) string {
	if size <= 0 {
		return ""
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = asciiChars[rand.Intn(len(asciiChars))]
	}
	return string(buf)
}

// stripAnchors removes a leading '^' and trailing unescaped '$' so the
// pattern drives generation rather than matching.
func stripAnchors(pattern string) string {
	pattern = strings.TrimPrefix(pattern, "^")
	if strings.HasSuffix(pattern, "$") && !strings.HasSuffix(pattern, "\\$") {
		pattern = pattern[:len(pattern)-1]
	}
	return pattern
}

func formatUUID(id uuid.UUID, format string) (string, error) {
	switch format {
	case "", "lower-case-hyphenated":
		return id.String(), nil
	case "upper-case-hyphenated":
		return strings.ToUpper(id.String()), nil
	case "simple":
		return strings.ReplaceAll(id.String(), "-", ""), nil
	case "URN":
		return id.URN(), nil
	default:
		return "", fmt.Errorf("unknown UUID format %q", format)
	}
}

// coerceLike shapes a provider state value to the JSON type of the
// original example value.
func coerceLike(value any, original any) any {
	switch original.(type) {
	case int64, float64:
		if s, ok := value.(string); ok {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
		return value
	case bool:
		if s, ok := value.(string); ok {
			if b, err := strconv.ParseBool(s); err == nil {
				return b
			}
		}
		return value
	default:
		return value
	}
}

func valueToString(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case bool:
		return strconv.FormatBool(n)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case uint64:
		return strconv.FormatUint(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func sortedKeys(m map[string]Generator) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
