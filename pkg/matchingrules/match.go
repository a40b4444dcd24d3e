package matchingrules

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/oj"

	"github.com/pactplan/pactplan/pkg/pathexp"
)

// Apply checks an actual value against the rule, using the expected value
// where the rule needs one. Values are decoded JSON: nil, bool, int64,
// float64, string, []any or map[string]any. A nil return means the value
// matched; otherwise the error carries the mismatch description.
func Apply(rule Rule, expected, actual any) error {
	switch rule.Kind {
	case Equality:
		if valuesEqual(expected, actual) {
			return nil
		}
		if TypeName(actual) != TypeName(expected) {
			return fmt.Errorf("Expected %s (%s) to be equal to %s (%s)",
				FormatValue(actual), TypeName(actual), FormatValue(expected), TypeName(expected))
		}
		return fmt.Errorf("Expected %s to be equal to %s", FormatValue(actual), FormatValue(expected))
	case Regex:
		re, err := regexp.Compile(rule.Regex)
		if err != nil {
			return fmt.Errorf("'%s' is not a valid regular expression - %s", rule.Regex, err)
		}
		if re.MatchString(valueToString(actual)) {
			return nil
		}
		return fmt.Errorf("Expected %s to match '%s'", FormatValue(actual), rule.Regex)
	case Type:
		return matchType(expected, actual)
	case MinType:
		return matchTypeWithLength(expected, actual, rule.Min, -1)
	case MaxType:
		return matchTypeWithLength(expected, actual, -1, rule.Max)
	case MinMaxType:
		return matchTypeWithLength(expected, actual, rule.Min, rule.Max)
	case Integer:
		if isInteger(actual) {
			return nil
		}
		return fmt.Errorf("Expected %s to be an integer", FormatValue(actual))
	case Decimal:
		if isDecimal(actual) {
			return nil
		}
		return fmt.Errorf("Expected %s to be a decimal number", FormatValue(actual))
	case Number:
		if isInteger(actual) || isDecimal(actual) {
			return nil
		}
		return fmt.Errorf("Expected %s to be a number", FormatValue(actual))
	case Null:
		if actual == nil {
			return nil
		}
		return fmt.Errorf("Expected %s to be null", FormatValue(actual))
	case Boolean:
		if _, ok := actual.(bool); ok {
			return nil
		}
		if s, ok := actual.(string); ok && (s == "true" || s == "false") {
			return nil
		}
		return fmt.Errorf("Expected %s to be a boolean", FormatValue(actual))
	case Include:
		if strings.Contains(valueToString(actual), rule.Value) {
			return nil
		}
		return fmt.Errorf("Expected %s to include '%s'", FormatValue(actual), rule.Value)
	case EachKey:
		return applyEachKey(rule, actual)
	case EachValue:
		return applyEachValue(rule, actual)
	case Values:
		switch actual.(type) {
		case map[string]any, []any:
			return nil
		default:
			return fmt.Errorf("Expected %s to be an Object or an Array", FormatValue(actual))
		}
	case ArrayContains:
		return applyArrayContains(rule, actual)
	default:
		return fmt.Errorf("matching rule %q can not be applied", rule.Kind)
	}
}

// ApplyList applies a whole rule list according to its combination logic.
func ApplyList(list RuleList, expected, actual any) error {
	if list.IsEmpty() {
		return nil
	}
	if list.logic() == LogicOr {
		var last error
		for _, rule := range list.Rules {
			last = Apply(rule, expected, actual)
			if last == nil {
				return nil
			}
		}
		return last
	}
	var errs []string
	for _, rule := range list.Rules {
		if err := Apply(rule, expected, actual); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, ", "))
}

func applyEachKey(rule Rule, actual any) error {
	obj, ok := actual.(map[string]any)
	if !ok {
		return fmt.Errorf("Expected %s (%s) to be an Object", FormatValue(actual), TypeName(actual))
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var errs []string
	for _, key := range keys {
		for _, list := range rule.Rules {
			if err := ApplyList(list, nil, key); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, ", "))
}

func applyEachValue(rule Rule, actual any) error {
	var values []any
	switch v := actual.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			values = append(values, v[k])
		}
	case []any:
		values = v
	default:
		return fmt.Errorf("Expected %s (%s) to be an Object or an Array", FormatValue(actual), TypeName(actual))
	}
	var errs []string
	for _, value := range values {
		for _, list := range rule.Rules {
			if err := ApplyList(list, nil, value); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, ", "))
}

func applyArrayContains(rule Rule, actual any) error {
	list, ok := actual.([]any)
	if !ok {
		return fmt.Errorf("Expected %s (%s) to be an Array", FormatValue(actual), TypeName(actual))
	}
	for _, variant := range rule.Variants {
		if findVariantIndex(variant, list) < 0 {
			return fmt.Errorf("Did not find a matching variant for the expected element at index %d", variant.Index)
		}
	}
	return nil
}

func findVariantIndex(variant Variant, list []any) int {
	for i, element := range list {
		if VariantMatches(variant, element) {
			return i
		}
	}
	return -1
}

// VariantMatches reports whether all rules of an ArrayContains variant pass
// against a single list element. Rule paths are relative to the element.
func VariantMatches(variant Variant, element any) bool {
	if variant.Rules.IsEmpty() {
		return false
	}
	for _, key := range variant.Rules.Paths() {
		e := variant.Rules.rules[key]
		value, ok := resolveValue(e.path, element)
		if !ok {
			return false
		}
		if err := ApplyList(e.list, nil, value); err != nil {
			return false
		}
	}
	return true
}

// resolveValue walks a path inside a decoded JSON value. The path root
// addresses the value itself.
func resolveValue(path pathexp.DocPath, value any) (any, bool) {
	current := value
	for _, token := range path.Tokens() {
		switch token.Kind {
		case pathexp.Root:
			// stay on the value
		case pathexp.Field:
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			current, ok = obj[token.Name]
			if !ok {
				return nil, false
			}
		case pathexp.Index:
			arr, ok := current.([]any)
			if !ok || token.Index < 0 || token.Index >= len(arr) {
				return nil, false
			}
			current = arr[token.Index]
		default:
			return nil, false
		}
	}
	return current, true
}

func matchType(expected, actual any) error {
	if TypeName(actual) == TypeName(expected) ||
		(isNumeric(actual) && isNumeric(expected)) {
		return nil
	}
	return fmt.Errorf("Expected %s (%s) to be the same type as %s (%s)",
		FormatValue(actual), TypeName(actual), FormatValue(expected), TypeName(expected))
}

// matchTypeWithLength applies the size bounds to collections; any other
// actual value falls back to a plain type comparison.
func matchTypeWithLength(expected, actual any, minLen, maxLen int) error {
	switch actual.(type) {
	case []any, map[string]any:
		return checkLength(actual, minLen, maxLen)
	}
	return matchType(expected, actual)
}

func checkLength(actual any, minLen, maxLen int) error {
	var size int
	switch v := actual.(type) {
	case []any:
		size = len(v)
	case map[string]any:
		size = len(v)
	case string:
		size = len(v)
	default:
		return fmt.Errorf("Expected %s (%s) to be a collection", FormatValue(actual), TypeName(actual))
	}
	if minLen >= 0 && size < minLen {
		return fmt.Errorf("Expected %s (size %d) to have minimum size of %d", FormatValue(actual), size, minLen)
	}
	if maxLen >= 0 && size > maxLen {
		return fmt.Errorf("Expected %s (size %d) to have maximum size of %d", FormatValue(actual), size, maxLen)
	}
	return nil
}

func valuesEqual(expected, actual any) bool {
	if isNumeric(expected) && isNumeric(actual) {
		return numericValue(expected) == numericValue(actual)
	}
	switch e := expected.(type) {
	case nil:
		return actual == nil
	case string:
		a, ok := actual.(string)
		return ok && a == e
	case bool:
		a, ok := actual.(bool)
		return ok && a == e
	case []any:
		a, ok := actual.([]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for i := range e {
			if !valuesEqual(e[i], a[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for k, ev := range e {
			av, present := a[k]
			if !present || !valuesEqual(ev, av) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int64, uint64, float64:
		return true
	default:
		return false
	}
}

func numericValue(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int64, uint64:
		return true
	case string:
		_, err := strconv.ParseInt(n, 10, 64)
		return err == nil
	default:
		return false
	}
}

func isDecimal(v any) bool {
	switch n := v.(type) {
	case float64:
		return true
	case string:
		if !strings.Contains(n, ".") {
			return false
		}
		_, err := strconv.ParseFloat(n, 64)
		return err == nil
	default:
		return false
	}
}

// TypeName returns the JSON type name of a decoded value, as used in
// mismatch messages.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "Null"
	case bool:
		return "Boolean"
	case string:
		return "String"
	case int, int64, uint64:
		return "Integer"
	case float64:
		return "Decimal"
	case []any:
		return "Array"
	case map[string]any:
		return "Object"
	default:
		return "Unknown"
	}
}

// FormatValue renders a decoded JSON value for mismatch messages: strings
// single-quoted, scalars plain, collections as canonical JSON.
func FormatValue(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(n)
	case string:
		return "'" + n + "'"
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case uint64:
		return strconv.FormatUint(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return oj.JSON(v, &canonical)
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
		return oj.JSON(v, &canonical)
	}
}
