package generators

import (
	"fmt"
	"strconv"
	"strings"
)

// DataType coerces provider state expression results.
type DataType string

const (
	DataTypeString  DataType = "STRING"
	DataTypeInteger DataType = "INTEGER"
	DataTypeDecimal DataType = "DECIMAL"
	DataTypeBoolean DataType = "BOOLEAN"
	DataTypeRaw     DataType = "RAW"
)

// Coerce converts a string value to the data type.
func (d DataType) Coerce(value string) (any, error) {
	switch d {
	case DataTypeInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", value)
		}
		return n, nil
	case DataTypeDecimal:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a decimal number", value)
		}
		return f, nil
	case DataTypeBoolean:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", value)
		}
		return b, nil
	default:
		return value, nil
	}
}

// ContainsExpressions reports whether a template string holds any "${name}"
// expression.
func ContainsExpressions(template string) bool {
	return strings.Contains(template, "${")
}

// resolveExpression evaluates a provider state expression against the
// context values. A template with "${name}" markers interpolates each named
// context value; a plain string is looked up as a context key directly.
func resolveExpression(template string, ctx map[string]any) (any, error) {
	if !ContainsExpressions(template) {
		value, ok := ctx[template]
		if !ok {
			return nil, fmt.Errorf("no value for %q found in the provider state context", template)
		}
		return value, nil
	}
	interpolated, err := interpolate(template, ctx)
	if err != nil {
		return nil, err
	}
	return interpolated, nil
}

func interpolate(template string, ctx map[string]any) (string, error) {
	var sb strings.Builder
	rest := template
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		sb.WriteString(rest[:start])
		rest = rest[start+2:]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return "", fmt.Errorf("missing closing brace in expression string %q", template)
		}
		name := rest[:end]
		if name == "" {
			return "", fmt.Errorf("empty expression in string %q", template)
		}
		value, ok := ctx[name]
		if !ok {
			return "", fmt.Errorf("no value for %q found in the provider state context", name)
		}
		sb.WriteString(valueToString(value))
		rest = rest[end+1:]
	}
}
