// Package plan implements the matching execution plan engine: building
// declarative plans from expected interactions, walking them against
// actual values, and pretty-printing the annotated result trees.
package plan

import (
	"encoding/base64"
	"sort"
	"strconv"
	"strings"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
)

// ValueKind discriminates NodeValue variants.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindBool
	KindUInt
	KindBytes
	KindList
	KindMap
	KindNamespaced
	KindJSON
)

// NodeValue is a value carried by a plan node or produced by executing
// one. Only the fields relevant to the Kind are populated.
type NodeValue struct {
	Kind      ValueKind
	Str       string
	Bool      bool
	UInt      uint64
	Bytes     []byte
	List      []string
	Map       map[string][]string
	Namespace string
	JSON      any
}

// NullValue returns the NULL value.
func NullValue() NodeValue {
	return NodeValue{Kind: KindNull}
}

// StringValue returns a STRING value.
func StringValue(s string) NodeValue {
	return NodeValue{Kind: KindString, Str: s}
}

// BoolValue returns a BOOL value.
func BoolValue(b bool) NodeValue {
	return NodeValue{Kind: KindBool, Bool: b}
}

// UIntValue returns a UINT value.
func UIntValue(u uint64) NodeValue {
	return NodeValue{Kind: KindUInt, UInt: u}
}

// BytesValue returns a BYTES value.
func BytesValue(b []byte) NodeValue {
	return NodeValue{Kind: KindBytes, Bytes: b}
}

// ListValue returns a string list value.
func ListValue(items ...string) NodeValue {
	return NodeValue{Kind: KindList, List: items}
}

// MapValue returns a string multimap value.
func MapValue(m map[string][]string) NodeValue {
	return NodeValue{Kind: KindMap, Map: m}
}

// JSONValue returns a JSON value holding a decoded document.
func JSONValue(v any) NodeValue {
	return NodeValue{Kind: KindJSON, JSON: v}
}

// NamespacedValue returns a namespaced string value ("ns:content").
func NamespacedValue(namespace, content string) NodeValue {
	return NodeValue{Kind: KindNamespaced, Namespace: namespace, Str: content}
}

var canonicalJSON = ojg.Options{Sort: true}

// CanonicalJSON renders a decoded JSON value with sorted object keys.
func CanonicalJSON(v any) string {
	return oj.JSON(v, &canonicalJSON)
}

// StrForm renders the value in plan text notation.
func (v NodeValue) StrForm() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindString:
		return escapeString(v.Str)
	case KindBool:
		return "BOOL(" + strconv.FormatBool(v.Bool) + ")"
	case KindUInt:
		return "UINT(" + strconv.FormatUint(v.UInt, 10) + ")"
	case KindBytes:
		return "BYTES(" + strconv.Itoa(len(v.Bytes)) + ", " +
			base64.StdEncoding.EncodeToString(v.Bytes) + ")"
	case KindList:
		items := make([]string, len(v.List))
		for i, s := range v.List {
			items[i] = escapeString(s)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case KindMap:
		keys := make([]string, 0, len(v.Map))
		for key := range v.Map {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		entries := make([]string, 0, len(keys))
		for _, key := range keys {
			values := v.Map[key]
			var rendered string
			if len(values) == 1 {
				rendered = escapeString(values[0])
			} else {
				items := make([]string, len(values))
				for i, s := range values {
					items[i] = escapeString(s)
				}
				rendered = "[" + strings.Join(items, ", ") + "]"
			}
			entries = append(entries, escapeString(key)+": "+rendered)
		}
		return "{" + strings.Join(entries, ", ") + "}"
	case KindNamespaced:
		return v.Namespace + ":" + v.Str
	case KindJSON:
		return "json:" + CanonicalJSON(v.JSON)
	default:
		return "NULL"
	}
}

// escapeString renders a string single-quoted, switching to a
// double-quoted escaped form when it contains single quotes or control
// characters.
func escapeString(s string) string {
	if strings.ContainsRune(s, '\'') || hasControlChars(s) {
		return strconv.Quote(s)
	}
	return "'" + s + "'"
}

func hasControlChars(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the value is empty for its kind: NULL, the empty
// string, empty collections and empty JSON documents are empty.
func (v NodeValue) IsEmpty() bool {
	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return v.Str == ""
	case KindBytes:
		return len(v.Bytes) == 0
	case KindList:
		return len(v.List) == 0
	case KindMap:
		return len(v.Map) == 0
	case KindJSON:
		switch j := v.JSON.(type) {
		case nil:
			return true
		case string:
			return j == ""
		case []any:
			return len(j) == 0
		case map[string]any:
			return len(j) == 0
		default:
			return false
		}
	default:
		return false
	}
}

// IsTruthy reports whether the value counts as true in conditions.
func (v NodeValue) IsTruthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindUInt:
		return v.UInt > 0
	case KindJSON:
		switch j := v.JSON.(type) {
		case bool:
			return j
		default:
			return !v.IsEmpty()
		}
	case KindNull:
		return false
	default:
		return !v.IsEmpty()
	}
}

// AsString returns the string content of STRING and NAMESPACED values.
func (v NodeValue) AsString() (string, bool) {
	switch v.Kind {
	case KindString, KindNamespaced:
		return v.Str, true
	default:
		return "", false
	}
}

// Interface converts the value to a decoded JSON shape for rule
// application: lists become []any, multimaps map[string]any with single
// values unwrapped.
func (v NodeValue) Interface() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindString:
		return v.Str
	case KindBool:
		return v.Bool
	case KindUInt:
		return int64(v.UInt)
	case KindBytes:
		return string(v.Bytes)
	case KindList:
		out := make([]any, len(v.List))
		for i, s := range v.List {
			out[i] = s
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.Map))
		for key, values := range v.Map {
			if len(values) == 1 {
				out[key] = values[0]
			} else {
				items := make([]any, len(values))
				for i, s := range values {
					items[i] = s
				}
				out[key] = items
			}
		}
		return out
	case KindNamespaced:
		return v.Str
	case KindJSON:
		return v.JSON
	default:
		return nil
	}
}

// Equal reports whether two values are equal in kind and content.
func (v NodeValue) Equal(other NodeValue) bool {
	return v.StrForm() == other.StrForm()
}
