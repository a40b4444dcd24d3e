package plan

import (
	"github.com/pactplan/pactplan/pkg/models"
	"github.com/pactplan/pactplan/pkg/pathexp"
)

// ValueResolver resolves plan paths against the actual interaction. Misses
// resolve to NULL so a walk always completes; only the checks acting on
// the resolved values decide failure.
type ValueResolver interface {
	Resolve(path pathexp.DocPath, ctx *MatchingContext) NodeValue
}

// HTTPRequestResolver resolves paths against an actual HTTP request:
// $.method, $.path, $.query, $.query.<name>, $.headers, $.headers.<name>,
// $.body and $.content-type.
type HTTPRequestResolver struct {
	Request *models.HTTPRequest
}

func (r HTTPRequestResolver) Resolve(path pathexp.DocPath, ctx *MatchingContext) NodeValue {
	tokens := path.Tokens()
	if len(tokens) < 2 || tokens[0].Kind != pathexp.Root || tokens[1].Kind != pathexp.Field {
		return NullValue()
	}
	rest := tokens[2:]
	switch tokens[1].Name {
	case "method":
		return StringValue(r.Request.Method)
	case "path":
		return StringValue(r.Request.Path)
	case "query":
		return resolveMultimap(r.Request.Query, rest, false)
	case "headers":
		return resolveMultimap(r.Request.Headers, rest, true)
	case "body":
		if r.Request.Body.IsPresent() {
			return BytesValue(r.Request.Body.Value)
		}
		return NullValue()
	case "content-type":
		ct := r.Request.ContentType()
		if ct.IsUnknown() && ct.String() == "" {
			return NullValue()
		}
		return StringValue(ct.String())
	default:
		return NullValue()
	}
}

func resolveMultimap(m map[string][]string, rest []pathexp.Token, caseInsensitive bool) NodeValue {
	if len(rest) == 0 {
		return MapValue(m)
	}
	if rest[0].Kind != pathexp.Field {
		return NullValue()
	}
	values := m[rest[0].Name]
	if values == nil && caseInsensitive {
		values = models.HeaderValues(m, rest[0].Name)
	}
	if values == nil {
		return NullValue()
	}
	if len(rest) >= 2 && rest[1].Kind == pathexp.Index {
		if rest[1].Index < 0 || rest[1].Index >= len(values) {
			return NullValue()
		}
		return StringValue(values[rest[1].Index])
	}
	if len(values) == 1 {
		return StringValue(values[0])
	}
	return ListValue(values...)
}

// CurrentStackResolver resolves "~>" paths inside the current stack value,
// walking the decoded document with the path tokens.
type CurrentStackResolver struct{}

func (CurrentStackResolver) Resolve(path pathexp.DocPath, ctx *MatchingContext) NodeValue {
	current, ok := ctx.CurrentValue()
	if !ok {
		return NullValue()
	}
	return resolveInValue(current, path.Tokens())
}

func resolveInValue(value NodeValue, tokens []pathexp.Token) NodeValue {
	if len(tokens) == 0 {
		return value
	}
	token := tokens[0]
	rest := tokens[1:]
	switch token.Kind {
	case pathexp.Root:
		return resolveInValue(value, rest)
	case pathexp.Field:
		switch value.Kind {
		case KindJSON:
			obj, ok := value.JSON.(map[string]any)
			if !ok {
				return NullValue()
			}
			child, present := obj[token.Name]
			if !present {
				return NullValue()
			}
			return resolveInValue(JSONValue(child), rest)
		case KindMap:
			values, present := value.Map[token.Name]
			if !present {
				return NullValue()
			}
			if len(rest) > 0 && rest[0].Kind == pathexp.Index {
				if rest[0].Index < 0 || rest[0].Index >= len(values) {
					return NullValue()
				}
				return resolveInValue(StringValue(values[rest[0].Index]), rest[1:])
			}
			if len(values) == 1 {
				return resolveInValue(StringValue(values[0]), rest)
			}
			return resolveInValue(ListValue(values...), rest)
		default:
			return NullValue()
		}
	case pathexp.Index:
		switch value.Kind {
		case KindJSON:
			arr, ok := value.JSON.([]any)
			if !ok {
				// A single element addressed by [0] resolves to itself so
				// count mismatches surface in count checks, not here.
				if token.Index == 0 {
					return resolveInValue(value, rest)
				}
				return NullValue()
			}
			if token.Index < 0 || token.Index >= len(arr) {
				return NullValue()
			}
			return resolveInValue(JSONValue(arr[token.Index]), rest)
		case KindList:
			if token.Index < 0 || token.Index >= len(value.List) {
				return NullValue()
			}
			return resolveInValue(StringValue(value.List[token.Index]), rest)
		default:
			if token.Index == 0 {
				return resolveInValue(value, rest)
			}
			return NullValue()
		}
	default:
		return NullValue()
	}
}
