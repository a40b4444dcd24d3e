package generators

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/pactplan/pactplan/pkg/matchingrules"
)

// ConvertJSONToFormBody narrows a decoded JSON object to a form-urlencoded
// body. Only string and number values survive: objects, booleans, nulls and
// nested arrays have no form representation, so they are dropped with a
// logged error and any matching rules or generators addressing them are
// removed. Array values fan out to repeated keys.
func ConvertJSONToFormBody(value any, rules *matchingrules.Category, gens *Generators, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return "", fmt.Errorf("can not convert a JSON %s to a form-urlencoded body", matchingrules.TypeName(value))
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	h := &FormURLEncodedHandler{}
	for _, key := range keys {
		switch v := obj[key].(type) {
		case string:
			h.Pairs = append(h.Pairs, QueryPair{Key: key, Value: v})
		case int64:
			h.Pairs = append(h.Pairs, QueryPair{Key: key, Value: strconv.FormatInt(v, 10)})
		case float64:
			h.Pairs = append(h.Pairs, QueryPair{Key: key, Value: strconv.FormatFloat(v, 'f', -1, 64)})
		case []any:
			for _, element := range v {
				switch e := element.(type) {
				case string:
					h.Pairs = append(h.Pairs, QueryPair{Key: key, Value: e})
				case int64:
					h.Pairs = append(h.Pairs, QueryPair{Key: key, Value: strconv.FormatInt(e, 10)})
				case float64:
					h.Pairs = append(h.Pairs, QueryPair{Key: key, Value: strconv.FormatFloat(e, 'f', -1, 64)})
				default:
					dropFormValue(key, element, rules, gens, logger)
				}
			}
		default:
			dropFormValue(key, v, rules, gens, logger)
		}
	}
	return h.Encode(), nil
}

func dropFormValue(key string, value any, rules *matchingrules.Category, gens *Generators, logger *slog.Logger) {
	logger.Error("skipping value that can not be represented in a form-urlencoded body",
		"key", key, "type", matchingrules.TypeName(value))
	path := "$." + key
	if rules != nil {
		rules.RemoveWhere(func(rulePath string) bool {
			return strings.Contains(rulePath, path)
		})
	}
	if gens != nil {
		gens.RemoveWhere(CategoryBody, func(genKey string) bool {
			return strings.Contains(genKey, path)
		})
	}
}
