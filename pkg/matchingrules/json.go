package matchingrules

import (
	"fmt"
	"strings"

	"github.com/ohler55/ojg/oj"

	"github.com/pactplan/pactplan/pkg/pathexp"
)

// ToJSON renders the rule set in pact-file form: category name to a map of
// path expression to {"matchers": [...], "combine": "AND"}.
func (s *RuleSet) ToJSON() map[string]any {
	out := map[string]any{}
	if s == nil {
		return out
	}
	for name, c := range s.categories {
		if !c.IsEmpty() {
			out[name] = c.toJSON()
		}
	}
	return out
}

// JSON renders the rule set as a canonical JSON string with sorted keys.
func (s *RuleSet) JSON() string {
	return oj.JSON(s.ToJSON(), &canonical)
}

// RuleSetFromJSON loads a rule set from decoded pact-file JSON.
func RuleSetFromJSON(raw map[string]any) (*RuleSet, error) {
	s := NewRuleSet()
	for name, catRaw := range raw {
		catMap, ok := catRaw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("matching rules category %q: expected an object", name)
		}
		c, err := CategoryFromJSON(name, catMap)
		if err != nil {
			return nil, err
		}
		s.categories[name] = c
	}
	return s, nil
}

// JSONMap renders one category in pact-file form.
func (c *Category) JSONMap() map[string]any {
	return c.toJSON()
}

func (c *Category) toJSON() map[string]any {
	out := map[string]any{}
	for _, key := range c.Paths() {
		e := c.rules[key]
		matchers := make([]any, 0, len(e.list.Rules))
		for _, r := range e.list.Rules {
			matchers = append(matchers, r.toJSON())
		}
		out[key] = map[string]any{
			"matchers": matchers,
			"combine":  string(e.list.logic()),
		}
	}
	return out
}

// CategoryFromJSON loads one category from decoded pact-file JSON. A map
// holding a top-level "matchers" key (the pact form for single-value parts
// such as path or status) is read as rules on "$".
func CategoryFromJSON(name string, raw map[string]any) (*Category, error) {
	c := NewCategory(name)
	if _, ok := raw["matchers"]; ok {
		list, err := ruleListFromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("matching rules category %q: %w", name, err)
		}
		c.AddList(pathexp.NewRoot(), list)
		return c, nil
	}
	for key, listRaw := range raw {
		path, err := parseRulePath(key)
		if err != nil {
			return nil, fmt.Errorf("matching rules category %q: %w", name, err)
		}
		listMap, ok := listRaw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("matching rules category %q, path %q: expected an object", name, key)
		}
		list, err := ruleListFromJSON(listMap)
		if err != nil {
			return nil, fmt.Errorf("matching rules category %q, path %q: %w", name, key, err)
		}
		c.AddList(path, list)
	}
	return c, nil
}

// parseRulePath reads a rule path key. Query and header categories key
// rules by the bare parameter name, which is stored as a name-rooted path.
func parseRulePath(key string) (pathexp.DocPath, error) {
	if !strings.HasPrefix(key, "$") {
		return pathexp.NewRoot().Join(key), nil
	}
	return pathexp.Parse(key)
}

func ruleListFromJSON(raw map[string]any) (RuleList, error) {
	list := RuleList{Logic: LogicAnd}
	if combine, ok := raw["combine"].(string); ok && combine == string(LogicOr) {
		list.Logic = LogicOr
	}
	matchers, _ := raw["matchers"].([]any)
	for _, m := range matchers {
		ruleMap, ok := m.(map[string]any)
		if !ok {
			return RuleList{}, fmt.Errorf("matcher entries must be objects")
		}
		rule, err := ruleFromJSON(ruleMap)
		if err != nil {
			return RuleList{}, err
		}
		list.Rules = append(list.Rules, rule)
	}
	return list, nil
}

func (r Rule) toJSON() map[string]any {
	switch r.Kind {
	case Regex:
		return map[string]any{"match": "regex", "regex": r.Regex}
	case MinType:
		return map[string]any{"match": "type", "min": int64(r.Min)}
	case MaxType:
		return map[string]any{"match": "type", "max": int64(r.Max)}
	case MinMaxType:
		return map[string]any{"match": "type", "min": int64(r.Min), "max": int64(r.Max)}
	case Include:
		return map[string]any{"match": "include", "value": r.Value}
	case EachKey, EachValue:
		name := "eachKey"
		if r.Kind == EachValue {
			name = "eachValue"
		}
		defs := make([]any, 0, len(r.Rules))
		for _, list := range r.Rules {
			for _, rule := range list.Rules {
				defs = append(defs, rule.toJSON())
			}
		}
		return map[string]any{"match": name, "rules": defs}
	case ArrayContains:
		variants := make([]any, 0, len(r.Variants))
		for _, v := range r.Variants {
			variant := map[string]any{"index": int64(v.Index)}
			if !v.Rules.IsEmpty() {
				variant["rules"] = v.Rules.toJSON()
			}
			variants = append(variants, variant)
		}
		return map[string]any{"match": "arrayContains", "variants": variants}
	default:
		return map[string]any{"match": string(r.Kind)}
	}
}

// RuleFromJSON loads a single matcher definition from decoded JSON.
func RuleFromJSON(raw map[string]any) (Rule, error) {
	return ruleFromJSON(raw)
}

func ruleFromJSON(raw map[string]any) (Rule, error) {
	match, _ := raw["match"].(string)
	switch match {
	case "equality":
		return Rule{Kind: Equality}, nil
	case "regex":
		pattern, ok := raw["regex"].(string)
		if !ok {
			return Rule{}, fmt.Errorf("regex matcher requires a 'regex' string")
		}
		return Rule{Kind: Regex, Regex: pattern}, nil
	case "type":
		minVal, hasMin := intField(raw, "min")
		maxVal, hasMax := intField(raw, "max")
		switch {
		case hasMin && hasMax:
			return Rule{Kind: MinMaxType, Min: minVal, Max: maxVal}, nil
		case hasMin:
			return Rule{Kind: MinType, Min: minVal}, nil
		case hasMax:
			return Rule{Kind: MaxType, Max: maxVal}, nil
		default:
			return Rule{Kind: Type}, nil
		}
	case "integer":
		return Rule{Kind: Integer}, nil
	case "decimal":
		return Rule{Kind: Decimal}, nil
	case "number":
		return Rule{Kind: Number}, nil
	case "null":
		return Rule{Kind: Null}, nil
	case "boolean":
		return Rule{Kind: Boolean}, nil
	case "include":
		value, ok := raw["value"].(string)
		if !ok {
			return Rule{}, fmt.Errorf("include matcher requires a 'value' string")
		}
		return Rule{Kind: Include, Value: value}, nil
	case "eachKey", "eachValue":
		kind := EachKey
		if match == "eachValue" {
			kind = EachValue
		}
		defs, _ := raw["rules"].([]any)
		var rules []Rule
		for _, d := range defs {
			defMap, ok := d.(map[string]any)
			if !ok {
				return Rule{}, fmt.Errorf("%s matcher rules must be objects", match)
			}
			rule, err := ruleFromJSON(defMap)
			if err != nil {
				return Rule{}, err
			}
			rules = append(rules, rule)
		}
		return Rule{Kind: kind, Rules: []RuleList{{Rules: rules, Logic: LogicAnd}}}, nil
	case "values":
		return Rule{Kind: Values}, nil
	case "arrayContains":
		variantsRaw, _ := raw["variants"].([]any)
		var variants []Variant
		for _, v := range variantsRaw {
			vMap, ok := v.(map[string]any)
			if !ok {
				return Rule{}, fmt.Errorf("arrayContains variants must be objects")
			}
			idx, _ := intField(vMap, "index")
			variant := Variant{Index: idx}
			if rulesRaw, ok := vMap["rules"].(map[string]any); ok {
				c, err := CategoryFromJSON("body", rulesRaw)
				if err != nil {
					return Rule{}, err
				}
				variant.Rules = c
			}
			variants = append(variants, variant)
		}
		return Rule{Kind: ArrayContains, Variants: variants}, nil
	case "":
		return Rule{}, fmt.Errorf("matcher is missing the 'match' attribute")
	default:
		return Rule{}, fmt.Errorf("unknown matcher type %q", match)
	}
}

func intField(raw map[string]any, key string) (int, bool) {
	switch v := raw[key].(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
