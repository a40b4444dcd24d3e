package generators

import (
	"fmt"

	"github.com/ohler55/ojg/oj"

	"github.com/pactplan/pactplan/pkg/matchingrules"
)

// singleValueCategories are the parts holding exactly one value; their
// pact-file JSON is the generator object itself rather than a sub-key map.
var singleValueCategories = map[Category]bool{
	CategoryMethod: true,
	CategoryPath:   true,
	CategoryStatus: true,
}

// ToJSON renders the generator set in pact-file form.
func (g *Generators) ToJSON() map[string]any {
	out := map[string]any{}
	if g == nil {
		return out
	}
	for category, m := range g.categories {
		if len(m) == 0 {
			continue
		}
		if singleValueCategories[category] {
			for _, gen := range m {
				out[string(category)] = gen.toJSON()
			}
			continue
		}
		sub := map[string]any{}
		for key, gen := range m {
			sub[key] = gen.toJSON()
		}
		out[string(category)] = sub
	}
	return out
}

// JSON renders the generator set as a canonical JSON string.
func (g *Generators) JSON() string {
	return oj.JSON(g.ToJSON(), &canonical)
}

// FromJSON loads a generator set from decoded pact-file JSON.
func FromJSON(raw map[string]any) (*Generators, error) {
	g := New()
	for name, catRaw := range raw {
		category := Category(name)
		catMap, ok := catRaw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("generators category %q: expected an object", name)
		}
		if singleValueCategories[category] {
			gen, err := generatorFromJSON(catMap)
			if err != nil {
				return nil, fmt.Errorf("generators category %q: %w", name, err)
			}
			g.Add(category, "", gen)
			continue
		}
		for key, genRaw := range catMap {
			genMap, ok := genRaw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("generators category %q, key %q: expected an object", name, key)
			}
			gen, err := generatorFromJSON(genMap)
			if err != nil {
				return nil, fmt.Errorf("generators category %q, key %q: %w", name, key, err)
			}
			g.Add(category, key, gen)
		}
	}
	return g, nil
}

func (g Generator) toJSON() map[string]any {
	out := map[string]any{"type": string(g.Kind)}
	switch g.Kind {
	case RandomInt:
		out["min"] = int64(g.Min)
		out["max"] = int64(g.Max)
	case UUID:
		if g.Format != "" {
			out["format"] = g.Format
		}
	case RandomDecimal, RandomHexadecimal:
		out["digits"] = int64(g.Digits)
	case RandomString:
		out["size"] = int64(g.Size)
	case Regex:
		out["regex"] = g.Regex
	case Date, Time, DateTime:
		if g.Format != "" {
			out["format"] = g.Format
		}
	case ProviderState:
		out["expression"] = g.Expression
		if g.DataType != "" {
			out["dataType"] = string(g.DataType)
		}
	case MockServerURL:
		out["example"] = g.Example
		out["regex"] = g.Regex
	case ArrayContains:
		variants := make([]any, 0, len(g.Variants))
		for _, v := range g.Variants {
			variants = append(variants, v.toJSON())
		}
		out["variants"] = variants
	}
	return out
}

func (v Variant) toJSON() map[string]any {
	out := map[string]any{"index": int64(v.Index)}
	if !v.Rules.IsEmpty() {
		out["rules"] = v.Rules.JSONMap()
	}
	if len(v.Generators) > 0 {
		gens := map[string]any{}
		for key, gen := range v.Generators {
			gens[key] = gen.toJSON()
		}
		out["generators"] = gens
	}
	return out
}

func generatorFromJSON(raw map[string]any) (Generator, error) {
	kind, _ := raw["type"].(string)
	switch Kind(kind) {
	case RandomInt:
		minVal, _ := intField(raw, "min")
		maxVal, ok := intField(raw, "max")
		if !ok {
			maxVal = 2147483647
		}
		return Generator{Kind: RandomInt, Min: minVal, Max: maxVal}, nil
	case UUID:
		format, _ := raw["format"].(string)
		return Generator{Kind: UUID, Format: format}, nil
	case RandomDecimal:
		digits, _ := intField(raw, "digits")
		return Generator{Kind: RandomDecimal, Digits: digits}, nil
	case RandomHexadecimal:
		digits, _ := intField(raw, "digits")
		return Generator{Kind: RandomHexadecimal, Digits: digits}, nil
	case RandomString:
		size, _ := intField(raw, "size")
		return Generator{Kind: RandomString, Size: size}, nil
	case Regex:
		pattern, ok := raw["regex"].(string)
		if !ok {
			return Generator{}, fmt.Errorf("Regex generator requires a 'regex' string")
		}
		return Generator{Kind: Regex, Regex: pattern}, nil
	case Date, Time, DateTime:
		format, _ := raw["format"].(string)
		return Generator{Kind: Kind(kind), Format: format}, nil
	case RandomBoolean:
		return Generator{Kind: RandomBoolean}, nil
	case ProviderState:
		expression, ok := raw["expression"].(string)
		if !ok {
			return Generator{}, fmt.Errorf("ProviderState generator requires an 'expression' string")
		}
		dataType, _ := raw["dataType"].(string)
		return Generator{Kind: ProviderState, Expression: expression, DataType: DataType(dataType)}, nil
	case MockServerURL:
		example, _ := raw["example"].(string)
		pattern, ok := raw["regex"].(string)
		if !ok {
			return Generator{}, fmt.Errorf("MockServerURL generator requires a 'regex' string")
		}
		return Generator{Kind: MockServerURL, Example: example, Regex: pattern}, nil
	case ArrayContains:
		variantsRaw, _ := raw["variants"].([]any)
		var variants []Variant
		for _, vRaw := range variantsRaw {
			vMap, ok := vRaw.(map[string]any)
			if !ok {
				return Generator{}, fmt.Errorf("ArrayContains variants must be objects")
			}
			variant, err := variantFromJSON(vMap)
			if err != nil {
				return Generator{}, err
			}
			variants = append(variants, variant)
		}
		return Generator{Kind: ArrayContains, Variants: variants}, nil
	case "":
		return Generator{}, fmt.Errorf("generator is missing the 'type' attribute")
	default:
		return Generator{}, fmt.Errorf("unknown generator type %q", kind)
	}
}

func variantFromJSON(raw map[string]any) (Variant, error) {
	variant := Variant{}
	variant.Index, _ = intField(raw, "index")
	if rulesRaw, ok := raw["rules"].(map[string]any); ok {
		c, err := matchingrules.CategoryFromJSON("body", rulesRaw)
		if err != nil {
			return Variant{}, err
		}
		variant.Rules = c
	}
	if gensRaw, ok := raw["generators"].(map[string]any); ok {
		variant.Generators = map[string]Generator{}
		for key, genRaw := range gensRaw {
			genMap, ok := genRaw.(map[string]any)
			if !ok {
				return Variant{}, fmt.Errorf("variant generators must be objects")
			}
			gen, err := generatorFromJSON(genMap)
			if err != nil {
				return Variant{}, err
			}
			variant.Generators[key] = gen
		}
	}
	return variant, nil
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
