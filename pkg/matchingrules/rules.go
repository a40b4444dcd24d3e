// Package matchingrules defines the matching rule model: individual rules,
// ordered rule lists with AND/OR combination, and per-category maps from
// path expressions to rule lists with best-match selection.
package matchingrules

import (
	"fmt"
	"hash/fnv"
	"reflect"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
)

// Kind names a matching rule variant. The string form doubles as the rule
// name used in execution plan actions ("match:" + Kind).
type Kind string

const (
	Equality      Kind = "equality"
	Regex         Kind = "regex"
	Type          Kind = "type"
	MinType       Kind = "min-type"
	MaxType       Kind = "max-type"
	MinMaxType    Kind = "min-max-type"
	Integer       Kind = "integer"
	Decimal       Kind = "decimal"
	Number        Kind = "number"
	Null          Kind = "null"
	Boolean       Kind = "boolean"
	Include       Kind = "include"
	EachKey       Kind = "each-key"
	EachValue     Kind = "each-value"
	Values        Kind = "values"
	ArrayContains Kind = "array-contains"
)

// Rule is a single matching rule. Only the fields relevant to the Kind are
// populated.
type Rule struct {
	Kind Kind

	// Regex holds the pattern for Regex rules.
	Regex string
	// Min and Max bound collection sizes for the *Type rules.
	Min int
	Max int
	// Value holds the expected substring for Include rules.
	Value string
	// Rules holds the definition rules for EachKey and EachValue.
	Rules []RuleList
	// Variants holds the expected variants for ArrayContains.
	Variants []Variant
}

// Variant is one expected element of an ArrayContains rule, with the rules
// that identify it in the actual list.
type Variant struct {
	Index int
	Rules *Category
}

// Name returns the rule name as used in plan actions.
func (r Rule) Name() string {
	return string(r.Kind)
}

// Params returns the rule parameters as a JSON-shaped value for embedding
// in execution plans, or nil when the rule carries none.
func (r Rule) Params() any {
	switch r.Kind {
	case Regex:
		return map[string]any{"regex": r.Regex}
	case MinType:
		return map[string]any{"min": int64(r.Min)}
	case MaxType:
		return map[string]any{"max": int64(r.Max)}
	case MinMaxType:
		return map[string]any{"min": int64(r.Min), "max": int64(r.Max)}
	case Include:
		return map[string]any{"value": r.Value}
	case EachKey, EachValue:
		defs := make([]any, 0, len(r.Rules))
		for _, list := range r.Rules {
			for _, rule := range list.Rules {
				defs = append(defs, rule.toJSON())
			}
		}
		return map[string]any{"rules": defs}
	default:
		return nil
	}
}

// Describe returns a short human form of the rule for plan annotations.
func (r Rule) Describe() string {
	switch r.Kind {
	case Regex:
		return fmt.Sprintf("regex(%s)", r.Regex)
	case MinType:
		return fmt.Sprintf("min-type(%d)", r.Min)
	case MaxType:
		return fmt.Sprintf("max-type(%d)", r.Max)
	case MinMaxType:
		return fmt.Sprintf("min-max-type(%d, %d)", r.Min, r.Max)
	case Include:
		return fmt.Sprintf("include(%s)", r.Value)
	default:
		return string(r.Kind)
	}
}

// Equal reports structural equality with another rule.
func (r Rule) Equal(other Rule) bool {
	return reflect.DeepEqual(r, other)
}

// Hash returns a stable structural hash of the rule.
func (r Rule) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(oj.JSON(r.toJSON(), &canonical)))
	return h.Sum64()
}

// RuleLogic selects how the rules of a RuleList combine.
type RuleLogic string

const (
	// LogicAnd requires every rule to pass.
	LogicAnd RuleLogic = "AND"
	// LogicOr requires at least one rule to pass.
	LogicOr RuleLogic = "OR"
)

// RuleList is an ordered list of rules with a combination mode. The zero
// value is the empty list.
type RuleList struct {
	Rules []Rule
	Logic RuleLogic
}

// NewRuleList builds an AND list from the given rules.
func NewRuleList(rules ...Rule) RuleList {
	return RuleList{Rules: rules, Logic: LogicAnd}
}

// IsEmpty reports whether the list holds no rules.
func (l RuleList) IsEmpty() bool {
	return len(l.Rules) == 0
}

// Equal reports structural equality with another list.
func (l RuleList) Equal(other RuleList) bool {
	if l.logic() != other.logic() || len(l.Rules) != len(other.Rules) {
		return false
	}
	for i, r := range l.Rules {
		if !r.Equal(other.Rules[i]) {
			return false
		}
	}
	return true
}

func (l RuleList) logic() RuleLogic {
	if l.Logic == "" {
		return LogicAnd
	}
	return l.Logic
}

var canonical = ojg.Options{Sort: true}
