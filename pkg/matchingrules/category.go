package matchingrules

import (
	"sort"

	"github.com/pactplan/pactplan/pkg/pathexp"
)

// Category holds the matching rules for one part of an interaction (body,
// path, query, header, status, metadata), keyed by path expression.
type Category struct {
	Name  string
	rules map[string]entry
}

type entry struct {
	path pathexp.DocPath
	list RuleList
}

// NewCategory returns an empty category with the given name.
func NewCategory(name string) *Category {
	return &Category{Name: name, rules: map[string]entry{}}
}

// Add appends a rule to the list at the given path, creating the list with
// the given logic when absent.
func (c *Category) Add(path pathexp.DocPath, rule Rule, logic RuleLogic) {
	if c.rules == nil {
		c.rules = map[string]entry{}
	}
	key := path.String()
	e, ok := c.rules[key]
	if !ok {
		e = entry{path: path, list: RuleList{Logic: logic}}
	}
	e.list.Rules = append(e.list.Rules, rule)
	c.rules[key] = e
}

// AddList sets the whole rule list at a path, replacing any existing list.
func (c *Category) AddList(path pathexp.DocPath, list RuleList) {
	if c.rules == nil {
		c.rules = map[string]entry{}
	}
	c.rules[path.String()] = entry{path: path, list: list}
}

// Remove deletes the rule list at a path, if any.
func (c *Category) Remove(path pathexp.DocPath) {
	delete(c.rules, path.String())
}

// RemoveWhere deletes every rule list whose path string satisfies pred.
func (c *Category) RemoveWhere(pred func(path string) bool) {
	for key := range c.rules {
		if pred(key) {
			delete(c.rules, key)
		}
	}
}

// IsEmpty reports whether the category holds no rules.
func (c *Category) IsEmpty() bool {
	return c == nil || len(c.rules) == 0
}

// Len returns the number of paths carrying rules.
func (c *Category) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}

// Paths returns the rule paths in sorted order.
func (c *Category) Paths() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.rules))
	for key := range c.rules {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// ListAt returns the rule list stored at an exact path key.
func (c *Category) ListAt(path pathexp.DocPath) (RuleList, bool) {
	if c == nil {
		return RuleList{}, false
	}
	e, ok := c.rules[path.String()]
	return e.list, ok
}

// MatcherIsDefined reports whether any rule path applies to the given value
// path. A rule applies when its weight against the path segments is
// positive, which includes rules defined on an ancestor path.
func (c *Category) MatcherIsDefined(path pathexp.DocPath) bool {
	if c.IsEmpty() {
		return false
	}
	segments := path.Segments()
	for _, e := range c.rules {
		if w, _ := e.path.CalcPathWeight(segments); w > 0 {
			return true
		}
	}
	return false
}

// SelectBestMatcher returns the most specific rule list applying to the
// given value path. Selection never fails: when no rule applies the empty
// list is returned. Ties on weight resolve to the longer rule path, then to
// the lexically smaller path string so selection is deterministic.
func (c *Category) SelectBestMatcher(path pathexp.DocPath) RuleList {
	if c.IsEmpty() {
		return RuleList{}
	}
	segments := path.Segments()
	var (
		best       RuleList
		bestWeight int
		bestLen    int
		bestKey    string
	)
	for key, e := range c.rules {
		w, l := e.path.CalcPathWeight(segments)
		if w == 0 {
			continue
		}
		better := w > bestWeight ||
			(w == bestWeight && l > bestLen) ||
			(w == bestWeight && l == bestLen && (bestKey == "" || key < bestKey))
		if better {
			best, bestWeight, bestLen, bestKey = e.list, w, l, key
		}
	}
	return best
}

// Clone returns a deep copy of the category.
func (c *Category) Clone() *Category {
	if c == nil {
		return nil
	}
	out := NewCategory(c.Name)
	for key, e := range c.rules {
		list := RuleList{Logic: e.list.Logic, Rules: append([]Rule(nil), e.list.Rules...)}
		out.rules[key] = entry{path: e.path, list: list}
	}
	return out
}

// Equal reports structural equality with another category.
func (c *Category) Equal(other *Category) bool {
	if c.Len() != other.Len() {
		return false
	}
	if c == nil || other == nil {
		return true
	}
	for key, e := range c.rules {
		oe, ok := other.rules[key]
		if !ok || !e.list.Equal(oe.list) {
			return false
		}
	}
	return true
}

// RuleSet groups categories by name for a whole interaction part set.
type RuleSet struct {
	categories map[string]*Category
}

// NewRuleSet returns an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{categories: map[string]*Category{}}
}

// On returns the category with the given name, creating it when absent.
func (s *RuleSet) On(name string) *Category {
	if s.categories == nil {
		s.categories = map[string]*Category{}
	}
	c, ok := s.categories[name]
	if !ok {
		c = NewCategory(name)
		s.categories[name] = c
	}
	return c
}

// Category returns the named category, or nil when absent.
func (s *RuleSet) Category(name string) *Category {
	if s == nil {
		return nil
	}
	return s.categories[name]
}

// Names returns the category names in sorted order.
func (s *RuleSet) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.categories))
	for name := range s.categories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsEmpty reports whether no category holds any rules.
func (s *RuleSet) IsEmpty() bool {
	if s == nil {
		return true
	}
	for _, c := range s.categories {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the rule set.
func (s *RuleSet) Clone() *RuleSet {
	if s == nil {
		return nil
	}
	out := NewRuleSet()
	for name, c := range s.categories {
		out.categories[name] = c.Clone()
	}
	return out
}
