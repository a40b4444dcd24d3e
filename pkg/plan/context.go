package plan

import (
	"log/slog"

	"github.com/pactplan/pactplan/pkg/logging"
	"github.com/pactplan/pactplan/pkg/matchingrules"
	"github.com/pactplan/pactplan/pkg/models"
	"github.com/pactplan/pactplan/pkg/pathexp"
)

// Config tunes plan building and execution.
type Config struct {
	// AllowUnexpectedEntries skips the only-entries checks on maps and
	// objects, accepting actual entries the expectation does not name.
	AllowUnexpectedEntries bool
	// ShowColour enables coloured plan rendering in callers.
	ShowColour bool
}

// MatchingContext carries everything a plan build or walk needs: the pact
// and interaction under test, the matching rule category currently in
// scope, the current-value stack and configuration.
type MatchingContext struct {
	Pact        *models.Pact
	Interaction models.Interaction
	Config      Config
	Logger      *slog.Logger

	rules *matchingrules.Category
	stack []NodeValue
}

// NewMatchingContext builds a context for an interaction of a pact.
func NewMatchingContext(pact *models.Pact, interaction models.Interaction, logger *slog.Logger) *MatchingContext {
	if logger == nil {
		logger = logging.Nop()
	}
	return &MatchingContext{Pact: pact, Interaction: interaction, Logger: logger}
}

// withRules copies the context with a different rule scope and a fresh
// stack.
func (c *MatchingContext) withRules(rules *matchingrules.Category) *MatchingContext {
	out := *c
	out.rules = rules
	out.stack = nil
	return &out
}

func (c *MatchingContext) requestRules(name string) *matchingrules.Category {
	if http := c.Interaction.AsHTTP(); http != nil && http.Request.MatchingRules != nil {
		return http.Request.MatchingRules.Category(name)
	}
	return nil
}

// ForMethod narrows the context to the method rules.
func (c *MatchingContext) ForMethod() *MatchingContext {
	return c.withRules(c.requestRules("method"))
}

// ForPath narrows the context to the path rules.
func (c *MatchingContext) ForPath() *MatchingContext {
	return c.withRules(c.requestRules("path"))
}

// ForQuery narrows the context to the query rules.
func (c *MatchingContext) ForQuery() *MatchingContext {
	return c.withRules(c.requestRules("query"))
}

// ForHeaders narrows the context to the header rules.
func (c *MatchingContext) ForHeaders() *MatchingContext {
	return c.withRules(c.requestRules("header"))
}

// ForBody narrows the context to the body rules.
func (c *MatchingContext) ForBody() *MatchingContext {
	return c.withRules(c.requestRules("body"))
}

// MatcherIsDefined reports whether a matching rule applies at the path in
// the current scope.
func (c *MatchingContext) MatcherIsDefined(path pathexp.DocPath) bool {
	return c.rules.MatcherIsDefined(path)
}

// SelectBestMatcher returns the most specific rule list for the path in
// the current scope; the empty list when none applies.
func (c *MatchingContext) SelectBestMatcher(path pathexp.DocPath) matchingrules.RuleList {
	return c.rules.SelectBestMatcher(path)
}

// PushValue pushes a value onto the current-value stack.
func (c *MatchingContext) PushValue(v NodeValue) {
	c.stack = append(c.stack, v)
}

// PopValue pops the top of the stack; false when empty.
func (c *MatchingContext) PopValue() (NodeValue, bool) {
	if len(c.stack) == 0 {
		return NodeValue{}, false
	}
	v := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return v, true
}

// CurrentValue returns the top of the stack without removing it.
func (c *MatchingContext) CurrentValue() (NodeValue, bool) {
	if len(c.stack) == 0 {
		return NodeValue{}, false
	}
	return c.stack[len(c.stack)-1], true
}

// UpdateCurrentValue replaces the top of the stack, pushing when empty.
func (c *MatchingContext) UpdateCurrentValue(v NodeValue) {
	if len(c.stack) == 0 {
		c.stack = []NodeValue{v}
		return
	}
	c.stack[len(c.stack)-1] = v
}

// StackDepth returns the stack size; the walker restores it around
// subtrees so a failing branch cannot leak values.
func (c *MatchingContext) StackDepth() int {
	return len(c.stack)
}

// TruncateStack drops stack entries above the given depth.
func (c *MatchingContext) TruncateStack(depth int) {
	if depth < len(c.stack) {
		c.stack = c.stack[:depth]
	}
}
