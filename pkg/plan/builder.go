package plan

import (
	"strings"

	"github.com/pactplan/pactplan/pkg/matchingrules"
	"github.com/pactplan/pactplan/pkg/models"
	"github.com/pactplan/pactplan/pkg/pathexp"
)

// BuildRequestPlan compiles an expected HTTP request into an execution
// plan. Phases with nothing to check (no expected headers, missing body)
// are left out of the plan.
func BuildRequestPlan(expected *models.HTTPRequest, registry *BuilderRegistry, ctx *MatchingContext) (*ExecutionPlan, error) {
	root := Container("request")
	addPart(root, buildMethodPlan(expected, ctx.ForMethod()))
	addPart(root, buildPathPlan(expected, ctx.ForPath()))
	addPart(root, buildQueryPlan(expected, ctx.ForQuery()))
	addPart(root, buildHeaderPlan(expected, ctx.ForHeaders()))
	body, err := buildBodyPlan(expected, registry, ctx.ForBody())
	if err != nil {
		return nil, err
	}
	addPart(root, body)
	return NewExecutionPlan(root), nil
}

// ExecuteRequestPlan walks the plan against an actual request, returning
// the annotated plan. The input plan can be executed again.
func ExecuteRequestPlan(plan *ExecutionPlan, actual *models.HTTPRequest, ctx *MatchingContext) *ExecutionPlan {
	return ExecutePlan(plan, HTTPRequestResolver{Request: actual}, ctx)
}

func addPart(root *Node, part *Node) {
	if part != nil && len(part.Children) > 0 {
		root.Add(part)
	}
}

func buildMethodPlan(expected *models.HTTPRequest, _ *MatchingContext) *Node {
	return Container("method").Add(
		Action("match:equality").Add(
			Value(StringValue(strings.ToUpper(expected.Method))),
			Action("upper-case").Add(Resolve(pathexp.MustParse("$.method"))),
			Value(NullValue()),
		),
	)
}

func buildPathPlan(expected *models.HTTPRequest, ctx *MatchingContext) *Node {
	out := Container("path")
	path := pathexp.MustParse("$.path")
	expectedNode := Value(StringValue(expected.Path))
	if ctx.MatcherIsDefined(path) {
		out.Add(buildMatchingRuleNode(expectedNode, Resolve(path), ctx.SelectBestMatcher(path)))
	} else {
		out.Add(equalityNode(expectedNode, Resolve(path)))
	}
	return out
}

func buildQueryPlan(expected *models.HTTPRequest, ctx *MatchingContext) *Node {
	out := Container("query parameters")
	queryPath := pathexp.MustParse("$.query")
	if len(expected.Query) == 0 {
		out.Add(Action("expect:empty").Add(
			Resolve(queryPath),
			Action("join").Add(
				Value(StringValue("Expected no query parameters but got ")),
				Resolve(queryPath),
			),
		))
		return out
	}

	keys := models.SortedKeys(expected.Query)
	for _, key := range keys {
		path := queryPath.Join(key)
		out.Add(ContainerForPath(path).Add(
			guardedValueCheck(path, key, expected.Query[key], ctx),
		))
	}
	out.Add(entriesCheck("expect:entries", keys, queryPath,
		"The following expected query parameters were missing: "))
	if !ctx.Config.AllowUnexpectedEntries {
		out.Add(entriesCheck("expect:only-entries", keys, queryPath,
			"The following query parameters were not expected: "))
	}
	return out
}

func buildHeaderPlan(expected *models.HTTPRequest, ctx *MatchingContext) *Node {
	out := Container("headers")
	if len(expected.Headers) == 0 {
		return out
	}
	headersPath := pathexp.MustParse("$.headers")
	keys := models.SortedKeys(expected.Headers)
	for _, key := range keys {
		path := headersPath.Join(key)
		out.Add(Container(key).Add(
			guardedValueCheck(path, key, expected.Headers[key], ctx),
		))
	}
	// Extra headers are benign, so only the presence check is emitted.
	out.Add(entriesCheck("expect:entries", keys, headersPath,
		"The following expected headers were missing: "))
	return out
}

// guardedValueCheck emits the exists-then-match check for one multimap
// entry. Matching rules for query parameters and headers are keyed by the
// bare name, looked up as a name-rooted path in the narrowed category.
func guardedValueCheck(path pathexp.DocPath, name string, values []string, ctx *MatchingContext) *Node {
	expectedNode := multimapValueNode(values)
	rulePath := pathexp.NewRoot().Join(name)
	var matchNode *Node
	if ctx.MatcherIsDefined(rulePath) {
		matchNode = buildMatchingRuleNode(expectedNode, Resolve(path), ctx.SelectBestMatcher(rulePath))
	} else {
		matchNode = equalityNode(expectedNode, Resolve(path))
	}
	return Action("if").Add(
		Action("check:exists").Add(Resolve(path)),
		matchNode,
	)
}

func multimapValueNode(values []string) *Node {
	if len(values) == 1 {
		return Value(StringValue(values[0]))
	}
	return Value(ListValue(values...))
}

// entriesCheck emits an entry-key assertion over a multimap. The message
// expression renders the offending keys, which the action pushes as the
// current value on failure.
func entriesCheck(action string, keys []string, path pathexp.DocPath, message string) *Node {
	return Action(action).Add(
		Value(ListValue(keys...)),
		Resolve(path),
		Action("join").Add(
			Value(StringValue(message)),
			Action("apply"),
		),
	)
}

func buildBodyPlan(expected *models.HTTPRequest, registry *BuilderRegistry, ctx *MatchingContext) (*Node, error) {
	out := Container("body")
	switch expected.Body.State {
	case models.BodyMissing:
		// Nothing to check.
	case models.BodyEmpty, models.BodyNull:
		out.Add(Action("expect:empty").Add(Resolve(pathexp.MustParse("$.body"))))
	case models.BodyPresent:
		contentType := expected.ContentType()
		if contentType.IsUnknown() {
			contentType = models.ParseContentType("text/plain")
		}
		check := Action("if").Add(
			Action("match:equality").Add(
				Value(StringValue(contentType.String())),
				Resolve(pathexp.MustParse("$.content-type")),
				Value(NullValue()),
			),
		)
		if builder := registry.BuilderFor(contentType); builder != nil {
			node, err := builder.BuildPlan(expected.Body.Value, ctx)
			if err != nil {
				return nil, err
			}
			check.Add(node)
		} else {
			check.Add(equalityNode(Value(BytesValue(expected.Body.Value)), Resolve(pathexp.MustParse("$.body"))))
		}
		out.Add(check)
	}
	return out, nil
}

func equalityNode(expected, actual *Node) *Node {
	return Action("match:equality").Add(expected, actual, Value(NullValue()))
}

// buildMatchingRuleNode emits the rule application for a rule list: one
// match action for a single rule, an and/or combination for several.
func buildMatchingRuleNode(expected, actual *Node, list matchingrules.RuleList) *Node {
	if len(list.Rules) == 1 {
		return matchRuleNode(expected, actual, list.Rules[0])
	}
	logic := Action("and")
	if list.Logic == matchingrules.LogicOr {
		logic = Action("or")
	}
	for _, rule := range list.Rules {
		logic.Add(matchRuleNode(expected.Clone(), actual.Clone(), rule))
	}
	return logic
}

func matchRuleNode(expected, actual *Node, rule matchingrules.Rule) *Node {
	params := rule.Params()
	if params == nil {
		params = map[string]any{}
	}
	return Action("match:"+rule.Name()).Add(
		expected,
		actual,
		Value(JSONValue(params)),
	)
}

// ruleListDescription renders a rule list for plan annotations.
func ruleListDescription(list matchingrules.RuleList) string {
	parts := make([]string, 0, len(list.Rules))
	for _, rule := range list.Rules {
		parts = append(parts, rule.Describe())
	}
	sep := " AND "
	if list.Logic == matchingrules.LogicOr {
		sep = " OR "
	}
	return strings.Join(parts, sep)
}
