package plan

import (
	"fmt"
	"sort"

	"github.com/ohler55/ojg/oj"

	"github.com/pactplan/pactplan/pkg/matchingrules"
	"github.com/pactplan/pactplan/pkg/models"
	"github.com/pactplan/pactplan/pkg/pathexp"
)

// JSONPlanBuilder compiles JSON bodies into structural plans. The whole
// plan is wrapped in a tee over json:parse, so a parse failure of the
// actual body short-circuits every structural check.
type JSONPlanBuilder struct{}

func (JSONPlanBuilder) Namespace() string { return "json" }

func (JSONPlanBuilder) SupportsType(contentType models.ContentType) bool {
	return contentType.IsJSON()
}

func (b JSONPlanBuilder) BuildPlan(content []byte, ctx *MatchingContext) (*Node, error) {
	parsed, err := oj.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("json parse error - %s", err)
	}
	value := normaliseJSON(parsed)

	tee := Action("tee").Add(
		Action("json:parse").Add(Resolve(pathexp.MustParse("$.body"))),
	)
	root := pathexp.NewRoot()
	tee.Add(b.processValue(root, root, value, true, ctx)...)
	return tee, nil
}

// processValue emits the checks for one expected JSON value. The display
// path labels containers and selects matching rules; the resolve path
// addresses the actual value relative to the current stack value, and
// restarts at the element root inside for-each templates.
func (b JSONPlanBuilder) processValue(display, res pathexp.DocPath, value any, root bool, ctx *MatchingContext) []*Node {
	switch v := value.(type) {
	case map[string]any:
		return b.processObject(display, res, v, root, ctx)
	case []any:
		return b.processArray(display, res, v, root, ctx)
	default:
		return []*Node{b.scalarCheck(display, res, v, root, ctx)}
	}
}

// resolveWhole addresses the value under check: the whole parsed document
// at the root, the resolve path below it.
func resolveWhole(res pathexp.DocPath, root bool) *Node {
	if root {
		return Action("apply")
	}
	return ResolveCurrent(res)
}

func (b JSONPlanBuilder) processObject(display, res pathexp.DocPath, obj map[string]any, root bool, ctx *MatchingContext) []*Node {
	if ctx.MatcherIsDefined(display) {
		if list := ctx.SelectBestMatcher(display); entriesRule(list) {
			return []*Node{
				Annotation(ruleListDescription(list)),
				buildMatchingRuleNode(Value(JSONValue(obj)), resolveWhole(res, root), list),
			}
		}
	}
	if len(obj) == 0 {
		return []*Node{jsonCheck("json:expect:empty", "OBJECT", resolveWhole(res, root))}
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	checks := []*Node{jsonEntriesCheck("json:expect:entries", keys, resolveWhole(res, root))}
	if !ctx.Config.AllowUnexpectedEntries {
		checks = append(checks, jsonEntriesCheck("json:expect:only-entries", keys, resolveWhole(res, root)))
	}

	children := make([]*Node, 0, len(keys))
	for _, key := range keys {
		childDisplay := display.Join(key)
		child := ContainerForPath(childDisplay)
		child.Add(b.processValue(childDisplay, res.Join(key), obj[key], false, ctx)...)
		children = append(children, child)
	}
	if root {
		checks = append(checks, ContainerForPath(display).Add(children...))
	} else {
		checks = append(checks, children...)
	}
	return checks
}

func (b JSONPlanBuilder) processArray(display, res pathexp.DocPath, arr []any, root bool, ctx *MatchingContext) []*Node {
	if ctx.MatcherIsDefined(display) {
		if list := ctx.SelectBestMatcher(display); templatedArrayRule(list) {
			checks := []*Node{
				Annotation(ruleListDescription(list)),
				buildMatchingRuleNode(Value(JSONValue(arr)), resolveWhole(res, root), list),
			}
			if len(arr) > 0 {
				// Each actual element is checked against the first expected
				// element; resolve paths inside the template address the
				// pushed element, not the whole document.
				templateDisplay := display.JoinStar()
				template := ContainerForPath(templateDisplay)
				template.Add(b.processValue(templateDisplay, pathexp.NewRoot(), arr[0], false, ctx)...)
				checks = append(checks, Action("for-each").Add(resolveWhole(res, root), template))
			}
			return checks
		}
	}
	if len(arr) == 0 {
		return []*Node{jsonCheck("json:expect:empty", "ARRAY", resolveWhole(res, root))}
	}

	checks := []*Node{
		Action("json:match:length").Add(
			Value(StringValue("ARRAY")),
			Value(UIntValue(uint64(len(arr)))),
			resolveWhole(res, root),
		),
	}
	children := make([]*Node, 0, len(arr))
	for i, element := range arr {
		childDisplay := display.JoinIndex(i)
		childRes := res.JoinIndex(i)
		child := ContainerForPath(childDisplay)
		switch element.(type) {
		case map[string]any, []any:
			child.Add(b.processValue(childDisplay, childRes, element, false, ctx)...)
		default:
			// Scalar elements get an existence guard so a short actual array
			// reports the length mismatch, not a pile of equality errors.
			child.Add(Action("if").Add(
				Action("check:exists").Add(ResolveCurrent(childRes)),
				b.scalarCheck(childDisplay, childRes, element, false, ctx),
			))
		}
		children = append(children, child)
	}
	if root {
		checks = append(checks, ContainerForPath(display).Add(children...))
	} else {
		checks = append(checks, children...)
	}
	return checks
}

func (b JSONPlanBuilder) scalarCheck(display, res pathexp.DocPath, value any, root bool, ctx *MatchingContext) *Node {
	expected := Value(JSONValue(value))
	if ctx.MatcherIsDefined(display) {
		return buildMatchingRuleNode(expected, resolveWhole(res, root), ctx.SelectBestMatcher(display))
	}
	return equalityNode(expected, resolveWhole(res, root))
}

func jsonCheck(action, jsonType string, value *Node) *Node {
	return Action(action).Add(Value(StringValue(jsonType)), value)
}

func jsonEntriesCheck(action string, keys []string, value *Node) *Node {
	return Action(action).Add(
		Value(StringValue("OBJECT")),
		Value(ListValue(keys...)),
		value,
	)
}

// entriesRule reports whether a rule list applies to the entries of an
// object as a whole rather than one value.
func entriesRule(list matchingrules.RuleList) bool {
	for _, rule := range list.Rules {
		switch rule.Kind {
		case matchingrules.Values, matchingrules.EachKey, matchingrules.EachValue:
			return true
		}
	}
	return false
}

// templatedArrayRule reports whether a rule list treats an array as a
// template applied to every actual element.
func templatedArrayRule(list matchingrules.RuleList) bool {
	for _, rule := range list.Rules {
		switch rule.Kind {
		case matchingrules.Type, matchingrules.MinType, matchingrules.MaxType,
			matchingrules.MinMaxType, matchingrules.EachValue, matchingrules.Values:
			return true
		}
	}
	return false
}
