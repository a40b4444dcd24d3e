package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/pactplan/pactplan/pkg/models"
	"github.com/pactplan/pactplan/pkg/pathexp"
)

// XMLPlanBuilder compiles XML bodies into structural plans. The expected
// document is reduced to the same map shape xml:parse produces for the
// actual body, so both sides are compared as attribute, text and child
// entries.
type XMLPlanBuilder struct{}

func (XMLPlanBuilder) Namespace() string { return "xml" }

func (XMLPlanBuilder) SupportsType(contentType models.ContentType) bool {
	return contentType.IsXML()
}

func (b XMLPlanBuilder) BuildPlan(content []byte, ctx *MatchingContext) (*Node, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("xml parse error - %s", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("xml parse error - no root element")
	}
	shape := map[string]any{tagName(root): xmlElementShape(root)}

	tee := Action("tee").Add(
		Action("xml:parse").Add(Resolve(pathexp.MustParse("$.body"))),
	)
	docRoot := pathexp.NewRoot()
	tee.Add(b.processShape(docRoot, docRoot, shape, true, ctx)...)
	return tee, nil
}

// processShape emits the checks for one level of the parsed shape:
// attribute and text values, then child elements, with entry checks over
// the level's keys. The display path labels containers and selects
// matching rules, the resolve path addresses the actual value.
func (b XMLPlanBuilder) processShape(display, res pathexp.DocPath, shape map[string]any, root bool, ctx *MatchingContext) []*Node {
	keys := make([]string, 0, len(shape))
	for key := range shape {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	checks := []*Node{
		Action("expect:entries").Add(Value(ListValue(keys...)), resolveWhole(res, root)),
	}
	if !ctx.Config.AllowUnexpectedEntries {
		checks = append(checks, Action("expect:only-entries").Add(Value(ListValue(keys...)), resolveWhole(res, root)))
	}

	for _, key := range keys {
		childDisplay := display.Join(key)
		childRes := res.Join(key)
		switch child := shape[key].(type) {
		case string:
			// Attribute or text value.
			checks = append(checks, ContainerForPath(childDisplay).Add(
				b.valueCheck(childDisplay, childRes, child, ctx),
			))
		case map[string]any:
			checks = append(checks, b.elementCheck(key, childDisplay, childRes, child, ctx))
		case []any:
			checks = append(checks, b.repeatedElementCheck(key, childDisplay, childRes, child, ctx))
		}
	}
	return checks
}

// elementCheck guards a single child element behind an existence check so
// a missing element reports once instead of failing every inner check.
func (b XMLPlanBuilder) elementCheck(name string, display, res pathexp.DocPath, shape map[string]any, ctx *MatchingContext) *Node {
	inner := Container(bareTag(name))
	inner.Add(b.processShape(display, res, shape, false, ctx)...)
	return ContainerForPath(display).Add(
		Action("if").Add(
			Action("check:exists").Add(ResolveCurrent(res)),
			inner,
			Action("error").Add(Value(StringValue(
				fmt.Sprintf("Was expecting an XML element <%s> but it was missing", name)))),
		),
	)
}

// repeatedElementCheck handles a tag occurring more than once: the count
// must match, then each occurrence is checked in order.
func (b XMLPlanBuilder) repeatedElementCheck(name string, display, res pathexp.DocPath, elements []any, ctx *MatchingContext) *Node {
	out := ContainerForPath(display).Add(
		Action("json:match:length").Add(
			Value(StringValue("ARRAY")),
			Value(UIntValue(uint64(len(elements)))),
			ResolveCurrent(res),
		),
	)
	for i, element := range elements {
		shape, ok := element.(map[string]any)
		if !ok {
			continue
		}
		childDisplay := display.JoinIndex(i)
		childRes := res.JoinIndex(i)
		inner := Container(bareTag(name))
		inner.Add(b.processShape(childDisplay, childRes, shape, false, ctx)...)
		out.Add(ContainerForPath(childDisplay).Add(
			Action("if").Add(
				Action("check:exists").Add(ResolveCurrent(childRes)),
				inner,
				Action("error").Add(Value(StringValue(
					fmt.Sprintf("Was expecting an XML element <%s> but it was missing", name)))),
			),
		))
	}
	return out
}

func (b XMLPlanBuilder) valueCheck(display, res pathexp.DocPath, value string, ctx *MatchingContext) *Node {
	expected := Value(StringValue(value))
	if ctx.MatcherIsDefined(display) {
		return buildMatchingRuleNode(expected, ResolveCurrent(res), ctx.SelectBestMatcher(display))
	}
	return equalityNode(expected, ResolveCurrent(res))
}

func bareTag(name string) string {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}
