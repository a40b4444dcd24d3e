package plan

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pactplan/pactplan/pkg/models"
	"github.com/pactplan/pactplan/pkg/pathexp"
)

// FormURLEncodedPlanBuilder matches form bodies as a string multimap, the
// same way query parameters are matched.
type FormURLEncodedPlanBuilder struct{}

func (FormURLEncodedPlanBuilder) Namespace() string { return "" }

func (FormURLEncodedPlanBuilder) SupportsType(contentType models.ContentType) bool {
	return contentType.IsFormURLEncoded()
}

func (b FormURLEncodedPlanBuilder) BuildPlan(content []byte, ctx *MatchingContext) (*Node, error) {
	form, err := parseFormBody(string(content))
	if err != nil {
		return nil, fmt.Errorf("form parse error - %s", err)
	}

	tee := Action("tee").Add(
		Action("form:parse").Add(Resolve(pathexp.MustParse("$.body"))),
	)
	if len(form) == 0 {
		tee.Add(Action("expect:empty").Add(Action("apply")))
		return tee, nil
	}

	keys := models.SortedKeys(form)
	tee.Add(Action("expect:entries").Add(
		Value(ListValue(keys...)),
		Action("apply"),
		Action("join").Add(
			Value(StringValue("The following expected form parameters were missing: ")),
			Action("apply"),
		),
	))
	if !ctx.Config.AllowUnexpectedEntries {
		tee.Add(Action("expect:only-entries").Add(
			Value(ListValue(keys...)),
			Action("apply"),
			Action("join").Add(
				Value(StringValue("The following form parameters were not expected: ")),
				Action("apply"),
			),
		))
	}

	for _, key := range keys {
		path := pathexp.NewRoot().Join(key)
		expectedNode := multimapValueNode(form[key])
		var matchNode *Node
		if ctx.MatcherIsDefined(path) {
			matchNode = buildMatchingRuleNode(expectedNode, ResolveCurrent(path), ctx.SelectBestMatcher(path))
		} else {
			matchNode = equalityNode(expectedNode, ResolveCurrent(path))
		}
		tee.Add(ContainerForPath(path).Add(
			Action("if").Add(
				Action("check:exists").Add(ResolveCurrent(path)),
				matchNode,
			),
		))
	}
	return tee, nil
}

// parseFormBody decodes a form-urlencoded body into a multimap, keeping
// repeated keys in order of appearance.
func parseFormBody(data string) (map[string][]string, error) {
	values := map[string][]string{}
	for data != "" {
		var pair string
		pair, data, _ = strings.Cut(data, "&")
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		decodedKey, err := url.QueryUnescape(key)
		if err != nil {
			return nil, err
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			return nil, err
		}
		values[decodedKey] = append(values[decodedKey], decodedValue)
	}
	return values, nil
}
