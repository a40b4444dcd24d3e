package plan

import (
	"github.com/pactplan/pactplan/pkg/models"
	"github.com/pactplan/pactplan/pkg/pathexp"
)

// PlainTextPlanBuilder matches any textual body as one UTF-8 string.
type PlainTextPlanBuilder struct{}

func (PlainTextPlanBuilder) Namespace() string { return "" }

func (PlainTextPlanBuilder) SupportsType(contentType models.ContentType) bool {
	return contentType.IsText()
}

func (PlainTextPlanBuilder) BuildPlan(content []byte, _ *MatchingContext) (*Node, error) {
	return Action("match:equality").
		Add(
			Value(StringValue(string(content))),
			Action("convert:UTF8").Add(Resolve(pathexp.MustParse("$.body"))),
			Value(NullValue()),
		), nil
}
