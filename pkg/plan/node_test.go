package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pactplan/pactplan/pkg/pathexp"
)

func TestNodeStrForm(t *testing.T) {
	node := Container("method").Add(
		Action("match:equality").Add(
			Value(StringValue("POST")),
			Action("upper-case").Add(Resolve(pathexp.MustParse("$.method"))),
			Value(NullValue()),
		),
	)
	assert.Equal(t,
		":method(%match:equality('POST', %upper-case($.method), NULL))",
		node.StrForm())
}

func TestNodeStrFormQuotesLabels(t *testing.T) {
	assert.Equal(t, `:"query parameters"()`, Container("query parameters").StrForm())
	assert.Equal(t, ":headers()", Container("headers").StrForm())
}

func TestNodeStrFormResolveCurrent(t *testing.T) {
	node := ResolveCurrent(pathexp.MustParse("$.a[0]"))
	assert.Equal(t, "~>$.a[0]", node.StrForm())
}

func TestNodeStrFormAnnotation(t *testing.T) {
	assert.Equal(t, "# 'min-type(2)'", Annotation("min-type(2)").StrForm())
}

func TestNodePrettyForm(t *testing.T) {
	node := Container("method").Add(
		Action("match:equality").Add(
			Value(StringValue("POST")),
			Action("upper-case").Add(Resolve(pathexp.MustParse("$.method"))),
			Value(NullValue()),
		),
	)
	expected := `:method (
  %match:equality (
    'POST',
    %upper-case (
      $.method
    ),
    NULL
  )
)`
	assert.Equal(t, expected, node.PrettyForm())
}

func TestNodePrettyFormChildless(t *testing.T) {
	assert.Equal(t, ":headers ()", Container("headers").PrettyForm())
	assert.Equal(t, "%apply ()", Action("apply").PrettyForm())
}

func TestNodePrettyFormWithResults(t *testing.T) {
	node := Action("check:exists").Add(Resolve(pathexp.MustParse("$.query.a")))
	setResult(node, BoolResult(true))
	setResult(node.Children[0], ValueResult(StringValue("1")))
	expected := `%check:exists (
  $.query.a => '1'
) => BOOL(true)`
	assert.Equal(t, expected, node.PrettyForm())
}

func TestNodeClone(t *testing.T) {
	original := Container("request").Add(
		setResult(Action("apply"), ValueResult(StringValue("x"))),
		Annotation("note"),
	)
	setResult(original, OKResult())

	clone := original.Clone()
	assert.Equal(t, original.PrettyForm(), clone.PrettyForm())

	// The clone is fully detached from the original tree.
	setResult(original.Children[0], ErrorResult("boom"))
	original.Children[0].Label = "changed"
	assert.Equal(t, "apply", clone.Children[0].Label)
	assert.Equal(t, "'x'", clone.Children[0].ResultOrOK().String())
}

func TestExecutionPlanPrettyForm(t *testing.T) {
	plan := NewExecutionPlan(Container("request").Add(Container("method")))
	expected := `(
  :request (
    :method ()
  )
)
`
	assert.Equal(t, expected, plan.PrettyForm())
}

func TestExecutionPlanStrForm(t *testing.T) {
	plan := NewExecutionPlan(Container("request"))
	assert.Equal(t, "(:request())", plan.StrForm())
	assert.Equal(t, "()", (&ExecutionPlan{}).StrForm())
}

func TestExecutionPlanResult(t *testing.T) {
	plan := NewExecutionPlan(Container("request"))
	assert.Equal(t, OKResult(), plan.Result())

	setResult(plan.Root, ErrorResult("boom"))
	assert.True(t, plan.Result().IsError())
}
