package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactplan/pactplan/pkg/models"
	"github.com/pactplan/pactplan/pkg/pathexp"
)

// stubResolver resolves paths from a fixed map; misses resolve to NULL.
type stubResolver map[string]NodeValue

func (r stubResolver) Resolve(path pathexp.DocPath, _ *MatchingContext) NodeValue {
	if v, ok := r[path.String()]; ok {
		return v
	}
	return NullValue()
}

func testContext() *MatchingContext {
	return NewMatchingContext(nil, &models.SynchronousHTTP{}, nil)
}

func runNode(n *Node, resolver ValueResolver) *Node {
	return executeNode(n, resolver, testContext())
}

func TestMatchEqualityAction(t *testing.T) {
	node := Action("match:equality").Add(
		Value(StringValue("POST")),
		Value(StringValue("POST")),
		Value(NullValue()),
	)
	out := runNode(node, stubResolver{})
	assert.Equal(t, BoolResult(true), out.ResultOrOK())

	node = Action("match:equality").Add(
		Value(StringValue("POST")),
		Value(StringValue("PUT")),
		Value(NullValue()),
	)
	out = runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult("Expected 'PUT' to be equal to 'POST'"), out.ResultOrOK())
}

func TestMatchRegexAction(t *testing.T) {
	params := Value(JSONValue(map[string]any{"regex": "/test[0-9]+"}))
	node := Action("match:regex").Add(
		Value(StringValue("/test")),
		Value(StringValue("/test123")),
		params,
	)
	out := runNode(node, stubResolver{})
	assert.Equal(t, BoolResult(true), out.ResultOrOK())

	node = Action("match:regex").Add(
		Value(StringValue("/test")),
		Value(StringValue("/other")),
		params.Clone(),
	)
	out = runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult("Expected '/other' to match '/test[0-9]+'"), out.ResultOrOK())
}

func TestMatchMinTypeAction(t *testing.T) {
	node := Action("match:min-type").Add(
		Value(JSONValue([]any{int64(1), int64(2)})),
		Value(JSONValue([]any{int64(1)})),
		Value(JSONValue(map[string]any{"min": int64(2)})),
	)
	out := runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult("Expected [1] (size 1) to have minimum size of 2"), out.ResultOrOK())
}

func TestMatchActionArity(t *testing.T) {
	node := Action("match:equality").Add(Value(StringValue("a")))
	out := runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult("Action 'match:equality' requires three arguments, got 1"), out.ResultOrOK())
}

func TestUnknownAction(t *testing.T) {
	out := runNode(Action("bogus"), stubResolver{})
	assert.Equal(t, ErrorResult("'bogus' is not a valid action"), out.ResultOrOK())
}

func TestCheckExistsAction(t *testing.T) {
	resolver := stubResolver{"$.query.a": StringValue("1")}

	node := Action("check:exists").Add(Resolve(pathexp.MustParse("$.query.a")))
	out := runNode(node, resolver)
	assert.Equal(t, BoolResult(true), out.ResultOrOK())

	node = Action("check:exists").Add(Resolve(pathexp.MustParse("$.query.b")))
	out = runNode(node, resolver)
	assert.Equal(t, BoolResult(false), out.ResultOrOK())
}

func TestChangeCaseActions(t *testing.T) {
	out := runNode(Action("upper-case").Add(Value(StringValue("post"))), stubResolver{})
	assert.Equal(t, ValueResult(StringValue("POST")), out.ResultOrOK())

	out = runNode(Action("lower-case").Add(Value(StringValue("REF-CODE"))), stubResolver{})
	assert.Equal(t, ValueResult(StringValue("ref-code")), out.ResultOrOK())

	// Non-string values degrade to the empty string.
	out = runNode(Action("upper-case").Add(Value(UIntValue(3))), stubResolver{})
	assert.Equal(t, ValueResult(StringValue("")), out.ResultOrOK())
}

func TestJoinActions(t *testing.T) {
	node := Action("join").Add(
		Value(StringValue("a")), Value(StringValue("b")), Value(StringValue("c")),
	)
	out := runNode(node, stubResolver{})
	assert.Equal(t, ValueResult(StringValue("abc")), out.ResultOrOK())

	node = Action("join-with").Add(
		Value(StringValue(", ")), Value(StringValue("a")), Value(StringValue("b")),
	)
	out = runNode(node, stubResolver{})
	assert.Equal(t, ValueResult(StringValue("a, b")), out.ResultOrOK())
}

func TestErrorAction(t *testing.T) {
	node := Action("error").Add(Value(StringValue("Was expecting ")), Value(StringValue("something")))
	out := runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult("Was expecting something"), out.ResultOrOK())
}

func TestConvertUTF8Action(t *testing.T) {
	out := runNode(Action("convert:UTF8").Add(Value(BytesValue([]byte("body")))), stubResolver{})
	assert.Equal(t, ValueResult(StringValue("body")), out.ResultOrOK())

	out = runNode(Action("convert:UTF8").Add(Value(NullValue())), stubResolver{})
	assert.Equal(t, ValueResult(StringValue("")), out.ResultOrOK())

	out = runNode(Action("convert:UTF8").Add(Value(UIntValue(1))), stubResolver{})
	assert.Equal(t, ErrorResult("convert:UTF8 can not be used with UINT(1)"), out.ResultOrOK())
}

func TestExpectEmptyAction(t *testing.T) {
	resolver := stubResolver{
		"$.query": MapValue(map[string][]string{"a": {"1"}}),
	}

	node := Action("expect:empty").Add(
		Resolve(pathexp.MustParse("$.headers")),
		Value(StringValue("should not run")),
	)
	out := runNode(node, resolver)
	assert.Equal(t, BoolResult(true), out.ResultOrOK())
	// The message argument stays unexecuted on success.
	require.Len(t, out.Children, 2)
	assert.Nil(t, out.Children[1].Result)

	node = Action("expect:empty").Add(Resolve(pathexp.MustParse("$.query")))
	out = runNode(node, resolver)
	assert.Equal(t, ErrorResult("Expected {'a': '1'} to be empty"), out.ResultOrOK())

	node = Action("expect:empty").Add(
		Resolve(pathexp.MustParse("$.query")),
		Action("join").Add(
			Value(StringValue("Expected no query parameters but got ")),
			Resolve(pathexp.MustParse("$.query")),
		),
	)
	out = runNode(node, resolver)
	assert.Equal(t, ErrorResult("Expected no query parameters but got {'a': '1'}"), out.ResultOrOK())
}

func TestExpectEntriesAction(t *testing.T) {
	resolver := stubResolver{
		"$.query": MapValue(map[string][]string{"a": {"1"}}),
	}

	node := Action("expect:entries").Add(
		Value(ListValue("a")),
		Resolve(pathexp.MustParse("$.query")),
		Value(StringValue("should not run")),
	)
	out := runNode(node, resolver)
	assert.Equal(t, OKResult(), out.ResultOrOK())
	require.Len(t, out.Children, 3)
	assert.Nil(t, out.Children[2].Result)

	node = Action("expect:entries").Add(
		Value(ListValue("a", "b")),
		Resolve(pathexp.MustParse("$.query")),
	)
	out = runNode(node, resolver)
	assert.Equal(t, ErrorResult("The following expected entries were missing: b"), out.ResultOrOK())

	// On failure the offending keys become the current value for the
	// message expression.
	node = Action("expect:entries").Add(
		Value(ListValue("a", "b", "c")),
		Resolve(pathexp.MustParse("$.query")),
		Action("join").Add(
			Value(StringValue("The following expected query parameters were missing: ")),
			Action("apply"),
		),
	)
	out = runNode(node, resolver)
	assert.Equal(t,
		ErrorResult("The following expected query parameters were missing: b, c"),
		out.ResultOrOK())
}

func TestExpectOnlyEntriesAction(t *testing.T) {
	resolver := stubResolver{
		"$.query": MapValue(map[string][]string{"a": {"1"}, "b": {"2"}}),
	}

	node := Action("expect:only-entries").Add(
		Value(ListValue("a", "b")),
		Resolve(pathexp.MustParse("$.query")),
	)
	out := runNode(node, resolver)
	assert.Equal(t, OKResult(), out.ResultOrOK())

	node = Action("expect:only-entries").Add(
		Value(ListValue("a")),
		Resolve(pathexp.MustParse("$.query")),
	)
	out = runNode(node, resolver)
	assert.Equal(t, ErrorResult("The following entries were not expected: b"), out.ResultOrOK())
}

func TestExpectCountAction(t *testing.T) {
	node := Action("expect:count").Add(
		Value(UIntValue(2)),
		Value(ListValue("a", "b")),
	)
	out := runNode(node, stubResolver{})
	assert.Equal(t, OKResult(), out.ResultOrOK())

	node = Action("expect:count").Add(
		Value(UIntValue(3)),
		Value(ListValue("a", "b")),
	)
	out = runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult("Was expecting 3 elements but there were 2"), out.ResultOrOK())
}

func TestJSONParseAction(t *testing.T) {
	node := Action("json:parse").Add(Value(StringValue(`{"b":2,"a":1}`)))
	out := runNode(node, stubResolver{})
	assert.Equal(t, `json:{"a":1,"b":2}`, out.ResultOrOK().ValueOrNull().StrForm())

	node = Action("json:parse").Add(Value(NullValue()))
	out = runNode(node, stubResolver{})
	assert.Equal(t, ValueResult(NullValue()), out.ResultOrOK())

	node = Action("json:parse").Add(Value(StringValue("{")))
	out = runNode(node, stubResolver{})
	require.True(t, out.ResultOrOK().IsError())
	assert.Contains(t, out.ResultOrOK().Err, "json parse error - ")

	node = Action("json:parse").Add(Value(BoolValue(true)))
	out = runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult("json:parse can not be used with BOOL(true)"), out.ResultOrOK())
}

func TestJSONExpectEmptyAction(t *testing.T) {
	node := Action("json:expect:empty").Add(
		Value(StringValue("OBJECT")),
		Value(JSONValue(map[string]any{})),
	)
	out := runNode(node, stubResolver{})
	assert.Equal(t, BoolResult(true), out.ResultOrOK())

	node = Action("json:expect:empty").Add(
		Value(StringValue("OBJECT")),
		Value(JSONValue(map[string]any{"a": int64(1)})),
	)
	out = runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult(`Expected JSON Object ({"a":1}) to be empty`), out.ResultOrOK())

	node = Action("json:expect:empty").Add(
		Value(StringValue("THING")),
		Value(JSONValue(map[string]any{})),
	)
	out = runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult("'THING' is not a valid JSON type"), out.ResultOrOK())

	node = Action("json:expect:empty").Add(
		Value(StringValue("OBJECT")),
		Value(StringValue("x")),
	)
	out = runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult("Was expecting a JSON value, but got 'x'"), out.ResultOrOK())
}

func TestJSONEntriesAction(t *testing.T) {
	obj := Value(JSONValue(map[string]any{"a": int64(1), "b": int64(2)}))

	node := Action("json:expect:entries").Add(
		Value(StringValue("OBJECT")), Value(ListValue("a", "b")), obj,
	)
	out := runNode(node, stubResolver{})
	assert.Equal(t, BoolResult(true), out.ResultOrOK())

	node = Action("json:expect:entries").Add(
		Value(StringValue("OBJECT")), Value(ListValue("a", "c")), obj.Clone(),
	)
	out = runNode(node, stubResolver{})
	assert.Equal(t,
		ErrorResult("The following expected entries were missing from the actual Object: c"),
		out.ResultOrOK())

	node = Action("json:expect:only-entries").Add(
		Value(StringValue("OBJECT")), Value(ListValue("a")), obj.Clone(),
	)
	out = runNode(node, stubResolver{})
	assert.Equal(t,
		ErrorResult("The following unexpected entries were received in the actual Object: b"),
		out.ResultOrOK())

	node = Action("json:expect:entries").Add(
		Value(StringValue("OBJECT")), Value(ListValue("a")), Value(JSONValue(int64(100))),
	)
	out = runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult("Was expecting a JSON Object but got a Integer"), out.ResultOrOK())
}

func TestJSONMatchLengthAction(t *testing.T) {
	node := Action("json:match:length").Add(
		Value(StringValue("ARRAY")),
		Value(UIntValue(2)),
		Value(JSONValue([]any{int64(1), int64(2)})),
	)
	out := runNode(node, stubResolver{})
	assert.Equal(t, BoolResult(true), out.ResultOrOK())

	node = Action("json:match:length").Add(
		Value(StringValue("ARRAY")),
		Value(UIntValue(2)),
		Value(JSONValue([]any{int64(1)})),
	)
	out = runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult("Was expecting a length of 2, but actual length is 1"), out.ResultOrOK())
}

func TestXMLParseAction(t *testing.T) {
	node := Action("xml:parse").Add(Value(StringValue(
		`<foo id="1"><bar>x</bar><bar>y</bar></foo>`)))
	out := runNode(node, stubResolver{})
	assert.Equal(t,
		`json:{"foo":{"@id":"1","bar":[{"#text":"x"},{"#text":"y"}]}}`,
		out.ResultOrOK().ValueOrNull().StrForm())

	node = Action("xml:parse").Add(Value(NullValue()))
	out = runNode(node, stubResolver{})
	assert.Equal(t, ValueResult(NullValue()), out.ResultOrOK())

	node = Action("xml:parse").Add(Value(StringValue("<foo>")))
	out = runNode(node, stubResolver{})
	require.True(t, out.ResultOrOK().IsError())
	assert.Contains(t, out.ResultOrOK().Err, "xml parse error - ")
}

func TestFormParseAction(t *testing.T) {
	node := Action("form:parse").Add(Value(StringValue("a=1&b=2&b=3")))
	out := runNode(node, stubResolver{})
	assert.Equal(t, "{'a': '1', 'b': ['2', '3']}", out.ResultOrOK().ValueOrNull().StrForm())

	node = Action("form:parse").Add(Value(StringValue("a=%zz")))
	out = runNode(node, stubResolver{})
	require.True(t, out.ResultOrOK().IsError())
	assert.Contains(t, out.ResultOrOK().Err, "form parse error - ")
}

func TestIfAction(t *testing.T) {
	resolver := stubResolver{"$.query.a": StringValue("1")}

	node := Action("if").Add(
		Action("check:exists").Add(Resolve(pathexp.MustParse("$.query.a"))),
		Action("match:equality").Add(
			Value(StringValue("1")),
			Resolve(pathexp.MustParse("$.query.a")),
			Value(NullValue()),
		),
	)
	out := runNode(node, resolver)
	assert.Equal(t, BoolResult(true), out.ResultOrOK())

	// A falsy condition leaves the then branch unexecuted; without an else
	// the condition's own result stands.
	node = Action("if").Add(
		Action("check:exists").Add(Resolve(pathexp.MustParse("$.query.b"))),
		Action("error").Add(Value(StringValue("should not run"))),
	)
	out = runNode(node, resolver)
	assert.Equal(t, BoolResult(false), out.ResultOrOK())
	require.Len(t, out.Children, 2)
	assert.Nil(t, out.Children[1].Result)
}

func TestIfActionElse(t *testing.T) {
	node := Action("if").Add(
		Action("check:exists").Add(Resolve(pathexp.MustParse("$.missing"))),
		Action("error").Add(Value(StringValue("should not run"))),
		Action("error").Add(Value(StringValue("Was expecting an XML element <foo> but it was missing"))),
	)
	out := runNode(node, stubResolver{})
	assert.Equal(t,
		ErrorResult("Was expecting an XML element <foo> but it was missing"),
		out.ResultOrOK())
	// The untaken then branch stays unexecuted.
	require.Len(t, out.Children, 3)
	assert.Nil(t, out.Children[1].Result)
}

func TestAndAction(t *testing.T) {
	node := Action("and").Add(
		Action("check:exists").Add(Value(StringValue("x"))),
		Action("error").Add(Value(StringValue("boom"))),
	)
	out := runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult("One or more children failed"), out.ResultOrOK())
}

func TestOrAction(t *testing.T) {
	node := Action("or").Add(
		Action("error").Add(Value(StringValue("boom"))),
		Action("check:exists").Add(Value(StringValue("x"))),
	)
	out := runNode(node, stubResolver{})
	assert.Equal(t, BoolResult(true), out.ResultOrOK())

	node = Action("or").Add(
		Action("error").Add(Value(StringValue("first"))),
		Action("error").Add(Value(StringValue("second"))),
	)
	out = runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult("second"), out.ResultOrOK())
}

func TestTeeAction(t *testing.T) {
	node := Action("tee").Add(
		Action("json:parse").Add(Value(StringValue(`{"a":100}`))),
		Action("json:expect:entries").Add(
			Value(StringValue("OBJECT")),
			Value(ListValue("a")),
			Action("apply"),
		),
		Action("match:equality").Add(
			Value(JSONValue(int64(100))),
			ResolveCurrent(pathexp.MustParse("$.a")),
			Value(NullValue()),
		),
	)
	out := runNode(node, stubResolver{})
	assert.True(t, out.ResultOrOK().IsTruthy())
	assert.False(t, out.ResultOrOK().IsError())
}

func TestTeeActionSourceError(t *testing.T) {
	node := Action("tee").Add(
		Action("json:parse").Add(Value(StringValue("{"))),
		Action("apply"),
	)
	out := runNode(node, stubResolver{})
	require.True(t, out.ResultOrOK().IsError())
	assert.Contains(t, out.ResultOrOK().Err, "json parse error - ")
	// Remaining children stay unexecuted when the source fails.
	require.Len(t, out.Children, 2)
	assert.Nil(t, out.Children[1].Result)
}

func TestForEachAction(t *testing.T) {
	template := Action("match:equality").Add(
		Value(JSONValue(int64(1))),
		Action("apply"),
		Value(NullValue()),
	)

	node := Action("for-each").Add(Value(JSONValue([]any{int64(1), int64(1)})), template)
	out := runNode(node, stubResolver{})
	assert.False(t, out.ResultOrOK().IsError())
	// One source child plus one executed template per element.
	assert.Len(t, out.Children, 3)

	node = Action("for-each").Add(Value(JSONValue([]any{int64(1), int64(2)})), template.Clone())
	out = runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult("One or more children failed"), out.ResultOrOK())
}

func TestForEachActionEmptyAndInvalid(t *testing.T) {
	node := Action("for-each").Add(Value(JSONValue([]any{})), Action("apply"))
	out := runNode(node, stubResolver{})
	assert.Equal(t, OKResult(), out.ResultOrOK())
	require.Len(t, out.Children, 2)
	assert.Nil(t, out.Children[1].Result)

	node = Action("for-each").Add(Value(StringValue("x")), Action("apply"))
	out = runNode(node, stubResolver{})
	assert.Equal(t, ErrorResult("for-each requires a list, got 'x'"), out.ResultOrOK())
}

func TestApplyPushPopActions(t *testing.T) {
	ctx := testContext()

	out := executeNode(Action("apply"), stubResolver{}, ctx)
	assert.Equal(t, ErrorResult("No value to apply (stack is empty)"), out.ResultOrOK())

	out = executeNode(Action("push"), stubResolver{}, ctx)
	assert.Equal(t, ErrorResult("No value to push (value is empty)"), out.ResultOrOK())

	out = executeNode(Action("pop"), stubResolver{}, ctx)
	assert.Equal(t, ErrorResult("No value to pop (stack is empty)"), out.ResultOrOK())

	ctx.PushValue(StringValue("x"))
	out = executeNode(Action("apply"), stubResolver{}, ctx)
	assert.Equal(t, ValueResult(StringValue("x")), out.ResultOrOK())

	// push duplicates the top of the stack.
	out = executeNode(Action("push"), stubResolver{}, ctx)
	assert.Equal(t, ValueResult(StringValue("x")), out.ResultOrOK())
	assert.Equal(t, 2, ctx.StackDepth())

	// pop discards the top; the result is the value left on top.
	out = executeNode(Action("pop"), stubResolver{}, ctx)
	assert.Equal(t, ValueResult(StringValue("x")), out.ResultOrOK())
	assert.Equal(t, 1, ctx.StackDepth())

	out = executeNode(Action("pop"), stubResolver{}, ctx)
	assert.Equal(t, OKResult(), out.ResultOrOK())
	assert.Equal(t, 0, ctx.StackDepth())
}
