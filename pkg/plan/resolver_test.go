package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pactplan/pactplan/pkg/models"
	"github.com/pactplan/pactplan/pkg/pathexp"
)

func TestHTTPRequestResolver(t *testing.T) {
	request := &models.HTTPRequest{
		Method: "POST",
		Path:   "/orders",
		Query:  map[string][]string{"a": {"1"}, "b": {"2", "3"}},
		Headers: map[string][]string{
			"Content-Type": {"application/json"},
		},
		Body: models.PresentBody([]byte(`{"x":1}`), models.ParseContentType("application/json")),
	}
	resolver := HTTPRequestResolver{Request: request}
	ctx := testContext()

	tests := []struct {
		path string
		want NodeValue
	}{
		{"$.method", StringValue("POST")},
		{"$.path", StringValue("/orders")},
		{"$.query.a", StringValue("1")},
		{"$.query.b", ListValue("2", "3")},
		{"$.query.b[1]", StringValue("3")},
		{"$.query.b[9]", NullValue()},
		{"$.query.missing", NullValue()},
		{"$.headers['Content-Type']", StringValue("application/json")},
		{"$.headers['content-type']", StringValue("application/json")},
		{"$.headers.Accept", NullValue()},
		{"$.body", BytesValue([]byte(`{"x":1}`))},
		{"$.content-type", StringValue("application/json")},
		{"$.unknown", NullValue()},
		{"$", NullValue()},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, resolver.Resolve(pathexp.MustParse(tt.path), ctx))
		})
	}
}

func TestHTTPRequestResolverAbsentParts(t *testing.T) {
	resolver := HTTPRequestResolver{Request: &models.HTTPRequest{
		Method: "GET", Path: "/", Body: models.MissingBody(),
	}}
	ctx := testContext()

	assert.Equal(t, NullValue(), resolver.Resolve(pathexp.MustParse("$.body"), ctx))
	assert.Equal(t, NullValue(), resolver.Resolve(pathexp.MustParse("$.content-type"), ctx))

	// An absent query map is still an (empty) multimap.
	query := resolver.Resolve(pathexp.MustParse("$.query"), ctx)
	assert.Equal(t, KindMap, query.Kind)
	assert.True(t, query.IsEmpty())
}

func TestCurrentStackResolver(t *testing.T) {
	ctx := testContext()
	resolver := CurrentStackResolver{}

	// Empty stack resolves to NULL.
	assert.Equal(t, NullValue(), resolver.Resolve(pathexp.MustParse("$.a"), ctx))

	ctx.PushValue(JSONValue(map[string]any{"a": []any{int64(1), int64(2)}}))
	assert.Equal(t, JSONValue(int64(2)), resolver.Resolve(pathexp.MustParse("$.a[1]"), ctx))
	assert.Equal(t, NullValue(), resolver.Resolve(pathexp.MustParse("$.a[5]"), ctx))
	assert.Equal(t, NullValue(), resolver.Resolve(pathexp.MustParse("$.missing"), ctx))

	ctx.PushValue(MapValue(map[string][]string{"k": {"v1", "v2"}}))
	assert.Equal(t, ListValue("v1", "v2"), resolver.Resolve(pathexp.MustParse("$.k"), ctx))
	assert.Equal(t, StringValue("v1"), resolver.Resolve(pathexp.MustParse("$.k[0]"), ctx))
}
