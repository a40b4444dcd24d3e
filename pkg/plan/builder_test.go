package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pactplan/pactplan/pkg/matchingrules"
	"github.com/pactplan/pactplan/pkg/models"
	"github.com/pactplan/pactplan/pkg/pathexp"
)

func buildContext(req models.HTTPRequest) (*models.HTTPRequest, *MatchingContext) {
	interaction := &models.SynchronousHTTP{Desc: "test interaction", Request: req}
	return &interaction.Request, NewMatchingContext(nil, interaction, nil)
}

func TestBuildRequestPlanBasic(t *testing.T) {
	expected, ctx := buildContext(models.HTTPRequest{
		Method: "POST",
		Path:   "/test",
		Body:   models.MissingBody(),
	})
	plan, err := BuildRequestPlan(expected, NewBuilderRegistry(), ctx)
	require.NoError(t, err)

	golden := `(
  :request (
    :method (
      %match:equality (
        'POST',
        %upper-case (
          $.method
        ),
        NULL
      )
    ),
    :path (
      %match:equality (
        '/test',
        $.path,
        NULL
      )
    ),
    :"query parameters" (
      %expect:empty (
        $.query,
        %join (
          'Expected no query parameters but got ',
          $.query
        )
      )
    )
  )
)
`
	assert.Equal(t, golden, plan.PrettyForm())
}

func TestExecuteRequestPlanBasic(t *testing.T) {
	expected, ctx := buildContext(models.HTTPRequest{
		Method: "POST",
		Path:   "/test",
		Body:   models.MissingBody(),
	})
	plan, err := BuildRequestPlan(expected, NewBuilderRegistry(), ctx)
	require.NoError(t, err)

	actual := &models.HTTPRequest{Method: "post", Path: "/test", Body: models.MissingBody()}
	executed := ExecuteRequestPlan(plan, actual, ctx)

	golden := `(
  :request (
    :method (
      %match:equality (
        'POST' => 'POST',
        %upper-case (
          $.method => 'post'
        ) => 'POST',
        NULL => NULL
      ) => BOOL(true)
    ) => BOOL(true),
    :path (
      %match:equality (
        '/test' => '/test',
        $.path => '/test',
        NULL => NULL
      ) => BOOL(true)
    ) => BOOL(true),
    :"query parameters" (
      %expect:empty (
        $.query => {},
        %join (
          'Expected no query parameters but got ',
          $.query
        )
      ) => BOOL(true)
    ) => BOOL(true)
  ) => BOOL(true)
)
`
	assert.Equal(t, golden, executed.PrettyForm())
	assert.True(t, executed.Result().IsTruthy())

	// The input plan can be executed again.
	again := ExecuteRequestPlan(plan, actual, ctx)
	assert.Equal(t, golden, again.PrettyForm())
}

func TestExecuteRequestPlanMethodMismatch(t *testing.T) {
	expected, ctx := buildContext(models.HTTPRequest{
		Method: "POST",
		Path:   "/test",
		Body:   models.MissingBody(),
	})
	plan, err := BuildRequestPlan(expected, NewBuilderRegistry(), ctx)
	require.NoError(t, err)

	actual := &models.HTTPRequest{Method: "PUT", Path: "/test", Body: models.MissingBody()}
	executed := ExecuteRequestPlan(plan, actual, ctx)

	assert.True(t, executed.Result().IsError())
	assert.Contains(t, executed.PrettyForm(), "ERROR(Expected 'PUT' to be equal to 'POST')")
}

func TestBuildRequestPlanQueryAndHeaders(t *testing.T) {
	expected, ctx := buildContext(models.HTTPRequest{
		Method: "GET",
		Path:   "/",
		Query:  map[string][]string{"b": {"2", "3"}, "a": {"1"}},
		Headers: map[string][]string{
			"REF-CODE": {"abc"},
		},
		Body: models.MissingBody(),
	})
	plan, err := BuildRequestPlan(expected, NewBuilderRegistry(), ctx)
	require.NoError(t, err)

	golden := `(
  :request (
    :method (
      %match:equality (
        'GET',
        %upper-case (
          $.method
        ),
        NULL
      )
    ),
    :path (
      %match:equality (
        '/',
        $.path,
        NULL
      )
    ),
    :"query parameters" (
      :$.query.a (
        %if (
          %check:exists (
            $.query.a
          ),
          %match:equality (
            '1',
            $.query.a,
            NULL
          )
        )
      ),
      :$.query.b (
        %if (
          %check:exists (
            $.query.b
          ),
          %match:equality (
            ['2', '3'],
            $.query.b,
            NULL
          )
        )
      ),
      %expect:entries (
        ['a', 'b'],
        $.query,
        %join (
          'The following expected query parameters were missing: ',
          %apply ()
        )
      ),
      %expect:only-entries (
        ['a', 'b'],
        $.query,
        %join (
          'The following query parameters were not expected: ',
          %apply ()
        )
      )
    ),
    :headers (
      :REF-CODE (
        %if (
          %check:exists (
            $.headers.REF-CODE
          ),
          %match:equality (
            'abc',
            $.headers.REF-CODE,
            NULL
          )
        )
      ),
      %expect:entries (
        ['REF-CODE'],
        $.headers,
        %join (
          'The following expected headers were missing: ',
          %apply ()
        )
      )
    )
  )
)
`
	assert.Equal(t, golden, plan.PrettyForm())
}

func TestExecuteRequestPlanQueryMismatches(t *testing.T) {
	expected, ctx := buildContext(models.HTTPRequest{
		Method: "GET",
		Path:   "/",
		Query:  map[string][]string{"a": {"1"}},
		Body:   models.MissingBody(),
	})
	plan, err := BuildRequestPlan(expected, NewBuilderRegistry(), ctx)
	require.NoError(t, err)

	// A missing parameter fails the entries check but skips the value
	// check behind the exists guard.
	actual := &models.HTTPRequest{Method: "GET", Path: "/", Body: models.MissingBody()}
	executed := ExecuteRequestPlan(plan, actual, ctx)
	assert.True(t, executed.Result().IsError())
	assert.Contains(t, executed.PrettyForm(),
		"ERROR(The following expected query parameters were missing: a)")

	// An unexpected parameter fails the only-entries check.
	actual = &models.HTTPRequest{
		Method: "GET", Path: "/",
		Query: map[string][]string{"a": {"1"}, "c": {"9"}},
		Body:  models.MissingBody(),
	}
	executed = ExecuteRequestPlan(plan, actual, ctx)
	assert.True(t, executed.Result().IsError())
	assert.Contains(t, executed.PrettyForm(),
		"ERROR(The following query parameters were not expected: c)")
}

func TestExecuteRequestPlanExtraHeadersAreBenign(t *testing.T) {
	expected, ctx := buildContext(models.HTTPRequest{
		Method:  "GET",
		Path:    "/",
		Headers: map[string][]string{"REF-CODE": {"abc"}},
		Body:    models.MissingBody(),
	})
	plan, err := BuildRequestPlan(expected, NewBuilderRegistry(), ctx)
	require.NoError(t, err)

	actual := &models.HTTPRequest{
		Method: "GET", Path: "/",
		Headers: map[string][]string{"REF-CODE": {"abc"}, "User-Agent": {"curl"}},
		Body:    models.MissingBody(),
	}
	executed := ExecuteRequestPlan(plan, actual, ctx)
	assert.False(t, executed.Result().IsError())
}

func TestBuildPathPlanWithMatcher(t *testing.T) {
	rules := matchingrules.NewRuleSet()
	rules.On("path").AddList(pathexp.NewRoot(), matchingrules.NewRuleList(
		matchingrules.Rule{Kind: matchingrules.Regex, Regex: "/test[0-9]+"},
	))
	expected, ctx := buildContext(models.HTTPRequest{
		Method:        "GET",
		Path:          "/test123",
		Body:          models.MissingBody(),
		MatchingRules: rules,
	})
	plan, err := BuildRequestPlan(expected, NewBuilderRegistry(), ctx)
	require.NoError(t, err)
	assert.Contains(t, plan.PrettyForm(), `%match:regex (
        '/test123',
        $.path,
        json:{"regex":"/test[0-9]+"}
      )`)

	actual := &models.HTTPRequest{Method: "GET", Path: "/test987", Body: models.MissingBody()}
	executed := ExecuteRequestPlan(plan, actual, ctx)
	assert.False(t, executed.Result().IsError())

	actual.Path = "/other"
	executed = ExecuteRequestPlan(plan, actual, ctx)
	assert.True(t, executed.Result().IsError())
	assert.Contains(t, executed.PrettyForm(), "ERROR(Expected '/other' to match '/test[0-9]+')")
}

func TestBuildQueryPlanWithMatcher(t *testing.T) {
	rules := matchingrules.NewRuleSet()
	rules.On("query").AddList(pathexp.NewRoot().Join("a"), matchingrules.NewRuleList(
		matchingrules.Rule{Kind: matchingrules.Integer},
	))
	expected, ctx := buildContext(models.HTTPRequest{
		Method: "GET",
		Path:   "/",
		Query:  map[string][]string{"a": {"1"}},
		Body:   models.MissingBody(),
		MatchingRules: rules,
	})
	plan, err := BuildRequestPlan(expected, NewBuilderRegistry(), ctx)
	require.NoError(t, err)

	// Parameterless rules render an empty params object.
	assert.Contains(t, plan.PrettyForm(), `%match:integer (
            '1',
            $.query.a,
            json:{}
          )`)
}

func TestBuildBodyPlanEmptyAndNull(t *testing.T) {
	for _, body := range []models.OptionalBody{models.EmptyBody(), models.NullBody()} {
		expected, ctx := buildContext(models.HTTPRequest{
			Method: "GET", Path: "/", Body: body,
		})
		plan, err := BuildRequestPlan(expected, NewBuilderRegistry(), ctx)
		require.NoError(t, err)
		assert.Contains(t, plan.PrettyForm(), `:body (
      %expect:empty (
        $.body
      )
    )`)

		actual := &models.HTTPRequest{Method: "GET", Path: "/", Body: models.MissingBody()}
		executed := ExecuteRequestPlan(plan, actual, ctx)
		assert.False(t, executed.Result().IsError())

		actual.Body = models.PresentBody([]byte("content"), models.ParseContentType("text/plain"))
		executed = ExecuteRequestPlan(plan, actual, ctx)
		assert.True(t, executed.Result().IsError())
	}
}

func TestBuildBodyPlanPlainText(t *testing.T) {
	expected, ctx := buildContext(models.HTTPRequest{
		Method: "POST",
		Path:   "/",
		Body:   models.PresentBody([]byte("hello world"), models.ParseContentType("text/plain")),
	})
	plan, err := BuildRequestPlan(expected, NewBuilderRegistry(), ctx)
	require.NoError(t, err)

	assert.Contains(t, plan.PrettyForm(), `:body (
      %if (
        %match:equality (
          'text/plain',
          $.content-type,
          NULL
        ),
        %match:equality (
          'hello world',
          %convert:UTF8 (
            $.body
          ),
          NULL
        )
      )
    )`)

	actual := &models.HTTPRequest{
		Method: "POST", Path: "/",
		Body: models.PresentBody([]byte("hello world"), models.ParseContentType("text/plain")),
	}
	executed := ExecuteRequestPlan(plan, actual, ctx)
	assert.False(t, executed.Result().IsError())

	actual.Body = models.PresentBody([]byte("goodbye"), models.ParseContentType("text/plain"))
	executed = ExecuteRequestPlan(plan, actual, ctx)
	assert.True(t, executed.Result().IsError())
	assert.Contains(t, executed.PrettyForm(), "ERROR(Expected 'goodbye' to be equal to 'hello world')")
}

func TestBuildBodyPlanContentTypeMismatchSkipsBodyChecks(t *testing.T) {
	expected, ctx := buildContext(models.HTTPRequest{
		Method: "POST",
		Path:   "/",
		Body:   models.PresentBody([]byte(`{"a":100}`), models.ParseContentType("application/json")),
	})
	plan, err := BuildRequestPlan(expected, NewBuilderRegistry(), ctx)
	require.NoError(t, err)

	actual := &models.HTTPRequest{
		Method: "POST", Path: "/",
		Body: models.PresentBody([]byte("a=1"), models.ParseContentType("application/x-www-form-urlencoded")),
	}
	executed := ExecuteRequestPlan(plan, actual, ctx)
	assert.True(t, executed.Result().IsError())
	assert.Contains(t, executed.PrettyForm(),
		"ERROR(Expected 'application/x-www-form-urlencoded' to be equal to 'application/json')")
	// The if condition fails, so the body plan itself stays unexecuted.
	assert.NotContains(t, executed.PrettyForm(), "$.body =>")
}
