// Package models holds the interaction model: pacts, interactions, HTTP
// parts and bodies, together with pact-file JSON loading.
package models

import (
	"net/http"
	"sort"
	"strings"

	"github.com/pactplan/pactplan/pkg/generators"
	"github.com/pactplan/pactplan/pkg/matchingrules"
)

// HTTPRequest is the request half of an HTTP interaction.
type HTTPRequest struct {
	Method  string
	Path    string
	Query   map[string][]string
	Headers map[string][]string
	Body    OptionalBody

	MatchingRules *matchingrules.RuleSet
	Generators    *generators.Generators
}

// HTTPResponse is the response half of an HTTP interaction.
type HTTPResponse struct {
	Status  int
	Headers map[string][]string
	Body    OptionalBody

	MatchingRules *matchingrules.RuleSet
	Generators    *generators.Generators
}

// ContentType returns the request content type: the body's own type when
// known, otherwise the Content-Type header.
func (r *HTTPRequest) ContentType() ContentType {
	return contentTypeOf(r.Body, r.Headers)
}

// ContentType returns the response content type.
func (r *HTTPResponse) ContentType() ContentType {
	return contentTypeOf(r.Body, r.Headers)
}

func contentTypeOf(body OptionalBody, headers map[string][]string) ContentType {
	if !body.ContentType.IsUnknown() {
		return body.ContentType
	}
	for name, values := range headers {
		if strings.EqualFold(name, "Content-Type") && len(values) > 0 {
			return ParseContentType(values[0])
		}
	}
	return ContentType{}
}

// HeaderValues returns the values of a header by case-insensitive name.
func HeaderValues(headers map[string][]string, name string) []string {
	canonical := http.CanonicalHeaderKey(name)
	for key, values := range headers {
		if http.CanonicalHeaderKey(key) == canonical {
			return values
		}
	}
	return nil
}

// SortedKeys returns the keys of a multimap in sorted order.
func SortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Interaction is the closed set of interaction variants. The capability
// queries return nil for variants the value is not.
type Interaction interface {
	Description() string
	AsHTTP() *SynchronousHTTP
	AsMessage() *AsynchronousMessage
}

// SynchronousHTTP is a request/response HTTP interaction.
type SynchronousHTTP struct {
	Desc     string
	Request  HTTPRequest
	Response HTTPResponse
}

func (i *SynchronousHTTP) Description() string             { return i.Desc }
func (i *SynchronousHTTP) AsHTTP() *SynchronousHTTP        { return i }
func (i *SynchronousHTTP) AsMessage() *AsynchronousMessage { return nil }

// AsynchronousMessage is a one-way message interaction.
type AsynchronousMessage struct {
	Desc     string
	Contents OptionalBody
	Metadata map[string]any

	MatchingRules *matchingrules.RuleSet
	Generators    *generators.Generators
}

func (m *AsynchronousMessage) Description() string             { return m.Desc }
func (m *AsynchronousMessage) AsHTTP() *SynchronousHTTP        { return nil }
func (m *AsynchronousMessage) AsMessage() *AsynchronousMessage { return m }

// Pact is a contract between a consumer and a provider.
type Pact struct {
	Consumer     string
	Provider     string
	Interactions []Interaction
}
