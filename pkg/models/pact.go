package models

import (
	"fmt"
	"os"
	"strings"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"

	"github.com/pactplan/pactplan/pkg/generators"
	"github.com/pactplan/pactplan/pkg/matchingrules"
)

// LoadPactFile reads and parses a pact file from disk.
func LoadPactFile(path string) (*Pact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pact file: %w", err)
	}
	return ParsePact(data)
}

// ParsePact parses pact-file JSON (v3 shape).
func ParsePact(data []byte) (*Pact, error) {
	parsed, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("pact file is not valid JSON: %w", err)
	}
	doc, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("pact file must hold a JSON object")
	}

	pact := &Pact{
		Consumer: participantName(doc, "consumer"),
		Provider: participantName(doc, "provider"),
	}
	interactions, _ := doc["interactions"].([]any)
	for i, raw := range interactions {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("interaction %d: expected an object", i)
		}
		interaction, err := parseInteraction(entry)
		if err != nil {
			return nil, fmt.Errorf("interaction %d: %w", i, err)
		}
		pact.Interactions = append(pact.Interactions, interaction)
	}
	return pact, nil
}

// ParseRequest parses a standalone HTTP request JSON document. The shape is
// the request part of a pact interaction.
func ParseRequest(data []byte) (HTTPRequest, error) {
	parsed, err := oj.Parse(data)
	if err != nil {
		return HTTPRequest{}, fmt.Errorf("request is not valid JSON: %w", err)
	}
	raw, ok := parsed.(map[string]any)
	if !ok {
		return HTTPRequest{}, fmt.Errorf("request must hold a JSON object")
	}
	return parseRequest(raw)
}

func participantName(doc map[string]any, role string) string {
	if m, ok := doc[role].(map[string]any); ok {
		if name, ok := m["name"].(string); ok {
			return name
		}
	}
	return ""
}

func parseInteraction(raw map[string]any) (Interaction, error) {
	desc, _ := raw["description"].(string)
	if contents, ok := raw["contents"]; ok {
		return parseMessage(desc, raw, contents)
	}

	interaction := &SynchronousHTTP{Desc: desc}
	if reqRaw, ok := raw["request"].(map[string]any); ok {
		req, err := parseRequest(reqRaw)
		if err != nil {
			return nil, fmt.Errorf("request: %w", err)
		}
		interaction.Request = req
	}
	if resRaw, ok := raw["response"].(map[string]any); ok {
		res, err := parseResponse(resRaw)
		if err != nil {
			return nil, fmt.Errorf("response: %w", err)
		}
		interaction.Response = res
	}
	return interaction, nil
}

func parseMessage(desc string, raw map[string]any, contents any) (Interaction, error) {
	msg := &AsynchronousMessage{Desc: desc}
	msg.Metadata, _ = raw["metaData"].(map[string]any)
	if msg.Metadata == nil {
		msg.Metadata, _ = raw["metadata"].(map[string]any)
	}
	contentType := ParseContentType(metadataContentType(msg.Metadata))
	if contentType.IsUnknown() {
		contentType = ParseContentType("application/json")
	}
	msg.Contents = bodyFromJSON(contents, contentType)

	var err error
	msg.MatchingRules, msg.Generators, err = parseRulesAndGenerators(raw)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func metadataContentType(metadata map[string]any) string {
	for key, value := range metadata {
		if strings.EqualFold(key, "contentType") || strings.EqualFold(key, "content-type") {
			if s, ok := value.(string); ok {
				return s
			}
		}
	}
	return ""
}

func parseRequest(raw map[string]any) (HTTPRequest, error) {
	req := HTTPRequest{
		Method:  strings.ToUpper(stringField(raw, "method", "GET")),
		Path:    stringField(raw, "path", "/"),
		Query:   parseMultimap(raw["query"]),
		Headers: parseMultimap(raw["headers"]),
	}
	req.Body = bodyFromJSON(rawBody(raw), contentTypeOf(OptionalBody{}, req.Headers))

	var err error
	req.MatchingRules, req.Generators, err = parseRulesAndGenerators(raw)
	return req, err
}

func parseResponse(raw map[string]any) (HTTPResponse, error) {
	res := HTTPResponse{
		Status:  200,
		Headers: parseMultimap(raw["headers"]),
	}
	if status, ok := intValue(raw["status"]); ok {
		res.Status = status
	}
	res.Body = bodyFromJSON(rawBody(raw), contentTypeOf(OptionalBody{}, res.Headers))

	var err error
	res.MatchingRules, res.Generators, err = parseRulesAndGenerators(raw)
	return res, err
}

func parseRulesAndGenerators(raw map[string]any) (*matchingrules.RuleSet, *generators.Generators, error) {
	rules := matchingrules.NewRuleSet()
	if rulesRaw, ok := raw["matchingRules"].(map[string]any); ok {
		loaded, err := matchingrules.RuleSetFromJSON(rulesRaw)
		if err != nil {
			return nil, nil, err
		}
		rules = loaded
	}
	gens := generators.New()
	if gensRaw, ok := raw["generators"].(map[string]any); ok {
		loaded, err := generators.FromJSON(gensRaw)
		if err != nil {
			return nil, nil, err
		}
		gens = loaded
	}
	return rules, gens, nil
}

// rawBody distinguishes an absent "body" key from an explicit null.
func rawBody(raw map[string]any) any {
	value, present := raw["body"]
	if !present {
		return bodyAbsent{}
	}
	return value
}

type bodyAbsent struct{}

func bodyFromJSON(value any, contentType ContentType) OptionalBody {
	switch v := value.(type) {
	case bodyAbsent:
		return MissingBody()
	case nil:
		return NullBody()
	case string:
		if v == "" {
			return OptionalBody{State: BodyEmpty, ContentType: contentType}
		}
		if contentType.IsUnknown() {
			contentType = guessContentType(v)
		}
		return PresentBody([]byte(v), contentType)
	default:
		// Structured bodies are stored as JSON values in the pact file.
		if contentType.IsUnknown() {
			contentType = ParseContentType("application/json")
		}
		return PresentBody([]byte(oj.JSON(v, &pactCanonical)), contentType)
	}
}

func guessContentType(body string) ContentType {
	trimmed := strings.TrimSpace(body)
	switch {
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		return ParseContentType("application/json")
	case strings.HasPrefix(trimmed, "<"):
		return ParseContentType("application/xml")
	default:
		return ParseContentType("text/plain")
	}
}

// parseMultimap reads query or header values: either a map of string to
// list of strings, a map of string to string, or the pact v2 query string
// form.
func parseMultimap(raw any) map[string][]string {
	switch v := raw.(type) {
	case map[string]any:
		out := make(map[string][]string, len(v))
		for key, value := range v {
			switch vv := value.(type) {
			case string:
				out[key] = []string{vv}
			case []any:
				var values []string
				for _, item := range vv {
					if s, ok := item.(string); ok {
						values = append(values, s)
					}
				}
				out[key] = values
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		out := map[string][]string{}
		for _, part := range strings.Split(v, "&") {
			key, value, _ := strings.Cut(part, "=")
			out[key] = append(out[key], value)
		}
		return out
	default:
		return nil
	}
}

func stringField(raw map[string]any, key, fallback string) string {
	if s, ok := raw[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func intValue(raw any) (int, bool) {
	switch v := raw.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

var pactCanonical = ojg.Options{Sort: true}
