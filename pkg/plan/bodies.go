package plan

import (
	"sync"

	"github.com/pactplan/pactplan/pkg/models"
)

// BodyPlanBuilder compiles an expected body into a plan node tree for one
// family of content types.
type BodyPlanBuilder interface {
	// Namespace prefixes literal value rendering ("json"), empty when the
	// builder has none.
	Namespace() string
	// SupportsType reports whether the builder handles the content type.
	SupportsType(contentType models.ContentType) bool
	// BuildPlan compiles the expected body bytes into a plan node.
	BuildPlan(content []byte, ctx *MatchingContext) (*Node, error)
}

// BuilderRegistry holds the body plan builders in selection order. It is
// populated once at start-up and safe for concurrent reads afterwards.
type BuilderRegistry struct {
	mu       sync.RWMutex
	builders []BodyPlanBuilder
}

// NewBuilderRegistry returns a registry with the built-in builders. The
// plain text builder claims any textual type, so it goes last.
func NewBuilderRegistry() *BuilderRegistry {
	r := &BuilderRegistry{}
	r.Register(JSONPlanBuilder{})
	r.Register(XMLPlanBuilder{})
	r.Register(FormURLEncodedPlanBuilder{})
	r.Register(PlainTextPlanBuilder{})
	return r
}

// Register appends a builder. Builders registered earlier win when several
// support the same content type.
func (r *BuilderRegistry) Register(b BodyPlanBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders = append(r.builders, b)
}

// BuilderFor returns the first builder supporting the content type, or nil
// when none does.
func (r *BuilderRegistry) BuilderFor(contentType models.ContentType) BodyPlanBuilder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.builders {
		if b.SupportsType(contentType) {
			return b
		}
	}
	return nil
}
