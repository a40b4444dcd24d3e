package models

// BodyState distinguishes an absent body from an explicitly empty or null
// one. The distinction drives which checks a plan builder emits.
type BodyState int

const (
	// BodyMissing means no body was specified at all.
	BodyMissing BodyState = iota
	// BodyEmpty means a zero-length body was specified.
	BodyEmpty
	// BodyNull means the body was explicitly null (JSON null).
	BodyNull
	// BodyPresent means body content is available.
	BodyPresent
)

// String returns the state name.
func (s BodyState) String() string {
	switch s {
	case BodyEmpty:
		return "Empty"
	case BodyNull:
		return "Null"
	case BodyPresent:
		return "Present"
	default:
		return "Missing"
	}
}

// OptionalBody is interaction content with its presence state and content
// type.
type OptionalBody struct {
	State       BodyState
	Value       []byte
	ContentType ContentType
}

// MissingBody returns the absent body.
func MissingBody() OptionalBody {
	return OptionalBody{State: BodyMissing}
}

// EmptyBody returns an explicitly empty body.
func EmptyBody() OptionalBody {
	return OptionalBody{State: BodyEmpty}
}

// NullBody returns an explicitly null body.
func NullBody() OptionalBody {
	return OptionalBody{State: BodyNull}
}

// PresentBody returns a body with content. A nil or empty value degrades to
// the empty state.
func PresentBody(value []byte, contentType ContentType) OptionalBody {
	if len(value) == 0 {
		return OptionalBody{State: BodyEmpty, ContentType: contentType}
	}
	return OptionalBody{State: BodyPresent, Value: value, ContentType: contentType}
}

// IsPresent reports whether content is available.
func (b OptionalBody) IsPresent() bool {
	return b.State == BodyPresent
}
