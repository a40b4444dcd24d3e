package plan

// ResultKind discriminates node execution outcomes.
type ResultKind int

const (
	// ResultOK is success without a value.
	ResultOK ResultKind = iota
	// ResultValue is success with a value.
	ResultValue
	// ResultError is a node-level failure with a message.
	ResultError
)

// NodeResult is the tri-state outcome of executing a plan node.
type NodeResult struct {
	Kind  ResultKind
	Value NodeValue
	Err   string
}

// OKResult returns the plain success result.
func OKResult() NodeResult {
	return NodeResult{Kind: ResultOK}
}

// ValueResult returns a success result carrying a value.
func ValueResult(v NodeValue) NodeResult {
	return NodeResult{Kind: ResultValue, Value: v}
}

// ErrorResult returns a failure result with a message.
func ErrorResult(message string) NodeResult {
	return NodeResult{Kind: ResultError, Err: message}
}

// BoolResult returns VALUE(BOOL(b)).
func BoolResult(b bool) NodeResult {
	return ValueResult(BoolValue(b))
}

// Or combines two results. Any error collapses the combination to the
// aggregate error; otherwise values dominate plain OK, and two values keep
// the receiver's.
func (r NodeResult) Or(other NodeResult) NodeResult {
	if r.Kind == ResultError || other.Kind == ResultError {
		return ErrorResult("One or more children failed")
	}
	if r.Kind == ResultValue {
		return r
	}
	return other
}

// IsError reports whether the result is a failure.
func (r NodeResult) IsError() bool {
	return r.Kind == ResultError
}

// IsTruthy reports whether the result counts as success in conditions: OK
// is true, errors are false, values use their own truthiness.
func (r NodeResult) IsTruthy() bool {
	switch r.Kind {
	case ResultOK:
		return true
	case ResultValue:
		return r.Value.IsTruthy()
	default:
		return false
	}
}

// ValueOrNull returns the carried value, or NULL for OK and errors.
func (r NodeResult) ValueOrNull() NodeValue {
	if r.Kind == ResultValue {
		return r.Value
	}
	return NullValue()
}

// AsString renders the carried value as a string for joining operations.
func (r NodeResult) AsString() string {
	switch r.Kind {
	case ResultValue:
		switch r.Value.Kind {
		case KindString, KindNamespaced:
			return r.Value.Str
		default:
			return r.Value.StrForm()
		}
	case ResultError:
		return r.Err
	default:
		return ""
	}
}

// String renders the result in plan text notation.
func (r NodeResult) String() string {
	switch r.Kind {
	case ResultOK:
		return "OK"
	case ResultValue:
		return r.Value.StrForm()
	default:
		return "ERROR(" + r.Err + ")"
	}
}
