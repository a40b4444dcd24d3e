package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/ohler55/ojg/oj"

	"github.com/pactplan/pactplan/pkg/matchingrules"
)

// executeAction runs one action node, producing an executed copy with the
// evaluated arguments as children. Control-flow actions evaluate their
// arguments themselves; everything else evaluates all arguments eagerly,
// left to right.
func executeAction(n *Node, resolver ValueResolver, ctx *MatchingContext) *Node {
	switch n.Label {
	case "if":
		return executeIf(n, resolver, ctx)
	case "and":
		return executeAnd(n, resolver, ctx)
	case "or":
		return executeOr(n, resolver, ctx)
	case "tee":
		return executeTee(n, resolver, ctx)
	case "for-each":
		return executeForEach(n, resolver, ctx)
	case "expect:empty":
		return executeExpectEmpty(n, resolver, ctx)
	case "expect:entries":
		return executeExpectEntries(n, resolver, ctx, false)
	case "expect:only-entries":
		return executeExpectEntries(n, resolver, ctx, true)
	case "expect:count":
		return executeExpectCount(n, resolver, ctx)
	case "apply":
		return executeApply(n, ctx)
	case "push":
		return executePush(n, ctx)
	case "pop":
		return executePop(n, ctx)
	}

	out := Action(n.Label)
	args := make([]NodeResult, 0, len(n.Children))
	for _, c := range n.Children {
		executed := executeNode(c, resolver, ctx)
		out.Add(executed)
		args = append(args, executed.ResultOrOK())
	}
	return setResult(out, applyAction(n.Label, args))
}

func applyAction(name string, args []NodeResult) NodeResult {
	if strings.HasPrefix(name, "match:") {
		return actionMatch(name, args)
	}
	switch name {
	case "check:exists":
		return actionCheckExists(name, args)
	case "json:parse":
		return actionJSONParse(name, args)
	case "json:expect:empty":
		return actionJSONExpectEmpty(name, args)
	case "json:expect:entries":
		return actionJSONEntries(name, args, false)
	case "json:expect:only-entries":
		return actionJSONEntries(name, args, true)
	case "json:match:length":
		return actionJSONMatchLength(name, args)
	case "xml:parse":
		return actionXMLParse(name, args)
	case "form:parse":
		return actionFormParse(name, args)
	case "convert:UTF8":
		return actionConvertUTF8(name, args)
	case "upper-case":
		return actionChangeCase(name, args, strings.ToUpper)
	case "lower-case":
		return actionChangeCase(name, args, strings.ToLower)
	case "join":
		return actionJoin(args, "")
	case "join-with":
		return actionJoinWith(name, args)
	case "error":
		return actionError(args)
	default:
		return ErrorResult(fmt.Sprintf("'%s' is not a valid action", name))
	}
}

func oneArgError(name string, got int) NodeResult {
	if got == 0 {
		return ErrorResult(fmt.Sprintf("%s requires one argument, got none", name))
	}
	return ErrorResult(fmt.Sprintf("%s takes only one argument, got %d", name, got))
}

func arityError(name string, want string, got int) NodeResult {
	return ErrorResult(fmt.Sprintf("Action '%s' requires %s arguments, got %d", name, want, got))
}

// actionMatch applies a matching rule named by the action ("match:regex"),
// with arguments (expected, actual, params).
func actionMatch(name string, args []NodeResult) NodeResult {
	if len(args) != 3 {
		return arityError(name, "three", len(args))
	}
	for _, a := range args {
		if a.IsError() {
			return a
		}
	}
	rule, err := ruleForAction(strings.TrimPrefix(name, "match:"), args[2].ValueOrNull())
	if err != nil {
		return ErrorResult(err.Error())
	}
	expected := args[0].ValueOrNull().Interface()
	actual := args[1].ValueOrNull().Interface()
	if err := matchingrules.Apply(rule, expected, actual); err != nil {
		return ErrorResult(err.Error())
	}
	return BoolResult(true)
}

// ruleForAction builds a matching rule from an action name suffix and its
// parameter value (NULL or a JSON object).
func ruleForAction(name string, params NodeValue) (matchingrules.Rule, error) {
	raw := map[string]any{}
	if params.Kind == KindJSON {
		if m, ok := params.JSON.(map[string]any); ok {
			for k, v := range m {
				raw[k] = v
			}
		}
	}
	switch name {
	case "min-type", "max-type", "min-max-type":
		raw["match"] = "type"
	case "each-key":
		raw["match"] = "eachKey"
	case "each-value":
		raw["match"] = "eachValue"
	case "array-contains":
		raw["match"] = "arrayContains"
	default:
		raw["match"] = name
	}
	rule, err := matchingrules.RuleFromJSON(raw)
	if err != nil {
		return matchingrules.Rule{}, err
	}
	return rule, nil
}

func actionCheckExists(name string, args []NodeResult) NodeResult {
	if len(args) != 1 {
		return oneArgError(name, len(args))
	}
	if args[0].IsError() {
		return BoolResult(false)
	}
	return BoolResult(args[0].ValueOrNull().Kind != KindNull)
}

// executeExpectEmpty checks its first argument is empty. The optional
// second argument is a message expression, evaluated only on failure and
// left unexecuted otherwise.
func executeExpectEmpty(n *Node, resolver ValueResolver, ctx *MatchingContext) *Node {
	out := Action(n.Label)
	if len(n.Children) == 0 {
		return setResult(out, oneArgError(n.Label, 0))
	}
	arg := executeNode(n.Children[0], resolver, ctx)
	out.Add(arg)
	v := arg.ResultOrOK().ValueOrNull()
	if v.IsEmpty() {
		for _, c := range n.Children[1:] {
			out.Add(c.Clone())
		}
		return setResult(out, BoolResult(true))
	}
	if len(n.Children) > 1 {
		message := executeNode(n.Children[1], resolver, ctx)
		out.Add(message)
		for _, c := range n.Children[2:] {
			out.Add(c.Clone())
		}
		return setResult(out, ErrorResult(message.ResultOrOK().AsString()))
	}
	return setResult(out, ErrorResult(fmt.Sprintf("Expected %s to be empty", v.StrForm())))
}

// entryKeys extracts the sorted keys of a multimap or JSON object value.
func entryKeys(v NodeValue) ([]string, bool) {
	switch v.Kind {
	case KindMap:
		keys := make([]string, 0, len(v.Map))
		for key := range v.Map {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return keys, true
	case KindJSON:
		obj, ok := v.JSON.(map[string]any)
		if !ok {
			return nil, false
		}
		keys := make([]string, 0, len(obj))
		for key := range obj {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return keys, true
	default:
		return nil, false
	}
}

// executeExpectEntries checks entry keys of a map: expect:entries requires
// all expected keys present, expect:only-entries rejects unexpected keys.
// On failure the joined offending keys are pushed as the current value and
// the optional message expression is evaluated with %apply resolving to
// them; on success the message renders unexecuted.
func executeExpectEntries(n *Node, resolver ValueResolver, ctx *MatchingContext, onlyEntries bool) *Node {
	out := Action(n.Label)
	if len(n.Children) < 2 {
		for _, c := range n.Children {
			out.Add(executeNode(c, resolver, ctx))
		}
		return setResult(out, arityError(n.Label, "two or three", len(n.Children)))
	}
	keysNode := executeNode(n.Children[0], resolver, ctx)
	actualNode := executeNode(n.Children[1], resolver, ctx)
	out.Add(keysNode, actualNode)

	expected := keysNode.ResultOrOK().ValueOrNull()
	if expected.Kind != KindList {
		for _, c := range n.Children[2:] {
			out.Add(c.Clone())
		}
		return setResult(out, ErrorResult(fmt.Sprintf(
			"'%s' is not a list of Strings", expected.StrForm())))
	}
	actual := actualNode.ResultOrOK().ValueOrNull()
	actualKeys, ok := entryKeys(actual)
	if !ok {
		for _, c := range n.Children[2:] {
			out.Add(c.Clone())
		}
		return setResult(out, ErrorResult(fmt.Sprintf(
			"Expected %s to be a map of entries", actual.StrForm())))
	}

	var offending []string
	if onlyEntries {
		allowed := map[string]bool{}
		for _, key := range expected.List {
			allowed[key] = true
		}
		for _, key := range actualKeys {
			if !allowed[key] {
				offending = append(offending, key)
			}
		}
	} else {
		present := map[string]bool{}
		for _, key := range actualKeys {
			present[key] = true
		}
		for _, key := range sortedCopy(expected.List) {
			if !present[key] {
				offending = append(offending, key)
			}
		}
	}
	if len(offending) == 0 {
		for _, c := range n.Children[2:] {
			out.Add(c.Clone())
		}
		return setResult(out, OKResult())
	}

	joined := strings.Join(offending, ", ")
	if len(n.Children) > 2 {
		ctx.PushValue(StringValue(joined))
		message := executeNode(n.Children[2], resolver, ctx)
		ctx.PopValue()
		out.Add(message)
		for _, c := range n.Children[3:] {
			out.Add(c.Clone())
		}
		return setResult(out, ErrorResult(message.ResultOrOK().AsString()))
	}
	if onlyEntries {
		return setResult(out, ErrorResult("The following entries were not expected: "+joined))
	}
	return setResult(out, ErrorResult("The following expected entries were missing: "+joined))
}

func sortedCopy(items []string) []string {
	out := append([]string(nil), items...)
	sort.Strings(out)
	return out
}

// executeExpectCount checks the number of elements of a value: lists count
// their items, NULL counts as zero and anything else as one. The optional
// message expression follows the expect:entries conventions.
func executeExpectCount(n *Node, resolver ValueResolver, ctx *MatchingContext) *Node {
	out := Action(n.Label)
	if len(n.Children) < 2 {
		for _, c := range n.Children {
			out.Add(executeNode(c, resolver, ctx))
		}
		return setResult(out, arityError(n.Label, "two or three", len(n.Children)))
	}
	countNode := executeNode(n.Children[0], resolver, ctx)
	valueNode := executeNode(n.Children[1], resolver, ctx)
	out.Add(countNode, valueNode)

	expected := countNode.ResultOrOK().ValueOrNull()
	if expected.Kind != KindUInt {
		for _, c := range n.Children[2:] {
			out.Add(c.Clone())
		}
		return setResult(out, ErrorResult(fmt.Sprintf(
			"'%s' is not a valid number", expected.StrForm())))
	}
	v := valueNode.ResultOrOK().ValueOrNull()
	var count uint64
	switch v.Kind {
	case KindNull:
		count = 0
	case KindList:
		count = uint64(len(v.List))
	case KindJSON:
		if arr, ok := v.JSON.([]any); ok {
			count = uint64(len(arr))
		} else {
			count = 1
		}
	default:
		count = 1
	}
	if count == expected.UInt {
		for _, c := range n.Children[2:] {
			out.Add(c.Clone())
		}
		return setResult(out, OKResult())
	}
	if len(n.Children) > 2 {
		ctx.PushValue(UIntValue(count))
		message := executeNode(n.Children[2], resolver, ctx)
		ctx.PopValue()
		out.Add(message)
		for _, c := range n.Children[3:] {
			out.Add(c.Clone())
		}
		return setResult(out, ErrorResult(message.ResultOrOK().AsString()))
	}
	return setResult(out, ErrorResult(fmt.Sprintf(
		"Was expecting %d elements but there were %d", expected.UInt, count)))
}

func actionJSONParse(name string, args []NodeResult) NodeResult {
	if len(args) != 1 {
		return oneArgError(name, len(args))
	}
	if args[0].IsError() {
		return args[0]
	}
	var data []byte
	switch v := args[0].ValueOrNull(); v.Kind {
	case KindString:
		data = []byte(v.Str)
	case KindBytes:
		data = v.Bytes
	case KindNull:
		return ValueResult(NullValue())
	default:
		return ErrorResult(fmt.Sprintf("json:parse can not be used with %s", v.StrForm()))
	}
	parsed, err := oj.Parse(data)
	if err != nil {
		return ErrorResult(fmt.Sprintf("json parse error - %s", err))
	}
	return ValueResult(JSONValue(normaliseJSON(parsed)))
}

// normaliseJSON converts ojg generic containers to the plain map and slice
// shapes the rest of the engine operates on.
func normaliseJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for key, value := range t {
			t[key] = normaliseJSON(value)
		}
		return t
	case []any:
		for i, value := range t {
			t[i] = normaliseJSON(value)
		}
		return t
	default:
		return v
	}
}

// jsonTypeLabel maps a decoded value to the type names used by the json:
// actions as their first argument.
func jsonTypeLabel(v any) string {
	switch v.(type) {
	case nil:
		return "NULL"
	case bool:
		return "BOOL"
	case int64, uint64, float64:
		return "NUMBER"
	case string:
		return "STRING"
	case []any:
		return "ARRAY"
	case map[string]any:
		return "OBJECT"
	default:
		return "UNKNOWN"
	}
}

var validJSONTypes = map[string]bool{
	"NULL": true, "BOOL": true, "NUMBER": true,
	"STRING": true, "ARRAY": true, "OBJECT": true,
}

func describeJSONType(label string) string {
	if label == "NULL" || label == "" {
		return label
	}
	return label[:1] + strings.ToLower(label[1:])
}

// checkJSONType validates the expected type label and that the value is a
// JSON value of that type, returning the decoded document on success.
func checkJSONType(wantLabel string, v NodeValue) (any, NodeResult) {
	if !validJSONTypes[wantLabel] {
		return nil, ErrorResult(fmt.Sprintf("'%s' is not a valid JSON type", wantLabel))
	}
	if v.Kind != KindJSON {
		return nil, ErrorResult(fmt.Sprintf("Was expecting a JSON value, but got %s", v.StrForm()))
	}
	if got := jsonTypeLabel(v.JSON); got != wantLabel {
		return nil, ErrorResult(fmt.Sprintf("Was expecting a JSON %s but got a %s",
			describeJSONType(wantLabel), matchingrules.TypeName(v.JSON)))
	}
	return v.JSON, NodeResult{}
}

func actionJSONExpectEmpty(name string, args []NodeResult) NodeResult {
	if len(args) != 2 {
		return arityError(name, "two", len(args))
	}
	wantLabel, ok := args[0].ValueOrNull().AsString()
	if !ok {
		return ErrorResult(fmt.Sprintf("'%s' is not a valid JSON type", args[0].String()))
	}
	value, errResult := checkJSONType(wantLabel, args[1].ValueOrNull())
	if errResult.IsError() {
		return errResult
	}
	empty := false
	switch v := value.(type) {
	case nil:
		empty = true
	case string:
		empty = v == ""
	case []any:
		empty = len(v) == 0
	case map[string]any:
		empty = len(v) == 0
	}
	if !empty {
		return ErrorResult(fmt.Sprintf("Expected JSON %s (%s) to be empty",
			describeJSONType(wantLabel), CanonicalJSON(value)))
	}
	return BoolResult(true)
}

func actionJSONEntries(name string, args []NodeResult, onlyEntries bool) NodeResult {
	if len(args) != 3 {
		return arityError(name, "three", len(args))
	}
	wantLabel, ok := args[0].ValueOrNull().AsString()
	if !ok {
		return ErrorResult(fmt.Sprintf("'%s' is not a valid JSON type", args[0].String()))
	}
	keys := args[1].ValueOrNull()
	if keys.Kind != KindList {
		return ErrorResult(fmt.Sprintf("'%s' is not a list of Strings", args[1].String()))
	}
	value, errResult := checkJSONType(wantLabel, args[2].ValueOrNull())
	if errResult.IsError() {
		return errResult
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return ErrorResult(fmt.Sprintf("Was expecting a JSON Object, but got %s", CanonicalJSON(value)))
	}

	var offending []string
	if onlyEntries {
		allowed := map[string]bool{}
		for _, key := range keys.List {
			allowed[key] = true
		}
		for key := range obj {
			if !allowed[key] {
				offending = append(offending, key)
			}
		}
		sort.Strings(offending)
		if len(offending) > 0 {
			return ErrorResult(fmt.Sprintf("The following unexpected entries were received in the actual %s: %s",
				describeJSONType(wantLabel), strings.Join(offending, ", ")))
		}
	} else {
		for _, key := range sortedCopy(keys.List) {
			if _, present := obj[key]; !present {
				offending = append(offending, key)
			}
		}
		if len(offending) > 0 {
			return ErrorResult(fmt.Sprintf("The following expected entries were missing from the actual %s: %s",
				describeJSONType(wantLabel), strings.Join(offending, ", ")))
		}
	}
	return BoolResult(true)
}

func actionJSONMatchLength(name string, args []NodeResult) NodeResult {
	if len(args) != 3 {
		return arityError(name, "three", len(args))
	}
	wantLabel, ok := args[0].ValueOrNull().AsString()
	if !ok {
		return ErrorResult(fmt.Sprintf("'%s' is not a valid JSON type", args[0].String()))
	}
	expected := args[1].ValueOrNull()
	if expected.Kind != KindUInt {
		return ErrorResult(fmt.Sprintf("'%s' is not a valid number", args[1].String()))
	}
	value, errResult := checkJSONType(wantLabel, args[2].ValueOrNull())
	if errResult.IsError() {
		return errResult
	}
	var length uint64
	switch v := value.(type) {
	case []any:
		length = uint64(len(v))
	case map[string]any:
		length = uint64(len(v))
	case string:
		length = uint64(len(v))
	default:
		return BoolResult(true)
	}
	if length != expected.UInt {
		return ErrorResult(fmt.Sprintf("Was expecting a length of %d, but actual length is %d", expected.UInt, length))
	}
	return BoolResult(true)
}

func actionXMLParse(name string, args []NodeResult) NodeResult {
	if len(args) != 1 {
		return oneArgError(name, len(args))
	}
	if args[0].IsError() {
		return args[0]
	}
	var data []byte
	switch v := args[0].ValueOrNull(); v.Kind {
	case KindString:
		data = []byte(v.Str)
	case KindBytes:
		data = v.Bytes
	case KindNull:
		return ValueResult(NullValue())
	default:
		return ErrorResult(fmt.Sprintf("xml:parse can not be used with %s", v.StrForm()))
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return ErrorResult(fmt.Sprintf("xml parse error - %s", err))
	}
	root := doc.Root()
	if root == nil {
		return ErrorResult("xml parse error - no root element")
	}
	shape := map[string]any{tagName(root): xmlElementShape(root)}
	return ValueResult(JSONValue(shape))
}

// xmlElementShape converts an element to the JSON shape the matching
// actions operate on: attributes as "@name" entries, non-blank text as
// "#text" and children grouped by tag, repeated tags becoming arrays.
func xmlElementShape(e *etree.Element) map[string]any {
	shape := map[string]any{}
	for _, attr := range e.Attr {
		if attr.Space == "xmlns" || (attr.Space == "" && attr.Key == "xmlns") {
			continue
		}
		shape["@"+attr.Key] = attr.Value
	}
	if text := strings.TrimSpace(e.Text()); text != "" {
		shape["#text"] = text
	}
	for _, child := range e.ChildElements() {
		name := tagName(child)
		childShape := xmlElementShape(child)
		switch existing := shape[name].(type) {
		case nil:
			shape[name] = childShape
		case []any:
			shape[name] = append(existing, childShape)
		default:
			shape[name] = []any{existing, childShape}
		}
	}
	return shape
}

func tagName(e *etree.Element) string {
	if e.Space != "" {
		return e.Space + ":" + e.Tag
	}
	return e.Tag
}

func actionFormParse(name string, args []NodeResult) NodeResult {
	if len(args) != 1 {
		return oneArgError(name, len(args))
	}
	if args[0].IsError() {
		return args[0]
	}
	var data string
	switch v := args[0].ValueOrNull(); v.Kind {
	case KindString:
		data = v.Str
	case KindBytes:
		data = string(v.Bytes)
	case KindNull:
		return ValueResult(NullValue())
	default:
		return ErrorResult(fmt.Sprintf("form:parse can not be used with %s", v.StrForm()))
	}
	values, err := parseFormBody(data)
	if err != nil {
		return ErrorResult(fmt.Sprintf("form parse error - %s", err))
	}
	return ValueResult(MapValue(values))
}

func actionConvertUTF8(name string, args []NodeResult) NodeResult {
	if len(args) != 1 {
		return oneArgError(name, len(args))
	}
	switch v := args[0].ValueOrNull(); v.Kind {
	case KindNull:
		return ValueResult(StringValue(""))
	case KindString:
		return ValueResult(v)
	case KindBytes:
		return ValueResult(StringValue(string(v.Bytes)))
	default:
		return ErrorResult(fmt.Sprintf("convert:UTF8 can not be used with %s", v.StrForm()))
	}
}

// actionChangeCase transforms the string form of its argument; non-string
// values degrade to the empty string.
func actionChangeCase(name string, args []NodeResult, transform func(string) string) NodeResult {
	if len(args) != 1 {
		return oneArgError(name, len(args))
	}
	if args[0].IsError() {
		return args[0]
	}
	s, _ := args[0].ValueOrNull().AsString()
	return ValueResult(StringValue(transform(s)))
}

func actionJoin(args []NodeResult, separator string) NodeResult {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a.IsError() {
			return a
		}
		parts = append(parts, a.AsString())
	}
	return ValueResult(StringValue(strings.Join(parts, separator)))
}

func actionJoinWith(name string, args []NodeResult) NodeResult {
	if len(args) < 1 {
		return ErrorResult(fmt.Sprintf("%s requires a separator as the first argument", name))
	}
	separator, ok := args[0].ValueOrNull().AsString()
	if !ok {
		return ErrorResult(fmt.Sprintf("%s requires a string separator as the first argument", name))
	}
	return actionJoin(args[1:], separator)
}

func actionError(args []NodeResult) NodeResult {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, a.AsString())
	}
	return ErrorResult(strings.Join(parts, ""))
}

// executeIf evaluates the condition; a truthy condition executes the
// second child, otherwise the optional third "else" child. The untaken
// branch stays unexecuted in the output, and without an else the
// condition's own falsy result stands.
func executeIf(n *Node, resolver ValueResolver, ctx *MatchingContext) *Node {
	out := Action(n.Label)
	if len(n.Children) < 2 {
		for _, c := range n.Children {
			out.Add(executeNode(c, resolver, ctx))
		}
		return setResult(out, ErrorResult("'if' action requires at least two arguments"))
	}
	cond := executeNode(n.Children[0], resolver, ctx)
	out.Add(cond)
	condResult := cond.ResultOrOK()
	if condResult.IsTruthy() {
		then := executeNode(n.Children[1], resolver, ctx)
		out.Add(then)
		for _, c := range n.Children[2:] {
			out.Add(c.Clone())
		}
		return setResult(out, then.ResultOrOK())
	}
	out.Add(n.Children[1].Clone())
	if len(n.Children) > 2 {
		otherwise := executeNode(n.Children[2], resolver, ctx)
		out.Add(otherwise)
		for _, c := range n.Children[3:] {
			out.Add(c.Clone())
		}
		return setResult(out, otherwise.ResultOrOK())
	}
	return setResult(out, condResult)
}

func executeAnd(n *Node, resolver ValueResolver, ctx *MatchingContext) *Node {
	out := Action(n.Label)
	result := OKResult()
	for _, c := range n.Children {
		executed := executeNode(c, resolver, ctx)
		out.Add(executed)
		if c.Type != NodeAnnotation {
			result = result.Or(executed.ResultOrOK())
		}
	}
	return setResult(out, result)
}

// executeOr succeeds on the first truthy child; when none is truthy the
// last child's result stands.
func executeOr(n *Node, resolver ValueResolver, ctx *MatchingContext) *Node {
	out := Action(n.Label)
	if len(n.Children) == 0 {
		return setResult(out, OKResult())
	}
	var last NodeResult
	for _, c := range n.Children {
		executed := executeNode(c, resolver, ctx)
		out.Add(executed)
		last = executed.ResultOrOK()
		if last.IsTruthy() {
			return setResult(out, last)
		}
	}
	return setResult(out, last)
}

// executeTee evaluates its first child and pushes the produced value as
// the current value for the remaining children. A failing first child
// short-circuits with its error and leaves the rest unexecuted.
func executeTee(n *Node, resolver ValueResolver, ctx *MatchingContext) *Node {
	out := Action(n.Label)
	if len(n.Children) == 0 {
		return setResult(out, ErrorResult("'tee' action requires at least one argument"))
	}
	source := executeNode(n.Children[0], resolver, ctx)
	out.Add(source)
	sourceResult := source.ResultOrOK()
	if sourceResult.IsError() {
		for _, c := range n.Children[1:] {
			out.Add(c.Clone())
		}
		return setResult(out, sourceResult)
	}
	ctx.PushValue(sourceResult.ValueOrNull())
	result := OKResult()
	for _, c := range n.Children[1:] {
		executed := executeNode(c, resolver, ctx)
		out.Add(executed)
		if c.Type != NodeAnnotation {
			result = result.Or(executed.ResultOrOK())
		}
	}
	ctx.PopValue()
	return setResult(out, result)
}

// executeForEach evaluates the first child to a collection and executes a
// clone of the second child for every element with that element as the
// current value. Results fold across the executed clones.
func executeForEach(n *Node, resolver ValueResolver, ctx *MatchingContext) *Node {
	out := Action(n.Label)
	if len(n.Children) != 2 {
		for _, c := range n.Children {
			out.Add(executeNode(c, resolver, ctx))
		}
		return setResult(out, arityError(n.Label, "two", len(n.Children)))
	}
	source := executeNode(n.Children[0], resolver, ctx)
	out.Add(source)
	sourceResult := source.ResultOrOK()
	if sourceResult.IsError() {
		out.Add(n.Children[1].Clone())
		return setResult(out, sourceResult)
	}

	var elements []NodeValue
	switch v := sourceResult.ValueOrNull(); v.Kind {
	case KindJSON:
		arr, ok := v.JSON.([]any)
		if !ok {
			out.Add(n.Children[1].Clone())
			return setResult(out, ErrorResult(fmt.Sprintf("for-each requires a list, got %s", v.StrForm())))
		}
		for _, e := range arr {
			elements = append(elements, JSONValue(e))
		}
	case KindList:
		for _, s := range v.List {
			elements = append(elements, StringValue(s))
		}
	case KindNull:
		// Nothing to iterate.
	default:
		out.Add(n.Children[1].Clone())
		return setResult(out, ErrorResult(fmt.Sprintf("for-each requires a list, got %s", v.StrForm())))
	}

	if len(elements) == 0 {
		out.Add(n.Children[1].Clone())
		return setResult(out, OKResult())
	}
	result := OKResult()
	for _, element := range elements {
		ctx.PushValue(element)
		executed := executeNode(n.Children[1], resolver, ctx)
		ctx.PopValue()
		out.Add(executed)
		result = result.Or(executed.ResultOrOK())
	}
	return setResult(out, result)
}

func executeApply(n *Node, ctx *MatchingContext) *Node {
	out := Action(n.Label)
	current, ok := ctx.CurrentValue()
	if !ok {
		return setResult(out, ErrorResult("No value to apply (stack is empty)"))
	}
	return setResult(out, ValueResult(current))
}

// executePush duplicates the top of the stack.
func executePush(n *Node, ctx *MatchingContext) *Node {
	out := Action(n.Label)
	current, ok := ctx.CurrentValue()
	if !ok {
		return setResult(out, ErrorResult("No value to push (value is empty)"))
	}
	ctx.PushValue(current)
	return setResult(out, ValueResult(current))
}

// executePop discards the top of the stack; the result is the value left
// on top afterwards.
func executePop(n *Node, ctx *MatchingContext) *Node {
	out := Action(n.Label)
	if _, ok := ctx.PopValue(); !ok {
		return setResult(out, ErrorResult("No value to pop (stack is empty)"))
	}
	if top, ok := ctx.CurrentValue(); ok {
		return setResult(out, ValueResult(top))
	}
	return setResult(out, OKResult())
}
