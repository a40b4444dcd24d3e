package plan

import (
	"strings"

	"github.com/pactplan/pactplan/pkg/pathexp"
)

// NodeType discriminates plan node variants.
type NodeType int

const (
	// NodeEmpty is the zero node; it executes to nothing.
	NodeEmpty NodeType = iota
	// NodeContainer groups child nodes under a label.
	NodeContainer
	// NodeAction invokes a named action over its child arguments.
	NodeAction
	// NodeLiteral is a literal value leaf.
	NodeLiteral
	// NodeResolve resolves a path against the actual interaction.
	NodeResolve
	// NodeResolveCurrent resolves a path against the current stack value.
	NodeResolveCurrent
	// NodeAnnotation is display-only text; it is never executed.
	NodeAnnotation
)

// Node is one node of an execution plan tree.
type Node struct {
	Type NodeType
	// Label holds the container label, action name or annotation text.
	Label string
	// Path addresses resolve nodes.
	Path pathexp.DocPath
	// Value holds the literal of value leaves.
	Value NodeValue
	// Result is set on executed nodes.
	Result *NodeResult
	// Children are container members or action arguments.
	Children []*Node
}

// Container returns a container node with a label.
func Container(label string) *Node {
	return &Node{Type: NodeContainer, Label: label}
}

// ContainerForPath returns a container labelled with a path expression.
func ContainerForPath(path pathexp.DocPath) *Node {
	return &Node{Type: NodeContainer, Label: path.String()}
}

// Action returns an action node.
func Action(name string) *Node {
	return &Node{Type: NodeAction, Label: name}
}

// Value returns a literal value leaf.
func Value(v NodeValue) *Node {
	return &Node{Type: NodeLiteral, Value: v}
}

// Resolve returns a resolve leaf for the actual interaction.
func Resolve(path pathexp.DocPath) *Node {
	return &Node{Type: NodeResolve, Path: path}
}

// ResolveCurrent returns a resolve leaf against the current stack value.
func ResolveCurrent(path pathexp.DocPath) *Node {
	return &Node{Type: NodeResolveCurrent, Path: path}
}

// Annotation returns a display-only annotation node.
func Annotation(text string) *Node {
	return &Node{Type: NodeAnnotation, Label: text}
}

// Add appends children and returns the node for chaining.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Clone returns a deep copy of the node tree, results included.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Type:  n.Type,
		Label: n.Label,
		Path:  n.Path,
		Value: n.Value,
	}
	if n.Result != nil {
		result := *n.Result
		out.Result = &result
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, c.Clone())
	}
	return out
}

// ResultOrOK returns the node's result, defaulting to OK for unexecuted
// nodes.
func (n *Node) ResultOrOK() NodeResult {
	if n == nil || n.Result == nil {
		return OKResult()
	}
	return *n.Result
}

// PrettyForm renders the node tree in indented plan notation.
func (n *Node) PrettyForm() string {
	var sb strings.Builder
	n.pretty(&sb, 0)
	return sb.String()
}

func (n *Node) pretty(sb *strings.Builder, indent int) {
	pad := strings.Repeat(" ", indent)
	switch n.Type {
	case NodeContainer:
		sb.WriteString(pad + ":" + quoteLabel(n.Label) + " (")
		n.prettyChildren(sb, indent)
		n.prettyResult(sb)
	case NodeAction:
		sb.WriteString(pad + "%" + n.Label + " (")
		n.prettyChildren(sb, indent)
		n.prettyResult(sb)
	case NodeLiteral:
		sb.WriteString(pad + n.Value.StrForm())
		n.prettyResult(sb)
	case NodeResolve:
		sb.WriteString(pad + n.Path.String())
		n.prettyResult(sb)
	case NodeResolveCurrent:
		sb.WriteString(pad + "~>" + n.Path.String())
		n.prettyResult(sb)
	case NodeAnnotation:
		sb.WriteString(pad + "# " + escapeString(n.Label))
	default:
		sb.WriteString(pad + "EMPTY")
	}
}

func (n *Node) prettyChildren(sb *strings.Builder, indent int) {
	if len(n.Children) == 0 {
		sb.WriteString(")")
		return
	}
	pad := strings.Repeat(" ", indent)
	sb.WriteString("\n")
	for i, c := range n.Children {
		c.pretty(sb, indent+2)
		if i < len(n.Children)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(pad + ")")
}

func (n *Node) prettyResult(sb *strings.Builder) {
	if n.Result != nil {
		sb.WriteString(" => " + n.Result.String())
	}
}

// StrForm renders the node tree on a single line.
func (n *Node) StrForm() string {
	var sb strings.Builder
	n.str(&sb)
	return sb.String()
}

func (n *Node) str(sb *strings.Builder) {
	switch n.Type {
	case NodeContainer:
		sb.WriteString(":" + quoteLabel(n.Label) + "(")
		n.strChildren(sb)
	case NodeAction:
		sb.WriteString("%" + n.Label + "(")
		n.strChildren(sb)
	case NodeLiteral:
		sb.WriteString(n.Value.StrForm())
		n.strResult(sb)
	case NodeResolve:
		sb.WriteString(n.Path.String())
		n.strResult(sb)
	case NodeResolveCurrent:
		sb.WriteString("~>" + n.Path.String())
		n.strResult(sb)
	case NodeAnnotation:
		sb.WriteString("# " + escapeString(n.Label))
	default:
		sb.WriteString("EMPTY")
	}
}

func (n *Node) strChildren(sb *strings.Builder) {
	for i, c := range n.Children {
		if i > 0 {
			sb.WriteString(", ")
		}
		c.str(sb)
	}
	sb.WriteString(")")
	n.strResult(sb)
}

func (n *Node) strResult(sb *strings.Builder) {
	if n.Result != nil {
		sb.WriteString(" => " + n.Result.String())
	}
}

// quoteLabel wraps labels containing whitespace in double quotes.
func quoteLabel(label string) string {
	if strings.ContainsAny(label, " \t\n") {
		return "\"" + label + "\""
	}
	return label
}

// ExecutionPlan is a whole plan tree.
type ExecutionPlan struct {
	Root *Node
}

// NewExecutionPlan wraps a root node.
func NewExecutionPlan(root *Node) *ExecutionPlan {
	return &ExecutionPlan{Root: root}
}

// PrettyForm renders the plan in indented notation, wrapped in parens.
func (p *ExecutionPlan) PrettyForm() string {
	var sb strings.Builder
	sb.WriteString("(\n")
	if p.Root != nil {
		p.Root.pretty(&sb, 2)
		sb.WriteString("\n")
	}
	sb.WriteString(")\n")
	return sb.String()
}

// StrForm renders the plan on a single line.
func (p *ExecutionPlan) StrForm() string {
	if p.Root == nil {
		return "()"
	}
	return "(" + p.Root.StrForm() + ")"
}

// Result returns the root result, OK when unexecuted.
func (p *ExecutionPlan) Result() NodeResult {
	if p == nil || p.Root == nil {
		return OKResult()
	}
	return p.Root.ResultOrOK()
}
