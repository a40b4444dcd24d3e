package plan

// ExecutePlan walks a plan against the resolver, returning a new annotated
// plan. The input plan is never mutated and can be executed again.
func ExecutePlan(p *ExecutionPlan, resolver ValueResolver, ctx *MatchingContext) *ExecutionPlan {
	if p == nil || p.Root == nil {
		return &ExecutionPlan{}
	}
	return &ExecutionPlan{Root: executeNode(p.Root, resolver, ctx)}
}

// executeNode walks one node, producing an executed copy. Resolution
// misses surface as NULL values and every failure is a node result, so a
// walk always completes.
func executeNode(n *Node, resolver ValueResolver, ctx *MatchingContext) *Node {
	switch n.Type {
	case NodeContainer:
		out := Container(n.Label)
		depth := ctx.StackDepth()
		result := OKResult()
		for _, c := range n.Children {
			executed := executeNode(c, resolver, ctx)
			out.Add(executed)
			if c.Type != NodeAnnotation {
				result = result.Or(executed.ResultOrOK())
			}
		}
		ctx.TruncateStack(depth)
		out.Result = &result
		return out
	case NodeAction:
		return executeAction(n, resolver, ctx)
	case NodeLiteral:
		out := Value(n.Value)
		setResult(out, ValueResult(n.Value))
		return out
	case NodeResolve:
		out := Resolve(n.Path)
		setResult(out, ValueResult(resolver.Resolve(n.Path, ctx)))
		return out
	case NodeResolveCurrent:
		out := ResolveCurrent(n.Path)
		setResult(out, ValueResult(CurrentStackResolver{}.Resolve(n.Path, ctx)))
		return out
	case NodeAnnotation:
		return Annotation(n.Label)
	default:
		return &Node{Type: NodeEmpty}
	}
}

func setResult(n *Node, r NodeResult) *Node {
	n.Result = &r
	return n
}
