package timeexpr

// Ref is a static reference found in an expression.
type Ref struct {
	Kind RefKind
	ID   string
	Edge Edge
}

// Refs returns the scene, cue and sibling references of e in source order.
// Malformed references (bad arity, non-id arguments) are skipped; Eval
// reports them.
func Refs(e Expr) []Ref {
	var refs []Ref
	collectRefs(e, EdgeStart, &refs)
	return refs
}

func collectRefs(e Expr, edge Edge, refs *[]Ref) {
	switch n := e.(type) {
	case *Unary:
		collectRefs(n.X, EdgeStart, refs)
	case *Binary:
		collectRefs(n.L, EdgeStart, refs)
		collectRefs(n.R, EdgeStart, refs)
	case *Member:
		propEdge := EdgeStart
		if n.Prop == "end" {
			propEdge = EdgeEnd
		}
		if id, ok := n.Target.(*Ident); ok {
			switch id.Name {
			case "prev":
				*refs = append(*refs, Ref{Kind: RefPrev, Edge: propEdge})
			case "next":
				*refs = append(*refs, Ref{Kind: RefNext, Edge: propEdge})
			}
			return
		}
		collectRefs(n.Target, propEdge, refs)
	case *Call:
		if n.Name == "scene" || n.Name == "cue" {
			if id, err := idArg(n); err == nil {
				kind := RefScene
				if n.Name == "cue" {
					kind = RefCue
				}
				*refs = append(*refs, Ref{Kind: kind, ID: id, Edge: edge})
			}
			return
		}
		for _, a := range n.Args {
			collectRefs(a, EdgeStart, refs)
		}
	}
}
