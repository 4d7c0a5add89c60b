package timeexpr

import (
	"math"
)

// Eval evaluates e against ctx and returns a time in seconds.
func Eval(e Expr, ctx Context) (float64, error) {
	switch n := e.(type) {
	case *Number:
		return evalNumber(n, ctx)
	case *Unary:
		x, err := Eval(n.X, ctx)
		if err != nil {
			return 0, err
		}
		if n.Op == '-' {
			return -x, nil
		}
		return x, nil
	case *Binary:
		return evalBinary(n, ctx)
	case *Call:
		return evalCall(n, EdgeStart, ctx)
	case *Member:
		return evalMember(n, ctx)
	case *Ident:
		switch n.Name {
		case "prev", "next", "timeline":
			return 0, evalErrorf(n, "%s requires a property such as %s.start", n.Name, n.Name)
		}
		return 0, evalErrorf(n, "unknown identifier %q", n.Name)
	case *Str:
		return 0, evalErrorf(n, "string is only valid as an id argument")
	}
	return 0, &EvalError{Expr: "?", Msg: "unsupported expression node"}
}

func evalNumber(n *Number, ctx Context) (float64, error) {
	switch n.Unit {
	case UnitFrames:
		fps := ctx.FPS()
		if fps <= 0 {
			return 0, evalErrorf(n, "frame unit needs a positive frame rate, got %g", fps)
		}
		return n.Value / fps, nil
	case UnitMillis:
		return n.Value / 1000, nil
	default:
		return n.Value, nil
	}
}

func evalBinary(n *Binary, ctx Context) (float64, error) {
	l, err := Eval(n.L, ctx)
	if err != nil {
		return 0, err
	}
	r, err := Eval(n.R, ctx)
	if err != nil {
		return 0, err
	}
	switch n.Op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if r == 0 {
			return 0, evalErrorf(n, "division by zero")
		}
		return l / r, nil
	}
	return 0, evalErrorf(n, "unknown operator %q", n.Op)
}

func evalMember(n *Member, ctx Context) (float64, error) {
	var edge Edge
	switch n.Prop {
	case "start":
		edge = EdgeStart
	case "end":
		edge = EdgeEnd
	default:
		return 0, evalErrorf(n, "unknown property %q", n.Prop)
	}

	switch target := n.Target.(type) {
	case *Ident:
		switch target.Name {
		case "timeline":
			if edge != EdgeStart {
				return 0, evalErrorf(n, "timeline only supports .start")
			}
			return 0, nil
		case "prev", "next":
			dir := RefPrev
			if target.Name == "next" {
				dir = RefNext
			}
			v, ok := ctx.Sibling(dir, edge)
			if !ok {
				return 0, &UnresolvedError{Kind: dir, Edge: edge}
			}
			return v, nil
		}
		return 0, evalErrorf(n, "unknown identifier %q", target.Name)
	case *Call:
		if target.Name != "scene" && target.Name != "cue" {
			return 0, evalErrorf(n, "property access is only supported on scene() and cue()")
		}
		return evalCall(target, edge, ctx)
	}
	return 0, evalErrorf(n, "property access on unsupported expression")
}

func evalCall(n *Call, edge Edge, ctx Context) (float64, error) {
	switch n.Name {
	case "scene", "cue":
		id, err := idArg(n)
		if err != nil {
			return 0, err
		}
		if n.Name == "scene" {
			v, ok := ctx.Scene(id, edge)
			if !ok {
				return 0, &UnresolvedError{Kind: RefScene, ID: id, Edge: edge}
			}
			return v, nil
		}
		v, ok := ctx.Cue(id, edge)
		if !ok {
			return 0, &UnresolvedError{Kind: RefCue, ID: id, Edge: edge}
		}
		return v, nil
	}

	args := make([]float64, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, ctx)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}

	switch n.Name {
	case "min", "max":
		if len(args) < 2 {
			return 0, evalErrorf(n, "%s requires at least 2 arguments, got %d", n.Name, len(args))
		}
		out := args[0]
		for _, v := range args[1:] {
			if n.Name == "min" {
				out = math.Min(out, v)
			} else {
				out = math.Max(out, v)
			}
		}
		return out, nil
	case "clamp":
		if len(args) != 3 {
			return 0, evalErrorf(n, "clamp requires 3 arguments, got %d", len(args))
		}
		return math.Min(math.Max(args[0], args[1]), args[2]), nil
	case "snap":
		if len(args) != 2 {
			return 0, evalErrorf(n, "snap requires 2 arguments, got %d", len(args))
		}
		if args[1] == 0 {
			return args[0], nil
		}
		return math.Round(args[0]/args[1]) * args[1], nil
	}
	return 0, evalErrorf(n, "unknown function %q", n.Name)
}

// idArg extracts the single id argument of scene() or cue().
func idArg(n *Call) (string, error) {
	if len(n.Args) != 1 {
		return "", evalErrorf(n, "%s requires exactly 1 argument, got %d", n.Name, len(n.Args))
	}
	switch a := n.Args[0].(type) {
	case *Ident:
		return a.Name, nil
	case *Str:
		return a.Value, nil
	}
	return "", evalErrorf(n, "%s expects an id, got %s", n.Name, n.Args[0])
}
