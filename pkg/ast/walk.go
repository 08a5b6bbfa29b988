package ast

// Inspect traverses the tree rooted at n in depth-first order, calling f
// for each node before its children. If f returns false the children of
// that node are skipped. Nil children are not visited.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch x := n.(type) {
	case *Call:
		for _, a := range x.Args {
			Inspect(a, f)
		}
	case *Unary:
		Inspect(x.Expr, f)
	case *Binary:
		Inspect(x.Left, f)
		Inspect(x.Right, f)
	case *Logical:
		Inspect(x.Left, f)
		Inspect(x.Right, f)
	case *Promote:
		Inspect(x.Expr, f)
	case *Index:
		Inspect(x.Base, f)
		Inspect(x.Index, f)
	case *Block:
		for _, s := range x.Stmts {
			Inspect(s, f)
		}
	case *Assignment:
		Inspect(x.Left, f)
		Inspect(x.Right, f)
	case *ExprStmt:
		Inspect(x.Expr, f)
	case *If:
		Inspect(x.Cond, f)
		Inspect(x.Then, f)
		if x.Else != nil {
			Inspect(x.Else, f)
		}
	case *While:
		Inspect(x.Cond, f)
		Inspect(x.Body, f)
	case *For:
		Inspect(x.Init, f)
		Inspect(x.Cond, f)
		Inspect(x.Incr, f)
		Inspect(x.Body, f)
	case *Return:
		Inspect(x.Expr, f)
	case *Function:
		Inspect(x.Body, f)
	}
}
