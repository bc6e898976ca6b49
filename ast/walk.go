package ast

// Inspect walks stmts depth-first, descending into nested blocks.
// If fn returns false the children of that statement are skipped.
func Inspect(stmts []Stmt, fn func(Stmt) bool) {
	for _, s := range stmts {
		if s == nil || !fn(s) {
			continue
		}
		switch st := s.(type) {
		case *IfStmt:
			Inspect(st.Then, fn)
			Inspect(st.Else, fn)
		case *WhileStmt:
			Inspect(st.Body, fn)
		case *ForStmt:
			Inspect(st.Body, fn)
		case *ForEachStmt:
			Inspect(st.Body, fn)
		case *FunctionDecl:
			Inspect(st.Body, fn)
		}
	}
}
