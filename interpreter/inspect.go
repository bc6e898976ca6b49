package interpreter

import "slices"

// GlobalsSnapshot copies the REPL namespace. With autoimport active this
// includes everything it has imported so far.
func (i *Interpreter) GlobalsSnapshot() map[string]Value {
	return i.base.ns.Snapshot()
}

// FuncNames returns the sorted names of user functions in the REPL namespace.
func (i *Interpreter) FuncNames() []string {
	var names []string
	for name, v := range i.base.ns.Snapshot() {
		if v.Kind == ValFunc {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// ModulesSnapshot groups module names, and the paths of included files, by
// load state.
func (i *Interpreter) ModulesSnapshot() (loading []string, loaded []string) {
	byState := map[moduleState][]string{}
	for _, states := range []map[string]moduleState{i.moduleState, i.included} {
		for name, st := range states {
			byState[st] = append(byState[st], name)
		}
	}
	loading, loaded = byState[modLoading], byState[modLoaded]
	slices.Sort(loading)
	slices.Sort(loaded)
	return loading, loaded
}

