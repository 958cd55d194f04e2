package jack

import (
	"fmt"

	"github.com/hackforge/n2t/pkg/utils"
)

// SymbolTable tracks the four Jack variable kinds (static, field, parameter and local)
// live while the Lowerer walks a class and its subroutines. Unlike a single flat table it
// keeps each kind in its own stack so that a variable's index within its kind (the value
// baked into the emitted 'vm.MemoryOp.Offset') only has to be recomputed when that one
// kind changes, and so that leaving a subroutine or class can drop exactly the right
// buckets without disturbing the others.
type SymbolTable struct {
	class      string
	subroutine string

	statics utils.Stack[Variable]
	fields  utils.Stack[Variable]
	params  utils.Stack[Variable]
	locals  utils.Stack[Variable]
}

// EnterClass starts tracking a new class: its field bucket is cleared, statics are not,
// so they persist across classes and share one index sequence for the whole program.
func (st *SymbolTable) EnterClass(class string) {
	st.class = class
	st.fields = utils.Stack[Variable]{}
}

// LeaveClass drops the field bucket and the class name once every subroutine belonging
// to it has been lowered.
func (st *SymbolTable) LeaveClass() {
	st.class = ""
	st.fields = utils.Stack[Variable]{}
}

// EnterSubroutine starts tracking a new subroutine: locals and parameters are scoped to
// a single subroutine body, so both buckets reset here.
func (st *SymbolTable) EnterSubroutine(name string) {
	st.subroutine = name
	st.locals = utils.Stack[Variable]{}
	st.params = utils.Stack[Variable]{}
}

// LeaveSubroutine drops the locals and parameters belonging to the subroutine just
// lowered, falling back to whatever class scope is still active.
func (st *SymbolTable) LeaveSubroutine() {
	st.subroutine = ""
	st.locals = utils.Stack[Variable]{}
	st.params = utils.Stack[Variable]{}
}

// Scope reports the fully qualified name of whatever is currently being lowered:
// "Class.Global" while walking its field declarations, "Class.subroutine" once inside a
// subroutine body, or "Global" before any class has been entered.
func (st *SymbolTable) Scope() string {
	switch {
	case st.subroutine != "":
		return fmt.Sprintf("%s.%s", st.class, st.subroutine)
	case st.class != "":
		return fmt.Sprintf("%s.Global", st.class)
	default:
		return "Global"
	}
}

// Declare records a newly seen variable in the bucket matching its kind. A name already
// present in that bucket is shadowed rather than rejected, mirroring how Jack itself
// allows a local to reuse a field's name.
func (st *SymbolTable) Declare(v Variable) {
	switch v.VarType {
	case Local:
		st.locals.Push(v)
	case Field:
		st.fields.Push(v)
	case Parameter:
		st.params.Push(v)
	case Static:
		st.statics.Push(v)
	}
}

// LocalCount returns how many locals have been declared in the current subroutine,
// which is exactly the operand a 'vm.FuncDecl' needs to reserve stack space for them.
func (st *SymbolTable) LocalCount() uint16 { return uint16(st.locals.Count()) }

// Lookup resolves a name to its kind and its index within that kind's bucket, searching
// the narrowest scope first (locals, then parameters, then fields, then statics) so that
// shadowing falls out of search order rather than needing explicit bookkeeping.
func (st *SymbolTable) Lookup(name string) (uint16, Variable, error) {
	buckets := [...]utils.Stack[Variable]{st.locals, st.params, st.fields, st.statics}
	for _, bucket := range buckets {
		for idx, entry := range bucket.Iterator() {
			if entry.Name == name {
				return uint16(idx), entry, nil
			}
		}
	}
	return 0, Variable{}, fmt.Errorf("variable %q undeclared, not found in any scope", name)
}
