package jack

import "fmt"

// TypeChecker performs a semantic validation pass over a 'jack.Program' prior
// to lowering: undeclared variable references, duplicate parameter/local
// declarations, return-type/flavor mismatches and calls to subroutines that
// do not exist. It mirrors the same scope-tracking walk as 'Lowerer' (§4.C.3)
// but never emits VM operations, only errors.
type TypeChecker struct {
	program Program
	scopes  SymbolTable // Keeps track of the scopes and declared variables inside each one

	class string // name of the class currently being checked, for diagnostics

	declared map[string]bool // names declared (param or local) in the subroutine currently being checked
}

func NewTypeChecker(program Program) TypeChecker {
	return TypeChecker{program: program}
}

func (tc *TypeChecker) Check() (bool, error) {
	if tc.program == nil {
		return false, fmt.Errorf("the given 'program' is empty or nil")
	}

	for name, class := range tc.program {
		if _, err := tc.HandleClass(class); err != nil {
			return false, fmt.Errorf("error checking class '%s': %w", name, err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.Class' and nested fields.
func (tc *TypeChecker) HandleClass(class Class) (bool, error) {
	tc.scopes.EnterClass(class.Name)
	defer tc.scopes.LeaveClass()

	tc.class = class.Name

	for _, field := range class.Fields.Entries() {
		tc.scopes.Declare(field)
	}

	for _, subroutine := range class.Subroutines.Entries() {
		if _, err := tc.HandleSubroutine(subroutine); err != nil {
			return false, fmt.Errorf("error checking subroutine '%s' in class '%s': %w", subroutine.Name, class.Name, err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.Subroutine' and nested fields.
func (tc *TypeChecker) HandleSubroutine(subroutine Subroutine) (bool, error) {
	tc.scopes.EnterSubroutine(subroutine.Name)
	defer tc.scopes.LeaveSubroutine()

	tc.declared = map[string]bool{}

	if subroutine.Type == Method {
		tc.scopes.Declare(Variable{Name: "__obj", VarType: Parameter, DataType: DataType{Main: Object, Subtype: tc.class}})
	}

	if subroutine.Type == Constructor && !(subroutine.Return.Main == Object && subroutine.Return.Subtype == tc.class) {
		return false, fmt.Errorf("constructor '%s' must return an instance of '%s', declares '%s' instead",
			subroutine.Name, tc.class, dataTypeName(subroutine.Return))
	}

	for _, arg := range subroutine.Arguments {
		if tc.declared[arg.Name] {
			return false, fmt.Errorf("duplicate parameter '%s' in subroutine '%s'", arg.Name, subroutine.Name)
		}
		tc.declared[arg.Name] = true
		tc.scopes.Declare(arg)
	}

	hasReturnExpr := false
	for _, stmt := range subroutine.Statements {
		if ret, isReturn := stmt.(ReturnStmt); isReturn && ret.Expr != nil {
			hasReturnExpr = true
		}
		if _, err := tc.HandleStatement(stmt); err != nil {
			return false, fmt.Errorf("error checking statement %T in subroutine '%s': %w", stmt, subroutine.Name, err)
		}
	}

	if subroutine.Return.Main == Void && hasReturnExpr {
		return false, fmt.Errorf("subroutine '%s' is declared 'void' but returns a value", subroutine.Name)
	}
	if subroutine.Return.Main != Void && !hasReturnExpr {
		return false, fmt.Errorf("subroutine '%s' declares return type '%s' but has no 'return' with a value",
			subroutine.Name, dataTypeName(subroutine.Return))
	}

	return true, nil
}

// Generalized function to type-check multiple statements types.
func (tc *TypeChecker) HandleStatement(stmt Statement) (bool, error) {
	switch tStmt := stmt.(type) {
	case DoStmt:
		return tc.HandleFuncCallExpr(tStmt.FuncCall)

	case VarStmt:
		for _, v := range tStmt.Vars {
			if tc.declared[v.Name] {
				return false, fmt.Errorf("duplicate local variable '%s'", v.Name)
			}
			tc.declared[v.Name] = true
			tc.scopes.Declare(v)
		}
		return true, nil

	case LetStmt:
		switch lhs := tStmt.Lhs.(type) {
		case VarExpr:
			if _, err := tc.HandleVarExpr(lhs); err != nil {
				return false, err
			}
		case ArrayExpr:
			if _, _, err := tc.scopes.Lookup(lhs.Var); err != nil {
				return false, fmt.Errorf("error resolving array variable in 'let': %w", err)
			}
			if _, err := tc.HandleExpression(lhs.Index); err != nil {
				return false, err
			}
		default:
			return false, fmt.Errorf("left-hand side of 'let' must be a variable or array access, found %T", lhs)
		}
		return tc.HandleExpression(tStmt.Rhs)

	case ReturnStmt:
		if tStmt.Expr != nil {
			return tc.HandleExpression(tStmt.Expr)
		}
		return true, nil

	case IfStmt:
		if _, err := tc.HandleExpression(tStmt.Condition); err != nil {
			return false, fmt.Errorf("error checking 'if' condition: %w", err)
		}
		for _, s := range tStmt.ThenBlock {
			if _, err := tc.HandleStatement(s); err != nil {
				return false, err
			}
		}
		for _, s := range tStmt.ElseBlock {
			if _, err := tc.HandleStatement(s); err != nil {
				return false, err
			}
		}
		return true, nil

	case WhileStmt:
		if _, err := tc.HandleExpression(tStmt.Condition); err != nil {
			return false, fmt.Errorf("error checking 'while' condition: %w", err)
		}
		for _, s := range tStmt.Block {
			if _, err := tc.HandleStatement(s); err != nil {
				return false, err
			}
		}
		return true, nil

	default:
		return false, fmt.Errorf("unrecognized statement: %T", stmt)
	}
}

// Generalized function to type-check multiple expression types.
func (tc *TypeChecker) HandleExpression(expr Expression) (bool, error) {
	switch tExpr := expr.(type) {
	case VarExpr:
		return tc.HandleVarExpr(tExpr)

	case LiteralExpr:
		return true, nil

	case ArrayExpr:
		if _, _, err := tc.scopes.Lookup(tExpr.Var); err != nil {
			return false, fmt.Errorf("error resolving array variable '%s': %w", tExpr.Var, err)
		}
		return tc.HandleExpression(tExpr.Index)

	case UnaryExpr:
		return tc.HandleExpression(tExpr.Rhs)

	case BinaryExpr:
		if _, err := tc.HandleExpression(tExpr.Lhs); err != nil {
			return false, err
		}
		return tc.HandleExpression(tExpr.Rhs)

	case FuncCallExpr:
		return tc.HandleFuncCallExpr(tExpr)

	default:
		return false, fmt.Errorf("unrecognized expression: %T", expr)
	}
}

// Specialized function to type-check a 'jack.VarExpr'.
func (tc *TypeChecker) HandleVarExpr(expr VarExpr) (bool, error) {
	if expr.Var == "this" {
		return true, nil
	}
	if _, _, err := tc.scopes.Lookup(expr.Var); err != nil {
		return false, fmt.Errorf("error resolving variable '%s': %w", expr.Var, err)
	}
	return true, nil
}

// Specialized function to type-check a 'jack.FuncCallExpr', validating that the
// target subroutine actually exists and that its flavor (method vs function vs
// constructor) matches the shape of the call, per §7.4's "wrong subroutine
// flavor" semantic error class.
func (tc *TypeChecker) HandleFuncCallExpr(expr FuncCallExpr) (bool, error) {
	for _, arg := range expr.Arguments {
		if _, err := tc.HandleExpression(arg); err != nil {
			return false, fmt.Errorf("error checking call argument: %w", err)
		}
	}

	if !expr.IsExtCall {
		class, exists := tc.program[tc.class]
		if !exists {
			return false, fmt.Errorf("class definition not found for '%s'", tc.class)
		}
		if _, exists := class.Subroutines.Get(expr.FuncName); !exists {
			return false, fmt.Errorf("subroutine '%s' not found in class '%s'", expr.FuncName, tc.class)
		}
		return true, nil
	}

	if _, variable, err := tc.scopes.Lookup(expr.Var); err == nil {
		if variable.DataType.Main != Object {
			return false, fmt.Errorf("variable '%s' is not an object, cannot call method '%s' on it", expr.Var, expr.FuncName)
		}

		class, exists := tc.program[variable.DataType.Subtype]
		if !exists {
			return false, fmt.Errorf("class definition not found for '%s'", variable.DataType.Subtype)
		}
		routine, exists := class.Subroutines.Get(expr.FuncName)
		if !exists {
			return false, fmt.Errorf("method '%s' not found in class '%s'", expr.FuncName, variable.DataType.Subtype)
		}
		if routine.Type != Method {
			return false, fmt.Errorf("'%s.%s' is not a method, cannot be called on an instance", variable.DataType.Subtype, expr.FuncName)
		}
		return true, nil
	}

	class, exists := tc.program[expr.Var]
	if !exists {
		return false, fmt.Errorf("undeclared identifier '%s', neither a variable nor a known class", expr.Var)
	}
	routine, exists := class.Subroutines.Get(expr.FuncName)
	if !exists {
		return false, fmt.Errorf("subroutine '%s' not found in class '%s'", expr.FuncName, expr.Var)
	}
	if routine.Type == Method {
		return false, fmt.Errorf("'%s.%s' is a method, cannot be called without an instance", expr.Var, expr.FuncName)
	}

	return true, nil
}
