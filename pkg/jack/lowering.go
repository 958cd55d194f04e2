package jack

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hackforge/n2t/pkg/utils"
	"github.com/hackforge/n2t/pkg/vm"
)

// ----------------------------------------------------------------------------
// Jack Lowerer

// Lowerer walks a jack.Program and produces the vm.Program it compiles down to. The
// Jack grammar is already tree-shaped once tokenized and parsed, so lowering is just a
// depth-first walk: every node type gets its own Handle* method that returns the
// vm.Operation slice standing in for it, plus an error if the node references something
// that was never declared or is otherwise ill-formed.
type Lowerer struct {
	program utils.OrderedMap[string, Class] // classes to lower, indexed by name, must not be empty
	scopes  SymbolTable                     // static/field/parameter/local bookkeeping for the walk in progress

	labelSeq uint // next unused suffix for generated while/if labels
}

// NewLowerer prepares a Lowerer for the given Program.
//
// Program is a plain map, and Go map iteration order is randomized on purpose. Left
// alone that randomness would leak into the output: labelSeq is shared across classes,
// so two runs over the same input could hand WHILE_START_0 to different loops depending
// on which class happened to be visited first. Sorting classes by name up front makes
// the walk - and therefore every generated label - reproducible.
func NewLowerer(p Program) Lowerer {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	ordered := utils.OrderedMap[string, Class]{}
	for _, name := range names {
		ordered.Set(name, p[name])
	}

	return Lowerer{program: ordered}
}

// Lowerer runs the lowering pass over every class and returns the resulting vm.Program.
func (l *Lowerer) Lowerer() (vm.Program, error) {
	if l.program.Size() == 0 {
		return nil, fmt.Errorf("the given 'program' is empty or nil")
	}

	out := vm.Program{}
	for _, class := range l.program.Entries() {
		ops, err := l.HandleClass(class)
		if err != nil {
			return nil, fmt.Errorf("error handling lowering of class '%s': %w", class.Name, err)
		}
		out[class.Name] = vm.Module(ops)
	}
	return out, nil
}

// currentClass extracts the class name out of whatever scope string is presently
// active. It only makes sense to call while a class scope is entered.
func (l *Lowerer) currentClass() string {
	return strings.Split(l.scopes.Scope(), ".")[0]
}

// classFieldCount looks up a class by name and counts its instance fields, which is the
// amount of memory (one word each) a constructor must request from Memory.alloc.
func (l *Lowerer) classFieldCount(class string) (uint16, error) {
	def, exists := l.program.Get(class)
	if !exists {
		return 0, fmt.Errorf("class '%s' not found", class)
	}

	var n uint16
	for _, field := range def.Fields.Entries() {
		if field.VarType == Field {
			n++
		}
	}
	return n, nil
}

// HandleClass lowers one class: first its field declarations (which only affect scope
// bookkeeping, they emit no code of their own) and then each of its subroutines.
func (l *Lowerer) HandleClass(class Class) ([]vm.Operation, error) {
	l.scopes.EnterClass(class.Name)
	defer l.scopes.LeaveClass()

	ops := []vm.Operation{}
	for _, field := range class.Fields.Entries() {
		fieldOps, err := l.HandleVarStmt(VarStmt{Vars: []Variable{field}})
		if err != nil {
			return nil, fmt.Errorf("error handling field '%s' in class '%s': %w", field.Name, class.Name, err)
		}
		ops = append(ops, fieldOps...)
	}

	for _, subroutine := range class.Subroutines.Entries() {
		subOps, err := l.HandleSubroutine(subroutine)
		if err != nil {
			return nil, fmt.Errorf("error handling subroutine '%s' in class '%s': %w", subroutine.Name, class.Name, err)
		}
		ops = append(ops, subOps...)
	}
	return ops, nil
}

// constructorPrelude requests enough memory for nFields words via Memory.alloc and
// points the 'this' register at it, per the convention that a Jack constructor - unlike
// say a C++ one - is responsible for allocating its own instance storage.
func constructorPrelude(nFields uint16) []vm.Operation {
	return []vm.Operation{
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: nFields},
		vm.FuncCallOp{Name: "Memory.alloc", NArgs: 1},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0},
	}
}

// methodPrelude points the 'this' register at the instance pointer every method
// implicitly receives as its first argument.
func methodPrelude() []vm.Operation {
	return []vm.Operation{
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 0},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0},
	}
}

// HandleSubroutine lowers a function, constructor or method to its vm.FuncDecl plus
// body, prefixed with whatever prelude its kind requires.
func (l *Lowerer) HandleSubroutine(subroutine Subroutine) ([]vm.Operation, error) {
	l.scopes.EnterSubroutine(subroutine.Name)
	defer l.scopes.LeaveSubroutine()

	// Methods receive the instance pointer as an implicit first argument so that fields
	// can be read and written; it's declared here (with a placeholder name since nothing
	// ever looks it up by name) purely to keep later argument offsets correct.
	if subroutine.Type == Method {
		l.scopes.Declare(Variable{Name: "__obj", VarType: Parameter, DataType: DataType{Main: Object}})
	}
	for _, arg := range subroutine.Arguments {
		l.scopes.Declare(arg)
	}

	name := l.scopes.Scope()
	body := []vm.Operation{}
	for _, stmt := range subroutine.Statements {
		ops, err := l.HandleStatement(stmt)
		if err != nil {
			return nil, fmt.Errorf("error handling nested statement %T': %w", stmt, err)
		}
		body = append(body, ops...)
	}

	decl := vm.FuncDecl{Name: name, NLocal: uint8(l.scopes.LocalCount())}

	switch subroutine.Type {
	case Constructor:
		nFields, err := l.classFieldCount(l.currentClass())
		if err != nil {
			return nil, err
		}
		out := append([]vm.Operation{decl}, constructorPrelude(nFields)...)
		return append(out, body...), nil

	case Method:
		out := append([]vm.Operation{decl}, methodPrelude()...)
		return append(out, body...), nil

	default:
		return append([]vm.Operation{decl}, body...), nil
	}
}

// HandleStatement dispatches to the Handle*Stmt method matching the statement's
// concrete type.
func (l *Lowerer) HandleStatement(stmt Statement) ([]vm.Operation, error) {
	switch tStmt := stmt.(type) {
	case DoStmt:
		return l.HandleDoStmt(tStmt)
	case VarStmt:
		return l.HandleVarStmt(tStmt)
	case LetStmt:
		return l.HandleLetStmt(tStmt)
	case IfStmt:
		return l.HandleIfStmt(tStmt)
	case WhileStmt:
		return l.HandleWhileStmt(tStmt)
	case ReturnStmt:
		return l.HandleReturnStmt(tStmt)
	default:
		return nil, fmt.Errorf("unrecognized statement: %T", stmt)
	}
}

// HandleDoStmt lowers a call made purely for effect, discarding whatever it returns.
func (l *Lowerer) HandleDoStmt(statement DoStmt) ([]vm.Operation, error) {
	ops, err := l.HandleFuncCallExpr(statement.FuncCall)
	if err != nil {
		return nil, fmt.Errorf("error handling nested function call expression: %w", err)
	}
	return append(ops, vm.MemoryOp{Operation: vm.Pop, Segment: vm.Temp, Offset: 0}), nil
}

// HandleVarStmt registers a declaration with the symbol table. It never emits code:
// Jack locals have no initializer syntax, so there's nothing to run yet.
func (l *Lowerer) HandleVarStmt(statement VarStmt) ([]vm.Operation, error) {
	for _, variable := range statement.Vars {
		l.scopes.Declare(variable)
	}
	return []vm.Operation{}, nil
}

// segmentFor maps a declared variable's kind to the vm memory segment backing it.
func segmentFor(kind VarType) (vm.SegmentType, error) {
	switch kind {
	case Local:
		return vm.Local, nil
	case Parameter:
		return vm.Argument, nil
	case Field:
		return vm.This, nil
	case Static:
		return vm.Static, nil
	default:
		return "", fmt.Errorf("variable type '%s' is not supported yet", kind)
	}
}

// HandleLetStmt lowers an assignment. A plain variable target is a single pop into its
// backing segment; an array element target additionally needs to compute the target
// address before the RHS is evaluated, then thread the value through the temp segment
// since THAT (already used by HandleArrayExpr-style addressing) can't be repointed
// until after the RHS has finished evaluating.
func (l *Lowerer) HandleLetStmt(statement LetStmt) ([]vm.Operation, error) {
	rhsOps, err := l.HandleExpression(statement.Rhs)
	if err != nil {
		return nil, fmt.Errorf("error handling RHS expression: %w", err)
	}

	if expr, ok := statement.Lhs.(VarExpr); ok {
		offset, variable, err := l.scopes.Lookup(expr.Var)
		if err != nil {
			return nil, fmt.Errorf("error resolving variable '%s' in array expression: %w", expr.Var, err)
		}
		segment, err := segmentFor(variable.VarType)
		if err != nil {
			return nil, err
		}
		return append(rhsOps, vm.MemoryOp{Operation: vm.Pop, Segment: segment, Offset: offset}), nil
	}

	expr, ok := statement.Lhs.(ArrayExpr)
	if !ok {
		return nil, fmt.Errorf("LHS expression must be either a 'VarExpr' or an 'ArrayExpr', got: %T", statement.Lhs)
	}

	baseOps, err := l.HandleVarExpr(VarExpr{Var: expr.Var})
	if err != nil {
		return nil, fmt.Errorf("error handling base variable expression: %w", err)
	}
	indexOps, err := l.HandleExpression(expr.Index)
	if err != nil {
		return nil, fmt.Errorf("error handling index expression: %w", err)
	}

	ops := append(indexOps, baseOps...)
	ops = append(ops, vm.ArithmeticOp{Operation: vm.Add})
	ops = append(ops, rhsOps...)
	ops = append(ops,
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Temp, Offset: 0},    // stash the RHS value
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 1}, // THAT now points at the target element
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Temp, Offset: 0},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.That, Offset: 0},
	)
	return ops, nil
}

// nextLabelPair hands out two consecutive, never-repeated integers for a control flow
// construct's labels and advances the generator's counter.
func (l *Lowerer) nextLabelPair() (uint, uint) {
	a, b := l.labelSeq, l.labelSeq+1
	l.labelSeq += 2
	return a, b
}

// HandleWhileStmt lowers a while loop to a conditional backward branch: evaluate the
// condition, skip the body when it's false, otherwise run the body and jump back up.
func (l *Lowerer) HandleWhileStmt(statement WhileStmt) ([]vm.Operation, error) {
	condOps, err := l.HandleExpression(statement.Condition)
	if err != nil {
		return nil, fmt.Errorf("error handling while condition expression: %w", err)
	}

	blockOps, err := l.handleBlock(statement.Block)
	if err != nil {
		return nil, fmt.Errorf("error handling statement in while block: %w", err)
	}

	start, end := l.nextLabelPair()

	ops := []vm.Operation{vm.LabelDecl{Name: fmt.Sprintf("WHILE_START_%d", start)}}
	ops = append(ops, condOps...)
	ops = append(ops,
		vm.ArithmeticOp{Operation: vm.Not},
		vm.GotoOp{Label: fmt.Sprintf("WHILE_END_%d", end), Jump: vm.Conditional},
	)
	ops = append(ops, blockOps...)
	ops = append(ops,
		vm.GotoOp{Label: fmt.Sprintf("WHILE_START_%d", start), Jump: vm.Unconditional},
		vm.LabelDecl{Name: fmt.Sprintf("WHILE_END_%d", end)},
	)
	return ops, nil
}

// HandleIfStmt lowers a conditional. With no else branch a single forward jump skips
// the 'then' body; with one, the condition first picks between two forward jumps so the
// 'else' body is reachable at all (there's no unconditional fallthrough to rely on once
// labels are involved).
func (l *Lowerer) HandleIfStmt(statement IfStmt) ([]vm.Operation, error) {
	condOps, err := l.HandleExpression(statement.Condition)
	if err != nil {
		return nil, fmt.Errorf("error handling if condition expression: %w", err)
	}

	thenOps, err := l.handleBlock(statement.ThenBlock)
	if err != nil {
		return nil, fmt.Errorf("error handling statement in 'then' block: %w", err)
	}
	elseOps, err := l.handleBlock(statement.ElseBlock)
	if err != nil {
		return nil, fmt.Errorf("error handling statement in 'else' block: %w", err)
	}

	if len(elseOps) == 0 {
		end := l.labelSeq
		l.labelSeq++

		ops := append(condOps,
			vm.ArithmeticOp{Operation: vm.Not},
			vm.GotoOp{Label: fmt.Sprintf("ELSE_%d", end), Jump: vm.Conditional},
		)
		ops = append(ops, thenOps...)
		ops = append(ops, vm.LabelDecl{Name: fmt.Sprintf("ELSE_%d", end)})
		return ops, nil
	}

	then, els, end := l.labelSeq, l.labelSeq+1, l.labelSeq+2
	l.labelSeq += 3

	ops := append(condOps,
		vm.GotoOp{Label: fmt.Sprintf("THEN_%d", then), Jump: vm.Conditional},
		vm.GotoOp{Label: fmt.Sprintf("ELSE_%d", els), Jump: vm.Unconditional},
		vm.LabelDecl{Name: fmt.Sprintf("THEN_%d", then)},
	)
	ops = append(ops, thenOps...)
	ops = append(ops,
		vm.GotoOp{Label: fmt.Sprintf("END_%d", end), Jump: vm.Unconditional},
		vm.LabelDecl{Name: fmt.Sprintf("ELSE_%d", els)},
	)
	ops = append(ops, elseOps...)
	ops = append(ops, vm.LabelDecl{Name: fmt.Sprintf("END_%d", end)})
	return ops, nil
}

func (l *Lowerer) handleBlock(block []Statement) ([]vm.Operation, error) {
	ops := []vm.Operation{}
	for _, stmt := range block {
		stmtOps, err := l.HandleStatement(stmt)
		if err != nil {
			return nil, err
		}
		ops = append(ops, stmtOps...)
	}
	return ops, nil
}

// HandleReturnStmt lowers a return. Jack requires every subroutine to return something
// even when the caller ignores it (Jack has no 'void' value), so a bare 'return' still
// pushes a throwaway zero.
func (l *Lowerer) HandleReturnStmt(statement ReturnStmt) ([]vm.Operation, error) {
	if statement.Expr == nil {
		return []vm.Operation{
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0},
			vm.ReturnOp{},
		}, nil
	}

	ops, err := l.HandleExpression(statement.Expr)
	if err != nil {
		return nil, fmt.Errorf("error handling return expression: %w", err)
	}
	return append(ops, vm.ReturnOp{}), nil
}

// HandleExpression dispatches to the Handle*Expr method matching the expression's
// concrete type.
func (l *Lowerer) HandleExpression(expr Expression) ([]vm.Operation, error) {
	switch tExpr := expr.(type) {
	case VarExpr:
		return l.HandleVarExpr(tExpr)
	case LiteralExpr:
		return l.HandleLiteralExpr(tExpr)
	case ArrayExpr:
		return l.HandleArrayExpr(tExpr)
	case UnaryExpr:
		return l.HandleUnaryExpr(tExpr)
	case BinaryExpr:
		return l.HandleBinaryExpr(tExpr)
	case FuncCallExpr:
		return l.HandleFuncCallExpr(tExpr)
	default:
		return nil, fmt.Errorf("unrecognized expression: %T", expr)
	}
}

// HandleVarExpr lowers a bare variable reference, or the 'this' keyword, to a single
// push from its backing segment.
func (l *Lowerer) HandleVarExpr(expression VarExpr) ([]vm.Operation, error) {
	if expression.Var == "this" {
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 0}}, nil
	}

	offset, variable, err := l.scopes.Lookup(expression.Var)
	if err != nil {
		return nil, fmt.Errorf("error resolving variable '%s' in array expression: %w", expression.Var, err)
	}
	segment, err := segmentFor(variable.VarType)
	if err != nil {
		return nil, err
	}
	return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: segment, Offset: offset}}, nil
}

// HandleLiteralExpr lowers a constant of any Jack primitive type, materializing strings
// character by character through the stdlib String ABI since the VM has no string
// literal of its own.
func (l *Lowerer) HandleLiteralExpr(expression LiteralExpr) ([]vm.Operation, error) {
	switch expression.Type.Main {
	case Int:
		value, err := strconv.ParseUint(expression.Value, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("error parsing integer literal '%s': %w", expression.Value, err)
		}
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(value)}}, nil

	case Bool:
		value, err := strconv.ParseBool(expression.Value)
		if err != nil {
			return nil, fmt.Errorf("error parsing integer literal '%s': %w", expression.Value, err)
		}
		offset := uint16(0)
		if value {
			offset = 1
		}
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: offset}}, nil

	case Char:
		if len(expression.Value) != 1 {
			return nil, fmt.Errorf("error parsing char literal '%s'", expression.Value)
		}
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(expression.Value[0])}}, nil

	case Object:
		if expression.Value != "null" {
			return nil, fmt.Errorf("object literal are not supported '%s'", expression.Value)
		}
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0}}, nil

	case String:
		ops := []vm.Operation{
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(len(expression.Value))},
			vm.FuncCallOp{Name: "String.new", NArgs: 1},
		}
		for _, char := range expression.Value {
			ops = append(ops,
				vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(char)},
				vm.FuncCallOp{Name: "String.appendChar", NArgs: 2},
			)
		}
		return ops, nil

	default:
		return nil, fmt.Errorf("unrecognized literal expression type: %s", expression.Type)
	}
}

// HandleArrayExpr lowers an array read: compute the element address, repoint THAT at
// it, then push through THAT.
func (l *Lowerer) HandleArrayExpr(expression ArrayExpr) ([]vm.Operation, error) {
	baseOps, err := l.HandleVarExpr(VarExpr{Var: expression.Var})
	if err != nil {
		return nil, fmt.Errorf("error handling base variable expression: %w", err)
	}
	indexOps, err := l.HandleExpression(expression.Index)
	if err != nil {
		return nil, fmt.Errorf("error handling index expression: %w", err)
	}

	ops := append(indexOps, baseOps...)
	ops = append(ops,
		vm.ArithmeticOp{Operation: vm.Add},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 1},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.That, Offset: 0},
	)
	return ops, nil
}

// HandleUnaryExpr lowers a prefix '-' or '~' to its operand followed by the matching
// single-operand vm.ArithmeticOp.
func (l *Lowerer) HandleUnaryExpr(expression UnaryExpr) ([]vm.Operation, error) {
	ops, err := l.HandleExpression(expression.Rhs)
	if err != nil {
		return nil, fmt.Errorf("error handling nested expression: %w", err)
	}

	switch expression.Type {
	case Negation:
		return append(ops, vm.ArithmeticOp{Operation: vm.Neg}), nil
	case BoolNot:
		return append(ops, vm.ArithmeticOp{Operation: vm.Not}), nil
	default:
		return nil, fmt.Errorf("unrecognized unary expression type: %s", expression.Type)
	}
}

// binaryArithOps maps a Jack infix operator straight onto the single vm.ArithOpType
// that implements it; binaryCallOps covers the two ('/' and '*') with no VM opcode of
// their own, which fall back to the stdlib Math class instead.
var binaryArithOps = map[ExprType]vm.ArithOpType{
	Plus: vm.Add, Minus: vm.Sub, BoolOr: vm.Or, BoolAnd: vm.And,
	Equal: vm.Eq, LessThan: vm.Lt, GreatThan: vm.Gt,
}

var binaryCallOps = map[ExprType]string{
	Divide: "Math.divide", Multiply: "Math.multiply",
}

// HandleBinaryExpr lowers an infix expression by lowering both operands (left then
// right, so the stack ends up in argument order for the Math.* fallback calls) and
// appending whichever vm.Operation the operator maps to.
func (l *Lowerer) HandleBinaryExpr(expression BinaryExpr) ([]vm.Operation, error) {
	lhsOps, err := l.HandleExpression(expression.Lhs)
	if err != nil {
		return nil, fmt.Errorf("error handling nested LHS expression: %w", err)
	}
	rhsOps, err := l.HandleExpression(expression.Rhs)
	if err != nil {
		return nil, fmt.Errorf("error handling nested RHS expression: %w", err)
	}
	ops := append(lhsOps, rhsOps...)

	if op, ok := binaryArithOps[expression.Type]; ok {
		return append(ops, vm.ArithmeticOp{Operation: op}), nil
	}
	if fName, ok := binaryCallOps[expression.Type]; ok {
		return append(ops, vm.FuncCallOp{Name: fName, NArgs: 2}), nil
	}
	return nil, fmt.Errorf("unrecognized binary expression type: %s", expression.Type)
}

// HandleFuncCallExpr lowers a call. Jack's grammar doesn't distinguish method calls
// from function/constructor calls syntactically, so the work here is mostly about
// figuring out, from the current scope and the program's class table, which of the four
// call shapes (own instance method, other object's method, static function, or
// constructor) the call actually is and what implicit 'this' argument, if any, it needs.
func (l *Lowerer) HandleFuncCallExpr(expression FuncCallExpr) ([]vm.Operation, error) {
	argsInit := []vm.Operation{}
	for _, expr := range expression.Arguments {
		ops, err := l.HandleExpression(expr)
		if err != nil {
			return nil, fmt.Errorf("error handling argument expression: %w", err)
		}
		argsInit = append(argsInit, ops...)
	}
	argsLen := uint8(len(expression.Arguments))

	if !expression.IsExtCall {
		return l.handleOwnMethodCall(expression, argsInit, argsLen)
	}

	// An external call targeting a variable currently in scope is a method call on
	// that object; the variable's value becomes the implicit 'this' argument.
	if _, variable, _ := l.scopes.Lookup(expression.Var); variable != (Variable{}) {
		return l.handleInstanceCall(expression, variable, argsInit, argsLen)
	}

	return l.handleStaticCall(expression, argsInit, argsLen)
}

func (l *Lowerer) handleOwnMethodCall(expression FuncCallExpr, argsInit []vm.Operation, argsLen uint8) ([]vm.Operation, error) {
	className := l.currentClass()
	class, exists := l.program.Get(className)
	if !exists {
		return nil, fmt.Errorf("class defintion not found for '%s'", className)
	}
	routine, exists := class.Subroutines.Get(expression.FuncName)
	if !exists {
		return nil, fmt.Errorf("subroutine '%s' not found in class '%s'", expression.FuncName, className)
	}

	fName := fmt.Sprintf("%s.%s", className, expression.FuncName)
	if routine.Type != Method {
		return append(argsInit, vm.FuncCallOp{Name: fName, NArgs: argsLen}), nil
	}

	thisOp := vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 0}
	call := append([]vm.Operation{thisOp}, argsInit...)
	return append(call, vm.FuncCallOp{Name: fName, NArgs: argsLen + 1}), nil
}

func (l *Lowerer) handleInstanceCall(expression FuncCallExpr, variable Variable, argsInit []vm.Operation, argsLen uint8) ([]vm.Operation, error) {
	if variable.DataType.Main != Object {
		return nil, fmt.Errorf("variable '%s' is not an object", expression.Var)
	}

	thisArg, err := l.HandleVarExpr(VarExpr{Var: expression.Var})
	if err != nil {
		return nil, fmt.Errorf("error handling variable expression for 'this' pointer: %w", err)
	}

	fName := fmt.Sprintf("%s.%s", variable.DataType.Subtype, expression.FuncName)
	call := append(thisArg, argsInit...)
	return append(call, vm.FuncCallOp{Name: fName, NArgs: argsLen + 1}), nil
}

func (l *Lowerer) handleStaticCall(expression FuncCallExpr, argsInit []vm.Operation, argsLen uint8) ([]vm.Operation, error) {
	class, isClass := l.program.Get(expression.Var)
	if !isClass {
		return nil, fmt.Errorf("unrecognized function call expression: %s", expression.FuncName)
	}

	routine, exists := class.Subroutines.Get(expression.FuncName)
	if !exists {
		return nil, fmt.Errorf("subroutine '%s' not found in class '%s'", expression.FuncName, class.Name)
	}

	switch routine.Type {
	case Function, Constructor:
		fName := fmt.Sprintf("%s.%s", class.Name, expression.FuncName)
		return append(argsInit, vm.FuncCallOp{Name: fName, NArgs: argsLen}), nil
	default:
		return nil, fmt.Errorf("subroutine '%s' in class '%s' is not a function or constructor, got %s", expression.FuncName, class.Name, routine.Type)
	}
}
