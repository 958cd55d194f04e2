package jack_test

import (
	"reflect"
	"testing"

	"github.com/hackforge/n2t/pkg/jack"
	"github.com/hackforge/n2t/pkg/utils"
	"github.com/hackforge/n2t/pkg/vm"
)

func TestLowererFullProgram(t *testing.T) {
	test := func(program jack.Program, className string, expected []vm.Operation, fail bool) {
		lowerer := jack.NewLowerer(program)
		out, err := lowerer.Lowerer()
		if (err != nil) != fail {
			t.Fatalf("unexpected error state: %v", err)
		}
		if fail {
			return
		}

		got := out[className]
		if !reflect.DeepEqual([]vm.Operation(got), expected) {
			t.Fatalf("expected:\n%#v\ngot:\n%#v", expected, got)
		}
	}

	t.Run("Constructor prelude allocates one word per field", func(t *testing.T) {
		fields := utils.NewOrderedMapFromList([]utils.MapEntry[string, jack.Variable]{
			{Key: "x", Value: jack.Variable{Name: "x", VarType: jack.Field, DataType: jack.DataType{Main: jack.Int}}},
			{Key: "y", Value: jack.Variable{Name: "y", VarType: jack.Field, DataType: jack.DataType{Main: jack.Int}}},
		})
		subroutines := utils.NewOrderedMapFromList([]utils.MapEntry[string, jack.Subroutine]{
			{Key: "new", Value: jack.Subroutine{
				Name:       "new",
				Type:       jack.Constructor,
				Return:     jack.DataType{Main: jack.Object, Subtype: "Point"},
				Statements: []jack.Statement{jack.ReturnStmt{Expr: jack.VarExpr{Var: "this"}}},
			}},
		})

		program := jack.Program{"Point": {Name: "Point", Fields: fields, Subroutines: subroutines}}

		test(program, "Point", []vm.Operation{
			vm.FuncDecl{Name: "Point.new", NLocal: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 2},
			vm.FuncCallOp{Name: "Memory.alloc", NArgs: 1},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 0},
			vm.ReturnOp{},
		}, false)
	})

	t.Run("Method prelude restores 'this' from argument 0", func(t *testing.T) {
		fields := utils.NewOrderedMapFromList([]utils.MapEntry[string, jack.Variable]{
			{Key: "x", Value: jack.Variable{Name: "x", VarType: jack.Field, DataType: jack.DataType{Main: jack.Int}}},
		})
		subroutines := utils.NewOrderedMapFromList([]utils.MapEntry[string, jack.Subroutine]{
			{Key: "getX", Value: jack.Subroutine{
				Name:       "getX",
				Type:       jack.Method,
				Return:     jack.DataType{Main: jack.Int},
				Statements: []jack.Statement{jack.ReturnStmt{Expr: jack.VarExpr{Var: "x"}}},
			}},
		})

		program := jack.Program{"Point": {Name: "Point", Fields: fields, Subroutines: subroutines}}

		test(program, "Point", []vm.Operation{
			vm.FuncDecl{Name: "Point.getX", NLocal: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 0},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.This, Offset: 0},
			vm.ReturnOp{},
		}, false)
	})

	t.Run("Let statement with array LHS goes through the temp/pointer dance", func(t *testing.T) {
		subroutines := utils.NewOrderedMapFromList([]utils.MapEntry[string, jack.Subroutine]{
			{Key: "storeFirst", Value: jack.Subroutine{
				Name: "storeFirst",
				Type: jack.Function,
				Arguments: []jack.Variable{
					{Name: "arr", VarType: jack.Parameter, DataType: jack.DataType{Main: jack.Object, Subtype: "Array"}},
				},
				Statements: []jack.Statement{
					jack.LetStmt{
						Lhs: jack.ArrayExpr{Var: "arr", Index: jack.LiteralExpr{Type: jack.DataType{Main: jack.Int}, Value: "0"}},
						Rhs: jack.LiteralExpr{Type: jack.DataType{Main: jack.Int}, Value: "5"},
					},
				},
			}},
		})

		program := jack.Program{"Test": {Name: "Test", Subroutines: subroutines}}

		test(program, "Test", []vm.Operation{
			vm.FuncDecl{Name: "Test.storeFirst", NLocal: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 0},
			vm.ArithmeticOp{Operation: vm.Add},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 5},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Temp, Offset: 0},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 1},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Temp, Offset: 0},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.That, Offset: 0},
		}, false)
	})

	t.Run("Empty program fails", func(t *testing.T) {
		lowerer := jack.NewLowerer(jack.Program{})
		if _, err := lowerer.Lowerer(); err == nil {
			t.Fatalf("expected an error when lowering an empty program")
		}
	})
}

func TestLowererWhileStmtLabelMangling(t *testing.T) {
	var lowerer jack.Lowerer

	ops, err := lowerer.HandleWhileStmt(jack.WhileStmt{
		Condition: jack.LiteralExpr{Type: jack.DataType{Main: jack.Bool}, Value: "true"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []vm.Operation{
		vm.LabelDecl{Name: "WHILE_START_0"},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 1},
		vm.ArithmeticOp{Operation: vm.Not},
		vm.GotoOp{Label: "WHILE_END_1", Jump: vm.Conditional},
		vm.GotoOp{Label: "WHILE_START_0", Jump: vm.Unconditional},
		vm.LabelDecl{Name: "WHILE_END_1"},
	}
	if !reflect.DeepEqual(ops, expected) {
		t.Fatalf("expected:\n%#v\ngot:\n%#v", expected, ops)
	}

	// A second loop in the same scope must not reuse the first one's labels.
	ops, err = lowerer.HandleWhileStmt(jack.WhileStmt{
		Condition: jack.LiteralExpr{Type: jack.DataType{Main: jack.Bool}, Value: "false"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ops[0].(vm.LabelDecl).Name != "WHILE_START_2" {
		t.Fatalf("expected second loop to mangle from counter 2, got %+v", ops[0])
	}
}

func TestLowererIfStmtLabelMangling(t *testing.T) {
	var lowerer jack.Lowerer

	t.Run("No else branch", func(t *testing.T) {
		ops, err := lowerer.HandleIfStmt(jack.IfStmt{
			Condition: jack.LiteralExpr{Type: jack.DataType{Main: jack.Bool}, Value: "true"},
			ThenBlock: []jack.Statement{jack.ReturnStmt{Expr: jack.LiteralExpr{Type: jack.DataType{Main: jack.Int}, Value: "1"}}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := []vm.Operation{
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 1},
			vm.ArithmeticOp{Operation: vm.Not},
			vm.GotoOp{Label: "ELSE_0", Jump: vm.Conditional},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 1},
			vm.ReturnOp{},
			vm.LabelDecl{Name: "ELSE_0"},
		}
		if !reflect.DeepEqual(ops, expected) {
			t.Fatalf("expected:\n%#v\ngot:\n%#v", expected, ops)
		}
	})

	t.Run("With else branch mangles from where the previous call left off", func(t *testing.T) {
		ops, err := lowerer.HandleIfStmt(jack.IfStmt{
			Condition: jack.LiteralExpr{Type: jack.DataType{Main: jack.Bool}, Value: "true"},
			ThenBlock: []jack.Statement{},
			ElseBlock: []jack.Statement{jack.ReturnStmt{}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := []vm.Operation{
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 1},
			vm.GotoOp{Label: "THEN_1", Jump: vm.Conditional},
			vm.GotoOp{Label: "ELSE_2", Jump: vm.Unconditional},
			vm.LabelDecl{Name: "THEN_1"},
			vm.GotoOp{Label: "END_3", Jump: vm.Unconditional},
			vm.LabelDecl{Name: "ELSE_2"},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0},
			vm.ReturnOp{},
			vm.LabelDecl{Name: "END_3"},
		}
		if !reflect.DeepEqual(ops, expected) {
			t.Fatalf("expected:\n%#v\ngot:\n%#v", expected, ops)
		}
	})
}

func TestLowererLiteralExpr(t *testing.T) {
	var lowerer jack.Lowerer

	test := func(expr jack.LiteralExpr, expected []vm.Operation, fail bool) {
		ops, err := lowerer.HandleLiteralExpr(expr)
		if (err != nil) != fail {
			t.Fatalf("unexpected error state for %+v: %v", expr, err)
		}
		if fail {
			return
		}
		if !reflect.DeepEqual(ops, expected) {
			t.Fatalf("expected:\n%#v\ngot:\n%#v", expected, ops)
		}
	}

	t.Run("Int constant", func(t *testing.T) {
		test(jack.LiteralExpr{Type: jack.DataType{Main: jack.Int}, Value: "42"},
			[]vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 42}}, false)
	})

	t.Run("Bool constants", func(t *testing.T) {
		test(jack.LiteralExpr{Type: jack.DataType{Main: jack.Bool}, Value: "true"},
			[]vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 1}}, false)
		test(jack.LiteralExpr{Type: jack.DataType{Main: jack.Bool}, Value: "false"},
			[]vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0}}, false)
	})

	t.Run("Char constant", func(t *testing.T) {
		test(jack.LiteralExpr{Type: jack.DataType{Main: jack.Char}, Value: "A"},
			[]vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 65}}, false)
	})

	t.Run("Null object literal", func(t *testing.T) {
		test(jack.LiteralExpr{Type: jack.DataType{Main: jack.Object}, Value: "null"},
			[]vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0}}, false)
		test(jack.LiteralExpr{Type: jack.DataType{Main: jack.Object}, Value: "not-null"}, nil, true)
	})

	t.Run("String constant builds it char by char", func(t *testing.T) {
		test(jack.LiteralExpr{Type: jack.DataType{Main: jack.String}, Value: "hi"}, []vm.Operation{
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 2},
			vm.FuncCallOp{Name: "String.new", NArgs: 1},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16('h')},
			vm.FuncCallOp{Name: "String.appendChar", NArgs: 2},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16('i')},
			vm.FuncCallOp{Name: "String.appendChar", NArgs: 2},
		}, false)
	})

	t.Run("Invalid data", func(t *testing.T) {
		test(jack.LiteralExpr{Type: jack.DataType{Main: jack.Int}, Value: "not-a-number"}, nil, true)
		test(jack.LiteralExpr{Type: jack.DataType{Main: jack.Char}, Value: "ab"}, nil, true)
	})
}

func TestLowererBinaryAndUnaryExpr(t *testing.T) {
	var lowerer jack.Lowerer

	one := jack.LiteralExpr{Type: jack.DataType{Main: jack.Int}, Value: "1"}
	two := jack.LiteralExpr{Type: jack.DataType{Main: jack.Int}, Value: "2"}

	testBinary := func(op jack.ExprType, expected vm.Operation) {
		ops, err := lowerer.HandleBinaryExpr(jack.BinaryExpr{Type: op, Lhs: one, Rhs: two})
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", op, err)
		}
		if len(ops) == 0 {
			t.Fatalf("expected at least one operation for %s", op)
		}
		if last := ops[len(ops)-1]; !reflect.DeepEqual(last, expected) {
			t.Fatalf("expected last op %#v, got %#v", expected, last)
		}
	}

	t.Run("Arithmetic and comparison ops map to their VM counterpart", func(t *testing.T) {
		testBinary(jack.Plus, vm.ArithmeticOp{Operation: vm.Add})
		testBinary(jack.Minus, vm.ArithmeticOp{Operation: vm.Sub})
		testBinary(jack.Equal, vm.ArithmeticOp{Operation: vm.Eq})
		testBinary(jack.LessThan, vm.ArithmeticOp{Operation: vm.Lt})
		testBinary(jack.GreatThan, vm.ArithmeticOp{Operation: vm.Gt})
		testBinary(jack.BoolAnd, vm.ArithmeticOp{Operation: vm.And})
		testBinary(jack.BoolOr, vm.ArithmeticOp{Operation: vm.Or})
	})

	t.Run("Divide and multiply call into the Math stdlib class", func(t *testing.T) {
		testBinary(jack.Divide, vm.FuncCallOp{Name: "Math.divide", NArgs: 2})
		testBinary(jack.Multiply, vm.FuncCallOp{Name: "Math.multiply", NArgs: 2})
	})

	t.Run("Unary negation and boolean not", func(t *testing.T) {
		ops, err := lowerer.HandleUnaryExpr(jack.UnaryExpr{Type: jack.Negation, Rhs: one})
		if err != nil || !reflect.DeepEqual(ops[len(ops)-1], vm.ArithmeticOp{Operation: vm.Neg}) {
			t.Fatalf("unexpected negation result: %+v, %v", ops, err)
		}

		ops, err = lowerer.HandleUnaryExpr(jack.UnaryExpr{Type: jack.BoolNot, Rhs: one})
		if err != nil || !reflect.DeepEqual(ops[len(ops)-1], vm.ArithmeticOp{Operation: vm.Not}) {
			t.Fatalf("unexpected bool-not result: %+v, %v", ops, err)
		}
	})
}
