package vm

import (
	"fmt"
	"io"
	"os"
	"strconv"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Grammar

// Grammar for the nand2tetris Vm language. A program is split across multiple
// '.vm' files (one per module/class, Java-'.class'-style), each a sequence of
// comments and operations; parser combinators below build a traversable AST
// out of one such file's raw text.
var grammar = pc.NewAST("virtual_machine", 0)

var (
	pModule = grammar.ManyUntil("module", nil, grammar.OrdChoice("node", nil, pComment, pOperation), pc.End())

	pComment = grammar.And("comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))

	pOperation = grammar.OrdChoice("operation", nil,
		pMemoryOp, pArithmeticOp, pLabelDecl, pGotoOp,
		pFuncDecl, pFunCallOp, pReturnOp,
	)

	pMemoryOp     = grammar.And("memory_op", nil, pMemOpType, pSegment, pc.Int())
	pArithmeticOp = grammar.And("arithmetic_op", nil, pArithOpType)

	pLabelDecl = grammar.And("label_decl", nil, pc.Atom("label", "LABEL"), pIdent)
	pGotoOp    = grammar.And("goto_op", nil, pJumpType, pIdent)

	pFuncDecl  = grammar.And("func_decl", nil, pc.Atom("function", "FUNC"), pIdent, pc.Int())
	pFunCallOp = grammar.And("func_call", nil, pc.Atom("call", "CALL"), pIdent, pc.Int())
	pReturnOp  = grammar.And("return_op", nil, pc.Atom("return", "RETURN"))
)

var (
	// An identifier is any run of letters, digits, underscore, dot, dollar or
	// colon not starting with a digit (used for labels and function names).
	pIdent = pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "IDENT")

	pMemOpType = grammar.OrdChoice("mem_op_type", nil, pc.Atom("push", "PUSH"), pc.Atom("pop", "POP"))

	pSegment = grammar.OrdChoice("mem_segment", nil,
		pc.Atom("argument", "ARGUMENT"), pc.Atom("local", "LOCAL"),
		pc.Atom("static", "STATIC"), pc.Atom("constant", "CONSTANT"),
		pc.Atom("this", "THIS"), pc.Atom("that", "THAT"),
		pc.Atom("temp", "TEMP"), pc.Atom("pointer", "POINTER"),
	)

	pArithOpType = grammar.OrdChoice("operations", nil,
		pc.Atom("eq", "EQ"), pc.Atom("gt", "GT"), pc.Atom("lt", "LT"),
		pc.Atom("add", "ADD"), pc.Atom("sub", "SUB"), pc.Atom("neg", "NEG"),
		pc.Atom("not", "NOT"), pc.Atom("and", "AND"), pc.Atom("or", "OR"),
	)

	pJumpType = grammar.OrdChoice("jump_type", nil, pc.Atom("goto", "GOTO"), pc.Atom("if-goto", "IF-GOTO"))
)

// ----------------------------------------------------------------------------
// Parser

// Parser turns Vm source text into a 'Module'. Debug/trace behavior is driven
// by the same environment flags the grammar's author settled on for the
// whole toolchain:
//   - PARSEC_DEBUG: verbose goparsec logging of which combinator matched
//   - EXPORT_AST:   dumps the parsed AST as a Graphviz (.dot) file
//   - PRINT_AST:    dumps a textual representation of the AST to stdout
type Parser struct{ reader io.Reader }

func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

// Parse runs both parsing phases: source text to raw AST, then raw AST to the
// typed 'Module' the rest of the toolchain operates on.
func (p *Parser) Parse() (Module, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, fmt.Errorf("cannot read from 'io.Reader': %s", err)
	}

	root, ok := p.FromSource(content)
	if !ok {
		return nil, fmt.Errorf("failed to parse AST from input content")
	}

	return p.FromAST(root)
}

// FromSource scans 'source' and returns the raw, queryable parse tree. The
// boolean result is false only when the grammar rejects the input outright
// (a nil root); trailing unconsumed input past the last recognized item is
// not currently surfaced as a failure.
func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		grammar.SetDebug()
	}

	root, _ := grammar.Parsewith(pModule, pc.NewScanner(source))

	if os.Getenv("EXPORT_AST") != "" {
		if file, err := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER"))); err == nil {
			defer file.Close()
			file.Write([]byte(grammar.Dotstring("\"VM AST\"")))
		}
	}

	if os.Getenv("PRINT_AST") != "" {
		grammar.Prettyprint()
	}

	return root, root != nil
}

// operationBuilders dispatches each top-level AST node kind to the function
// that turns it into an 'Operation'. Comment nodes have no entry and are
// skipped by the caller instead, since they don't produce one.
var operationBuilders = map[string]func(pc.Queryable) (Operation, error){
	"memory_op":     fromMemoryOp,
	"arithmetic_op": fromArithmeticOp,
	"label_decl":    fromLabelDecl,
	"goto_op":       fromGotoOp,
	"func_decl":     fromFuncDecl,
	"return_op":     fromReturnOp,
	"func_call":     fromFuncCall,
}

// FromAST walks the root node's direct children and builds the 'Module' they
// describe, skipping comments and failing on any node kind it doesn't know.
func (p *Parser) FromAST(root pc.Queryable) (Module, error) {
	if root.GetName() != "module" {
		return nil, fmt.Errorf("expected node 'program', found %s", root.GetName())
	}

	module := []Operation{}
	for _, child := range root.GetChildren() {
		if child.GetName() == "comment" {
			continue
		}

		build, known := operationBuilders[child.GetName()]
		if !known {
			return nil, fmt.Errorf("unrecognized node '%s'", child.GetName())
		}

		op, err := build(child)
		if op == nil || err != nil {
			return nil, err
		}
		module = append(module, op)
	}

	return module, nil
}

// fromMemoryOp converts a "memory_op" node into a 'MemoryOp'.
func fromMemoryOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "memory_op" {
		return nil, fmt.Errorf("expected node 'memory_op', got %s", node.GetName())
	}
	if len(node.GetChildren()) != 3 {
		return nil, fmt.Errorf("expected node with 3 leaf, got %d", len(node.GetChildren()))
	}

	operation := OperationType(node.GetChildren()[0].GetValue())
	segment := SegmentType(node.GetChildren()[1].GetValue())
	offset, err := strconv.ParseUint(node.GetChildren()[2].GetValue(), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to parse 'offset' in MemoryOp, got '%s'", node.GetChildren()[2].GetValue())
	}

	return MemoryOp{Operation: operation, Segment: segment, Offset: uint16(offset)}, nil
}

// fromArithmeticOp converts an "arithmetic_op" node into an 'ArithmeticOp'.
func fromArithmeticOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "arithmetic_op" {
		return nil, fmt.Errorf("expected node 'arithmetic_op', got %s", node.GetName())
	}
	if len(node.GetChildren()) != 1 {
		return nil, fmt.Errorf("expected node 'arithmetic_op' with 1 leaf, got %d", len(node.GetChildren()))
	}

	return ArithmeticOp{Operation: ArithOpType(node.GetChildren()[0].GetValue())}, nil
}

// fromLabelDecl converts a "label_decl" node into a 'LabelDecl'.
func fromLabelDecl(node pc.Queryable) (Operation, error) {
	if node.GetName() != "label_decl" {
		return nil, fmt.Errorf("expected node 'label_decl', got %s", node.GetName())
	}
	if len(node.GetChildren()) != 2 {
		return nil, fmt.Errorf("expected node 'label_decl' with 2 leaf, got %d", len(node.GetChildren()))
	}

	return LabelDecl{Name: node.GetChildren()[1].GetValue()}, nil
}

// fromGotoOp converts a "goto_op" node into a 'GotoOp'.
func fromGotoOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "goto_op" {
		return nil, fmt.Errorf("expected node 'goto_op', got %s", node.GetName())
	}
	if len(node.GetChildren()) != 2 {
		return nil, fmt.Errorf("expected node 'goto_op' with 2 leaf, got %d", len(node.GetChildren()))
	}

	return GotoOp{
		Jump:  JumpType(node.GetChildren()[0].GetValue()),
		Label: node.GetChildren()[1].GetValue(),
	}, nil
}

// fromFuncDecl converts a "func_decl" node into a 'FuncDecl'.
func fromFuncDecl(node pc.Queryable) (Operation, error) {
	if node.GetName() != "func_decl" {
		return nil, fmt.Errorf("expected node 'func_decl', got %s", node.GetName())
	}
	if len(node.GetChildren()) != 3 {
		return nil, fmt.Errorf("expected node 'func_decl' with 3 leaf, got %d", len(node.GetChildren()))
	}

	nLocal, err := strconv.ParseUint(node.GetChildren()[2].GetValue(), 10, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to parse 'nLocal' in FuncDecl, got '%s'", node.GetChildren()[2].GetValue())
	}

	return FuncDecl{Name: node.GetChildren()[1].GetValue(), NLocal: uint8(nLocal)}, nil
}

// fromReturnOp converts a "return_op" node into a 'ReturnOp'.
func fromReturnOp(node pc.Queryable) (Operation, error) {
	if node.GetName() != "return_op" {
		return nil, fmt.Errorf("expected node 'return_op', got %s", node.GetName())
	}
	if len(node.GetChildren()) != 1 {
		return nil, fmt.Errorf("expected node 'return_op' with 1 leaf, got %d", len(node.GetChildren()))
	}

	return ReturnOp{}, nil
}

// fromFuncCall converts a "func_call" node into a 'FuncCallOp'.
func fromFuncCall(node pc.Queryable) (Operation, error) {
	if node.GetName() != "func_call" {
		return nil, fmt.Errorf("expected node 'func_call', got %s", node.GetName())
	}
	if len(node.GetChildren()) != 3 {
		return nil, fmt.Errorf("expected node 'func_call' with 3 leaf, got %d", len(node.GetChildren()))
	}

	nArgs, err := strconv.ParseUint(node.GetChildren()[2].GetValue(), 10, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to parse 'nArgs' in FuncCallOp, got '%s'", node.GetChildren()[2].GetValue())
	}

	return FuncCallOp{Name: node.GetChildren()[1].GetValue(), NArgs: uint8(nArgs)}, nil
}
