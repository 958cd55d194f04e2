package asm

import (
	"fmt"
	"io"
	"os"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Grammar

// Grammar for the nand2tetris Assembler language: a program is a sequence of
// comments and instructions (A, C or label declaration). Parser combinators
// below build a traversable AST out of the raw source text; nothing here
// walks the AST, that's the job of the 'fromAST*' functions further down.
var grammar = pc.NewAST("assembler", 0)

var (
	pProgram     = grammar.ManyUntil("program", nil, grammar.OrdChoice("item", nil, pComment, pInstruction), pc.End())
	pInstruction = grammar.OrdChoice("instruction", nil, pAInst, pCInst, pLabelDecl)
	pComment     = grammar.And("comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))

	pAInst     = grammar.And("a-inst", nil, pc.Atom("@", "@"), pLabel)
	pLabelDecl = grammar.And("label-decl", nil, pc.Atom("(", "("), pLabel, pc.Atom(")", ")"))
	pCInst     = grammar.And("c-inst", nil,
		grammar.Maybe("maybe-assign", nil, grammar.And("assign", nil, pDest, pc.Atom("=", "="))),
		pComp, // 'comp' is the only mandatory part of a C instruction
		grammar.Maybe("maybe-goto", nil, grammar.And("goto", nil, pc.Atom(";", ";"), pJump)),
	)
)

var (
	// A label (used both by A instructions and label declarations) is any run of
	// letters, digits, underscore, dot, dollar or colon not starting with a digit,
	// or a plain decimal literal.
	pLabel = grammar.OrdChoice("label", nil, pc.Int(), pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "SYMBOL"))

	// Listed longest-prefix-first: a 2-letter destination would otherwise never be
	// reached once its first letter alone has already matched.
	pDest = grammar.OrdChoice("dest", nil,
		pc.Atom("AM", "AM"), pc.Atom("AD", "AD"), pc.Atom("MD", "MD"),
		pc.Atom("D", "D"), pc.Atom("A", "A"), pc.Atom("M", "M"),
	)

	// Same longest-prefix-first ordering rule as 'pDest': a bare register must be
	// tried only after every operator expression built on top of it.
	pComp = grammar.OrdChoice("comp", nil,
		pc.Atom("D&A", "D&A"), pc.Atom("D&M", "D&M"),
		pc.Atom("D|A", "D|A"), pc.Atom("D|M", "D|M"),
		pc.Atom("D+A", "D+A"), pc.Atom("D+M", "D+M"),
		pc.Atom("D-A", "D-A"), pc.Atom("D-M", "D-M"),
		pc.Atom("A-D", "A-D"), pc.Atom("M-D", "M-D"),
		pc.Atom("D+1", "D+1"), pc.Atom("A+1", "A+1"), pc.Atom("M+1", "M+1"),
		pc.Atom("D-1", "D-1"), pc.Atom("A-1", "A-1"), pc.Atom("M-1", "M-1"),
		pc.Atom("!D", "!D"), pc.Atom("!A", "!A"), pc.Atom("!M", "!M"),
		pc.Atom("-D", "-D"), pc.Atom("-A", "-A"), pc.Atom("-M", "-M"),
		pc.Atom("0", "0"), pc.Atom("1", "1"), pc.Atom("-1", "-1"),
		pc.Atom("D", "D"), pc.Atom("A", "A"), pc.Atom("M", "M"),
	)

	pJump = grammar.OrdChoice("jump", nil,
		pc.Atom("JNE", "JNE"), pc.Atom("JEQ", "JEQ"),
		pc.Atom("JGT", "JGT"), pc.Atom("JGE", "JGE"),
		pc.Atom("JLT", "JLT"), pc.Atom("JLE", "JLE"),
		pc.Atom("JMP", "JMP"),
	)
)

// ----------------------------------------------------------------------------
// Parser

// Parser turns Assembler source text into a 'Program'. Debug/trace behavior is
// driven by the same environment flags the grammar's author settled on for the
// whole toolchain:
//   - PARSEC_DEBUG: verbose goparsec logging of which combinator matched
//   - EXPORT_AST:   dumps the parsed AST as a Graphviz (.dot) file
//   - PRINT_AST:    dumps a textual representation of the AST to stdout
type Parser struct{ reader io.Reader }

func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

// Parse runs both parsing phases: source text to raw AST, then raw AST to the
// typed 'Program' the rest of the toolchain operates on.
func (p *Parser) Parse() (Program, error) {
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

	root, _ := grammar.Parsewith(pProgram, pc.NewScanner(source))

	if os.Getenv("EXPORT_AST") != "" {
		if file, err := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER"))); err == nil {
			defer file.Close()
			file.Write([]byte(grammar.Dotstring("\"Assembler AST\"")))
		}
	}

	if os.Getenv("PRINT_AST") != "" {
		grammar.Prettyprint()
	}

	return root, root != nil
}

// instructionBuilders dispatches each top-level AST node kind to the function
// that turns it into a 'Statement'. Comment nodes have no entry and are
// skipped by the caller instead, since they don't produce one.
var instructionBuilders = map[string]func(pc.Queryable) (Statement, error){
	"a-inst":     fromAInst,
	"c-inst":     fromCInst,
	"label-decl": fromLabelDecl,
}

// FromAST walks the root node's direct children and builds the 'Program' they
// describe, skipping comments and failing on any node kind it doesn't know.
func (p *Parser) FromAST(root pc.Queryable) (Program, error) {
	if root.GetName() != "program" {
		return nil, fmt.Errorf("expected node 'program', found %s", root.GetName())
	}

	program := Program{}
	for _, child := range root.GetChildren() {
		if child.GetName() == "comment" {
			continue
		}

		build, known := instructionBuilders[child.GetName()]
		if !known {
			return nil, fmt.Errorf("unrecognized node '%s'", child.GetName())
		}

		inst, err := build(child)
		if inst == nil || err != nil {
			return nil, err
		}
		program = append(program, inst)
	}

	return program, nil
}

// fromAInst converts an "a-inst" node into an 'AInstruction'.
func fromAInst(node pc.Queryable) (Statement, error) {
	if node.GetName() != "a-inst" {
		return nil, fmt.Errorf("expected node 'a-inst', found %s", node.GetName())
	}

	target := node.GetChildren()[1]
	if target.GetName() != "INT" && target.GetName() != "SYMBOL" {
		return nil, fmt.Errorf("expected token 'SYMBOL' or 'INT', got %s", target.GetName())
	}

	return AInstruction{Location: target.GetValue()}, nil
}

// fromCInst converts a "c-inst" node into a 'CInstruction'. 'dest' and 'jump'
// are both optional and independent of one another (e.g. 'D=D+M;JGT' carries
// both), so each is resolved on its own rather than short-circuiting on
// whichever is checked first.
func fromCInst(node pc.Queryable) (Statement, error) {
	if node.GetName() != "c-inst" {
		return nil, fmt.Errorf("expected node 'c-inst', found %s", node.GetName())
	}

	dest, comp, jump := node.GetChildren()[0], node.GetChildren()[1], node.GetChildren()[2]
	inst := CInstruction{Comp: comp.GetValue()}

	if dest.GetName() == "assign" && len(dest.GetChildren()) == 2 {
		inst.Dest = dest.GetChildren()[0].GetValue()
	}
	if jump.GetName() == "goto" || len(jump.GetChildren()) == 2 {
		inst.Jump = jump.GetChildren()[1].GetValue()
	}

	return inst, nil
}

// fromLabelDecl converts a "label-decl" node into a 'LabelDecl'.
func fromLabelDecl(node pc.Queryable) (Statement, error) {
	if node.GetName() != "label-decl" {
		return nil, fmt.Errorf("expected node 'label-decl', found %s", node.GetName())
	}

	symbol := node.GetChildren()[1]
	if symbol.GetName() != "SYMBOL" {
		return nil, fmt.Errorf("expected token 'SYMBOL', got %s", symbol.GetName())
	}

	return LabelDecl{Name: symbol.GetValue()}, nil
}
