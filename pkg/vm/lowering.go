package vm

import (
	"fmt"
	"sort"

	"github.com/hackforge/n2t/pkg/asm"
)

// ----------------------------------------------------------------------------
// Segment resolvers

// This section contains the lookup tables used to resolve each memory segment to the
// underlying Hack RAM location(s) it's backed by. Segments come in three flavors:
//   - Pointer segments ('local', 'argument', 'this', 'that'): a base address is kept in a
//     builtin register and the actual location is 'base + offset', resolved at runtime.
//   - Fixed segments ('temp', 'pointer'): the base address is a compile-time constant, so
//     the location is simply 'base + offset', resolved once at lowering time.
//   - The 'static' segment has no fixed RAM location at all: each variable is emitted as a
//     symbolic '<Module>.<i>' A Instruction and left for the Assembler's own variable
//     allocation (pkg/asm's Lowerer + pkg/hack's CodeGenerator) to assign it a real address.

// PointerResolver maps a pointer-backed segment to the builtin register holding its base.
var PointerResolver = map[SegmentType]string{
	Local:    "LCL",
	Argument: "ARG",
	This:     "THIS",
	That:     "THAT",
}

// FixedResolver maps a fixed-address segment to the first RAM location it's backed by.
var FixedResolver = map[SegmentType]uint16{
	Temp:    5,
	Pointer: 3,
}

// IntrinsicResolver maps a binary/unary ArithOpType to the C Instruction computing it.
// Binary ops assume 'D' already holds the second operand and 'A' points at the first;
// unary ops compute on 'M', the operand 'A' points at.
var IntrinsicResolver = map[ArithOpType]string{
	Add: "D+M", Sub: "M-D", And: "D&M", Or: "D|M",
	Neg: "-M", Not: "!M",
}

// JumpResolver maps a comparison ArithOpType to the Jump mnemonic used in the generated
// 'D;Jxx' once the two operands have been subtracted into 'D'.
var JumpResolver = map[ArithOpType]string{
	Eq: "JEQ", Gt: "JGT", Lt: "JLT",
}

// ----------------------------------------------------------------------------
// Vm Lowerer

// The Lowerer takes a 'vm.Program' (one or more already-parsed modules) and produces a single,
// flattened 'asm.Program' counterpart implementing the VM's stack machine and calling convention
// on top of the Hack architecture.
//
// Modules are lowered in alphabetical order (not map iteration order, which Go leaves
// unspecified) so that two lowering runs over the same input always produce byte-identical
// assembly; comparison and call-site labels are disambiguated with a running counter, and
// 'label'/'goto'/'if-goto' targets are mangled with the current function name since the VM
// spec only guarantees their uniqueness within the declaring function.
type Lowerer struct {
	program Program

	module          string // Base name (without extension) of the module currently being lowered
	currentFunction string // Name of the function currently being lowered, for label mangling

	nCompare uint // Running counter disambiguating 'eq'/'gt'/'lt' labels
	nCall    uint // Running counter disambiguating 'call' return-address labels
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// Requires the argument Program 'p' to be not nil nor empty.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Triggers the lowering process, one module at a time (in alphabetical order), and
// concatenates the result into a single flat 'asm.Program'.
func (l *Lowerer) Lowerer() (asm.Program, error) {
	if l.program == nil || len(l.program) == 0 {
		return nil, fmt.Errorf("the given 'program' is empty")
	}

	names := make([]string, 0, len(l.program))
	for name := range l.program {
		names = append(names, name)
	}
	sort.Strings(names)

	converted := asm.Program{}
	for _, name := range names {
		l.module, l.currentFunction = name, ""

		for _, operation := range l.program[name] {
			var instructions []asm.Statement
			var err error

			switch tOperation := operation.(type) {
			case MemoryOp:
				instructions, err = l.HandleMemoryOp(tOperation)
			case ArithmeticOp:
				instructions, err = l.HandleArithmeticOp(tOperation)
			case LabelDecl:
				instructions, err = l.HandleLabelDecl(tOperation)
			case GotoOp:
				instructions, err = l.HandleGotoOp(tOperation)
			case FuncDecl:
				instructions, err = l.HandleFuncDecl(tOperation)
			case FuncCallOp:
				instructions, err = l.HandleFuncCallOp(tOperation)
			case ReturnOp:
				instructions, err = l.HandleReturnOp(tOperation)
			default:
				err = fmt.Errorf("unrecognized operation '%T'", operation)
			}

			if err != nil {
				return nil, err
			}
			converted = append(converted, instructions...)
		}
	}

	return converted, nil
}

// Mangles a function-local label (used by 'label'/'goto'/'if-goto') with the function
// currently being lowered, since two different functions are free to reuse the same name.
func (l *Lowerer) mangleLabel(name string) string {
	if l.currentFunction == "" {
		return name
	}
	return fmt.Sprintf("%s$%s", l.currentFunction, name)
}

// Specialized function to lower a 'MemoryOp' (push or pop) operation.
func (l *Lowerer) HandleMemoryOp(op MemoryOp) ([]asm.Statement, error) {
	switch op.Operation {
	case Push:
		return l.push(op.Segment, op.Offset)
	case Pop:
		return l.pop(op.Segment, op.Offset)
	default:
		return nil, fmt.Errorf("unrecognized OperationType '%s'", op.Operation)
	}
}

// Emits the instructions loading the segment location's value into 'D', shared by every
// flavor of 'push' below.
func (l *Lowerer) loadSegmentIntoD(segment SegmentType, offset uint16) ([]asm.Statement, error) {
	if segment == Constant {
		return []asm.Statement{
			asm.AInstruction{Location: fmt.Sprint(offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
		}, nil
	}

	if base, found := PointerResolver[segment]; found {
		return []asm.Statement{
			asm.AInstruction{Location: base},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: fmt.Sprint(offset)},
			asm.CInstruction{Dest: "A", Comp: "D+A"},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}, nil
	}

	if base, found := FixedResolver[segment]; found {
		return []asm.Statement{
			asm.AInstruction{Location: fmt.Sprint(base + offset)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}, nil
	}

	if segment == Static {
		return []asm.Statement{
			asm.AInstruction{Location: fmt.Sprintf("%s.%d", l.module, offset)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}, nil
	}

	return nil, fmt.Errorf("unrecognized SegmentType '%s'", segment)
}

// Pushes the resolved segment location's value onto the stack, bumping 'SP' by one.
func (l *Lowerer) push(segment SegmentType, offset uint16) ([]asm.Statement, error) {
	if segment == Pointer && offset > 1 {
		return nil, fmt.Errorf("invalid 'pointer' offset, got %d", offset)
	}
	if segment == Temp && offset > 7 {
		return nil, fmt.Errorf("invalid 'temp' offset, got %d", offset)
	}

	load, err := l.loadSegmentIntoD(segment, offset)
	if err != nil {
		return nil, err
	}

	return append(load,
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	), nil
}

// Pops the stack's top into the resolved segment location, decrementing 'SP' by one.
//
// Pointer-backed segments need the target address computed and parked in 'R13' before the
// pop (the computation itself clobbers 'D', which the popped value also needs), while fixed
// and static segments have a compile-time-constant address and can pop directly into it.
func (l *Lowerer) pop(segment SegmentType, offset uint16) ([]asm.Statement, error) {
	if segment == Constant {
		return nil, fmt.Errorf("cannot 'pop' into the virtual 'constant' segment")
	}
	if segment == Pointer && offset > 1 {
		return nil, fmt.Errorf("invalid 'pointer' offset, got %d", offset)
	}
	if segment == Temp && offset > 7 {
		return nil, fmt.Errorf("invalid 'temp' offset, got %d", offset)
	}

	if base, found := PointerResolver[segment]; found {
		return []asm.Statement{
			asm.AInstruction{Location: base},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: fmt.Sprint(offset)},
			asm.CInstruction{Dest: "D", Comp: "D+A"},
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "M", Comp: "D"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}, nil
	}

	var target string
	switch {
	case segment == Static:
		target = fmt.Sprintf("%s.%d", l.module, offset)
	default:
		base, found := FixedResolver[segment]
		if !found {
			return nil, fmt.Errorf("unrecognized SegmentType '%s'", segment)
		}
		target = fmt.Sprint(base + offset)
	}

	return []asm.Statement{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: target},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}, nil
}

// Specialized function to lower an 'ArithmeticOp' operation.
//
// Unary operations ('neg', 'not') rewrite the stack's top in place; binary operations
// ('add', 'sub', 'and', 'or') pop the top two and push their combination; comparisons
// ('eq', 'gt', 'lt') pop the top two and push the all-ones/all-zeros boolean result,
// needing a pair of uniquely-numbered labels to branch on the comparison's outcome.
func (l *Lowerer) HandleArithmeticOp(op ArithmeticOp) ([]asm.Statement, error) {
	if op.Operation == Neg || op.Operation == Not {
		return []asm.Statement{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: IntrinsicResolver[op.Operation]},
		}, nil
	}

	if comp, binary := IntrinsicResolver[op.Operation]; binary {
		return []asm.Statement{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.CInstruction{Dest: "A", Comp: "A-1"},
			asm.CInstruction{Dest: "M", Comp: comp},
		}, nil
	}

	jump, found := JumpResolver[op.Operation]
	if !found {
		return nil, fmt.Errorf("unrecognized ArithOpType '%s'", op.Operation)
	}

	l.nCompare++
	trueLabel := fmt.Sprintf("COMPARE_TRUE.%d", l.nCompare)
	endLabel := fmt.Sprintf("COMPARE_END.%d", l.nCompare)

	return []asm.Statement{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.AInstruction{Location: trueLabel},
		asm.CInstruction{Comp: "D", Jump: jump},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "0"},
		asm.AInstruction{Location: endLabel},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: trueLabel},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "-1"},
		asm.LabelDecl{Name: endLabel},
	}, nil
}

// Specialized function to lower a 'LabelDecl' operation. Mangled with the enclosing
// function's name, since the VM spec only guarantees labels are unique within it.
func (l *Lowerer) HandleLabelDecl(op LabelDecl) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower empty label declaration")
	}
	return []asm.Statement{asm.LabelDecl{Name: l.mangleLabel(op.Name)}}, nil
}

// Specialized function to lower a 'GotoOp' operation, popping and discarding the stack's
// top to evaluate the jump condition when 'Conditional'.
func (l *Lowerer) HandleGotoOp(op GotoOp) ([]asm.Statement, error) {
	if op.Label == "" {
		return nil, fmt.Errorf("unable to lower jump with empty label")
	}
	label := l.mangleLabel(op.Label)

	if op.Jump == Unconditional {
		return []asm.Statement{
			asm.AInstruction{Location: label},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	}
	if op.Jump == Conditional {
		return []asm.Statement{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: label},
			asm.CInstruction{Comp: "D", Jump: "JNE"},
		}, nil
	}
	return nil, fmt.Errorf("unrecognized JumpType '%s'", op.Jump)
}

// Specialized function to lower a 'FuncDecl' operation: declares the entrypoint label and
// zero-initializes the callee's 'NLocal' local variables, as the calling convention leaves
// that job to the callee rather than the caller.
func (l *Lowerer) HandleFuncDecl(op FuncDecl) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower function declaration with empty name")
	}
	l.currentFunction = op.Name

	instructions := []asm.Statement{asm.LabelDecl{Name: op.Name}}
	for i := uint8(0); i < op.NLocal; i++ {
		instructions = append(instructions,
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "M+1"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: "0"},
		)
	}
	return instructions, nil
}

// Specialized function to lower a 'ReturnOp' operation.
//
// The return address is saved to 'R14' before the caller's 'THAT'/'THIS'/'ARG'/'LCL' are
// restored from the callee's frame (saved at 'R13'): restoring those first would otherwise
// overwrite 'LCL', the very register the return address was read relative to.
func (l *Lowerer) HandleReturnOp(ReturnOp) ([]asm.Statement, error) {
	return []asm.Statement{
		asm.AInstruction{Location: "LCL"}, // R13 = frame = LCL
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "5"}, // R14 = retAddr = *(frame - 5), saved before any restore
		asm.CInstruction{Dest: "A", Comp: "D-A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "SP"}, // *ARG = pop()
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "ARG"}, // SP = ARG + 1
		asm.CInstruction{Dest: "D", Comp: "M+1"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "R13"}, // THAT = *(frame - 1)
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "THAT"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "R13"}, // THIS = *(frame - 2)
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "THIS"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "R13"}, // ARG = *(frame - 3)
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "R13"}, // LCL = *(frame - 4)
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "R14"}, // goto retAddr
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	}, nil
}

// Specialized function to lower a 'FuncCallOp' operation.
//
// Pushes a fresh return-address label (uniquely numbered since a function can be called
// from more than one call site) plus the caller's 'LCL'/'ARG'/'THIS'/'THAT', then
// repositions 'ARG' relative to the post-push 'SP' (i.e. after all five pushes), so the
// callee sees its arguments at the bottom of its frame regardless of what it pushed for
// its own bookkeeping.
func (l *Lowerer) HandleFuncCallOp(op FuncCallOp) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower function call with empty name")
	}

	l.nCall++
	retAddr := fmt.Sprintf("%s$ret.%d", op.Name, l.nCall)

	instructions := []asm.Statement{
		asm.AInstruction{Location: retAddr}, // push retAddr
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
		asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}
	for _, reg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		instructions = append(instructions,
			asm.AInstruction{Location: reg},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "M+1"},
			asm.CInstruction{Dest: "A", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		)
	}

	instructions = append(instructions,
		asm.AInstruction{Location: fmt.Sprint(uint16(op.NArgs) + 5)}, // ARG = SP - 5 - nArgs
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "SP"}, // LCL = SP
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: op.Name}, // goto f
		asm.CInstruction{Comp: "0", Jump: "JMP"},

		asm.LabelDecl{Name: retAddr},
	)

	return instructions, nil
}

// Bootstrap returns the canonical bootstrap sequence prepended to multi-file programs:
// it initializes 'SP' to 256 (the first usable stack location) and performs a regular
// 'call Sys.init 0', exactly as if the VM source contained those two lines itself.
func (l *Lowerer) Bootstrap() ([]asm.Statement, error) {
	l.module, l.currentFunction = "Bootstrap", ""

	call, err := l.HandleFuncCallOp(FuncCallOp{Name: "Sys.init", NArgs: 0})
	if err != nil {
		return nil, err
	}

	return append([]asm.Statement{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}, call...), nil
}
