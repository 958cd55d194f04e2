package asm

import (
	"fmt"
	"strconv"

	"github.com/hackforge/n2t/pkg/hack"
)

// ----------------------------------------------------------------------------
// Asm Lowerer

// Lowerer takes an 'asm.Program' and produces its 'hack.Program' counterpart,
// alongside the 'hack.SymbolTable' binding every label declaration to the
// address it resolves to. 'program' is treated as immutable input: neither
// pass below mutates it, each just reads it in its own full sweep.
type Lowerer struct{ program Program }

func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Lower runs the two passes a label/variable resolving assembler needs over
// the same, unchanged 'program':
//
//  1. resolveLabels walks every statement and records, for each label
//     declaration, the address of the next real instruction — label
//     declarations themselves occupy no code address.
//  2. lowerInstructions walks the statements a second time (labels this time
//     contribute nothing, A/C instructions lower to their 'hack.Instruction'
//     counterpart) to build the actual instruction stream.
//
// Running these as two independent sweeps instead of a single pass that
// mutates a running index while also emitting output keeps each pass
// re-runnable and easy to reason about on its own.
func (l *Lowerer) Lower() (hack.Program, hack.SymbolTable, error) {
	if len(l.program) == 0 {
		return nil, nil, fmt.Errorf("the given 'program' is empty")
	}

	table, err := l.resolveLabels()
	if err != nil {
		return nil, nil, err
	}

	converted, err := l.lowerInstructions()
	if err != nil {
		return nil, nil, err
	}

	return converted, table, nil
}

// resolveLabels computes the address every declared label is bound to,
// without producing any 'hack.Instruction'. The address of a label is the
// position, in the final instruction stream, of the next A/C instruction
// that follows it — so this pass tracks only a running instruction count,
// incremented for every A/C instruction and left untouched by labels.
func (l *Lowerer) resolveLabels() (hack.SymbolTable, error) {
	table, nInstructions := hack.SymbolTable{}, 0

	for _, stmt := range l.program {
		decl, isLabel := stmt.(LabelDecl)
		if !isLabel {
			nInstructions++
			continue
		}

		name, err := l.HandleLabelDecl(decl)
		if err != nil {
			return nil, err
		}
		if _, found := table[name]; found {
			return nil, fmt.Errorf("duplicate label declaration '(%s)'", name)
		}
		table[name] = uint16(nInstructions)
	}

	return table, nil
}

// lowerInstructions converts every A/C instruction in 'program' to its
// 'hack.Instruction' counterpart, skipping label declarations entirely (they
// were already consumed by resolveLabels and carry no instruction of their
// own).
func (l *Lowerer) lowerInstructions() (hack.Program, error) {
	converted := []hack.Instruction{}

	for _, stmt := range l.program {
		switch tStmt := stmt.(type) {
		case AInstruction:
			inst, err := l.HandleAInst(tStmt)
			if inst == nil || err != nil {
				return nil, err
			}
			converted = append(converted, inst)

		case CInstruction:
			inst, err := l.HandleCInst(tStmt)
			if inst == nil || err != nil {
				return nil, err
			}
			converted = append(converted, inst)

		case LabelDecl:
			continue

		default:
			return nil, fmt.Errorf("unrecognized instruction '%T'", stmt)
		}
	}

	return converted, nil
}

// HandleAInst converts an 'asm.AInstruction' to an 'hack.AInstruction', by
// classifying its symbol: a built-in register/pointer name, a raw numeric
// address, or a user-defined label to be resolved via the symbol table.
func (Lowerer) HandleAInst(inst AInstruction) (hack.Instruction, error) {
	if _, found := hack.BuiltInTable[inst.Location]; found {
		return hack.AInstruction{LocType: hack.BuiltIn, LocName: inst.Location}, nil
	}
	if _, err := strconv.ParseInt(inst.Location, 10, 16); err == nil {
		return hack.AInstruction{LocType: hack.Raw, LocName: inst.Location}, nil
	}
	return hack.AInstruction{LocType: hack.Label, LocName: inst.Location}, nil
}

// HandleCInst converts an 'asm.CInstruction' to an 'hack.CInstruction'.
func (Lowerer) HandleCInst(inst CInstruction) (hack.Instruction, error) {
	if inst.Comp == "" {
		return nil, fmt.Errorf("'Comp' sub-instruction should always be provided")
	}
	if inst.Dest == "" && inst.Jump == "" {
		return nil, fmt.Errorf("expected at least one of 'Dest' or 'Jump' sub-instructions")
	}

	// 'dest' and 'jump' are independent and may both be present on the same
	// instruction (e.g. 'D=D+M;JGT'), so both are carried through rather than
	// requiring exactly one to be set.
	return hack.CInstruction{Dest: inst.Dest, Comp: inst.Comp, Jump: inst.Jump}, nil
}

// HandleLabelDecl extracts the identifier bound by an 'asm.LabelDecl'.
func (Lowerer) HandleLabelDecl(inst LabelDecl) (string, error) {
	return inst.Name, nil
}
