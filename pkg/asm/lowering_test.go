package asm_test

import (
	"testing"

	"github.com/hackforge/n2t/pkg/asm"
	"github.com/hackforge/n2t/pkg/hack"
)

func TestLowererRejectsEmptyProgram(t *testing.T) {
	lowerer := asm.NewLowerer(asm.Program{})
	if _, _, err := lowerer.Lower(); err == nil {
		t.Fatalf("expected an error for an empty program")
	}
}

// TestLowererForwardLabelReference exercises the two-pass structure directly: a
// label is referenced by an A instruction before it's declared, which only resolves
// correctly if the symbol table is fully built (pass one) before any instruction is
// emitted (pass two), rather than resolved inline as the program is walked once.
func TestLowererForwardLabelReference(t *testing.T) {
	program := asm.Program{
		asm.AInstruction{Location: "LOOP"}, // forward reference, resolved in pass two
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: "LOOP"},
		asm.CInstruction{Comp: "D+1", Dest: "D"},
	}

	lowerer := asm.NewLowerer(program)
	converted, table, err := lowerer.Lower()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if addr, found := table["LOOP"]; !found || addr != 2 {
		t.Fatalf("expected 'LOOP' to resolve to address 2, got %d (found=%v)", addr, found)
	}
	if len(converted) != 3 {
		t.Fatalf("expected 3 lowered instructions (label declarations carry none), got %d", len(converted))
	}

	aInst, ok := converted[0].(hack.AInstruction)
	if !ok {
		t.Fatalf("expected first instruction to be an AInstruction, got %T", converted[0])
	}
	if aInst.LocType != hack.Label || aInst.LocName != "LOOP" {
		t.Errorf("expected unresolved label reference to 'LOOP', got %+v", aInst)
	}
}

func TestLowererDuplicateLabelFails(t *testing.T) {
	program := asm.Program{
		asm.LabelDecl{Name: "LOOP"},
		asm.CInstruction{Comp: "0"},
		asm.LabelDecl{Name: "LOOP"},
	}

	lowerer := asm.NewLowerer(program)
	if _, _, err := lowerer.Lower(); err == nil {
		t.Fatalf("expected an error for a duplicate label declaration")
	}
}

func TestLowererAInstClassification(t *testing.T) {
	cases := []struct {
		name    string
		inst    asm.AInstruction
		locType hack.LocationType
	}{
		{"built-in register", asm.AInstruction{Location: "SCREEN"}, hack.BuiltIn},
		{"raw address", asm.AInstruction{Location: "42"}, hack.Raw},
		{"user label", asm.AInstruction{Location: "LOOP_START"}, hack.Label},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			inst, err := asm.Lowerer{}.HandleAInst(c.inst)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, ok := inst.(hack.AInstruction)
			if !ok {
				t.Fatalf("expected hack.AInstruction, got %T", inst)
			}
			if got.LocType != c.locType {
				t.Errorf("expected LocType %v, got %v", c.locType, got.LocType)
			}
		})
	}
}

func TestLowererCInstRequiresDestOrJump(t *testing.T) {
	if _, err := (asm.Lowerer{}).HandleCInst(asm.CInstruction{Comp: "D"}); err == nil {
		t.Fatalf("expected an error when neither 'Dest' nor 'Jump' is set")
	}
	if _, err := (asm.Lowerer{}).HandleCInst(asm.CInstruction{Comp: ""}); err == nil {
		t.Fatalf("expected an error when 'Comp' is missing")
	}

	inst, err := (asm.Lowerer{}).HandleCInst(asm.CInstruction{Comp: "D+M", Dest: "D", Jump: "JGT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cInst, ok := inst.(hack.CInstruction)
	if !ok || cInst.Dest != "D" || cInst.Jump != "JGT" {
		t.Errorf("expected both 'Dest' and 'Jump' to survive, got %+v (ok=%v)", inst, ok)
	}
}
