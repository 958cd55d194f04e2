package asm_test

import (
	"testing"

	"github.com/hackforge/n2t/pkg/asm"
)

func TestGenerateAInst(t *testing.T) {
	codegen := asm.NewCodeGenerator(asm.Program{})

	cases := []struct {
		name     string
		inst     asm.AInstruction
		expected string
		wantErr  bool
	}{
		{"raw address", asm.AInstruction{Location: "256"}, "@256", false},
		{"user label", asm.AInstruction{Location: "LOOP"}, "@LOOP", false},
		{"built-in register", asm.AInstruction{Location: "SCREEN"}, "@SCREEN", false},
		{"qualified class label", asm.AInstruction{Location: "Foo.0"}, "@Foo.0", false},
		{"empty location rejected", asm.AInstruction{Location: ""}, "", true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := codegen.GenerateAInst(c.inst)
			if got != c.expected {
				t.Errorf("expected %q, got %q", c.expected, got)
			}
			if (err != nil) != c.wantErr {
				t.Errorf("wantErr=%v, got err=%v", c.wantErr, err)
			}
		})
	}
}

func TestGenerateCInst(t *testing.T) {
	codegen := asm.NewCodeGenerator(asm.Program{})

	cases := []struct {
		name     string
		inst     asm.CInstruction
		expected string
		wantErr  bool
	}{
		{"dest only", asm.CInstruction{Dest: "D", Comp: "M"}, "D=M", false},
		{"jump only", asm.CInstruction{Comp: "0", Jump: "JMP"}, "0;JMP", false},
		{"dest and comp", asm.CInstruction{Dest: "M", Comp: "D+1"}, "M=D+1", false},
		{"dest, comp and jump combined", asm.CInstruction{Dest: "D", Comp: "D+M", Jump: "JGT"}, "D=D+M;JGT", false},
		{"comp only, neither dest nor jump", asm.CInstruction{Comp: "D"}, "D", false},
		{"missing comp rejected", asm.CInstruction{}, "", true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := codegen.GenerateCInst(c.inst)
			if got != c.expected {
				t.Errorf("expected %q, got %q", c.expected, got)
			}
			if (err != nil) != c.wantErr {
				t.Errorf("wantErr=%v, got err=%v", c.wantErr, err)
			}
		})
	}
}

func TestGenerateLabelDecl(t *testing.T) {
	codegen := asm.NewCodeGenerator(asm.Program{})

	cases := []struct {
		name     string
		inst     asm.LabelDecl
		expected string
		wantErr  bool
	}{
		{"simple label", asm.LabelDecl{Name: "LOOP"}, "(LOOP)", false},
		{"qualified subroutine label", asm.LabelDecl{Name: "Main.fib$if_true.1"}, "(Main.fib$if_true.1)", false},
		{"empty name rejected", asm.LabelDecl{Name: ""}, "", true},
		{"shadowing a built-in rejected", asm.LabelDecl{Name: "SCREEN"}, "", true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := codegen.GenerateLabelDecl(c.inst)
			if got != c.expected {
				t.Errorf("expected %q, got %q", c.expected, got)
			}
			if (err != nil) != c.wantErr {
				t.Errorf("wantErr=%v, got err=%v", c.wantErr, err)
			}
		})
	}
}
