package hack_test

import (
	"fmt"
	"testing"

	"github.com/hackforge/n2t/pkg/hack"
)

func TestTranslateAInst(t *testing.T) {
	table := map[string]uint16{"Test1": 0, "Test2": 67, "hmny": 9393, "n2t": 754, "JUMP": 90}
	codegen := hack.CodeGenerator{Program: []hack.Instruction{}, SymbolTable: table}

	cases := []struct {
		name     string
		inst     hack.AInstruction
		expected string
		wantErr  bool
	}{
		{"raw 38", hack.AInstruction{LocType: hack.Raw, LocName: "38"}, fmt.Sprintf("%016b", 38), false},
		{"raw 42", hack.AInstruction{LocType: hack.Raw, LocName: "42"}, fmt.Sprintf("%016b", 42), false},
		{"raw 64", hack.AInstruction{LocType: hack.Raw, LocName: "64"}, fmt.Sprintf("%016b", 64), false},
		{"raw 128", hack.AInstruction{LocType: hack.Raw, LocName: "128"}, fmt.Sprintf("%016b", 128), false},
		{"raw max addressable", hack.AInstruction{LocType: hack.Raw, LocName: "32767"}, fmt.Sprintf("%016b", 32767), false},
		{"raw out of bounds 32768", hack.AInstruction{LocType: hack.Raw, LocName: "32768"}, "", true},
		{"raw out of bounds 65538", hack.AInstruction{LocType: hack.Raw, LocName: "65538"}, "", true},
		{"raw out of bounds 66500", hack.AInstruction{LocType: hack.Raw, LocName: "66500"}, "", true},
		{"raw out of bounds 70000", hack.AInstruction{LocType: hack.Raw, LocName: "70000"}, "", true},

		{"built-in SP", hack.AInstruction{LocType: hack.BuiltIn, LocName: "SP"}, fmt.Sprintf("%016b", 0), false},
		{"built-in LCL", hack.AInstruction{LocType: hack.BuiltIn, LocName: "LCL"}, fmt.Sprintf("%016b", 1), false},
		{"built-in ARG", hack.AInstruction{LocType: hack.BuiltIn, LocName: "ARG"}, fmt.Sprintf("%016b", 2), false},
		{"built-in THIS", hack.AInstruction{LocType: hack.BuiltIn, LocName: "THIS"}, fmt.Sprintf("%016b", 3), false},
		{"built-in THAT", hack.AInstruction{LocType: hack.BuiltIn, LocName: "THAT"}, fmt.Sprintf("%016b", 4), false},
		{"built-in R0", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R0"}, fmt.Sprintf("%016b", 0), false},
		{"built-in R1", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R1"}, fmt.Sprintf("%016b", 1), false},
		{"built-in R2", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R2"}, fmt.Sprintf("%016b", 2), false},
		{"built-in R3", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R3"}, fmt.Sprintf("%016b", 3), false},
		{"built-in R4", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R4"}, fmt.Sprintf("%016b", 4), false},
		{"built-in R5", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R5"}, fmt.Sprintf("%016b", 5), false},
		{"built-in R6", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R6"}, fmt.Sprintf("%016b", 6), false},
		{"built-in R7", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R7"}, fmt.Sprintf("%016b", 7), false},
		{"built-in R8", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R8"}, fmt.Sprintf("%016b", 8), false},
		{"built-in R9", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R9"}, fmt.Sprintf("%016b", 9), false},
		{"built-in R10", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R10"}, fmt.Sprintf("%016b", 10), false},
		{"built-in R11", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R11"}, fmt.Sprintf("%016b", 11), false},
		{"built-in R12", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R12"}, fmt.Sprintf("%016b", 12), false},
		{"built-in R13", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R13"}, fmt.Sprintf("%016b", 13), false},
		{"built-in R14", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R14"}, fmt.Sprintf("%016b", 14), false},
		{"built-in R15", hack.AInstruction{LocType: hack.BuiltIn, LocName: "R15"}, fmt.Sprintf("%016b", 15), false},
		{"built-in KBD", hack.AInstruction{LocType: hack.BuiltIn, LocName: "KBD"}, fmt.Sprintf("%016b", 24576), false},
		{"built-in SCREEN", hack.AInstruction{LocType: hack.BuiltIn, LocName: "SCREEN"}, fmt.Sprintf("%016b", 16384), false},

		{"label Test1", hack.AInstruction{LocType: hack.Label, LocName: "Test1"}, fmt.Sprintf("%016b", table["Test1"]), false},
		{"label Test2", hack.AInstruction{LocType: hack.Label, LocName: "Test2"}, fmt.Sprintf("%016b", table["Test2"]), false},
		{"label hmny", hack.AInstruction{LocType: hack.Label, LocName: "hmny"}, fmt.Sprintf("%016b", table["hmny"]), false},
		{"label n2t", hack.AInstruction{LocType: hack.Label, LocName: "n2t"}, fmt.Sprintf("%016b", table["n2t"]), false},
		{"label JUMP", hack.AInstruction{LocType: hack.Label, LocName: "JUMP"}, fmt.Sprintf("%016b", table["JUMP"]), false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := codegen.TranslateAInst(c.inst)
			if (err != nil) != c.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if !c.wantErr && got != c.expected {
				t.Errorf("expected %q, got %q", c.expected, got)
			}
		})
	}
}

// TestTranslateAInstNewVariable exercises the other branch of label resolution: a label
// absent from the symbol table is treated as a fresh variable and assigned the next free
// slot starting at address 16, with the table updated so later references reuse it.
func TestTranslateAInstNewVariable(t *testing.T) {
	codegen := hack.CodeGenerator{Program: []hack.Instruction{}, SymbolTable: hack.SymbolTable{}}

	first, err := codegen.TranslateAInst(hack.AInstruction{LocType: hack.Label, LocName: "counter"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("%016b", 16); first != want {
		t.Errorf("expected first fresh variable at address 16, got %q", first)
	}

	second, err := codegen.TranslateAInst(hack.AInstruction{LocType: hack.Label, LocName: "total"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("%016b", 17); second != want {
		t.Errorf("expected second fresh variable at address 17, got %q", second)
	}

	again, err := codegen.TranslateAInst(hack.AInstruction{LocType: hack.Label, LocName: "counter"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != first {
		t.Errorf("expected re-referencing 'counter' to reuse address 16, got %q", again)
	}
}

func TestTranslateCInst(t *testing.T) {
	codegen := hack.CodeGenerator{}

	cases := []struct {
		name     string
		inst     hack.CInstruction
		expected string
	}{
		{"comp M, no jump", hack.CInstruction{Comp: "M", Jump: ""}, "1111110000000000"},
		{"comp A, no jump", hack.CInstruction{Comp: "A", Jump: ""}, "1110110000000000"},
		{"comp 0, jump JGT", hack.CInstruction{Comp: "0", Jump: "JGT"}, "1110101010000001"},
		{"comp 1, jump JEQ", hack.CInstruction{Comp: "1", Jump: "JEQ"}, "1110111111000010"},
		{"comp -1, jump JEQ", hack.CInstruction{Comp: "-1", Jump: "JEQ"}, "1110111010000010"},
		{"comp D, jump JGE", hack.CInstruction{Comp: "D", Jump: "JGE"}, "1110001100000011"},
		{"comp A, jump JGE", hack.CInstruction{Comp: "A", Jump: "JGE"}, "1110110000000011"},
		{"comp !A, jump JLT", hack.CInstruction{Comp: "!A", Jump: "JLT"}, "1110110001000100"},
		{"comp !M, jump JNE", hack.CInstruction{Comp: "!M", Jump: "JNE"}, "1111110001000101"},
		{"comp -D, jump JNE", hack.CInstruction{Comp: "-D", Jump: "JNE"}, "1110001111000101"},
		{"comp -A, jump JLE", hack.CInstruction{Comp: "-A", Jump: "JLE"}, "1110110011000110"},
		{"comp -M, jump JLE", hack.CInstruction{Comp: "-M", Jump: "JLE"}, "1111110011000110"},
		{"comp D+1, jump JMP", hack.CInstruction{Comp: "D+1", Jump: "JMP"}, "1110011111000111"},
		{"comp A+1, jump JMP", hack.CInstruction{Comp: "A+1", Jump: "JMP"}, "1110110111000111"},
		{"comp M+1, no jump", hack.CInstruction{Comp: "M+1", Jump: ""}, "1111110111000000"},
		{"comp D-1, no jump", hack.CInstruction{Comp: "D-1", Jump: ""}, "1110001110000000"},
		{"comp A-1, jump JGT", hack.CInstruction{Comp: "A-1", Jump: "JGT"}, "1110110010000001"},
		{"comp M-1, jump JGT", hack.CInstruction{Comp: "M-1", Jump: "JGT"}, "1111110010000001"},

		{"comp D+A, no dest", hack.CInstruction{Comp: "D+A", Dest: ""}, "1110000010000000"},
		{"comp D+M, no dest", hack.CInstruction{Comp: "D+M", Dest: ""}, "1111000010000000"},
		{"comp D-A, dest M", hack.CInstruction{Comp: "D-A", Dest: "M"}, "1110010011001000"},
		{"comp D-M, dest M", hack.CInstruction{Comp: "D-M", Dest: "M"}, "1111010011001000"},
		{"comp A-D, dest D", hack.CInstruction{Comp: "A-D", Dest: "D"}, "1110000111010000"},
		{"comp M-D, dest D", hack.CInstruction{Comp: "M-D", Dest: "D"}, "1111000111010000"},
		{"comp D&A, dest A", hack.CInstruction{Comp: "D&A", Dest: "A"}, "1110000000100000"},
		{"comp D&M, dest A", hack.CInstruction{Comp: "D&M", Dest: "A"}, "1111000000100000"},
		{"comp D|A, dest MD", hack.CInstruction{Comp: "D|A", Dest: "MD"}, "1110010101011000"},
		{"comp D|M, dest MD", hack.CInstruction{Comp: "D|M", Dest: "MD"}, "1111010101011000"},
		{"comp M, dest AM", hack.CInstruction{Comp: "M", Dest: "AM"}, "1111110000101000"},
		{"comp A, dest AM", hack.CInstruction{Comp: "A", Dest: "AM"}, "1110110000101000"},
		{"comp 0, dest AD", hack.CInstruction{Comp: "0", Dest: "AD"}, "1110101010110000"},
		{"comp 1, dest AD", hack.CInstruction{Comp: "1", Dest: "AD"}, "1110111111110000"},
		{"comp -1, dest AMD", hack.CInstruction{Comp: "-1", Dest: "AMD"}, "1110111010111000"},
		{"comp D, dest AMD", hack.CInstruction{Comp: "D", Dest: "AMD"}, "1110001100111000"},
		{"comp A, dest AMD", hack.CInstruction{Comp: "A", Dest: "AMD"}, "1110110000111000"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := codegen.TranslateCInst(c.inst)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.expected {
				t.Errorf("expected %q, got %q", c.expected, got)
			}
		})
	}
}

func TestTranslateCInstRejectsUnknownMnemonics(t *testing.T) {
	codegen := hack.CodeGenerator{}

	cases := []struct {
		name string
		inst hack.CInstruction
	}{
		{"missing comp", hack.CInstruction{Comp: "", Dest: "D"}},
		{"unknown comp", hack.CInstruction{Comp: "D^A"}},
		{"unknown dest", hack.CInstruction{Comp: "D", Dest: "XYZ"}},
		{"unknown jump", hack.CInstruction{Comp: "D", Jump: "JXX"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := codegen.TranslateCInst(c.inst); err == nil {
				t.Fatalf("expected an error, got none")
			}
		})
	}
}
